// Package privval implements the signing session between the enclave and
// the validator.
//
// A Session is created once per process with the unsealed consensus key and
// the state loaded from the host oracle, and lives across reconnects: the
// session driver replaces the connection, never the session. Requests and
// responses are JSON envelopes over the established channel.
//
// Double-sign prevention: a signature is only produced when the requested
// (height, round, step) strictly advances the persisted position, or exactly
// matches it with the same block id (in which case the deterministic
// signature is reproduced). The new position is persisted through the state
// oracle before the signature is released, so a crash between the two can
// lose a signature but never issue conflicting ones.
package privval
