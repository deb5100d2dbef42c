// Package hostutils contains the host-side plumbing of the signer helper:
// the start configuration, AWS credential resolution for the enclave, the
// vsock-to-endpoint proxies, and attestation document decoding.
//
// The enclave has no network of its own. Everything it reaches runs through
// the helper: the privval proxy bridges the validator's endpoint onto a
// vsock port, the KMS proxy bridges the regional KMS endpoint, and the
// chain-state server (package chainstate) persists signing state. The
// helper also packages AWS credentials into the control requests, since the
// enclave cannot use the instance's ambient identity.
package hostutils
