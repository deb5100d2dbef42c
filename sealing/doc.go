// Package sealing implements the key-material lifecycle against the external
// sealing oracle, AWS KMS.
//
// # Unseal (signing path)
//
// The host hands the enclave KMS ciphertext; the enclave calls Decrypt with
// a recipient block: an attestation document covering a freshly generated
// RSA public key. KMS verifies the document against the key policy and
// returns the plaintext wrapped to that RSA key as a CMS envelope, which is
// opened locally. Plaintext key bytes therefore never cross the vsock
// boundary in the clear, and a host snooping the proxy sees only TLS.
//
// The recovered seed must be exactly 32 bytes; anything else is
// ErrInvalidKey. An oracle refusal is ErrAccess. Neither is retried: both
// indicate misconfiguration, not transience.
//
// # Seal (keygen path)
//
// A fresh ed25519 key is drawn from the NSM entropy source and its seed is
// encrypted under the operator's KMS key. The in-memory seed is scrubbed the
// moment sealing returns, on success and failure alike; only the ciphertext
// and the public key survive.
//
// # Transport
//
// The enclave has no network. The AWS client dials a host-side vsock proxy
// that forwards raw bytes to the regional KMS endpoint; TLS runs end to end
// between the enclave and KMS.
package sealing
