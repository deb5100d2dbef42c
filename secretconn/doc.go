// Package secretconn implements the authenticated encrypted channel between
// the enclave signer and the validator.
//
// # Handshake
//
// Both endpoints generate an ephemeral X25519 key pair and exchange the
// public halves as plain frames. The shared secret is fed through
// HKDF-SHA256, salted with the SHA-256 of the two ephemeral public keys in
// lexicographic order, producing two channel keys and a 32-byte challenge.
// Key direction is assigned by the same ordering, so the scheme needs no
// client/server roles. Each side then sends its long-lived ed25519 public
// key and a signature over the challenge through the already sealed channel
// and verifies the peer's proof. Ephemeral secrets and derived key material
// are scrubbed as soon as the ciphers are initialized.
//
// # Wire format
//
// Post-handshake frames reuse the transport framing: a 2-byte big-endian
// length prefix followed by the ChaCha20-Poly1305 sealed payload. Nonces are
// per-direction frame counters; a frame that fails to open poisons the
// channel and the caller replaces it wholesale.
//
// # Peer verification
//
// Handshake proves possession of some identity key. Checking that it is the
// configured validator is the caller's job: compare RemotePeerID against the
// expected fingerprint with interfaces.PeerID.Equal, which runs in constant
// time. A mismatch fails that connection attempt only; the session driver
// retries.
package secretconn
