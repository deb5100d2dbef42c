// Package interfaces defines core interfaces and types shared across the
// enclave signer, separating interface definitions from implementations.
//
// # Channel Interfaces
//
// Connection: a framed duplex channel over the host-mediated transport. The
// secure variant (package secretconn) adds mutual authentication and
// per-frame encryption; the plain variant (package transport) adds framing
// only. Both are replaced wholesale on reconnect.
//
// # Oracle Interfaces
//
// Sealer: the external sealing oracle that turns raw key material into
// ciphertext and back. The production implementation (package sealing) talks
// to AWS KMS with attestation-bound requests.
//
// AttestationProvider: the enclave identity oracle producing signed
// attestation documents over optional caller data. The production
// implementation (package attest) talks to the Nitro Security Module.
//
// # Core Types
//
//   - PeerID: 20-byte fingerprint of an ed25519 public key, compared in
//     constant time
//   - SealedSecret: opaque oracle ciphertext
//   - AttestationDocument: opaque signed evidence
//
// Mock implementations of the interfaces live alongside them for use in
// tests.
package interfaces
