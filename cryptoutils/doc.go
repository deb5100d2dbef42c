// Package cryptoutils provides the key-material hygiene helpers used across
// the enclave signer.
//
// Raw private key bytes exist inside the enclave only transiently: between
// the external sealing oracle returning plaintext and the signing key being
// constructed, and between key generation and sealing. Every such buffer is
// scrubbed (overwritten with zeros) on all exit paths, success and failure
// alike.
//
// The Secret type models that discipline as scoped acquisition with
// guaranteed release:
//
//	seed := cryptoutils.NewSecret(plaintext)
//	defer seed.Destroy()
//	key, err := buildKey(seed.Bytes())
//
// Destroy fires identically on success, early error return, or panic
// unwinding, and is idempotent.
package cryptoutils
