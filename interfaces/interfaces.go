package interfaces

import "context"

// Connection is a framed duplex channel. Implementations frame every message
// with a 2-byte big-endian length prefix; the secure variant additionally
// encrypts each frame. A Connection is owned by exactly one loop at a time
// and is replaced wholesale on reconnect, never mutated.
type Connection interface {
	// ReadMessage reads one framed message, blocking until a full frame
	// arrives or the underlying stream fails.
	ReadMessage() ([]byte, error)

	// WriteMessage writes one framed message.
	WriteMessage(data []byte) error

	// Close closes the underlying stream.
	Close() error
}

// Sealer turns key material into externally held ciphertext and back. Both
// operations call out to the external sealing oracle; neither retries.
type Sealer interface {
	// Unseal decrypts ciphertext into raw key bytes. Callers own the
	// returned buffer and must scrub it once the key is constructed.
	Unseal(ctx context.Context, ciphertext SealedSecret) ([]byte, error)

	// Seal encrypts raw key bytes under the named oracle key.
	Seal(ctx context.Context, keyID string, plaintext []byte) (SealedSecret, error)
}

// AttestationOptions selects what the identity oracle binds into the
// evidence. All fields are optional.
type AttestationOptions struct {
	// Nonce is an anti-replay value chosen by the verifier.
	Nonce []byte

	// UserData is an arbitrary caller claim covered by the document.
	UserData []byte

	// PublicKey is a DER-encoded public key the verifier may encrypt
	// responses to (used by the sealing oracle's recipient flow).
	PublicKey []byte
}

// AttestationProvider produces attestation documents from the enclave
// identity oracle.
type AttestationProvider interface {
	Attest(opts AttestationOptions) (AttestationDocument, error)
}
