package interfaces

import (
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
)

// SealedSecret is ciphertext produced by the external sealing oracle. It is
// opaque to the enclave until unsealed.
type SealedSecret []byte

// AttestationDocument is the signed evidence blob produced by the enclave
// identity oracle. This system never parses it inside the enclave; the host
// helper decodes it for display only.
type AttestationDocument []byte

// PeerID is the fingerprint of an ed25519 public key, used to recognize the
// validator across connections. It is the first 20 bytes of the SHA-256 of
// the raw public key.
type PeerID [20]byte

// PeerIDFromPublicKey derives the fingerprint of an ed25519 public key.
func PeerIDFromPublicKey(pub ed25519.PublicKey) PeerID {
	var id PeerID
	sum := sha256.Sum256(pub)
	copy(id[:], sum[:20])
	return id
}

// ParsePeerID parses a 40-character hex fingerprint.
func ParsePeerID(s string) (PeerID, error) {
	if len(s) != 40 {
		return PeerID{}, errors.New("invalid peer id length: hex string must be 40 characters")
	}

	idBytes, err := hex.DecodeString(s)
	if err != nil {
		return PeerID{}, fmt.Errorf("invalid peer id format: %w", err)
	}

	var id PeerID
	copy(id[:], idBytes)
	return id, nil
}

// String returns the lowercase hex representation of the fingerprint.
func (id PeerID) String() string {
	return hex.EncodeToString(id[:])
}

// Bytes returns the raw 20-byte fingerprint.
func (id PeerID) Bytes() []byte {
	return id[:]
}

// Equal compares two fingerprints in constant time. The comparison must not
// leak the position of the first differing byte.
func (id PeerID) Equal(other PeerID) bool {
	return subtle.ConstantTimeCompare(id[:], other[:]) == 1
}
