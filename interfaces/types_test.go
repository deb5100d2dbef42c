package interfaces

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeerIDFromPublicKey(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err, "Failed to generate key")

	id := PeerIDFromPublicKey(pub)
	sum := sha256.Sum256(pub)
	assert.Equal(t, sum[:20], id.Bytes(), "Fingerprint should be the first 20 bytes of SHA-256 of the public key")
}

func TestParsePeerID(t *testing.T) {
	id := PeerID{0x01, 0x02, 0x03}

	parsed, err := ParsePeerID(id.String())
	require.NoError(t, err, "Round-tripping through hex should succeed")
	assert.Equal(t, id, parsed, "Parsed fingerprint should match the original")

	_, err = ParsePeerID("abcd")
	assert.Error(t, err, "Short hex strings should be rejected")

	_, err = ParsePeerID("zz" + id.String()[2:])
	assert.Error(t, err, "Non-hex characters should be rejected")
}

func TestPeerIDEqual(t *testing.T) {
	base := PeerID{0x11, 0x22, 0x33, 0x44}
	assert.True(t, base.Equal(base), "Identical fingerprints should compare equal")

	// Mismatches must be detected regardless of where the difference sits.
	firstByteOff := base
	firstByteOff[0] ^= 0x01
	assert.False(t, base.Equal(firstByteOff), "Difference in the first byte should compare unequal")

	lastByteOff := base
	lastByteOff[len(lastByteOff)-1] ^= 0x01
	assert.False(t, base.Equal(lastByteOff), "Difference in the last byte should compare unequal")
}
