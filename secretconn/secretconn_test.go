package secretconn

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/curve25519"

	"github.com/ruteri/nitro-validator-signer/interfaces"
	"github.com/ruteri/nitro-validator-signer/transport"
)

func testIdentity(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err, "Failed to generate identity key")
	return pub, priv
}

// handshakePair runs the handshake between two in-memory endpoints.
func handshakePair(t *testing.T, signerKey, validatorKey ed25519.PrivateKey) (*Conn, *Conn) {
	t.Helper()
	signerEnd, validatorEnd := net.Pipe()

	type result struct {
		conn *Conn
		err  error
	}
	validatorDone := make(chan result, 1)
	go func() {
		conn, err := Handshake(validatorEnd, validatorKey)
		validatorDone <- result{conn, err}
	}()

	signerConn, err := Handshake(signerEnd, signerKey)
	require.NoError(t, err, "Signer handshake should succeed")

	validatorRes := <-validatorDone
	require.NoError(t, validatorRes.err, "Validator handshake should succeed")
	return signerConn, validatorRes.conn
}

func TestHandshakeAuthenticatesBothPeers(t *testing.T) {
	signerPub, signerKey := testIdentity(t)
	validatorPub, validatorKey := testIdentity(t)

	signerConn, validatorConn := handshakePair(t, signerKey, validatorKey)
	defer signerConn.Close()

	assert.Equal(t, validatorPub, signerConn.RemotePubKey(), "Signer should see the validator identity")
	assert.Equal(t, signerPub, validatorConn.RemotePubKey(), "Validator should see the signer identity")
	assert.Equal(t, interfaces.PeerIDFromPublicKey(validatorPub), signerConn.RemotePeerID(), "Fingerprint should derive from the remote identity key")
}

func TestSecureRoundTrip(t *testing.T) {
	_, signerKey := testIdentity(t)
	_, validatorKey := testIdentity(t)

	signerConn, validatorConn := handshakePair(t, signerKey, validatorKey)
	defer signerConn.Close()

	for _, msg := range []string{"first", "second", "third"} {
		wrote := make(chan error, 1)
		go func() {
			wrote <- signerConn.WriteMessage([]byte(msg))
		}()
		got, err := validatorConn.ReadMessage()
		require.NoError(t, err, "ReadMessage should succeed")
		require.NoError(t, <-wrote, "WriteMessage should succeed")
		assert.Equal(t, []byte(msg), got, "Message should round-trip through the sealed channel")
	}

	// And the other direction.
	go func() {
		_ = validatorConn.WriteMessage([]byte("reply"))
	}()
	got, err := signerConn.ReadMessage()
	require.NoError(t, err, "ReadMessage should succeed")
	assert.Equal(t, []byte("reply"), got, "Channel should be duplex")
}

func TestHandshakeRejectsInvalidIdentityKey(t *testing.T) {
	client, _ := net.Pipe()
	_, err := Handshake(client, make([]byte, 7))
	assert.ErrorIs(t, err, ErrHandshake, "A malformed identity key should fail the handshake")
}

func TestHandshakeRejectsForgedSignature(t *testing.T) {
	_, signerKey := testIdentity(t)
	claimedPub, _ := testIdentity(t)

	signerEnd, peerEnd := net.Pipe()
	defer peerEnd.Close()

	// A peer that completes the key exchange but proves nothing: it claims
	// one identity and signs with another.
	go func() {
		ephPriv := make([]byte, curve25519.ScalarSize)
		if _, err := rand.Read(ephPriv); err != nil {
			return
		}
		ephPub, err := curve25519.X25519(ephPriv, curve25519.Basepoint)
		if err != nil {
			return
		}
		remoteEph, err := swapFrames(peerEnd, ephPub)
		if err != nil {
			return
		}
		shared, err := curve25519.X25519(ephPriv, remoteEph)
		if err != nil {
			return
		}
		sc, challenge, err := newSealedConn(peerEnd, shared, ephPub, remoteEph)
		if err != nil {
			return
		}
		_, wrongKey, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return
		}
		forged, err := json.Marshal(authMessage{
			PubKey:    claimedPub,
			Signature: ed25519.Sign(wrongKey, challenge),
		})
		if err != nil {
			return
		}
		_ = sc.WriteMessage(forged)
		// Drain the honest side's auth message so its write completes.
		_, _ = sc.ReadMessage()
	}()

	_, err := Handshake(signerEnd, signerKey)
	assert.ErrorIs(t, err, ErrPeerAuthentication, "A forged identity proof must be rejected")
}

func TestReadMessageRejectsTamperedFrame(t *testing.T) {
	_, signerKey := testIdentity(t)
	_, validatorKey := testIdentity(t)

	signerConn, validatorConn := handshakePair(t, signerKey, validatorKey)
	defer signerConn.Close()

	// Bypass the sealed channel and inject a garbage frame.
	go func() {
		_ = transport.WriteMessage(validatorConn.conn, []byte("not a valid ciphertext"))
	}()

	_, err := signerConn.ReadMessage()
	assert.Error(t, err, "A frame that fails to open must be an error")
}

func TestWriteMessageRespectsFrameLimit(t *testing.T) {
	_, signerKey := testIdentity(t)
	_, validatorKey := testIdentity(t)

	signerConn, validatorConn := handshakePair(t, signerKey, validatorKey)
	defer signerConn.Close()
	defer validatorConn.Close()

	tooBig := make([]byte, transport.MaxMessageSize-signerConn.sendAEAD.Overhead()+1)
	err := signerConn.WriteMessage(tooBig)
	assert.ErrorIs(t, err, transport.ErrMessageTooLarge, "Payloads that cannot fit one sealed frame must be rejected")
}
