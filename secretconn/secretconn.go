package secretconn

import (
	"bytes"
	"crypto/cipher"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"

	"github.com/ruteri/nitro-validator-signer/cryptoutils"
	"github.com/ruteri/nitro-validator-signer/interfaces"
	"github.com/ruteri/nitro-validator-signer/transport"
)

var (
	// ErrHandshake covers malformed or truncated handshake exchanges.
	ErrHandshake = errors.New("secretconn: handshake failed")

	// ErrPeerAuthentication is returned when the remote identity proof does
	// not verify against the shared challenge.
	ErrPeerAuthentication = errors.New("secretconn: peer authentication failed")
)

// kdfInfo domain-separates the key schedule of this channel.
const kdfInfo = "NITRO_VALIDATOR_SIGNER_KEY_AND_CHALLENGE_GEN"

// Conn is the secure channel variant: every frame is sealed with a
// per-direction ChaCha20-Poly1305 key negotiated during the handshake, and
// the remote identity is authenticated by an ed25519 signature over a
// challenge derived from the key exchange.
type Conn struct {
	conn net.Conn

	sendAEAD  cipher.AEAD
	recvAEAD  cipher.AEAD
	sendNonce uint64
	recvNonce uint64

	remotePub ed25519.PublicKey
}

var _ interfaces.Connection = (*Conn)(nil)

// authMessage carries one side's identity proof through the already sealed
// channel.
type authMessage struct {
	PubKey    []byte `json:"pub_key"`
	Signature []byte `json:"signature"`
}

// Handshake upgrades conn to a mutually authenticated encrypted channel.
//
// Both sides exchange ephemeral X25519 keys, derive per-direction AEAD keys
// and a shared challenge via HKDF-SHA256 over the sorted transcript, then
// prove their long-lived ed25519 identities by exchanging signatures over
// the challenge through the sealed channel. The handshake is symmetric; peer
// writes happen concurrently with reads so neither side depends on ordering.
//
// Handshake authenticates that the peer holds some identity key; whether it
// is the expected one is the caller's check, against RemotePeerID.
func Handshake(conn net.Conn, identityKey ed25519.PrivateKey) (*Conn, error) {
	if len(identityKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: identity key must be %d bytes", ErrHandshake, ed25519.PrivateKeySize)
	}

	localEphPriv := make([]byte, curve25519.ScalarSize)
	if _, err := rand.Read(localEphPriv); err != nil {
		return nil, fmt.Errorf("generate ephemeral key: %w", err)
	}
	defer cryptoutils.Zeroize(localEphPriv)

	localEphPub, err := curve25519.X25519(localEphPriv, curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("derive ephemeral public key: %w", err)
	}

	peerEphPub, err := swapFrames(conn, localEphPub)
	if err != nil {
		return nil, fmt.Errorf("%w: exchange ephemeral keys: %s", ErrHandshake, err)
	}
	if len(peerEphPub) != curve25519.PointSize {
		return nil, fmt.Errorf("%w: ephemeral key must be %d bytes, got %d", ErrHandshake, curve25519.PointSize, len(peerEphPub))
	}

	shared, err := curve25519.X25519(localEphPriv, peerEphPub)
	if err != nil {
		return nil, fmt.Errorf("%w: key exchange: %s", ErrHandshake, err)
	}
	defer cryptoutils.Zeroize(shared)

	sc, challenge, err := newSealedConn(conn, shared, localEphPub, peerEphPub)
	if err != nil {
		return nil, err
	}

	if err := sc.authenticate(identityKey, challenge); err != nil {
		return nil, err
	}
	return sc, nil
}

// newSealedConn derives the per-direction AEADs and the auth challenge. Key
// assignment follows the lexicographic order of the ephemeral public keys so
// both sides agree without negotiating roles.
func newSealedConn(conn net.Conn, shared, localEphPub, peerEphPub []byte) (*Conn, []byte, error) {
	lo, hi := localEphPub, peerEphPub
	if bytes.Compare(lo, hi) > 0 {
		lo, hi = hi, lo
	}
	transcript := sha256.Sum256(append(append([]byte{}, lo...), hi...))

	keyMaterial := make([]byte, 2*chacha20poly1305.KeySize+32)
	kdf := hkdf.New(sha256.New, shared, transcript[:], []byte(kdfInfo))
	if _, err := io.ReadFull(kdf, keyMaterial); err != nil {
		return nil, nil, fmt.Errorf("derive channel keys: %w", err)
	}
	defer cryptoutils.Zeroize(keyMaterial)

	loKey := keyMaterial[:chacha20poly1305.KeySize]
	hiKey := keyMaterial[chacha20poly1305.KeySize : 2*chacha20poly1305.KeySize]
	challenge := append([]byte{}, keyMaterial[2*chacha20poly1305.KeySize:]...)

	sendKey, recvKey := loKey, hiKey
	if bytes.Equal(localEphPub, lo) {
		sendKey, recvKey = hiKey, loKey
	}

	sendAEAD, err := chacha20poly1305.New(sendKey)
	if err != nil {
		return nil, nil, fmt.Errorf("init send cipher: %w", err)
	}
	recvAEAD, err := chacha20poly1305.New(recvKey)
	if err != nil {
		return nil, nil, fmt.Errorf("init recv cipher: %w", err)
	}

	return &Conn{conn: conn, sendAEAD: sendAEAD, recvAEAD: recvAEAD}, challenge, nil
}

// authenticate exchanges ed25519 identity proofs over the sealed channel and
// verifies the peer's signature on the shared challenge.
func (c *Conn) authenticate(identityKey ed25519.PrivateKey, challenge []byte) error {
	local, err := json.Marshal(authMessage{
		PubKey:    identityKey.Public().(ed25519.PublicKey),
		Signature: ed25519.Sign(identityKey, challenge),
	})
	if err != nil {
		return fmt.Errorf("encode auth message: %w", err)
	}

	errc := make(chan error, 1)
	go func() { errc <- c.WriteMessage(local) }()

	peerRaw, err := c.ReadMessage()
	if err != nil {
		return fmt.Errorf("%w: read auth message: %s", ErrHandshake, err)
	}
	if err := <-errc; err != nil {
		return fmt.Errorf("%w: send auth message: %s", ErrHandshake, err)
	}

	var peer authMessage
	if err := json.Unmarshal(peerRaw, &peer); err != nil {
		return fmt.Errorf("%w: decode auth message: %s", ErrHandshake, err)
	}
	if len(peer.PubKey) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: identity key must be %d bytes, got %d", ErrHandshake, ed25519.PublicKeySize, len(peer.PubKey))
	}
	if !ed25519.Verify(ed25519.PublicKey(peer.PubKey), challenge, peer.Signature) {
		return ErrPeerAuthentication
	}

	c.remotePub = ed25519.PublicKey(peer.PubKey)
	return nil
}

// swapFrames sends local and receives the peer's frame concurrently, so two
// endpoints handshaking over an unbuffered stream cannot deadlock.
func swapFrames(conn net.Conn, local []byte) ([]byte, error) {
	errc := make(chan error, 1)
	go func() { errc <- transport.WriteMessage(conn, local) }()

	remote, err := transport.ReadMessage(conn)
	if err != nil {
		return nil, err
	}
	if err := <-errc; err != nil {
		return nil, err
	}
	return remote, nil
}

// RemotePubKey returns the peer's authenticated ed25519 public key.
func (c *Conn) RemotePubKey() ed25519.PublicKey {
	return c.remotePub
}

// RemotePeerID returns the fingerprint of the peer's authenticated identity.
func (c *Conn) RemotePeerID() interfaces.PeerID {
	return interfaces.PeerIDFromPublicKey(c.remotePub)
}

// ReadMessage reads and opens one sealed frame.
func (c *Conn) ReadMessage() ([]byte, error) {
	sealed, err := transport.ReadMessage(c.conn)
	if err != nil {
		return nil, err
	}

	plain, err := c.recvAEAD.Open(nil, nonceFor(c.recvNonce), sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("secretconn: open frame %d: %w", c.recvNonce, err)
	}
	c.recvNonce++
	return plain, nil
}

// WriteMessage seals data and writes it as one frame.
func (c *Conn) WriteMessage(data []byte) error {
	if len(data) > transport.MaxMessageSize-c.sendAEAD.Overhead() {
		return transport.ErrMessageTooLarge
	}

	sealed := c.sendAEAD.Seal(nil, nonceFor(c.sendNonce), data, nil)
	if err := transport.WriteMessage(c.conn, sealed); err != nil {
		return err
	}
	c.sendNonce++
	return nil
}

// Close closes the underlying stream.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// nonceFor builds the 12-byte nonce for a frame counter. Each direction has
// its own key, so counters may collide across directions.
func nonceFor(counter uint64) []byte {
	nonce := make([]byte, chacha20poly1305.NonceSize)
	binary.LittleEndian.PutUint64(nonce[4:], counter)
	return nonce
}
