package enclave

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/ruteri/nitro-validator-signer/interfaces"
	"github.com/ruteri/nitro-validator-signer/secretconn"
	"github.com/ruteri/nitro-validator-signer/transport"
)

// ErrPeerMismatch is returned when the authenticated remote identity does
// not match the configured validator fingerprint. It fails the current
// connection attempt only; the session driver retries.
var ErrPeerMismatch = errors.New("enclave: validator peer id mismatch")

// Establisher produces the validator channel. With an identity key it runs
// the mutual handshake and checks the remote fingerprint; without one it
// returns a plain framed channel with no identity guarantees.
type Establisher struct {
	// Port is the host vsock port of the validator connection.
	Port uint32

	// IdentityKey, when set, authenticates this side of the handshake.
	IdentityKey ed25519.PrivateKey

	// ExpectedPeer, when set, is the only validator fingerprint accepted.
	ExpectedPeer *interfaces.PeerID

	// Dial overrides vsock dialing in tests.
	Dial func(port uint32) (net.Conn, error)

	Log *slog.Logger
}

// Establish dials the validator endpoint and returns a live channel. A dial
// failure is a connection error for the caller to retry; so is a handshake
// failure or a fingerprint mismatch, since a flapping or misdialed peer
// should not kill the process.
func (e *Establisher) Establish() (interfaces.Connection, error) {
	dial := e.Dial
	if dial == nil {
		dial = transport.DialHost
	}

	raw, err := dial(e.Port)
	if err != nil {
		return nil, fmt.Errorf("dial validator: %w", err)
	}

	if e.IdentityKey == nil {
		e.Log.Warn("no identity key configured, validator channel is unauthenticated")
		return transport.NewPlainConn(raw), nil
	}

	conn, err := secretconn.Handshake(raw, e.IdentityKey)
	if err != nil {
		raw.Close()
		return nil, fmt.Errorf("validator handshake: %w", err)
	}

	remote := conn.RemotePeerID()
	if e.ExpectedPeer == nil {
		e.Log.Warn("no expected peer id configured, validator is unverified",
			slog.String("remote_peer_id", remote.String()))
		return conn, nil
	}

	// Constant-time comparison; a zero result from the underlying
	// primitive means the fingerprints differ.
	if !e.ExpectedPeer.Equal(remote) {
		conn.Close()
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrPeerMismatch, e.ExpectedPeer, remote)
	}

	e.Log.Info("validator peer verified", slog.String("peer_id", remote.String()))
	return conn, nil
}
