package enclave

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"

	"github.com/ruteri/nitro-validator-signer/api"
	"github.com/ruteri/nitro-validator-signer/chainstate"
	"github.com/ruteri/nitro-validator-signer/interfaces"
	"github.com/ruteri/nitro-validator-signer/privval"
	"github.com/ruteri/nitro-validator-signer/sealing"
	"github.com/ruteri/nitro-validator-signer/transport"
)

// Dispatcher reads one control request from the host per accepted
// connection and routes it: start launches the signing session and never
// returns, keygen answers with exactly one response frame.
type Dispatcher struct {
	// KMSProxyPort is the host vsock port of the KMS TCP proxy.
	KMSProxyPort uint32

	// Attester is the enclave identity oracle.
	Attester interfaces.AttestationProvider

	// Entropy is the enclave randomness source, the NSM in production.
	Entropy io.Reader

	Log *slog.Logger

	// NewSealer overrides the production KMS sealer in tests.
	NewSealer func(ctx context.Context, cfg sealing.Config) (interfaces.Sealer, error)

	// DialHost overrides vsock dialing in tests.
	DialHost func(port uint32) (net.Conn, error)
}

// Serve handles one host connection. A request that cannot be decoded is
// logged and dropped without crashing the process. Serve returns an error
// only for failures that must end the process: a start request whose key
// material cannot be unsealed.
func (d *Dispatcher) Serve(ctx context.Context, conn interfaces.Connection) error {
	raw, err := conn.ReadMessage()
	if err != nil {
		d.Log.Error("failed to read control request", "err", err)
		return nil
	}

	var req api.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		d.Log.Error("failed to decode control request", "err", err)
		return nil
	}

	switch {
	case req.Start != nil:
		return d.handleStart(ctx, *req.Start)
	case req.Keygen != nil:
		d.handleKeygen(ctx, conn, *req.Keygen)
		return nil
	default:
		d.Log.Error("control request carries no known variant")
		return nil
	}
}

// handleStart unseals the key material and runs the session driver. It only
// returns on a fatal setup error; once the driver is running it never does.
func (d *Dispatcher) handleStart(ctx context.Context, req api.StartRequest) error {
	if err := req.Validate(); err != nil {
		d.Log.Error("invalid start request", "err", err)
		return nil
	}

	sealer, err := d.sealer(ctx, req.AWSRegion, req.Credentials)
	if err != nil {
		return fmt.Errorf("configure sealer: %w", err)
	}

	consensusKey, err := sealing.UnsealSigningKey(ctx, sealer, req.SealedConsensusKey)
	if err != nil {
		return fmt.Errorf("unseal consensus key: %w", err)
	}
	d.Log.Info("unsealed consensus key", slog.String("chain_id", req.ChainID))

	var identityKey ed25519.PrivateKey
	if len(req.SealedIDKey) > 0 {
		identityKey, err = sealing.UnsealSigningKey(ctx, sealer, req.SealedIDKey)
		if err != nil {
			return fmt.Errorf("unseal identity key: %w", err)
		}
	}

	var expectedPeer *interfaces.PeerID
	if req.PeerID != "" {
		id, err := interfaces.ParsePeerID(req.PeerID)
		if err != nil {
			return fmt.Errorf("parse peer id: %w", err)
		}
		expectedPeer = &id
	}

	stateRaw, err := d.dialHost(req.EnclaveStatePort)
	if err != nil {
		return fmt.Errorf("connect state oracle: %w", err)
	}
	stateClient, initial, err := chainstate.NewClient(transport.NewPlainConn(stateRaw), d.Log)
	if err != nil {
		return fmt.Errorf("load signing state: %w", err)
	}

	session := privval.New(
		privval.Config{ChainID: req.ChainID, MaxHeight: req.MaxHeight},
		nil, consensusKey, initial, stateClient, d.Log)

	establisher := &Establisher{
		Port:         req.EnclaveTendermintConn,
		IdentityKey:  identityKey,
		ExpectedPeer: expectedPeer,
		Dial:         d.DialHost,
		Log:          d.Log,
	}

	driver := &Driver{Establish: establisher.Establish, Session: session, Log: d.Log}
	driver.Run()
	return nil
}

// handleKeygen runs the keygen flow and writes exactly one response frame,
// success or failure. Oracle and attestation failures become response
// messages, never process exits.
func (d *Dispatcher) handleKeygen(ctx context.Context, conn interfaces.Connection, req api.KeygenRequest) {
	result, err := d.keygen(ctx, req)

	var resp api.Response
	if err != nil {
		d.Log.Error("keygen failed", "err", err)
		resp.Error = err.Error()
	} else {
		resp.OK = result
	}

	data, err := json.Marshal(resp)
	if err != nil {
		d.Log.Error("failed to encode keygen response", "err", err)
		return
	}
	if err := conn.WriteMessage(data); err != nil {
		d.Log.Error("failed to send keygen response", "err", err)
	}
}

func (d *Dispatcher) keygen(ctx context.Context, req api.KeygenRequest) (*api.KeygenResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sealer, err := d.sealer(ctx, req.AWSRegion, req.Credentials)
	if err != nil {
		return nil, fmt.Errorf("configure sealer: %w", err)
	}
	return Keygen(ctx, sealer, d.Attester, d.Entropy, req.KMSKeyID, d.Log)
}

func (d *Dispatcher) sealer(ctx context.Context, region string, creds api.Credentials) (interfaces.Sealer, error) {
	cfg := sealing.Config{
		Region:          region,
		AccessKeyID:     creds.AWSKeyID,
		SecretAccessKey: creds.AWSSecretKey,
		SessionToken:    creds.AWSSessionToken,
		ProxyPort:       d.KMSProxyPort,
		Attester:        d.Attester,
		Entropy:         d.Entropy,
		Log:             d.Log,
	}
	if d.NewSealer != nil {
		return d.NewSealer(ctx, cfg)
	}
	return sealing.NewKMS(ctx, cfg)
}

func (d *Dispatcher) dialHost(port uint32) (net.Conn, error) {
	if d.DialHost != nil {
		return d.DialHost(port)
	}
	return transport.DialHost(port)
}
