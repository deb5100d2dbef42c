package privval

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ruteri/nitro-validator-signer/chainstate"
	"github.com/ruteri/nitro-validator-signer/interfaces"
)

// Config scopes a signing session to one chain.
type Config struct {
	ChainID string

	// MaxHeight, when non-zero, refuses signatures above this height.
	MaxHeight int64
}

// StateWriter persists signing state advances. chainstate.Client implements
// it against the host state oracle.
type StateWriter interface {
	Persist(state chainstate.State) error
}

// Session owns the sign and double-sign-prevention logic for one validator
// connection cycle. The session and its state survive reconnects; only the
// connection is replaced.
type Session struct {
	cfg    Config
	conn   interfaces.Connection
	signer ed25519.PrivateKey
	state  chainstate.State
	store  StateWriter
	log    *slog.Logger
}

// New builds a session around a verified connection, the unsealed signing
// key, and the state loaded from the oracle.
func New(cfg Config, conn interfaces.Connection, signer ed25519.PrivateKey, state chainstate.State, store StateWriter, log *slog.Logger) *Session {
	return &Session{
		cfg:    cfg,
		conn:   conn,
		signer: signer,
		state:  state,
		store:  store,
		log:    log,
	}
}

// ResetConnection swaps in a freshly established channel after a reconnect.
// Signing state is untouched.
func (s *Session) ResetConnection(conn interfaces.Connection) {
	s.conn = conn
}

// RequestLoop serves validator requests until the connection or the state
// oracle fails. Refused requests (double-sign attempts, wrong chain) get an
// error reply and the loop continues; only I/O failures end it.
func (s *Session) RequestLoop() error {
	for {
		raw, err := s.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read request: %w", err)
		}

		var req Request
		if err := json.Unmarshal(raw, &req); err != nil {
			return fmt.Errorf("decode request: %w", err)
		}

		resp, err := s.handle(req)
		if err != nil {
			return err
		}

		data, err := json.Marshal(resp)
		if err != nil {
			return fmt.Errorf("encode response: %w", err)
		}
		if err := s.conn.WriteMessage(data); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
}

func (s *Session) handle(req Request) (Response, error) {
	switch {
	case req.Ping != nil:
		return Response{Pong: true}, nil
	case req.ShowPubKey != nil:
		return Response{PubKey: s.signer.Public().(ed25519.PublicKey)}, nil
	case req.SignVote != nil:
		return s.sign(*req.SignVote)
	case req.SignProposal != nil:
		proposal := *req.SignProposal
		proposal.Step = chainstate.StepPropose
		return s.sign(proposal)
	default:
		return Response{Error: "unknown request"}, nil
	}
}

// sign enforces the safety checks, persists the new position, then releases
// the signature. Persisting first means a crash can at worst lose a
// signature, never double-produce one.
func (s *Session) sign(req SignRequest) (Response, error) {
	if req.ChainID != s.cfg.ChainID {
		return Response{Error: fmt.Sprintf("chain id mismatch: got %q, want %q", req.ChainID, s.cfg.ChainID)}, nil
	}
	if s.cfg.MaxHeight > 0 && req.Height > s.cfg.MaxHeight {
		s.log.Warn("refusing signature above max height",
			slog.Int64("height", req.Height), slog.Int64("max_height", s.cfg.MaxHeight))
		return Response{Error: fmt.Sprintf("height %d exceeds max height %d", req.Height, s.cfg.MaxHeight)}, nil
	}
	if req.Step < chainstate.StepPropose || req.Step > chainstate.StepPrecommit {
		return Response{Error: fmt.Sprintf("invalid step %d", req.Step)}, nil
	}

	next := chainstate.State{Height: req.Height, Round: req.Round, Step: req.Step, BlockID: req.BlockID}
	switch cmp := next.CompareHRS(s.state); {
	case cmp < 0:
		return Response{Error: fmt.Sprintf("sign request regresses state: have %d/%d/%d, got %d/%d/%d",
			s.state.Height, s.state.Round, s.state.Step, next.Height, next.Round, next.Step)}, nil
	case cmp == 0 && next.BlockID != s.state.BlockID:
		return Response{Error: fmt.Sprintf("double sign attempt at %d/%d/%d: conflicting block id",
			next.Height, next.Round, next.Step)}, nil
	case cmp > 0:
		if err := s.store.Persist(next); err != nil {
			return Response{}, fmt.Errorf("persist state before signing: %w", err)
		}
		s.state = next
	}
	// cmp == 0 with a matching block id re-signs the identical payload;
	// ed25519 is deterministic so the validator gets the same signature.

	payload, err := req.SignBytes()
	if err != nil {
		return Response{}, fmt.Errorf("encode sign payload: %w", err)
	}
	return Response{Signature: ed25519.Sign(s.signer, payload)}, nil
}
