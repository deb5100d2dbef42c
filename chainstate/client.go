package chainstate

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ruteri/nitro-validator-signer/interfaces"
	"github.com/ruteri/nitro-validator-signer/transport"
)

// Client is the enclave-side handle to the host state oracle. It loads the
// initial state once at session start and pushes updates as signing
// progresses.
type Client struct {
	conn interfaces.Connection
	log  *slog.Logger
}

// Dial connects to the host state port and loads the initial state.
func Dial(port uint32, log *slog.Logger) (*Client, State, error) {
	raw, err := transport.DialHost(port)
	if err != nil {
		return nil, State{}, fmt.Errorf("connect state oracle: %w", err)
	}
	return NewClient(transport.NewPlainConn(raw), log)
}

// NewClient wraps an established connection to the state oracle. The oracle
// sends the last persisted state as its first frame; NewClient blocks until
// it arrives.
func NewClient(conn interfaces.Connection, log *slog.Logger) (*Client, State, error) {
	raw, err := conn.ReadMessage()
	if err != nil {
		return nil, State{}, fmt.Errorf("load initial state: %w", err)
	}

	var initial State
	if err := json.Unmarshal(raw, &initial); err != nil {
		return nil, State{}, fmt.Errorf("decode initial state: %w", err)
	}

	log.Info("loaded initial signing state",
		slog.Int64("height", initial.Height),
		slog.Int64("round", initial.Round),
		slog.Int("step", int(initial.Step)))
	return &Client{conn: conn, log: log}, initial, nil
}

// Persist pushes an updated state document to the host. It must complete
// before the signature for that position is released.
func (c *Client) Persist(state State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := c.conn.WriteMessage(data); err != nil {
		return fmt.Errorf("push state: %w", err)
	}
	return nil
}

// Close closes the oracle connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
