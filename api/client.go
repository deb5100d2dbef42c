package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"github.com/mdlayher/vsock"

	"github.com/ruteri/nitro-validator-signer/transport"
)

// Client is the host-side handle to the enclave control port. Each call
// opens a fresh vsock connection and performs one framed exchange; the
// enclave dispatches one request per accepted connection.
type Client struct {
	dial func() (net.Conn, error)
}

// NewClient builds a client for the enclave at the given context id and
// control port.
func NewClient(cid, port uint32) *Client {
	return &Client{dial: func() (net.Conn, error) {
		return vsock.Dial(cid, port, nil)
	}}
}

// NewClientWithDialer builds a client over a custom dialer, used by tests
// and by deployments that front the enclave with a unix socket.
func NewClientWithDialer(dial func() (net.Conn, error)) *Client {
	return &Client{dial: dial}
}

// Keygen sends a keygen request and waits for the single response frame. An
// error response from the enclave is returned as an error.
func (c *Client) Keygen(req KeygenRequest) (*KeygenResult, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid keygen request: %w", err)
	}

	conn, err := c.connect()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := c.send(conn, Request{Keygen: &req}); err != nil {
		return nil, err
	}

	raw, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("read keygen response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode keygen response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("enclave keygen failed: %s", resp.Error)
	}
	if resp.OK == nil {
		return nil, errors.New("keygen response carries neither result nor error")
	}
	return resp.OK, nil
}

// Start sends a start request. The enclave never answers it; a successful
// send means the signing session is launching.
func (c *Client) Start(req StartRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid start request: %w", err)
	}

	conn, err := c.connect()
	if err != nil {
		return err
	}
	defer conn.Close()

	return c.send(conn, Request{Start: &req})
}

func (c *Client) connect() (*transport.PlainConn, error) {
	raw, err := c.dial()
	if err != nil {
		return nil, fmt.Errorf("connect enclave control port: %w", err)
	}
	return transport.NewPlainConn(raw), nil
}

func (c *Client) send(conn *transport.PlainConn, req Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	if err := conn.WriteMessage(data); err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	return nil
}
