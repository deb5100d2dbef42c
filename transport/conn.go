package transport

import (
	"net"

	"github.com/ruteri/nitro-validator-signer/interfaces"
)

// PlainConn frames messages over a raw stream with no handshake and no
// identity guarantees of any kind.
type PlainConn struct {
	conn net.Conn
}

var _ interfaces.Connection = (*PlainConn)(nil)

// NewPlainConn wraps an established stream in the framed transport.
func NewPlainConn(conn net.Conn) *PlainConn {
	return &PlainConn{conn: conn}
}

func (c *PlainConn) ReadMessage() ([]byte, error) {
	return ReadMessage(c.conn)
}

func (c *PlainConn) WriteMessage(data []byte) error {
	return WriteMessage(c.conn, data)
}

func (c *PlainConn) Close() error {
	return c.conn.Close()
}
