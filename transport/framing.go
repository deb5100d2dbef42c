// Package transport implements the framed byte transport shared by the host
// control socket, the chain state socket, and the validator channel.
//
// Every message is a 2-byte big-endian length prefix followed by that many
// payload bytes. The 16-bit prefix caps payloads at 65535 bytes, which is
// ample for the JSON control envelopes this system exchanges.
package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxMessageSize is the largest payload a 16-bit length prefix can describe.
const MaxMessageSize = 65535

// ErrMessageTooLarge is returned when a payload does not fit in one frame.
var ErrMessageTooLarge = errors.New("transport: message exceeds 16-bit frame limit")

// WriteMessage writes data to w as one length-prefixed frame.
func WriteMessage(w io.Writer, data []byte) error {
	if len(data) > MaxMessageSize {
		return ErrMessageTooLarge
	}

	frame := make([]byte, 2+len(data))
	binary.BigEndian.PutUint16(frame[:2], uint16(len(data)))
	copy(frame[2:], data)

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// ReadMessage reads one length-prefixed frame from r. A stream that ends
// mid-frame yields an error, not a short message.
func ReadMessage(r io.Reader) ([]byte, error) {
	var prefix [2]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, fmt.Errorf("read frame prefix: %w", err)
	}

	payload := make([]byte, binary.BigEndian.Uint16(prefix[:]))
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read frame payload: %w", err)
	}
	return payload, nil
}
