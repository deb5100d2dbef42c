package transport

import (
	"bytes"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadMessage(t *testing.T) {
	var buf bytes.Buffer

	err := WriteMessage(&buf, []byte("hello"))
	require.NoError(t, err, "WriteMessage should succeed")
	assert.Equal(t, []byte{0x00, 0x05, 'h', 'e', 'l', 'l', 'o'}, buf.Bytes(), "Frame should be a big-endian u16 prefix plus payload")

	msg, err := ReadMessage(&buf)
	require.NoError(t, err, "ReadMessage should succeed")
	assert.Equal(t, []byte("hello"), msg, "Payload should round-trip")
}

func TestWriteMessageEmptyPayload(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, WriteMessage(&buf, nil), "Empty payloads are valid frames")

	msg, err := ReadMessage(&buf)
	require.NoError(t, err, "ReadMessage should succeed")
	assert.Empty(t, msg, "Payload should be empty")
}

func TestWriteMessageTooLarge(t *testing.T) {
	var buf bytes.Buffer

	err := WriteMessage(&buf, make([]byte, MaxMessageSize+1))
	assert.ErrorIs(t, err, ErrMessageTooLarge, "Oversized payloads must be rejected")
	assert.Zero(t, buf.Len(), "Nothing should be written for a rejected payload")

	require.NoError(t, WriteMessage(&buf, make([]byte, MaxMessageSize)), "Maximum-size payload should be accepted")
}

func TestReadMessageTruncatedFrame(t *testing.T) {
	// Prefix says 10 bytes, stream carries 3.
	r := bytes.NewReader([]byte{0x00, 0x0a, 1, 2, 3})

	_, err := ReadMessage(r)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF, "A stream ending mid-frame should be an error")
}

func TestReadMessageEmptyStream(t *testing.T) {
	_, err := ReadMessage(bytes.NewReader(nil))
	assert.ErrorIs(t, err, io.EOF, "An empty stream should yield EOF")
}

func TestPlainConnRoundTrip(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	c := NewPlainConn(client)
	s := NewPlainConn(server)

	go func() {
		_ = c.WriteMessage([]byte(`{"keygen":{}}`))
	}()

	msg, err := s.ReadMessage()
	require.NoError(t, err, "ReadMessage should succeed")
	assert.Equal(t, []byte(`{"keygen":{}}`), msg, "Message should arrive unchanged")

	require.NoError(t, s.Close(), "Close should succeed")
	_, err = s.ReadMessage()
	assert.Error(t, err, "Reads after close should fail")
}
