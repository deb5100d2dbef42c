package cryptoutils

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZeroize(t *testing.T) {
	buf := []byte{0xde, 0xad, 0xbe, 0xef}
	Zeroize(buf)
	assert.Equal(t, make([]byte, 4), buf, "Buffer should be all zeros after Zeroize")

	// Zero-length and nil buffers must not panic
	Zeroize(nil)
	Zeroize([]byte{})
}

func TestSecretDestroy(t *testing.T) {
	raw := bytes.Repeat([]byte{0xa5}, 32)
	s := NewSecret(raw)
	assert.Equal(t, raw, s.Bytes(), "Bytes should return the wrapped buffer")

	s.Destroy()
	assert.Equal(t, make([]byte, 32), raw, "Underlying buffer should be scrubbed after Destroy")
	assert.Nil(t, s.Bytes(), "Bytes should return nil after Destroy")

	// Double destroy is a no-op
	s.Destroy()
	assert.Nil(t, s.Bytes(), "Secret should stay destroyed")
}

func TestSecretDestroyOnErrorPath(t *testing.T) {
	sentinel := bytes.Repeat([]byte{0x42}, 32)

	err := func() error {
		s := NewSecret(sentinel)
		defer s.Destroy()
		return assert.AnError
	}()

	assert.Error(t, err, "Helper should propagate the error")
	assert.Equal(t, make([]byte, 32), sentinel, "Buffer should be scrubbed on the error path too")
}
