package cryptoutils

// Zeroize overwrites b with zeros. The loop is kept free of anything the
// compiler could prove dead so the overwrite is not elided.
func Zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Secret owns a buffer of key material and guarantees it is scrubbed exactly
// once. Callers acquire the raw bytes with Bytes and arrange Destroy on every
// exit path, typically with defer immediately after construction.
type Secret struct {
	buf []byte
}

// NewSecret wraps buf, taking ownership. The caller must not retain other
// references to buf.
func NewSecret(buf []byte) *Secret {
	return &Secret{buf: buf}
}

// Bytes returns the wrapped buffer. The returned slice aliases the secret;
// it becomes all-zero once Destroy runs.
func (s *Secret) Bytes() []byte {
	return s.buf
}

// Destroy overwrites the buffer with zeros and drops it. Destroy is
// idempotent; calling it on an already destroyed Secret is a no-op.
func (s *Secret) Destroy() {
	Zeroize(s.buf)
	s.buf = nil
}
