package interfaces

import (
	"context"
	"errors"
	"io"
	"sync"
)

// MockSealer is a test double for Sealer. Unseal returns UnsealResult (or
// UnsealErr), Seal returns SealResult (or SealErr) and records its inputs.
type MockSealer struct {
	UnsealResult []byte
	UnsealErr    error
	SealResult   SealedSecret
	SealErr      error

	UnsealedCiphertexts []SealedSecret
	SealedKeyIDs        []string
	SealedPlaintexts    [][]byte
}

func (m *MockSealer) Unseal(_ context.Context, ciphertext SealedSecret) ([]byte, error) {
	m.UnsealedCiphertexts = append(m.UnsealedCiphertexts, ciphertext)
	if m.UnsealErr != nil {
		return nil, m.UnsealErr
	}
	// Callers scrub the returned buffer, so hand out a copy.
	out := make([]byte, len(m.UnsealResult))
	copy(out, m.UnsealResult)
	return out, nil
}

func (m *MockSealer) Seal(_ context.Context, keyID string, plaintext []byte) (SealedSecret, error) {
	cp := make([]byte, len(plaintext))
	copy(cp, plaintext)
	m.SealedKeyIDs = append(m.SealedKeyIDs, keyID)
	m.SealedPlaintexts = append(m.SealedPlaintexts, cp)
	if m.SealErr != nil {
		return nil, m.SealErr
	}
	return m.SealResult, nil
}

// MockAttestationProvider is a test double for AttestationProvider. It
// records the options of the last request.
type MockAttestationProvider struct {
	Document AttestationDocument
	Err      error

	LastOptions *AttestationOptions
}

func (m *MockAttestationProvider) Attest(opts AttestationOptions) (AttestationDocument, error) {
	m.LastOptions = &opts
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Document, nil
}

// MockConnection is a scriptable Connection. Reads pop from Incoming, writes
// append to Outgoing.
type MockConnection struct {
	mu       sync.Mutex
	Incoming [][]byte
	Outgoing [][]byte
	ReadErr  error
	WriteErr error
	Closed   bool
}

func (m *MockConnection) ReadMessage() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	if len(m.Incoming) == 0 {
		return nil, io.EOF
	}
	msg := m.Incoming[0]
	m.Incoming = m.Incoming[1:]
	return msg, nil
}

func (m *MockConnection) WriteMessage(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.Outgoing = append(m.Outgoing, cp)
	return nil
}

func (m *MockConnection) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Closed {
		return errors.New("already closed")
	}
	m.Closed = true
	return nil
}
