package enclave

import (
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/nitro-validator-signer/interfaces"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// blockingSession signals every RequestLoop entry and returns whatever is
// pushed into loopErrs, blocking until then.
type blockingSession struct {
	mu       sync.Mutex
	conns    []interfaces.Connection
	entered  chan struct{}
	loopErrs chan error
}

func newBlockingSession() *blockingSession {
	return &blockingSession{
		entered:  make(chan struct{}, 16),
		loopErrs: make(chan error),
	}
}

func (s *blockingSession) ResetConnection(conn interfaces.Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns = append(s.conns, conn)
}

func (s *blockingSession) RequestLoop() error {
	s.entered <- struct{}{}
	return <-s.loopErrs
}

func (s *blockingSession) connections() []interfaces.Connection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]interfaces.Connection(nil), s.conns...)
}

func waitFor(t *testing.T, ch chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestDriverRetriesUntilEstablishSucceeds(t *testing.T) {
	const failures = 5

	var attempts int
	var slept []time.Duration
	session := newBlockingSession()

	driver := &Driver{
		Establish: func() (interfaces.Connection, error) {
			attempts++
			if attempts <= failures {
				return nil, errors.New("connection refused")
			}
			return &interfaces.MockConnection{}, nil
		},
		Session: session,
		Sleep:   func(d time.Duration) { slept = append(slept, d) },
		Log:     testLogger(),
	}
	go driver.Run()

	waitFor(t, session.entered, "the session to start running")

	assert.Equal(t, failures+1, attempts, "Establish should be attempted once per failure plus the success")
	require.Len(t, slept, failures, "Each failure should be followed by exactly one sleep")
	for _, d := range slept {
		assert.Equal(t, retryInterval, d, "Retry delay should be the documented interval")
	}
	require.Len(t, session.connections(), 1, "The session should have received exactly one connection")
}

func TestDriverReconnectsAfterSessionError(t *testing.T) {
	session := newBlockingSession()

	var conns []*interfaces.MockConnection
	driver := &Driver{
		Establish: func() (interfaces.Connection, error) {
			conn := &interfaces.MockConnection{}
			conns = append(conns, conn)
			return conn, nil
		},
		Session: session,
		Sleep:   func(time.Duration) {},
		Log:     testLogger(),
	}
	go driver.Run()

	waitFor(t, session.entered, "the first running period")
	session.loopErrs <- errors.New("validator dropped the connection")
	waitFor(t, session.entered, "the second running period")

	got := session.connections()
	require.Len(t, got, 2, "Each reconnect should hand the session a fresh connection")
	assert.NotSame(t, got[0], got[1], "The channel should be replaced wholesale, not reused")
	assert.True(t, conns[0].Closed, "The failed channel should be closed before reconnecting")
	assert.False(t, conns[1].Closed, "The live channel should stay open")
}
