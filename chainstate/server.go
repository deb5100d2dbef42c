package chainstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/atomic"

	"github.com/ruteri/nitro-validator-signer/transport"
)

// Server is the host-side state oracle. It serves the last persisted state
// to each connecting enclave and persists every update it receives.
type Server struct {
	path   string
	log    *slog.Logger
	height atomic.Int64

	mu    sync.Mutex
	state State
}

// NewServer loads the state file at path, starting from the zero state if
// the file does not exist yet.
func NewServer(path string, log *slog.Logger) (*Server, error) {
	s := &Server{path: path, log: log}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Info("no state file yet, starting from zero state", slog.String("path", path))
	case err != nil:
		return nil, fmt.Errorf("read state file: %w", err)
	default:
		if err := json.Unmarshal(data, &s.state); err != nil {
			return nil, fmt.Errorf("decode state file: %w", err)
		}
	}

	s.height.Store(s.state.Height)
	return s, nil
}

// Serve accepts enclave connections until the listener closes. Connections
// are handled one at a time; a single enclave holds its connection for the
// lifetime of the signing session.
func (s *Server) Serve(l net.Listener) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			return fmt.Errorf("accept state connection: %w", err)
		}
		if err := s.handle(transport.NewPlainConn(conn)); err != nil {
			s.log.Error("state connection failed", "err", err)
		}
	}
}

// LastHeight reports the height of the most recent persisted state.
func (s *Server) LastHeight() int64 {
	return s.height.Load()
}

func (s *Server) handle(conn *transport.PlainConn) error {
	defer conn.Close()

	s.mu.Lock()
	initial, err := json.Marshal(s.state)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := conn.WriteMessage(initial); err != nil {
		return fmt.Errorf("send initial state: %w", err)
	}

	for {
		raw, err := conn.ReadMessage()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read state update: %w", err)
		}

		var update State
		if err := json.Unmarshal(raw, &update); err != nil {
			return fmt.Errorf("decode state update: %w", err)
		}
		if err := s.store(update); err != nil {
			return err
		}
	}
}

// store persists the update atomically: write a temp file in the same
// directory, then rename over the previous state.
func (s *Server) store(update State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("encode state update: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace state file: %w", err)
	}

	s.state = update
	s.height.Store(update.Height)
	s.log.Debug("persisted signing state",
		slog.Int64("height", update.Height),
		slog.Int64("round", update.Round),
		slog.Int("step", int(update.Step)))
	return nil
}
