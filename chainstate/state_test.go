package chainstate

import (
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/nitro-validator-signer/transport"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestStateCompareHRS(t *testing.T) {
	base := State{Height: 10, Round: 2, Step: StepPrevote}

	assert.Equal(t, 0, base.CompareHRS(base), "Equal positions should compare as 0")
	assert.Equal(t, -1, base.CompareHRS(State{Height: 11}), "Lower height should compare as behind")
	assert.Equal(t, 1, base.CompareHRS(State{Height: 9, Round: 99, Step: StepPrecommit}), "Height dominates round and step")
	assert.Equal(t, -1, base.CompareHRS(State{Height: 10, Round: 3}), "Lower round should compare as behind at equal height")
	assert.Equal(t, 1, base.CompareHRS(State{Height: 10, Round: 2, Step: StepPropose}), "Higher step should compare as ahead at equal height and round")
}

func TestClientLoadsInitialStateAndPersists(t *testing.T) {
	enclaveEnd, hostEnd := net.Pipe()
	host := transport.NewPlainConn(hostEnd)

	initial := State{Height: 42, Round: 1, Step: StepPrecommit, BlockID: "abc"}
	go func() {
		data, _ := json.Marshal(initial)
		_ = host.WriteMessage(data)
	}()

	client, loaded, err := NewClient(transport.NewPlainConn(enclaveEnd), testLogger())
	require.NoError(t, err, "NewClient should load the initial state")
	assert.Equal(t, initial, loaded, "Initial state should match what the oracle sent")

	update := State{Height: 43, Round: 0, Step: StepPropose}
	go func() {
		_ = client.Persist(update)
	}()

	raw, err := host.ReadMessage()
	require.NoError(t, err, "Host should receive the update")
	var got State
	require.NoError(t, json.Unmarshal(raw, &got), "Update should be valid JSON")
	assert.Equal(t, update, got, "Persisted state should round-trip")
}

func TestServerServesZeroStateWithoutFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	srv, err := NewServer(path, testLogger())
	require.NoError(t, err, "A missing state file should not be an error")
	assert.Zero(t, srv.LastHeight(), "Zero state should report height 0")
}

func TestServerPersistsUpdatesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	srv, err := NewServer(path, testLogger())
	require.NoError(t, err, "NewServer should succeed")

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err, "Failed to open test listener")
	defer l.Close()
	go func() {
		_ = srv.Serve(l)
	}()

	raw, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err, "Failed to dial test server")
	client, initial, err := NewClient(transport.NewPlainConn(raw), testLogger())
	require.NoError(t, err, "Client should connect and load state")
	assert.Equal(t, State{}, initial, "Fresh server should serve the zero state")

	update := State{Height: 100, Round: 0, Step: StepPrecommit, BlockID: "deadbeef"}
	require.NoError(t, client.Persist(update), "Persist should succeed")

	require.Eventually(t, func() bool {
		return srv.LastHeight() == 100
	}, time.Second, 10*time.Millisecond, "Server should record the new height")

	data, err := os.ReadFile(path)
	require.NoError(t, err, "State file should exist after an update")
	var onDisk State
	require.NoError(t, json.Unmarshal(data, &onDisk), "State file should be valid JSON")
	assert.Equal(t, update, onDisk, "On-disk state should match the update")

	// A new server over the same file resumes from the persisted state.
	client.Close()
	srv2, err := NewServer(path, testLogger())
	require.NoError(t, err, "Reloading the state file should succeed")
	assert.Equal(t, int64(100), srv2.LastHeight(), "Reloaded server should resume from the persisted height")
}
