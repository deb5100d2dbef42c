package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T, status StatusFunc) *Server {
	t.Helper()
	if status == nil {
		status = func() Status { return Status{} }
	}
	return New(&HTTPServerConfig{
		ListenAddr:               "127.0.0.1:0",
		Log:                      slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
		DrainDuration:            time.Millisecond,
		GracefulShutdownDuration: time.Second,
	}, status)
}

func get(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestLiveness(t *testing.T) {
	srv := testServer(t, nil)
	rec := get(t, srv.getRouter(), "/livez")
	assert.Equal(t, http.StatusOK, rec.Code, "Liveness should always succeed")
}

func TestReadinessFollowsStartAcceptance(t *testing.T) {
	srv := testServer(t, nil)
	router := srv.getRouter()

	assert.Equal(t, http.StatusServiceUnavailable, get(t, router, "/readyz").Code,
		"The helper is not ready before the enclave accepts the start request")

	srv.SetReady(true)
	assert.Equal(t, http.StatusOK, get(t, router, "/readyz").Code,
		"The helper is ready once the start request is accepted")
}

func TestDrainUndrain(t *testing.T) {
	srv := testServer(t, nil)
	router := srv.getRouter()
	srv.SetReady(true)

	rec := get(t, router, "/drain")
	assert.Equal(t, http.StatusOK, rec.Code, "Drain should succeed")
	assert.Contains(t, rec.Body.String(), "draining", "Drain should report its state")
	assert.Equal(t, http.StatusServiceUnavailable, get(t, router, "/readyz").Code,
		"Draining should make the server not ready")

	rec = get(t, router, "/drain")
	assert.Contains(t, rec.Body.String(), "already draining", "A second drain should be a no-op")

	rec = get(t, router, "/undrain")
	assert.Equal(t, http.StatusOK, rec.Code, "Undrain should succeed")
	assert.Equal(t, http.StatusOK, get(t, router, "/readyz").Code,
		"Undraining should restore readiness")
}

func TestStatusDocument(t *testing.T) {
	srv := testServer(t, func() Status {
		return Status{StateHeight: 1042, PrivvalConnections: 1, KMSConnections: 2}
	})
	srv.SetReady(true)

	rec := get(t, srv.getRouter(), "/status")
	require.Equal(t, http.StatusOK, rec.Code, "Status should succeed")

	var status Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status), "Status should decode")
	assert.True(t, status.Ready, "Status should reflect readiness")
	assert.Equal(t, int64(1042), status.StateHeight, "Status should carry the state height")
	assert.Equal(t, int64(1), status.PrivvalConnections, "Status should carry the privval connection count")
}
