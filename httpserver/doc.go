// Package httpserver implements the helper's operational HTTP server.
//
// It exposes liveness (/livez), readiness (/readyz), drain control
// (/drain, /undrain) and a status document (/status) with the last
// persisted signing height and proxy connection counts. Readiness starts
// false and is flipped by the helper once the enclave has accepted the
// start request. The server carries no signing traffic; that runs over
// vsock.
package httpserver
