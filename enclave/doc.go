// Package enclave contains the enclave-resident control flow of the signer:
// the entry dispatcher, the keygen flow, and the session driver.
//
// # Lifecycle
//
// The enclave binary accepts host connections on the control vsock port and
// hands each to Dispatcher.Serve, which reads exactly one request frame.
// A keygen request runs generate-seal-attest and answers with one response
// frame. A start request unseals the key material, loads the persisted
// signing state, and enters the session driver, which never returns.
//
// # Session driver
//
// Driver is a two-state machine: Connecting retries channel establishment
// forever with a fixed one second delay, Running serves validator requests
// until the channel fails, then transitions back to Connecting. The signing
// session and its state survive every reconnect; only the channel is
// replaced. There is no terminal state. The process services one validator
// at a time, so the driver runs on a single goroutine with blocking I/O
// throughout.
//
// # Error split
//
// Connection errors (dial, handshake, peer mismatch) are retried by the
// driver. Sealing-oracle and invalid-key errors on the start path end the
// process: repeated denial means misconfiguration, not transience. Every
// keygen failure becomes a response message to the host.
package enclave
