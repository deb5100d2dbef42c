// Command enclave is the in-enclave signer binary. It listens on the
// control vsock port, dispatches start and keygen requests, and exits only
// on listener failure or a fatal start error.
package main
