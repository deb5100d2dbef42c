// Command helper is the host-side counterpart of the enclave signer.
//
// helper keygen proxies KMS over vsock, asks the enclave for a fresh sealed
// key, writes the sealed key and attestation document to disk, and verifies
// the attested claim against the returned public key.
//
// helper start runs the chain-state server, the privval and KMS proxies and
// the operational HTTP server, then launches the enclave signing session
// and supervises until SIGINT or SIGTERM.
package main
