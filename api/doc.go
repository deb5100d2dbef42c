// Package api defines the host-to-enclave control protocol of the signer.
//
// The protocol is deliberately small: the host sends exactly one JSON
// request envelope per connection, length-prefixed by the shared framing,
// and the enclave either launches the signing session (start, no response)
// or generates and seals a fresh key (keygen, exactly one response frame).
//
// # Request envelope
//
//	{"start": {"chain_id": ..., "sealed_consensus_key": ..., ...}}
//	{"keygen": {"aws_region": ..., "credentials": ..., "kms_key_id": ...}}
//
// # Response envelope (keygen only)
//
//	{"ok": {"encrypted_secret": ..., "public_key": ..., "attestation_doc": ...}}
//	{"error": "human readable failure"}
//
// Byte fields are base64 per encoding/json convention. Client implements
// the host side of both exchanges over vsock.
package api
