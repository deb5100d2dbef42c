package hostutils

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// coseSign1 is the untagged COSE_Sign1 array the NSM wraps attestation
// payloads in. Signature verification is the consumer's job; the helper
// decodes for display only.
type coseSign1 struct {
	_           struct{} `cbor:",toarray"`
	Protected   []byte
	Unprotected cbor.RawMessage
	Payload     []byte
	Signature   []byte
}

// AttestationPayload is the decoded body of a Nitro attestation document.
type AttestationPayload struct {
	ModuleID  string          `cbor:"module_id"`
	Timestamp uint64          `cbor:"timestamp"`
	Digest    string          `cbor:"digest"`
	PCRs      map[uint][]byte `cbor:"pcrs"`
	UserData  []byte          `cbor:"user_data"`
	Nonce     []byte          `cbor:"nonce"`
	PublicKey []byte          `cbor:"public_key"`
}

// DecodeAttestation parses a raw attestation document into its payload.
// It performs no signature or certificate chain verification.
func DecodeAttestation(doc []byte) (*AttestationPayload, error) {
	var outer coseSign1
	if err := cbor.Unmarshal(doc, &outer); err != nil {
		return nil, fmt.Errorf("decode cose envelope: %w", err)
	}

	var payload AttestationPayload
	if err := cbor.Unmarshal(outer.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode attestation payload: %w", err)
	}
	return &payload, nil
}

// PCR returns the named platform configuration register, or nil when the
// document does not carry it.
func (p *AttestationPayload) PCR(index uint) []byte {
	return p.PCRs[index]
}
