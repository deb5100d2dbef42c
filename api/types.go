package api

import (
	"errors"
	"fmt"

	"github.com/ruteri/nitro-validator-signer/interfaces"
)

// Credentials is the AWS credential bundle the host passes into the enclave
// with each request. The enclave has no ambient AWS identity of its own.
type Credentials struct {
	AWSKeyID        string `json:"aws_key_id"`
	AWSSecretKey    string `json:"aws_secret_key"`
	AWSSessionToken string `json:"aws_session_token,omitempty"`
}

// StartRequest launches the long-lived signing session. It never produces a
// response frame: the session runs until the process is terminated.
type StartRequest struct {
	ChainID string `json:"chain_id"`

	// MaxHeight, when non-zero, refuses signatures above this height.
	MaxHeight int64 `json:"max_height,omitempty"`

	// EnclaveTendermintConn is the host vsock port the enclave dials to
	// reach the validator's privval endpoint.
	EnclaveTendermintConn uint32 `json:"enclave_tendermint_conn"`

	// PeerID is the expected validator fingerprint in hex. Empty means the
	// session runs with an unverified peer, which is logged as a warning.
	PeerID string `json:"peer_id,omitempty"`

	// SealedConsensusKey is the KMS ciphertext of the consensus seed.
	SealedConsensusKey interfaces.SealedSecret `json:"sealed_consensus_key"`

	// SealedIDKey optionally carries a separate sealed identity key used
	// only to authenticate the validator channel. Without it the channel
	// runs plain, with no identity guarantees.
	SealedIDKey interfaces.SealedSecret `json:"sealed_id_key,omitempty"`

	AWSRegion   string      `json:"aws_region"`
	Credentials Credentials `json:"credentials"`

	// EnclaveStatePort is the host vsock port of the chain-state oracle.
	EnclaveStatePort uint32 `json:"enclave_state_port"`
}

// Validate checks the request before any key material is unsealed.
func (r *StartRequest) Validate() error {
	if r.ChainID == "" {
		return errors.New("chain_id is required")
	}
	if r.EnclaveTendermintConn == 0 {
		return errors.New("enclave_tendermint_conn is required")
	}
	if r.EnclaveStatePort == 0 {
		return errors.New("enclave_state_port is required")
	}
	if len(r.SealedConsensusKey) == 0 {
		return errors.New("sealed_consensus_key is required")
	}
	if r.AWSRegion == "" {
		return errors.New("aws_region is required")
	}
	if r.PeerID != "" {
		if _, err := interfaces.ParsePeerID(r.PeerID); err != nil {
			return fmt.Errorf("peer_id: %w", err)
		}
	}
	return nil
}

// KeygenRequest asks the enclave to generate a fresh consensus key, seal it
// under the named KMS key and attest to the result.
type KeygenRequest struct {
	AWSRegion   string      `json:"aws_region"`
	Credentials Credentials `json:"credentials"`
	KMSKeyID    string      `json:"kms_key_id"`
}

// Validate checks the request before key generation.
func (r *KeygenRequest) Validate() error {
	if r.AWSRegion == "" {
		return errors.New("aws_region is required")
	}
	if r.KMSKeyID == "" {
		return errors.New("kms_key_id is required")
	}
	return nil
}

// Request is the host-to-enclave control envelope. Exactly one variant is
// set.
type Request struct {
	Start  *StartRequest  `json:"start,omitempty"`
	Keygen *KeygenRequest `json:"keygen,omitempty"`
}

// KeygenResult is the successful keygen payload: the sealed key, its public
// half, and the attestation document binding the two to this enclave.
type KeygenResult struct {
	EncryptedSecret interfaces.SealedSecret        `json:"encrypted_secret"`
	PublicKey       []byte                         `json:"public_key"`
	AttestationDoc  interfaces.AttestationDocument `json:"attestation_doc"`
}

// Response is the enclave-to-host control envelope, produced for keygen
// only. Exactly one of OK and Error is set.
type Response struct {
	OK    *KeygenResult `json:"ok,omitempty"`
	Error string        `json:"error,omitempty"`
}
