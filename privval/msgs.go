package privval

import "encoding/json"

// Request is one validator request. Exactly one variant is set.
type Request struct {
	Ping         *PingRequest   `json:"ping,omitempty"`
	ShowPubKey   *PubKeyRequest `json:"show_pubkey,omitempty"`
	SignVote     *SignRequest   `json:"sign_vote,omitempty"`
	SignProposal *SignRequest   `json:"sign_proposal,omitempty"`
}

// PingRequest is a liveness probe.
type PingRequest struct{}

// PubKeyRequest asks for the consensus public key.
type PubKeyRequest struct{}

// SignRequest asks for a signature at a consensus position. Step carries the
// vote phase for sign_vote and is ignored for sign_proposal.
type SignRequest struct {
	ChainID string `json:"chain_id"`
	Height  int64  `json:"height"`
	Round   int64  `json:"round"`
	Step    int8   `json:"step"`
	BlockID string `json:"block_id"`
}

// SignBytes returns the canonical byte representation that is signed. Struct
// field order fixes the encoding, so equal requests sign equal bytes.
func (r SignRequest) SignBytes() ([]byte, error) {
	return json.Marshal(r)
}

// Response answers one Request. Refusals carry Error and no signature.
type Response struct {
	Pong      bool   `json:"pong,omitempty"`
	PubKey    []byte `json:"pub_key,omitempty"`
	Signature []byte `json:"signature,omitempty"`
	Error     string `json:"error,omitempty"`
}
