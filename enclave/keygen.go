package enclave

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/ruteri/nitro-validator-signer/api"
	"github.com/ruteri/nitro-validator-signer/interfaces"
	"github.com/ruteri/nitro-validator-signer/sealing"
)

// keygenClaim is the user data bound into the keygen attestation: which
// public key was generated and which oracle key seals it. JSON encodes both
// as base64. Field order fixes the claim bytes.
type keygenClaim struct {
	PubKey []byte `json:"pubkey"`
	KeyID  []byte `json:"key_id"`
}

// Keygen generates a fresh consensus key, seals it under keyID and binds
// the result into an attestation document. The raw private key is scrubbed
// inside sealing.GenerateAndSeal on every path; only the sealed form and
// the public half reach the caller.
//
// The attestation request carries no nonce: a one-off keygen event is
// consumed immediately by the operator, so anti-replay binding adds
// nothing. Its value is "this enclave produced this sealed key".
func Keygen(ctx context.Context, sealer interfaces.Sealer, attester interfaces.AttestationProvider, entropy io.Reader, keyID string, log *slog.Logger) (*api.KeygenResult, error) {
	pub, sealed, err := sealing.GenerateAndSeal(ctx, sealer, entropy, keyID)
	if err != nil {
		return nil, err
	}

	claim, err := json.Marshal(keygenClaim{PubKey: pub, KeyID: []byte(keyID)})
	if err != nil {
		return nil, fmt.Errorf("encode keygen claim: %w", err)
	}

	doc, err := attester.Attest(interfaces.AttestationOptions{UserData: claim})
	if err != nil {
		return nil, fmt.Errorf("attest generated key: %w", err)
	}

	log.Info("generated and sealed fresh consensus key",
		slog.String("kms_key_id", keyID),
		slog.Int("attestation_bytes", len(doc)))
	return &api.KeygenResult{
		EncryptedSecret: sealed,
		PublicKey:       pub,
		AttestationDoc:  doc,
	}, nil
}
