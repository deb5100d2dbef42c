package api

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validStart() StartRequest {
	return StartRequest{
		ChainID:               "test-chain",
		EnclaveTendermintConn: 5050,
		EnclaveStatePort:      5051,
		SealedConsensusKey:    []byte("ciphertext"),
		AWSRegion:             "us-east-1",
	}
}

func TestStartRequestValidate(t *testing.T) {
	req := validStart()
	require.NoError(t, req.Validate(), "A complete start request should validate")

	missing := validStart()
	missing.ChainID = ""
	assert.Error(t, missing.Validate(), "Missing chain_id should be rejected")

	missing = validStart()
	missing.SealedConsensusKey = nil
	assert.Error(t, missing.Validate(), "Missing sealed key should be rejected")

	missing = validStart()
	missing.EnclaveStatePort = 0
	assert.Error(t, missing.Validate(), "Missing state port should be rejected")

	badPeer := validStart()
	badPeer.PeerID = "not-a-fingerprint"
	assert.Error(t, badPeer.Validate(), "Malformed peer_id should be rejected")

	goodPeer := validStart()
	goodPeer.PeerID = "0123456789abcdef0123456789abcdef01234567"
	assert.NoError(t, goodPeer.Validate(), "A 40-char hex peer_id should be accepted")
}

func TestKeygenRequestValidate(t *testing.T) {
	req := KeygenRequest{AWSRegion: "us-east-1", KMSKeyID: "abc"}
	require.NoError(t, req.Validate(), "A complete keygen request should validate")

	assert.Error(t, (&KeygenRequest{KMSKeyID: "abc"}).Validate(), "Missing region should be rejected")
	assert.Error(t, (&KeygenRequest{AWSRegion: "us-east-1"}).Validate(), "Missing key id should be rejected")
}

func TestRequestEnvelopeShape(t *testing.T) {
	data, err := json.Marshal(Request{Keygen: &KeygenRequest{
		AWSRegion: "us-east-1",
		KMSKeyID:  "abc",
	}})
	require.NoError(t, err, "Marshal should succeed")
	assert.JSONEq(t, `{"keygen":{"aws_region":"us-east-1","credentials":{"aws_key_id":"","aws_secret_key":""},"kms_key_id":"abc"}}`,
		string(data), "Keygen envelope should use the documented field names")

	var decoded Request
	require.NoError(t, json.Unmarshal(data, &decoded), "Unmarshal should succeed")
	require.NotNil(t, decoded.Keygen, "Keygen variant should be set")
	assert.Nil(t, decoded.Start, "Start variant should be unset")
}

func TestResponseEnvelopeShape(t *testing.T) {
	data, err := json.Marshal(Response{OK: &KeygenResult{
		EncryptedSecret: []byte{1, 2},
		PublicKey:       []byte{3, 4},
		AttestationDoc:  []byte{5, 6},
	}})
	require.NoError(t, err, "Marshal should succeed")

	expected := fmt.Sprintf(`{"ok":{"encrypted_secret":%q,"public_key":%q,"attestation_doc":%q}}`,
		base64.StdEncoding.EncodeToString([]byte{1, 2}),
		base64.StdEncoding.EncodeToString([]byte{3, 4}),
		base64.StdEncoding.EncodeToString([]byte{5, 6}))
	assert.JSONEq(t, expected, string(data), "Byte fields should encode as base64")

	failure, err := json.Marshal(Response{Error: "kms encrypt: denied"})
	require.NoError(t, err, "Marshal should succeed")
	assert.JSONEq(t, `{"error":"kms encrypt: denied"}`, string(failure), "Failures should carry only the message")
}
