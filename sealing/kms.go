package sealing

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/austinast/nitro-enclaves-sdk-go/crypto/cms"

	"github.com/ruteri/nitro-validator-signer/interfaces"
	"github.com/ruteri/nitro-validator-signer/transport"
)

// recipientKeyBits sizes the RSA key KMS encrypts responses to. KMS supports
// 2048, 3072 and 4096 bit recipient keys; 2048 keeps attestation documents
// small.
const recipientKeyBits = 2048

// Config carries everything the KMS sealer needs. Credentials arrive in the
// host request envelope; the enclave has no ambient AWS identity.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// ProxyPort is the vsock port of the host-side TCP proxy in front of
	// the regional KMS endpoint. TLS terminates inside the enclave, the
	// proxy only shuffles bytes.
	ProxyPort uint32

	// Attester binds each Decrypt call to this enclave's identity.
	Attester interfaces.AttestationProvider

	// Entropy seeds the recipient key. Inside the enclave this is the NSM
	// random source.
	Entropy io.Reader

	Log *slog.Logger
}

// KMS implements interfaces.Sealer against AWS KMS. Unseal uses the Nitro
// recipient flow: the request carries an attestation document covering a
// fresh RSA public key, and KMS returns the plaintext wrapped to that key
// instead of in the clear, so only this enclave can recover it.
type KMS struct {
	client       *kms.Client
	attester     interfaces.AttestationProvider
	recipientKey *rsa.PrivateKey
	log          *slog.Logger
}

var _ interfaces.Sealer = (*KMS)(nil)

// NewKMS builds the sealer: generates the recipient RSA key and configures
// an AWS client whose transport dials the host vsock proxy.
func NewKMS(ctx context.Context, cfg Config) (*KMS, error) {
	recipientKey, err := rsa.GenerateKey(cfg.Entropy, recipientKeyBits)
	if err != nil {
		return nil, fmt.Errorf("generate recipient key: %w", err)
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)),
		config.WithHTTPClient(vsockHTTPClient(cfg.ProxyPort)),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &KMS{
		client:       kms.NewFromConfig(awsCfg),
		attester:     cfg.Attester,
		recipientKey: recipientKey,
		log:          cfg.Log,
	}, nil
}

// Unseal decrypts ciphertext via KMS Decrypt bound to this enclave's
// attestation and recovers the plaintext from the CMS envelope locally.
func (k *KMS) Unseal(ctx context.Context, ciphertext interfaces.SealedSecret) ([]byte, error) {
	recipientPub, err := x509.MarshalPKIXPublicKey(&k.recipientKey.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("encode recipient key: %w", err)
	}

	doc, err := k.attester.Attest(interfaces.AttestationOptions{PublicKey: recipientPub})
	if err != nil {
		return nil, fmt.Errorf("attest recipient key: %w", err)
	}

	out, err := k.client.Decrypt(ctx, &kms.DecryptInput{
		CiphertextBlob: ciphertext,
		Recipient: &types.RecipientInfo{
			AttestationDocument:    doc,
			KeyEncryptionAlgorithm: types.KeyEncryptionMechanismRsaesOaepSha256,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("kms decrypt: %w", err)
	}
	if len(out.CiphertextForRecipient) == 0 {
		return nil, errors.New("kms decrypt returned no recipient envelope")
	}

	plaintext, err := cms.DecryptEnvelopedKey(k.recipientKey, out.CiphertextForRecipient)
	if err != nil {
		return nil, fmt.Errorf("open recipient envelope: %w", err)
	}

	k.log.Debug("unsealed key material via kms", "ciphertext_bytes", len(ciphertext))
	return plaintext, nil
}

// Seal encrypts plaintext under the named KMS key.
func (k *KMS) Seal(ctx context.Context, keyID string, plaintext []byte) (interfaces.SealedSecret, error) {
	out, err := k.client.Encrypt(ctx, &kms.EncryptInput{
		KeyId:     aws.String(keyID),
		Plaintext: plaintext,
	})
	if err != nil {
		return nil, fmt.Errorf("kms encrypt: %w", err)
	}

	k.log.Debug("sealed key material via kms", "key_id", keyID, "ciphertext_bytes", len(out.CiphertextBlob))
	return interfaces.SealedSecret(out.CiphertextBlob), nil
}

// vsockHTTPClient routes every SDK request through the host KMS proxy. The
// dialer ignores the target address: the proxy forwards to the regional KMS
// endpoint and nothing else is reachable from inside the enclave.
func vsockHTTPClient(proxyPort uint32) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: func(_ context.Context, _, _ string) (net.Conn, error) {
				return transport.DialHost(proxyPort)
			},
			IdleConnTimeout: 30 * time.Second,
		},
	}
}
