package sealing

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"io"

	"github.com/ruteri/nitro-validator-signer/cryptoutils"
	"github.com/ruteri/nitro-validator-signer/interfaces"
)

var (
	// ErrAccess marks a sealing oracle call that was refused or unreachable.
	// Repeated denial usually means misconfiguration, so callers never
	// retry these.
	ErrAccess = errors.New("sealing: oracle access denied")

	// ErrInvalidKey marks unsealed bytes that do not form a signing key.
	ErrInvalidKey = errors.New("sealing: unsealed bytes do not form a valid key")
)

// UnsealSigningKey unseals ciphertext and constructs the ed25519 signing key
// from the recovered 32-byte seed. The plaintext buffer is scrubbed on every
// exit path; on success the returned key is the only surviving copy of the
// secret.
func UnsealSigningKey(ctx context.Context, sealer interfaces.Sealer, ciphertext interfaces.SealedSecret) (ed25519.PrivateKey, error) {
	raw, err := sealer.Unseal(ctx, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAccess, err)
	}

	seed := cryptoutils.NewSecret(raw)
	defer seed.Destroy()

	if len(seed.Bytes()) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKey, len(seed.Bytes()), ed25519.SeedSize)
	}
	return ed25519.NewKeyFromSeed(seed.Bytes()), nil
}

// GenerateAndSeal draws a fresh ed25519 key from rng, seals its seed under
// keyID and returns the public key with the ciphertext. The private half is
// scrubbed before returning, success or failure; only the sealed form
// leaves this function.
func GenerateAndSeal(ctx context.Context, sealer interfaces.Sealer, rng io.Reader, keyID string) (ed25519.PublicKey, interfaces.SealedSecret, error) {
	pub, priv, err := ed25519.GenerateKey(rng)
	if err != nil {
		return nil, nil, fmt.Errorf("generate signing key: %w", err)
	}
	defer cryptoutils.Zeroize(priv)

	seed := cryptoutils.NewSecret(priv.Seed())
	defer seed.Destroy()

	sealed, err := sealer.Seal(ctx, keyID, seed.Bytes())
	if err != nil {
		return nil, nil, fmt.Errorf("seal generated key: %w", err)
	}
	return pub, sealed, nil
}
