package hostutils

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"

	"github.com/ruteri/nitro-validator-signer/api"
)

// ResolveRegion returns the explicitly configured region, falling back to
// the parent instance's metadata service when none is set.
func ResolveRegion(ctx context.Context, configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}

	out, err := imds.New(imds.Options{}).GetRegion(ctx, &imds.GetRegionInput{})
	if err != nil {
		return "", fmt.Errorf("detect region from instance metadata: %w", err)
	}
	return out.Region, nil
}

// ResolveCredentials obtains AWS credentials from the default provider chain
// (environment, shared config, instance role) and packages them for the
// enclave, which has no ambient AWS identity.
func ResolveCredentials(ctx context.Context, region string) (api.Credentials, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return api.Credentials{}, fmt.Errorf("load aws config: %w", err)
	}

	creds, err := cfg.Credentials.Retrieve(ctx)
	if err != nil {
		return api.Credentials{}, fmt.Errorf("retrieve aws credentials: %w", err)
	}

	return api.Credentials{
		AWSKeyID:        creds.AccessKeyID,
		AWSSecretKey:    creds.SecretAccessKey,
		AWSSessionToken: creds.SessionToken,
	}, nil
}

// KMSEndpoint returns the host:port of the regional KMS endpoint the KMS
// proxy bridges to.
func KMSEndpoint(region string) string {
	return fmt.Sprintf("kms.%s.amazonaws.com:443", region)
}
