package hostutils

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ruteri/nitro-validator-signer/interfaces"
)

// Config is the helper's start configuration, loaded from a JSON file.
type Config struct {
	// EnclaveCID is the vsock context id the enclave was launched with.
	EnclaveCID uint32 `json:"enclave_cid"`

	// EnclavePort is the enclave control port.
	EnclavePort uint32 `json:"enclave_port"`

	ChainID   string `json:"chain_id"`
	MaxHeight int64  `json:"max_height,omitempty"`

	// PeerID is the expected validator fingerprint in hex, optional.
	PeerID string `json:"peer_id,omitempty"`

	// SealedConsensusKeyFile holds the base64 KMS ciphertext of the
	// consensus seed, as written by the keygen command.
	SealedConsensusKeyFile string `json:"sealed_consensus_key_file"`

	// SealedIDKeyFile optionally holds the sealed channel identity key.
	SealedIDKeyFile string `json:"sealed_id_key_file,omitempty"`

	AWSRegion string `json:"aws_region,omitempty"`

	// StateFile is where the chain-state server persists signing state.
	StateFile string `json:"state_file"`

	// StatePort is the vsock port the chain-state server listens on.
	StatePort uint32 `json:"state_port"`

	// PrivvalPort is the vsock port the privval proxy listens on; the
	// enclave dials it to reach the validator.
	PrivvalPort uint32 `json:"privval_port"`

	// ValidatorAddr is the validator's privval endpoint the proxy bridges
	// to, as network:address, e.g. "tcp:127.0.0.1:1234" or
	// "unix:/var/run/privval.sock".
	ValidatorAddr string `json:"validator_addr"`

	// KMSProxyPort is the vsock port of the KMS TCP proxy.
	KMSProxyPort uint32 `json:"kms_proxy_port"`

	// ListenAddr is the operational HTTP server address.
	ListenAddr string `json:"listen_addr,omitempty"`
}

// LoadConfig reads and validates a helper configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration before any enclave interaction.
func (c *Config) Validate() error {
	if c.EnclaveCID == 0 {
		return errors.New("enclave_cid is required")
	}
	if c.EnclavePort == 0 {
		return errors.New("enclave_port is required")
	}
	if c.ChainID == "" {
		return errors.New("chain_id is required")
	}
	if c.SealedConsensusKeyFile == "" {
		return errors.New("sealed_consensus_key_file is required")
	}
	if c.StateFile == "" {
		return errors.New("state_file is required")
	}
	if c.StatePort == 0 {
		return errors.New("state_port is required")
	}
	if c.PrivvalPort == 0 {
		return errors.New("privval_port is required")
	}
	if c.ValidatorAddr == "" {
		return errors.New("validator_addr is required")
	}
	if c.KMSProxyPort == 0 {
		return errors.New("kms_proxy_port is required")
	}
	if c.PeerID != "" {
		if _, err := interfaces.ParsePeerID(c.PeerID); err != nil {
			return fmt.Errorf("peer_id: %w", err)
		}
	}
	if _, _, err := ParseDialTarget(c.ValidatorAddr); err != nil {
		return fmt.Errorf("validator_addr: %w", err)
	}
	return nil
}

// ParseDialTarget splits a "network:address" endpoint such as
// "tcp:127.0.0.1:1234" or "unix:/var/run/privval.sock". An address without
// a network prefix is treated as tcp.
func ParseDialTarget(s string) (network, addr string, err error) {
	network, addr, found := strings.Cut(s, ":")
	if !found {
		return "", "", fmt.Errorf("malformed dial target %q", s)
	}
	switch network {
	case "tcp", "unix":
		return network, addr, nil
	default:
		return "tcp", s, nil
	}
}
