package main

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mdlayher/vsock"
	"github.com/urfave/cli/v2"

	"github.com/ruteri/nitro-validator-signer/api"
	"github.com/ruteri/nitro-validator-signer/chainstate"
	"github.com/ruteri/nitro-validator-signer/cmd/flags"
	"github.com/ruteri/nitro-validator-signer/hostutils"
	"github.com/ruteri/nitro-validator-signer/httpserver"
	"github.com/ruteri/nitro-validator-signer/interfaces"
)

func main() {
	app := &cli.App{
		Name:  "signer-helper",
		Usage: "Host-side counterpart of the enclave signer",
		Commands: []*cli.Command{
			startCommand(),
			keygenCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func keygenCommand() *cli.Command {
	cmdFlags := append([]cli.Flag{
		flags.EnclaveCIDFlag,
		flags.ControlPortFlag,
		flags.KMSProxyPortFlag,
		&cli.StringFlag{
			Name:     "kms-key-id",
			Required: true,
			Usage:    "KMS key id or ARN to seal the generated key under",
		},
		&cli.StringFlag{
			Name:  "aws-region",
			Usage: "AWS region; detected from instance metadata when unset",
		},
		&cli.StringFlag{
			Name:  "out",
			Value: "consensus.key.sealed",
			Usage: "file to write the sealed key to (base64)",
		},
		&cli.StringFlag{
			Name:  "attestation-out",
			Value: "keygen.attestation",
			Usage: "file to write the attestation document to (base64)",
		},
	}, flags.CommonFlags...)

	return &cli.Command{
		Name:  "keygen",
		Usage: "Generate, seal and attest a fresh consensus key inside the enclave",
		Flags: cmdFlags,
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx, "signer-helper")
			ctx := cCtx.Context

			region, err := hostutils.ResolveRegion(ctx, cCtx.String("aws-region"))
			if err != nil {
				return err
			}
			creds, err := hostutils.ResolveCredentials(ctx, region)
			if err != nil {
				return err
			}

			kmsProxyPort := uint32(cCtx.Uint(flags.KMSProxyPortFlag.Name))
			stopKMSProxy, _, err := runKMSProxy(kmsProxyPort, region, logger)
			if err != nil {
				return err
			}
			defer stopKMSProxy()

			client := api.NewClient(uint32(cCtx.Uint(flags.EnclaveCIDFlag.Name)), uint32(cCtx.Uint(flags.ControlPortFlag.Name)))
			logger.Info("Requesting key generation", "kms_key_id", cCtx.String("kms-key-id"))
			result, err := client.Keygen(api.KeygenRequest{
				AWSRegion:   region,
				Credentials: creds,
				KMSKeyID:    cCtx.String("kms-key-id"),
			})
			if err != nil {
				return err
			}

			if err := writeBase64File(cCtx.String("out"), result.EncryptedSecret); err != nil {
				return err
			}
			if err := writeBase64File(cCtx.String("attestation-out"), result.AttestationDoc); err != nil {
				return err
			}
			logger.Info("Wrote sealed key and attestation document",
				"sealed_key_file", cCtx.String("out"),
				"attestation_file", cCtx.String("attestation-out"),
				"public_key", base64.StdEncoding.EncodeToString(result.PublicKey))

			return reportAttestation(result, logger)
		},
	}
}

// reportAttestation decodes the keygen attestation for the operator and
// checks the bound claim names the returned public key.
func reportAttestation(result *api.KeygenResult, logger *slog.Logger) error {
	payload, err := hostutils.DecodeAttestation(result.AttestationDoc)
	if err != nil {
		return fmt.Errorf("decode attestation document: %w", err)
	}

	var claim struct {
		PubKey []byte `json:"pubkey"`
		KeyID  []byte `json:"key_id"`
	}
	if err := json.Unmarshal(payload.UserData, &claim); err != nil {
		return fmt.Errorf("decode attestation claim: %w", err)
	}
	if !bytes.Equal(claim.PubKey, result.PublicKey) {
		return fmt.Errorf("attestation claim names public key %s, enclave returned %s",
			base64.StdEncoding.EncodeToString(claim.PubKey),
			base64.StdEncoding.EncodeToString(result.PublicKey))
	}

	logger.Info("Attestation verified against returned key",
		"module_id", payload.ModuleID,
		"pcr0", hex.EncodeToString(payload.PCR(0)),
		"claim", string(payload.UserData))
	return nil
}

func startCommand() *cli.Command {
	cmdFlags := append([]cli.Flag{
		&cli.StringFlag{
			Name:     "config",
			Required: true,
			Usage:    "path to the helper JSON config file",
		},
	}, flags.CommonFlags...)

	return &cli.Command{
		Name:  "start",
		Usage: "Run the host services and launch the enclave signing session",
		Flags: cmdFlags,
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx, "signer-helper")
			ctx := cCtx.Context

			cfg, err := hostutils.LoadConfig(cCtx.String("config"))
			if err != nil {
				return err
			}

			region, err := hostutils.ResolveRegion(ctx, cfg.AWSRegion)
			if err != nil {
				return err
			}
			creds, err := hostutils.ResolveCredentials(ctx, region)
			if err != nil {
				return err
			}

			sealedKey, err := readBase64File(cfg.SealedConsensusKeyFile)
			if err != nil {
				return fmt.Errorf("read sealed consensus key: %w", err)
			}
			var sealedIDKey []byte
			if cfg.SealedIDKeyFile != "" {
				sealedIDKey, err = readBase64File(cfg.SealedIDKeyFile)
				if err != nil {
					return fmt.Errorf("read sealed identity key: %w", err)
				}
			} else {
				logger.Warn("No sealed identity key configured, the validator channel will be unauthenticated")
			}

			// Chain-state server.
			stateSrv, err := chainstate.NewServer(cfg.StateFile, logger)
			if err != nil {
				return err
			}
			stateListener, err := vsock.Listen(cfg.StatePort, nil)
			if err != nil {
				return fmt.Errorf("listen on state port %d: %w", cfg.StatePort, err)
			}
			defer stateListener.Close()
			go func() {
				if err := stateSrv.Serve(stateListener); err != nil {
					logger.Error("State server stopped", "err", err)
				}
			}()

			// Privval proxy: enclave vsock dials bridged to the validator.
			network, addr, err := hostutils.ParseDialTarget(cfg.ValidatorAddr)
			if err != nil {
				return err
			}
			privvalProxy := hostutils.NewProxy("privval", network, addr, logger)
			privvalListener, err := vsock.Listen(cfg.PrivvalPort, nil)
			if err != nil {
				return fmt.Errorf("listen on privval port %d: %w", cfg.PrivvalPort, err)
			}
			defer privvalListener.Close()
			go func() {
				if err := privvalProxy.Serve(privvalListener); err != nil {
					logger.Error("Privval proxy stopped", "err", err)
				}
			}()

			stopKMSProxy, kmsProxy, err := runKMSProxy(cfg.KMSProxyPort, region, logger)
			if err != nil {
				return err
			}
			defer stopKMSProxy()

			var srv *httpserver.Server
			if cfg.ListenAddr != "" {
				srv = httpserver.New(&httpserver.HTTPServerConfig{
					ListenAddr:               cfg.ListenAddr,
					Log:                      logger,
					DrainDuration:            45 * time.Second,
					GracefulShutdownDuration: 30 * time.Second,
					ReadTimeout:              60 * time.Second,
					WriteTimeout:             30 * time.Second,
				}, func() httpserver.Status {
					return httpserver.Status{
						StateHeight:        stateSrv.LastHeight(),
						PrivvalConnections: privvalProxy.ActiveConnections(),
						KMSConnections:     kmsProxy.ActiveConnections(),
					}
				})
				srv.RunInBackground()
			}

			client := api.NewClient(cfg.EnclaveCID, cfg.EnclavePort)
			logger.Info("Sending start request to enclave",
				"chain_id", cfg.ChainID, "enclave_cid", cfg.EnclaveCID)
			err = client.Start(api.StartRequest{
				ChainID:               cfg.ChainID,
				MaxHeight:             cfg.MaxHeight,
				EnclaveTendermintConn: cfg.PrivvalPort,
				PeerID:                cfg.PeerID,
				SealedConsensusKey:    interfaces.SealedSecret(sealedKey),
				SealedIDKey:           interfaces.SealedSecret(sealedIDKey),
				AWSRegion:             region,
				Credentials:           creds,
				EnclaveStatePort:      cfg.StatePort,
			})
			if err != nil {
				return err
			}
			if srv != nil {
				srv.SetReady(true)
			}
			logger.Info("Signing session launched")

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
			<-exit
			logger.Info("Shutdown signal received")

			if srv != nil {
				srv.Shutdown()
			}
			return nil
		},
	}
}

// runKMSProxy bridges a vsock port to the regional KMS endpoint so the
// enclave's TLS sessions can reach AWS.
func runKMSProxy(port uint32, region string, logger *slog.Logger) (stop func(), proxy *hostutils.Proxy, err error) {
	listener, err := vsock.Listen(port, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("listen on kms proxy port %d: %w", port, err)
	}

	proxy = hostutils.NewProxy("kms", "tcp", hostutils.KMSEndpoint(region), logger)
	go func() {
		if err := proxy.Serve(listener); err != nil {
			logger.Error("KMS proxy stopped", "err", err)
		}
	}()
	return func() { listener.Close() }, proxy, nil
}

func writeBase64File(path string, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	if err := os.WriteFile(path, []byte(encoded+"\n"), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func readBase64File(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace(raw)))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return data, nil
}
