package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ruteri/nitro-validator-signer/attest"
	"github.com/ruteri/nitro-validator-signer/cmd/flags"
	"github.com/ruteri/nitro-validator-signer/enclave"
	"github.com/ruteri/nitro-validator-signer/transport"
)

var cliFlags = append([]cli.Flag{
	flags.ControlPortFlag,
	flags.KMSProxyPortFlag,
}, flags.CommonFlags...)

func main() {
	app := &cli.App{
		Name:  "enclave-signer",
		Usage: "Enclave-resident validator signing key guardian",
		Flags: cliFlags,
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx, "enclave-signer")
			controlPort := uint32(cCtx.Uint(flags.ControlPortFlag.Name))
			kmsProxyPort := uint32(cCtx.Uint(flags.KMSProxyPortFlag.Name))

			nsm, err := attest.Open()
			if err != nil {
				logger.Error("Failed to open NSM session", "err", err)
				return err
			}
			defer nsm.Close()

			listener, err := transport.Listen(controlPort)
			if err != nil {
				logger.Error("Failed to listen on control port", "err", err)
				return err
			}
			defer listener.Close()
			logger.Info("Listening for control requests", "port", controlPort)

			dispatcher := &enclave.Dispatcher{
				KMSProxyPort: kmsProxyPort,
				Attester:     nsm,
				Entropy:      nsm.Rand(),
				Log:          logger,
			}

			// One request per accepted connection. A start request never
			// returns from Serve unless its setup fails fatally.
			for {
				conn, err := listener.Accept()
				if err != nil {
					logger.Error("Control accept failed", "err", err)
					return err
				}

				framed := transport.NewPlainConn(conn)
				if err := dispatcher.Serve(context.Background(), framed); err != nil {
					framed.Close()
					logger.Error("Fatal dispatch error", "err", err)
					return err
				}
				framed.Close()
			}
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
