// Package flags holds the cli flag definitions shared by the binaries.
package flags

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/ruteri/nitro-validator-signer/common"
)

func SetupLogger(cCtx *cli.Context, service string) (log *slog.Logger) {
	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   cCtx.Bool(LogDebugFlag.Name),
		JSON:    cCtx.Bool(LogJsonFlag.Name),
		Service: service,
		Version: common.Version,
	})

	if cCtx.Bool(LogUidFlag.Name) {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}

var ControlPortFlag = &cli.UintFlag{
	Name:  "control-port",
	Value: 5000,
	Usage: "vsock port of the enclave control listener",
}
var KMSProxyPortFlag = &cli.UintFlag{
	Name:  "kms-proxy-port",
	Value: 8000,
	Usage: "vsock port of the host-side KMS proxy",
}
var EnclaveCIDFlag = &cli.UintFlag{
	Name:  "enclave-cid",
	Value: 16,
	Usage: "vsock context id the enclave was launched with",
}

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
}
