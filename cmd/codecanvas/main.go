package main

import (
	"context"
	"log"
	"os"

	"github.com/spf13/cobra"

	"pkt.systems/codecanvas/internal/appconfig"
	"pkt.systems/psi"
	"pkt.systems/pslog"
)

// envFileVar names the variable that points at an alternate .env file.
const envFileVar = appconfig.EnvPrefix + "_ENV_FILE"

func main() {
	psi.Run(submain)
}

func submain(ctx context.Context) int {
	if err := appconfig.LoadDotEnv(os.Getenv(envFileVar)); err != nil {
		log.Printf("codecanvas: %v", err)
	}
	logger := pslog.LoggerFromEnv(
		pslog.WithEnvWriter(os.Stderr),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeConsole}),
	)
	ctx = pslog.ContextWithLogger(ctx, logger)
	log.SetOutput(pslog.LogLogger(logger).Writer())
	log.SetFlags(0)

	root := newRootCmd()
	root.SetArgs(os.Args[1:])

	if err := root.ExecuteContext(ctx); err != nil {
		pslog.Ctx(ctx).With("err", err).Error("codecanvas command failed")
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "codecanvas",
		Short:         "Code Canvas playground server with HTTP and SSH front ends",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newExecCmd())
	root.AddCommand(newBootstrapCmd())
	root.AddCommand(newVersionCmd())

	return root
}
