package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sandevgo/docportal/pkg/log"
	"github.com/sandevgo/docportal/pkg/srv"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the DocPortal services",
	Long:  `Initializes and starts the configured transports (HTTP API, Telegram) and background workers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// logger setup
		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		logger := log.FromCtx(ctx)
		logger.Info().Msg("starting docportal")

		services, err := NewServices(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("failed to initialize services")
			return err
		}

		srv.StartServices(ctx, services)

		// Wait for shutdown signal
		srv.ShutdownServices(ctx, services)
		logger.Info().Msg("docportal has been shut down gracefully")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
