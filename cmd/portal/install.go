package main

import (
	"errors"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sandevgo/docportal/internal/config"
	"github.com/sandevgo/docportal/internal/service/installer"
	"github.com/sandevgo/docportal/pkg/log"
	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:           "install",
	Short:         "Configure DocPortal interactively",
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		logger := log.FromCtx(ctx)
		logger.Info().Msg("starting installation process")

		runtimePath := config.GetRuntimePath()

		// run wizard (includes save step)
		if _, err := installer.RunWizard(runtimePath); err != nil {
			if errors.Is(err, installer.ErrInterrupted) {
				logger.Warn().Msg("installation cancelled")
				return nil
			}
			return err
		}

		// Load the newly created .env file so a follow-up config check sees the values
		envPath := filepath.Join(runtimePath, ".env")
		if err := godotenv.Load(envPath); err != nil {
			logger.Warn().Err(err).Str("path", envPath).Msg("failed to load .env file")
		}

		logger.Info().Msgf("initialized runtime directory at: %s", runtimePath)
		logger.Info().Msg("Installation complete! You can now run 'portal start' or 'portal chat'.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
}
