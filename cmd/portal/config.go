package main

import (
	"fmt"

	"github.com/sandevgo/docportal/internal/config"
	"github.com/sandevgo/docportal/pkg/env"
	"github.com/spf13/cobra"
)

type configSection struct {
	title string
	cfg   any
}

var configCmd = &cobra.Command{
	Use:           "config",
	Short:         "Print the effective configuration",
	Long:          `Loads the runtime .env and environment, validates them and prints the resulting settings with secrets redacted.`,
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
			return err
		}

		appCfg, err := config.LoadAppConfig()
		if err != nil {
			return err
		}
		providerCfg, err := config.LoadProviderConfig()
		if err != nil {
			return err
		}
		ragCfg, err := config.LoadRAGConfig()
		if err != nil {
			return err
		}

		sections := []configSection{
			{"App", appCfg},
			{"LLM provider", providerCfg},
			{"Retrieval", ragCfg},
		}
		if appCfg.IsHTTPSelected() {
			sections = append(sections, configSection{"HTTP API", config.NewHTTPConfig(ctx)})
		}
		if appCfg.IsTelegramSelected() {
			sections = append(sections, configSection{"Telegram", config.NewTelegramConfig(ctx)})
		}

		out := cmd.OutOrStdout()
		for _, s := range sections {
			body, err := env.MarshalEnvRedacted(s.cfg)
			if err != nil {
				return fmt.Errorf("failed to render %s config: %w", s.title, err)
			}
			fmt.Fprintf(out, "# %s\n%s\n", s.title, body)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
