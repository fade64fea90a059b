package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sandevgo/docportal/internal/config"
	"github.com/sandevgo/docportal/internal/transport/tui"
	"github.com/sandevgo/docportal/pkg/log"
	"github.com/spf13/cobra"
)

var logFile string

var chatCmd = &cobra.Command{
	Use:           "chat",
	Short:         "Chat with a document in the terminal",
	Long:          `Opens an interactive terminal session. Load a document with /doc <path>, then ask questions about it.`,
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// The UI owns stdout, so logs go to a file or nowhere.
		var out io.Writer = io.Discard
		if logFile != "" {
			if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
				return fmt.Errorf("failed to create log directory: %w", err)
			}
			f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
			if err != nil {
				return fmt.Errorf("failed to open log file: %w", err)
			}
			defer f.Close()
			out = f
		}

		var flushLog func()
		ctx, flushLog = log.NewContextWithWriter(ctx, out, isDebug())
		defer flushLog()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		// The sweeper is not started here: the only session belongs to the open UI.
		defer a.close(ctx)

		ch, err := a.newChannel(true)
		if err != nil {
			return err
		}
		return tui.Run(ctx, a.orch, ch.router, ch.sessions, ch.sessions.Create().ID, a.limits)
	},
}

func init() {
	chatCmd.Flags().StringVar(&logFile, "log-file", filepath.Join(config.GetRuntimePath(), "chat.log"), "write logs to this file (empty discards them)")
	rootCmd.AddCommand(chatCmd)
}
