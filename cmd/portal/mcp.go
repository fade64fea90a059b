package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sandevgo/docportal/internal/transport/mcpserver"
	"github.com/sandevgo/docportal/pkg/log"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:           "mcp",
	Short:         "Serve document tools over MCP on stdio",
	Long:          `Runs an MCP server on stdin/stdout exposing load_document, ask, new_session and status tools. Logs go to stderr.`,
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// stdout carries the protocol
		var flushLog func()
		ctx, flushLog = log.NewContextWithWriter(ctx, os.Stderr, isDebug())
		defer flushLog()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		ch, err := a.newChannel(false)
		if err != nil {
			return err
		}
		for _, s := range a.background {
			go func() {
				if err := s.Start(ctx); err != nil {
					log.FromCtx(ctx).Error().Err(err).Msgf("%T stopped", s)
				}
			}()
		}
		defer a.close(ctx)

		server := mcpserver.NewServer(a.orch, ch.sessions, a.limits)
		return server.Serve(ctx, os.Stdin, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
