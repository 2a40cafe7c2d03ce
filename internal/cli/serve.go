package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the advisor HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sessions, grader := buildEngine(cfg, log)
			srv := server.New(cfg.Server, sessions, grader, log)
			return srv.Start(ctx)
		},
	}
}
