// Command scorekeeper-admin runs sync and scoring maintenance from a shell
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"scorekeeper/internal/platform/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand(&app{out: os.Stdout, open: openEnv})
	if err := cmd.ExecuteContext(ctx); err != nil {
		logger.Get().Error().Err(err).Msg("scorekeeper-admin failed")
		stop()
		os.Exit(1)
	}
}
