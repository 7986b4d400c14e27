package main

import (
	"context"
	"os/signal"
	"syscall"

	"riskbot/internal/cli"
)

func main() {
	// SIGINT/SIGTERM cancel the context; long-running commands drain
	// their current work before exiting.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cli.Execute(ctx)
}
