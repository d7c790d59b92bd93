package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/glimpsebot/glimpse/cmd"
	"github.com/glimpsebot/glimpse/internal/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cmd.Execute(ctx)
	observability.Sync()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
