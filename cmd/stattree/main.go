// Command stattree validates, evaluates, stores and serves stat tree definitions.
//
// Usage:
//
//	# Check every definition in a directory
//	stattree validate definitions/
//
//	# Evaluate a definition after a few writes
//	stattree eval definitions/character.yaml --add Buff=0.5 --set Level=2
//
//	# Copy definitions into PostgreSQL and back
//	stattree import definitions/
//	stattree export character -o character.yaml
//
//	# Serve /metrics and the read-only tree endpoints
//	stattree serve
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}
