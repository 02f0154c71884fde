// Package main is the entry point for the jobwait CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"jobwait/internal/config"
	"jobwait/internal/logger"
)

func main() {
	// Load environment variables from .env file
	_ = config.LoadEnv()

	// Ctrl-C cancels the run the same way the watchdog does
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		logger.Error("jobwait failed", "error", err)
		os.Exit(1)
	}
}
