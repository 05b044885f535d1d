// trefle-fetch is a batch-fetch CLI for the Trefle plant API: it pages
// through list and search endpoints, optionally enriches each record with
// its detail form, and writes page batches to local files.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
)

// Exit codes. Interrupt is an expected termination path with its own code.
const (
	exitOK          = 0
	exitError       = 1
	exitInterrupted = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newApp()
	rootCmd := newRootCommand(app)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			app.logger.Warn().Msg("Interrupted - stopping after in-flight suspension")
			return exitInterrupted
		}
		app.logger.Error().Err(err).Msg("Fatal error")
		return exitError
	}
	return exitOK
}
