// Command mindkeep is a personal knowledge assistant for notes and Gmail.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/mindkeep/internal/adapters/driving/cli"
	"github.com/custodia-labs/mindkeep/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx))
}

func run(ctx context.Context) int {
	// Flags are parsed after wiring; startup warnings need --verbose first.
	logger.SetVerbose(verboseRequested(os.Args[1:]))

	app, err := newApp(ctx, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "mindkeep: %v\n", err)
		return 1
	}
	defer app.Close()

	cli.SetVersion(version)
	cli.SetServices(app.Services)

	if err := cli.ExecuteContext(ctx); err != nil {
		logger.Debug("command failed: %v", err)
		return 1
	}
	return 0
}

func verboseRequested(args []string) bool {
	for _, a := range args {
		if a == "--" {
			return false
		}
		if a == "-v" || a == "--verbose" || a == "--verbose=true" {
			return true
		}
	}
	return false
}
