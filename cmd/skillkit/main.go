// Package main is the entry point for the skillkit CLI.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/thoreinstein/skillkit/cmd/skillkit/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := commands.Execute(ctx)
	stop()
	os.Exit(commands.ReportError(os.Stderr, err))
}
