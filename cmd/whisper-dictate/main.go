// Package main provides the whisper-dictate process entrypoint.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Astlaan/whisper-dictate/internal/app"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes one command; SIGINT and SIGTERM cancel it.
func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return app.Execute(ctx, args, os.Stdout, os.Stderr)
}
