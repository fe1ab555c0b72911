// Package main is the entry point for the stixpat command.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"stixpattern/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cmd.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
