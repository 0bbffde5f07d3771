// Package main is the entry point for TuneQueue, a terminal music queue
// that keeps one remote player instance in step with the playback session.
//
// Build:
//
//	go build -o build/tunequeue ./cmd
//
// Run:
//
//	./build/tunequeue play ~/Music
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := NewRunner(os.Stdin, os.Stdout, os.Stderr)

	if err := newRootCommand(runner).Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "tunequeue: %v\n", err)
		os.Exit(1)
	}
}
