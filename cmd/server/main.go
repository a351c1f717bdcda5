// Package main implements the entry point for the catalog server, which
// manages the library's book inventory and publishes book lifecycle events
// for the borrowing and notification collaborators.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApplication()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Cleanup must run even when the server exits with an error, so it is
	// called explicitly rather than deferred past os.Exit.
	err = app.run(ctx)
	app.cleanup()
	if err != nil {
		app.logger.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}
