package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// main is the application composition root.
// It wires concrete adapters (ORS, route caches, renderers) behind ports and
// runs one navigation simulation per invocation.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
