// Package main provides sms-auth, the session bootstrap for the SMS dashboard
// end-to-end suites. Run it once before the test workers start.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

const version = "0.1.0"

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nShutting down, closing browser...")
		cancel()
	}()

	root := newRootCmd(os.Stdout, os.Getenv)
	if err := root.ExecuteContext(ctx); err != nil {
		cancel()
		fmt.Fprintf(os.Stderr, "sms-auth: %v\n", err)
		os.Exit(1)
	}
	cancel()
}
