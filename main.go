// Package main is the entry point for the triage service.
package main

import (
	"context"
	"fmt"
	"os"

	"triage/bootstrap"
	"triage/cmd"
)

// run initializes and starts the triage service.
func run() error {
	ctx := context.Background()

	app, err := bootstrap.NewApp(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	if err := app.Start(ctx); err != nil {
		app.Shutdown()
		return fmt.Errorf("failed to start application: %w", err)
	}

	app.WaitForShutdown()
	app.Shutdown()

	return nil
}

// main is the entry point.
func main() {
	// Check if running as CLI command
	if len(os.Args) > 1 && os.Args[1] == "cli" {
		// Strip "cli" from os.Args since the command already knows its name
		os.Args = append([]string{os.Args[0]}, os.Args[2:]...)

		triageCmd := cmd.NewTriageCmd()
		if err := triageCmd.Execute(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Otherwise run as the API server
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
