// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"pitchscope/cmd"
	"pitchscope/internal/log"
	"pitchscope/pkg/build"
)

// main is the entry point for the pitch analyzer.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Configure runtime settings
//   - Parse command line arguments and load the configuration
//   - Configure logging
//
// 2. Concurrent Phase (Hot Path):
//   - Start the capture source feeding the listener
//   - Run analysis passes on the listener worker
//   - Publish periodic pitch reports
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals
//   - Stop the capture source and the reporter
//   - Clean up resources
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	// Initialize build information including version, commit hash, and build time.
	// Development builds carry no ldflags and keep the defaults.
	if err := build.Initialize(); err != nil {
		log.Debugf("Build: %v, using development build information", err)
	}

	// Limit OS threads for real-time processing:
	// - One thread for capture and analysis (time-critical)
	// - One thread for reporting and I/O operations
	runtime.GOMAXPROCS(2)

	// Parse command line arguments and build configuration
	inv, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	// --help and --version are handled by the parser
	if inv.Command == "" {
		return
	}
	cmd.ConfigureLogging(inv.Config)

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	// Setup signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = cmd.Execute(ctx, inv, os.Stdout)

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	// Execute has stopped its source, listener and reporter by the time it
	// returns.
	if err != nil {
		log.Errorf("%s: %v", inv.Command, err)
		stop()
		os.Exit(1)
	}
	log.Debugf("Shutdown complete")
}
