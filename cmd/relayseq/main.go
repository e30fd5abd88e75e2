// Relay Sequencer - light sequence player for relay banks.
//
// relayseq plays one of a fixed catalog of light sequences (chases, waves,
// random, alternate, all on/off) across a bank of relay outputs. The running
// sequence is chosen over HTTP or MQTT and the start-up choice is persisted.
//
// See internal/cli for the commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/relay-sequencer/internal/cli"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := run(ctx, os.Args[1:])
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}

// run executes the command line, separated from main for testability.
func run(ctx context.Context, args []string) error {
	cmd := cli.NewRootCommand(cli.BuildInfo{
		Version: version,
		Commit:  commit,
		Date:    date,
	})
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}
