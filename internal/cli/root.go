package cli

import (
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"
)

// DefaultConfigPath is used when neither --config nor RELAYSEQ_CONFIG is set.
const DefaultConfigPath = "configs/config.yaml"

// BuildInfo identifies the binary. Set at build time via ldflags in main.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Format     string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command. Running it without a subcommand
// behaves like serve.
func NewRootCommand(info BuildInfo) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "relayseq",
		Short: "Relay sequencer",
		Long: `Plays light sequences across a bank of relay outputs.

Sequences are selected from the built-in catalog over HTTP or MQTT, and the
start-up sequence is persisted across restarts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts, info)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", defaultConfigPath(), "configuration file")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewServeCommand(opts, info))
	cmd.AddCommand(NewSequencesCommand(opts))
	cmd.AddCommand(NewPreviewCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts, info))

	return cmd
}

// defaultConfigPath returns RELAYSEQ_CONFIG if set, otherwise DefaultConfigPath.
func defaultConfigPath() string {
	if path := os.Getenv("RELAYSEQ_CONFIG"); path != "" {
		return path
	}
	return DefaultConfigPath
}
