package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nerrad567/relay-sequencer/internal/sequence"
)

// previewResult is the JSON form of a preview.
type previewResult struct {
	SequenceID int      `json:"sequenceID"`
	Sequence   string   `json:"sequence"`
	Channels   int      `json:"channels"`
	Steps      []string `json:"steps"`
}

// NewPreviewCommand creates the preview command.
func NewPreviewCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		steps    int
		channels int
	)

	cmd := &cobra.Command{
		Use:   "preview <sequence-id|name>",
		Short: "Render the first steps of a sequence",
		Long: `Render a sequence one step per line, channel 0 first.
'#' marks an active relay and '.' an idle one.

The sequence may be given by ID or by name ("wave double"). IDs outside the
catalog are clamped, as they are for the running sequencer.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 1 {
				return NewExitError(ExitCommandError, "--steps must be at least 1")
			}
			if channels < 1 || channels > sequence.MaxChannels {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("--channels must be between 1 and %d", sequence.MaxChannels))
			}

			catalog := sequence.NewCatalog(channels)
			id, err := resolveSequence(catalog, args[0])
			if err != nil {
				return err
			}

			result := preview(catalog, id, steps)
			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), result)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d %s (%d channels)\n", result.SequenceID, result.Sequence, result.Channels)
			for i, line := range result.Steps {
				fmt.Fprintf(out, "%4d  %s\n", i, line)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&steps, "steps", "n", 16, "number of steps to render")
	cmd.Flags().IntVar(&channels, "channels", 8, "number of relay channels")

	return cmd
}

// resolveSequence accepts an ID or a case-insensitive catalog name.
func resolveSequence(catalog *sequence.Catalog, arg string) (int, error) {
	if id, err := strconv.Atoi(arg); err == nil {
		return catalog.Constrain(id), nil
	}
	for i, name := range catalog.Names() {
		if strings.EqualFold(name, strings.TrimSpace(arg)) {
			return i, nil
		}
	}
	return 0, NewExitError(ExitCommandError, fmt.Sprintf("unknown sequence %q", arg))
}

// preview renders the first n steps of sequence id from a fresh generator.
func preview(catalog *sequence.Catalog, id, n int) previewResult {
	id, gen := catalog.Lookup(id)

	lines := make([]string, n)
	for i := range lines {
		lines[i] = sequence.Render(gen.Next(), catalog.Channels())
	}

	return previewResult{
		SequenceID: id,
		Sequence:   gen.Name(),
		Channels:   catalog.Channels(),
		Steps:      lines,
	}
}
