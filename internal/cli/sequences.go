package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nerrad567/relay-sequencer/internal/sequence"
	"github.com/nerrad567/relay-sequencer/internal/speed"
)

// sequenceEntry is one row of the sequences listing.
type sequenceEntry struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// NewSequencesCommand creates the sequences command.
func NewSequencesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sequences",
		Short: "List the sequence catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Names do not depend on the channel count.
			catalog := sequence.NewCatalog(sequence.MaxChannels)

			entries := make([]sequenceEntry, catalog.Len())
			for i, name := range catalog.Names() {
				entries[i] = sequenceEntry{ID: i, Name: name}
			}

			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"sequences": entries,
					"speeds":    speed.Values(),
				})
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME")
			for _, e := range entries {
				fmt.Fprintf(tw, "%d\t%s\n", e.ID, e.Name)
			}
			return tw.Flush()
		},
	}
}
