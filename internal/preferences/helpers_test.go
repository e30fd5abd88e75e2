package preferences

import "github.com/nerrad567/relay-sequencer/internal/sequence"

type discardApplier struct{}

func (discardApplier) Apply(sequence.Flag) error { return nil }

func sequenceCatalog() *sequence.Catalog {
	return sequence.NewCatalog(8)
}
