package sequence

import (
	"encoding/json"
	"sync"
)

// catalogOrder is the fixed order of the built-in patterns. A sequence ID is
// its position in this list.
var catalogOrder = [...]Pattern{
	ChaseSingle,
	ChaseDouble,
	WaveSingle,
	WaveDouble,
	Random,
	Alternate,
	Off,
	On,
}

// Catalog is the fixed, ordered collection of sequence generators.
//
// A catalog is built once at startup for a given channel count and lives for
// the process lifetime. Lookups hand out pointers into the catalog; callers
// never own the generators.
type Catalog struct {
	channels   int
	generators []Generator

	namesOnce sync.Once
	namesJSON string
}

// NewCatalog builds the catalog for an output bank of n channels.
func NewCatalog(n int) *Catalog {
	c := &Catalog{
		generators: make([]Generator, len(catalogOrder)),
	}
	for i, p := range catalogOrder {
		c.generators[i] = *NewGenerator(p, n)
	}
	c.channels = c.generators[0].channels
	return c
}

// Len returns the number of sequences.
func (c *Catalog) Len() int {
	return len(c.generators)
}

// Channels returns the channel count the generators were built for.
func (c *Catalog) Channels() int {
	return c.channels
}

// Constrain clamps i to [0, Len()).
func (c *Catalog) Constrain(i int) int {
	return min(max(i, 0), c.Len()-1)
}

// Lookup clamps index, resets that generator to its initial phase and returns
// the clamped index together with the generator.
//
// Parameters:
//   - index: Requested sequence ID (any integer)
//
// Returns:
//   - int: The sequence ID actually selected
//   - *Generator: The freshly reset generator, owned by the catalog
func (c *Catalog) Lookup(index int) (int, *Generator) {
	index = c.Constrain(index)
	g := &c.generators[index]
	g.Reset()
	return index, g
}

// Name returns the display name of the sequence at the clamped index.
// Unlike Lookup it does not touch the generator's phase.
func (c *Catalog) Name(index int) string {
	return c.generators[c.Constrain(index)].Name()
}

// Names returns the display names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.generators))
	for i := range c.generators {
		names[i] = c.generators[i].Name()
	}
	return names
}

// NamesJSON returns the display names as a JSON array. The encoding is
// computed on first use and cached, since the catalog never changes.
func (c *Catalog) NamesJSON() string {
	c.namesOnce.Do(func() {
		data, err := json.Marshal(c.Names())
		if err != nil {
			// A []string always marshals.
			data = []byte("[]")
		}
		c.namesJSON = string(data)
	})
	return c.namesJSON
}
