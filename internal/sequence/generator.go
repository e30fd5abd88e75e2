package sequence

import (
	"math/rand/v2"
	"strings"
)

// Flag is a bit-field with one bit per output channel. Bit 0 is channel 0.
type Flag uint16

// MaxChannels is the widest output bank a Flag can describe.
const MaxChannels = 16

// alternateSeed is the initial Alternate pattern, every even channel on.
const alternateSeed Flag = 0b0101010101010101

// Pattern identifies one of the built-in generator variants.
type Pattern uint8

// Built-in patterns, in catalog order.
const (
	ChaseSingle Pattern = iota
	ChaseDouble
	WaveSingle
	WaveDouble
	Random
	Alternate
	Off
	On
)

// patternNames holds the display name of every pattern.
var patternNames = [...]string{
	ChaseSingle: "Chase Single",
	ChaseDouble: "Chase Double",
	WaveSingle:  "Wave Single",
	WaveDouble:  "Wave Double",
	Random:      "Random",
	Alternate:   "Alternate",
	Off:         "OFF",
	On:          "ON",
}

// String returns the display name of the pattern.
func (p Pattern) String() string {
	if int(p) < len(patternNames) {
		return patternNames[p]
	}
	return "Unknown"
}

// Generator produces one output flag per tick for a single pattern.
//
// It is a closed variant: the pattern tag selects the behaviour of Next and
// Reset, and the counters below hold whatever phase that pattern needs.
// Generators are not safe for concurrent use.
type Generator struct {
	pattern  Pattern
	channels int
	mask     Flag

	// a and b are the pattern counters (chase positions or wave counter).
	a, b int
	// flag is the stored value for Alternate.
	flag Flag
}

// NewGenerator creates a generator for pattern p driving n channels.
// n is clamped to [1, MaxChannels]. The generator starts in its reset phase.
func NewGenerator(p Pattern, n int) *Generator {
	n = min(max(n, 1), MaxChannels)
	g := &Generator{
		pattern:  p,
		channels: n,
		mask:     Flag(uint32(1)<<n - 1),
	}
	g.Reset()
	return g
}

// Pattern returns the variant tag.
func (g *Generator) Pattern() Pattern {
	return g.pattern
}

// Name returns the display name.
func (g *Generator) Name() string {
	return g.pattern.String()
}

// Reset restores the pattern's initial phase. It is idempotent.
func (g *Generator) Reset() {
	g.a, g.b = 0, 0
	g.flag = 0

	switch g.pattern {
	case ChaseDouble:
		g.a, g.b = 1, 0
	case Alternate:
		g.flag = alternateSeed
	}
}

// Next returns the flag for the current step and advances the phase.
func (g *Generator) Next() Flag {
	n := g.channels

	switch g.pattern {
	case ChaseSingle:
		f := Flag(1) << g.a
		g.a = (g.a + 1) % n
		return f & g.mask

	case ChaseDouble:
		f := Flag(1)<<g.a | Flag(1)<<g.b
		g.a = (g.a + 1) % n
		g.b = (g.b + 1) % n
		return f & g.mask

	case WaveSingle:
		pos := bounce(g.a, n-1)
		g.a = advance(g.a, 2*n-2)
		return Flag(1) << pos & g.mask

	case WaveDouble:
		pos := bounce(g.a, n-2)
		g.a = advance(g.a, 2*n-4)
		return Flag(0b11) << pos & g.mask

	case Random:
		return Flag(rand.N(uint32(g.mask)+1)) //nolint:gosec // pattern noise, not security

	case Alternate:
		g.flag = ^g.flag
		return g.flag & g.mask

	case On:
		return g.mask

	default:
		return 0
	}
}

// bounce maps a counter over the period 2*peak onto a triangle wave
// 0, 1, ..., peak, peak-1, ..., 1. A peak of zero or less pins position 0.
func bounce(counter, peak int) int {
	if peak <= 0 {
		return 0
	}
	if counter <= peak {
		return counter
	}
	return 2*peak - counter
}

// advance increments counter modulo period, treating an empty period as one.
func advance(counter, period int) int {
	if period <= 1 {
		return 0
	}
	return (counter + 1) % period
}

// Render draws a flag as one character per channel, channel 0 first:
// '#' for an active channel and '.' for an idle one.
func Render(f Flag, n int) string {
	n = min(max(n, 0), MaxChannels)
	var sb strings.Builder
	sb.Grow(n)
	for i := range n {
		if f&(1<<i) != 0 {
			sb.WriteByte('#')
		} else {
			sb.WriteByte('.')
		}
	}
	return sb.String()
}
