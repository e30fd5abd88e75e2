// Package sequence provides the built-in relay patterns and the catalog that
// orders them.
//
// A sequence is a generator of Flag values: each call to Next returns which
// output channels should be active for one tick. Example for four channels:
//
//	Chase Single    Wave Double    Alternate
//	#...            ##..           #.#.
//	.#..            .##.           .#.#
//	..#.            ..##
//	...#            .##.
//
// The pattern set is closed. Generator is a tagged variant rather than an
// interface, and the Catalog is a plain array built once at startup. A
// sequence ID is the generator's index in the catalog and is returned
// alongside the generator by Lookup; it is never stored on the generator.
//
// Thread Safety: Generators and Lookup are not safe for concurrent use. The
// player's control loop is the only caller. Names and NamesJSON are safe from
// any goroutine.
package sequence
