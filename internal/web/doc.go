// Package web serves the sequencer's browser control page.
//
// The page, its script and stylesheet are embedded into the binary with
// go:embed. The sequence catalog cannot change at runtime, so the index page
// is rendered once at start-up with the catalog names injected as JSON into
// a <script id="sequencelist" type="application/json"> element.
package web
