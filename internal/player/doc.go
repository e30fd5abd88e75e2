// Package player plays a sequence from the catalog onto the relay outputs.
//
// The Player is a three-state machine driven by Tick:
//
//	Restart ──► Execute ──► Delay ──(deadline reached)──► Execute ...
//	   ▲                                                    │
//	   └──────────────── SetNewSequence ────────────────────┘
//
// Restart clears the pending deadline and executes in the same tick, so a
// newly selected sequence is applied on the very next Tick with no wait.
// Execute applies one flag and schedules the next step one speed interval
// later. Delay does nothing until that deadline passes.
//
// Tick never blocks. The Player has no locks and is owned by a single control
// loop (see package controller); commands from other goroutines are handed to
// that loop rather than calling the Player directly.
//
// Invalid input is never rejected: sequence IDs are clamped to the catalog and
// speeds are snapped to Slow, Normal or Fast.
package player
