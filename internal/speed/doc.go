// Package speed resolves requested playback speeds to the fixed set of
// supported tick intervals.
//
// Any integer is accepted and snapped to the nearest of Slow (2000 ms),
// Normal (1000 ms) or Fast (500 ms). Nothing is ever rejected.
//
// Usage:
//
//	v := speed.Constrain(1200) // speed.Normal
//	time.Sleep(v.Duration())
package speed
