// Package clock provides the time source used for flow timestamps so tests
// can freeze it.
package clock

import "time"

// NowFunc is the active time source; swap it in tests for determinism.
var NowFunc func() time.Time = time.Now

// Now returns the current time from the active source.
func Now() time.Time {
	return NowFunc()
}
