// Package util contains small helpers for sweep orchestration.
package util

import "time"

// A SkipThrottler rate-limits progress reporting during long sweeps.
// The first call to Ok always succeeds.
type SkipThrottler struct {
	d    time.Duration
	last time.Time
}

// NewSkipThrottler returns a throttler allowing one event per duration d.
func NewSkipThrottler(d time.Duration) *SkipThrottler {
	return &SkipThrottler{d: d}
}

// Ok reports whether enough time has passed since the last allowed event.
func (tt *SkipThrottler) Ok() bool {
	now := time.Now()
	if !tt.last.IsZero() && now.Before(tt.last.Add(tt.d)) {
		return false
	}
	tt.last = now
	return true
}
