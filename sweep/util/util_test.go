package util

import (
	"testing"
	"time"
)

func TestSkipThrottler(t *testing.T) {
	t.Parallel()
	tt := NewSkipThrottler(time.Hour)
	if !tt.Ok() {
		t.Fatalf("first call must pass")
	}
	if tt.Ok() {
		t.Fatalf("second call must be throttled")
	}

	tt = NewSkipThrottler(time.Nanosecond)
	if !tt.Ok() {
		t.Fatalf("first call must pass")
	}
	time.Sleep(time.Millisecond)
	if !tt.Ok() {
		t.Fatalf("elapsed call must pass")
	}
}
