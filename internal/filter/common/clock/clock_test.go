package clock

import (
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}

	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) {
		t.Errorf("Clock time %v is before measurement time %v", now, before)
	}
	if now.After(after) {
		t.Errorf("Clock time %v is after measurement time %v", now, after)
	}
}

func TestMockClock_Advance(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := &MockClock{CurrentTime: start}

	if got := clock.Now(); !got.Equal(start) {
		t.Errorf("Now() = %v; want %v", got, start)
	}

	clock.Advance(5 * time.Minute)
	want := start.Add(5 * time.Minute)
	if got := clock.Now(); !got.Equal(want) {
		t.Errorf("Now() after Advance = %v; want %v", got, want)
	}
}
