package timeutil

import (
	"testing"
	"time"
)

func TestRealClockNow(t *testing.T) {
	c := RealClock{}
	before := time.Now()
	got := c.Now()
	after := time.Now()

	if got.Before(before) || got.After(after) {
		t.Errorf("RealClock.Now() = %v, want between %v and %v", got, before, after)
	}
}

func TestRealClockSince(t *testing.T) {
	c := RealClock{}
	start := time.Now().Add(-time.Second)
	if d := c.Since(start); d < time.Second {
		t.Errorf("Since() = %v, want >= 1s", d)
	}
}

func TestMockClockNowAndSet(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(base)

	if got := c.Now(); !got.Equal(base) {
		t.Errorf("Now() = %v, want %v", got, base)
	}

	later := base.Add(time.Hour)
	c.Set(later)
	if got := c.Now(); !got.Equal(later) {
		t.Errorf("Now() after Set = %v, want %v", got, later)
	}
}

func TestMockClockAdvance(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(base)

	c.Advance(150 * time.Millisecond)
	if got := c.Since(base); got != 150*time.Millisecond {
		t.Errorf("Since(base) = %v, want 150ms", got)
	}
}

func TestMockClockAfter(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(base)

	ch := c.After(100 * time.Millisecond)

	select {
	case <-ch:
		t.Fatal("After channel fired before clock advanced")
	default:
	}

	c.Advance(50 * time.Millisecond)
	select {
	case <-ch:
		t.Fatal("After channel fired before deadline")
	default:
	}

	c.Advance(50 * time.Millisecond)
	select {
	case <-ch:
	default:
		t.Fatal("After channel did not fire at deadline")
	}
}

func TestMockTicker(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(base)

	ticker := c.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	c.Advance(100 * time.Millisecond)
	select {
	case <-ticker.C():
	default:
		t.Fatal("ticker did not fire after one interval")
	}

	c.Advance(100 * time.Millisecond)
	select {
	case <-ticker.C():
	default:
		t.Fatal("ticker did not fire after second interval")
	}
}

func TestMockTickerStop(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(base)

	ticker := c.NewTicker(100 * time.Millisecond)
	ticker.Stop()

	c.Advance(time.Second)
	select {
	case <-ticker.C():
		t.Fatal("stopped ticker fired")
	default:
	}
}
