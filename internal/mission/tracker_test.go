package mission

import (
	"testing"
	"time"
)

func TestAdvanceLatchesCompletion(t *testing.T) {
	now := time.Date(2026, 8, 29, 14, 0, 0, 0, time.UTC)

	r := advance(state{}, 70, 70, now)
	if !r.completed {
		t.Fatalf("reaching the target should complete the mission")
	}
	if r.completedAt == nil || !r.completedAt.Equal(now) {
		t.Fatalf("completion timestamp not recorded: %v", r.completedAt)
	}

	later := now.Add(time.Hour)
	r = advance(r, 3, 70, later)
	if !r.completed {
		t.Fatalf("a lower report must not un-complete the mission")
	}
	if !r.completedAt.Equal(now) {
		t.Fatalf("completion timestamp must not move, got %v", r.completedAt)
	}
	if r.progress != 3 {
		t.Fatalf("progress should still track the latest report, got %d", r.progress)
	}
}

func TestAdvanceOvershootCompletes(t *testing.T) {
	now := time.Now()
	r := advance(state{}, 100, 70, now)
	if !r.completed {
		t.Fatalf("overshooting the target should complete")
	}
	if r.progress != 100 {
		t.Fatalf("overshoot progress kept as reported, got %d", r.progress)
	}
}

func TestAdvanceClampsNegative(t *testing.T) {
	r := advance(state{progress: 5, target: 70}, -3, 70, time.Now())
	if r.progress != 0 {
		t.Fatalf("negative report should clamp to zero, got %d", r.progress)
	}
	if r.completed {
		t.Fatalf("clamped report must not complete")
	}
}

func TestRate(t *testing.T) {
	tests := []struct {
		progress int
		target   int
		want     float64
	}{
		{0, 70, 0},
		{35, 70, 50},
		{70, 70, 100},
		{140, 70, 100},
		{1, 1, 100},
		{3, 0, 0},
	}
	for _, tc := range tests {
		if got := rate(tc.progress, tc.target); got != tc.want {
			t.Fatalf("rate(%d, %d) = %v, want %v", tc.progress, tc.target, got, tc.want)
		}
	}
}

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	if len(c.Order) != len(c.Targets) {
		t.Fatalf("order and targets out of sync: %d vs %d", len(c.Order), len(c.Targets))
	}
	for _, id := range c.Order {
		target, ok := c.Targets[id]
		if !ok {
			t.Fatalf("mission %q listed but has no target", id)
		}
		if target <= 0 {
			t.Fatalf("mission %q has non-positive target %d", id, target)
		}
	}
}
