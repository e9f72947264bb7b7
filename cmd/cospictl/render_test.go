package main

import "testing"

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{10_000, "10,000"},
		{1_000_000, "1,000,000"},
		{40_000_000, "40,000,000"},
		{-20_000_000, "-20,000,000"},
	}
	for _, tc := range tests {
		if got := formatAmount(tc.in); got != tc.want {
			t.Fatalf("formatAmount(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMissionLine(t *testing.T) {
	msg, done := missionLine(map[string]any{"mission_id": "again", "progress": float64(5), "target": float64(70)})
	if done || msg != "again: 5/70" {
		t.Fatalf("in-progress line = %q done=%v", msg, done)
	}
	msg, done = missionLine(map[string]any{"mission_id": "renew", "progress": float64(1), "target": float64(1), "completed": true})
	if !done || msg != "renew: 1/1 (completed!)" {
		t.Fatalf("completed line = %q done=%v", msg, done)
	}
}

func TestRatingSavedMessage(t *testing.T) {
	got := ratingSavedMessage(map[string]any{"review": "great booth"}, 3)
	if got != "Rating and review saved for booth 3." {
		t.Fatalf("with review: %q", got)
	}
	got = ratingSavedMessage(map[string]any{"review": nil}, 3)
	if got != "Rating saved for booth 3." {
		t.Fatalf("null review: %q", got)
	}
	got = ratingSavedMessage(map[string]any{}, 7)
	if got != "Rating saved for booth 7." {
		t.Fatalf("no review key: %q", got)
	}
}
