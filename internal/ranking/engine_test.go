package ranking

import (
	"testing"
	"time"
)

func TestRankBooths(t *testing.T) {
	got := rankBooths([]BoothRank{
		{BoothID: 3, TotalInvestment: 500_000},
		{BoothID: 1, TotalInvestment: 900_000},
		{BoothID: 4, TotalInvestment: 500_000},
		{BoothID: 2, TotalInvestment: 0},
	})

	wantOrder := []int64{1, 3, 4, 2}
	for i, boothID := range wantOrder {
		if got[i].BoothID != boothID {
			t.Fatalf("position %d: got booth %d want %d", i, got[i].BoothID, boothID)
		}
		if got[i].Rank != i+1 {
			t.Fatalf("booth %d: got rank %d want %d", got[i].BoothID, got[i].Rank, i+1)
		}
	}
}

func TestRankMissionProgressOrderAndDeltas(t *testing.T) {
	previous := map[int64]int{10: 3, 20: 1, 30: 2}
	got := rankMission([]missionRow{
		{UserID: 10, Progress: 50, Target: 70},
		{UserID: 20, Progress: 20, Target: 70},
		{UserID: 30, Progress: 40, Target: 70},
	}, ByProgress, previous)

	wantOrder := []int64{10, 30, 20}
	for i, userID := range wantOrder {
		if got[i].UserID != userID {
			t.Fatalf("position %d: got user %d want %d", i, got[i].UserID, userID)
		}
	}
	// user 10 moved 3 -> 1, user 30 stayed at 2, user 20 moved 1 -> 3
	wantChanges := []int{2, 0, -2}
	for i, want := range wantChanges {
		if got[i].RankChange != want {
			t.Fatalf("user %d: got delta %d want %d", got[i].UserID, got[i].RankChange, want)
		}
	}
}

func TestRankMissionNewUserHasZeroDelta(t *testing.T) {
	got := rankMission([]missionRow{
		{UserID: 10, Progress: 10, Target: 70},
	}, ByProgress, map[int64]int{})
	if got[0].RankChange != 0 {
		t.Fatalf("first appearance should report no movement, got %d", got[0].RankChange)
	}
}

func TestRankMissionTieBreaks(t *testing.T) {
	early := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)

	got := rankMission([]missionRow{
		{UserID: 40, Progress: 70, Target: 70, Completed: true, CompletedAt: &late},
		{UserID: 20, Progress: 70, Target: 70, Completed: true, CompletedAt: &early},
		{UserID: 31, Progress: 70, Target: 70},
		{UserID: 30, Progress: 70, Target: 70},
	}, ByProgress, nil)

	// equal progress: earlier completion first, never-completed after any
	// completion, then user id
	wantOrder := []int64{20, 40, 30, 31}
	for i, userID := range wantOrder {
		if got[i].UserID != userID {
			t.Fatalf("position %d: got user %d want %d", i, got[i].UserID, userID)
		}
		if got[i].Rank != i+1 {
			t.Fatalf("user %d: got rank %d want %d", got[i].UserID, got[i].Rank, i+1)
		}
	}
}

func TestRankMissionByRate(t *testing.T) {
	// 7/70 is 10%, 1/1 is 100%: rate ranks the completed short mission first
	// even though its raw progress is lower
	got := rankMission([]missionRow{
		{UserID: 1, Progress: 7, Target: 70},
		{UserID: 2, Progress: 1, Target: 1},
	}, ByRate, map[int64]int{1: 1, 2: 2})

	if got[0].UserID != 2 {
		t.Fatalf("rate strategy should rank user 2 first, got %d", got[0].UserID)
	}
	for _, r := range got {
		if r.RankChange != 0 {
			t.Fatalf("rate strategy reports no deltas, got %d for user %d", r.RankChange, r.UserID)
		}
	}
}

func TestRankMissionAchievementRateCapped(t *testing.T) {
	got := rankMission([]missionRow{
		{UserID: 1, Progress: 140, Target: 70},
	}, ByProgress, nil)
	if got[0].AchievementRate != 100 {
		t.Fatalf("achievement rate should cap at 100, got %v", got[0].AchievementRate)
	}
}

func TestSnapshotCopyAndReplace(t *testing.T) {
	s := NewSnapshot()

	if prev := s.Previous("again"); len(prev) != 0 {
		t.Fatalf("fresh snapshot should be empty, got %v", prev)
	}

	s.Replace("again", map[int64]int{10: 1, 20: 2})
	prev := s.Previous("again")
	if prev[10] != 1 || prev[20] != 2 {
		t.Fatalf("unexpected snapshot contents: %v", prev)
	}

	// mutating the returned copy must not affect the stored snapshot
	prev[10] = 99
	if again := s.Previous("again"); again[10] != 1 {
		t.Fatalf("snapshot leaked internal state: %v", again)
	}

	s.Replace("again", map[int64]int{30: 1})
	if again := s.Previous("again"); len(again) != 1 || again[30] != 1 {
		t.Fatalf("replace should overwrite, got %v", again)
	}

	if other := s.Previous("sincere"); len(other) != 0 {
		t.Fatalf("missions must not share snapshots, got %v", other)
	}
}
