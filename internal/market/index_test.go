package market

import (
	"testing"
	"time"

	"cospi/internal/ledger"
)

func TestBuildIndexEmpty(t *testing.T) {
	idx := buildIndex(nil)
	if idx.CurrentTotal != 0 || idx.PreviousTotal != 0 || idx.Change != 0 || idx.ChangeRate != 0 {
		t.Fatalf("empty log should produce a zero index, got %+v", idx)
	}
	if len(idx.History) != 0 {
		t.Fatalf("expected no points, got %d", len(idx.History))
	}
}

func TestBuildIndexFirstTrade(t *testing.T) {
	at := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	idx := buildIndex([]trade{
		{kind: ledger.CreditIn, amount: 10_000_000, createdAt: at},
	})

	if len(idx.History) != 2 {
		t.Fatalf("expected synthetic point plus trade point, got %d", len(idx.History))
	}
	if idx.History[0].Price != 0 {
		t.Fatalf("synthetic point should be zero, got %d", idx.History[0].Price)
	}
	if got := idx.History[0].ChangedAt; !got.Equal(at.Add(-time.Second)) {
		t.Fatalf("synthetic point timestamp: got %v want %v", got, at.Add(-time.Second))
	}
	if idx.CurrentTotal != 10_000_000 {
		t.Fatalf("current total: got %d", idx.CurrentTotal)
	}
	if idx.PreviousTotal != 0 {
		t.Fatalf("previous total should be the synthetic zero, got %d", idx.PreviousTotal)
	}
	if idx.Change != 10_000_000 {
		t.Fatalf("change: got %d", idx.Change)
	}
	// previous is zero, so the rate is defined as zero
	if idx.ChangeRate != 0 {
		t.Fatalf("change rate with zero previous: got %v", idx.ChangeRate)
	}
}

func TestBuildIndexCumulative(t *testing.T) {
	base := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	idx := buildIndex([]trade{
		{kind: ledger.CreditIn, amount: 30_000_000, createdAt: base},
		{kind: ledger.CreditIn, amount: 10_000_000, createdAt: base.Add(time.Minute)},
		{kind: ledger.CreditOut, amount: 20_000_000, createdAt: base.Add(2 * time.Minute)},
	})

	if idx.CurrentTotal != 20_000_000 {
		t.Fatalf("current total: got %d want 20000000", idx.CurrentTotal)
	}
	if idx.PreviousTotal != 40_000_000 {
		t.Fatalf("previous total: got %d want 40000000", idx.PreviousTotal)
	}
	if idx.Change != -20_000_000 {
		t.Fatalf("change: got %d want -20000000", idx.Change)
	}
	if idx.ChangeRate != -50.0 {
		t.Fatalf("change rate: got %v want -50", idx.ChangeRate)
	}

	wantPrices := []int64{0, 30_000_000, 40_000_000, 20_000_000}
	if len(idx.History) != len(wantPrices) {
		t.Fatalf("history length: got %d want %d", len(idx.History), len(wantPrices))
	}
	for i, want := range wantPrices {
		if idx.History[i].Price != want {
			t.Fatalf("point %d: got %d want %d", i, idx.History[i].Price, want)
		}
	}
}

func TestBuildIndexChangeRateRounding(t *testing.T) {
	base := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	idx := buildIndex([]trade{
		{kind: ledger.CreditIn, amount: 30_000_000, createdAt: base},
		{kind: ledger.CreditIn, amount: 10_000_000, createdAt: base.Add(time.Minute)},
	})
	// 10M over 30M is 33.333...%, reported to two decimals
	if idx.ChangeRate != 33.33 {
		t.Fatalf("change rate: got %v want 33.33", idx.ChangeRate)
	}
}
