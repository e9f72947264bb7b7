package db

import (
	"testing"
	"time"
)

func TestOptionsNormalized(t *testing.T) {
	got := Options{URL: "postgres://localhost/cospi"}.normalized()
	if got.MaxConns != 20 || got.MinConns != 2 {
		t.Fatalf("zero sizing should fall back to defaults, got max=%d min=%d", got.MaxConns, got.MinConns)
	}
	if got.MaxConnLifetime != 30*time.Minute || got.MaxConnIdleTime != 10*time.Minute {
		t.Fatalf("zero lifetimes should fall back to defaults, got %v/%v", got.MaxConnLifetime, got.MaxConnIdleTime)
	}

	got = Options{MaxConns: 50, MinConns: 5, MaxConnLifetime: time.Hour, MaxConnIdleTime: time.Minute}.normalized()
	if got.MaxConns != 50 || got.MinConns != 5 || got.MaxConnLifetime != time.Hour || got.MaxConnIdleTime != time.Minute {
		t.Fatalf("explicit sizing must pass through, got %+v", got)
	}

	got = Options{MaxConns: 4, MinConns: 10}.normalized()
	if got.MinConns != 4 {
		t.Fatalf("min conns should clamp to max, got %d", got.MinConns)
	}
}
