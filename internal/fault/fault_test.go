package fault

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	base := New(State, "insufficient balance")

	if got := KindOf(base); got != State {
		t.Fatalf("got kind %v want %v", got, State)
	}
	wrapped := fmt.Errorf("apply failed: %w", base)
	if got := KindOf(wrapped); got != State {
		t.Fatalf("wrapped error lost its kind: got %v", got)
	}
	if got := KindOf(errors.New("plain")); got != 0 {
		t.Fatalf("plain error should have zero kind, got %v", got)
	}
	if got := KindOf(nil); got != 0 {
		t.Fatalf("nil error should have zero kind, got %v", got)
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{Validation, "validation"},
		{NotFound, "not_found"},
		{State, "state"},
		{Contention, "contention"},
	}
	for _, tc := range tests {
		if got := tc.kind.String(); got != tc.want {
			t.Fatalf("kind %d: got %q want %q", tc.kind, got, tc.want)
		}
	}
}

func TestErrorIdentity(t *testing.T) {
	sentinel := New(NotFound, "booth not found")
	wrapped := fmt.Errorf("lookup: %w", sentinel)
	if !errors.Is(wrapped, sentinel) {
		t.Fatalf("expected errors.Is to match the sentinel through wrapping")
	}
}
