package ledger

import (
	"errors"
	"testing"
)

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		name   string
		amount int64
		unit   int64
		want   error
	}{
		{name: "valid multiple", amount: 30_000, unit: 10_000, want: nil},
		{name: "exact unit", amount: 10_000, unit: 10_000, want: nil},
		{name: "zero", amount: 0, unit: 10_000, want: ErrAmountNotPositive},
		{name: "negative", amount: -10_000, unit: 10_000, want: ErrAmountNotPositive},
		{name: "not a multiple", amount: 15_000, unit: 10_000, want: ErrAmountNotUnit},
		{name: "stock unit multiple", amount: 40_000_000, unit: 10_000_000, want: nil},
		{name: "stock unit remainder", amount: 5_000_000, unit: 10_000_000, want: ErrAmountNotUnit},
		{name: "unit disabled", amount: 7, unit: 0, want: nil},
	}
	for _, tc := range tests {
		err := ValidateAmount(tc.amount, tc.unit)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: amount=%d unit=%d got %v want %v", tc.name, tc.amount, tc.unit, err, tc.want)
		}
	}
}

func TestMoveFunds(t *testing.T) {
	capped := Rules{CapPerBooth: 40_000_000}
	tests := []struct {
		name        string
		kind        Kind
		balance     int64
		held        int64
		amount      int64
		rules       Rules
		wantBalance int64
		wantHeld    int64
		wantErr     error
	}{
		{name: "invest", kind: CreditIn, balance: 1_000_000, held: 0, amount: 30_000, wantBalance: 970_000, wantHeld: 30_000},
		{name: "invest whole balance", kind: CreditIn, balance: 1_000_000, held: 0, amount: 1_000_000, wantBalance: 0, wantHeld: 1_000_000},
		{name: "invest over balance", kind: CreditIn, balance: 1_000_000, held: 0, amount: 1_010_000, wantBalance: 1_000_000, wantErr: ErrInsufficientBalance},
		{name: "withdraw", kind: CreditOut, balance: 970_000, held: 30_000, amount: 10_000, wantBalance: 980_000, wantHeld: 20_000},
		{name: "withdraw whole holding", kind: CreditOut, balance: 0, held: 30_000, amount: 30_000, wantBalance: 30_000, wantHeld: 0},
		{name: "withdraw over holding", kind: CreditOut, balance: 970_000, held: 30_000, amount: 40_000, wantBalance: 970_000, wantHeld: 30_000, wantErr: ErrInsufficientHolding},
		{name: "buy up to cap", kind: CreditIn, balance: 100_000_000, held: 30_000_000, amount: 10_000_000, rules: capped, wantBalance: 90_000_000, wantHeld: 40_000_000},
		{name: "buy over cap", kind: CreditIn, balance: 100_000_000, held: 30_000_000, amount: 20_000_000, rules: capped, wantBalance: 100_000_000, wantHeld: 30_000_000, wantErr: ErrBoothCapExceeded},
		{name: "cap disabled", kind: CreditIn, balance: 100_000_000, held: 30_000_000, amount: 20_000_000, wantBalance: 80_000_000, wantHeld: 50_000_000},
		{name: "balance checked before cap", kind: CreditIn, balance: 10_000_000, held: 30_000_000, amount: 20_000_000, rules: capped, wantBalance: 10_000_000, wantHeld: 30_000_000, wantErr: ErrInsufficientBalance},
	}
	for _, tc := range tests {
		balance, held, err := moveFunds(tc.kind, tc.balance, tc.held, tc.amount, tc.rules)
		if !errors.Is(err, tc.wantErr) {
			t.Fatalf("%s: got err %v want %v", tc.name, err, tc.wantErr)
		}
		if balance != tc.wantBalance {
			t.Fatalf("%s: balance %d want %d", tc.name, balance, tc.wantBalance)
		}
		if held != tc.wantHeld {
			t.Fatalf("%s: held %d want %d", tc.name, held, tc.wantHeld)
		}
	}
}
