package ledger

import (
	"time"

	"cospi/internal/fault"
)

// Ledger names one of the two balance books every participant holds. The
// coin book backs booth investment, the stock book backs booth trading; both
// run through the same engine with different Rules.
type Ledger string

const (
	Coin  Ledger = "coin"
	Stock Ledger = "stock"
)

// Kind is the direction of a balance-affecting operation as stored in the
// history log. CreditIn moves balance into a holding (invest/buy), CreditOut
// moves it back (withdraw/sell).
type Kind string

const (
	CreditIn  Kind = "CREDIT_IN"
	CreditOut Kind = "CREDIT_OUT"
)

// Rules parameterizes the engine per ledger.
type Rules struct {
	// Unit is the minimum denomination; amounts must be positive multiples.
	Unit int64
	// CapPerBooth caps a single (user, booth) holding; 0 disables the check.
	CapPerBooth int64
	// RequireVisitAndRating gates mutations on a recorded booth visit and a
	// submitted rating for that booth.
	RequireVisitAndRating bool
	// StartBalance is the balance granted when the account is first created.
	StartBalance int64
	// InvalidatesIndex marks committed mutations as market-index-affecting.
	InvalidatesIndex bool
}

type Config struct {
	Coin        Rules
	Stock       Rules
	LockTimeout time.Duration
}

type Result struct {
	Ledger       Ledger `json:"ledger"`
	Kind         Kind   `json:"kind"`
	Amount       int64  `json:"amount"`
	BalanceAfter int64  `json:"balance_after"`
}

type Holding struct {
	BoothID    int64  `json:"booth_id"`
	BoothName  string `json:"booth_name"`
	LogoEmoji  string `json:"logo_emoji"`
	ThemeColor string `json:"theme_color"`
	Amount     int64  `json:"amount"`
}

type Record struct {
	ID           int64     `json:"id"`
	BoothID      int64     `json:"booth_id"`
	BoothName    string    `json:"booth_name"`
	LogoEmoji    string    `json:"logo_emoji"`
	ThemeColor   string    `json:"theme_color"`
	Kind         Kind      `json:"kind"`
	Amount       int64     `json:"amount"`
	BalanceAfter int64     `json:"balance_after"`
	CreatedAt    time.Time `json:"created_at"`
}

var (
	ErrAmountNotPositive   = fault.New(fault.Validation, "amount must be greater than zero")
	ErrAmountNotUnit       = fault.New(fault.Validation, "amount must be a multiple of the trade unit")
	ErrBoothNotFound       = fault.New(fault.NotFound, "booth not found")
	ErrAccountNotFound     = fault.New(fault.NotFound, "account not found")
	ErrHoldingNotFound     = fault.New(fault.NotFound, "no holding in this booth")
	ErrInsufficientBalance = fault.New(fault.State, "insufficient balance")
	ErrInsufficientHolding = fault.New(fault.State, "amount exceeds the held amount")
	ErrBoothCapExceeded    = fault.New(fault.State, "per-booth holding cap exceeded")
	ErrVisitRequired       = fault.New(fault.State, "booth must be visited before trading")
	ErrRatingRequired      = fault.New(fault.State, "booth must be rated before trading")
	ErrContention          = fault.New(fault.Contention, "operation contended, retry")
)

// ValidateAmount runs the lock-free precondition: positive and a multiple of
// the ledger's unit. Called before any I/O so malformed requests never touch
// storage.
func ValidateAmount(amount, unit int64) error {
	if amount <= 0 {
		return ErrAmountNotPositive
	}
	if unit > 0 && amount%unit != 0 {
		return ErrAmountNotUnit
	}
	return nil
}

// moveFunds applies one mutation to a locked (balance, held) pair. CreditIn
// needs balance cover and respects the per-booth cap; CreditOut needs holding
// cover. Returns the new pair, or the state fault that rejects the move.
func moveFunds(kind Kind, balance, held, amount int64, rules Rules) (int64, int64, error) {
	switch kind {
	case CreditIn:
		if balance < amount {
			return balance, held, ErrInsufficientBalance
		}
		if rules.CapPerBooth > 0 && held+amount > rules.CapPerBooth {
			return balance, held, ErrBoothCapExceeded
		}
		return balance - amount, held + amount, nil
	case CreditOut:
		if held < amount {
			return balance, held, ErrInsufficientHolding
		}
		return balance + amount, held - amount, nil
	}
	return balance, held, nil
}
