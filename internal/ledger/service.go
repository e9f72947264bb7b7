package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IndexInvalidator is notified after a committed mutation on an
// index-affecting ledger. The market aggregator satisfies it.
type IndexInvalidator interface {
	Invalidate()
}

type Service struct {
	db    *pgxpool.Pool
	log   *slog.Logger
	cfg   Config
	index IndexInvalidator
}

func NewService(db *pgxpool.Pool, logger *slog.Logger, cfg Config, index IndexInvalidator) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, log: logger, cfg: cfg, index: index}
}

func (s *Service) rules(l Ledger) Rules {
	if l == Stock {
		return s.cfg.Stock
	}
	return s.cfg.Coin
}

// Invest moves coin balance into a booth holding.
func (s *Service) Invest(ctx context.Context, userID, boothID, amount int64) (Result, error) {
	return s.apply(ctx, Coin, CreditIn, userID, boothID, amount)
}

// Withdraw moves a coin holding back to the balance.
func (s *Service) Withdraw(ctx context.Context, userID, boothID, amount int64) (Result, error) {
	return s.apply(ctx, Coin, CreditOut, userID, boothID, amount)
}

// Buy moves stock balance into a booth holding; gated and capped.
func (s *Service) Buy(ctx context.Context, userID, boothID, amount int64) (Result, error) {
	return s.apply(ctx, Stock, CreditIn, userID, boothID, amount)
}

// Sell moves a stock holding back to the balance; gated.
func (s *Service) Sell(ctx context.Context, userID, boothID, amount int64) (Result, error) {
	return s.apply(ctx, Stock, CreditOut, userID, boothID, amount)
}

// apply is the single mutation path. Lock order is fixed: account row first,
// then holding row, so any pair of operations on the same user serializes
// without deadlock while disjoint users run in parallel.
func (s *Service) apply(ctx context.Context, l Ledger, kind Kind, userID, boothID, amount int64) (Result, error) {
	var out Result
	rules := s.rules(l)

	if err := ValidateAmount(amount, rules.Unit); err != nil {
		return out, err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return out, asContention(err)
	}
	err = func() error {
		defer tx.Rollback(ctx)

		if s.cfg.LockTimeout > 0 {
			if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.cfg.LockTimeout.Milliseconds())); err != nil {
				return err
			}
		}

		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM booths WHERE id = $1)`, boothID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrBoothNotFound
		}

		if rules.RequireVisitAndRating {
			if err := s.checkGate(ctx, tx, userID, boothID); err != nil {
				return err
			}
		}

		var balance int64
		err := tx.QueryRow(ctx, `
			SELECT balance
			FROM accounts
			WHERE user_id = $1 AND ledger = $2
			FOR UPDATE
		`, userID, l).Scan(&balance)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrAccountNotFound
			}
			return err
		}

		held, err := s.lockHolding(ctx, tx, l, kind, userID, boothID)
		if err != nil {
			return err
		}

		balance, held, err = moveFunds(kind, balance, held, amount, rules)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			UPDATE accounts
			SET balance = $1, updated_at = now()
			WHERE user_id = $2 AND ledger = $3
		`, balance, userID, l); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE holdings
			SET amount = $1, updated_at = now()
			WHERE user_id = $2 AND ledger = $3 AND booth_id = $4
		`, held, userID, l, boothID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO history (user_id, ledger, booth_id, kind, amount, balance_after)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, userID, l, boothID, kind, amount, balance); err != nil {
			return err
		}

		out = Result{Ledger: l, Kind: kind, Amount: amount, BalanceAfter: balance}
		return tx.Commit(ctx)
	}()
	if err != nil {
		return Result{}, asContention(err)
	}

	if rules.InvalidatesIndex && s.index != nil {
		s.index.Invalidate()
	}
	s.log.Info("ledger mutation",
		"ledger", l, "kind", kind,
		"user_id", userID, "booth_id", boothID,
		"amount", amount, "balance_after", out.BalanceAfter)
	return out, nil
}

func (s *Service) checkGate(ctx context.Context, tx pgx.Tx, userID, boothID int64) error {
	var visited bool
	if err := tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM booth_visits WHERE user_id = $1 AND booth_id = $2)
	`, userID, boothID).Scan(&visited); err != nil {
		return err
	}
	if !visited {
		return ErrVisitRequired
	}
	var rated bool
	if err := tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM booth_ratings WHERE user_id = $1 AND booth_id = $2)
	`, userID, boothID).Scan(&rated); err != nil {
		return err
	}
	if !rated {
		return ErrRatingRequired
	}
	return nil
}

// lockHolding locks the (user, ledger, booth) holding row inside the current
// transaction. For CreditIn the row is created first if absent, so two
// concurrent first trades cannot race; for CreditOut a missing row means the
// user never held anything here.
func (s *Service) lockHolding(ctx context.Context, tx pgx.Tx, l Ledger, kind Kind, userID, boothID int64) (int64, error) {
	if kind == CreditIn {
		if _, err := tx.Exec(ctx, `
			INSERT INTO holdings (user_id, ledger, booth_id, amount)
			VALUES ($1, $2, $3, 0)
			ON CONFLICT (user_id, ledger, booth_id) DO NOTHING
		`, userID, l, boothID); err != nil {
			return 0, err
		}
	}
	var amount int64
	err := tx.QueryRow(ctx, `
		SELECT amount
		FROM holdings
		WHERE user_id = $1 AND ledger = $2 AND booth_id = $3
		FOR UPDATE
	`, userID, l, boothID).Scan(&amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrHoldingNotFound
		}
		return 0, err
	}
	return amount, nil
}

// asContention maps storage-level lock waits and serialization aborts to the
// retryable contention fault; everything else passes through.
func asContention(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03", "40001", "40P01": // lock_not_available, serialization_failure, deadlock_detected
			return ErrContention
		}
	}
	return err
}
