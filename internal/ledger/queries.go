package ledger

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// EnsureAccounts creates both balance books for a user if they do not exist
// yet. Called at login; balances start at the configured grant and are never
// re-granted.
func (s *Service) EnsureAccounts(ctx context.Context, userID int64) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO accounts (user_id, ledger, balance)
		VALUES ($1, $2, $3), ($1, $4, $5)
		ON CONFLICT (user_id, ledger) DO NOTHING
	`, userID, Coin, s.cfg.Coin.StartBalance, Stock, s.cfg.Stock.StartBalance)
	return err
}

func (s *Service) Balance(ctx context.Context, userID int64, l Ledger) (int64, error) {
	var balance int64
	err := s.db.QueryRow(ctx, `
		SELECT balance FROM accounts WHERE user_id = $1 AND ledger = $2
	`, userID, l).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrAccountNotFound
	}
	return balance, err
}

// Holdings lists a user's positive holdings on one ledger, joined with the
// booth catalog for display.
func (s *Service) Holdings(ctx context.Context, userID int64, l Ledger) ([]Holding, error) {
	rows, err := s.db.Query(ctx, `
		SELECT h.booth_id, b.name, b.logo_emoji, b.theme_color, h.amount
		FROM holdings h
		JOIN booths b ON b.id = h.booth_id
		WHERE h.user_id = $1 AND h.ledger = $2 AND h.amount > 0
		ORDER BY h.booth_id
	`, userID, l)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Holding, 0)
	for rows.Next() {
		var h Holding
		if err := rows.Scan(&h.BoothID, &h.BoothName, &h.LogoEmoji, &h.ThemeColor, &h.Amount); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// History returns a user's ledger records, newest first. Every record carries
// the balance snapshot taken when it was written, so the balance curve can be
// replayed without recomputation.
func (s *Service) History(ctx context.Context, userID int64, l Ledger) ([]Record, error) {
	return s.history(ctx, userID, l, 0)
}

// HistoryByBooth is History narrowed to one booth.
func (s *Service) HistoryByBooth(ctx context.Context, userID int64, l Ledger, boothID int64) ([]Record, error) {
	return s.history(ctx, userID, l, boothID)
}

func (s *Service) history(ctx context.Context, userID int64, l Ledger, boothID int64) ([]Record, error) {
	query := `
		SELECT h.id, h.booth_id, b.name, b.logo_emoji, b.theme_color,
		       h.kind, h.amount, h.balance_after, h.created_at
		FROM history h
		JOIN booths b ON b.id = h.booth_id
		WHERE h.user_id = $1 AND h.ledger = $2
	`
	args := []any{userID, l}
	if boothID > 0 {
		query += ` AND h.booth_id = $3`
		args = append(args, boothID)
	}
	query += ` ORDER BY h.created_at DESC, h.id DESC`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Record, 0)
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.BoothID, &r.BoothName, &r.LogoEmoji, &r.ThemeColor,
			&r.Kind, &r.Amount, &r.BalanceAfter, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
