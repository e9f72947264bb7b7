// Package auth covers participant login and request identity. Participants
// authenticate with the unique code printed on their badge plus their name;
// there are no passwords.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"cospi/internal/fault"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrInvalidLogin = fault.New(fault.Validation, "invalid unique code or name")
	ErrUserNotFound = fault.New(fault.NotFound, "user not found")
)

type User struct {
	ID         int64  `json:"id"`
	UniqueCode string `json:"unique_code"`
	Name       string `json:"name"`
	Company    string `json:"company"`
	// BoothID is set for exhibitor accounts tied to a booth, nil for
	// ordinary participants.
	BoothID *int64 `json:"booth_id,omitempty"`
}

type LoginResult struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// AccountProvisioner creates the user's balance books on first login.
type AccountProvisioner interface {
	EnsureAccounts(ctx context.Context, userID int64) error
}

type Visitor struct {
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Company   string    `json:"company"`
	VisitedAt time.Time `json:"visited_at"`
}

type Service struct {
	db       *pgxpool.Pool
	log      *slog.Logger
	tokens   *Tokens
	accounts AccountProvisioner
}

func NewService(db *pgxpool.Pool, logger *slog.Logger, tokens *Tokens, accounts AccountProvisioner) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, log: logger, tokens: tokens, accounts: accounts}
}

// Login checks the badge code and name pair, provisions balance books on
// first login, and returns a bearer token. Code lookups and name mismatches
// both report the same error so codes cannot be probed.
func (s *Service) Login(ctx context.Context, uniqueCode, name string) (LoginResult, error) {
	uniqueCode = strings.TrimSpace(uniqueCode)
	name = strings.TrimSpace(name)
	if uniqueCode == "" || name == "" {
		return LoginResult{}, ErrInvalidLogin
	}

	var u User
	err := s.db.QueryRow(ctx, `
		SELECT id, unique_code, name, company, booth_id
		FROM users
		WHERE unique_code = $1
	`, uniqueCode).Scan(&u.ID, &u.UniqueCode, &u.Name, &u.Company, &u.BoothID)
	if errors.Is(err, pgx.ErrNoRows) {
		return LoginResult{}, ErrInvalidLogin
	}
	if err != nil {
		return LoginResult{}, err
	}
	if !strings.EqualFold(u.Name, name) {
		return LoginResult{}, ErrInvalidLogin
	}

	if err := s.accounts.EnsureAccounts(ctx, u.ID); err != nil {
		return LoginResult{}, err
	}

	token, err := s.tokens.Issue(u.ID, time.Now())
	if err != nil {
		return LoginResult{}, err
	}

	s.log.Info("user logged in", "user_id", u.ID)
	return LoginResult{User: u, Token: token}, nil
}

func (s *Service) GetUser(ctx context.Context, userID int64) (User, error) {
	var u User
	err := s.db.QueryRow(ctx, `
		SELECT id, unique_code, name, company, booth_id
		FROM users
		WHERE id = $1
	`, userID).Scan(&u.ID, &u.UniqueCode, &u.Name, &u.Company, &u.BoothID)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	return u, err
}

// MyBoothVisitors lists who checked in at the caller's own booth. Only
// exhibitor accounts have one.
func (s *Service) MyBoothVisitors(ctx context.Context, userID int64) ([]Visitor, error) {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.BoothID == nil {
		return nil, fault.New(fault.State, "no booth assigned to this account")
	}

	rows, err := s.db.Query(ctx, `
		SELECT v.user_id, u.name, u.company, v.visited_at
		FROM booth_visits v
		JOIN users u ON u.id = v.user_id
		WHERE v.booth_id = $1
		ORDER BY v.visited_at DESC
	`, *u.BoothID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Visitor, 0)
	for rows.Next() {
		var v Visitor
		if err := rows.Scan(&v.UserID, &v.Name, &v.Company, &v.VisitedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
