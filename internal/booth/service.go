// Package booth holds the booth catalog and the engagement features built on
// it: QR check-in visits and six-axis ratings with an optional free-text
// review.
package booth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"cospi/internal/fault"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound        = fault.New(fault.NotFound, "booth not found")
	ErrAlreadyVisited  = fault.New(fault.State, "booth already visited")
	ErrVisitFirst      = fault.New(fault.State, "booth must be visited before rating")
	ErrScoreOutOfRange = fault.New(fault.Validation, "scores must be between 1 and 5")
)

type Booth struct {
	ID           int64  `json:"id"`
	BoothUUID    string `json:"booth_uuid"`
	Zone         string `json:"zone"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	LogoEmoji    string `json:"logo_emoji"`
	ThemeColor   string `json:"theme_color"`
	DisplayOrder int    `json:"display_order"`
}

type Visit struct {
	BoothID    int64     `json:"booth_id"`
	BoothName  string    `json:"booth_name"`
	LogoEmoji  string    `json:"logo_emoji"`
	ThemeColor string    `json:"theme_color"`
	VisitedAt  time.Time `json:"visited_at"`
}

// Scores carries the six rating axes, each 1..5.
type Scores struct {
	First     int `json:"first"`
	Best      int `json:"best"`
	Different int `json:"different"`
	NumberOne int `json:"number_one"`
	Gap       int `json:"gap"`
	Global    int `json:"global"`
}

type Rating struct {
	BoothID   int64     `json:"booth_id"`
	Scores    Scores    `json:"scores"`
	Review    *string   `json:"review,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Review struct {
	UserID    int64     `json:"user_id"`
	UserName  string    `json:"user_name"`
	Company   string    `json:"company"`
	Review    string    `json:"review"`
	CreatedAt time.Time `json:"created_at"`
}

// RatingSummary is the per-booth aggregate for the organizer view.
type RatingSummary struct {
	BoothID      int64   `json:"booth_id"`
	BoothName    string  `json:"booth_name"`
	RatingCount  int64   `json:"rating_count"`
	ReviewCount  int64   `json:"review_count"`
	AvgFirst     float64 `json:"avg_first"`
	AvgBest      float64 `json:"avg_best"`
	AvgDifferent float64 `json:"avg_different"`
	AvgNumberOne float64 `json:"avg_number_one"`
	AvgGap       float64 `json:"avg_gap"`
	AvgGlobal    float64 `json:"avg_global"`
}

// MissionHook receives recomputed qualifying-action counts after visit and
// rating writes commit.
type MissionHook interface {
	CheckAndUpdate(ctx context.Context, userID int64, missionID string, currentProgress int) error
}

const (
	missionVisits  = "again"
	missionReviews = "sincere"
)

type Service struct {
	db       *pgxpool.Pool
	log      *slog.Logger
	missions MissionHook
}

func NewService(db *pgxpool.Pool, logger *slog.Logger, missions MissionHook) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, log: logger, missions: missions}
}

// List returns the full catalog in display order, grouped by zone.
func (s *Service) List(ctx context.Context) ([]Booth, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, booth_uuid, zone, name, category, logo_emoji, theme_color, display_order
		FROM booths
		ORDER BY zone, display_order, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Booth, 0)
	for rows.Next() {
		var b Booth
		if err := rows.Scan(&b.ID, &b.BoothUUID, &b.Zone, &b.Name, &b.Category,
			&b.LogoEmoji, &b.ThemeColor, &b.DisplayOrder); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Service) Get(ctx context.Context, id int64) (Booth, error) {
	return s.get(ctx, `id = $1`, id)
}

// GetByUUID resolves the opaque id printed in a booth's QR code.
func (s *Service) GetByUUID(ctx context.Context, boothUUID string) (Booth, error) {
	return s.get(ctx, `booth_uuid = $1`, boothUUID)
}

func (s *Service) get(ctx context.Context, where string, arg any) (Booth, error) {
	var b Booth
	err := s.db.QueryRow(ctx, `
		SELECT id, booth_uuid, zone, name, category, logo_emoji, theme_color, display_order
		FROM booths
		WHERE `+where, arg).Scan(&b.ID, &b.BoothUUID, &b.Zone, &b.Name, &b.Category,
		&b.LogoEmoji, &b.ThemeColor, &b.DisplayOrder)
	if errors.Is(err, pgx.ErrNoRows) {
		return Booth{}, ErrNotFound
	}
	return b, err
}

// RecordVisit checks a user in at a booth scanned by QR. A booth can be
// visited once per user; repeats are rejected rather than ignored so the
// client can tell the user.
func (s *Service) RecordVisit(ctx context.Context, userID int64, boothUUID string) (Booth, error) {
	b, err := s.GetByUUID(ctx, boothUUID)
	if err != nil {
		return Booth{}, err
	}

	tag, err := s.db.Exec(ctx, `
		INSERT INTO booth_visits (user_id, booth_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, booth_id) DO NOTHING
	`, userID, b.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return Booth{}, fault.New(fault.NotFound, "user not found")
		}
		return Booth{}, err
	}
	if tag.RowsAffected() == 0 {
		return Booth{}, ErrAlreadyVisited
	}

	s.afterVisit(ctx, userID)
	s.log.Info("booth visited", "user_id", userID, "booth_id", b.ID)
	return b, nil
}

// MyVisits lists the user's check-ins, newest first.
func (s *Service) MyVisits(ctx context.Context, userID int64) ([]Visit, error) {
	rows, err := s.db.Query(ctx, `
		SELECT v.booth_id, b.name, b.logo_emoji, b.theme_color, v.visited_at
		FROM booth_visits v
		JOIN booths b ON b.id = v.booth_id
		WHERE v.user_id = $1
		ORDER BY v.visited_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Visit, 0)
	for rows.Next() {
		var v Visit
		if err := rows.Scan(&v.BoothID, &v.BoothName, &v.LogoEmoji, &v.ThemeColor, &v.VisitedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Service) HasVisited(ctx context.Context, userID, boothID int64) (bool, error) {
	var visited bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM booth_visits WHERE user_id = $1 AND booth_id = $2)
	`, userID, boothID).Scan(&visited)
	return visited, err
}

// SubmitRating upserts the user's rating for a booth. Rating requires a prior
// visit; resubmitting replaces all six scores and the review.
func (s *Service) SubmitRating(ctx context.Context, userID, boothID int64, scores Scores, review *string) (Rating, error) {
	for _, v := range []int{scores.First, scores.Best, scores.Different, scores.NumberOne, scores.Gap, scores.Global} {
		if v < 1 || v > 5 {
			return Rating{}, ErrScoreOutOfRange
		}
	}
	if _, err := s.Get(ctx, boothID); err != nil {
		return Rating{}, err
	}
	visited, err := s.HasVisited(ctx, userID, boothID)
	if err != nil {
		return Rating{}, err
	}
	if !visited {
		return Rating{}, ErrVisitFirst
	}
	if review != nil && *review == "" {
		review = nil
	}

	var r Rating
	r.BoothID = boothID
	r.Scores = scores
	err = s.db.QueryRow(ctx, `
		INSERT INTO booth_ratings
			(user_id, booth_id, score_first, score_best, score_different,
			 score_number_one, score_gap, score_global, review)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, booth_id) DO UPDATE SET
			score_first = EXCLUDED.score_first,
			score_best = EXCLUDED.score_best,
			score_different = EXCLUDED.score_different,
			score_number_one = EXCLUDED.score_number_one,
			score_gap = EXCLUDED.score_gap,
			score_global = EXCLUDED.score_global,
			review = EXCLUDED.review,
			updated_at = now()
		RETURNING review, created_at, updated_at
	`, userID, boothID, scores.First, scores.Best, scores.Different,
		scores.NumberOne, scores.Gap, scores.Global, review).Scan(&r.Review, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return Rating{}, err
	}

	s.afterReview(ctx, userID)
	s.log.Info("rating submitted", "user_id", userID, "booth_id", boothID, "has_review", r.Review != nil)
	return r, nil
}

func (s *Service) MyRating(ctx context.Context, userID, boothID int64) (Rating, error) {
	var r Rating
	r.BoothID = boothID
	err := s.db.QueryRow(ctx, `
		SELECT score_first, score_best, score_different, score_number_one,
		       score_gap, score_global, review, created_at, updated_at
		FROM booth_ratings
		WHERE user_id = $1 AND booth_id = $2
	`, userID, boothID).Scan(&r.Scores.First, &r.Scores.Best, &r.Scores.Different,
		&r.Scores.NumberOne, &r.Scores.Gap, &r.Scores.Global, &r.Review, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Rating{}, fault.New(fault.NotFound, "rating not found")
	}
	return r, err
}

// DeleteReview removes the free-text review while keeping the scores.
func (s *Service) DeleteReview(ctx context.Context, userID, boothID int64) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE booth_ratings SET review = NULL, updated_at = now()
		WHERE user_id = $1 AND booth_id = $2 AND review IS NOT NULL
	`, userID, boothID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fault.New(fault.NotFound, "review not found")
	}
	s.afterReview(ctx, userID)
	return nil
}

// Reviews lists a booth's non-empty reviews, newest first.
func (s *Service) Reviews(ctx context.Context, boothID int64) ([]Review, error) {
	if _, err := s.Get(ctx, boothID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, `
		SELECT r.user_id, u.name, u.company, r.review, r.created_at
		FROM booth_ratings r
		JOIN users u ON u.id = r.user_id
		WHERE r.booth_id = $1 AND r.review IS NOT NULL
		ORDER BY r.created_at DESC
	`, boothID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Review, 0)
	for rows.Next() {
		var r Review
		if err := rows.Scan(&r.UserID, &r.UserName, &r.Company, &r.Review, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RatingSummaries aggregates scores per booth for the organizer dashboard.
// Every booth appears, unrated ones with zero counts.
func (s *Service) RatingSummaries(ctx context.Context) ([]RatingSummary, error) {
	rows, err := s.db.Query(ctx, `
		SELECT b.id, b.name,
		       COUNT(r.user_id),
		       COUNT(r.review),
		       COALESCE(AVG(r.score_first), 0),
		       COALESCE(AVG(r.score_best), 0),
		       COALESCE(AVG(r.score_different), 0),
		       COALESCE(AVG(r.score_number_one), 0),
		       COALESCE(AVG(r.score_gap), 0),
		       COALESCE(AVG(r.score_global), 0)
		FROM booths b
		LEFT JOIN booth_ratings r ON r.booth_id = b.id
		GROUP BY b.id
		ORDER BY b.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]RatingSummary, 0)
	for rows.Next() {
		var r RatingSummary
		if err := rows.Scan(&r.BoothID, &r.BoothName, &r.RatingCount, &r.ReviewCount,
			&r.AvgFirst, &r.AvgBest, &r.AvgDifferent, &r.AvgNumberOne, &r.AvgGap, &r.AvgGlobal); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Seed inserts a booth when the catalog is managed from config or a fixture
// file. Existing booth_uuids are left untouched.
func (s *Service) Seed(ctx context.Context, b Booth) error {
	if b.BoothUUID == "" {
		b.BoothUUID = uuid.NewString()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO booths (booth_uuid, zone, name, category, logo_emoji, theme_color, display_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (booth_uuid) DO NOTHING
	`, b.BoothUUID, b.Zone, b.Name, b.Category, b.LogoEmoji, b.ThemeColor, b.DisplayOrder)
	return err
}

// afterVisit recomputes the visit count and feeds the visit mission. Hook
// failures are logged, never surfaced: the visit itself already committed.
func (s *Service) afterVisit(ctx context.Context, userID int64) {
	if s.missions == nil {
		return
	}
	var n int
	if err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM booth_visits WHERE user_id = $1
	`, userID).Scan(&n); err != nil {
		s.log.Error("visit count failed", "user_id", userID, "error", err)
		return
	}
	if err := s.missions.CheckAndUpdate(ctx, userID, missionVisits, n); err != nil {
		s.log.Error("mission update failed", "user_id", userID, "mission", missionVisits, "error", err)
	}
}

// afterReview recomputes the non-empty review count and feeds the review
// mission.
func (s *Service) afterReview(ctx context.Context, userID int64) {
	if s.missions == nil {
		return
	}
	var n int
	if err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM booth_ratings WHERE user_id = $1 AND review IS NOT NULL
	`, userID).Scan(&n); err != nil {
		s.log.Error("review count failed", "user_id", userID, "error", err)
		return
	}
	if err := s.missions.CheckAndUpdate(ctx, userID, missionReviews, n); err != nil {
		s.log.Error("mission update failed", "user_id", userID, "mission", missionReviews, "error", err)
	}
}
