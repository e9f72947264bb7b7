// Package mission tracks per-user progress against a fixed mission catalog.
// Completion is a one-way latch: once a mission is completed it stays
// completed no matter what later progress values arrive.
package mission

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"cospi/internal/fault"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrUnknownMission = fault.New(fault.Validation, "unknown mission")
	ErrUserNotFound   = fault.New(fault.NotFound, "user not found")
)

type Progress struct {
	MissionID       string     `json:"mission_id"`
	Progress        int        `json:"progress"`
	Target          int        `json:"target"`
	Completed       bool       `json:"completed"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	AchievementRate float64    `json:"achievement_rate"`
}

// Catalog maps mission ids to their targets in display order.
type Catalog struct {
	Order   []string
	Targets map[string]int
}

// DefaultCatalog is the event's mission set.
func DefaultCatalog() Catalog {
	return Catalog{
		Order: []string{"renew", "dream", "result", "again", "sincere", "together"},
		Targets: map[string]int{
			"renew":    1,
			"dream":    1,
			"result":   1,
			"again":    70,
			"sincere":  12,
			"together": 1,
		},
	}
}

type Tracker struct {
	db      *pgxpool.Pool
	log     *slog.Logger
	catalog Catalog
	// trackAfterComplete keeps the side-effect hook updating progress past
	// completion; when false the hook short-circuits on completed missions.
	trackAfterComplete bool
}

func NewTracker(db *pgxpool.Pool, logger *slog.Logger, catalog Catalog, trackAfterComplete bool) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{db: db, log: logger, catalog: catalog, trackAfterComplete: trackAfterComplete}
}

func (t *Tracker) Target(missionID string) (int, bool) {
	target, ok := t.catalog.Targets[missionID]
	return target, ok
}

// UpdateProgress sets a user's progress for a mission and applies the
// completion latch. Unknown mission ids fail before touching storage.
func (t *Tracker) UpdateProgress(ctx context.Context, userID int64, missionID string, progress int) (Progress, error) {
	target, ok := t.catalog.Targets[missionID]
	if !ok {
		return Progress{}, ErrUnknownMission
	}
	return t.write(ctx, userID, missionID, func(r state) state {
		return advance(r, progress, target, time.Now())
	}, target)
}

// Complete force-sets the mission to its target and marks it completed,
// independent of measured progress.
func (t *Tracker) Complete(ctx context.Context, userID int64, missionID string) (Progress, error) {
	target, ok := t.catalog.Targets[missionID]
	if !ok {
		return Progress{}, ErrUnknownMission
	}
	return t.write(ctx, userID, missionID, func(r state) state {
		now := time.Now()
		r.progress = target
		r.target = target
		r.completed = true
		r.completedAt = &now
		return r
	}, target)
}

// CheckAndUpdate is the hook other write paths call with a recomputed
// qualifying-action count. Unknown missions are ignored (the caller is a side
// effect, not a user request).
func (t *Tracker) CheckAndUpdate(ctx context.Context, userID int64, missionID string, currentProgress int) error {
	if _, ok := t.catalog.Targets[missionID]; !ok {
		return nil
	}
	if !t.trackAfterComplete {
		var completed bool
		err := t.db.QueryRow(ctx, `
			SELECT completed FROM user_missions WHERE user_id = $1 AND mission_id = $2
		`, userID, missionID).Scan(&completed)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		if completed {
			return nil
		}
	}
	_, err := t.UpdateProgress(ctx, userID, missionID, currentProgress)
	return err
}

// MyMissions returns one row per catalog mission, zero-valued where the user
// has no progress yet.
func (t *Tracker) MyMissions(ctx context.Context, userID int64) ([]Progress, error) {
	rows, err := t.db.Query(ctx, `
		SELECT mission_id, progress, target, completed, completed_at
		FROM user_missions
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	have := make(map[string]Progress)
	for rows.Next() {
		var p Progress
		if err := rows.Scan(&p.MissionID, &p.Progress, &p.Target, &p.Completed, &p.CompletedAt); err != nil {
			return nil, err
		}
		p.AchievementRate = rate(p.Progress, p.Target)
		have[p.MissionID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]Progress, 0, len(t.catalog.Order))
	for _, id := range t.catalog.Order {
		if p, ok := have[id]; ok {
			out = append(out, p)
			continue
		}
		out = append(out, Progress{MissionID: id, Target: t.catalog.Targets[id]})
	}
	return out, nil
}

type state struct {
	progress    int
	target      int
	completed   bool
	completedAt *time.Time
}

// advance applies one progress report. Negative reports clamp to zero; a
// report at or past the target latches completion with the given timestamp; a
// later lower report never un-completes.
func advance(r state, progress, target int, now time.Time) state {
	if progress < 0 {
		progress = 0
	}
	r.progress = progress
	r.target = target
	if r.progress >= r.target && !r.completed {
		r.completed = true
		r.completedAt = &now
	}
	return r
}

func rate(progress, target int) float64 {
	if target <= 0 {
		return 0
	}
	v := float64(progress) / float64(target) * 100
	if v > 100 {
		v = 100
	}
	return v
}

func (t *Tracker) write(ctx context.Context, userID int64, missionID string, mutate func(state) state, target int) (Progress, error) {
	tx, err := t.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return Progress{}, err
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return Progress{}, err
	}
	if !exists {
		return Progress{}, ErrUserNotFound
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO user_missions (user_id, mission_id, progress, target)
		VALUES ($1, $2, 0, $3)
		ON CONFLICT (user_id, mission_id) DO NOTHING
	`, userID, missionID, target); err != nil {
		return Progress{}, err
	}

	var r state
	if err := tx.QueryRow(ctx, `
		SELECT progress, target, completed, completed_at
		FROM user_missions
		WHERE user_id = $1 AND mission_id = $2
		FOR UPDATE
	`, userID, missionID).Scan(&r.progress, &r.target, &r.completed, &r.completedAt); err != nil {
		return Progress{}, err
	}

	r = mutate(r)

	if _, err := tx.Exec(ctx, `
		UPDATE user_missions
		SET progress = $1, target = $2, completed = $3, completed_at = $4
		WHERE user_id = $5 AND mission_id = $6
	`, r.progress, r.target, r.completed, r.completedAt, userID, missionID); err != nil {
		return Progress{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Progress{}, err
	}

	return Progress{
		MissionID:       missionID,
		Progress:        r.progress,
		Target:          r.target,
		Completed:       r.completed,
		CompletedAt:     r.completedAt,
		AchievementRate: rate(r.progress, r.target),
	}, nil
}
