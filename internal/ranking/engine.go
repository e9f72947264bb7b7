// Package ranking computes the booth investment leaderboard and the per-
// mission leaderboard. Both are full recomputations over the current data;
// nothing incremental is maintained.
package ranking

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"cospi/internal/fault"
	"cospi/internal/ledger"
	"cospi/internal/mission"

	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUnknownMission = fault.New(fault.Validation, "unknown mission")

// Strategy selects the mission ranking criterion.
type Strategy string

const (
	// ByProgress ranks on raw progress and reports rank movement deltas.
	ByProgress Strategy = "progress"
	// ByRate ranks on achievement rate; no deltas are reported.
	ByRate Strategy = "rate"
)

type BoothRank struct {
	Rank            int    `json:"rank"`
	BoothID         int64  `json:"booth_id"`
	BoothName       string `json:"booth_name"`
	Category        string `json:"category"`
	LogoEmoji       string `json:"logo_emoji"`
	ThemeColor      string `json:"theme_color"`
	TotalInvestment int64  `json:"total_investment"`
	InvestorCount   int64  `json:"investor_count"`
}

type MissionRank struct {
	Rank            int     `json:"rank"`
	UserID          int64   `json:"user_id"`
	UserName        string  `json:"user_name"`
	Company         string  `json:"company"`
	Progress        int     `json:"progress"`
	Target          int     `json:"target"`
	Completed       bool    `json:"completed"`
	AchievementRate float64 `json:"achievement_rate"`
	RankChange      int     `json:"rank_change"`
}

type MissionRanking struct {
	Rankings  []MissionRank `json:"rankings"`
	MyRanking *MissionRank  `json:"my_ranking"`
}

const missionRankingLimit = 20

type Engine struct {
	db       *pgxpool.Pool
	log      *slog.Logger
	catalog  mission.Catalog
	strategy Strategy
	snap     *Snapshot
}

func NewEngine(db *pgxpool.Pool, logger *slog.Logger, catalog mission.Catalog, strategy Strategy, snap *Snapshot) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if snap == nil {
		snap = NewSnapshot()
	}
	return &Engine{db: db, log: logger, catalog: catalog, strategy: strategy, snap: snap}
}

// BoothRanking aggregates positive coin holdings per booth. Every booth
// appears, including those with no investment yet.
func (e *Engine) BoothRanking(ctx context.Context) ([]BoothRank, error) {
	rows, err := e.db.Query(ctx, `
		SELECT b.id, b.name, b.category, b.logo_emoji, b.theme_color,
		       COALESCE(SUM(h.amount), 0),
		       COUNT(DISTINCT h.user_id)
		FROM booths b
		LEFT JOIN holdings h
		       ON h.booth_id = b.id AND h.ledger = $1 AND h.amount > 0
		GROUP BY b.id
	`, ledger.Coin)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]BoothRank, 0)
	for rows.Next() {
		var r BoothRank
		if err := rows.Scan(&r.BoothID, &r.BoothName, &r.Category, &r.LogoEmoji, &r.ThemeColor,
			&r.TotalInvestment, &r.InvestorCount); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rankBooths(out), nil
}

// rankBooths orders by total investment descending, booth id ascending as the
// deterministic tie-break, and assigns ranks from 1. The tie-break makes the
// order total, so positional rank is well defined.
func rankBooths(entries []BoothRank) []BoothRank {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalInvestment != entries[j].TotalInvestment {
			return entries[i].TotalInvestment > entries[j].TotalInvestment
		}
		return entries[i].BoothID < entries[j].BoothID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

type missionRow struct {
	UserID      int64
	Name        string
	Company     string
	Progress    int
	Target      int
	Completed   bool
	CompletedAt *time.Time
}

// Ranking computes the leaderboard for one mission, reports the caller's own
// entry from the same computed list, and rolls the previous-rank snapshot
// forward.
func (e *Engine) Ranking(ctx context.Context, missionID string, currentUserID int64) (MissionRanking, error) {
	if _, ok := e.catalog.Targets[missionID]; !ok {
		return MissionRanking{}, ErrUnknownMission
	}

	rows, err := e.db.Query(ctx, `
		SELECT um.user_id, u.name, u.company, um.progress, um.target, um.completed, um.completed_at
		FROM user_missions um
		JOIN users u ON u.id = um.user_id
		WHERE um.mission_id = $1
	`, missionID)
	if err != nil {
		return MissionRanking{}, err
	}
	defer rows.Close()

	var entries []missionRow
	for rows.Next() {
		var r missionRow
		if err := rows.Scan(&r.UserID, &r.Name, &r.Company, &r.Progress, &r.Target, &r.Completed, &r.CompletedAt); err != nil {
			return MissionRanking{}, err
		}
		entries = append(entries, r)
	}
	if err := rows.Err(); err != nil {
		return MissionRanking{}, err
	}

	ranked := rankMission(entries, e.strategy, e.snap.Previous(missionID))

	newSnapshot := make(map[int64]int, len(ranked))
	for _, r := range ranked {
		newSnapshot[r.UserID] = r.Rank
	}
	e.snap.Replace(missionID, newSnapshot)

	out := MissionRanking{}
	for i := range ranked {
		if ranked[i].UserID == currentUserID {
			mine := ranked[i]
			out.MyRanking = &mine
			break
		}
	}
	if len(ranked) > missionRankingLimit {
		ranked = ranked[:missionRankingLimit]
	}
	out.Rankings = ranked
	return out, nil
}

// rankMission sorts by the strategy's criterion descending, then completion
// time ascending (earlier completion ranks higher, never-completed last),
// then user id ascending. The order is total, so rank equals position.
// Movement deltas come from the previous snapshot: previousRank - rank,
// positive meaning moved up, zero for users absent from the snapshot. Deltas
// apply to the progress strategy only.
func rankMission(entries []missionRow, strategy Strategy, previous map[int64]int) []MissionRank {
	score := func(r missionRow) float64 {
		if strategy == ByRate {
			if r.Target <= 0 {
				return 0
			}
			v := float64(r.Progress) / float64(r.Target) * 100
			if v > 100 {
				v = 100
			}
			return v
		}
		return float64(r.Progress)
	}

	sort.Slice(entries, func(i, j int) bool {
		si, sj := score(entries[i]), score(entries[j])
		if si != sj {
			return si > sj
		}
		ci, cj := entries[i].CompletedAt, entries[j].CompletedAt
		switch {
		case ci != nil && cj != nil && !ci.Equal(*cj):
			return ci.Before(*cj)
		case ci != nil && cj == nil:
			return true
		case ci == nil && cj != nil:
			return false
		}
		return entries[i].UserID < entries[j].UserID
	})

	out := make([]MissionRank, 0, len(entries))
	for i, r := range entries {
		rank := i + 1
		change := 0
		if strategy == ByProgress {
			if prev, ok := previous[r.UserID]; ok && prev > 0 {
				change = prev - rank
			}
		}
		var achieved float64
		if r.Target > 0 {
			achieved = float64(r.Progress) / float64(r.Target) * 100
			if achieved > 100 {
				achieved = 100
			}
		}
		out = append(out, MissionRank{
			Rank:            rank,
			UserID:          r.UserID,
			UserName:        r.Name,
			Company:         r.Company,
			Progress:        r.Progress,
			Target:          r.Target,
			Completed:       r.Completed,
			AchievementRate: achieved,
			RankChange:      change,
		})
	}
	return out
}
