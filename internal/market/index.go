// Package market derives the COSPI index: the cumulative signed sum of all
// stock-ledger trades over time, exposed as a chartable series.
package market

import (
	"context"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"cospi/internal/ledger"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Point struct {
	Price     int64     `json:"price"`
	ChangedAt time.Time `json:"changed_at"`
}

type Index struct {
	CurrentTotal  int64   `json:"current_total"`
	PreviousTotal int64   `json:"previous_total"`
	Change        int64   `json:"change"`
	ChangeRate    float64 `json:"change_rate"`
	History       []Point `json:"history"`
}

type trade struct {
	kind      ledger.Kind
	amount    int64
	createdAt time.Time
}

// Aggregator recomputes the index from the full ordered trade history and
// caches the result in a single shared slot. The recomputation is a pure
// function of an append-only log, so two racing recomputes after an
// invalidation converge on the same value; the slot needs no lock beyond the
// atomic load/store.
type Aggregator struct {
	db    *pgxpool.Pool
	log   *slog.Logger
	cache atomic.Pointer[Index]
}

func NewAggregator(db *pgxpool.Pool, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{db: db, log: logger}
}

// Invalidate clears the cache. Called synchronously by the ledger after each
// committed buy/sell.
func (a *Aggregator) Invalidate() {
	a.cache.Store(nil)
}

func (a *Aggregator) Get(ctx context.Context) (Index, error) {
	if cached := a.cache.Load(); cached != nil {
		return *cached, nil
	}

	rows, err := a.db.Query(ctx, `
		SELECT kind, amount, created_at
		FROM history
		WHERE ledger = $1
		ORDER BY created_at ASC, id ASC
	`, ledger.Stock)
	if err != nil {
		return Index{}, err
	}
	defer rows.Close()

	var trades []trade
	for rows.Next() {
		var t trade
		if err := rows.Scan(&t.kind, &t.amount, &t.createdAt); err != nil {
			return Index{}, err
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return Index{}, err
	}

	idx := buildIndex(trades)
	a.cache.Store(&idx)
	a.log.Debug("cospi recomputed", "trades", len(trades), "total", idx.CurrentTotal)
	return idx, nil
}

// buildIndex folds the ordered trade log into the index series: start at 0,
// each buy adds its amount, each sell subtracts it. A synthetic zero point one
// second before the first trade gives charts a baseline.
func buildIndex(trades []trade) Index {
	history := make([]Point, 0, len(trades)+1)
	if len(trades) > 0 {
		history = append(history, Point{Price: 0, ChangedAt: trades[0].createdAt.Add(-time.Second)})
	}

	var cumulative int64
	for _, t := range trades {
		if t.kind == ledger.CreditIn {
			cumulative += t.amount
		} else {
			cumulative -= t.amount
		}
		history = append(history, Point{Price: cumulative, ChangedAt: t.createdAt})
	}

	var previous int64
	if len(history) >= 2 {
		previous = history[len(history)-2].Price
	}
	change := cumulative - previous
	var rate float64
	if previous != 0 {
		rate = math.Round(float64(change)/float64(previous)*100*100) / 100
	}

	return Index{
		CurrentTotal:  cumulative,
		PreviousTotal: previous,
		Change:        change,
		ChangeRate:    rate,
		History:       history,
	}
}
