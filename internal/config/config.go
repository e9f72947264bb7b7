package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// API holds everything the server binary needs. All knobs come from the
// environment; the trade/investment denominations are configurable because
// different events run with different currency scales.
type API struct {
	Addr        string        `env:"COSPI_API_ADDR" envDefault:":8080"`
	DatabaseURL string        `env:"DATABASE_URL"`
	TokenSecret string        `env:"COSPI_TOKEN_SECRET"`
	TokenTTL    time.Duration `env:"COSPI_TOKEN_TTL" envDefault:"24h"`

	// Coin ledger (booth investment): uncapped, ungated.
	CoinUnit         int64 `env:"COSPI_COIN_UNIT" envDefault:"10000"`
	CoinStartBalance int64 `env:"COSPI_COIN_START_BALANCE" envDefault:"1000000"`

	// Stock ledger (booth trading): capped per booth, gated on a recorded
	// visit and rating.
	TradeUnit         int64 `env:"COSPI_TRADE_UNIT" envDefault:"10000000"`
	TradeCapPerBooth  int64 `env:"COSPI_TRADE_CAP_PER_BOOTH" envDefault:"40000000"`
	StockStartBalance int64 `env:"COSPI_STOCK_START_BALANCE" envDefault:"100000000"`

	// MissionRankStrategy is "progress" (raw progress, with rank movement
	// deltas) or "rate" (achievement rate, no deltas).
	MissionRankStrategy       string `env:"COSPI_MISSION_RANK_STRATEGY" envDefault:"progress"`
	MissionTrackAfterComplete bool   `env:"COSPI_MISSION_TRACK_AFTER_COMPLETE" envDefault:"true"`

	LockTimeout       time.Duration `env:"COSPI_LOCK_TIMEOUT" envDefault:"3s"`
	StartupSeedBooths bool          `env:"COSPI_STARTUP_SEED_BOOTHS" envDefault:"false"`

	// Connection pool sizing for the single shared Postgres instance.
	DBMaxConns     int32         `env:"COSPI_DB_MAX_CONNS" envDefault:"20"`
	DBMinConns     int32         `env:"COSPI_DB_MIN_CONNS" envDefault:"2"`
	DBConnLifetime time.Duration `env:"COSPI_DB_CONN_LIFETIME" envDefault:"30m"`
	DBConnIdleTime time.Duration `env:"COSPI_DB_CONN_IDLE_TIME" envDefault:"10m"`
}

type CLI struct {
	APIBaseURL string `env:"COSPI_API_BASE_URL" envDefault:"http://localhost:8080"`
}

func LoadAPIFromEnv() (API, error) {
	cfg, err := env.ParseAs[API]()
	if err != nil {
		return cfg, err
	}
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	cfg.TokenSecret = strings.TrimSpace(cfg.TokenSecret)
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.TokenSecret == "" {
		return cfg, fmt.Errorf("COSPI_TOKEN_SECRET is required")
	}
	if cfg.CoinUnit <= 0 || cfg.TradeUnit <= 0 {
		return cfg, fmt.Errorf("trade units must be positive")
	}
	switch cfg.MissionRankStrategy {
	case "progress", "rate":
	default:
		return cfg, fmt.Errorf("COSPI_MISSION_RANK_STRATEGY must be progress or rate, got %q", cfg.MissionRankStrategy)
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLI {
	cfg, err := env.ParseAs[CLI]()
	if err != nil {
		return CLI{APIBaseURL: "http://localhost:8080"}
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	return cfg
}
