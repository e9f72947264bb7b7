package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cospi/internal/api"
	"cospi/internal/auth"
	"cospi/internal/booth"
	"cospi/internal/config"
	"cospi/internal/db"
	"cospi/internal/ledger"
	"cospi/internal/market"
	"cospi/internal/mission"
	"cospi/internal/ranking"
	"cospi/internal/settings"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	pool, err := db.Connect(ctx, db.Options{
		URL:             cfg.DatabaseURL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: cfg.DBConnLifetime,
		MaxConnIdleTime: cfg.DBConnIdleTime,
	})
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		logger.Error("schema init failed", "err", err)
		os.Exit(1)
	}

	catalog := mission.DefaultCatalog()
	marketAgg := market.NewAggregator(pool, logger)
	ledgerSvc := ledger.NewService(pool, logger, ledger.Config{
		Coin: ledger.Rules{
			Unit:         cfg.CoinUnit,
			StartBalance: cfg.CoinStartBalance,
		},
		Stock: ledger.Rules{
			Unit:                  cfg.TradeUnit,
			CapPerBooth:           cfg.TradeCapPerBooth,
			RequireVisitAndRating: true,
			StartBalance:          cfg.StockStartBalance,
			InvalidatesIndex:      true,
		},
		LockTimeout: cfg.LockTimeout,
	}, marketAgg)
	missions := mission.NewTracker(pool, logger, catalog, cfg.MissionTrackAfterComplete)
	boothSvc := booth.NewService(pool, logger, missions)
	rankingEng := ranking.NewEngine(pool, logger, catalog, ranking.Strategy(cfg.MissionRankStrategy), ranking.NewSnapshot())
	store := settings.NewStore(pool)
	tokens := auth.NewTokens(cfg.TokenSecret, cfg.TokenTTL)
	authSvc := auth.NewService(pool, logger, tokens, ledgerSvc)

	if cfg.StartupSeedBooths {
		for _, b := range defaultBooths() {
			if err := boothSvc.Seed(ctx, b); err != nil {
				logger.Error("seed booths failed", "err", err)
				os.Exit(1)
			}
		}
	}

	server := api.New(cfg, logger, tokens, authSvc, ledgerSvc, marketAgg, missions, rankingEng, boothSvc, store)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("cospi api listening", "addr", cfg.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}

// defaultBooths is a starter catalog for local runs; production events load
// the real catalog from fixtures.
func defaultBooths() []booth.Booth {
	return []booth.Booth{
		{Zone: "A", Name: "Renewable Futures", Category: "energy", LogoEmoji: "⚡", ThemeColor: "#F6C90E", DisplayOrder: 1},
		{Zone: "A", Name: "Dream Mobility", Category: "mobility", LogoEmoji: "🚗", ThemeColor: "#3A9BDC", DisplayOrder: 2},
		{Zone: "B", Name: "Global Materials", Category: "materials", LogoEmoji: "🏗️", ThemeColor: "#7D5BA6", DisplayOrder: 1},
		{Zone: "B", Name: "Digital Finance", Category: "finance", LogoEmoji: "💳", ThemeColor: "#2EC4B6", DisplayOrder: 2},
	}
}
