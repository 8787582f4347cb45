// Polyedge - latency-arbitrage bot for Polymarket crypto Up/Down windows.
//
// Correlates the Binance spot feed with short-duration binary markets:
// models the probability each window finishes above its strike from a
// random walk over the remaining time, compares that to the quoted ask,
// and buys the underpriced side with a fractional-Kelly sized position.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/polyedge/polyedge/internal/bot"
	"github.com/polyedge/polyedge/internal/config"
	"github.com/polyedge/polyedge/internal/database"
	"github.com/polyedge/polyedge/internal/engine"
	"github.com/polyedge/polyedge/internal/execution"
	"github.com/polyedge/polyedge/internal/feeds"
	"github.com/polyedge/polyedge/internal/polymarket"
	"github.com/polyedge/polyedge/internal/positions"
	"github.com/polyedge/polyedge/internal/risk"
	"github.com/polyedge/polyedge/internal/trading"
)

const version = "1.2.0"

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Info().
		Str("version", version).
		Strs("assets", cfg.TradingAssets).
		Bool("dry_run", cfg.DryRun).
		Float64("min_edge", cfg.Engine.MinEdge).
		Float64("kelly_fraction", cfg.Engine.KellyFraction).
		Msg("⚡ Polyedge starting")

	db, err := database.New(cfg.DatabaseURL, cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Database init failed")
	}

	reg := positions.NewRegistry()

	store := feeds.NewStore()
	binance := feeds.NewBinanceFeed(store, cfg.TradingAssets)
	binance.Start()
	defer binance.Stop()

	scanner := polymarket.NewScanner(cfg.TradingAssets)
	scanner.Start()
	defer scanner.Stop()

	fetcher := polymarket.NewPriceFetcher()

	evaluator := engine.New(cfg.Engine, store, store, reg)
	riskMgr := risk.NewManager(cfg.Engine.Bankroll())

	executor, err := execution.New(cfg.WalletPrivateKey, cfg.DryRun, reg, db)
	if err != nil {
		log.Fatal().Err(err).Msg("Executor init failed")
	}

	notifier, err := bot.New(cfg.TelegramToken, cfg.TelegramChatID)
	if err != nil {
		log.Fatal().Err(err).Msg("Telegram init failed")
	}

	trader := trading.New(cfg, store, scanner, fetcher, evaluator, riskMgr, executor, db, notifier, reg)

	ctx, cancel := context.WithCancel(context.Background())
	go trader.Run(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("Shutting down...")
	cancel()
}
