package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/polyedge/polyedge/internal/engine"
)

// Config holds all configuration for the bot.
type Config struct {
	// Trading
	TradingAssets []string // BTC, ETH, SOL
	DryRun        bool
	Debug         bool

	// Evaluation core parameters
	Engine engine.Config

	// Evaluation loop cadence
	PollInterval time.Duration

	// Wallet (order signing)
	WalletPrivateKey string

	// Telegram alerts
	TelegramToken  string
	TelegramChatID int64

	// Persistence: DATABASE_URL (postgres) wins over DATABASE_PATH (sqlite)
	DatabaseURL  string
	DatabasePath string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	eng := engine.DefaultConfig()
	eng.MinEdge = getEnvFloat("MIN_EDGE", eng.MinEdge)
	eng.MinTimeRemaining = getEnvDuration("MIN_TIME_REMAINING", eng.MinTimeRemaining)
	eng.MaxTimeRemaining = getEnvDuration("MAX_TIME_REMAINING", eng.MaxTimeRemaining)
	eng.KellyFraction = getEnvFloat("KELLY_FRACTION", eng.KellyFraction)
	eng.MaxPositionSize = getEnvFloat("MAX_POSITION_SIZE", eng.MaxPositionSize)
	eng.MinPositionSize = getEnvFloat("MIN_POSITION_SIZE", eng.MinPositionSize)
	eng.MaxLiquidityPct = getEnvFloat("MAX_LIQUIDITY_PCT", eng.MaxLiquidityPct)
	eng.BaseTradeSize = getEnvFloat("BASE_TRADE_SIZE", eng.BaseTradeSize)
	eng.BankrollMultiplier = getEnvFloat("BANKROLL_MULTIPLIER", eng.BankrollMultiplier)
	eng.AssumedLiquidity = getEnvFloat("ASSUMED_LIQUIDITY", eng.AssumedLiquidity)

	cfg := &Config{
		TradingAssets: getEnvList("TRADING_ASSETS", []string{"BTC", "ETH", "SOL"}),
		DryRun:        getEnvBool("DRY_RUN", true),
		Debug:         getEnvBool("DEBUG", false),

		Engine:       eng,
		PollInterval: getEnvDuration("POLL_INTERVAL", 500*time.Millisecond),

		WalletPrivateKey: os.Getenv("WALLET_PRIVATE_KEY"),

		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),

		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabasePath: getEnv("DATABASE_PATH", "data/polyedge.db"),
	}

	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.TelegramChatID = id
	}

	if !cfg.DryRun && cfg.WalletPrivateKey == "" {
		return nil, fmt.Errorf("WALLET_PRIVATE_KEY is required when DRY_RUN=false")
	}

	if eng.KellyFraction <= 0 || eng.KellyFraction > 1 {
		return nil, fmt.Errorf("KELLY_FRACTION must be in (0, 1], got %v", eng.KellyFraction)
	}
	if eng.MinTimeRemaining >= eng.MaxTimeRemaining {
		return nil, fmt.Errorf("MIN_TIME_REMAINING must be below MAX_TIME_REMAINING")
	}

	return cfg, nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		// Bare numbers are treated as seconds (MIN_TIME_REMAINING=30).
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
