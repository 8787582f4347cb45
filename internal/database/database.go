// Package database persists trades, evaluation logs and heartbeats.
package database

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database wraps the gorm handle. When no DSN or path is configured it runs
// disabled: every write becomes a no-op so the bot works without storage.
type Database struct {
	db      *gorm.DB
	enabled bool
}

// Models

// Trade is one executed (or dry-run) order on a window.
type Trade struct {
	ID          string `gorm:"primaryKey"`
	Asset       string `gorm:"index"` // BTC, ETH, SOL
	ConditionID string `gorm:"index"`
	Question    string
	Direction   string // UP or DOWN
	TokenID     string
	EntryPrice  decimal.Decimal `gorm:"type:decimal(10,6)"`
	SizeUSD     decimal.Decimal `gorm:"type:decimal(20,6)"`
	Edge        decimal.Decimal `gorm:"type:decimal(10,6)"`
	Kelly       decimal.Decimal `gorm:"type:decimal(10,6)"`
	DryRun      bool
	Status      string `gorm:"index"` // open, won, lost
	Profit      decimal.Decimal `gorm:"type:decimal(20,6)"`
	EnteredAt   time.Time
	ResolvedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EvaluationLog records one evaluator decision, actionable or not.
type EvaluationLog struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	Asset       string `gorm:"index"`
	ConditionID string `gorm:"index"`
	State       string `gorm:"index"` // terminal state name
	Side        string
	DeltaPct    decimal.Decimal `gorm:"type:decimal(10,6)"`
	ProbUp      decimal.Decimal `gorm:"type:decimal(10,6)"`
	EdgeUp      decimal.Decimal `gorm:"type:decimal(10,6)"`
	EdgeDown    decimal.Decimal `gorm:"type:decimal(10,6)"`
	Volatility  decimal.Decimal `gorm:"type:decimal(10,6)"`
	SizeUSD     decimal.Decimal `gorm:"type:decimal(20,6)"`
	SecondsLeft int
	Reason      string
	CreatedAt   time.Time
}

// Heartbeat lets a dashboard see the bot is alive.
type Heartbeat struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	Component  string `gorm:"index"`
	SessionPnL decimal.Decimal `gorm:"type:decimal(20,6)"`
	OpenCount  int
	CreatedAt  time.Time
}

// New opens postgres when dsn is set, sqlite at path otherwise, or a
// disabled instance when both are empty.
func New(dsn, path string) (*Database, error) {
	var (
		db  *gorm.DB
		err error
	)

	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	switch {
	case dsn != "":
		db, err = gorm.Open(postgres.Open(dsn), gormCfg)
	case path != "":
		if dir := filepath.Dir(path); dir != "." {
			if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
				return nil, mkErr
			}
		}
		db, err = gorm.Open(sqlite.Open(path), gormCfg)
	default:
		log.Warn().Msg("No database configured, running without persistence")
		return &Database{enabled: false}, nil
	}
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Trade{}, &EvaluationLog{}, &Heartbeat{}); err != nil {
		return nil, err
	}

	log.Info().Msg("💾 Database connected")
	return &Database{db: db, enabled: true}, nil
}

// SaveTrade inserts or updates a trade row.
func (d *Database) SaveTrade(t *Trade) error {
	if !d.enabled {
		return nil
	}
	return d.db.Save(t).Error
}

// ResolveTrade marks a trade won or lost with its realized profit.
func (d *Database) ResolveTrade(id, status string, profit decimal.Decimal) error {
	if !d.enabled {
		return nil
	}
	now := time.Now()
	return d.db.Model(&Trade{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":      status,
		"profit":      profit,
		"resolved_at": &now,
	}).Error
}

// LogEvaluation appends one evaluation record.
func (d *Database) LogEvaluation(e *EvaluationLog) error {
	if !d.enabled {
		return nil
	}
	return d.db.Create(e).Error
}

// RecordHeartbeat appends a liveness row.
func (d *Database) RecordHeartbeat(component string, sessionPnL decimal.Decimal, openCount int) error {
	if !d.enabled {
		return nil
	}
	return d.db.Create(&Heartbeat{
		Component:  component,
		SessionPnL: sessionPnL,
		OpenCount:  openCount,
	}).Error
}

// RecentTrades returns the latest trades, newest first.
func (d *Database) RecentTrades(limit int) ([]Trade, error) {
	if !d.enabled {
		return nil, nil
	}
	var trades []Trade
	err := d.db.Order("created_at DESC").Limit(limit).Find(&trades).Error
	return trades, err
}

// OpenTrades returns trades awaiting resolution.
func (d *Database) OpenTrades() ([]Trade, error) {
	if !d.enabled {
		return nil, nil
	}
	var trades []Trade
	err := d.db.Where("status = ?", "open").Find(&trades).Error
	return trades, err
}
