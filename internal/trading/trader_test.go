package trading

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polyedge/polyedge/internal/config"
	"github.com/polyedge/polyedge/internal/database"
	"github.com/polyedge/polyedge/internal/engine"
	"github.com/polyedge/polyedge/internal/execution"
	"github.com/polyedge/polyedge/internal/feeds"
	"github.com/polyedge/polyedge/internal/polymarket"
	"github.com/polyedge/polyedge/internal/positions"
	"github.com/polyedge/polyedge/internal/risk"
)

func newTestTrader(t *testing.T) (*Trader, *feeds.Store, *positions.Registry, *risk.Manager) {
	t.Helper()

	cfg := &config.Config{
		TradingAssets: []string{"BTC"},
		DryRun:        true,
		Engine:        engine.DefaultConfig(),
		PollInterval:  time.Second,
	}

	db, err := database.New("", "")
	if err != nil {
		t.Fatalf("database: %v", err)
	}

	reg := positions.NewRegistry()
	store := feeds.NewStore()
	scanner := polymarket.NewScanner(cfg.TradingAssets)
	fetcher := polymarket.NewPriceFetcher()
	eval := engine.New(cfg.Engine, store, store, reg)
	riskMgr := risk.NewManager(cfg.Engine.Bankroll())

	executor, err := execution.New("", true, reg, db)
	if err != nil {
		t.Fatalf("executor: %v", err)
	}

	tr := New(cfg, store, scanner, fetcher, eval, riskMgr, executor, db, nil, reg)
	return tr, store, reg, riskMgr
}

func expiredTrade(side engine.Side, strike float64) openTrade {
	return openTrade{
		tradeID: "trade-1",
		market: &polymarket.Market{
			ConditionID:   "0x1",
			Asset:         "BTC",
			EndDate:       time.Now().Add(-time.Minute),
			WindowMinutes: 15,
		},
		side:       side,
		entryPrice: decimal.NewFromFloat(0.50),
		sizeUSD:    decimal.NewFromInt(50),
		strike:     strike,
	}
}

func TestResolveExpiredDefersWithoutSpot(t *testing.T) {
	// A dead feed must not settle either side of an expired window.
	tr, _, _, riskMgr := newTestTrader(t)
	tr.openTrades["0x1"] = expiredTrade(engine.SideDown, 95000)

	tr.resolveExpired()

	if len(tr.openTrades) != 1 {
		t.Error("trade settled without a spot price")
	}
	if pnl := riskMgr.SessionPnL(); pnl != 0 {
		t.Errorf("session P&L = %v, want 0", pnl)
	}
	if tier := riskMgr.CurrentTier(); tier != risk.TierModerate {
		t.Errorf("tier = %s, want MODERATE", tier)
	}
}

func TestResolveExpiredSettlesDownWin(t *testing.T) {
	tr, store, _, riskMgr := newTestTrader(t)
	store.Record("BTC", 94800, time.Now())

	tr.openTrades["0x1"] = expiredTrade(engine.SideDown, 95000)
	tr.resolveExpired()

	if len(tr.openTrades) != 0 {
		t.Fatal("settled trade still pending")
	}
	// 100 shares at 50c paying $1: $50 profit on $50.
	if pnl := riskMgr.SessionPnL(); pnl != 50 {
		t.Errorf("session P&L = %v, want 50", pnl)
	}
}

func TestResolveExpiredSettlesDownLoss(t *testing.T) {
	tr, store, _, riskMgr := newTestTrader(t)
	store.Record("BTC", 95200, time.Now())

	tr.openTrades["0x1"] = expiredTrade(engine.SideDown, 95000)
	tr.resolveExpired()

	if len(tr.openTrades) != 0 {
		t.Fatal("settled trade still pending")
	}
	if pnl := riskMgr.SessionPnL(); pnl != -50 {
		t.Errorf("session P&L = %v, want -50", pnl)
	}
}

func actionableEvaluation(sizeUSD float64) engine.Evaluation {
	size := engine.PositionSizeResult{
		SizeUSD:       decimal.NewFromFloat(sizeUSD),
		KellyFraction: 0.03,
		Reason:        "kelly 2.95% of bankroll",
	}
	return engine.Evaluation{
		Asset:       "BTC",
		ConditionID: "0x1",
		State:       engine.StateActionable,
		Side:        engine.SideUp,
		Edge:        0.06,
		AskUp:       0.50,
		AskDown:     0.52,
		Size:        &size,
		EvaluatedAt: time.Now(),
	}
}

func actionableFixtures() (*polymarket.Market, *polymarket.MarketPrices) {
	m := &polymarket.Market{
		ConditionID:   "0x1",
		Asset:         "BTC",
		UpTokenID:     "tok-up",
		DownTokenID:   "tok-down",
		EndDate:       time.Now().Add(2 * time.Minute),
		WindowMinutes: 15,
		Active:        true,
	}
	snap := &polymarket.MarketPrices{
		UpBid:   decimal.NewFromFloat(0.49),
		UpAsk:   decimal.NewFromFloat(0.50),
		DownBid: decimal.NewFromFloat(0.51),
		DownAsk: decimal.NewFromFloat(0.52),
	}
	return m, snap
}

func TestTierScalingRespectsMinimum(t *testing.T) {
	// Conservative halves a $1.50 recommendation to $0.75, under the $1
	// floor: the trade must be skipped, not shrunk into dust.
	tr, _, reg, riskMgr := newTestTrader(t)
	riskMgr.RecordPnL(-15)

	m, snap := actionableFixtures()
	tr.handleActionable(m, snap, actionableEvaluation(1.50))

	if reg.Len() != 0 {
		t.Error("dust trade executed after tier scaling")
	}
	if len(tr.openTrades) != 0 {
		t.Error("dust trade tracked as open")
	}
}

func TestTierScalingExecutesAboveMinimum(t *testing.T) {
	tr, _, reg, _ := newTestTrader(t)

	m, snap := actionableFixtures()
	tr.handleActionable(m, snap, actionableEvaluation(1.50))

	if reg.Len() != 1 {
		t.Error("moderate-tier trade above the floor not executed")
	}
	if len(tr.openTrades) != 1 {
		t.Error("executed trade not tracked for resolution")
	}
}
