// Package trading runs the evaluation loop and drives execution.
package trading

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/polyedge/polyedge/internal/bot"
	"github.com/polyedge/polyedge/internal/config"
	"github.com/polyedge/polyedge/internal/database"
	"github.com/polyedge/polyedge/internal/engine"
	"github.com/polyedge/polyedge/internal/execution"
	"github.com/polyedge/polyedge/internal/feeds"
	"github.com/polyedge/polyedge/internal/polymarket"
	"github.com/polyedge/polyedge/internal/positions"
	"github.com/polyedge/polyedge/internal/risk"
)

// ═══════════════════════════════════════════════════════════════════════════════
// TRADER - the polling loop around the evaluation core
// ═══════════════════════════════════════════════════════════════════════════════
//
// Every poll tick iterates all known windows sequentially:
//
//   evaluate -> value filters -> tier limits -> execute -> record
//
// The evaluator itself is pure; everything stateful (registry writes, P&L,
// persistence, alerts) happens here, after an actionable evaluation.
//
// ═══════════════════════════════════════════════════════════════════════════════

const (
	heartbeatInterval  = 30 * time.Second
	resolutionInterval = 5 * time.Second

	// Window resolution is checked this long after EndDate to let the
	// exchange settle.
	resolutionGrace = 10 * time.Second
)

// openTrade tracks a filled position until its window resolves.
type openTrade struct {
	tradeID    string
	market     *polymarket.Market
	side       engine.Side
	entryPrice decimal.Decimal
	sizeUSD    decimal.Decimal
	strike     float64
}

// Trader owns the evaluation loop.
type Trader struct {
	cfg      *config.Config
	store    *feeds.Store
	scanner  *polymarket.Scanner
	fetcher  *polymarket.PriceFetcher
	eval     *engine.Evaluator
	riskMgr  *risk.Manager
	exec     *execution.Executor
	db       *database.Database
	notifier *bot.Notifier
	reg      *positions.Registry

	mu         sync.Mutex
	openTrades map[string]openTrade // condition id -> trade
}

// New wires a trader from its collaborators.
func New(cfg *config.Config, store *feeds.Store, scanner *polymarket.Scanner, fetcher *polymarket.PriceFetcher,
	eval *engine.Evaluator, riskMgr *risk.Manager, exec *execution.Executor,
	db *database.Database, notifier *bot.Notifier, reg *positions.Registry) *Trader {
	return &Trader{
		cfg:        cfg,
		store:      store,
		scanner:    scanner,
		fetcher:    fetcher,
		eval:       eval,
		riskMgr:    riskMgr,
		exec:       exec,
		db:         db,
		notifier:   notifier,
		reg:        reg,
		openTrades: make(map[string]openTrade),
	}
}

// Run blocks until ctx is cancelled.
func (t *Trader) Run(ctx context.Context) {
	log.Info().
		Dur("interval", t.cfg.PollInterval).
		Bool("dry_run", t.cfg.DryRun).
		Msg("🚀 Trader started")

	ticker := time.NewTicker(t.cfg.PollInterval)
	defer ticker.Stop()

	resolveTicker := time.NewTicker(resolutionInterval)
	defer resolveTicker.Stop()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Trader stopped")
			return
		case <-ticker.C:
			t.tick()
		case <-resolveTicker.C:
			t.resolveExpired()
		case <-heartbeat.C:
			if err := t.db.RecordHeartbeat("trader", decimal.NewFromFloat(t.riskMgr.SessionPnL()), t.reg.Len()); err != nil {
				log.Error().Err(err).Msg("Heartbeat write failed")
			}
		}
	}
}

// tick evaluates every known window once.
func (t *Trader) tick() {
	now := time.Now()

	for _, m := range t.scanner.ActiveMarkets() {
		snap, err := t.fetcher.MarketPrices(m.UpTokenID, m.DownTokenID)
		if err != nil {
			log.Debug().Err(err).Str("asset", m.Asset).Msg("Price snapshot unavailable")
			snap = nil // evaluator reports missing data
		}

		ev := t.eval.Evaluate(m, snap, now)

		if engine.ShouldTrade(ev) {
			t.handleActionable(m, snap, ev)
		} else {
			log.Debug().Str("state", ev.State.String()).Msg(engine.Summary(ev))
		}
	}
}

// handleActionable applies session policy and executes.
func (t *Trader) handleActionable(m *polymarket.Market, snap *polymarket.MarketPrices, ev engine.Evaluation) {
	key := positions.Key(m.Asset, m.WindowType(), m.ConditionID)
	if t.reg.Has(key) {
		return // one position per window
	}

	tier := t.riskMgr.CurrentTier()
	if t.reg.CountAsset(m.Asset) >= tier.MaxPositionsPerAsset() {
		log.Debug().Str("asset", m.Asset).Str("tier", tier.String()).Msg("Asset position limit reached")
		return
	}

	ask, bid := ev.AskUp, snap.UpBid.InexactFloat64()
	if ev.Side == engine.SideDown {
		ask, bid = ev.AskDown, snap.DownBid.InexactFloat64()
	}
	if _, _, err := risk.CheckValue(ask, bid, ask); err != nil {
		log.Info().Err(err).Str("asset", m.Asset).Str("side", string(ev.Side)).Msg("⛔ Value filter rejected trade")
		t.logEvaluation(ev, decimal.Zero)
		return
	}

	// Tier scaling on top of the sizer's recommendation, still bounded by
	// the absolute cap.
	scaled := ev.Size.SizeUSD.Mul(decimal.NewFromFloat(tier.SizeMultiplier()))
	if maxSize := decimal.NewFromFloat(t.cfg.Engine.MaxPositionSize); scaled.GreaterThan(maxSize) {
		scaled = maxSize
	}
	// Scaling down can drop a valid recommendation under the dust floor.
	if scaled.LessThan(decimal.NewFromFloat(t.cfg.Engine.MinPositionSize)) {
		log.Debug().
			Str("asset", m.Asset).
			Str("tier", tier.String()).
			Str("size", scaled.StringFixed(2)).
			Msg("Tier-scaled size below minimum, skipping")
		t.logEvaluation(ev, decimal.Zero)
		return
	}
	sized := *ev.Size
	sized.SizeUSD = scaled.Round(2)
	ev.Size = &sized

	log.Info().Str("tier", tier.String()).Msg(engine.Summary(ev))
	t.notifier.AlertEvaluation(ev)

	fill, err := t.exec.Submit(m, ev)
	if err != nil {
		log.Error().Err(err).Str("asset", m.Asset).Msg("Execution failed")
		return
	}
	t.notifier.AlertFill(*fill)
	t.logEvaluation(ev, fill.SizeUSD)

	t.mu.Lock()
	t.openTrades[m.ConditionID] = openTrade{
		tradeID:    fill.TradeID,
		market:     m,
		side:       ev.Side,
		entryPrice: fill.Price,
		sizeUSD:    fill.SizeUSD,
		strike:     ev.StrikePrice,
	}
	t.mu.Unlock()
}

// resolveExpired settles positions whose windows have closed, comparing the
// final spot price against the strike.
func (t *Trader) resolveExpired() {
	now := time.Now()

	t.mu.Lock()
	expired := make([]openTrade, 0)
	for id, ot := range t.openTrades {
		if now.After(ot.market.EndDate.Add(resolutionGrace)) {
			expired = append(expired, ot)
			delete(t.openTrades, id)
		}
	}
	t.mu.Unlock()

	for _, ot := range expired {
		spot, ok := t.store.RealTimePrice(ot.market.Asset)
		if !ok {
			// Unknown outcome must not settle either way; keep the trade
			// pending and retry once the feed recovers.
			log.Warn().Str("asset", ot.market.Asset).Msg("No spot price at resolution, deferring settlement")
			t.mu.Lock()
			t.openTrades[ot.market.ConditionID] = ot
			t.mu.Unlock()
			continue
		}

		wentUp := spot > ot.strike
		won := (ot.side == engine.SideUp && wentUp) || (ot.side == engine.SideDown && !wentUp)

		profit := t.exec.Resolve(ot.market, ot.tradeID, won, ot.entryPrice, ot.sizeUSD)
		tier := t.riskMgr.RecordPnL(profit.InexactFloat64())
		t.notifier.AlertResolution(ot.market.Asset, won, profit.StringFixed(2))

		log.Info().
			Str("asset", ot.market.Asset).
			Bool("won", won).
			Str("tier", tier.String()).
			Msg("Window settled")
	}
}

// logEvaluation persists one evaluator decision.
func (t *Trader) logEvaluation(ev engine.Evaluation, sizeUSD decimal.Decimal) {
	rec := &database.EvaluationLog{
		Asset:       ev.Asset,
		ConditionID: ev.ConditionID,
		State:       ev.State.String(),
		Side:        string(ev.Side),
		DeltaPct:    decimal.NewFromFloat(ev.DeltaPct),
		ProbUp:      decimal.NewFromFloat(ev.ProbUp),
		EdgeUp:      decimal.NewFromFloat(ev.EdgeUp),
		EdgeDown:    decimal.NewFromFloat(ev.EdgeDown),
		Volatility:  decimal.NewFromFloat(ev.Volatility),
		SizeUSD:     sizeUSD,
		SecondsLeft: int(ev.SecondsRemaining),
		Reason:      ev.Reason,
	}
	if err := t.db.LogEvaluation(rec); err != nil {
		log.Error().Err(err).Msg("Evaluation log write failed")
	}
}
