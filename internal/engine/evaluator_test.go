package engine

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polyedge/polyedge/internal/polymarket"
	"github.com/polyedge/polyedge/internal/positions"
)

type stubPrices struct {
	price float64
	ok    bool
}

func (s stubPrices) RealTimePrice(asset string) (float64, bool) { return s.price, s.ok }

type stubVol struct {
	vol float64
}

func (s stubVol) VolatilityPerMinute(asset string, windowMinutes int) float64 { return s.vol }

func testMarket(strike float64, endsIn time.Duration, now time.Time) *polymarket.Market {
	m := &polymarket.Market{
		ID:            "mkt-1",
		ConditionID:   "0xc0ffee",
		Asset:         "BTC",
		Slug:          "btc-updown-15m-1700000000",
		UpTokenID:     "tok-up",
		DownTokenID:   "tok-down",
		EndDate:       now.Add(endsIn),
		WindowMinutes: 15,
		Active:        true,
	}
	if strike > 0 {
		d := decimal.NewFromFloat(strike)
		m.StrikePrice = &d
	}
	return m
}

func testSnapshot(askUp, askDown float64) *polymarket.MarketPrices {
	return &polymarket.MarketPrices{
		UpBid:     decimal.NewFromFloat(askUp - 0.02),
		UpAsk:     decimal.NewFromFloat(askUp),
		DownBid:   decimal.NewFromFloat(askDown - 0.02),
		DownAsk:   decimal.NewFromFloat(askDown),
		BookDepth: decimal.NewFromInt(1000),
	}
}

func TestEvaluate_ActionableUp(t *testing.T) {
	// Spot 300 above a 95000 strike with 120s left and 1.5%/min volatility:
	// P(up) ~ 0.559, UP ask 0.50 gives ~5.9% edge against a 5% threshold.
	now := time.Now()
	e := New(DefaultConfig(), stubPrices{price: 95300, ok: true}, stubVol{vol: 1.5}, positions.NewRegistry())

	ev := e.Evaluate(testMarket(95000, 120*time.Second, now), testSnapshot(0.50, 0.52), now)

	if ev.State != StateActionable {
		t.Fatalf("state = %s, want actionable (%s)", ev.State, ev.Reason)
	}
	if ev.Side != SideUp {
		t.Errorf("side = %s, want UP", ev.Side)
	}
	if ev.Edge < 0.055 || ev.Edge > 0.065 {
		t.Errorf("edge = %v, want ~0.059", ev.Edge)
	}
	if ev.Size == nil || !ev.Size.Tradeable() {
		t.Errorf("size = %+v, want tradeable", ev.Size)
	}
	if ev.ProbUp < 0.55 || ev.ProbUp > 0.57 {
		t.Errorf("probUp = %v, want ~0.559", ev.ProbUp)
	}
}

func TestEvaluate_ActionableDown(t *testing.T) {
	now := time.Now()
	e := New(DefaultConfig(), stubPrices{price: 94700, ok: true}, stubVol{vol: 1.5}, positions.NewRegistry())

	ev := e.Evaluate(testMarket(95000, 120*time.Second, now), testSnapshot(0.52, 0.50), now)

	if ev.State != StateActionable {
		t.Fatalf("state = %s, want actionable (%s)", ev.State, ev.Reason)
	}
	if ev.Side != SideDown {
		t.Errorf("side = %s, want DOWN", ev.Side)
	}
}

func TestEvaluate_TooLate(t *testing.T) {
	now := time.Now()
	e := New(DefaultConfig(), stubPrices{price: 95300, ok: true}, stubVol{vol: 1.5}, positions.NewRegistry())

	ev := e.Evaluate(testMarket(95000, 20*time.Second, now), testSnapshot(0.50, 0.52), now)

	if ev.State != StateTooLate {
		t.Fatalf("state = %s, want too_late", ev.State)
	}
	if ev.Side != "" || ev.Size != nil {
		t.Errorf("too_late must not carry a side or size: %+v", ev)
	}
}

func TestEvaluate_TooEarly(t *testing.T) {
	now := time.Now()
	e := New(DefaultConfig(), stubPrices{price: 95300, ok: true}, stubVol{vol: 1.5}, positions.NewRegistry())

	ev := e.Evaluate(testMarket(95000, 400*time.Second, now), testSnapshot(0.50, 0.52), now)
	if ev.State != StateTooEarly {
		t.Fatalf("state = %s, want too_early", ev.State)
	}
}

func TestEvaluate_TimeGateBoundaries(t *testing.T) {
	// Exactly 30s and exactly 300s remaining both pass the gates.
	now := time.Now()
	e := New(DefaultConfig(), stubPrices{price: 95300, ok: true}, stubVol{vol: 1.5}, positions.NewRegistry())

	for _, endsIn := range []time.Duration{30 * time.Second, 300 * time.Second} {
		ev := e.Evaluate(testMarket(95000, endsIn, now), testSnapshot(0.50, 0.52), now)
		if ev.State == StateTooLate || ev.State == StateTooEarly {
			t.Errorf("endsIn %v: state = %s, want inside the window", endsIn, ev.State)
		}
	}
}

func TestEvaluate_MissingData(t *testing.T) {
	now := time.Now()
	mkt := testMarket(95000, 120*time.Second, now)
	snap := testSnapshot(0.50, 0.52)

	cases := []struct {
		name   string
		prices PriceSource
		market *polymarket.Market
		snap   *polymarket.MarketPrices
	}{
		{"no live price", stubPrices{ok: false}, mkt, snap},
		{"zero price", stubPrices{price: 0, ok: true}, mkt, snap},
		{"no strike", stubPrices{price: 95300, ok: true}, testMarket(0, 120*time.Second, now), snap},
		{"no snapshot", stubPrices{price: 95300, ok: true}, mkt, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := New(DefaultConfig(), tc.prices, stubVol{vol: 1.5}, positions.NewRegistry())
			ev := e.Evaluate(tc.market, tc.snap, now)
			if ev.State != StateMissingData {
				t.Errorf("state = %s, want missing_data", ev.State)
			}
		})
	}
}

func TestEvaluate_NoEdge(t *testing.T) {
	// Asks already price the model's probabilities in; neither side clears 5%.
	now := time.Now()
	e := New(DefaultConfig(), stubPrices{price: 95300, ok: true}, stubVol{vol: 1.5}, positions.NewRegistry())

	ev := e.Evaluate(testMarket(95000, 120*time.Second, now), testSnapshot(0.55, 0.44), now)

	if ev.State != StateNoEdge {
		t.Fatalf("state = %s, want no_edge (%s)", ev.State, ev.Reason)
	}
	if ev.EdgeUp == 0 && ev.EdgeDown == 0 {
		t.Error("no_edge must still report the computed edges")
	}
}

func TestEvaluate_ProbabilitiesComplement(t *testing.T) {
	now := time.Now()
	e := New(DefaultConfig(), stubPrices{price: 95300, ok: true}, stubVol{vol: 1.5}, positions.NewRegistry())

	ev := e.Evaluate(testMarket(95000, 120*time.Second, now), testSnapshot(0.55, 0.44), now)
	if ev.ProbUp+ev.ProbDown != 1.0 {
		t.Errorf("probUp + probDown = %v, want exactly 1", ev.ProbUp+ev.ProbDown)
	}
}

func TestEvaluate_BelowMinimumKeepsSideAndEdge(t *testing.T) {
	now := time.Now()
	cfg := DefaultConfig()
	cfg.MinPositionSize = 50

	e := New(cfg, stubPrices{price: 95300, ok: true}, stubVol{vol: 1.5}, positions.NewRegistry())
	ev := e.Evaluate(testMarket(95000, 120*time.Second, now), testSnapshot(0.50, 0.52), now)

	if ev.State != StateBelowMinimum {
		t.Fatalf("state = %s, want below_minimum (%s)", ev.State, ev.Reason)
	}
	if ev.Side != SideUp || ev.Edge <= 0 {
		t.Errorf("side/edge lost: side=%s edge=%v", ev.Side, ev.Edge)
	}
	if ev.Size != nil {
		t.Errorf("size = %+v, want nil", ev.Size)
	}
	if !strings.Contains(ev.Reason, "below minimum") {
		t.Errorf("reason = %q", ev.Reason)
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	now := time.Now()
	e := New(DefaultConfig(), stubPrices{price: 95300, ok: true}, stubVol{vol: 1.5}, positions.NewRegistry())
	mkt := testMarket(95000, 120*time.Second, now)
	snap := testSnapshot(0.50, 0.52)

	a := e.Evaluate(mkt, snap, now)
	b := e.Evaluate(mkt, snap, now)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("repeated evaluation differs:\n%+v\n%+v", a, b)
	}
}

func TestShouldTrade(t *testing.T) {
	size := PositionSizeResult{SizeUSD: decimal.NewFromInt(25), Reason: "kelly"}

	if !ShouldTrade(Evaluation{State: StateActionable, Side: SideUp, Size: &size}) {
		t.Error("actionable with size must trade")
	}
	if ShouldTrade(Evaluation{State: StateNoEdge}) {
		t.Error("no_edge must not trade")
	}
	if ShouldTrade(Evaluation{State: StateActionable, Side: SideUp}) {
		t.Error("nil size must not trade")
	}
}

func TestStateString(t *testing.T) {
	want := map[State]string{
		StateMissingData:  "missing_data",
		StateTooLate:      "too_late",
		StateTooEarly:     "too_early",
		StateNoEdge:       "no_edge",
		StateBelowMinimum: "below_minimum",
		StateActionable:   "actionable",
		State(99):         "unknown",
	}
	for s, name := range want {
		if s.String() != name {
			t.Errorf("State(%d).String() = %q, want %q", s, s.String(), name)
		}
	}
}
