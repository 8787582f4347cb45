package feeds

import (
	"math"
	"sync"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════════
// PRICE STORE - shared spot prices + volatility estimation
// ═══════════════════════════════════════════════════════════════════════════════

const (
	// Spot price freshness bound for RealTimePrice.
	maxPriceAge = 10 * time.Second

	// Target spacing when downsampling the tick buffer for volatility.
	volSampleSpacing = 10 * time.Second

	// Minimum downsampled points to trust a live volatility estimate.
	minVolSamples = 10

	// History buffers hold 5 minutes of ticks.
	historyMaxAge   = 5 * time.Minute
	historyCapacity = 4096
)

// Static per-minute volatility defaults, used when the live buffer is too
// sparse, the feed is disconnected, or the estimate degenerates to zero.
var defaultVolatility = map[string]float64{
	"BTC": 1.5,
	"ETH": 2.0,
	"SOL": 3.5,
}

const fallbackVolatility = 2.5

// Store holds per-asset price history and the last seen price. The Binance
// feed writes into it; the evaluator reads from it. Implements both
// engine.PriceSource and engine.VolatilitySource.
type Store struct {
	mu        sync.RWMutex
	histories map[string]*PriceHistory
	connected bool

	now func() time.Time
}

// NewStore creates an empty price store.
func NewStore() *Store {
	return &Store{
		histories: make(map[string]*PriceHistory),
		now:       time.Now,
	}
}

// SetConnected flags whether the upstream feed is live. While disconnected,
// volatility falls back to static defaults and prices go stale naturally.
func (s *Store) SetConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = connected
}

// Connected reports the upstream feed state.
func (s *Store) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Record stores a new spot price observation for an asset.
func (s *Store) Record(asset string, price float64, at time.Time) {
	s.mu.Lock()
	h, ok := s.histories[asset]
	if !ok {
		h = NewPriceHistory(historyCapacity, historyMaxAge)
		s.histories[asset] = h
	}
	s.mu.Unlock()

	h.Push(price, at)
}

// RealTimePrice returns the last seen price for an asset, or false when no
// sample exists or the newest one is older than the freshness bound.
func (s *Store) RealTimePrice(asset string) (float64, bool) {
	s.mu.RLock()
	h := s.histories[asset]
	s.mu.RUnlock()

	if h == nil {
		return 0, false
	}
	latest, ok := h.Latest()
	if !ok {
		return 0, false
	}
	if s.now().Sub(latest.At) > maxPriceAge {
		return 0, false
	}
	return latest.Price, true
}

// VolatilityPerMinute estimates per-minute volatility (as a percentage) from
// the rolling tick buffer: percent changes between samples ~10s apart, sample
// standard deviation, scaled by √6 to convert a 10-second-step figure to a
// per-minute one. Falls back to static defaults when the buffer is sparse,
// the feed is down, or the estimate is zero.
func (s *Store) VolatilityPerMinute(asset string, windowMinutes int) float64 {
	s.mu.RLock()
	h := s.histories[asset]
	connected := s.connected
	s.mu.RUnlock()

	if h == nil || !connected {
		return defaultVol(asset)
	}

	window := time.Duration(windowMinutes) * time.Minute
	spaced := downsample(h.Window(window), volSampleSpacing)
	if len(spaced) < minVolSamples {
		return defaultVol(asset)
	}

	changes := make([]float64, 0, len(spaced)-1)
	for i := 1; i < len(spaced); i++ {
		prev := spaced[i-1].Price
		if prev == 0 {
			continue
		}
		changes = append(changes, (spaced[i].Price-prev)/prev*100.0)
	}
	if len(changes) < 2 {
		return defaultVol(asset)
	}

	// 10s-step stddev -> per-minute via √(60/10).
	vol := sampleStdDev(changes) * math.Sqrt(6)
	if vol <= 0 {
		return defaultVol(asset)
	}
	return vol
}

func defaultVol(asset string) float64 {
	if v, ok := defaultVolatility[asset]; ok {
		return v
	}
	return fallbackVolatility
}

// downsample keeps samples at least spacing apart, starting from the oldest.
func downsample(samples []Sample, spacing time.Duration) []Sample {
	if len(samples) == 0 {
		return nil
	}
	out := make([]Sample, 0, len(samples))
	out = append(out, samples[0])
	for _, s := range samples[1:] {
		if s.At.Sub(out[len(out)-1].At) >= spacing {
			out = append(out, s)
		}
	}
	return out
}

// sampleStdDev is the n-1 denominator standard deviation.
func sampleStdDev(xs []float64) float64 {
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	variance := 0.0
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	variance /= float64(len(xs) - 1)

	return math.Sqrt(variance)
}
