// Package positions tracks the open positions the bot currently holds.
//
// The registry is deliberately lightweight: it records only asset and
// direction per open position, which is all the sizing layer needs for
// correlation throttling. Entry price, P&L and order state live in the
// execution/bookkeeping layer, not here.
package positions

import (
	"fmt"
	"sync"
)

// Position is the minimal record kept per open position.
type Position struct {
	Asset     string // BTC, ETH, SOL
	Direction string // UP or DOWN
}

// Registry maps position keys to open positions. It is written by the
// execution layer on open/close and read by the sizer; callers must record
// an open before the next evaluation of the same asset/direction or the
// correlation throttle under-counts.
type Registry struct {
	mu   sync.RWMutex
	open map[string]Position
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		open: make(map[string]Position),
	}
}

// Key builds the canonical registry key for a market position.
func Key(asset, windowType, conditionID string) string {
	return fmt.Sprintf("%s-%s-%s", asset, windowType, conditionID)
}

// Open records a position under key. Re-opening the same key overwrites.
func (r *Registry) Open(key string, p Position) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.open[key] = p
}

// Close removes the position under key, if present.
func (r *Registry) Close(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.open, key)
}

// Has reports whether a position is open under key.
func (r *Registry) Has(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.open[key]
	return ok
}

// CountDirection counts open positions in the given direction across all
// assets. BTC/ETH/SOL move together on short horizons, so same-direction
// positions are treated as one correlated bet regardless of asset.
func (r *Registry) CountDirection(direction string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, p := range r.open {
		if p.Direction == direction {
			count++
		}
	}
	return count
}

// CountAsset counts open positions for a single asset.
func (r *Registry) CountAsset(asset string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, p := range r.open {
		if p.Asset == asset {
			count++
		}
	}
	return count
}

// Len returns the number of open positions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.open)
}

// Snapshot returns a copy of the open positions for display.
func (r *Registry) Snapshot() map[string]Position {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Position, len(r.open))
	for k, v := range r.open {
		out[k] = v
	}
	return out
}
