package feeds

import (
	"sync"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════════
// PRICE HISTORY - fixed-capacity ring buffer per asset
// ═══════════════════════════════════════════════════════════════════════════════
//
// Bounded by construction: a fixed slice plus age-based eviction on read, so
// memory never grows with uptime no matter how fast ticks arrive.
//
// ═══════════════════════════════════════════════════════════════════════════════

// Sample is one spot-price observation.
type Sample struct {
	Price float64
	At    time.Time
}

// PriceHistory is a fixed-capacity ring buffer of price samples. Writers
// overwrite the oldest slot when full; readers see only samples younger than
// maxAge relative to the newest sample.
type PriceHistory struct {
	mu      sync.RWMutex
	samples []Sample
	head    int // next write slot
	count   int
	maxAge  time.Duration
}

// NewPriceHistory creates a buffer holding up to capacity samples, dropping
// anything older than maxAge on read.
func NewPriceHistory(capacity int, maxAge time.Duration) *PriceHistory {
	if capacity <= 0 {
		capacity = 1
	}
	return &PriceHistory{
		samples: make([]Sample, capacity),
		maxAge:  maxAge,
	}
}

// Push appends a sample, evicting the oldest when the buffer is full.
func (h *PriceHistory) Push(price float64, at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.samples[h.head] = Sample{Price: price, At: at}
	h.head = (h.head + 1) % len(h.samples)
	if h.count < len(h.samples) {
		h.count++
	}
}

// Len returns the number of stored samples (age not considered).
func (h *PriceHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Latest returns the newest sample, or false when empty.
func (h *PriceHistory) Latest() (Sample, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.count == 0 {
		return Sample{}, false
	}
	idx := (h.head - 1 + len(h.samples)) % len(h.samples)
	return h.samples[idx], true
}

// Window returns samples within the given lookback of the newest sample, in
// chronological order, additionally bounded by the buffer's maxAge.
func (h *PriceHistory) Window(lookback time.Duration) []Sample {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.count == 0 {
		return nil
	}

	if h.maxAge > 0 && lookback > h.maxAge {
		lookback = h.maxAge
	}

	newestIdx := (h.head - 1 + len(h.samples)) % len(h.samples)
	cutoff := h.samples[newestIdx].At.Add(-lookback)

	out := make([]Sample, 0, h.count)
	for i := 0; i < h.count; i++ {
		idx := (h.head - h.count + i + len(h.samples)) % len(h.samples)
		s := h.samples[idx]
		if s.At.Before(cutoff) {
			continue
		}
		out = append(out, s)
	}
	return out
}
