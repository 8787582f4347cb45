package feeds

import (
	"testing"
	"time"
)

func TestPriceHistoryEmpty(t *testing.T) {
	h := NewPriceHistory(8, time.Minute)

	if h.Len() != 0 {
		t.Errorf("Len = %d, want 0", h.Len())
	}
	if _, ok := h.Latest(); ok {
		t.Error("Latest on empty buffer reported ok")
	}
	if w := h.Window(time.Minute); w != nil {
		t.Errorf("Window on empty buffer = %v, want nil", w)
	}
}

func TestPriceHistoryLatest(t *testing.T) {
	h := NewPriceHistory(8, time.Minute)
	base := time.Now()

	h.Push(100, base)
	h.Push(101, base.Add(time.Second))
	h.Push(102, base.Add(2*time.Second))

	latest, ok := h.Latest()
	if !ok || latest.Price != 102 {
		t.Errorf("Latest = %+v ok=%v, want price 102", latest, ok)
	}
}

func TestPriceHistoryCapacityEviction(t *testing.T) {
	h := NewPriceHistory(3, time.Hour)
	base := time.Now()

	for i := 0; i < 5; i++ {
		h.Push(float64(100+i), base.Add(time.Duration(i)*time.Second))
	}

	if h.Len() != 3 {
		t.Fatalf("Len = %d, want 3", h.Len())
	}

	w := h.Window(time.Hour)
	if len(w) != 3 {
		t.Fatalf("Window len = %d, want 3", len(w))
	}
	// Oldest two overwritten; survivors in chronological order.
	for i, want := range []float64{102, 103, 104} {
		if w[i].Price != want {
			t.Errorf("w[%d].Price = %v, want %v", i, w[i].Price, want)
		}
	}
}

func TestPriceHistoryWindowLookback(t *testing.T) {
	h := NewPriceHistory(16, time.Hour)
	base := time.Now()

	for i := 0; i < 10; i++ {
		h.Push(float64(i), base.Add(time.Duration(i)*10*time.Second))
	}

	// Newest sample is at +90s; a 30s lookback keeps +60s..+90s inclusive.
	w := h.Window(30 * time.Second)
	if len(w) != 4 {
		t.Fatalf("Window len = %d, want 4", len(w))
	}
	if w[0].Price != 6 || w[len(w)-1].Price != 9 {
		t.Errorf("Window = %v..%v, want 6..9", w[0].Price, w[len(w)-1].Price)
	}
}

func TestPriceHistoryWindowBoundedByMaxAge(t *testing.T) {
	h := NewPriceHistory(16, 30*time.Second)
	base := time.Now()

	for i := 0; i < 10; i++ {
		h.Push(float64(i), base.Add(time.Duration(i)*10*time.Second))
	}

	// Asking for an hour still returns only maxAge worth of samples.
	w := h.Window(time.Hour)
	if len(w) != 4 {
		t.Errorf("Window len = %d, want 4 (maxAge bound)", len(w))
	}
}

func TestPriceHistoryZeroCapacity(t *testing.T) {
	h := NewPriceHistory(0, time.Minute)
	h.Push(100, time.Now())

	latest, ok := h.Latest()
	if !ok || latest.Price != 100 {
		t.Errorf("Latest = %+v ok=%v, want price 100", latest, ok)
	}
}
