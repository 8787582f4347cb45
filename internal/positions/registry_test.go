package positions

import (
	"sync"
	"testing"
)

func TestRegistryOpenClose(t *testing.T) {
	r := NewRegistry()
	key := Key("BTC", "15-MIN", "0xabc")

	if r.Has(key) {
		t.Error("empty registry claims an open position")
	}

	r.Open(key, Position{Asset: "BTC", Direction: "UP"})
	if !r.Has(key) || r.Len() != 1 {
		t.Errorf("after open: has=%v len=%d", r.Has(key), r.Len())
	}

	r.Close(key)
	if r.Has(key) || r.Len() != 0 {
		t.Errorf("after close: has=%v len=%d", r.Has(key), r.Len())
	}
}

func TestRegistryReopenOverwrites(t *testing.T) {
	r := NewRegistry()
	key := Key("ETH", "60-MIN", "0xdef")

	r.Open(key, Position{Asset: "ETH", Direction: "UP"})
	r.Open(key, Position{Asset: "ETH", Direction: "DOWN"})

	if r.Len() != 1 {
		t.Errorf("len = %d, want 1", r.Len())
	}
	if r.CountDirection("DOWN") != 1 || r.CountDirection("UP") != 0 {
		t.Error("reopen did not overwrite the direction")
	}
}

func TestRegistryCounts(t *testing.T) {
	r := NewRegistry()
	r.Open("a", Position{Asset: "BTC", Direction: "UP"})
	r.Open("b", Position{Asset: "ETH", Direction: "UP"})
	r.Open("c", Position{Asset: "BTC", Direction: "DOWN"})

	if got := r.CountDirection("UP"); got != 2 {
		t.Errorf("CountDirection(UP) = %d, want 2", got)
	}
	if got := r.CountDirection("DOWN"); got != 1 {
		t.Errorf("CountDirection(DOWN) = %d, want 1", got)
	}
	if got := r.CountAsset("BTC"); got != 2 {
		t.Errorf("CountAsset(BTC) = %d, want 2", got)
	}
	if got := r.CountAsset("SOL"); got != 0 {
		t.Errorf("CountAsset(SOL) = %d, want 0", got)
	}
}

func TestRegistrySnapshotIsCopy(t *testing.T) {
	r := NewRegistry()
	r.Open("a", Position{Asset: "BTC", Direction: "UP"})

	snap := r.Snapshot()
	delete(snap, "a")

	if !r.Has("a") {
		t.Error("mutating the snapshot affected the registry")
	}
}

func TestRegistryKey(t *testing.T) {
	if got := Key("SOL", "15-MIN", "0x123"); got != "SOL-15-MIN-0x123" {
		t.Errorf("Key = %q", got)
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := Key("BTC", "15-MIN", string(rune('a'+n)))
			r.Open(key, Position{Asset: "BTC", Direction: "UP"})
			r.CountDirection("UP")
			r.Close(key)
		}(i)
	}
	wg.Wait()

	if r.Len() != 0 {
		t.Errorf("len = %d after all closes, want 0", r.Len())
	}
}
