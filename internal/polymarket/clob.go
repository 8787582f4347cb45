package polymarket

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ═══════════════════════════════════════════════════════════════════════════════
// CLOB PRICES - best bid/ask snapshots with a short TTL cache
// ═══════════════════════════════════════════════════════════════════════════════

const (
	clobBaseURL   = "https://clob.polymarket.com"
	priceCacheTTL = 5 * time.Second

	// Book levels summed into the depth figure.
	depthLevels = 3
)

// PriceFetcher fetches orderbook snapshots from the CLOB API, caching each
// market's snapshot for a few seconds so the evaluation loop can run at
// sub-second cadence without hammering the API.
type PriceFetcher struct {
	client *http.Client

	mu    sync.RWMutex
	cache map[string]*MarketPrices // up+down token key -> snapshot
}

// NewPriceFetcher creates a fetcher with an empty cache.
func NewPriceFetcher() *PriceFetcher {
	return &PriceFetcher{
		client: &http.Client{Timeout: 5 * time.Second},
		cache:  make(map[string]*MarketPrices),
	}
}

// bookResponse is the CLOB /book payload.
type bookResponse struct {
	Bids []bookLevel `json:"bids"`
	Asks []bookLevel `json:"asks"`
}

type bookLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// MarketPrices returns a snapshot of both outcome tokens, served from cache
// when fresher than the TTL.
func (f *PriceFetcher) MarketPrices(upTokenID, downTokenID string) (*MarketPrices, error) {
	key := upTokenID + "-" + downTokenID

	f.mu.RLock()
	cached, ok := f.cache[key]
	f.mu.RUnlock()
	if ok && time.Since(cached.FetchedAt) < priceCacheTTL {
		return cached, nil
	}

	upBid, upAsk, upDepth, err := f.fetchBook(upTokenID)
	if err != nil {
		return nil, fmt.Errorf("up token book: %w", err)
	}
	downBid, downAsk, downDepth, err := f.fetchBook(downTokenID)
	if err != nil {
		return nil, fmt.Errorf("down token book: %w", err)
	}

	snap := &MarketPrices{
		UpBid:     upBid,
		UpAsk:     upAsk,
		DownBid:   downBid,
		DownAsk:   downAsk,
		BookDepth: upDepth.Add(downDepth),
		FetchedAt: time.Now(),
	}

	f.mu.Lock()
	f.cache[key] = snap
	f.mu.Unlock()

	return snap, nil
}

// fetchBook returns best bid, best ask and near-touch USD depth for a token.
func (f *PriceFetcher) fetchBook(tokenID string) (decimal.Decimal, decimal.Decimal, decimal.Decimal, error) {
	url := fmt.Sprintf("%s/book?token_id=%s", clobBaseURL, tokenID)

	resp, err := f.client.Get(url)
	if err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, decimal.Zero, decimal.Zero, fmt.Errorf("book status %d", resp.StatusCode)
	}

	var book bookResponse
	if err := json.NewDecoder(resp.Body).Decode(&book); err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, err
	}

	bestBid := decimal.Zero
	if len(book.Bids) > 0 {
		bestBid, _ = decimal.NewFromString(book.Bids[0].Price)
	}

	bestAsk := decimal.NewFromInt(1)
	if len(book.Asks) > 0 {
		bestAsk, _ = decimal.NewFromString(book.Asks[0].Price)
	}

	// Depth: price*size over the top ask levels (what a buyer can lift).
	depth := decimal.Zero
	for i, lvl := range book.Asks {
		if i >= depthLevels {
			break
		}
		price, err1 := decimal.NewFromString(lvl.Price)
		size, err2 := decimal.NewFromString(lvl.Size)
		if err1 != nil || err2 != nil {
			continue
		}
		depth = depth.Add(price.Mul(size))
	}

	log.Debug().
		Str("token", shortToken(tokenID)).
		Str("bid", bestBid.String()).
		Str("ask", bestAsk.String()).
		Msg("Book fetched")

	return bestBid, bestAsk, depth, nil
}

func shortToken(tokenID string) string {
	if len(tokenID) > 12 {
		return tokenID[:12]
	}
	return tokenID
}
