package polymarket

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ═══════════════════════════════════════════════════════════════════════════════
// MARKET DISCOVERY - Gamma API scanner for Up/Down windows
// ═══════════════════════════════════════════════════════════════════════════════
//
// Crypto Up/Down windows use timestamp-aligned slugs like
// btc-updown-15m-1767707100, so the current window for each interval can be
// fetched directly instead of paginating the whole events feed.
//
// The "price to beat" is published in the event description shortly after
// the window opens; markets are kept with a nil strike until it appears.
//
// ═══════════════════════════════════════════════════════════════════════════════

const (
	gammaEventsURL = "https://gamma-api.polymarket.com/events"
	scanInterval   = 5 * time.Second
)

// windowIntervals are the window lengths scanned per asset.
var windowIntervals = []struct {
	suffix  string
	seconds int64
	minutes int
}{
	{"15m", 900, 15},
	{"1h", 3600, 60},
}

var priceToBeatRe = regexp.MustCompile(`(?i)price to beat[^$]*\$([0-9][0-9,]*\.?[0-9]*)`)

// Scanner discovers and refreshes Up/Down window markets for a set of assets.
type Scanner struct {
	client *http.Client
	assets []string

	mu      sync.RWMutex
	markets map[string]*Market // condition id -> market

	onNewMarket func(*Market)

	running bool
	stopCh  chan struct{}
}

// NewScanner creates a scanner for the given assets (BTC, ETH, SOL).
func NewScanner(assets []string) *Scanner {
	return &Scanner{
		client:  &http.Client{Timeout: 10 * time.Second},
		assets:  assets,
		markets: make(map[string]*Market),
		stopCh:  make(chan struct{}),
	}
}

// SetNewMarketCallback registers a callback fired once per newly seen market.
func (s *Scanner) SetNewMarketCallback(cb func(*Market)) {
	s.onNewMarket = cb
}

// Start begins periodic scanning.
func (s *Scanner) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	go s.scanLoop()
	log.Info().Strs("assets", s.assets).Msg("🔍 Market scanner started")
}

// Stop halts scanning.
func (s *Scanner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stopCh)
}

func (s *Scanner) scanLoop() {
	s.scan()

	ticker := time.NewTicker(scanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.scan()
		}
	}
}

func (s *Scanner) scan() {
	now := time.Now().Unix()

	for _, asset := range s.assets {
		for _, wt := range windowIntervals {
			windowTs := (now / wt.seconds) * wt.seconds
			slug := fmt.Sprintf("%s-updown-%s-%d", strings.ToLower(asset), wt.suffix, windowTs)

			m, err := s.fetchBySlug(slug, asset, wt.minutes)
			if err != nil {
				log.Debug().Str("slug", slug).Err(err).Msg("Window fetch failed")
				continue
			}
			if m == nil {
				continue
			}
			s.upsert(m)
		}
	}

	s.prune()
}

// upsert stores a market, firing the new-market callback on first sight and
// filling in a late strike price on refresh.
func (s *Scanner) upsert(m *Market) {
	s.mu.Lock()
	existing, seen := s.markets[m.ConditionID]
	if seen && existing.StrikePrice != nil && m.StrikePrice == nil {
		// Never forget a strike the exchange already published.
		m.StrikePrice = existing.StrikePrice
	}
	s.markets[m.ConditionID] = m
	s.mu.Unlock()

	if !seen {
		log.Info().
			Str("asset", m.Asset).
			Str("slug", m.Slug).
			Bool("strike", m.HasStrike()).
			Time("ends", m.EndDate).
			Msg("📊 New window discovered")
		if s.onNewMarket != nil {
			s.onNewMarket(m)
		}
	}
}

// prune drops windows that closed more than a minute ago.
func (s *Scanner) prune() {
	cutoff := time.Now().Add(-time.Minute)

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, m := range s.markets {
		if m.Closed || (!m.EndDate.IsZero() && m.EndDate.Before(cutoff)) {
			delete(s.markets, id)
		}
	}
}

// ActiveMarkets returns the currently known open windows.
func (s *Scanner) ActiveMarkets() []*Market {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Market, 0, len(s.markets))
	for _, m := range s.markets {
		if m.Active && !m.Closed {
			out = append(out, m)
		}
	}
	return out
}

// gammaEvent mirrors the subset of the Gamma events payload we consume.
type gammaEvent struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Active      bool   `json:"active"`
	Closed      bool   `json:"closed"`
	EndDate     string `json:"endDate"`
	StartTime   string `json:"startTime"`
	Markets     []struct {
		ID           string `json:"id"`
		ConditionID  string `json:"conditionId"`
		Question     string `json:"question"`
		Description  string `json:"description"`
		Outcomes     string `json:"outcomes"`
		ClobTokenIds string `json:"clobTokenIds"`
		Volume       string `json:"volume"`
	} `json:"markets"`
}

// fetchBySlug fetches a single window event from the Gamma API.
func (s *Scanner) fetchBySlug(slug, asset string, windowMinutes int) (*Market, error) {
	resp, err := s.client.Get(fmt.Sprintf("%s?slug=%s", gammaEventsURL, slug))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gamma status %d", resp.StatusCode)
	}

	var events []gammaEvent
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, err
	}
	if len(events) == 0 || len(events[0].Markets) == 0 {
		return nil, nil
	}

	event := events[0]
	market := event.Markets[0]

	var tokenIDs []string
	if err := json.Unmarshal([]byte(market.ClobTokenIds), &tokenIDs); err != nil {
		return nil, err
	}
	if len(tokenIDs) < 2 {
		return nil, nil
	}

	var endDate, startDate time.Time
	if event.EndDate != "" {
		endDate, _ = time.Parse(time.RFC3339, event.EndDate)
	}
	if event.StartTime != "" {
		startDate, _ = time.Parse(time.RFC3339, event.StartTime)
	}

	volume, _ := decimal.NewFromString(market.Volume)

	m := &Market{
		ID:            market.ID,
		ConditionID:   market.ConditionID,
		Question:      event.Title,
		Slug:          event.Slug,
		Asset:         asset,
		UpTokenID:     tokenIDs[0],
		DownTokenID:   tokenIDs[1],
		StrikePrice:   extractStrike(event.Description + " " + market.Description),
		StartDate:     startDate,
		EndDate:       endDate,
		WindowMinutes: windowMinutes,
		Volume:        volume,
		Active:        event.Active,
		Closed:        event.Closed,
		LastUpdated:   time.Now(),
	}
	return m, nil
}

// extractStrike pulls the "price to beat" out of an event description,
// e.g. "Price to beat: $95,123.45". Returns nil when absent.
func extractStrike(description string) *decimal.Decimal {
	match := priceToBeatRe.FindStringSubmatch(description)
	if len(match) < 2 {
		return nil
	}
	raw := strings.ReplaceAll(match[1], ",", "")
	d, err := decimal.NewFromString(raw)
	if err != nil || !d.IsPositive() {
		return nil
	}
	return &d
}
