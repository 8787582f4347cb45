package feeds

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ═══════════════════════════════════════════════════════════════════════════════
// BINANCE TRADE STREAM - real-time spot prices for BTC/ETH/SOL
// ═══════════════════════════════════════════════════════════════════════════════
//
// Subscribes to the combined trade stream and writes every trade into the
// shared price store. The store's ring buffers feed both the evaluator's
// spot lookup and the volatility estimator.
//
// ═══════════════════════════════════════════════════════════════════════════════

const (
	binanceWSBase  = "wss://stream.binance.com:9443/stream"
	reconnectDelay = 5 * time.Second
	pingInterval   = 30 * time.Second
)

// BinanceFeed maintains the trade-stream connection for a set of assets.
type BinanceFeed struct {
	mu      sync.Mutex
	store   *Store
	assets  []string // "BTC", "ETH", "SOL"
	conn    *websocket.Conn
	running bool
	stopCh  chan struct{}
}

// tradeEvent is the payload of a <symbol>@trade stream message.
type tradeEvent struct {
	Price     string `json:"p"`
	TradeTime int64  `json:"T"` // ms since epoch
}

// streamEnvelope wraps combined-stream messages.
type streamEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// NewBinanceFeed creates a feed writing into store for the given assets.
func NewBinanceFeed(store *Store, assets []string) *BinanceFeed {
	return &BinanceFeed{
		store:  store,
		assets: assets,
		stopCh: make(chan struct{}),
	}
}

// Start connects and begins streaming trades.
func (f *BinanceFeed) Start() {
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return
	}
	f.running = true
	f.mu.Unlock()

	go f.connectionLoop()
	log.Info().Strs("assets", f.assets).Msg("📈 Binance trade stream started")
}

// Stop closes the connection and halts reconnects.
func (f *BinanceFeed) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.running {
		return
	}
	f.running = false
	close(f.stopCh)

	if f.conn != nil {
		f.conn.Close()
	}
	f.store.SetConnected(false)
	log.Info().Msg("Binance trade stream stopped")
}

// streamURL builds the combined stream URL for the configured assets.
func (f *BinanceFeed) streamURL() string {
	streams := make([]string, 0, len(f.assets))
	for _, asset := range f.assets {
		streams = append(streams, strings.ToLower(asset)+"usdt@trade")
	}
	return fmt.Sprintf("%s?streams=%s", binanceWSBase, strings.Join(streams, "/"))
}

// connectionLoop maintains the WebSocket connection.
func (f *BinanceFeed) connectionLoop() {
	for {
		select {
		case <-f.stopCh:
			return
		default:
		}

		conn, err := f.dial()
		if err != nil {
			log.Error().Err(err).Msg("Binance connection failed, retrying...")
			time.Sleep(reconnectDelay)
			continue
		}

		// One pinger per connection, torn down when the read side returns.
		// The pinger is the connection's only writer.
		pingDone := make(chan struct{})
		go f.pingLoop(conn, pingDone)

		f.readLoop(conn)
		close(pingDone)
		conn.Close()

		f.store.SetConnected(false)
		time.Sleep(reconnectDelay)
	}
}

func (f *BinanceFeed) dial() (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(f.streamURL(), nil)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()

	f.store.SetConnected(true)
	log.Info().Msg("🔌 Binance WebSocket connected")
	return conn, nil
}

// pingLoop keeps one connection alive until done closes.
func (f *BinanceFeed) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.stopCh:
			return
		case <-done:
			return
		case <-ticker.C:
			conn.WriteMessage(websocket.PingMessage, nil)
		}
	}
}

// readLoop drains messages until the connection drops.
func (f *BinanceFeed) readLoop(conn *websocket.Conn) {
	for {
		select {
		case <-f.stopCh:
			return
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Warn().Err(err).Msg("Binance read error")
			return
		}

		f.processMessage(message)
	}
}

// processMessage parses one combined-stream message into the store.
func (f *BinanceFeed) processMessage(message []byte) {
	var env streamEnvelope
	if err := json.Unmarshal(message, &env); err != nil {
		log.Debug().Err(err).Msg("Unparseable Binance message")
		return
	}

	asset := assetFromStream(env.Stream)
	if asset == "" {
		return
	}

	var trade tradeEvent
	if err := json.Unmarshal(env.Data, &trade); err != nil {
		return
	}

	price, err := strconv.ParseFloat(trade.Price, 64)
	if err != nil || price <= 0 {
		return
	}

	at := time.UnixMilli(trade.TradeTime)
	if trade.TradeTime == 0 {
		at = time.Now()
	}
	f.store.Record(asset, price, at)
}

// assetFromStream maps "btcusdt@trade" back to "BTC".
func assetFromStream(stream string) string {
	sym, _, ok := strings.Cut(stream, "@")
	if !ok {
		return ""
	}
	return strings.ToUpper(strings.TrimSuffix(sym, "usdt"))
}
