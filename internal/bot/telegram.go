// Package bot sends Telegram alerts for signals and fills.
package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/polyedge/polyedge/internal/engine"
	"github.com/polyedge/polyedge/internal/execution"
)

var hundred = decimal.NewFromInt(100)

// Notifier pushes trade and signal alerts to a Telegram chat. A nil
// Notifier (no token configured) is safe to call and does nothing.
type Notifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// New connects the Telegram bot. Returns nil, nil when token is empty so
// callers can run without alerts.
func New(token string, chatID int64) (*Notifier, error) {
	if token == "" || chatID == 0 {
		log.Warn().Msg("Telegram not configured, alerts disabled")
		return nil, nil
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram connect: %w", err)
	}

	log.Info().Str("username", api.Self.UserName).Msg("🤖 Telegram bot connected")
	return &Notifier{api: api, chatID: chatID}, nil
}

// AlertEvaluation sends a one-line summary of an actionable evaluation.
func (n *Notifier) AlertEvaluation(ev engine.Evaluation) {
	if n == nil {
		return
	}
	text := fmt.Sprintf("🎯 %s\n%s", ev.Asset, engine.Summary(ev))
	n.send(text)
}

// AlertFill announces a submitted order.
func (n *Notifier) AlertFill(f execution.Fill) {
	if n == nil {
		return
	}
	mode := "LIVE"
	if f.DryRun {
		mode = "DRY RUN"
	}
	text := fmt.Sprintf("🚀 [%s] BUY %s %s\nPrice: %s¢  Size: $%s",
		mode, f.Asset, f.Direction, f.Price.Mul(hundred).StringFixed(0), f.SizeUSD.StringFixed(2))
	n.send(text)
}

// AlertResolution announces a settled position.
func (n *Notifier) AlertResolution(asset string, won bool, profit string) {
	if n == nil {
		return
	}
	emoji := "✅"
	if !won {
		emoji = "❌"
	}
	n.send(fmt.Sprintf("%s %s resolved, P&L $%s", emoji, asset, profit))
}

func (n *Notifier) send(text string) {
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.api.Send(msg); err != nil {
		log.Error().Err(err).Msg("Telegram send failed")
	}
}
