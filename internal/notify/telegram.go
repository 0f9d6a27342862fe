package notify

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"purser/internal/config"
	"purser/internal/errs"
)

// TelegramNotifier delivers notifications to a Telegram chat.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramNotifier authenticates against the Telegram Bot API.
func NewTelegramNotifier(cfg config.Telegram) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	return &TelegramNotifier{bot: bot, chatID: cfg.ChatID}, nil
}

func (n *TelegramNotifier) Name() string { return "telegram" }

func (n *TelegramNotifier) SendTargetHit(_ context.Context, hit TargetHit) error {
	text := fmt.Sprintf(
		"🎯 Price alert!\n\n%s\nNow: %s\nTarget: %s\n\n%s",
		hit.Item.Title, hit.Price.Display(), hit.Target.Describe(), hit.Item.URL)

	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		return &errs.DeliveryError{Channel: "telegram", Err: err}
	}
	return nil
}

func (n *TelegramNotifier) SendDigest(_ context.Context, digest Digest) error {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Daily digest — %s\n%d items tracked, %d targets satisfied today.\n",
		digest.Date.Format("Jan 2"), digest.ItemCount, digest.SatisfiedToday)
	for _, line := range digest.Lines {
		price := "—"
		if line.Latest != nil {
			price = line.Latest.Display()
		}
		fmt.Fprintf(&b, "\n• %s — %s", line.Title, price)
		if line.TargetHit {
			b.WriteString(" 🎯")
		}
	}

	msg := tgbotapi.NewMessage(n.chatID, b.String())
	if _, err := n.bot.Send(msg); err != nil {
		return &errs.DeliveryError{Channel: "telegram", Err: err}
	}
	return nil
}
