package telegram

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
)

// Notifier mirrors published posts into a Telegram chat.
type Notifier struct {
	b      *bot.Bot
	chatID int64
	log    *slog.Logger
}

// NewNotifier returns a Notifier posting to chatID. A zero chatID disables
// it.
func NewNotifier(b *bot.Bot, chatID int64, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{b: b, chatID: chatID, log: logger.With("component", "telegram_notifier")}
}

// Announce sends text to the configured chat.
func (n *Notifier) Announce(ctx context.Context, text string) error {
	if n == nil || n.b == nil || n.chatID == 0 {
		return nil
	}
	if _, err := n.b.SendMessage(ctx, &bot.SendMessageParams{ChatID: n.chatID, Text: text}); err != nil {
		return fmt.Errorf("failed to announce to chat %d: %w", n.chatID, err)
	}
	n.log.DebugContext(ctx, "Announced post", "chat_id", n.chatID)
	return nil
}
