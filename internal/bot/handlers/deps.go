package handlers

import (
	"context"
	"log/slog"

	"github.com/edgard/fudbot/internal/bot"
	"github.com/edgard/fudbot/internal/config"
	"github.com/edgard/fudbot/internal/memory"
	"github.com/edgard/fudbot/internal/tracker"
)

// BotInfo identifies the Telegram bot account, as returned by getMe. It is
// filled in after the bot is created, so handlers hold a pointer.
type BotInfo struct {
	ID       int64
	Username string
}

// StatusReporter exposes the orchestration loop state.
type StatusReporter interface {
	Status() bot.Status
}

// TokenLister lists trending tokens.
type TokenLister interface {
	TopTokens(ctx context.Context, n int) ([]tracker.Token, error)
}

// ChatResponder answers free-form chat messages in the persona's voice.
type ChatResponder interface {
	GenerateChatReply(ctx context.Context, text string) (string, error)
}

// HandlerDeps provides dependencies for Telegram command handlers.
type HandlerDeps struct {
	Logger  *slog.Logger
	Config  *config.Config
	BotInfo *BotInfo
	Memory  *memory.Manager
	Status  StatusReporter
	Tokens  TokenLister
	Chat    ChatResponder
}
