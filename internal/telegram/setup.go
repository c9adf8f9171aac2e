// Package telegram sets up the optional Telegram control surface: the bot
// instance, its command handlers and the channel announcer.
package telegram

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/go-telegram/bot"

	"github.com/edgard/fudbot/internal/bot/handlers"
)

// NewTelegramBot creates a go-telegram/bot instance. The library calls getMe
// during construction, so an invalid token fails here.
func NewTelegramBot(token string, logger *slog.Logger, opts ...bot.Option) (*bot.Bot, error) {
	if token == "" {
		return nil, errors.New("telegram bot token cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "telegram_bot")

	b, err := bot.New(token, opts...)
	if err != nil {
		log.Error("Failed to create Telegram bot instance", "error", err)
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	log.Info("Telegram bot instance created successfully", "token_prefix", tokenPrefix(token))
	return b, nil
}

// tokenPrefix returns the bot ID part of the token, never the secret.
func tokenPrefix(token string) string {
	for i, r := range token {
		if r == ':' {
			return token[:i] + ":..."
		}
	}
	return "..."
}

// applyMiddleware wraps handler so the first middleware is the outermost.
func applyMiddleware(handler bot.HandlerFunc, mw []bot.Middleware) bot.HandlerFunc {
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}
	return handler
}

// RegisterHandlers registers the command handlers with b, applying each
// handler's own middleware. It returns the registered commands in order.
func RegisterHandlers(b *bot.Bot, logger *slog.Logger, registered map[string]handlers.RegisteredHandler) ([]string, error) {
	if b == nil {
		return nil, errors.New("bot instance cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "handler_registry")

	if len(registered) == 0 {
		log.Warn("No handlers provided for registration.")
		return nil, nil
	}

	commands := make([]string, 0, len(registered))
	for command := range registered {
		commands = append(commands, command)
	}
	sort.Strings(commands)

	done := commands[:0]
	for _, command := range commands {
		h := registered[command]
		if h.Handler == nil {
			log.Warn("Skipping registration for nil handler", "command", command)
			continue
		}
		b.RegisterHandler(h.HandlerType, h.Pattern, h.MatchType, applyMiddleware(h.Handler, h.Middleware))
		log.Debug("Registered handler", "command", command, "middleware_count", len(h.Middleware))
		done = append(done, command)
	}

	log.Info("Registered Telegram handlers", "count", len(done))
	return done, nil
}
