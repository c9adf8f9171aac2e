package handlers

import (
	"context"
	"math/rand/v2"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/fudbot/internal/tracker"
)

const trendingCount = 5

// NewTrendingHandler returns a handler for the /trending command: the top
// tokens plus an offline critique of the first one.
func NewTrendingHandler(deps HandlerDeps) bot.HandlerFunc {
	return trendingHandler{deps}.Handle
}

type trendingHandler struct {
	deps HandlerDeps
}

func (h trendingHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "trending")

	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	log.InfoContext(ctx, "Handling /trending command", "chat_id", chatID)

	_, _ = b.SendChatAction(ctx, &bot.SendChatActionParams{ChatID: chatID, Action: models.ChatActionTyping})

	tokens, err := h.deps.Tokens.TopTokens(ctx, trendingCount)
	if err != nil {
		log.ErrorContext(ctx, "Failed to fetch trending tokens", "error", err)
		send(ctx, b, log, chatID, h.deps.Config.Telegram.Messages.GeneralError)
		return
	}

	send(ctx, b, log, chatID, formatTrending(tokens, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))))
}

func formatTrending(tokens []tracker.Token, rng *rand.Rand) string {
	out := tracker.FormatTrending(tokens)
	if len(tokens) > 0 {
		out += "\n\n" + tracker.TemplateCritique(tokens[0], rng)
	}
	return out
}
