package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/fudbot/internal/memory"
)

const (
	defaultRecentCount = 5
	maxRecentCount     = 20
)

// NewRecentHandler returns a handler for the /recent [n] command.
func NewRecentHandler(deps HandlerDeps) bot.HandlerFunc {
	return recentHandler{deps}.Handle
}

type recentHandler struct {
	deps HandlerDeps
}

func (h recentHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "recent")

	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	n := parseCount(commandArgs(update.Message.Text), defaultRecentCount, maxRecentCount)
	log.InfoContext(ctx, "Handling /recent command", "chat_id", chatID, "count", n)

	posts := h.deps.Memory.Recent(n)
	if len(posts) == 0 {
		send(ctx, b, log, chatID, h.deps.Config.Telegram.Messages.NoPosts)
		return
	}
	send(ctx, b, log, chatID, formatRecent(posts))
}

// parseCount reads a positive count from args, falling back to def and
// capping at limit.
func parseCount(args string, def, limit int) int {
	n, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil || n <= 0 {
		return def
	}
	return min(n, limit)
}

func formatRecent(posts []memory.Post) string {
	var sb strings.Builder
	for i, p := range posts {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		state := "unpublished"
		if p.ExternalID != nil {
			state = "id " + *p.ExternalID
		}
		kind := "post"
		if p.Kind == memory.KindReply && p.ReplyTo != nil {
			kind = "reply to " + *p.ReplyTo
		}
		fmt.Fprintf(&sb, "#%d %s (%s, %s)\n%s",
			p.InternalID, p.Timestamp.UTC().Format("Jan 2 15:04"), kind, state, p.Text)
	}
	return sb.String()
}
