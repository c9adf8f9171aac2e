package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	fudbot "github.com/edgard/fudbot/internal/bot"
)

// NewStatusHandler returns a handler for the /status command.
func NewStatusHandler(deps HandlerDeps) bot.HandlerFunc {
	return statusHandler{deps}.Handle
}

type statusHandler struct {
	deps HandlerDeps
}

func (h statusHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "status")

	if update.Message == nil {
		return
	}

	log.InfoContext(ctx, "Handling /status command", "chat_id", update.Message.Chat.ID)
	send(ctx, b, log, update.Message.Chat.ID, formatStatus(h.deps.Status.Status()))
}

func formatStatus(s fudbot.Status) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "tweet mode: %s\n", onOff(s.TweetMode))
	fmt.Fprintf(&sb, "debug mode: %s\n", onOff(s.DebugMode))
	fmt.Fprintf(&sb, "post mode: %s\n", s.PostMode)
	fmt.Fprintf(&sb, "agents: %d\n", s.Agents)
	fmt.Fprintf(&sb, "posts in memory: %d\n", s.Posts)
	fmt.Fprintf(&sb, "processed mentions: %d\n", s.Processed)
	fmt.Fprintf(&sb, "recent phrases: %d\n", s.RecentPhrases)
	fmt.Fprintf(&sb, "last post: %s\n", formatTime(s.LastPost))
	fmt.Fprintf(&sb, "last mention check: %s\n", formatTime(s.LastCheck))
	if s.HasNextPost {
		fmt.Fprintf(&sb, "next post: %s", formatTime(s.NextPost))
	} else {
		sb.WriteString("next post: not scheduled")
	}
	return sb.String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
