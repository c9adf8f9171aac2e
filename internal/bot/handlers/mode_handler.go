package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewTweetModeHandler returns a handler for /tweetmode on|off.
func NewTweetModeHandler(deps HandlerDeps) bot.HandlerFunc {
	return modeHandler{
		deps:    deps,
		command: "tweetmode",
		get:     deps.Memory.TweetMode,
		set:     deps.Memory.SetTweetMode,
	}.Handle
}

// NewDebugModeHandler returns a handler for /debugmode on|off. The debug
// run only happens at startup, so the change applies after a restart.
func NewDebugModeHandler(deps HandlerDeps) bot.HandlerFunc {
	return modeHandler{
		deps:    deps,
		command: "debugmode",
		get:     deps.Memory.DebugMode,
		set:     deps.Memory.SetDebugMode,
	}.Handle
}

type modeHandler struct {
	deps    HandlerDeps
	command string
	get     func() bool
	set     func(context.Context, bool)
}

func (h modeHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", h.command)

	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	args := commandArgs(update.Message.Text)
	if args == "" {
		send(ctx, b, log, chatID, fmt.Sprintf("%s is %s", h.command, onOff(h.get())))
		return
	}

	on, ok := parseToggle(args)
	if !ok {
		send(ctx, b, log, chatID, fmt.Sprintf(h.deps.Config.Telegram.Messages.ModeUsage, h.command))
		return
	}

	h.set(ctx, on)
	log.InfoContext(ctx, "Mode changed", "mode", h.command, "on", on, "chat_id", chatID)
	send(ctx, b, log, chatID, fmt.Sprintf("%s %s", h.command, onOff(on)))
}

// parseToggle accepts on/off and the usual synonyms.
func parseToggle(s string) (on bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "1", "yes", "enable":
		return true, true
	case "off", "false", "0", "no", "disable":
		return false, true
	}
	return false, false
}
