package handlers

import (
	"context"
	"strings"
	"time"
	"unicode"
	"unicode/utf16"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const chatTimeout = 2 * time.Minute

// NewChatHandler returns the default handler: it answers private messages
// and group messages that mention or reply to the bot.
func NewChatHandler(deps HandlerDeps) bot.HandlerFunc {
	return chatHandler{deps}.Handle
}

type chatHandler struct {
	deps HandlerDeps
}

func (h chatHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "chat")

	msg := update.Message
	if msg == nil || msg.From == nil || strings.TrimSpace(msg.Text) == "" {
		log.DebugContext(ctx, "Ignoring update with nil message, empty text, or nil sender", "update_id", update.ID)
		return
	}
	chatID := msg.Chat.ID

	if !shouldHandle(msg, h.deps.BotInfo) {
		log.DebugContext(ctx, "Bot not addressed, skipping", "chat_id", chatID)
		return
	}

	text := stripMention(msg.Text, h.deps.BotInfo)
	if text == "" {
		send(ctx, b, log, chatID, withBotName(h.deps.Config.Telegram.Messages.Help, h.deps.BotInfo))
		return
	}

	log.InfoContext(ctx, "Handling chat message", "chat_id", chatID, "user_id", msg.From.ID)
	_, _ = b.SendChatAction(ctx, &bot.SendChatActionParams{ChatID: chatID, Action: models.ChatActionTyping})

	genCtx, cancel := context.WithTimeout(ctx, chatTimeout)
	defer cancel()
	reply, err := h.deps.Chat.GenerateChatReply(genCtx, text)
	if err != nil || strings.TrimSpace(reply) == "" {
		log.ErrorContext(ctx, "Chat reply generation failed", "error", err, "chat_id", chatID)
		reply = h.deps.Config.Telegram.Messages.GeneralError
	}

	_, err = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          chatID,
		Text:            reply,
		ReplyParameters: &models.ReplyParameters{MessageID: msg.ID},
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send chat reply", "error", err, "chat_id", chatID)
	}
}

// shouldHandle reports whether msg is addressed to the bot: any private
// message, an @mention, or a reply to one of the bot's messages.
func shouldHandle(msg *models.Message, info *BotInfo) bool {
	if msg == nil {
		return false
	}
	if msg.Chat.Type == models.ChatTypePrivate {
		return true
	}
	if info == nil || info.Username == "" {
		return false
	}

	mention := "@" + info.Username
	var units []uint16
	for _, e := range msg.Entities {
		if e.Type != models.MessageEntityTypeMention {
			continue
		}
		if units == nil {
			units = utf16.Encode([]rune(msg.Text))
		}
		if got, ok := entityText(units, e.Offset, e.Length); ok && strings.EqualFold(got, mention) {
			return true
		}
	}

	for _, w := range strings.Fields(strings.ToLower(msg.Text)) {
		if strings.TrimFunc(w, unicode.IsPunct) == strings.ToLower(info.Username) {
			return true
		}
	}

	return msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil && msg.ReplyToMessage.From.ID == info.ID
}

// entityText returns the text an entity covers. Telegram measures entity
// offsets and lengths in UTF-16 code units.
func entityText(units []uint16, offset, length int) (string, bool) {
	if offset < 0 || length <= 0 || offset+length > len(units) {
		return "", false
	}
	return string(utf16.Decode(units[offset : offset+length])), true
}

// stripMention removes @username tokens so the model only sees the message.
func stripMention(text string, info *BotInfo) string {
	if info == nil || info.Username == "" {
		return strings.TrimSpace(text)
	}
	mention := "@" + strings.ToLower(info.Username)
	words := strings.Fields(text)
	kept := words[:0]
	for _, w := range words {
		if strings.ToLower(strings.TrimRightFunc(w, unicode.IsPunct)) == mention {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}
