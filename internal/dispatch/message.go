package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/botpanel/telegram-bot-service/internal/store"
)

// MessageDispatcher resolves free-text updates against the bot's filter
// rules and either logs them (rules mode) or forwards them to the
// completion provider (AI mode).
type MessageDispatcher struct {
	completer Completer
	recorder  store.ActivityRecorder
	limiter   *Limiter
	logger    *slog.Logger
}

func NewMessageDispatcher(log *slog.Logger, completer Completer, recorder store.ActivityRecorder, limiter *Limiter) *MessageDispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &MessageDispatcher{
		completer: completer,
		recorder:  recorder,
		limiter:   limiter,
		logger:    log.With(slog.String("service", "message-dispatch")),
	}
}

// Dispatch handles one free-text update. Identity filters (dedup, access,
// chat type, mention, cooldown) drop silently before any side effect;
// content filters (keywords, links) suppress the reply but the message is
// still logged and counted, matching the dashboard's usage semantics.
func (d *MessageDispatcher) Dispatch(ctx context.Context, bot store.Bot, up Update, reply ReplySender) {
	if !d.limiter.SeenOnce(MessageKey(up.ChatID, up.UserID, up.MessageID)) {
		return
	}
	if !senderAllowed(bot, up) {
		return
	}
	if !bot.AllowsChatType(up.ChatType) {
		return
	}
	if up.ChatType != store.ChatTypePrivate && bot.RespondOnlyOnMention && !up.Mentioned {
		return
	}
	if d.limiter.ChatCoolingDown(up.ChatID, time.Duration(bot.CooldownSeconds)*time.Second) {
		return
	}

	outcome := outcomeLogged
	if blockedByContent(bot, up) {
		outcome = outcomeBlocked
	} else if bot.ResponseMode == store.ResponseModeAI {
		outcome = d.respondAI(ctx, bot, up, reply)
	}

	d.recorder.Record(ctx, store.Activity{
		Log: store.LogEntry{
			BotID:    bot.ID,
			Kind:     store.LogKindMessage,
			ChatID:   fmt.Sprintf("%d", up.ChatID),
			ChatType: up.ChatType,
			UserID:   up.UserKey(),
			Username: up.Username,
			Text:     up.Text,
			Outcome:  outcome,
		},
		UserKey: up.UserKey(),
	})
}

func (d *MessageDispatcher) respondAI(ctx context.Context, bot store.Bot, up Update, reply ReplySender) string {
	userID := strconv.FormatInt(up.UserID, 10)
	chatID := strconv.FormatInt(up.ChatID, 10)
	text, err := d.completer.Generate(ctx, up.Text, bot, userID, chatID)
	if err != nil {
		// Only context cancellation reaches here; provider failures
		// already degraded to an empty reply.
		return outcomeError
	}
	if text == "" {
		if bot.FallbackMessage == "" {
			return outcomeNoReply
		}
		text = bot.FallbackMessage
	}
	applyResponseDelay(ctx, bot, reply)
	if err := reply.Send(ctx, text); err != nil {
		d.logger.Error("send ai reply failed",
			slog.String("bot_id", bot.ID), slog.String("chat_id", chatID), slog.Any("error", err))
		return outcomeError
	}
	d.limiter.TouchChat(up.ChatID)
	return outcomeReplied
}

// blockedByContent applies the blocked-keyword and blocked-link filters.
func blockedByContent(bot store.Bot, up Update) bool {
	if len(bot.BlockedKeywords) > 0 {
		lower := strings.ToLower(up.Text)
		for _, keyword := range bot.BlockedKeywords {
			keyword = strings.ToLower(strings.TrimSpace(keyword))
			if keyword != "" && strings.Contains(lower, keyword) {
				return true
			}
		}
	}
	if bot.BlockLinks && up.HasLink {
		return true
	}
	return false
}
