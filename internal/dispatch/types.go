// Package dispatch routes inbound Telegram updates through the command and
// message pipelines.
package dispatch

import (
	"context"
	"strconv"
	"strings"

	"github.com/botpanel/telegram-bot-service/internal/store"
)

// Update is one normalized inbound Telegram update.
type Update struct {
	MessageID int
	ChatID    int64
	ChatType  store.ChatType
	UserID    int64
	Username  string
	FirstName string
	Text      string
	// Mentioned is set when the update carries a mention entity addressed
	// to the receiving bot.
	Mentioned bool
	// HasLink is set when the update carries a URL or text-link entity.
	HasLink bool
}

// IsCommand reports whether the update text starts with a command prefix.
func (u Update) IsCommand() bool {
	return strings.HasPrefix(strings.TrimSpace(u.Text), "/")
}

// CommandTrigger returns the first whitespace-delimited token of the text,
// which is what command triggers match against.
func (u Update) CommandTrigger() string {
	fields := strings.Fields(u.Text)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// UserKey is the sender identity used for counters and allow-lists.
func (u Update) UserKey() string {
	if u.UserID != 0 {
		return strconv.FormatInt(u.UserID, 10)
	}
	return u.Username
}

// ReplySender delivers replies into the chat an update came from.
type ReplySender interface {
	Send(ctx context.Context, text string) error
	// Typing shows the "typing" chat action; delivery is best effort.
	Typing(ctx context.Context)
}

// Completer produces an AI reply, or "" when debounced or failed.
type Completer interface {
	Generate(ctx context.Context, text string, bot store.Bot, userID, chatID string) (string, error)
}

// CommandSource resolves configured commands and templates for a bot.
type CommandSource interface {
	FindCommand(ctx context.Context, botID, trigger string) (store.Command, error)
	GetTemplate(ctx context.Context, botID, name string) (store.Template, error)
}

// senderAllowed enforces the bot's access mode: in whitelist mode the
// sender's numeric id or @handle must appear in the allow-list.
func senderAllowed(bot store.Bot, up Update) bool {
	if bot.AccessMode != store.AccessModeWhitelist {
		return true
	}
	id := strconv.FormatInt(up.UserID, 10)
	for _, entry := range bot.AllowedUsers {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if entry == id {
			return true
		}
		if up.Username != "" && strings.EqualFold(strings.TrimPrefix(entry, "@"), up.Username) {
			return true
		}
	}
	return false
}

// isAdmin reports whether the sender appears in the bot's admin list.
func isAdmin(bot store.Bot, up Update) bool {
	id := strconv.FormatInt(up.UserID, 10)
	for _, entry := range bot.AdminUsers {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if entry == id {
			return true
		}
		if up.Username != "" && strings.EqualFold(strings.TrimPrefix(entry, "@"), up.Username) {
			return true
		}
	}
	return false
}
