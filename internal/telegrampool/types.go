// Package telegrampool owns the set of live long-polling bot connections
// and reconciles it against the database-declared desired state.
package telegrampool

import (
	"context"
	"errors"

	"github.com/botpanel/telegram-bot-service/internal/dispatch"
	"github.com/botpanel/telegram-bot-service/internal/store"
)

var (
	// ErrInitInProgress means another initialization for the same bot is in
	// flight. Two long-polling sessions racing for one credential is
	// forbidden by Telegram, so the second caller fails fast.
	ErrInitInProgress = errors.New("bot initialization already in progress")

	// ErrBadCredential means the decrypted token is empty or malformed.
	// Not retryable until the operator supplies a new credential.
	ErrBadCredential = errors.New("bot credential is missing or malformed")
)

// UpdateHandler receives one normalized update together with a sender bound
// to the originating chat.
type UpdateHandler func(ctx context.Context, bot store.Bot, up dispatch.Update, reply dispatch.ReplySender)

// Dialer opens a live long-polling connection for a bot. The production
// implementation wraps the Telegram Bot API; tests inject fakes.
type Dialer interface {
	Dial(ctx context.Context, bot store.Bot, token string, handler UpdateHandler) (Connection, error)
}

// Connection is one live long-polling session.
type Connection interface {
	Stop()
	Running() bool
}

// StateStore persists runtime status transitions back to the bot record.
type StateStore interface {
	SetBotState(ctx context.Context, botID string, status store.BotStatus, conn store.ConnState) error
}

// InstanceStatus is a point-in-time view of one pooled bot, exposed on the
// ops status endpoint.
type InstanceStatus struct {
	BotID     string `json:"bot_id"`
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
}
