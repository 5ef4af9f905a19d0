package telegrampool

import (
	"context"
	"log/slog"
	"sync"

	"github.com/botpanel/telegram-bot-service/internal/dispatch"
	"github.com/botpanel/telegram-bot-service/internal/secret"
	"github.com/botpanel/telegram-bot-service/internal/store"
)

type instance struct {
	bot         store.Bot
	conn        Connection
	connected   bool
	initialized bool
}

// Manager owns the pool of live bot connections. Per bot identifier the
// lifecycle is absent → initializing → connected | error; initializing is
// re-entrant-guarded.
type Manager struct {
	cipher   *secret.Cipher
	states   StateStore
	dialer   Dialer
	commands *dispatch.CommandDispatcher
	messages *dispatch.MessageDispatcher
	logger   *slog.Logger

	mu           sync.Mutex
	instances    map[string]*instance
	initializing map[string]bool
}

func NewManager(log *slog.Logger, cipher *secret.Cipher, states StateStore, dialer Dialer,
	commands *dispatch.CommandDispatcher, messages *dispatch.MessageDispatcher,
) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		cipher:       cipher,
		states:       states,
		dialer:       dialer,
		commands:     commands,
		messages:     messages,
		logger:       log.With(slog.String("service", "pool")),
		instances:    map[string]*instance{},
		initializing: map[string]bool{},
	}
}

// Initialize brings up a long-polling connection for bot. It is an
// idempotent no-op when a live, fully-initialized instance already exists,
// and fails fast with ErrInitInProgress on concurrent calls for the same id.
func (m *Manager) Initialize(ctx context.Context, bot store.Bot) error {
	m.mu.Lock()
	if inst, ok := m.instances[bot.ID]; ok {
		if inst.connected && inst.initialized {
			m.mu.Unlock()
			return nil
		}
		// Stale, never fully connected. Discard before retrying.
		delete(m.instances, bot.ID)
		if inst.conn != nil {
			inst.conn.Stop()
		}
	}
	if m.initializing[bot.ID] {
		m.mu.Unlock()
		return ErrInitInProgress
	}
	m.initializing[bot.ID] = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.initializing, bot.ID)
		m.mu.Unlock()
	}()

	token := m.cipher.Decrypt(bot.TokenEncrypted)
	if !secret.ValidBotToken(token) {
		m.logger.Error("bot credential invalid", slog.String("bot_id", bot.ID), slog.String("name", bot.Name))
		m.setState(ctx, bot.ID, store.BotStatusError, store.ConnStateError)
		return ErrBadCredential
	}

	if !bot.PollingEnabled {
		// Dashboard-paused bots never occupy a live connection.
		m.logger.Info("polling disabled, bot stays disconnected", slog.String("bot_id", bot.ID))
		m.setState(ctx, bot.ID, store.BotStatusActive, store.ConnStateDisconnected)
		return nil
	}

	conn, err := m.dialer.Dial(ctx, bot, token, m.route)
	if err != nil {
		m.logger.Error("start polling failed",
			slog.String("bot_id", bot.ID), slog.String("name", bot.Name), slog.Any("error", err))
		m.setState(ctx, bot.ID, store.BotStatusError, store.ConnStateError)
		return err
	}

	m.mu.Lock()
	m.instances[bot.ID] = &instance{
		bot:         bot,
		conn:        conn,
		connected:   true,
		initialized: true,
	}
	m.mu.Unlock()

	m.setState(ctx, bot.ID, store.BotStatusActive, store.ConnStateConnected)
	m.logger.Info("bot connected", slog.String("bot_id", bot.ID), slog.String("name", bot.Name))
	return nil
}

// Shutdown removes the instance from the pool and stops its update loop.
func (m *Manager) Shutdown(id string) {
	m.mu.Lock()
	inst, ok := m.instances[id]
	delete(m.instances, id)
	m.mu.Unlock()
	if !ok {
		return
	}
	if inst.conn != nil {
		inst.conn.Stop()
	}
	m.logger.Info("bot shut down", slog.String("bot_id", id), slog.String("name", inst.bot.Name))
}

// ShutdownAll stops every pooled instance.
func (m *Manager) ShutdownAll() {
	for _, id := range m.IDs() {
		m.Shutdown(id)
	}
}

// HasLive reports whether a connected, initialized instance exists for id.
func (m *Manager) HasLive(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[id]
	return ok && inst.connected && inst.initialized
}

// IDs returns the bot identifiers currently in the pool.
func (m *Manager) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.instances))
	for id := range m.instances {
		ids = append(ids, id)
	}
	return ids
}

// Size returns the number of pooled instances.
func (m *Manager) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.instances)
}

// Snapshot returns the per-bot connection view for the status endpoint.
func (m *Manager) Snapshot() []InstanceStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]InstanceStatus, 0, len(m.instances))
	for id, inst := range m.instances {
		connected := inst.connected
		if inst.conn != nil {
			connected = connected && inst.conn.Running()
		}
		items = append(items, InstanceStatus{
			BotID:     id,
			Name:      inst.bot.Name,
			Connected: connected,
		})
	}
	return items
}

// route sends one update through the matching dispatcher. A panic inside a
// handler is contained here so the connection keeps serving later updates.
func (m *Manager) route(ctx context.Context, bot store.Bot, up dispatch.Update, reply dispatch.ReplySender) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("update handler panicked",
				slog.String("bot_id", bot.ID),
				slog.Int64("chat_id", up.ChatID),
				slog.String("text", up.Text),
				slog.Any("panic", r))
		}
	}()
	if up.IsCommand() {
		m.commands.Dispatch(ctx, bot, up, reply)
		return
	}
	m.messages.Dispatch(ctx, bot, up, reply)
}

// setState writes the status transition best-effort; a store failure must
// not abort connection management.
func (m *Manager) setState(ctx context.Context, botID string, status store.BotStatus, conn store.ConnState) {
	if m.states == nil {
		return
	}
	if err := m.states.SetBotState(ctx, botID, status, conn); err != nil {
		m.logger.Warn("persist bot state failed",
			slog.String("bot_id", botID), slog.String("status", string(status)), slog.Any("error", err))
	}
}
