package telegrampool

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/botpanel/telegram-bot-service/internal/store"
)

// BotLister reads the desired bot set from the store.
type BotLister interface {
	ListActiveBots(ctx context.Context) ([]store.Bot, error)
}

// Reconciler periodically converges the live pool toward the set of active
// bot records: newly-activated bots are started, deactivated ones stopped.
// Deactivation in the dashboard takes effect within one poll interval.
type Reconciler struct {
	pool         *Manager
	bots         BotLister
	interval     time.Duration
	logger       *slog.Logger
	shuttingDown atomic.Bool
}

func NewReconciler(log *slog.Logger, pool *Manager, bots BotLister, interval time.Duration) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Reconciler{
		pool:     pool,
		bots:     bots,
		interval: interval,
		logger:   log.With(slog.String("service", "reconciler")),
	}
}

// Run performs an immediate pass and then ticks until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	r.logger.Info("reconciler start", slog.Duration("interval", r.interval))
	r.Reconcile(ctx)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stop")
			return
		case <-ticker.C:
			r.Reconcile(ctx)
		}
	}
}

// Reconcile runs one diff pass. Skipped entirely while a shutdown is in
// progress so stopped bots are not restarted mid-teardown.
func (r *Reconciler) Reconcile(ctx context.Context) {
	if r.shuttingDown.Load() {
		return
	}
	active, err := r.bots.ListActiveBots(ctx)
	if err != nil {
		r.logger.Error("list active bots failed", slog.Any("error", err))
		return
	}

	desired := make(map[string]struct{}, len(active))
	for _, bot := range active {
		desired[bot.ID] = struct{}{}
		if r.pool.HasLive(bot.ID) {
			continue
		}
		if err := r.pool.Initialize(ctx, bot); err != nil {
			if errors.Is(err, ErrInitInProgress) {
				continue
			}
			r.logger.Error("initialize bot failed",
				slog.String("bot_id", bot.ID), slog.String("name", bot.Name), slog.Any("error", err))
		}
	}

	for _, id := range r.pool.IDs() {
		if _, ok := desired[id]; !ok {
			r.pool.Shutdown(id)
		}
	}
}

// Shutdown flags the reconciler as stopping and tears down the pool.
func (r *Reconciler) Shutdown() {
	r.shuttingDown.Store(true)
	r.pool.ShutdownAll()
}
