package store

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Activity is the non-critical side effect of one inbound event: its audit
// log entry plus the counter bump attributed to the sending user.
type Activity struct {
	Log     LogEntry
	UserKey string
}

// ActivityRecorder persists activity without ever failing the caller. A bot
// must not stop responding because logging failed.
type ActivityRecorder interface {
	Record(ctx context.Context, act Activity)
}

// BestEffortRecorder writes activity through the store, counting failures
// instead of returning them.
type BestEffortRecorder struct {
	store    *Service
	logger   *slog.Logger
	failures atomic.Int64
}

func NewBestEffortRecorder(log *slog.Logger, store *Service) *BestEffortRecorder {
	if log == nil {
		log = slog.Default()
	}
	return &BestEffortRecorder{
		store:  store,
		logger: log.With(slog.String("service", "activity")),
	}
}

// Record appends the log entry and bumps counters. Failures are logged and
// counted; they never propagate.
func (r *BestEffortRecorder) Record(ctx context.Context, act Activity) {
	if r.store == nil {
		return
	}
	if err := r.store.InsertLog(ctx, act.Log); err != nil {
		r.failures.Add(1)
		r.logger.Warn("insert log failed", slog.String("bot_id", act.Log.BotID), slog.Any("error", err))
	}
	if err := r.store.RecordActivity(ctx, act.Log.BotID, act.UserKey); err != nil {
		r.failures.Add(1)
		r.logger.Warn("record activity failed", slog.String("bot_id", act.Log.BotID), slog.Any("error", err))
	}
}

// Failures returns the number of dropped writes since process start.
func (r *BestEffortRecorder) Failures() int64 {
	return r.failures.Load()
}
