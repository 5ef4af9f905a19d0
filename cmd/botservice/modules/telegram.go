package modules

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"

	"github.com/botpanel/telegram-bot-service/internal/ai"
	"github.com/botpanel/telegram-bot-service/internal/config"
	"github.com/botpanel/telegram-bot-service/internal/dispatch"
	"github.com/botpanel/telegram-bot-service/internal/secret"
	"github.com/botpanel/telegram-bot-service/internal/store"
	"github.com/botpanel/telegram-bot-service/internal/telegrampool"
)

var TelegramModule = fx.Module(
	"telegram",
	fx.Provide(
		provideCipher,
		dispatch.NewLimiter,
		provideCompleter,
		provideCommandDispatcher,
		provideMessageDispatcher,
		providePoolManager,
		provideReconciler,
	),
	fx.Invoke(startReconciler, startDailyReset),
)

// ---------------------------------------------------------------------------
// telegram runtime providers
// ---------------------------------------------------------------------------

func provideCipher(cfg config.Config) *secret.Cipher {
	return secret.NewCipher(cfg.Telegram.TokenSecret)
}

func provideCompleter(log *slog.Logger, cfg config.Config) dispatch.Completer {
	return ai.NewClient(log, cfg.OpenAI)
}

func provideCommandDispatcher(log *slog.Logger, storeService *store.Service, recorder store.ActivityRecorder, limiter *dispatch.Limiter) *dispatch.CommandDispatcher {
	return dispatch.NewCommandDispatcher(log, storeService, recorder, limiter)
}

func provideMessageDispatcher(log *slog.Logger, completer dispatch.Completer, recorder store.ActivityRecorder, limiter *dispatch.Limiter) *dispatch.MessageDispatcher {
	return dispatch.NewMessageDispatcher(log, completer, recorder, limiter)
}

func providePoolManager(log *slog.Logger, cipher *secret.Cipher, storeService *store.Service,
	commands *dispatch.CommandDispatcher, messages *dispatch.MessageDispatcher,
) *telegrampool.Manager {
	dialer := telegrampool.NewPollingDialer(log)
	return telegrampool.NewManager(log, cipher, storeService, dialer, commands, messages)
}

func provideReconciler(log *slog.Logger, pool *telegrampool.Manager, storeService *store.Service, cfg config.Config) *telegrampool.Reconciler {
	interval := time.Duration(cfg.Telegram.PollIntervalSeconds) * time.Second
	return telegrampool.NewReconciler(log, pool, storeService, interval)
}

func startReconciler(lc fx.Lifecycle, reconciler *telegrampool.Reconciler, limiter *dispatch.Limiter) {
	runCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go reconciler.Run(runCtx)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			reconciler.Shutdown()
			limiter.Reset()
			return nil
		},
	})
}

func startDailyReset(lc fx.Lifecycle, log *slog.Logger, storeService *store.Service) {
	scheduler := cron.New()
	// Midnight: the dashboard's messages_today widget rolls over here.
	_, err := scheduler.AddFunc("0 0 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := storeService.ResetDailyCounters(ctx); err != nil {
			log.Error("daily counter reset failed", slog.Any("error", err))
		}
	})
	if err != nil {
		log.Error("schedule daily reset failed", slog.Any("error", err))
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			scheduler.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			scheduler.Stop()
			return nil
		},
	})
}
