package modules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"go.uber.org/fx"

	"github.com/botpanel/telegram-bot-service/internal/config"
	"github.com/botpanel/telegram-bot-service/internal/handlers"
	"github.com/botpanel/telegram-bot-service/internal/server"
	"github.com/botpanel/telegram-bot-service/internal/version"
)

var ServerModule = fx.Module(
	"server",
	fx.Provide(
		handlers.NewStatusHandler,
		provideServer,
	),
	fx.Invoke(startServer),
)

// ---------------------------------------------------------------------------
// ops server
// ---------------------------------------------------------------------------

func provideServer(log *slog.Logger, cfg config.Config, status *handlers.StatusHandler) *server.Server {
	return server.NewServer(log, cfg.Server.Addr, status)
}

func startServer(lc fx.Lifecycle, log *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	fmt.Printf("Starting telegram-bot-service %s\n", version.GetInfo())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
