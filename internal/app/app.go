package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/opentruth/truth-parser-telegram-bot/internal/command"
	"github.com/opentruth/truth-parser-telegram-bot/internal/command/commandimpl"
	_ "github.com/opentruth/truth-parser-telegram-bot/internal/migrations"
	"github.com/opentruth/truth-parser-telegram-bot/internal/poller"
	"github.com/opentruth/truth-parser-telegram-bot/internal/poller/pollerimpl"
	"github.com/opentruth/truth-parser-telegram-bot/internal/ratelimit"
	"github.com/opentruth/truth-parser-telegram-bot/internal/repositories/trackedaccount"
	"github.com/opentruth/truth-parser-telegram-bot/internal/telegram"
	"github.com/opentruth/truth-parser-telegram-bot/internal/telegram/telegramimpl"
	"github.com/opentruth/truth-parser-telegram-bot/internal/truthsocial"
	"github.com/opentruth/truth-parser-telegram-bot/internal/truthsocial/apifyimpl"
	"github.com/opentruth/truth-parser-telegram-bot/pkg/config"
	"github.com/opentruth/truth-parser-telegram-bot/pkg/logger"
	"github.com/opentruth/truth-parser-telegram-bot/pkg/pgx"
	"github.com/pressly/goose/v3"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(
		config.New,
		logger.FxOption,
		pgx.New,
	),
	fx.Provide(
		fx.Annotate(
			telegramimpl.New,
			fx.As(new(telegram.Client)),
		),
		fx.Annotate(
			apifyimpl.New,
			fx.As(new(truthsocial.Client)),
		),
		fx.Annotate(
			pollerimpl.New,
			fx.As(new(poller.Client)),
		),
		fx.Annotate(
			commandimpl.New,
			fx.As(new(command.Client)),
		),
		func() ratelimit.Limiter {
			return ratelimit.NewInMemoryLimiter(1, 30*time.Second, 2)
		},
	),
	trackedaccount.Module,
	fx.Invoke(migrate),
	fx.Invoke(run),
)

func migrate(cfg *config.Config) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return err
	}
	defer db.Close()

	// Migrations are registered from internal/migrations via their init
	// functions, so no on-disk directory is needed.
	return goose.Up(db, ".")
}

func run(lc fx.Lifecycle, log logger.Logger, cfg *config.Config, tgClient telegram.Client,
	tsClient truthsocial.Client, pClient poller.Client, cmdClient command.Client) {
	appCtx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go startHttpServer(log, cfg)

			if err := tsClient.ValidateToken(appCtx); err != nil {
				log.Error("Apify token validation failed", "error", err)
				if sendErr := tgClient.SendMessage(cfg.Telegram.User,
					"⚠️ Apify token validation failed: "+err.Error()); sendErr != nil {
					log.Error("Failed to notify operator", "error", sendErr)
				}
			}

			if err := pClient.ScheduleChecks(appCtx); err != nil {
				return fmt.Errorf("failed to schedule post checks: %w", err)
			}

			go func() {
				if err := cmdClient.HandleCommands(appCtx); err != nil {
					log.Error("Command loop stopped", "error", err)
				}
			}()

			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			tgClient.StopReceivingUpdates()
			return nil
		},
	})
}

func startHttpServer(log logger.Logger, cfg *config.Config) {
	http.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		if _, err := w.Write([]byte("ok")); err != nil {
			log.Error("Failed to write health response", "error", err)
		}
	})

	log.Info(fmt.Sprintf("Starting server on :%d", cfg.App.Port))

	if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.App.Port), nil); err != nil {
		log.Error("Server failed to start", "error", err)
	}
}
