package pollerimpl

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/opentruth/truth-parser-telegram-bot/internal/poller"
	"github.com/opentruth/truth-parser-telegram-bot/internal/repositories/trackedaccount"
	"github.com/opentruth/truth-parser-telegram-bot/internal/telegram"
	"github.com/opentruth/truth-parser-telegram-bot/internal/truthsocial"
	"github.com/opentruth/truth-parser-telegram-bot/pkg/config"
	"github.com/opentruth/truth-parser-telegram-bot/pkg/logger"
	"go.uber.org/fx"
)

type Opts struct {
	fx.In

	TruthSocial truthsocial.Client
	Telegram    telegram.Client
	AccountRepo trackedaccount.Repository
	Logger      logger.Logger
	Config      *config.Config
}

type PollerImpl struct {
	TruthSocial truthsocial.Client
	Telegram    telegram.Client
	AccountRepo trackedaccount.Repository
	Logger      logger.Logger
	Config      *config.Config
}

func New(opts Opts) *PollerImpl {
	return &PollerImpl{
		TruthSocial: opts.TruthSocial,
		Telegram:    opts.Telegram,
		AccountRepo: opts.AccountRepo,
		Logger:      opts.Logger.WithComponent("Poller"),
		Config:      opts.Config,
	}
}

var _ poller.Client = (*PollerImpl)(nil)

// ScheduleChecks sets up the recurring post check on the configured cron
// interval (every 5 minutes by default).
func (p *PollerImpl) ScheduleChecks(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create poll scheduler: %w", err)
	}

	interval := p.Config.Poller.CheckInterval
	p.Logger.Info("Scheduling post checks", "interval", interval)

	_, err = scheduler.NewJob(
		gocron.CronJob(interval, false),
		gocron.NewTask(func() {
			if ctx.Err() != nil {
				p.Logger.Info("Context cancelled, skipping post check")
				return
			}

			cycleCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
			defer cancel()

			p.RunCycle(cycleCtx)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule post checks: %w", err)
	}

	scheduler.Start()

	go func() {
		<-ctx.Done()
		p.Logger.Info("Stopping poll scheduler")
		if err := scheduler.Shutdown(); err != nil {
			p.Logger.Error("Failed to shut down poll scheduler", "error", err)
		}
	}()

	return nil
}
