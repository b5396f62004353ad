package commandimpl

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/opentruth/truth-parser-telegram-bot/internal/command"
	"github.com/opentruth/truth-parser-telegram-bot/internal/ratelimit"
	"github.com/opentruth/truth-parser-telegram-bot/internal/repositories/trackedaccount"
	"github.com/opentruth/truth-parser-telegram-bot/internal/telegram"
	"github.com/opentruth/truth-parser-telegram-bot/internal/truthsocial"
	"github.com/opentruth/truth-parser-telegram-bot/pkg/config"
	"github.com/opentruth/truth-parser-telegram-bot/pkg/logger"
	"go.uber.org/fx"
)

type Opts struct {
	fx.In

	Telegram    telegram.Client
	TruthSocial truthsocial.Client
	AccountRepo trackedaccount.Repository
	Limiter     ratelimit.Limiter
	Logger      logger.Logger
	Config      *config.Config
}

type CommandImpl struct {
	Telegram    telegram.Client
	TruthSocial truthsocial.Client
	AccountRepo trackedaccount.Repository
	Limiter     ratelimit.Limiter
	Logger      logger.Logger
	Config      *config.Config
}

func New(opts Opts) *CommandImpl {
	return &CommandImpl{
		Telegram:    opts.Telegram,
		TruthSocial: opts.TruthSocial,
		AccountRepo: opts.AccountRepo,
		Limiter:     opts.Limiter,
		Logger:      opts.Logger.WithComponent("Command"),
		Config:      opts.Config,
	}
}

var _ command.Client = (*CommandImpl)(nil)

// HandleCommands runs the long-poll loop over bot updates.
func (c *CommandImpl) HandleCommands(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := c.Telegram.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}

			if update.Message.From != nil && !c.Limiter.Allow(update.Message.From.ID) {
				if err := c.Telegram.SendMessage(update.Message.Chat.ID,
					"⏳ Slow down a little. Try again in a few seconds."); err != nil {
					c.Logger.Error("Failed to send cooldown reply", "error", err)
				}
				continue
			}

			c.dispatch(ctx, update)
		}
	}
}

func (c *CommandImpl) dispatch(ctx context.Context, update tgbotapi.Update) {
	chatID := update.Message.Chat.ID
	args := update.Message.CommandArguments()

	switch update.Message.Command() {
	case "track":
		c.handleTrack(ctx, chatID, args)
	case "untrack":
		c.handleUntrack(ctx, chatID, args)
	case "list":
		c.handleList(ctx, chatID)
	case "stats":
		c.handleStats(ctx, chatID, args)
	case "search":
		c.handleSearch(ctx, chatID, args)
	case "help", "start":
		c.handleHelp(chatID)
	default:
		c.reply(chatID, "Unknown command. Use /help to see what I can do.")
	}
}

func (c *CommandImpl) reply(chatID int64, text string) {
	if err := c.Telegram.SendMessage(chatID, text); err != nil {
		c.Logger.Error("Failed to send command reply", "chatID", chatID, "error", err)
	}
}
