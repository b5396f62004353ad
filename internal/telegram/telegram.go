package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/opentruth/truth-parser-telegram-bot/internal/domain"
)

type Client interface {
	GetUpdatesChan(u tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()

	SendMessage(chatID int64, text string) error

	// DeliverPost sends one post to the relay channel. A non-nil error means
	// the post is undelivered and the caller must not advance the watermark
	// past it.
	DeliverPost(post domain.Post, profile domain.Profile) error

	SendMessageToChannel(text string) error
}
