package telegramimpl

import (
	"fmt"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/opentruth/truth-parser-telegram-bot/internal/domain"
	"github.com/opentruth/truth-parser-telegram-bot/pkg/formatter"
)

const (
	maxContentLength = 1500
	// Telegram rejects media captions longer than 1024 characters, and
	// MarkdownV2 escaping can double the content length.
	captionLimit = 1024
)

// SendMessage sends a text message to a specific chat ID.
func (tg *TelegramImpl) SendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := tg.TgBot.Send(msg); err != nil {
		tg.Logger.Error("Error sending message", "chatID", chatID, "error", err)
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// SendMessageToChannel sends plain text to the relay channel.
func (tg *TelegramImpl) SendMessageToChannel(text string) error {
	channelName := "@" + tg.Config.Telegram.Channel
	msg := tgbotapi.NewMessageToChannel(channelName, text)
	if _, err := tg.TgBot.Send(msg); err != nil {
		tg.Logger.Error("Error sending message to channel",
			"channel", channelName,
			"error", err)
		return fmt.Errorf("failed to send message to channel: %w", err)
	}
	return nil
}

// DeliverPost formats one post and sends it to the relay channel. Text with
// the leading attachment goes out as a single message; extra attachments
// follow as a media group and their failure does not fail the delivery.
// Posts whose formatted text exceeds the caption limit go out as a regular
// message instead, with all attachments following as a group, so a long
// image post never produces a caption Telegram will refuse.
func (tg *TelegramImpl) DeliverPost(post domain.Post, profile domain.Profile) error {
	channelName := "@" + tg.Config.Telegram.Channel
	text := formatPost(post, profile)

	img := leadImageURL(post)
	asCaption := img != "" && fitsAsCaption(text)

	var err error
	if asCaption {
		photo := tgbotapi.NewPhotoToChannel(channelName, tgbotapi.FileURL(img))
		photo.Caption = text
		photo.ParseMode = tgbotapi.ModeMarkdownV2
		_, err = tg.TgBot.Send(photo)
	} else {
		msg := tgbotapi.NewMessageToChannel(channelName, text)
		msg.ParseMode = tgbotapi.ModeMarkdownV2
		msg.DisableWebPagePreview = false
		_, err = tg.TgBot.Send(msg)
	}

	if err != nil {
		tg.Logger.Error("Error delivering post",
			"channel", channelName,
			"post_id", post.ID,
			"error", err)
		return fmt.Errorf("failed to deliver post %s: %w", post.ID, err)
	}

	switch {
	case asCaption && len(post.Media) > 1:
		tg.sendMediaGroup(channelName, post, post.Media[1:])
	case !asCaption && img != "":
		tg.sendMediaGroup(channelName, post, post.Media)
	}

	return nil
}

func fitsAsCaption(text string) bool {
	return utf8.RuneCountInString(text) <= captionLimit
}

func (tg *TelegramImpl) sendMediaGroup(channelName string, post domain.Post, media []domain.MediaAttachment) {
	var group []interface{}
	for _, m := range media {
		switch m.Type {
		case "image":
			group = append(group, tgbotapi.NewInputMediaPhoto(tgbotapi.FileURL(m.URL)))
		case "video":
			if m.PreviewURL != "" {
				group = append(group, tgbotapi.NewInputMediaPhoto(tgbotapi.FileURL(m.PreviewURL)))
			}
		}
	}
	if len(group) == 0 {
		return
	}

	mg := tgbotapi.MediaGroupConfig{
		ChannelUsername: channelName,
		Media:           group,
	}
	if _, err := tg.TgBot.SendMediaGroup(mg); err != nil {
		tg.Logger.Warn("Failed to send extra media, post text already delivered",
			"post_id", post.ID,
			"error", err)
	}
}

// formatPost renders the channel message: author line, content, video link,
// link card, engagement footer.
func formatPost(post domain.Post, profile domain.Profile) string {
	var sb strings.Builder

	author := profile.DisplayName
	if author == "" {
		author = post.Author
	}
	verified := ""
	if profile.Verified {
		verified = " ✅"
	}
	sb.WriteString(fmt.Sprintf("📢 *%s* \\(@%s\\)%s\n\n",
		formatter.EscapeMarkdownV2(author),
		formatter.EscapeMarkdownV2(post.Author),
		verified))

	if post.Content != "" {
		sb.WriteString(formatter.EscapeMarkdownV2(formatter.Truncate(post.Content, maxContentLength)))
		sb.WriteString("\n\n")
	}

	if v := leadVideo(post); v != nil {
		sb.WriteString(fmt.Sprintf("🎬 [Watch video](%s)\n", post.URL))
	}

	if post.Card != nil {
		title := post.Card.Title
		if title == "" {
			title = "Link"
		}
		sb.WriteString(fmt.Sprintf("🔗 [%s](%s)\n",
			formatter.EscapeMarkdownV2(title),
			post.Card.URL))
	}

	sb.WriteString(fmt.Sprintf("♻️ %s • ❤️ %s • 💬 %s\n",
		formatter.EscapeMarkdownV2(formatter.FormatNumber(post.Reblogs)),
		formatter.EscapeMarkdownV2(formatter.FormatNumber(post.Favourites)),
		formatter.EscapeMarkdownV2(formatter.FormatNumber(post.Replies))))

	sb.WriteString(fmt.Sprintf("[View on Truth Social](%s)", post.URL))

	return sb.String()
}

func leadImageURL(post domain.Post) string {
	if len(post.Media) == 0 {
		return ""
	}
	m := post.Media[0]
	switch m.Type {
	case "image":
		return m.URL
	case "video":
		return m.PreviewURL
	}
	return ""
}

func leadVideo(post domain.Post) *domain.MediaAttachment {
	if len(post.Media) > 0 && post.Media[0].Type == "video" {
		return &post.Media[0]
	}
	return nil
}
