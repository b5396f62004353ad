package commandimpl

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/opentruth/truth-parser-telegram-bot/internal/domain"
	"github.com/opentruth/truth-parser-telegram-bot/internal/repositories/trackedaccount"
	"github.com/opentruth/truth-parser-telegram-bot/pkg/formatter"
)

func (c *CommandImpl) handleTrack(ctx context.Context, chatID int64, args string) {
	username := trackedaccount.SanitizeUsername(args)
	if username == "" {
		c.reply(chatID, "Please provide a username. Example: /track realdonaldtrump")
		return
	}
	if !trackedaccount.ValidUsername(username) {
		c.reply(chatID, "⚠️ Invalid username. Usernames can only contain letters, numbers and underscores.")
		return
	}

	if _, err := c.AccountRepo.GetByUsername(ctx, username); err == nil {
		c.reply(chatID, fmt.Sprintf("ℹ️ Already tracking @%s.", username))
		return
	}

	acc := domain.TrackedAccount{Username: username}

	// Seed the watermark from the newest post so tracking starts clean
	// instead of replaying history. When the lookup fails the account is
	// still created and the poller baselines it on the first cycle.
	data, err := c.TruthSocial.FetchLatest(ctx, username, c.Config.Poller.PostLimit)
	if err != nil {
		c.Logger.Warn("Lookup failed while tracking, deferring baseline", "username", username, "error", err)
	} else if len(data.Posts) > 0 {
		acc.LastSeenPostID = data.Posts[0].ID
		acc.LastSeenAt = data.Posts[0].CreatedAt
	}

	if err := c.AccountRepo.Create(ctx, acc); err != nil {
		if errors.Is(err, trackedaccount.ErrAlreadyTracked) {
			c.reply(chatID, fmt.Sprintf("ℹ️ Already tracking @%s.", username))
			return
		}
		c.Logger.Error("Failed to create tracked account", "username", username, "error", err)
		c.reply(chatID, "Something went wrong. Please try again later.")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🔔 Now tracking @%s.\n", username))
	if err == nil && data.Profile.Statuses > 0 {
		sb.WriteString(fmt.Sprintf("Followers: %s • Posts: %s",
			formatter.FormatNumber(data.Profile.Followers),
			formatter.FormatNumber(data.Profile.Statuses)))
		if data.Profile.Verified {
			sb.WriteString(" • Verified ✅")
		}
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("https://truthsocial.com/@%s", username))

	c.reply(chatID, sb.String())
	c.Logger.Info("Started tracking account", "username", username)
}

func (c *CommandImpl) handleUntrack(ctx context.Context, chatID int64, args string) {
	username := trackedaccount.SanitizeUsername(args)
	if username == "" {
		c.reply(chatID, "Please provide a username. Example: /untrack realdonaldtrump")
		return
	}

	if err := c.AccountRepo.Delete(ctx, username); err != nil {
		if errors.Is(err, trackedaccount.ErrNotTracked) {
			c.reply(chatID, fmt.Sprintf("⚠️ @%s was not being tracked.", username))
			return
		}
		c.Logger.Error("Failed to delete tracked account", "username", username, "error", err)
		c.reply(chatID, "Something went wrong. Please try again later.")
		return
	}

	c.reply(chatID, fmt.Sprintf("🚫 Stopped tracking @%s.", username))
	c.Logger.Info("Stopped tracking account", "username", username)
}

func (c *CommandImpl) handleList(ctx context.Context, chatID int64) {
	accounts, err := c.AccountRepo.GetAll(ctx)
	if err != nil {
		c.Logger.Error("Failed to list tracked accounts", "error", err)
		c.reply(chatID, "Something went wrong while loading the list.")
		return
	}

	if len(accounts) == 0 {
		c.reply(chatID, "📝 No accounts are currently being tracked. Use /track to start.")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📋 Tracking %d account(s):\n", len(accounts)))
	for i, acc := range accounts {
		sb.WriteString(fmt.Sprintf("%d. @%s — since %s, %d post(s) relayed\n",
			i+1, acc.Username, acc.CreatedAt.Format("2006-01-02"), acc.PostCount))
	}

	c.reply(chatID, sb.String())
}

func (c *CommandImpl) handleStats(ctx context.Context, chatID int64, args string) {
	username := trackedaccount.SanitizeUsername(args)
	if username == "" {
		c.reply(chatID, "Please provide a username. Example: /stats realdonaldtrump")
		return
	}

	acc, err := c.AccountRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, trackedaccount.ErrNotTracked) {
			c.reply(chatID, fmt.Sprintf("⚠️ @%s is not being tracked.", username))
			return
		}
		c.Logger.Error("Failed to load tracked account", "username", username, "error", err)
		c.reply(chatID, "Something went wrong. Please try again later.")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📊 @%s\n", username))
	sb.WriteString(fmt.Sprintf("Tracked since: %s\n", acc.CreatedAt.Format("2006-01-02")))
	sb.WriteString(fmt.Sprintf("Posts relayed: %d\n", acc.PostCount))

	if data, err := c.TruthSocial.FetchLatest(ctx, username, 1); err == nil {
		sb.WriteString(fmt.Sprintf("Followers: %s • Posts: %s",
			formatter.FormatNumber(data.Profile.Followers),
			formatter.FormatNumber(data.Profile.Statuses)))
		if data.Profile.Verified {
			sb.WriteString(" • Verified ✅")
		}
	}

	c.reply(chatID, sb.String())
}

const searchResultLimit = 5

func (c *CommandImpl) handleSearch(ctx context.Context, chatID int64, args string) {
	parts := strings.SplitN(strings.TrimSpace(args), " ", 2)
	if len(parts) < 2 {
		c.reply(chatID, "Usage: /search <username> <query>")
		return
	}

	username := trackedaccount.SanitizeUsername(parts[0])
	query := strings.ToLower(strings.TrimSpace(parts[1]))
	if username == "" || query == "" {
		c.reply(chatID, "Usage: /search <username> <query>")
		return
	}

	data, err := c.TruthSocial.FetchLatest(ctx, username, c.Config.Poller.PostLimit)
	if err != nil {
		c.Logger.Error("Search fetch failed", "username", username, "error", err)
		c.reply(chatID, fmt.Sprintf("⚠️ Could not fetch posts for @%s right now.", username))
		return
	}

	var hits []domain.Post
	for _, post := range data.Posts {
		if strings.Contains(strings.ToLower(post.Content), query) {
			hits = append(hits, post)
			if len(hits) == searchResultLimit {
				break
			}
		}
	}

	if len(hits) == 0 {
		c.reply(chatID, fmt.Sprintf("🔍 No recent posts from @%s match %q.", username, query))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🔍 %d match(es) in recent posts from @%s:\n", len(hits), username))
	for _, post := range hits {
		sb.WriteString(fmt.Sprintf("• %s\n  %s\n", formatter.Truncate(post.Content, 120), post.URL))
	}

	c.reply(chatID, sb.String())
}

func (c *CommandImpl) handleHelp(chatID int64) {
	help := strings.Join([]string{
		"Truth Social Tracker",
		"",
		"/track <username> — start tracking an account",
		"/untrack <username> — stop tracking an account",
		"/list — show all tracked accounts",
		"/stats <username> — account and tracking stats",
		"/search <username> <query> — search recent posts",
		"/help — this message",
		"",
		"Usernames are case-insensitive. New posts are checked every 5 minutes.",
	}, "\n")

	c.reply(chatID, help)
}
