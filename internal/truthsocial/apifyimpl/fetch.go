package apifyimpl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/opentruth/truth-parser-telegram-bot/internal/domain"
	"github.com/opentruth/truth-parser-telegram-bot/internal/truthsocial"
	"github.com/opentruth/truth-parser-telegram-bot/pkg/retry"
)

type runInput struct {
	Username     string `json:"username"`
	MaxPosts     int    `json:"maxPosts"`
	OnlyReplies  bool   `json:"onlyReplies"`
	OnlyMedia    bool   `json:"onlyMedia"`
	CleanContent bool   `json:"cleanContent"`
}

type apiAccount struct {
	Username       string `json:"username"`
	DisplayName    string `json:"display_name"`
	Avatar         string `json:"avatar"`
	Verified       bool   `json:"verified"`
	FollowersCount int    `json:"followers_count"`
	StatusesCount  int    `json:"statuses_count"`
}

type apiMedia struct {
	Type       string `json:"type"`
	URL        string `json:"url"`
	PreviewURL string `json:"preview_url"`
}

type apiCard struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Image       string `json:"image"`
}

type apiPost struct {
	ID              string     `json:"id"`
	Content         string     `json:"content"`
	URL             string     `json:"url"`
	CreatedAt       string     `json:"created_at"`
	Account         apiAccount `json:"account"`
	Media           []apiMedia `json:"media_attachments"`
	Card            *apiCard   `json:"card"`
	ReblogsCount    int        `json:"reblogs_count"`
	FavouritesCount int        `json:"favourites_count"`
	RepliesCount    int        `json:"replies_count"`
}

type fetchStrategy struct {
	name string
	run  func(ctx context.Context, input runInput) ([]apiPost, error)
}

// FetchLatest retrieves the most recent posts for a user. The data-source
// strategies are tried in order, first success wins.
func (a *ApifyImpl) FetchLatest(ctx context.Context, username string, limit int) (*truthsocial.UserData, error) {
	input := runInput{
		Username:     username,
		MaxPosts:     limit,
		CleanContent: true,
	}

	strategies := []fetchStrategy{
		{name: "run-sync", run: a.runSyncFetch},
		{name: "actor-run", run: a.actorRunFetch},
	}

	var lastErr error
	for _, strategy := range strategies {
		items, err := strategy.run(ctx, input)
		if err != nil {
			a.logger.Warn("Fetch strategy failed",
				"strategy", strategy.name,
				"username", username,
				"error", err)
			lastErr = err
			continue
		}
		return a.buildUserData(username, limit, items), nil
	}

	return nil, fmt.Errorf("all strategies failed for %s: %v: %w", username, lastErr, truthsocial.ErrFetchFailed)
}

// runSyncFetch uses the run-sync-get-dataset-items endpoint: one POST,
// dataset items in the response body.
func (a *ApifyImpl) runSyncFetch(ctx context.Context, input runInput) ([]apiPost, error) {
	url := fmt.Sprintf("%s/acts/%s/run-sync-get-dataset-items", a.baseURL, a.actorID)

	body, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.token)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// The endpoint answers 201 when the run was created and finished.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, apiError(resp)
	}

	var items []apiPost
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("malformed dataset response: %w", err)
	}
	return items, nil
}

type actorRun struct {
	Data struct {
		ID               string `json:"id"`
		Status           string `json:"status"`
		DefaultDatasetID string `json:"defaultDatasetId"`
	} `json:"data"`
}

// actorRunFetch is the fallback path: start an actor run, wait for it to
// succeed, then pull the dataset items.
func (a *ApifyImpl) actorRunFetch(ctx context.Context, input runInput) ([]apiPost, error) {
	url := fmt.Sprintf("%s/acts/%s/runs", a.baseURL, a.actorID)

	body, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.token)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, apiError(resp)
	}

	var run actorRun
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		return nil, fmt.Errorf("malformed run response: %w", err)
	}
	if run.Data.DefaultDatasetID == "" {
		return nil, fmt.Errorf("actor run has no default dataset")
	}

	if run.Data.Status != "SUCCEEDED" {
		if err := a.waitForRun(ctx, run.Data.ID); err != nil {
			return nil, err
		}
	}

	return a.datasetItems(ctx, run.Data.DefaultDatasetID)
}

func (a *ApifyImpl) waitForRun(ctx context.Context, runID string) error {
	url := fmt.Sprintf("%s/actor-runs/%s", a.baseURL, runID)

	check := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+a.token)

		resp, err := a.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return apiError(resp)
		}

		var run actorRun
		if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
			return err
		}

		switch run.Data.Status {
		case "SUCCEEDED":
			return nil
		case "FAILED", "ABORTED", "TIMED-OUT":
			return fmt.Errorf("actor run %s ended with status %s", runID, run.Data.Status)
		default:
			return fmt.Errorf("actor run %s still %s", runID, run.Data.Status)
		}
	}

	return retry.Do(ctx, a.logger, "WaitActorRun", check, retry.ActorRunConfig())
}

func (a *ApifyImpl) datasetItems(ctx context.Context, datasetID string) ([]apiPost, error) {
	url := fmt.Sprintf("%s/datasets/%s/items", a.baseURL, datasetID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+a.token)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var items []apiPost
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("malformed dataset response: %w", err)
	}
	return items, nil
}

// ValidateToken makes a cheap authenticated call so a bad token surfaces at
// startup instead of on the first poll.
func (a *ApifyImpl) ValidateToken(ctx context.Context) error {
	url := fmt.Sprintf("%s/users/me", a.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+a.token)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("token validation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token validation failed: %w", apiError(resp))
	}

	a.logger.Info("Apify token validated")
	return nil
}

// buildUserData converts actor output to domain types, dropping the
// placeholder entries the actor emits when an account has no real data.
func (a *ApifyImpl) buildUserData(username string, limit int, items []apiPost) *truthsocial.UserData {
	data := &truthsocial.UserData{
		Profile: domain.Profile{Username: username, DisplayName: username},
	}

	profileSet := false
	for _, item := range items {
		if domain.IsMockPost(item.ID) {
			a.logger.Debug("Discarding placeholder entry", "post_id", item.ID, "username", username)
			continue
		}

		if !profileSet && item.Account.Username != "" {
			profileSet = true
			data.Profile = domain.Profile{
				Username:    username,
				DisplayName: item.Account.DisplayName,
				Avatar:      item.Account.Avatar,
				Verified:    item.Account.Verified,
				Followers:   item.Account.FollowersCount,
				Statuses:    item.Account.StatusesCount,
			}
			if data.Profile.DisplayName == "" {
				data.Profile.DisplayName = username
			}
		}

		data.Posts = append(data.Posts, convertPost(username, item))
		if len(data.Posts) >= limit {
			break
		}
	}

	return data
}

func convertPost(username string, item apiPost) domain.Post {
	post := domain.Post{
		ID:         item.ID,
		Author:     username,
		Content:    item.Content,
		URL:        item.URL,
		Reblogs:    item.ReblogsCount,
		Favourites: item.FavouritesCount,
		Replies:    item.RepliesCount,
	}

	if post.URL == "" {
		post.URL = fmt.Sprintf("https://truthsocial.com/@%s/posts/%s", username, item.ID)
	}

	if ts, err := time.Parse(time.RFC3339, item.CreatedAt); err == nil {
		post.CreatedAt = ts
	}

	for _, m := range item.Media {
		post.Media = append(post.Media, domain.MediaAttachment{
			Type:       m.Type,
			URL:        m.URL,
			PreviewURL: m.PreviewURL,
		})
	}

	if item.Card != nil && item.Card.URL != "" {
		post.Card = &domain.Card{
			Title:       item.Card.Title,
			Description: item.Card.Description,
			URL:         item.Card.URL,
			Image:       item.Card.Image,
		}
	}

	return post
}

func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("apify API error: %d - %s", resp.StatusCode, string(body))
}
