package pollerimpl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/opentruth/truth-parser-telegram-bot/internal/domain"
	"github.com/panjf2000/ants/v2"
)

const cycleWorkers = 3

// RunCycle performs one poll cycle: snapshot the tracked accounts and check
// each one independently. A failure on one account never aborts the others.
func (p *PollerImpl) RunCycle(ctx context.Context) {
	accounts, err := p.AccountRepo.GetAll(ctx)
	if err != nil {
		p.Logger.Error("Failed to load tracked accounts", "error", err)
		return
	}

	if len(accounts) == 0 {
		p.Logger.Debug("No tracked accounts, skipping cycle")
		return
	}

	p.Logger.Info("Starting poll cycle", "accounts", len(accounts))

	pool, err := ants.NewPool(cycleWorkers, ants.WithPreAlloc(true))
	if err != nil {
		p.Logger.Error("Failed to create worker pool", "error", err)
		return
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for _, acc := range accounts {
		wg.Add(1)
		account := acc

		if err := pool.Submit(func() {
			defer wg.Done()
			select {
			case <-ctx.Done():
				p.Logger.Info("Skipping account, cycle cancelled", "username", account.Username)
			default:
				if err := p.checkAccount(ctx, account); err != nil {
					p.Logger.Error("Account check failed", "username", account.Username, "error", err)
				}
			}
		}); err != nil {
			wg.Done()
			p.Logger.Error("Failed to submit account check", "username", account.Username, "error", err)
		}
	}

	wg.Wait()
	p.Logger.Info("Poll cycle completed")
}

// checkAccount fetches the latest posts for one account, relays the
// genuinely new ones oldest first and advances the watermark.
//
// Watermark policy: on the very first cycle for an account the newest post
// id is recorded without relaying anything, so tracking never floods the
// channel with history. After a delivery failure the watermark stops at the
// last delivered post; the remainder is re-attempted next cycle, trading
// possible duplicates for guaranteed no loss.
func (p *PollerImpl) checkAccount(ctx context.Context, acc *domain.TrackedAccount) error {
	data, err := p.TruthSocial.FetchLatest(ctx, acc.Username, p.Config.Poller.PostLimit)
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}

	if len(data.Posts) == 0 {
		p.Logger.Debug("No posts returned", "username", acc.Username)
		return nil
	}

	if acc.LastSeenPostID == "" {
		newest, ok := newestReal(data.Posts)
		if !ok {
			p.Logger.Debug("Only placeholder posts returned, baseline deferred", "username", acc.Username)
			return nil
		}
		p.Logger.Info("Baseline set for new account",
			"username", acc.Username,
			"post_id", newest.ID)
		return p.AccountRepo.UpdateLastSeen(ctx, acc.Username, newest.ID, newest.CreatedAt, 0)
	}

	newPosts := partitionNew(data.Posts, acc.LastSeenPostID, acc.LastSeenAt)
	if len(newPosts) == 0 {
		p.Logger.Debug("No new posts", "username", acc.Username)
		return nil
	}

	p.Logger.Info("Relaying new posts", "username", acc.Username, "count", len(newPosts))

	delivered := 0
	var deliveryErr error
	var last domain.Post
	for _, post := range newPosts {
		if err := p.Telegram.DeliverPost(post, data.Profile); err != nil {
			deliveryErr = err
			break
		}
		delivered++
		last = post
	}

	if deliveryErr != nil {
		deliveryErr = fmt.Errorf("delivery stopped after %d of %d posts: %w", delivered, len(newPosts), deliveryErr)
	}

	if delivered > 0 {
		if err := p.AccountRepo.UpdateLastSeen(ctx, acc.Username, last.ID, last.CreatedAt, delivered); err != nil {
			// Keep the delivery failure visible alongside the watermark one.
			return errors.Join(deliveryErr, fmt.Errorf("failed to advance watermark: %w", err))
		}
	}

	return deliveryErr
}

// newestReal returns the first non-placeholder post of a newest-first batch.
func newestReal(posts []domain.Post) (domain.Post, bool) {
	for _, post := range posts {
		if !domain.IsMockPost(post.ID) {
			return post, true
		}
	}
	return domain.Post{}, false
}

// partitionNew filters the fetched batch (newest first) down to the posts
// past the watermark and returns them oldest first, ready for emission in
// chronological order. Placeholder records never pass.
func partitionNew(posts []domain.Post, watermarkID string, watermarkAt time.Time) []domain.Post {
	var out []domain.Post
	for i := len(posts) - 1; i >= 0; i-- {
		post := posts[i]
		if domain.IsMockPost(post.ID) {
			continue
		}
		if post.NewerThan(watermarkID, watermarkAt) {
			out = append(out, post)
		}
	}
	return out
}
