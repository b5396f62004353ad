package pollerimpl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/opentruth/truth-parser-telegram-bot/internal/domain"
	"github.com/opentruth/truth-parser-telegram-bot/internal/repositories/trackedaccount"
	"github.com/opentruth/truth-parser-telegram-bot/internal/truthsocial"
	"github.com/opentruth/truth-parser-telegram-bot/pkg/config"
	"github.com/opentruth/truth-parser-telegram-bot/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepo is an in-memory account store with the same monotonic watermark
// semantics as the pgx repository.
type fakeRepo struct {
	mu         sync.Mutex
	accounts   map[string]*domain.TrackedAccount
	order      []string
	failUpdate error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{accounts: make(map[string]*domain.TrackedAccount)}
}

func (r *fakeRepo) Create(_ context.Context, acc domain.TrackedAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[acc.Username]; ok {
		return trackedaccount.ErrAlreadyTracked
	}
	copied := acc
	r.accounts[acc.Username] = &copied
	r.order = append(r.order, acc.Username)
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[username]; !ok {
		return trackedaccount.ErrNotTracked
	}
	delete(r.accounts, username)
	for i, u := range r.order {
		if u == username {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *fakeRepo) GetAll(_ context.Context) ([]*domain.TrackedAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.TrackedAccount
	for _, u := range r.order {
		copied := *r.accounts[u]
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeRepo) GetByUsername(_ context.Context, username string) (*domain.TrackedAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[username]
	if !ok {
		return nil, trackedaccount.ErrNotTracked
	}
	copied := *acc
	return &copied, nil
}

func (r *fakeRepo) UpdateLastSeen(_ context.Context, username, postID string, postedAt time.Time, relayed int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdate != nil {
		return r.failUpdate
	}
	acc, ok := r.accounts[username]
	if !ok {
		return trackedaccount.ErrNotTracked
	}
	if acc.LastSeenPostID != "" {
		if cmp, ok := domain.ComparePostIDs(postID, acc.LastSeenPostID); ok && cmp <= 0 {
			return nil
		}
	}
	acc.LastSeenPostID = postID
	acc.LastSeenAt = postedAt
	acc.PostCount += relayed
	return nil
}

var _ trackedaccount.Repository = (*fakeRepo)(nil)

// fakeFetcher serves scripted responses per username.
type fakeFetcher struct {
	mu   sync.Mutex
	data map[string]*truthsocial.UserData
	errs map[string]error
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		data: make(map[string]*truthsocial.UserData),
		errs: make(map[string]error),
	}
}

func (f *fakeFetcher) FetchLatest(_ context.Context, username string, _ int) (*truthsocial.UserData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[username]; err != nil {
		return nil, err
	}
	if d, ok := f.data[username]; ok {
		return d, nil
	}
	return &truthsocial.UserData{}, nil
}

func (f *fakeFetcher) ValidateToken(context.Context) error { return nil }

func (f *fakeFetcher) set(username string, posts ...domain.Post) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[username] = &truthsocial.UserData{
		Profile: domain.Profile{Username: username, DisplayName: username},
		Posts:   posts,
	}
}

var _ truthsocial.Client = (*fakeFetcher)(nil)

// fakeNotifier records deliveries and can be told to fail specific posts.
type fakeNotifier struct {
	mu        sync.Mutex
	delivered []string
	failIDs   map[string]bool
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{failIDs: make(map[string]bool)}
}

func (n *fakeNotifier) DeliverPost(post domain.Post, _ domain.Profile) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failIDs[post.ID] {
		return errors.New("channel unavailable")
	}
	n.delivered = append(n.delivered, post.ID)
	return nil
}

func (n *fakeNotifier) deliveredIDs() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.delivered))
	copy(out, n.delivered)
	return out
}

func (n *fakeNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.delivered = nil
}

func (n *fakeNotifier) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel { return nil }
func (n *fakeNotifier) StopReceivingUpdates()                                        {}
func (n *fakeNotifier) SendMessage(int64, string) error                              { return nil }
func (n *fakeNotifier) SendMessageToChannel(string) error                            { return nil }

func newTestPoller(repo *fakeRepo, fetcher *fakeFetcher, notifier *fakeNotifier) *PollerImpl {
	cfg := &config.Config{}
	cfg.Poller.PostLimit = 20
	return &PollerImpl{
		TruthSocial: fetcher,
		Telegram:    notifier,
		AccountRepo: repo,
		Logger:      logger.New(logger.Opts{}),
		Config:      cfg,
	}
}

func post(id string, at time.Time) domain.Post {
	return domain.Post{
		ID:        id,
		Author:    "alice",
		Content:   "post " + id,
		URL:       "https://truthsocial.com/@alice/posts/" + id,
		CreatedAt: at,
	}
}

func track(t *testing.T, repo *fakeRepo, username string) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), domain.TrackedAccount{Username: username}))
}

func TestBaselineThenIncrementalEmission(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	fetcher := newFakeFetcher()
	notifier := newFakeNotifier()
	p := newTestPoller(repo, fetcher, notifier)

	track(t, repo, "alice")

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	// Newest first: p5 down to p1.
	fetcher.set("alice",
		post("105", base.Add(5*time.Minute)),
		post("104", base.Add(4*time.Minute)),
		post("103", base.Add(3*time.Minute)),
		post("102", base.Add(2*time.Minute)),
		post("101", base.Add(1*time.Minute)),
	)

	// First cycle: baseline only, nothing emitted.
	p.RunCycle(ctx)
	assert.Empty(t, notifier.deliveredIDs())
	acc, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "105", acc.LastSeenPostID)
	assert.Equal(t, 0, acc.PostCount)

	// Second cycle: one genuinely new post.
	fetcher.set("alice",
		post("106", base.Add(6*time.Minute)),
		post("105", base.Add(5*time.Minute)),
	)
	p.RunCycle(ctx)
	assert.Equal(t, []string{"106"}, notifier.deliveredIDs())

	acc, err = repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "106", acc.LastSeenPostID)
	assert.Equal(t, 1, acc.PostCount)
}

func TestEmitsOldestFirstExactlyOnce(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	fetcher := newFakeFetcher()
	notifier := newFakeNotifier()
	p := newTestPoller(repo, fetcher, notifier)

	track(t, repo, "alice")
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	fetcher.set("alice", post("100", base))
	p.RunCycle(ctx) // baseline at 100

	fetcher.set("alice",
		post("103", base.Add(3*time.Minute)),
		post("102", base.Add(2*time.Minute)),
		post("101", base.Add(1*time.Minute)),
		post("100", base),
	)
	p.RunCycle(ctx)
	assert.Equal(t, []string{"101", "102", "103"}, notifier.deliveredIDs())

	// Same fetch again: everything already seen, nothing re-emitted.
	p.RunCycle(ctx)
	assert.Equal(t, []string{"101", "102", "103"}, notifier.deliveredIDs())

	acc, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "103", acc.LastSeenPostID)
	assert.Equal(t, 3, acc.PostCount)
}

func TestDeliveryFailureHoldsWatermark(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	fetcher := newFakeFetcher()
	notifier := newFakeNotifier()
	p := newTestPoller(repo, fetcher, notifier)

	track(t, repo, "alice")
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	fetcher.set("alice", post("100", base))
	p.RunCycle(ctx) // baseline at 100

	fetcher.set("alice",
		post("103", base.Add(3*time.Minute)),
		post("102", base.Add(2*time.Minute)),
		post("101", base.Add(1*time.Minute)),
	)

	// Second of three new posts fails.
	notifier.failIDs["102"] = true
	p.RunCycle(ctx)
	assert.Equal(t, []string{"101"}, notifier.deliveredIDs())

	acc, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "101", acc.LastSeenPostID)

	// Next cycle re-attempts the undelivered tail. No loss, no gaps.
	notifier.failIDs = map[string]bool{}
	notifier.reset()
	p.RunCycle(ctx)
	assert.Equal(t, []string{"102", "103"}, notifier.deliveredIDs())

	acc, err = repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "103", acc.LastSeenPostID)
	assert.Equal(t, 3, acc.PostCount)
}

func TestWatermarkErrorKeepsDeliveryCause(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	fetcher := newFakeFetcher()
	notifier := newFakeNotifier()
	p := newTestPoller(repo, fetcher, notifier)

	track(t, repo, "alice")
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	fetcher.set("alice", post("100", base))
	p.RunCycle(ctx) // baseline at 100

	fetcher.set("alice",
		post("103", base.Add(3*time.Minute)),
		post("102", base.Add(2*time.Minute)),
		post("101", base.Add(1*time.Minute)),
	)
	notifier.failIDs["102"] = true
	repo.failUpdate = errors.New("connection reset")

	accounts, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)

	// Both causes surface: the halted delivery and the failed advance.
	err = p.checkAccount(ctx, accounts[0])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delivery stopped after 1 of 3 posts")
	assert.Contains(t, err.Error(), "failed to advance watermark")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestMockPostsNeverEmittedNorAdvanceWatermark(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	fetcher := newFakeFetcher()
	notifier := newFakeNotifier()
	p := newTestPoller(repo, fetcher, notifier)

	track(t, repo, "alice")
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	// Only placeholder data: baseline is deferred entirely.
	fetcher.set("alice", post("mock_1", base))
	p.RunCycle(ctx)
	acc, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, acc.LastSeenPostID)

	// Baseline skips the placeholder and lands on the real post.
	fetcher.set("alice", post("mock_2", base.Add(time.Minute)), post("100", base))
	p.RunCycle(ctx)
	acc, err = repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "100", acc.LastSeenPostID)

	// A later placeholder is never relayed and the watermark stays put.
	fetcher.set("alice", post("mock_3", base.Add(2*time.Minute)), post("100", base))
	p.RunCycle(ctx)
	assert.Empty(t, notifier.deliveredIDs())
	acc, err = repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "100", acc.LastSeenPostID)
}

func TestFetchFailureSkipsOnlyThatAccount(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	fetcher := newFakeFetcher()
	notifier := newFakeNotifier()
	p := newTestPoller(repo, fetcher, notifier)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	track(t, repo, "alice")
	track(t, repo, "bob")
	fetcher.set("alice", post("100", base))
	fetcher.set("bob", post("200", base))
	p.RunCycle(ctx) // baselines for both

	fetcher.errs["alice"] = fmt.Errorf("boom: %w", truthsocial.ErrFetchFailed)
	fetcher.set("bob", post("201", base.Add(time.Minute)), post("200", base))
	p.RunCycle(ctx)

	// bob is unaffected by alice's fetch failure.
	assert.Equal(t, []string{"201"}, notifier.deliveredIDs())

	alice, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "100", alice.LastSeenPostID)
}

func TestTimestampFallbackForNonNumericIDs(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	fetcher := newFakeFetcher()
	notifier := newFakeNotifier()
	p := newTestPoller(repo, fetcher, notifier)

	track(t, repo, "alice")
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	fetcher.set("alice", post("aaa-1", base))
	p.RunCycle(ctx) // baseline at aaa-1

	fetcher.set("alice",
		post("bbb-2", base.Add(time.Minute)),
		post("aaa-1", base),
	)
	p.RunCycle(ctx)
	assert.Equal(t, []string{"bbb-2"}, notifier.deliveredIDs())
}
