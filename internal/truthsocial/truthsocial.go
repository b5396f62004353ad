package truthsocial

import (
	"context"
	"errors"

	"github.com/opentruth/truth-parser-telegram-bot/internal/domain"
)

// ErrFetchFailed marks upstream failures (network, auth, rate limit,
// malformed response). One account failing a fetch never aborts the cycle
// for the others.
var ErrFetchFailed = errors.New("truth social fetch failed")

// UserData is one fetch result: the account profile plus its most recent
// posts, newest first, with placeholder records already removed.
type UserData struct {
	Profile domain.Profile
	Posts   []domain.Post
}

type Client interface {
	FetchLatest(ctx context.Context, username string, limit int) (*UserData, error)
	ValidateToken(ctx context.Context) error
}
