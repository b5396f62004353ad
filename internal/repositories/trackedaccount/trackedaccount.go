package trackedaccount

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/opentruth/truth-parser-telegram-bot/internal/domain"
)

var (
	ErrAlreadyTracked = errors.New("account is already tracked")
	ErrNotTracked     = errors.New("account is not tracked")
)

type Repository interface {
	// Create inserts a new tracked account. The watermark may be empty; the
	// poller will baseline it on the first cycle.
	Create(ctx context.Context, acc domain.TrackedAccount) error

	// Delete removes an account, returning ErrNotTracked when absent.
	Delete(ctx context.Context, username string) error

	// GetAll returns every tracked account in insertion order.
	GetAll(ctx context.Context) ([]*domain.TrackedAccount, error)

	GetByUsername(ctx context.Context, username string) (*domain.TrackedAccount, error)

	// UpdateLastSeen advances the watermark and bumps the relayed-post
	// counter. The update is monotonic: an id that does not move the
	// watermark forward is silently ignored.
	UpdateLastSeen(ctx context.Context, username, postID string, postedAt time.Time, relayed int) error
}

// SanitizeUsername normalizes operator input to the stored form.
func SanitizeUsername(username string) string {
	return strings.ToLower(strings.Trim(username, "@ "))
}

// ValidUsername reports whether the name fits the Truth Social charset.
func ValidUsername(username string) bool {
	if username == "" {
		return false
	}
	for _, r := range username {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '_':
		default:
			return false
		}
	}
	return true
}
