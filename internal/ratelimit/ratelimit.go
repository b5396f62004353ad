package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter throttles operator commands per Telegram user. Commands like
// /track and /search hit the Apify actor, so an unthrottled chat could burn
// through the account's actor quota.
type Limiter interface {
	Allow(userID int64) bool
}

// InMemoryLimiter keeps one token bucket per user id. Buckets are never
// evicted; the set of users talking to the bot is a handful of operators.
type InMemoryLimiter struct {
	mu      sync.Mutex
	buckets map[int64]*rate.Limiter
	r       rate.Limit
	burst   int
}

// NewInMemoryLimiter allows `requests` commands per `per` with a burst of
// `burst`. Example: NewInMemoryLimiter(1, 30*time.Second, 2).
func NewInMemoryLimiter(requests int, per time.Duration, burst int) Limiter {
	return &InMemoryLimiter{
		buckets: make(map[int64]*rate.Limiter),
		r:       rate.Every(per / time.Duration(requests)),
		burst:   burst,
	}
}

func (l *InMemoryLimiter) Allow(userID int64) bool {
	return l.bucketFor(userID).Allow()
}

func (l *InMemoryLimiter) bucketFor(userID int64) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.buckets[userID]
	if !ok {
		bucket = rate.NewLimiter(l.r, l.burst)
		l.buckets[userID] = bucket
	}
	return bucket
}
