package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInMemoryLimiter(t *testing.T) {
	l := NewInMemoryLimiter(1, time.Hour, 2)

	// Burst allows two commands, the third waits.
	assert.True(t, l.Allow(1))
	assert.True(t, l.Allow(1))
	assert.False(t, l.Allow(1))

	// Buckets are per user.
	assert.True(t, l.Allow(2))
}
