package domain

import (
	"strings"
	"time"
)

// The scraper actor returns placeholder records with this id prefix when an
// account has no real data. They must never reach the channel.
const mockPostPrefix = "mock_"

func IsMockPost(id string) bool {
	return strings.HasPrefix(id, mockPostPrefix)
}

// ComparePostIDs orders two Truth Social post ids. Ids are decimal snowflake
// strings, so a longer digit string always belongs to a later post and equal
// lengths compare lexicographically. ok is false when either id is not a
// plain digit string; callers then fall back to creation timestamps.
func ComparePostIDs(a, b string) (cmp int, ok bool) {
	if !isDigits(a) || !isDigits(b) {
		return 0, false
	}
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1, true
		}
		return 1, true
	}
	return strings.Compare(a, b), true
}

// NewerThan reports whether the post was published after the given watermark.
// Id ordering is the primary signal; when the ids are not comparable the
// creation timestamp decides.
func (p Post) NewerThan(watermarkID string, watermarkAt time.Time) bool {
	if watermarkID == "" {
		return true
	}
	if c, ok := ComparePostIDs(p.ID, watermarkID); ok {
		return c > 0
	}
	if p.ID == watermarkID {
		return false
	}
	return !watermarkAt.IsZero() && p.CreatedAt.After(watermarkAt)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
