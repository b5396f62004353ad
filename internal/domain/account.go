package domain

import "time"

// TrackedAccount is one Truth Social account the bot watches.
// LastSeenPostID is the relay watermark: the id of the newest post already
// delivered to the channel. An empty value means the account has not been
// through a baseline cycle yet and nothing may be relayed until one runs.
type TrackedAccount struct {
	ID             int
	Username       string
	LastSeenPostID string
	LastSeenAt     time.Time
	PostCount      int
	CreatedAt      time.Time
}
