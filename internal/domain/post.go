package domain

import "time"

type MediaAttachment struct {
	Type       string // "image" or "video"
	URL        string
	PreviewURL string
}

// Card is a link preview attached to a post.
type Card struct {
	Title       string
	Description string
	URL         string
	Image       string
}

// Post is a single Truth Social status. Posts are transient: only the id of
// the newest relayed post survives a cycle.
type Post struct {
	ID         string
	Author     string
	Content    string
	URL        string
	Media      []MediaAttachment
	Card       *Card
	Reblogs    int
	Favourites int
	Replies    int
	CreatedAt  time.Time
}

type Profile struct {
	Username    string
	DisplayName string
	Avatar      string
	Verified    bool
	Followers   int
	Statuses    int
}
