package command

import "context"

type Client interface {
	// HandleCommands consumes the bot update stream until ctx is cancelled
	// or the stream closes.
	HandleCommands(ctx context.Context) error
}
