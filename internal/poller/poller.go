package poller

import "context"

type Client interface {
	// ScheduleChecks starts the recurring poll job. The job stops when ctx
	// is cancelled.
	ScheduleChecks(ctx context.Context) error

	// RunCycle performs one pass over all tracked accounts.
	RunCycle(ctx context.Context)
}
