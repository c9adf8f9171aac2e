package tasks

import "context"

// newTickTask runs one orchestration step per scheduler fire.
func newTickTask(deps TaskDeps) ScheduledTaskFunc {
	return func(ctx context.Context) error {
		return deps.Ticker.Tick(ctx)
	}
}
