package tasks

import (
	"context"

	"github.com/edgard/fudbot/internal/config"
)

// ScheduledTaskFunc is the signature of every scheduled task. A returned
// error is logged by the scheduler; the task keeps its schedule.
type ScheduledTaskFunc func(ctx context.Context) error

// RegisterAllTasks returns the registered tasks keyed by the names used in
// the scheduler.tasks configuration section.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	tasks := make(map[string]ScheduledTaskFunc)

	if deps.Ticker != nil {
		tasks[config.TaskTick] = newTickTask(deps)
	}
	if m, ok := deps.Store.(Maintainer); ok {
		tasks[config.TaskStoreMaintenance] = newStoreMaintenanceTask(deps, m)
	}

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}
