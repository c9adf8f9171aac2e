// Package tasks defines the scheduled tasks of the bot: the per-second
// orchestration tick and periodic store maintenance.
package tasks

import (
	"context"
	"log/slog"

	"github.com/edgard/fudbot/internal/memory"
)

// Ticker runs one orchestration step.
type Ticker interface {
	Tick(ctx context.Context) error
}

// Maintainer is implemented by stores that support periodic maintenance.
type Maintainer interface {
	Maintain(ctx context.Context) error
}

// TaskDeps contains the dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Ticker Ticker
	Store  memory.Store
}
