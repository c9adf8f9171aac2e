// Package bot implements the orchestration loop of the FUD bot and manages
// the lifecycle of its components: the scheduler that drives the loop and
// the optional Telegram control surface.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tgbot "github.com/go-telegram/bot"
	"golang.org/x/sync/errgroup"

	"github.com/edgard/fudbot/internal/memory"
)

// Bot owns the running components.
type Bot struct {
	logger    *slog.Logger
	runtime   *Runtime
	mem       *memory.Manager
	tgBot     *tgbot.Bot
	scheduler *Scheduler
}

// NewBot creates the orchestrator. tgBot may be nil when Telegram is not
// configured.
func NewBot(
	logger *slog.Logger,
	runtime *Runtime,
	mem *memory.Manager,
	tgBot *tgbot.Bot,
	scheduler *Scheduler,
) *Bot {
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		runtime:   runtime,
		mem:       mem,
		tgBot:     tgBot,
		scheduler: scheduler,
	}
}

// Run starts every component and blocks until ctx is cancelled or one of
// them fails. With debug mode on and tweet mode off it runs the debug
// generation test instead and returns.
func (b *Bot) Run(ctx context.Context) error {
	status := b.runtime.Status()
	b.logger.Info("Starting FUD bot",
		"tweet_mode", status.TweetMode,
		"debug_mode", status.DebugMode,
		"post_mode", status.PostMode,
		"agents", status.Agents,
		"posts", status.Posts)

	if status.DebugMode && !status.TweetMode {
		b.logger.Info("Debug mode enabled with tweet mode off, running debug test instead of the loop")
		if err := b.runtime.RunDebug(ctx); err != nil {
			return fmt.Errorf("debug run failed: %w", err)
		}
		return nil
	}

	g, gCtx := errgroup.WithContext(ctx)

	if b.tgBot != nil {
		g.Go(func() error {
			b.logger.Info("Starting Telegram bot listener...")

			b.tgBot.Start(gCtx)
			b.logger.Info("Telegram bot listener stopped.")

			if gCtx.Err() == nil {
				b.logger.Warn("Telegram bot listener stopped unexpectedly without context cancellation.")
				return errors.New("telegram listener stopped unexpectedly")
			}
			return nil
		})
	}

	g.Go(func() error {
		b.logger.Info("Starting scheduler...")
		if err := b.scheduler.Start(gCtx); err != nil {
			b.logger.Error("Failed to start scheduler", "error", err)
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler...")

		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	b.logger.Info("Bot orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()

	// Jobs have returned; persist whatever the last cycle left behind.
	if flushErr := b.mem.Flush(context.WithoutCancel(ctx)); flushErr != nil {
		b.logger.Error("Failed to flush memory on shutdown", "error", flushErr)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}
