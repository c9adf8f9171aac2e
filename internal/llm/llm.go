// Package llm provides the text completion providers used by the content
// generator. Provider errors are classified into errs kinds here so callers
// never look at SDK error types.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/edgard/fudbot/internal/config"
	"github.com/edgard/fudbot/internal/errs"
)

// Completer produces a single completion for prompt under the system
// instruction.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// ErrEmptyResponse is returned when the provider answered without text.
var ErrEmptyResponse = errors.New("empty completion")

// New builds the provider selected by cfg.Provider.
func New(ctx context.Context, cfg config.LLMConfig, log *slog.Logger) (Completer, error) {
	if log == nil {
		log = slog.Default()
	}
	switch strings.ToLower(cfg.Provider) {
	case "", "gemini":
		return NewGemini(ctx, cfg, log)
	case "openai":
		return NewOpenAI(cfg, log)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// classifyStatus maps a provider HTTP status onto an errs kind.
func classifyStatus(op string, status int, err error) error {
	switch {
	case status == 429:
		return errs.RateLimited(op, err, 0)
	case status == 401 || status == 403:
		return errs.Fatal(op, err)
	default:
		return errs.Transient(op, err)
	}
}

// retryable reports whether status is a server-side hiccup worth an
// immediate retry inside the provider.
func retryable(status int) bool {
	return status == 500 || status == 502 || status == 503 || status == 504
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
