// Package agent turns a persona and an LLM into the bot's voice: replies,
// original posts and token critiques, with light style variation so the
// account does not repeat itself.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/edgard/fudbot/internal/llm"
	"github.com/edgard/fudbot/internal/persona"
	"github.com/edgard/fudbot/internal/sanitize"
	"github.com/edgard/fudbot/internal/tracker"
)

// Decision is the outcome of ShouldRespond.
type Decision int

const (
	Ignore Decision = iota
	Respond
)

func (d Decision) String() string {
	if d == Respond {
		return "respond"
	}
	return "ignore"
}

// maxCritiqueAttempts bounds regeneration of overused token critiques.
const maxCritiqueAttempts = 3

// Agent generates content for one persona. It is safe for concurrent use.
type Agent struct {
	llm     llm.Completer
	persona *persona.Persona
	log     *slog.Logger
	plain   *sanitize.Policy

	mu    sync.Mutex
	rng   *rand.Rand
	usage *usage
}

// Option configures an Agent.
type Option func(*Agent)

// WithRand sets the random source used for style variation.
func WithRand(rng *rand.Rand) Option {
	return func(a *Agent) { a.rng = rng }
}

// New creates an agent speaking as p through completer.
func New(completer llm.Completer, p *persona.Persona, log *slog.Logger, opts ...Option) *Agent {
	if log == nil {
		log = slog.Default()
	}
	a := &Agent{
		llm:     completer,
		persona: p,
		log:     log.With("component", "agent", "persona", p.Name),
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		usage:   newUsage(),
		plain:   sanitize.NewPlainTextPolicy(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the persona name.
func (a *Agent) Name() string {
	return a.persona.Name
}

// Prompt returns the persona prompt stored alongside generated posts.
func (a *Agent) Prompt() string {
	return a.persona.Prompt
}

func (a *Agent) complete(ctx context.Context, op, prompt string) (string, error) {
	out, err := a.llm.Complete(ctx, a.persona.Prompt, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to %s: %w", op, err)
	}
	return cleanOutput(a.plain.PlainText(out)), nil
}

func (a *Agent) stylize(text string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return varyStyle(text, a.rng)
}

// ShouldRespond asks the model whether text deserves a reply.
func (a *Agent) ShouldRespond(ctx context.Context, text string) (Decision, error) {
	out, err := a.complete(ctx, "classify mention", fmt.Sprintf(classifyPrompt, text))
	if err != nil {
		return Ignore, err
	}
	if strings.Contains(strings.ToUpper(out), "[RESPOND]") {
		return Respond, nil
	}
	return Ignore, nil
}

// GenerateReply writes a sarcastic reply to text.
func (a *Agent) GenerateReply(ctx context.Context, text string) (string, error) {
	return a.complete(ctx, "generate reply", fmt.Sprintf(replyPrompt, text))
}

// GeneratePost writes an original persona post.
func (a *Agent) GeneratePost(ctx context.Context) (string, error) {
	return a.complete(ctx, "generate post", postPrompt)
}

// GenerateCustom sends prompt as is.
func (a *Agent) GenerateCustom(ctx context.Context, prompt string) (string, error) {
	return a.complete(ctx, "generate custom response", prompt)
}

// GenerateGenericCritique writes a cynical take from theme that names no
// token.
func (a *Agent) GenerateGenericCritique(ctx context.Context, theme tracker.Theme) (string, error) {
	out, err := a.complete(ctx, "generate generic critique",
		fmt.Sprintf(genericCritiquePrompt, theme.Intro, theme.Reason, theme.Closing))
	if err != nil {
		return "", err
	}
	return a.stylize(out), nil
}

// GenerateTokenCritique writes a critique of the token described by summary.
// Drafts flagged as overused are regenerated; the last attempt is accepted
// regardless.
func (a *Agent) GenerateTokenCritique(ctx context.Context, summary string) (string, error) {
	prompt := fmt.Sprintf(tokenCritiquePrompt, summary)

	var draft string
	for attempt := 1; attempt <= maxCritiqueAttempts; attempt++ {
		out, err := a.complete(ctx, "generate token critique", prompt)
		if err != nil {
			return "", err
		}
		draft = a.stylize(out)

		a.mu.Lock()
		overused := a.usage.overused(draft)
		if !overused || attempt == maxCritiqueAttempts {
			a.usage.record(draft)
			a.mu.Unlock()
			break
		}
		a.mu.Unlock()
		a.log.DebugContext(ctx, "Token critique overused, regenerating", "attempt", attempt)
	}
	return draft, nil
}

// GenerateDismissal writes a brush-off for mentions with nothing to discuss.
func (a *Agent) GenerateDismissal(ctx context.Context) (string, error) {
	return a.complete(ctx, "generate dismissal", dismissalPrompt)
}

// GenerateChatReply writes a conversational reply for Telegram.
func (a *Agent) GenerateChatReply(ctx context.Context, text string) (string, error) {
	return a.complete(ctx, "generate chat reply", fmt.Sprintf(chatPrompt, text))
}
