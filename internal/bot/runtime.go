package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/edgard/fudbot/internal/agent"
	"github.com/edgard/fudbot/internal/config"
	"github.com/edgard/fudbot/internal/errs"
	"github.com/edgard/fudbot/internal/logger"
	"github.com/edgard/fudbot/internal/memory"
	"github.com/edgard/fudbot/internal/recency"
	"github.com/edgard/fudbot/internal/social"
	"github.com/edgard/fudbot/internal/tracker"
)

// ErrNoAgents is returned when the runtime has nobody to speak through.
var ErrNoAgents = errors.New("no agents available")

// TokenSource provides market context for critiques.
type TokenSource interface {
	TopTokens(ctx context.Context, n int) ([]tracker.Token, error)
	TokenByAddress(ctx context.Context, mint string) (tracker.Token, error)
}

// Platform is the microblog account the runtime publishes through.
type Platform interface {
	Post(ctx context.Context, text string) (string, error)
	Reply(ctx context.Context, text, inReplyTo string) (string, error)
	Me(ctx context.Context) (social.User, error)
	Mentions(ctx context.Context, userID string) ([]social.Mention, error)
}

// Announcer mirrors published posts somewhere else, e.g. a Telegram channel.
type Announcer interface {
	Announce(ctx context.Context, text string) error
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Runtime is the orchestration loop. Tick is called once per second by the
// scheduler and decides whether a post or a notification sweep is due.
type Runtime struct {
	cfg       config.BotConfig
	mem       *memory.Manager
	agents    []*agent.Agent
	tokens    TokenSource
	platform  Platform
	announcer Announcer
	phrases   *recency.Window
	clock     clockwork.Clock
	sleep     SleepFunc
	log       *slog.Logger

	mu        sync.Mutex
	rng       *rand.Rand
	userID    string
	lastPost  time.Time
	lastCheck time.Time
}

// Status is a point-in-time view of the loop, for the control surface.
type Status struct {
	TweetMode      bool
	DebugMode      bool
	PostMode       string
	Agents         int
	Posts          int
	Processed      int
	RecentPhrases  int
	LastPost       time.Time
	LastCheck      time.Time
	NextPost       time.Time
	HasNextPost    bool
	AccountID      string
	NextCheckAfter time.Duration
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithClock sets the clock used by the gates and timestamps.
func WithClock(c clockwork.Clock) RuntimeOption {
	return func(r *Runtime) { r.clock = c }
}

// WithRand sets the random source used to pick agents, tokens and mentions.
func WithRand(rng *rand.Rand) RuntimeOption {
	return func(r *Runtime) { r.rng = rng }
}

// WithSleep replaces the backoff and reply-delay sleeper.
func WithSleep(fn SleepFunc) RuntimeOption {
	return func(r *Runtime) { r.sleep = fn }
}

// WithAnnouncer mirrors every published post through a.
func WithAnnouncer(a Announcer) RuntimeOption {
	return func(r *Runtime) { r.announcer = a }
}

// NewRuntime wires the loop. agents may be empty; both cycles then log
// and skip (posts) or fail (notifications).
func NewRuntime(
	cfg config.BotConfig,
	mem *memory.Manager,
	agents []*agent.Agent,
	tokens TokenSource,
	platform Platform,
	log *slog.Logger,
	opts ...RuntimeOption,
) *Runtime {
	if log == nil {
		log = slog.Default()
	}
	r := &Runtime{
		cfg:      cfg,
		mem:      mem,
		agents:   agents,
		tokens:   tokens,
		platform: platform,
		phrases:  recency.NewWindow(cfg.RecentPhraseCapacity),
		clock:    clockwork.NewRealClock(),
		log:      log.With("component", "runtime"),
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	r.sleep = r.clockSleep
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runtime) clockSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := r.clock.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.Chan():
		return nil
	}
}

// Tick runs whatever is due at the current instant. Cycle failures are
// returned joined; the caller logs them and keeps ticking.
func (r *Runtime) Tick(ctx context.Context) error {
	now := r.clock.Now()
	var failures []error

	if r.ShouldRunScheduledPost(now) {
		if !r.AllowPost(now) {
			r.log.InfoContext(ctx, "Post cooldown in effect, skipping scheduled post")
		} else if err := r.RunPostCycle(ctx); err != nil {
			failures = append(failures, fmt.Errorf("post cycle: %w", err))
		}
	}

	if r.ShouldCheckNotifications(now) {
		if err := r.HandleNotifications(ctx); err != nil {
			failures = append(failures, fmt.Errorf("notifications: %w", err))
		}
	}

	return errors.Join(failures...)
}

// ShouldRunScheduledPost reports whether now falls exactly on a post mark.
func (r *Runtime) ShouldRunScheduledPost(now time.Time) bool {
	now = now.UTC()
	return now.Second() == 0 && slices.Contains(r.cfg.PostMinutes, now.Minute())
}

// AllowPost reports whether the post cooldown has elapsed.
func (r *Runtime) AllowPost(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastPost.IsZero() || now.Sub(r.lastPost) >= r.cfg.PostCooldown
}

// ShouldCheckNotifications reports whether the notification interval has
// elapsed since the last attempt.
func (r *Runtime) ShouldCheckNotifications(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastCheck.IsZero() || now.Sub(r.lastCheck) >= r.cfg.NotificationInterval
}

// RunPostCycle generates one post and, in tweet mode, publishes it.
func (r *Runtime) RunPostCycle(ctx context.Context) error {
	if len(r.agents) == 0 {
		r.log.WarnContext(ctx, "No agents available, skipping post cycle")
		return nil
	}
	defer r.scheduleNextPost(ctx)

	ag := r.agents[r.intN(len(r.agents))]

	tokens, err := r.tokens.TopTokens(ctx, r.cfg.TopTokens)
	if err != nil {
		return fmt.Errorf("failed to fetch top tokens: %w", err)
	}
	if len(tokens) == 0 {
		r.log.WarnContext(ctx, "No tokens available, skipping post cycle")
		return nil
	}
	token := tokens[r.intN(len(tokens))]
	summary := tracker.FormatSummary(token)

	critique := r.cfg.PostMode != config.PostModeMixed || r.coin()
	generate := ag.GeneratePost
	if critique {
		generate = func(ctx context.Context) (string, error) {
			return ag.GenerateTokenCritique(ctx, summary)
		}
	}

	text, err := r.generateDistinct(ctx, generate)
	if err != nil {
		return fmt.Errorf("failed to generate post: %w", err)
	}
	r.log.InfoContext(ctx, "Generated post",
		"agent", ag.Name(),
		"symbol", token.Info.Symbol,
		"critique", critique,
		"text", logger.Truncate(text, 120))

	if !r.mem.TweetMode() {
		r.mem.AddPost(ctx, text, ag.Prompt(), "")
		r.log.InfoContext(ctx, "Tweet mode disabled, post saved to memory only")
		return nil
	}

	id, err := r.platform.Post(ctx, text)
	if err != nil {
		if errs.IsRateLimited(err) {
			r.log.WarnContext(ctx, "Rate limited while posting, backing off",
				"backoff", r.cfg.RateLimitBackoff, "error", err)
			return r.sleep(ctx, r.cfg.RateLimitBackoff)
		}
		return fmt.Errorf("failed to publish post: %w", err)
	}

	r.mem.AddPost(ctx, text, ag.Prompt(), id)
	r.mu.Lock()
	r.lastPost = r.clock.Now()
	r.mu.Unlock()
	r.phrases.Add(text)
	r.log.InfoContext(ctx, "Post published", "post_id", id)

	r.announce(ctx, text)
	return nil
}

// generateDistinct regenerates while the draft repeats a recent phrase,
// accepting the last draft once attempts run out.
func (r *Runtime) generateDistinct(ctx context.Context, generate func(context.Context) (string, error)) (string, error) {
	attempts := max(r.cfg.MaxGenerationAttempts, 1)

	var draft string
	for attempt := 1; attempt <= attempts; attempt++ {
		text, err := generate(ctx)
		if err != nil {
			return "", err
		}
		draft = text
		if !r.phrases.Seen(draft) {
			return draft, nil
		}
		r.log.DebugContext(ctx, "Draft repeats a recent phrase", "attempt", attempt)
	}
	return draft, nil
}

func (r *Runtime) announce(ctx context.Context, text string) {
	if r.announcer == nil {
		return
	}
	if err := r.announcer.Announce(ctx, text); err != nil {
		r.log.WarnContext(ctx, "Failed to announce post", "error", err)
	}
}

// scheduleNextPost persists the next post mark after now.
func (r *Runtime) scheduleNextPost(ctx context.Context) {
	next, ok := nextMark(r.clock.Now(), r.cfg.PostMinutes)
	if !ok {
		return
	}
	r.mem.SetNextPost(ctx, next)
}

// nextMark returns the first whole minute strictly after now whose minute
// is in minutes.
func nextMark(now time.Time, minutes []int) (time.Time, bool) {
	if len(minutes) == 0 {
		return time.Time{}, false
	}
	t := now.UTC().Truncate(time.Minute)
	for range 60 {
		t = t.Add(time.Minute)
		if slices.Contains(minutes, t.Minute()) {
			return t, true
		}
	}
	return time.Time{}, false
}

// HandleNotifications answers a random batch of unanswered mentions. The
// check time is recorded first so a failed cycle still waits a full
// interval before the next attempt.
func (r *Runtime) HandleNotifications(ctx context.Context) error {
	r.mu.Lock()
	r.lastCheck = r.clock.Now()
	r.mu.Unlock()

	if len(r.agents) == 0 {
		return ErrNoAgents
	}

	userID, err := r.accountID(ctx)
	if err != nil {
		if errs.IsRateLimited(err) {
			r.log.WarnContext(ctx, "Rate limited while resolving account, retrying next interval", "error", err)
			return nil
		}
		return fmt.Errorf("failed to resolve account: %w", err)
	}

	mentions, err := r.platform.Mentions(ctx, userID)
	if err != nil {
		if errs.IsRateLimited(err) {
			r.log.WarnContext(ctx, "Rate limited while fetching mentions, retrying next interval", "error", err)
			return nil
		}
		return fmt.Errorf("failed to fetch mentions: %w", err)
	}

	var pending []social.Mention
	for _, m := range mentions {
		if r.mem.IsProcessed(m.ID) || r.mem.HasRepliedTo(m.ID) {
			continue
		}
		pending = append(pending, m)
	}
	r.log.InfoContext(ctx, "Checked mentions", "total", len(mentions), "pending", len(pending))
	if len(pending) == 0 {
		return nil
	}

	defer func() {
		ids := make([]string, len(pending))
		for i, m := range pending {
			ids[i] = m.ID
		}
		r.mem.MarkProcessed(ids...)
		r.mem.SaveProcessed(ctx)
	}()

	ag := r.agents[0]
	submitted := 0
	for _, m := range r.sample(pending, r.cfg.ReplyBatchSize) {
		if err := ctx.Err(); err != nil {
			return err
		}

		text, ok, err := r.composeReply(ctx, ag, m)
		if err != nil {
			if errs.IsRateLimited(err) {
				r.log.WarnContext(ctx, "Rate limited while generating, stopping batch", "error", err)
				return nil
			}
			r.log.ErrorContext(ctx, "Failed to compose reply", "mention_id", m.ID, "error", err)
			continue
		}
		if !ok {
			continue
		}

		reply := r.mem.AddReply(ctx, text, ag.Prompt(), "", m.ID)
		if !r.mem.TweetMode() {
			r.log.InfoContext(ctx, "Tweet mode disabled, reply saved to memory only", "mention_id", m.ID)
			continue
		}

		if submitted > 0 {
			if err := r.sleep(ctx, r.cfg.ReplyDelay); err != nil {
				return err
			}
		}
		submitted++

		id, err := r.platform.Reply(ctx, text, m.ID)
		if err != nil {
			if errs.IsRateLimited(err) {
				r.log.WarnContext(ctx, "Rate limited while replying, stopping batch", "mention_id", m.ID, "error", err)
				return nil
			}
			r.log.ErrorContext(ctx, "Failed to send reply", "mention_id", m.ID, "error", err)
			continue
		}
		r.mem.AttachExternalID(ctx, reply.InternalID, id)
		r.log.InfoContext(ctx, "Replied to mention", "mention_id", m.ID, "reply_id", id)
	}

	return nil
}

// composeReply produces the reply text for m. ok is false when the mention
// was classified as not worth answering.
func (r *Runtime) composeReply(ctx context.Context, ag *agent.Agent, m social.Mention) (string, bool, error) {
	if r.cfg.ClassifyMentions {
		decision, err := ag.ShouldRespond(ctx, m.Text)
		if err != nil {
			return "", false, err
		}
		if decision == agent.Ignore {
			r.log.InfoContext(ctx, "Ignoring mention", "mention_id", m.ID, "text", logger.Truncate(m.Text, 80))
			return "", false, nil
		}
	}

	topic, address, found := extractTopic(m.Text)
	if !found {
		var (
			text string
			err  error
		)
		if r.cfg.PostMode == config.PostModeMixed {
			text, err = ag.GenerateReply(ctx, m.Text)
		} else {
			text, err = ag.GenerateDismissal(ctx)
		}
		return text, err == nil, err
	}

	if token, ok := r.lookupToken(ctx, topic, address); ok {
		text, err := ag.GenerateTokenCritique(ctx, tracker.FormatSummary(token))
		return text, err == nil, err
	}

	r.log.DebugContext(ctx, "Token not found, using generic critique", "topic", topic)
	text, err := ag.GenerateGenericCritique(ctx, r.theme())
	return text, err == nil, err
}

// lookupToken resolves topic to a token. Lookup failures count as not
// found so the mention still gets a generic answer.
func (r *Runtime) lookupToken(ctx context.Context, topic string, address bool) (tracker.Token, bool) {
	if address {
		token, err := r.tokens.TokenByAddress(ctx, topic)
		if err != nil {
			if !errors.Is(err, tracker.ErrTokenNotFound) {
				r.log.WarnContext(ctx, "Token lookup by address failed", "address", topic, "error", err)
			}
			return tracker.Token{}, false
		}
		return token, true
	}

	tokens, err := r.tokens.TopTokens(ctx, r.cfg.TopTokens)
	if err != nil {
		r.log.WarnContext(ctx, "Failed to fetch top tokens for symbol lookup", "symbol", topic, "error", err)
		return tracker.Token{}, false
	}
	return tracker.FindBySymbol(tokens, topic)
}

// accountID returns the cached own account ID, fetching it once.
func (r *Runtime) accountID(ctx context.Context) (string, error) {
	r.mu.Lock()
	id := r.userID
	r.mu.Unlock()
	if id != "" {
		return id, nil
	}

	user, err := r.platform.Me(ctx)
	if err != nil {
		return "", err
	}
	if user.ID == "" {
		return "", errs.Fatal("resolve account", errors.New("empty user id"))
	}

	r.mu.Lock()
	r.userID = user.ID
	r.mu.Unlock()
	r.log.InfoContext(ctx, "Resolved account", "user_id", user.ID, "username", user.Username)
	return user.ID, nil
}

// RunDebug logs sample critiques for random trending tokens without
// publishing anything.
func (r *Runtime) RunDebug(ctx context.Context) error {
	if len(r.agents) == 0 {
		return ErrNoAgents
	}
	r.log.InfoContext(ctx, "Running debug generation test", "samples", r.cfg.DebugSamples)

	tokens, err := r.tokens.TopTokens(ctx, r.cfg.TopTokens)
	if err != nil {
		return fmt.Errorf("failed to fetch top tokens: %w", err)
	}
	if len(tokens) == 0 {
		r.log.WarnContext(ctx, "No tokens available for debug run")
		return nil
	}

	ag := r.agents[0]
	for i := 1; i <= r.cfg.DebugSamples; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		token := tokens[r.intN(len(tokens))]
		summary := tracker.FormatSummary(token)

		source := "llm"
		text, err := ag.GenerateTokenCritique(ctx, summary)
		if err != nil {
			r.log.WarnContext(ctx, "Generation failed, falling back to template", "error", err)
			source = "template"
			text = r.templateCritique(token)
		}
		r.log.InfoContext(ctx, "Debug sample",
			"sample", i,
			"symbol", token.Info.Symbol,
			"source", source,
			"chars", len(text),
			"summary", summary,
			"text", text)
	}

	r.log.InfoContext(ctx, "Debug generation test complete")
	return nil
}

// Status returns the current loop state.
func (r *Runtime) Status() Status {
	mem := r.mem.Snapshot()
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	s := Status{
		TweetMode:     mem.TweetMode,
		DebugMode:     mem.DebugMode,
		PostMode:      r.cfg.PostMode,
		Agents:        len(r.agents),
		Posts:         len(mem.Posts),
		Processed:     r.mem.ProcessedCount(),
		RecentPhrases: r.phrases.Len(),
		LastPost:      r.lastPost,
		LastCheck:     r.lastCheck,
		AccountID:     r.userID,
	}
	if mem.NextPost != nil {
		s.NextPost, s.HasNextPost = *mem.NextPost, true
	}
	if !r.lastCheck.IsZero() {
		s.NextCheckAfter = max(r.cfg.NotificationInterval-now.Sub(r.lastCheck), 0)
	}
	return s
}

// sample returns up to n mentions picked at random, in random order.
func (r *Runtime) sample(ms []social.Mention, n int) []social.Mention {
	if n <= 0 || len(ms) <= n {
		return ms
	}
	picked := slices.Clone(ms)
	r.mu.Lock()
	r.rng.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	r.mu.Unlock()
	return picked[:n]
}

func (r *Runtime) intN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.IntN(n)
}

func (r *Runtime) coin() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.IntN(2) == 0
}

func (r *Runtime) theme() tracker.Theme {
	r.mu.Lock()
	defer r.mu.Unlock()
	return tracker.RandomTheme(r.rng)
}

func (r *Runtime) templateCritique(t tracker.Token) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return tracker.TemplateCritique(t, r.rng)
}
