package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Manager is the in-process authority over bot memory. Every mutation is
// persisted through the Store right away; persistence failures are logged
// and the in-memory state stays authoritative.
//
// The orchestration loop is the main writer; the Telegram control surface
// also toggles modes, hence the mutex.
type Manager struct {
	mu        sync.Mutex
	store     Store
	log       *slog.Logger
	now       func() time.Time
	mem       *Memory
	processed ProcessedSet
	replied   map[string]struct{}
}

// NewManager loads both documents from store. A missing document starts
// from its default; an unreadable one is an error.
func NewManager(ctx context.Context, store Store, log *slog.Logger) (*Manager, error) {
	if log == nil {
		log = slog.Default()
	}

	mem, err := store.LoadMemory(ctx)
	if err != nil {
		return nil, err
	}
	mem.Normalize()

	processed, err := store.LoadProcessed(ctx)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		store:     store,
		log:       log.With("component", "memory"),
		now:       func() time.Time { return time.Now().UTC() },
		mem:       mem,
		processed: processed,
		replied:   make(map[string]struct{}),
	}
	for _, p := range mem.Posts {
		if p.ReplyTo != nil {
			m.replied[*p.ReplyTo] = struct{}{}
		}
	}

	m.log.InfoContext(ctx, "Memory loaded",
		"posts", len(mem.Posts),
		"next_id", mem.NextID,
		"processed", len(processed),
		"tweet_mode", mem.TweetMode,
		"debug_mode", mem.DebugMode)
	return m, nil
}

// SetClock overrides the timestamp source. Intended for tests.
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// AddPost records an original post. externalID may be empty when the post
// was not published.
func (m *Manager) AddPost(ctx context.Context, text, prompt, externalID string) Post {
	return m.add(ctx, KindOriginal, text, prompt, externalID, "")
}

// AddReply records a reply to the notification replyTo.
func (m *Manager) AddReply(ctx context.Context, text, prompt, externalID, replyTo string) Post {
	return m.add(ctx, KindReply, text, prompt, externalID, replyTo)
}

func (m *Manager) add(ctx context.Context, kind PostKind, text, prompt, externalID, replyTo string) Post {
	m.mu.Lock()
	defer m.mu.Unlock()

	post := Post{
		InternalID: m.mem.NextID,
		Text:       text,
		Prompt:     prompt,
		Timestamp:  m.now(),
		Kind:       kind,
	}
	if externalID != "" {
		post.ExternalID = &externalID
	}
	if replyTo != "" {
		post.ReplyTo = &replyTo
		m.replied[replyTo] = struct{}{}
	}

	m.mem.NextID++
	m.mem.Posts = append(m.mem.Posts, post)
	m.persistLocked(ctx)

	return post.clone()
}

// AttachExternalID sets the platform ID of an already recorded post. It
// reports false when internalID is unknown.
func (m *Manager) AttachExternalID(ctx context.Context, internalID uint64, externalID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.mem.Posts {
		if m.mem.Posts[i].InternalID == internalID {
			id := externalID
			m.mem.Posts[i].ExternalID = &id
			m.persistLocked(ctx)
			return true
		}
	}
	return false
}

// TweetMode reports whether generated content is published.
func (m *Manager) TweetMode() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mem.TweetMode
}

// DebugMode reports whether the diagnostic run replaces the main loop.
func (m *Manager) DebugMode() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mem.DebugMode
}

// SetTweetMode toggles publishing.
func (m *Manager) SetTweetMode(ctx context.Context, on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mem.TweetMode = on
	m.persistLocked(ctx)
}

// SetDebugMode toggles the diagnostic run.
func (m *Manager) SetDebugMode(ctx context.Context, on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mem.DebugMode = on
	m.persistLocked(ctx)
}

// NextPost returns the next scheduled post time, if one was recorded.
func (m *Manager) NextPost() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mem.NextPost == nil {
		return time.Time{}, false
	}
	return *m.mem.NextPost, true
}

// SetNextPost records the next scheduled post time.
func (m *Manager) SetNextPost(ctx context.Context, t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t = t.UTC()
	m.mem.NextPost = &t
	m.persistLocked(ctx)
}

// HasRepliedTo reports whether memory holds a reply to notification id.
func (m *Manager) HasRepliedTo(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.replied[id]
	return ok
}

// IsProcessed reports whether notification id was already handled.
func (m *Manager) IsProcessed(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.processed.Has(id)
}

// MarkProcessed adds ids to the processed set and returns how many were new.
// Call SaveProcessed to persist.
func (m *Manager) MarkProcessed(ids ...string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	added := 0
	for _, id := range ids {
		if m.processed.Add(id) {
			added++
		}
	}
	return added
}

// SaveProcessed persists the processed set. Failures are logged.
func (m *Manager) SaveProcessed(ctx context.Context) {
	m.mu.Lock()
	snapshot := m.processed.Clone()
	m.mu.Unlock()

	if err := m.store.SaveProcessed(ctx, snapshot); err != nil {
		m.log.ErrorContext(ctx, "Failed to persist processed notifications", "error", err, "count", len(snapshot))
	}
}

// ProcessedCount returns the size of the processed set.
func (m *Manager) ProcessedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.processed)
}

// Recent returns up to n most recent posts, oldest first.
func (m *Manager) Recent(n int) []Post {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n <= 0 {
		return nil
	}
	start := max(len(m.mem.Posts)-n, 0)
	out := make([]Post, 0, len(m.mem.Posts)-start)
	for _, p := range m.mem.Posts[start:] {
		out = append(out, p.clone())
	}
	return out
}

// Snapshot returns a deep copy of the current memory.
func (m *Manager) Snapshot() *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mem.Clone()
}

// Flush persists both documents, reporting the first failure.
func (m *Manager) Flush(ctx context.Context) error {
	m.mu.Lock()
	mem := m.mem.Clone()
	processed := m.processed.Clone()
	m.mu.Unlock()

	if err := m.store.SaveMemory(ctx, mem); err != nil {
		return fmt.Errorf("failed to flush memory: %w", err)
	}
	if err := m.store.SaveProcessed(ctx, processed); err != nil {
		return fmt.Errorf("failed to flush processed set: %w", err)
	}
	return nil
}

func (m *Manager) persistLocked(ctx context.Context) {
	if err := m.store.SaveMemory(ctx, m.mem.Clone()); err != nil {
		m.log.ErrorContext(ctx, "Failed to persist memory", "error", err, "posts", len(m.mem.Posts))
	}
}
