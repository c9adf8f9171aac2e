package database

import (
	"sync"

	"github.com/edgard/fudbot/internal/memory"
)

// savedRows remembers what a store last persisted so a save only writes
// posts and notification IDs that changed since. It is filled on load and
// updated after each committed save.
type savedRows struct {
	mu        sync.Mutex
	posts     map[int64]postRow
	processed map[string]struct{}
}

func newSavedRows() *savedRows {
	return &savedRows{
		posts:     make(map[int64]postRow),
		processed: make(map[string]struct{}),
	}
}

// changedPosts returns the posts that are new or differ from the last
// persisted version.
func (s *savedRows) changedPosts(posts []memory.Post) []memory.Post {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []memory.Post
	for _, p := range posts {
		row := fromPost(p)
		if prev, ok := s.posts[row.InternalID]; ok && prev == row {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (s *savedRows) markPosts(posts []memory.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range posts {
		row := fromPost(p)
		s.posts[row.InternalID] = row
	}
}

// resetPosts replaces the tracked posts with what was just loaded.
func (s *savedRows) resetPosts(posts []memory.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = make(map[int64]postRow, len(posts))
	for _, p := range posts {
		row := fromPost(p)
		s.posts[row.InternalID] = row
	}
}

// unsavedIDs returns the IDs of set not yet persisted.
func (s *savedRows) unsavedIDs(set memory.ProcessedSet) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []string
	for _, id := range set.IDs() {
		if _, ok := s.processed[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func (s *savedRows) markProcessed(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.processed[id] = struct{}{}
	}
}
