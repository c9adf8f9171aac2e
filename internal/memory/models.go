// Package memory holds the bot's persisted state: the history of posts and
// replies it produced, its mode flags, and the set of inbound notifications
// it has already handled.
package memory

import (
	"encoding/json"
	"slices"
	"time"
)

// PostKind distinguishes original posts from replies.
type PostKind string

const (
	KindOriginal PostKind = "Original"
	KindReply    PostKind = "Reply"
)

// Post is one generated message. ExternalID is nil until the platform
// accepted it (or forever, when publishing is disabled).
type Post struct {
	InternalID uint64    `json:"internal_id"`
	ExternalID *string   `json:"twitter_id"`
	Text       string    `json:"text"`
	Prompt     string    `json:"prompt"`
	Timestamp  time.Time `json:"timestamp"`
	Kind       PostKind  `json:"tweet_type"`
	ReplyTo    *string   `json:"reply_to"`
}

// Memory is the persisted bot memory document.
type Memory struct {
	Posts     []Post     `json:"posts"`
	NextID    uint64     `json:"next_id"`
	NextPost  *time.Time `json:"next_tweet"`
	DebugMode bool       `json:"debug_mode"`
	TweetMode bool       `json:"tweet_mode"`
}

// NewMemory returns the default memory used when nothing was persisted yet.
func NewMemory() *Memory {
	return &Memory{Posts: []Post{}}
}

// UnmarshalJSON accepts the legacy "tweets" key for the post list.
func (m *Memory) UnmarshalJSON(data []byte) error {
	type alias Memory
	aux := struct {
		*alias
		Tweets []Post `json:"tweets"`
	}{alias: (*alias)(m)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(m.Posts) == 0 && len(aux.Tweets) > 0 {
		m.Posts = aux.Tweets
	}
	if m.Posts == nil {
		m.Posts = []Post{}
	}
	return nil
}

// Normalize repairs NextID so it is strictly greater than every stored
// internal ID.
func (m *Memory) Normalize() {
	if len(m.Posts) == 0 {
		return
	}
	var highest uint64
	for _, p := range m.Posts {
		highest = max(highest, p.InternalID)
	}
	m.NextID = max(m.NextID, highest+1)
}

// Clone returns a deep copy of m.
func (m *Memory) Clone() *Memory {
	c := *m
	c.Posts = make([]Post, len(m.Posts))
	for i, p := range m.Posts {
		c.Posts[i] = p.clone()
	}
	if m.NextPost != nil {
		t := *m.NextPost
		c.NextPost = &t
	}
	return &c
}

func (p Post) clone() Post {
	if p.ExternalID != nil {
		id := *p.ExternalID
		p.ExternalID = &id
	}
	if p.ReplyTo != nil {
		id := *p.ReplyTo
		p.ReplyTo = &id
	}
	return p
}

// ProcessedSet is the set of inbound notification IDs already handled. IDs
// are only ever added.
type ProcessedSet map[string]struct{}

// NewProcessedSet returns a set holding ids.
func NewProcessedSet(ids ...string) ProcessedSet {
	s := make(ProcessedSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id and reports whether it was new.
func (s ProcessedSet) Add(id string) bool {
	if _, ok := s[id]; ok {
		return false
	}
	s[id] = struct{}{}
	return true
}

// Has reports whether id is in the set.
func (s ProcessedSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// IDs returns the members in sorted order.
func (s ProcessedSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Clone returns a copy of s.
func (s ProcessedSet) Clone() ProcessedSet {
	c := make(ProcessedSet, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

type processedDoc struct {
	TweetIDs []string `json:"tweet_ids"`
}

// MarshalJSON writes {"tweet_ids": [...]} with sorted IDs.
func (s ProcessedSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(processedDoc{TweetIDs: s.IDs()})
}

// UnmarshalJSON reads {"tweet_ids": [...]}.
func (s *ProcessedSet) UnmarshalJSON(data []byte) error {
	var doc processedDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*s = NewProcessedSet(doc.TweetIDs...)
	return nil
}
