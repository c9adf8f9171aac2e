// Package recency remembers the three-word phrases of recently published
// posts so the bot can avoid repeating itself.
package recency

import (
	"strings"
	"sync"
)

// DefaultCapacity is the number of phrases kept when none is configured.
const DefaultCapacity = 50

const phraseWords = 3

// Phrases returns every run of three consecutive lowercase words in text.
// Texts shorter than three words yield no phrases.
func Phrases(text string) []string {
	words := strings.Fields(strings.ToLower(text))
	if len(words) < phraseWords {
		return nil
	}
	out := make([]string, 0, len(words)-phraseWords+1)
	for i := 0; i+phraseWords <= len(words); i++ {
		out = append(out, strings.Join(words[i:i+phraseWords], " "))
	}
	return out
}

// Window is a bounded set of phrases. When full, the phrase inserted first
// is evicted first.
type Window struct {
	mu       sync.Mutex
	capacity int
	order    []string
	set      map[string]struct{}
}

// NewWindow returns an empty window holding at most capacity phrases.
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Window{
		capacity: capacity,
		order:    make([]string, 0, capacity),
		set:      make(map[string]struct{}, capacity),
	}
}

// Seen reports whether any phrase of text is in the window.
func (w *Window) Seen(text string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.seenLocked(Phrases(text))
}

// Add inserts the phrases of text, evicting the oldest beyond capacity.
// Phrases already present keep their original position.
func (w *Window) Add(text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.addLocked(Phrases(text))
}

// CheckAndRecord reports whether text repeats a known phrase, then records
// its phrases either way.
func (w *Window) CheckAndRecord(text string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	phrases := Phrases(text)
	seen := w.seenLocked(phrases)
	w.addLocked(phrases)
	return seen
}

// Len returns the number of phrases held.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.order)
}

func (w *Window) seenLocked(phrases []string) bool {
	for _, p := range phrases {
		if _, ok := w.set[p]; ok {
			return true
		}
	}
	return false
}

func (w *Window) addLocked(phrases []string) {
	for _, p := range phrases {
		if _, ok := w.set[p]; ok {
			continue
		}
		w.set[p] = struct{}{}
		w.order = append(w.order, p)
	}
	if over := len(w.order) - w.capacity; over > 0 {
		for _, p := range w.order[:over] {
			delete(w.set, p)
		}
		w.order = append(w.order[:0], w.order[over:]...)
	}
}
