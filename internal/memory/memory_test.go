package memory_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/edgard/fudbot/internal/logger"
	"github.com/edgard/fudbot/internal/memory"
)

func newFileStore(t *testing.T) (*memory.FileStore, string) {
	t.Helper()
	dir := t.TempDir()
	return memory.NewFileStore(
		filepath.Join(dir, "storage", "memory.json"),
		filepath.Join(dir, "storage", "processed_tweets.json"),
		logger.Discard(),
	), dir
}

func TestFileStoreMissingFilesLoadDefaults(t *testing.T) {
	t.Parallel()
	store, _ := newFileStore(t)
	ctx := context.Background()

	mem, err := store.LoadMemory(ctx)
	if err != nil {
		t.Fatalf("LoadMemory() error = %v", err)
	}
	if len(mem.Posts) != 0 || mem.NextID != 0 || mem.TweetMode || mem.DebugMode || mem.NextPost != nil {
		t.Errorf("LoadMemory() = %+v, want default memory", mem)
	}

	set, err := store.LoadProcessed(ctx)
	if err != nil {
		t.Fatalf("LoadProcessed() error = %v", err)
	}
	if len(set) != 0 {
		t.Errorf("LoadProcessed() = %v, want empty", set)
	}
}

func TestNextIDRoundTrip(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 2, 7, 30} {
		store, _ := newFileStore(t)
		ctx := context.Background()

		mgr, err := memory.NewManager(ctx, store, logger.Discard())
		if err != nil {
			t.Fatalf("NewManager() error = %v", err)
		}
		for i := 0; i < n; i++ {
			if i%3 == 0 {
				mgr.AddReply(ctx, "reply", "prompt", "", "mention")
			} else {
				mgr.AddPost(ctx, "post", "prompt", "")
			}
		}

		loaded, err := store.LoadMemory(ctx)
		if err != nil {
			t.Fatalf("LoadMemory() error = %v", err)
		}
		var highest uint64
		for _, p := range loaded.Posts {
			highest = max(highest, p.InternalID)
		}
		if loaded.NextID != highest+1 {
			t.Errorf("n=%d: NextID = %d, want %d", n, loaded.NextID, highest+1)
		}
	}
}

func TestLoadRepairsStaleNextID(t *testing.T) {
	t.Parallel()
	store, dir := newFileStore(t)

	doc := `{"posts":[{"internal_id":4,"twitter_id":null,"text":"a","prompt":"p","timestamp":"2024-12-01T10:00:00Z","tweet_type":"Original","reply_to":null}],"next_id":2,"next_tweet":null,"debug_mode":false,"tweet_mode":true}`
	writeFile(t, filepath.Join(dir, "storage", "memory.json"), doc)

	mem, err := store.LoadMemory(context.Background())
	if err != nil {
		t.Fatalf("LoadMemory() error = %v", err)
	}
	if mem.NextID != 5 {
		t.Errorf("NextID = %d, want 5", mem.NextID)
	}
	if !mem.TweetMode {
		t.Error("TweetMode = false, want true")
	}
}

func TestLoadAcceptsLegacyTweetsKey(t *testing.T) {
	t.Parallel()
	store, dir := newFileStore(t)

	doc := `{"tweets":[{"internal_id":0,"twitter_id":"111","text":"gm","prompt":"p","timestamp":"2024-12-01T10:00:00Z","tweet_type":"Reply","reply_to":"99"}],"next_id":1,"debug_mode":true,"tweet_mode":false}`
	writeFile(t, filepath.Join(dir, "storage", "memory.json"), doc)

	mem, err := store.LoadMemory(context.Background())
	if err != nil {
		t.Fatalf("LoadMemory() error = %v", err)
	}
	if len(mem.Posts) != 1 {
		t.Fatalf("len(Posts) = %d, want 1", len(mem.Posts))
	}
	p := mem.Posts[0]
	if p.Kind != memory.KindReply || p.ExternalID == nil || *p.ExternalID != "111" || p.ReplyTo == nil || *p.ReplyTo != "99" {
		t.Errorf("Posts[0] = %+v, want reply 111 -> 99", p)
	}
}

func TestMemoryJSONFieldNames(t *testing.T) {
	t.Parallel()

	id := "123"
	mem := memory.Memory{
		Posts: []memory.Post{{
			InternalID: 0,
			ExternalID: &id,
			Text:       "text",
			Prompt:     "prompt",
			Timestamp:  time.Date(2024, 12, 1, 10, 0, 0, 0, time.UTC),
			Kind:       memory.KindOriginal,
		}},
		NextID: 1,
	}
	data, err := json.Marshal(mem)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	for _, key := range []string{`"posts"`, `"internal_id"`, `"twitter_id":"123"`, `"tweet_type":"Original"`, `"reply_to":null`, `"next_id":1`, `"next_tweet":null`, `"debug_mode"`, `"tweet_mode"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("json = %s, missing %s", data, key)
		}
	}
}

func TestProcessedSetRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ids  []string
	}{
		{"empty", nil},
		{"single", []string{"1"}},
		{"many", []string{"1865", "42", "abc", "", "42", "ünïcode", "with space"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store, _ := newFileStore(t)
			ctx := context.Background()

			want := memory.NewProcessedSet(tt.ids...)
			if err := store.SaveProcessed(ctx, want); err != nil {
				t.Fatalf("SaveProcessed() error = %v", err)
			}
			got, err := store.LoadProcessed(ctx)
			if err != nil {
				t.Fatalf("LoadProcessed() error = %v", err)
			}
			if diff := cmp.Diff(want.IDs(), got.IDs()); diff != "" {
				t.Errorf("processed set mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestManagerReplyLinkageSurvivesRestart(t *testing.T) {
	t.Parallel()
	store, _ := newFileStore(t)
	ctx := context.Background()

	mgr, err := memory.NewManager(ctx, store, logger.Discard())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	reply := mgr.AddReply(ctx, "ngmi", "prompt", "", "mention-1")
	if !mgr.AttachExternalID(ctx, reply.InternalID, "reply-9") {
		t.Fatal("AttachExternalID() = false, want true")
	}
	mgr.MarkProcessed("mention-1", "mention-2")
	mgr.SaveProcessed(ctx)
	mgr.SetTweetMode(ctx, true)

	restarted, err := memory.NewManager(ctx, store, logger.Discard())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	if !restarted.HasRepliedTo("mention-1") {
		t.Error("HasRepliedTo(mention-1) = false, want true")
	}
	if restarted.HasRepliedTo("mention-2") {
		t.Error("HasRepliedTo(mention-2) = true, want false")
	}
	if !restarted.IsProcessed("mention-2") {
		t.Error("IsProcessed(mention-2) = false, want true")
	}
	if !restarted.TweetMode() {
		t.Error("TweetMode() = false, want true")
	}

	recent := restarted.Recent(5)
	if len(recent) != 1 || recent[0].ExternalID == nil || *recent[0].ExternalID != "reply-9" {
		t.Errorf("Recent() = %+v, want one reply with external id reply-9", recent)
	}
}

func TestManagerRecentOrder(t *testing.T) {
	t.Parallel()
	store, _ := newFileStore(t)
	ctx := context.Background()

	mgr, err := memory.NewManager(ctx, store, logger.Discard())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	for _, text := range []string{"one", "two", "three"} {
		mgr.AddPost(ctx, text, "p", "")
	}

	var got []string
	for _, p := range mgr.Recent(2) {
		got = append(got, p.Text)
	}
	if diff := cmp.Diff([]string{"two", "three"}, got); diff != "" {
		t.Errorf("Recent(2) mismatch (-want +got):\n%s", diff)
	}
}

type failingStore struct {
	memory.Store
	saves int
}

func (f *failingStore) SaveMemory(context.Context, *memory.Memory) error {
	f.saves++
	return errors.New("disk full")
}

func (f *failingStore) SaveProcessed(context.Context, memory.ProcessedSet) error {
	return errors.New("disk full")
}

func TestManagerSwallowsPersistenceFailures(t *testing.T) {
	t.Parallel()
	inner, _ := newFileStore(t)
	store := &failingStore{Store: inner}
	ctx := context.Background()

	mgr, err := memory.NewManager(ctx, store, logger.Discard())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	first := mgr.AddPost(ctx, "first", "p", "")
	second := mgr.AddPost(ctx, "second", "p", "")
	mgr.MarkProcessed("x")
	mgr.SaveProcessed(ctx)

	if store.saves != 2 {
		t.Errorf("SaveMemory calls = %d, want 2", store.saves)
	}
	if second.InternalID != first.InternalID+1 {
		t.Errorf("InternalID = %d, want %d", second.InternalID, first.InternalID+1)
	}
	if len(mgr.Snapshot().Posts) != 2 || !mgr.IsProcessed("x") {
		t.Error("in-memory state lost after persistence failure")
	}
	if err := mgr.Flush(ctx); err == nil {
		t.Error("Flush() error = nil, want error")
	}
}

func TestMemoryFileIsPrettyPrinted(t *testing.T) {
	t.Parallel()
	store, dir := newFileStore(t)

	if err := store.SaveMemory(context.Background(), memory.NewMemory()); err != nil {
		t.Fatalf("SaveMemory() error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "storage", "memory.json"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "\n  \"posts\": []") {
		t.Errorf("memory file = %q, want indented posts array", data)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}
