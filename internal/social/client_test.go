package social

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/edgard/fudbot/internal/config"
	"github.com/edgard/fudbot/internal/errs"
	"github.com/edgard/fudbot/internal/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return newClient(srv.URL, srv.Client(), 20, logger.Discard())
}

func TestPostAndReply(t *testing.T) {
	t.Parallel()

	var bodies []map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/2/tweets" {
			t.Errorf("request = %s %s, want POST /2/tweets", r.Method, r.URL.Path)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		bodies = append(bodies, body)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"1865","text":"ignored"}}`))
	})
	ctx := context.Background()

	id, err := c.Post(ctx, "gm")
	if err != nil || id != "1865" {
		t.Fatalf("Post() = %q, %v, want 1865", id, err)
	}
	if _, err := c.Reply(ctx, "ngmi", "42"); err != nil {
		t.Fatalf("Reply() error = %v", err)
	}

	if len(bodies) != 2 {
		t.Fatalf("requests = %d, want 2", len(bodies))
	}
	if _, ok := bodies[0]["reply"]; ok || bodies[0]["text"] != "gm" {
		t.Errorf("post body = %v, want text only", bodies[0])
	}
	reply, _ := bodies[1]["reply"].(map[string]any)
	if reply["in_reply_to_tweet_id"] != "42" {
		t.Errorf("reply body = %v, want in_reply_to_tweet_id 42", bodies[1])
	}
}

func TestMeAndMentions(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/2/users/me":
			_, _ = w.Write([]byte(`{"data":{"id":"7","username":"fudbot"}}`))
		case r.URL.Path == "/2/users/7/mentions":
			if got := r.URL.Query().Get("max_results"); got != "20" {
				t.Errorf("max_results = %q, want 20", got)
			}
			if got := r.URL.Query().Get("tweet.fields"); !strings.Contains(got, "author_id") {
				t.Errorf("tweet.fields = %q, want author_id", got)
			}
			_, _ = w.Write([]byte(`{"data":[{"id":"100","text":"@fudbot $BONK?","author_id":"9"},{"id":"101","text":"hi","author_id":"8"}],"meta":{"result_count":2}}`))
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	me, err := c.Me(ctx)
	if err != nil || me.ID != "7" || me.Username != "fudbot" {
		t.Fatalf("Me() = %+v, %v", me, err)
	}
	mentions, err := c.Mentions(ctx, me.ID)
	if err != nil {
		t.Fatalf("Mentions() error = %v", err)
	}
	if len(mentions) != 2 || mentions[0].ID != "100" || mentions[0].AuthorID != "9" {
		t.Errorf("Mentions() = %+v", mentions)
	}
}

func TestMentionsEmpty(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"meta":{"result_count":0}}`))
	})

	mentions, err := c.Mentions(context.Background(), "7")
	if err != nil || len(mentions) != 0 {
		t.Errorf("Mentions() = %v, %v, want empty", mentions, err)
	}
}

func TestErrorKinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		header    map[string]string
		wantKind  errs.Kind
		wantAfter time.Duration
	}{
		{name: "rate limited", status: 429, header: map[string]string{"Retry-After": "60"}, wantKind: errs.KindRateLimited, wantAfter: time.Minute},
		{name: "unauthorized", status: 401, wantKind: errs.KindFatal},
		{name: "server error", status: 503, wantKind: errs.KindTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.header {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"title":"nope"}`))
			})

			_, err := c.Post(context.Background(), "gm")
			if err == nil {
				t.Fatal("Post() error = nil, want error")
			}
			if got := errs.KindOf(err); got != tt.wantKind {
				t.Errorf("KindOf(err) = %v, want %v", got, tt.wantKind)
			}
			if got := errs.RetryAfter(err); got != tt.wantAfter {
				t.Errorf("RetryAfter(err) = %v, want %v", got, tt.wantAfter)
			}
		})
	}
}

func TestNewClientSignsRequests(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "OAuth ") || !strings.Contains(auth, `oauth_consumer_key="ck"`) || !strings.Contains(auth, `oauth_token="at"`) {
			t.Errorf("Authorization = %q, want OAuth1 header", auth)
		}
		_, _ = w.Write([]byte(`{"data":{"id":"7","username":"fudbot"}}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(context.Background(), config.TwitterConfig{
		ConsumerKey:       "ck",
		ConsumerSecret:    "cs",
		AccessToken:       "at",
		AccessTokenSecret: "ats",
		BaseURL:           srv.URL,
		MentionsLimit:     20,
		Timeout:           5 * time.Second,
	}, logger.Discard())

	if _, err := c.Me(context.Background()); err != nil {
		t.Fatalf("Me() error = %v", err)
	}
}
