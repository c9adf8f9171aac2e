// Package social is the microblog platform client: publishing posts and
// replies and reading mentions through the X API v2 with OAuth1 user
// context.
package social

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dghubble/oauth1"

	"github.com/edgard/fudbot/internal/config"
	"github.com/edgard/fudbot/internal/errs"
	"github.com/edgard/fudbot/internal/resilience"
)

const maxBody = 1 << 20

// User is the authenticated account.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Mention is an inbound post addressed to the account.
type Mention struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	AuthorID string `json:"author_id"`
}

// Client implements the platform operations the orchestration loop needs.
type Client struct {
	baseURL       string
	http          *http.Client
	breaker       *resilience.CircuitBreaker
	mentionsLimit int
	log           *slog.Logger
}

// NewClient creates a client signing every request with the OAuth1
// credentials in cfg.
func NewClient(ctx context.Context, cfg config.TwitterConfig, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	logger := log.With("component", "social")

	base := &http.Client{Timeout: cfg.Timeout}
	ctx = context.WithValue(ctx, oauth1.HTTPClient, base)
	signed := oauth1.NewConfig(cfg.ConsumerKey, cfg.ConsumerSecret).
		Client(ctx, oauth1.NewToken(cfg.AccessToken, cfg.AccessTokenSecret))
	signed.Timeout = cfg.Timeout

	return newClient(cfg.BaseURL, signed, cfg.MentionsLimit, logger)
}

func newClient(baseURL string, httpClient *http.Client, mentionsLimit int, log *slog.Logger) *Client {
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		http:          httpClient,
		mentionsLimit: mentionsLimit,
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:   "social",
			Logger: log,
		}),
		log: log,
	}
}

type createRequest struct {
	Text  string        `json:"text"`
	Reply *replySetting `json:"reply,omitempty"`
}

type replySetting struct {
	InReplyToTweetID string `json:"in_reply_to_tweet_id"`
}

type createResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Post publishes text and returns the new post ID.
func (c *Client) Post(ctx context.Context, text string) (string, error) {
	return c.create(ctx, "social.post", createRequest{Text: text})
}

// Reply publishes text as a reply to inReplyTo and returns the new post ID.
func (c *Client) Reply(ctx context.Context, text, inReplyTo string) (string, error) {
	return c.create(ctx, "social.reply", createRequest{
		Text:  text,
		Reply: &replySetting{InReplyToTweetID: inReplyTo},
	})
}

func (c *Client) create(ctx context.Context, op string, body createRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", errs.Fatal(op, fmt.Errorf("failed to encode request: %w", err))
	}

	var resp createResponse
	if err := c.do(ctx, op, http.MethodPost, "/2/tweets", payload, &resp); err != nil {
		return "", err
	}
	if resp.Data.ID == "" {
		return "", errs.Transient(op, errors.New("response carried no post id"))
	}
	c.log.InfoContext(ctx, "Published", "op", op, "id", resp.Data.ID)
	return resp.Data.ID, nil
}

// Me returns the authenticated account.
func (c *Client) Me(ctx context.Context) (User, error) {
	var resp struct {
		Data User `json:"data"`
	}
	if err := c.do(ctx, "social.me", http.MethodGet, "/2/users/me", nil, &resp); err != nil {
		return User{}, err
	}
	if resp.Data.ID == "" {
		return User{}, errs.Transient("social.me", errors.New("response carried no user id"))
	}
	return resp.Data, nil
}

// Mentions returns the most recent mentions of userID, newest first.
func (c *Client) Mentions(ctx context.Context, userID string) ([]Mention, error) {
	q := url.Values{}
	q.Set("max_results", strconv.Itoa(c.mentionsLimit))
	q.Set("tweet.fields", "author_id,created_at")
	path := "/2/users/" + url.PathEscape(userID) + "/mentions?" + q.Encode()

	var resp struct {
		Data []Mention `json:"data"`
	}
	if err := c.do(ctx, "social.mentions", http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, payload []byte, out any) error {
	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return errs.Fatal(op, fmt.Errorf("failed to build request: %w", err))
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return errs.Transient(op, fmt.Errorf("failed to send request: %w", err))
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
		if err != nil {
			return errs.Transient(op, fmt.Errorf("failed to read response: %w", err))
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			err := errs.FromStatus(op, resp.StatusCode, data, resp.Header)
			c.log.WarnContext(ctx, "Platform request failed", "op", op, "status", resp.StatusCode, "kind", errs.KindOf(err))
			return err
		}
		if err := json.Unmarshal(data, out); err != nil {
			return errs.Transient(op, fmt.Errorf("failed to decode response: %w", err))
		}
		return nil
	})
}
