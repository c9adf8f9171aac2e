package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/edgard/fudbot/internal/config"
	"github.com/edgard/fudbot/internal/errs"
	"github.com/edgard/fudbot/internal/resilience"
)

// ErrTokenNotFound is returned by TokenByAddress for unknown mints.
var ErrTokenNotFound = errors.New("token not found")

// maxBody caps how much of a response is read.
const maxBody = 8 << 20

// Client talks to the SolanaTracker data API.
type Client struct {
	baseURL   string
	apiKey    string
	timeframe string
	http      *http.Client
	breaker   *resilience.CircuitBreaker
	retry     resilience.RetryConfig
	log       *slog.Logger
}

// NewClient creates a tracker client from cfg.
func NewClient(cfg config.TrackerConfig, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	logger := log.With("component", "tracker")
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		timeframe: cfg.Timeframe,
		http:      &http.Client{Timeout: cfg.Timeout},
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:    "tracker",
			Timeout: cfg.Timeout,
			Logger:  logger,
		}),
		retry: resilience.DefaultRetryConfig(),
		log:   logger,
	}
}

// Trending returns the trending tokens for timeframe (for example "1h" or
// "24h"), most trending first.
func (c *Client) Trending(ctx context.Context, timeframe string) ([]Token, error) {
	var tokens []Token
	path := "/tokens/trending/" + url.PathEscape(timeframe)
	if _, err := c.getJSON(ctx, "tracker.trending", path, &tokens); err != nil {
		return nil, err
	}
	c.log.DebugContext(ctx, "Fetched trending tokens", "timeframe", timeframe, "count", len(tokens))
	return tokens, nil
}

// TopTokens returns at most n trending tokens for the configured timeframe.
func (c *Client) TopTokens(ctx context.Context, n int) ([]Token, error) {
	tokens, err := c.Trending(ctx, c.timeframe)
	if err != nil {
		return nil, err
	}
	if n >= 0 && len(tokens) > n {
		tokens = tokens[:n]
	}
	return tokens, nil
}

// TokenByAddress looks a token up by mint address.
func (c *Client) TokenByAddress(ctx context.Context, mint string) (Token, error) {
	var t Token
	found, err := c.getJSON(ctx, "tracker.token", "/tokens/"+url.PathEscape(mint), &t)
	if err != nil {
		return Token{}, err
	}
	if !found {
		return Token{}, fmt.Errorf("%w: %s", ErrTokenNotFound, mint)
	}
	if t.Info.Mint == "" {
		t.Info.Mint = mint
	}
	return t, nil
}

// getJSON GETs path into out, retrying transient failures. It reports false
// on 404 without counting it against the breaker.
func (c *Client) getJSON(ctx context.Context, op, path string, out any) (bool, error) {
	found := true
	err := resilience.WithRetry(ctx, func(ctx context.Context) error {
		return c.breaker.Execute(ctx, func(ctx context.Context) error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
			if err != nil {
				return errs.Fatal(op, fmt.Errorf("failed to build request: %w", err))
			}
			req.Header.Set("x-api-key", c.apiKey)
			req.Header.Set("Accept", "application/json")

			resp, err := c.http.Do(req)
			if err != nil {
				return errs.Transient(op, fmt.Errorf("failed to send request: %w", err))
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
			if err != nil {
				return errs.Transient(op, fmt.Errorf("failed to read response: %w", err))
			}

			if resp.StatusCode == http.StatusNotFound {
				found = false
				return nil
			}
			if resp.StatusCode < 200 || resp.StatusCode > 299 {
				return errs.FromStatus(op, resp.StatusCode, body, resp.Header)
			}
			if err := json.Unmarshal(body, out); err != nil {
				return errs.Fatal(op, fmt.Errorf("failed to decode response: %w", err))
			}
			return nil
		})
	}, c.retry)
	if err != nil {
		c.log.WarnContext(ctx, "Tracker request failed", "op", op, "kind", errs.KindOf(err), "error", err)
		return false, err
	}
	return found, nil
}
