package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/edgard/fudbot/internal/config"
	"github.com/edgard/fudbot/internal/errs"
	"github.com/edgard/fudbot/internal/logger"
)

const trendingBody = `[
  {"token":{"name":"Bonk","symbol":"BONK","mint":"DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"},
   "pools":[{"price":{"quote":0.0000001,"usd":0.0000123},"liquidity":{"quote":10,"usd":45678},
             "events":{"1h":{"priceChangePercentage":1.5},"24h":{"priceChangePercentage":12.34}}}]},
  {"token":{"name":"Dogwif","symbol":"WIF","mint":"EKpQGSJtjMFqKZ9KQanSqYXRcF8fBopzLHYxdM65zcjm"},
   "pools":[{"price":{"usd":2.5},"liquidity":{"usd":1500000},"events":{"24h":-3.2}}]},
  {"token":{"name":"Empty","symbol":"NOPOOL","mint":"x"},"pools":[]}
]`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(config.TrackerConfig{
		APIKey:    "secret",
		BaseURL:   srv.URL + "/",
		Timeframe: "1h",
		Timeout:   5 * time.Second,
	}, logger.Discard())
	c.retry.InitialInterval = time.Millisecond
	c.retry.MaxInterval = time.Millisecond
	c.retry.Jitter = time.Millisecond
	return c
}

func TestTrending(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tokens/trending/24h" {
			t.Errorf("path = %q, want /tokens/trending/24h", r.URL.Path)
		}
		if got := r.Header.Get("x-api-key"); got != "secret" {
			t.Errorf("x-api-key = %q, want secret", got)
		}
		_, _ = w.Write([]byte(trendingBody))
	})

	tokens, err := c.Trending(context.Background(), "24h")
	if err != nil {
		t.Fatalf("Trending() error = %v", err)
	}
	if len(tokens) != 3 {
		t.Fatalf("len(Trending()) = %d, want 3", len(tokens))
	}
	if c := tokens[0].Context(); c.Change24h == nil || *c.Change24h != 12.34 {
		t.Errorf("BONK Change24h = %v, want 12.34", c.Change24h)
	}
	if c := tokens[1].Context(); c.Change24h == nil || *c.Change24h != -3.2 {
		t.Errorf("WIF Change24h = %v, want -3.2", c.Change24h)
	}
}

func TestTopTokensUsesConfiguredTimeframe(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tokens/trending/1h" {
			t.Errorf("path = %q, want /tokens/trending/1h", r.URL.Path)
		}
		_, _ = w.Write([]byte(trendingBody))
	})

	tokens, err := c.TopTokens(context.Background(), 2)
	if err != nil {
		t.Fatalf("TopTokens() error = %v", err)
	}
	if len(tokens) != 2 || tokens[1].Info.Symbol != "WIF" {
		t.Errorf("TopTokens(2) = %+v, want BONK and WIF", tokens)
	}
}

func TestTokenByAddress(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tokens/known":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"token": map[string]string{"symbol": "KNOWN"},
				"pools": []map[string]any{{"price": map[string]float64{"usd": 0.5}}},
			})
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	tok, err := c.TokenByAddress(ctx, "known")
	if err != nil {
		t.Fatalf("TokenByAddress() error = %v", err)
	}
	if tok.Info.Symbol != "KNOWN" || tok.Info.Mint != "known" {
		t.Errorf("TokenByAddress() = %+v, want KNOWN with mint filled", tok.Info)
	}

	_, err = c.TokenByAddress(ctx, "missing")
	if !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("TokenByAddress(missing) error = %v, want ErrTokenNotFound", err)
	}
}

func TestClientErrorHandling(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		statuses  []int
		wantErr   bool
		wantKind  errs.Kind
		wantCalls int32
	}{
		{name: "retries server error", statuses: []int{500}, wantCalls: 2},
		{name: "rate limited is not retried", statuses: []int{429}, wantErr: true, wantKind: errs.KindRateLimited, wantCalls: 1},
		{name: "unauthorized is fatal", statuses: []int{401}, wantErr: true, wantKind: errs.KindFatal, wantCalls: 1},
		{name: "gives up after three attempts", statuses: []int{502, 502, 502}, wantErr: true, wantKind: errs.KindTransient, wantCalls: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var calls atomic.Int32
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				n := int(calls.Add(1)) - 1
				if n < len(tt.statuses) {
					w.WriteHeader(tt.statuses[n])
					return
				}
				_, _ = w.Write([]byte(trendingBody))
			})

			_, err := c.Trending(context.Background(), "1h")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Trending() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && errs.KindOf(err) != tt.wantKind {
				t.Errorf("KindOf(err) = %v, want %v", errs.KindOf(err), tt.wantKind)
			}
			if got := calls.Load(); got != tt.wantCalls {
				t.Errorf("calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func testTokens(t *testing.T) []Token {
	t.Helper()
	var tokens []Token
	if err := json.Unmarshal([]byte(trendingBody), &tokens); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	return tokens
}

func TestFindBySymbol(t *testing.T) {
	t.Parallel()

	tokens := []Token{
		{Info: TokenInfo{Symbol: "TEST", Mint: "low"}, Pools: []Pool{{Liquidity: Amount{USD: 1000}}}},
		{Info: TokenInfo{Symbol: "TEST", Mint: "high"}, Pools: []Pool{{Liquidity: Amount{USD: 5000}}}},
		{Info: TokenInfo{Symbol: "TEST", Mint: "none"}},
		{Info: TokenInfo{Symbol: "OTHER", Mint: "other"}},
	}

	tests := []struct {
		symbol   string
		wantMint string
		wantOK   bool
	}{
		{"TEST", "high", true},
		{"test", "high", true},
		{"$Test", "high", true},
		{"OTHER", "other", true},
		{"MISSING", "", false},
		{"$", "", false},
	}
	for _, tt := range tests {
		got, ok := FindBySymbol(tokens, tt.symbol)
		if ok != tt.wantOK || got.Info.Mint != tt.wantMint {
			t.Errorf("FindBySymbol(%q) = %q, %v, want %q, %v", tt.symbol, got.Info.Mint, ok, tt.wantMint, tt.wantOK)
		}
	}
}

func TestFormatSummary(t *testing.T) {
	t.Parallel()
	tokens := testTokens(t)

	tests := []struct {
		name string
		tok  Token
		want string
	}{
		{
			name: "small cap",
			tok:  tokens[0],
			want: "Token: $BONK\nMarket cap: $12.3K\nPrice: $0.00001230\nLiquidity: $45.7K\n24h Change: 12.3%",
		},
		{
			name: "large cap",
			tok:  tokens[1],
			want: "Token: $WIF\nMarket cap: $2.5B\nPrice: $2.50\nLiquidity: $1.5M\n24h Change: -3.2%",
		},
		{
			name: "no pools",
			tok:  tokens[2],
			want: "Token: $NOPOOL\nMarket cap: N/A\nPrice: $0.00000000\nLiquidity: $0.00\n24h Change: N/A%",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := FormatSummary(tt.tok); got != tt.want {
				t.Errorf("FormatSummary() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatTrending(t *testing.T) {
	t.Parallel()

	got := FormatTrending(testTokens(t))
	for _, want := range []string{"#1 $BONK", "MCap: $12.3K", "#2 $WIF", "Price: $2.50", "Liq: $1.5M", "Data from SolanaTracker"} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatTrending() missing %q in:\n%s", want, got)
		}
	}
	if strings.Contains(got, "NOPOOL") {
		t.Error("FormatTrending() lists a token without pools")
	}

	if empty := FormatTrending(nil); !strings.Contains(empty, "Nothing trending") {
		t.Errorf("FormatTrending(nil) = %q", empty)
	}
}

func TestThemes(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(1, 2))
	tokens := testTokens(t)

	for range 20 {
		theme := RandomTheme(rng)
		if theme.Intro == "" || theme.Reason == "" || theme.Closing == "" {
			t.Fatalf("RandomTheme() = %+v, want all parts set", theme)
		}
		if strings.Contains(theme.Intro, "%") || strings.Contains(theme.Intro, "$") {
			t.Errorf("RandomTheme().Intro = %q, want no symbol", theme.Intro)
		}

		critique := TemplateCritique(tokens[0], rng)
		if !strings.Contains(critique, "$BONK") || !strings.Contains(critique, "MC: $12.3K") {
			t.Errorf("TemplateCritique() = %q, want symbol and market cap", critique)
		}
	}

	if got := TemplateCritique(tokens[2], rng); strings.Contains(got, "MC:") {
		t.Errorf("TemplateCritique() without pools = %q, want no market data", got)
	}
}
