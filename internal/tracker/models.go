// Package tracker fetches token market data from the SolanaTracker API and
// renders it into the short summaries the generator critiques.
package tracker

import (
	"encoding/json"
	"strings"
)

// marketCapSupply is the supply assumed when deriving market cap from price.
const marketCapSupply = 1e9

// Token is one entry of the trending list, or a single token lookup.
type Token struct {
	Info  TokenInfo `json:"token"`
	Pools []Pool    `json:"pools"`
}

// TokenInfo is the static token metadata.
type TokenInfo struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Mint        string `json:"mint"`
	URI         string `json:"uri"`
	Description string `json:"description"`
}

// Pool is a liquidity pool the token trades in.
type Pool struct {
	Price     Amount `json:"price"`
	Liquidity Amount `json:"liquidity"`
	Events    Events `json:"events"`
}

// Amount is a value quoted in the pool's quote token and in USD.
type Amount struct {
	Quote float64 `json:"quote"`
	USD   float64 `json:"usd"`
}

// Events holds the price change windows. Only the 24h window is used.
type Events struct {
	Change24h *float64
}

// UnmarshalJSON accepts both {"24h": {"priceChangePercentage": x}} and the
// flat {"24h": x} shape.
func (e *Events) UnmarshalJSON(data []byte) error {
	var windows map[string]json.RawMessage
	if err := json.Unmarshal(data, &windows); err != nil {
		return err
	}
	raw, ok := windows["24h"]
	if !ok || string(raw) == "null" {
		return nil
	}

	var flat float64
	if err := json.Unmarshal(raw, &flat); err == nil {
		e.Change24h = &flat
		return nil
	}
	var nested struct {
		PriceChangePercentage *float64 `json:"priceChangePercentage"`
	}
	if err := json.Unmarshal(raw, &nested); err != nil {
		return err
	}
	e.Change24h = nested.PriceChangePercentage
	return nil
}

// Context is the market snapshot of a token as used in prompts.
type Context struct {
	Symbol       string
	PriceUSD     float64
	MarketCapUSD float64
	LiquidityUSD float64
	Change24h    *float64
}

// Context summarises the token's first pool. A token without pools yields
// zero market values.
func (t Token) Context() Context {
	c := Context{Symbol: t.Info.Symbol}
	if len(t.Pools) == 0 {
		return c
	}
	p := t.Pools[0]
	c.PriceUSD = p.Price.USD
	c.MarketCapUSD = p.Price.USD * marketCapSupply
	c.LiquidityUSD = p.Liquidity.USD
	c.Change24h = p.Events.Change24h
	return c
}

func (t Token) firstPoolLiquidity() float64 {
	if len(t.Pools) == 0 {
		return 0
	}
	return t.Pools[0].Liquidity.USD
}

// FindBySymbol returns the token whose symbol matches case-insensitively. A
// leading "$" is ignored. When several match, the one with the most USD
// liquidity in its first pool wins.
func FindBySymbol(tokens []Token, symbol string) (Token, bool) {
	symbol = strings.TrimPrefix(symbol, "$")
	if symbol == "" {
		return Token{}, false
	}

	var (
		best  Token
		found bool
	)
	for _, t := range tokens {
		if !strings.EqualFold(t.Info.Symbol, symbol) {
			continue
		}
		if !found || t.firstPoolLiquidity() > best.firstPoolLiquidity() {
			best, found = t, true
		}
	}
	return best, found
}
