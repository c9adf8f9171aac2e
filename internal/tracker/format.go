package tracker

import (
	"fmt"
	"strings"
)

// FormatSummary renders the token summary handed to the generator.
func FormatSummary(t Token) string {
	c := t.Context()
	return fmt.Sprintf("Token: $%s\nMarket cap: %s\nPrice: %s\nLiquidity: %s\n24h Change: %s%%",
		c.Symbol,
		formatMarketCap(c.MarketCapUSD),
		formatPrice(c.PriceUSD),
		formatLiquidity(c.LiquidityUSD),
		formatChange(c.Change24h))
}

// FormatTrending renders a numbered list of tokens for chat output.
func FormatTrending(tokens []Token) string {
	var sb strings.Builder
	sb.WriteString("Trending on Solana, proceed with caution:\n\n")

	n := 0
	for _, t := range tokens {
		if len(t.Pools) == 0 {
			continue
		}
		n++
		c := t.Context()
		fmt.Fprintf(&sb, "#%d $%s\nMCap: %s\nPrice: %s\nLiq: %s\n\n",
			n, c.Symbol, formatMarketCap(c.MarketCapUSD), formatListPrice(c.PriceUSD), formatListLiquidity(c.LiquidityUSD))
	}
	if n == 0 {
		sb.WriteString("Nothing trending right now.\n\n")
	}

	sb.WriteString("Data from SolanaTracker")
	return sb.String()
}

func formatMarketCap(v float64) string {
	switch {
	case v <= 0:
		return "N/A"
	case v >= 1e9:
		return fmt.Sprintf("$%.1fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("$%.1fM", v/1e6)
	default:
		return fmt.Sprintf("$%.1fK", v/1e3)
	}
}

func formatLiquidity(v float64) string {
	switch {
	case v >= 1e6:
		return fmt.Sprintf("$%.1fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("$%.1fK", v/1e3)
	default:
		return fmt.Sprintf("$%.2f", v)
	}
}

func formatPrice(v float64) string {
	if v >= 1 {
		return fmt.Sprintf("$%.2f", v)
	}
	return fmt.Sprintf("$%.8f", v)
}

func formatChange(c *float64) string {
	if c == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f", *c)
}

// formatListPrice is the compact price used in trending lists.
func formatListPrice(v float64) string {
	switch {
	case v <= 0:
		return "N/A"
	case v >= 1:
		return fmt.Sprintf("$%.2f", v)
	case v >= 0.01:
		return fmt.Sprintf("$%.3f", v)
	default:
		return fmt.Sprintf("$%.8f", v)
	}
}

func formatListLiquidity(v float64) string {
	if v >= 1e6 {
		return fmt.Sprintf("$%.1fM", v/1e6)
	}
	return fmt.Sprintf("$%.0fK", v/1e3)
}
