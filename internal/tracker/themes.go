package tracker

import (
	"fmt"
	"math/rand/v2"
)

// Theme is the raw material for a critique: an opening, a complaint and a
// sign-off.
type Theme struct {
	Intro   string
	Reason  string
	Closing string
}

// Intros take the subject as their only verb.
var intros = []string{
	"Heads up on %s.",
	"%s might be the least convincing launch this week.",
	"Spent five minutes on %s and I want them back.",
	"Reminder that %s exists and people are buying it.",
	"%s is trending, which says more about us than about it.",
}

var reasons = []string{
	"The deployer wallet still holds most of the supply.",
	"The roadmap is one tweet and a mood board.",
	"Liquidity looks like it could leave in a single transaction.",
	"The website was clearly finished five minutes before launch.",
	"Half the holders appear to be the same wallet in different hats.",
	"Volume spikes line up suspiciously well with the team's posts.",
	"The chart has the shape of every other chart that went to zero.",
	"Nobody in the chat can explain what it does.",
	"The contract was copied from a project that already rugged.",
	"Marketing budget is bigger than the engineering budget, by a lot.",
	"Good for a quick ten percent, bad for everything after that.",
	"Every answer from the team is some version of 'soon'.",
}

var closings = []string{
	"DYOR, I'm out.",
	"Not financial advice, but I'd walk.",
	"Consider yourself warned.",
	"Good luck to whoever is holding at the end.",
	"See you at the post-mortem.",
}

// RandomTheme picks a theme that names no token.
func RandomTheme(rng *rand.Rand) Theme {
	return Theme{
		Intro:   fmt.Sprintf(intros[rng.IntN(len(intros))], "this one"),
		Reason:  reasons[rng.IntN(len(reasons))],
		Closing: closings[rng.IntN(len(closings))],
	}
}

// TemplateCritique renders a critique of t without any model call.
func TemplateCritique(t Token, rng *rand.Rand) string {
	symbol := "$" + t.Info.Symbol
	intro := fmt.Sprintf(intros[rng.IntN(len(intros))], symbol)
	reason := reasons[rng.IntN(len(reasons))]
	closing := closings[rng.IntN(len(closings))]

	if len(t.Pools) == 0 {
		return fmt.Sprintf("%s\n\n%s\n\n%s", intro, reason, closing)
	}
	c := t.Context()
	return fmt.Sprintf("%s\n\n%s\n\nPrice: $%.8f\nMC: %s\n\n%s",
		intro, reason, c.PriceUSD, formatMarketCap(c.MarketCapUSD), closing)
}
