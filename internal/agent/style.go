package agent

import (
	"math/rand/v2"
	"regexp"
	"strings"
	"unicode"
)

var (
	fillerPatterns = []string{
		"ser", "ngmi", "wen", "just", "literally", "probably",
		"definitely", "obviously", "clearly", "absolutely",
	}
	fillerAlternatives = []string{
		"looking kinda", "straight up", "ngl", "fr fr",
		"lowkey", "highkey", "certified", "actual",
	}
	stockOpeners    = []string{"another", "just", "ser", "breaking:", "imagine"}
	openerPrefixes  = []string{"bruh", "certified", "actual", "friendly reminder:", "psa:", "reminder:", "daily dose of"}
	punctuationTail = []string{"..", "...", "!!", "!?", "???"}

	// usagePatterns are the phrases counted by the usage analysis.
	usagePatterns = []string{"ser", "ngmi", "wen", "just", "literally"}
)

const (
	fillerThreshold   = 2
	fillerReplaceProb = 0.7
	openerPrefixProb  = 0.6
	punctuationProb   = 0.3

	wordOveruseLimit    = 5
	patternOveruseLimit = 3
)

// cleanOutput trims whitespace and a single layer of wrapping quotes.
func cleanOutput(s string) string {
	s = strings.TrimSpace(s)
	for _, q := range [][2]string{{`"`, `"`}, {"'", "'"}, {"“", "”"}} {
		if len(s) >= len(q[0])+len(q[1]) && strings.HasPrefix(s, q[0]) && strings.HasSuffix(s, q[1]) {
			s = strings.TrimSpace(s[len(q[0]) : len(s)-len(q[1])])
			break
		}
	}
	return s
}

// varyStyle rewrites the most formulaic parts of a draft so consecutive
// outputs read less alike.
func varyStyle(text string, rng *rand.Rand) string {
	out := text

	present := 0
	for _, p := range fillerPatterns {
		if strings.Contains(strings.ToLower(out), p) {
			present++
		}
	}
	if present > fillerThreshold {
		for _, p := range fillerPatterns {
			if strings.Contains(strings.ToLower(out), p) && chance(rng, fillerReplaceProb) {
				out = replaceFirstFold(out, p, pick(rng, fillerAlternatives))
			}
		}
	}

	lower := strings.ToLower(out)
	for _, opener := range stockOpeners {
		if strings.HasPrefix(lower, opener) {
			if chance(rng, openerPrefixProb) {
				out = pick(rng, openerPrefixes) + " " + out
			}
			break
		}
	}

	if !strings.ContainsAny(out, "?!") && chance(rng, punctuationProb) {
		out += pick(rng, punctuationTail)
	}
	return out
}

// replaceFirstFold replaces the first case-insensitive occurrence of old.
// The match is located in s itself, since lowercasing can change the byte
// length of the text before it.
func replaceFirstFold(s, old, repl string) string {
	loc := regexp.MustCompile("(?i)" + regexp.QuoteMeta(old)).FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + repl + s[loc[1]:]
}

func chance(rng *rand.Rand, p float64) bool {
	return rng.Float64() < p
}

func pick(rng *rand.Rand, items []string) string {
	return items[rng.IntN(len(items))]
}

// usage tracks how often words and stock patterns appeared in accepted
// token critiques.
type usage struct {
	words    map[string]int
	patterns map[string]int
}

func newUsage() *usage {
	return &usage{words: make(map[string]int), patterns: make(map[string]int)}
}

func (u *usage) record(text string) {
	for _, w := range strings.Fields(text) {
		if w = normalizeWord(w); w != "" {
			u.words[w]++
		}
	}
	lower := strings.ToLower(text)
	for _, p := range usagePatterns {
		if strings.Contains(lower, p) {
			u.patterns[p]++
		}
	}
}

func (u *usage) overused(text string) bool {
	for _, w := range strings.Fields(text) {
		if u.words[normalizeWord(w)] > wordOveruseLimit {
			return true
		}
	}
	lower := strings.ToLower(text)
	for p, n := range u.patterns {
		if n > patternOveruseLimit && strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func normalizeWord(w string) string {
	return strings.ToLower(strings.TrimFunc(w, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '$'
	}))
}
