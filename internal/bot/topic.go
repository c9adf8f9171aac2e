package bot

import (
	"strings"
	"unicode"
)

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// topicTriggers introduce an implied ticker or address, in priority order.
var topicTriggers = []string{"thoughts on", "think of", "about", "contract", "address"}

// isAddress reports whether s looks like a Solana mint address.
func isAddress(s string) bool {
	if len(s) < 32 || len(s) > 44 {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune(base58Alphabet, r) {
			return false
		}
	}
	return true
}

// extractTopic finds the token a mention asks about. A $TICKER or a bare
// address anywhere in the text wins; otherwise the word following one of
// the trigger phrases is used. ok is false when the mention names nothing.
func extractTopic(text string) (topic string, address bool, ok bool) {
	words := strings.Fields(text)

	for _, w := range words {
		if isAddress(w) {
			return w, true, true
		}
		if ticker, found := strings.CutPrefix(w, "$"); found {
			ticker = trimWord(ticker)
			if ticker != "" && strings.IndexFunc(ticker, isASCIIAlnum) >= 0 {
				return ticker, false, true
			}
		}
	}

	lower := strings.ToLower(text)
	for _, trigger := range topicTriggers {
		idx := strings.Index(lower, trigger)
		if idx < 0 {
			continue
		}
		// Lowercasing can change byte lengths outside ASCII; fall back to
		// the lowered text in that case so the index stays valid.
		src := text
		if len(lower) != len(text) {
			src = lower
		}
		rest := strings.Fields(src[idx+len(trigger):])
		if len(rest) == 0 {
			continue
		}
		word := trimWord(rest[0])
		if word == "" {
			continue
		}
		return word, isAddress(word), true
	}

	return "", false, false
}

// trimWord strips everything but ASCII letters, digits and underscores
// from both ends of w.
func trimWord(w string) string {
	return strings.TrimFunc(w, func(r rune) bool {
		return !isASCIIAlnum(r) && r != '_'
	})
}

func isASCIIAlnum(r rune) bool {
	return r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))
}
