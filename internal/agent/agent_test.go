package agent

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/edgard/fudbot/internal/errs"
	"github.com/edgard/fudbot/internal/logger"
	"github.com/edgard/fudbot/internal/persona"
	"github.com/edgard/fudbot/internal/tracker"
)

// constSource drives every chance() one way: a source of 1 makes every
// roll succeed, all ones makes every roll fail.
type constSource uint64

func (s constSource) Uint64() uint64 { return uint64(s) }

var neverRand = rand.New(constSource(^uint64(0)))

type scriptedLLM struct {
	replies []string
	err     error
	calls   int
	system  string
	prompts []string
}

func (s *scriptedLLM) Complete(_ context.Context, system, prompt string) (string, error) {
	s.calls++
	s.system = system
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	if len(s.replies) == 0 {
		return "", nil
	}
	out := s.replies[0]
	if len(s.replies) > 1 {
		s.replies = s.replies[1:]
	}
	return out, nil
}

func newTestAgent(l *scriptedLLM, rng *rand.Rand) *Agent {
	p := &persona.Persona{Name: "bear", Prompt: "you are a bear"}
	return New(l, p, logger.Discard(), WithRand(rng))
}

func TestCleanOutput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"  plain  ", "plain"},
		{`"quoted"`, "quoted"},
		{"'single'", "single"},
		{"“curly”", "curly"},
		{`"unbalanced`, `"unbalanced`},
		{`"`, `"`},
		{"", ""},
	}
	for _, tt := range tests {
		if got := cleanOutput(tt.in); got != tt.want {
			t.Errorf("cleanOutput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestVaryStyle(t *testing.T) {
	t.Parallel()

	t.Run("never changes when no roll succeeds", func(t *testing.T) {
		t.Parallel()
		for _, in := range []string{"ser wen ngmi", "another rug", "plain text"} {
			if got := varyStyle(in, neverRand); got != in {
				t.Errorf("varyStyle(%q) = %q, want unchanged", in, got)
			}
		}
	})

	t.Run("replaces fillers when more than two appear", func(t *testing.T) {
		t.Parallel()
		got := varyStyle("ser wen ngmi", rand.New(constSource(1)))
		for _, p := range []string{"ser", "wen", "ngmi"} {
			if strings.Contains(got, p) {
				t.Errorf("varyStyle() = %q, still contains %q", got, p)
			}
		}
		if !strings.HasSuffix(got, "..") {
			t.Errorf("varyStyle() = %q, want punctuation jitter", got)
		}
	})

	t.Run("keeps fillers when two or fewer appear", func(t *testing.T) {
		t.Parallel()
		got := varyStyle("that is ngmi ser", rand.New(constSource(1)))
		if !strings.HasPrefix(got, "that is ngmi ser") {
			t.Errorf("varyStyle() = %q, want fillers kept", got)
		}
	})

	t.Run("prefixes stock openers", func(t *testing.T) {
		t.Parallel()
		got := varyStyle("another rug", rand.New(constSource(1)))
		prefix, rest, ok := strings.Cut(got, " another rug")
		if !ok || !slices.Contains(openerPrefixes, prefix) {
			t.Errorf("varyStyle() = %q, want known prefix before the text", got)
		}
		if rest != ".." {
			t.Errorf("varyStyle() suffix = %q, want %q", rest, "..")
		}
	})

	t.Run("no punctuation jitter when text already has some", func(t *testing.T) {
		t.Parallel()
		if got := varyStyle("rug?", rand.New(constSource(1))); got != "rug?" {
			t.Errorf("varyStyle() = %q, want unchanged", got)
		}
	})

	t.Run("replaces fillers after text that changes length when lowercased", func(t *testing.T) {
		t.Parallel()
		got := varyStyle("ȺȺȺȺ ser wen ngmi", rand.New(constSource(1)))
		if !utf8.ValidString(got) {
			t.Fatalf("varyStyle() = %q, want valid UTF-8", got)
		}
		if !strings.HasPrefix(got, "ȺȺȺȺ ") {
			t.Errorf("varyStyle() = %q, want leading text kept", got)
		}
		for _, p := range []string{"ser", "wen", "ngmi"} {
			if strings.Contains(got, p) {
				t.Errorf("varyStyle() = %q, still contains %q", got, p)
			}
		}
	})
}

func TestReplaceFirstFold(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		old  string
		want string
	}{
		{name: "ascii", in: "gm ser", old: "ser", want: "gm ngl"},
		{name: "case insensitive", in: "SER, wen SER", old: "ser", want: "ngl, wen SER"},
		{name: "no match", in: "gm", old: "ser", want: "gm"},
		{name: "shorter when lowercased", in: "ȺȺȺȺ ser", old: "ser", want: "ȺȺȺȺ ngl"},
		{name: "longer when lowercased", in: "İİİİİİİİİİ ser", old: "ser", want: "İİİİİİİİİİ ngl"},
		{name: "pattern metacharacters", in: "a.b ab", old: "a.b", want: "ngl ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := replaceFirstFold(tt.in, tt.old, "ngl")
			if got != tt.want {
				t.Errorf("replaceFirstFold(%q, %q) = %q, want %q", tt.in, tt.old, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("replaceFirstFold(%q, %q) = %q, want valid UTF-8", tt.in, tt.old, got)
			}
		})
	}
}

func TestUsageOveruse(t *testing.T) {
	t.Parallel()

	u := newUsage()
	for range 5 {
		u.record("liquidity vanished")
	}
	if u.overused("liquidity again") {
		t.Error("overused() = true after 5 uses, want false")
	}
	u.record("Liquidity!")
	if !u.overused("liquidity again") {
		t.Error("overused() = false after 6 uses, want true")
	}

	p := newUsage()
	for range 4 {
		p.record("wen moon")
	}
	if !p.overused("wen lambo") {
		t.Error("overused() = false for pattern seen 4 times, want true")
	}
	if p.overused("something else entirely") {
		t.Error("overused() = true for fresh text, want false")
	}
}

func TestShouldRespond(t *testing.T) {
	t.Parallel()

	tests := []struct {
		reply string
		want  Decision
	}{
		{"[RESPOND]", Respond},
		{"i think [respond] fits", Respond},
		{"[IGNORE]", Ignore},
		{"unclear", Ignore},
	}
	for _, tt := range tests {
		a := newTestAgent(&scriptedLLM{replies: []string{tt.reply}}, neverRand)
		got, err := a.ShouldRespond(context.Background(), "hey")
		if err != nil {
			t.Fatalf("ShouldRespond() error = %v", err)
		}
		if got != tt.want {
			t.Errorf("ShouldRespond() with %q = %v, want %v", tt.reply, got, tt.want)
		}
	}
}

func TestGenerateUsesPersonaAsSystem(t *testing.T) {
	t.Parallel()
	l := &scriptedLLM{replies: []string{`"gm"`}}
	a := newTestAgent(l, neverRand)

	got, err := a.GenerateReply(context.Background(), "what about $WIF")
	if err != nil {
		t.Fatalf("GenerateReply() error = %v", err)
	}
	if got != "gm" {
		t.Errorf("GenerateReply() = %q, want %q", got, "gm")
	}
	if l.system != "you are a bear" {
		t.Errorf("system = %q, want persona prompt", l.system)
	}
	if !strings.Contains(l.prompts[0], "what about $WIF") {
		t.Errorf("prompt = %q, want mention text", l.prompts[0])
	}
}

func TestGenerateGenericCritiqueUsesTheme(t *testing.T) {
	t.Parallel()
	l := &scriptedLLM{replies: []string{"same old story"}}
	a := newTestAgent(l, neverRand)

	theme := tracker.Theme{Intro: "tired", Reason: "no volume", Closing: "stay safe"}
	if _, err := a.GenerateGenericCritique(context.Background(), theme); err != nil {
		t.Fatalf("GenerateGenericCritique() error = %v", err)
	}
	for _, part := range []string{"tired", "no volume", "stay safe"} {
		if !strings.Contains(l.prompts[0], part) {
			t.Errorf("prompt missing %q", part)
		}
	}
}

func TestGenerateTokenCritiqueRegeneratesOverused(t *testing.T) {
	t.Parallel()
	l := &scriptedLLM{replies: []string{"$BONK is cooked"}}
	a := newTestAgent(l, neverRand)
	ctx := context.Background()

	for i := range 6 {
		if _, err := a.GenerateTokenCritique(ctx, "Token: $BONK"); err != nil {
			t.Fatalf("GenerateTokenCritique() #%d error = %v", i, err)
		}
	}
	if l.calls != 6 {
		t.Fatalf("calls = %d, want 6 before any overuse", l.calls)
	}

	got, err := a.GenerateTokenCritique(ctx, "Token: $BONK")
	if err != nil {
		t.Fatalf("GenerateTokenCritique() error = %v", err)
	}
	if got != "$BONK is cooked" {
		t.Errorf("GenerateTokenCritique() = %q, want last attempt accepted", got)
	}
	if l.calls != 6+maxCritiqueAttempts {
		t.Errorf("calls = %d, want %d", l.calls, 6+maxCritiqueAttempts)
	}
}

func TestGenerateKeepsErrorKind(t *testing.T) {
	t.Parallel()
	l := &scriptedLLM{err: errs.RateLimited("gemini", errors.New("quota"), 0)}
	a := newTestAgent(l, neverRand)

	_, err := a.GenerateTokenCritique(context.Background(), "x")
	if !errs.IsRateLimited(err) {
		t.Errorf("GenerateTokenCritique() error = %v, want rate limited", err)
	}
	if _, err := a.GenerateDismissal(context.Background()); !errs.IsRateLimited(err) {
		t.Errorf("GenerateDismissal() error = %v, want rate limited", err)
	}
}
