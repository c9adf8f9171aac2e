package sanitize

import "testing"

func TestPlainText(t *testing.T) {
	t.Parallel()
	p := NewPlainTextPolicy()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "blank", in: "  \n ", want: ""},
		{name: "plain", in: "  chart looks heavy ser  ", want: "chart looks heavy ser"},
		{name: "emphasis", in: "**$BONK** is _cooked_", want: "$BONK is cooked"},
		{name: "entities", in: "a & b <3", want: "a & b <3"},
		{name: "heading", in: "# Verdict\n\nwalk away", want: "Verdict\n\nwalk away"},
		{name: "paragraphs", in: "first\n\n\n\nsecond", want: "first\n\nsecond"},
		{name: "quotes", in: `"they said it's fine"`, want: `"they said it's fine"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := p.PlainText(tt.in); got != tt.want {
				t.Errorf("PlainText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
