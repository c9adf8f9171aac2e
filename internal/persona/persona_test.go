package persona_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/edgard/fudbot/internal/persona"
)

func writePersona(t *testing.T, dir, name, file, content string) {
	t.Helper()
	path := filepath.Join(dir, name, file)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		file       string
		content    string
		wantName   string
		wantPrompt string
		wantErr    bool
	}{
		{
			name:       "json",
			file:       "config.json",
			content:    `{"name":"Skeptic","prompt":"  you doubt everything.  "}`,
			wantName:   "Skeptic",
			wantPrompt: "you doubt everything.",
		},
		{
			name:       "yaml",
			file:       "config.yaml",
			content:    "name: Bear\nprompt: |\n  markets only go down.\n",
			wantName:   "Bear",
			wantPrompt: "markets only go down.",
		},
		{
			name:       "yml without name",
			file:       "config.yml",
			content:    "prompt: rug radar on\n",
			wantName:   "character",
			wantPrompt: "rug radar on",
		},
		{
			name:    "empty prompt",
			file:    "config.json",
			content: `{"name":"Empty","prompt":"   "}`,
			wantErr: true,
		},
		{
			name:    "malformed",
			file:    "config.json",
			content: `{"name":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			writePersona(t, dir, "character", tt.file, tt.content)

			got, err := persona.Load(dir, "character")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.Name != tt.wantName || got.Prompt != tt.wantPrompt {
				t.Errorf("Load() = %+v, want name %q prompt %q", got, tt.wantName, tt.wantPrompt)
			}
		})
	}
}

func TestLoadPrefersJSON(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writePersona(t, dir, "c", "config.yaml", "prompt: from yaml\n")
	writePersona(t, dir, "c", "config.json", `{"prompt":"from json"}`)

	got, err := persona.Load(dir, "c")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Prompt != "from json" {
		t.Errorf("Prompt = %q, want %q", got.Prompt, "from json")
	}
}

func TestLoadMissing(t *testing.T) {
	t.Parallel()

	_, err := persona.Load(t.TempDir(), "ghost")
	if !errors.Is(err, persona.ErrNotFound) {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}

	for _, name := range []string{"", "..", "a/b"} {
		if _, err := persona.Load(t.TempDir(), name); err == nil {
			t.Errorf("Load(%q) error = nil, want error", name)
		}
	}
}
