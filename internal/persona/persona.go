// Package persona loads the character definition that drives every
// generated message.
package persona

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Persona is a named character whose prompt is used as the system
// instruction for all generation.
type Persona struct {
	Name   string `json:"name"   yaml:"name"`
	Prompt string `json:"prompt" yaml:"prompt"`
}

// ErrNotFound is returned when no config file exists for the character.
var ErrNotFound = errors.New("persona not found")

var candidates = []string{"config.json", "config.yaml", "config.yml"}

// Load reads dir/<name>/config.{json,yaml,yml}, trying them in that order.
func Load(dir, name string) (*Persona, error) {
	if name == "" {
		return nil, errors.New("character name is empty")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil, fmt.Errorf("invalid character name %q", name)
	}

	base := filepath.Join(dir, name)
	for _, file := range candidates {
		path := filepath.Join(base, file)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read persona %s: %w", path, err)
		}
		return parse(path, data, name)
	}

	return nil, fmt.Errorf("%w: no config in %s", ErrNotFound, base)
}

func parse(path string, data []byte, name string) (*Persona, error) {
	var p Persona
	var err error
	if filepath.Ext(path) == ".json" {
		err = json.Unmarshal(data, &p)
	} else {
		err = yaml.Unmarshal(data, &p)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse persona %s: %w", path, err)
	}

	p.Prompt = strings.TrimSpace(p.Prompt)
	if p.Prompt == "" {
		return nil, fmt.Errorf("persona %s has an empty prompt", path)
	}
	if p.Name == "" {
		p.Name = name
	}
	return &p, nil
}
