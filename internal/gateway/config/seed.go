package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Seed lists providers inserted at startup.
type Seed struct {
	Providers []SeedProvider `yaml:"providers"`
}

type SeedProvider struct {
	User     string `yaml:"user"`
	Provider string `yaml:"provider"`
	// APIKey may reference environment variables, e.g. ${OPENAI_API_KEY}.
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
	Active bool   `yaml:"active"`
}

func LoadSeed(path string) (Seed, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Seed{}, fmt.Errorf("resolve seed path: %w", err)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return Seed{}, fmt.Errorf("read seed file %q: %w", absPath, err)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return Seed{}, fmt.Errorf("parse seed file %q: %w", absPath, err)
	}
	for i := range seed.Providers {
		p := &seed.Providers[i]
		p.User = firstNonEmpty(strings.TrimSpace(p.User), "local")
		p.APIKey = strings.TrimSpace(os.ExpandEnv(p.APIKey))
		if strings.TrimSpace(p.Provider) == "" {
			return Seed{}, fmt.Errorf("seed provider %d: provider must be set", i)
		}
		if p.APIKey == "" {
			return Seed{}, fmt.Errorf("seed provider %d (%s): api_key resolved to empty", i, p.Provider)
		}
	}
	return seed, nil
}
