package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"cachito/internal/domain"
)

// RulesPreset is a named rule set a room can be created with.
type RulesPreset struct {
	ID    string               `json:"id"`
	Rules domain.RulesOverride `json:"rules"`
}

type GameConfig struct {
	DefaultPreset string        `json:"default_preset"`
	Presets       []RulesPreset `json:"presets"`
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadGameConfig loads the game configuration from the given path.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}

		c, err := ParseGameConfig(data)
		if err != nil {
			loadErr = err
			return
		}
		cfg = c
	})
	return loadErr
}

// ParseGameConfig decodes a game configuration and checks every preset yields playable rules.
func ParseGameConfig(data []byte) (*GameConfig, error) {
	var c GameConfig
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game config: %w", err)
	}
	for _, preset := range c.Presets {
		if err := preset.Rules.Merge(domain.DefaultRules()).Validate(); err != nil {
			return nil, fmt.Errorf("preset %q: %w", preset.ID, err)
		}
	}
	return &c, nil
}

// GetGameConfig returns the global game configuration.
func GetGameConfig() *GameConfig {
	return cfg
}

// GetRules returns the rules of a preset from the global configuration.
func GetRules(presetID string) domain.Rules {
	return cfg.Rules(presetID)
}

// Rules returns the rules for presetID, falling back to the default preset and then to
// the built-in defaults.
func (c *GameConfig) Rules(presetID string) domain.Rules {
	if c == nil {
		return domain.DefaultRules()
	}

	target := presetID
	if target == "" {
		target = c.DefaultPreset
	}

	for _, preset := range c.Presets {
		if preset.ID == target {
			return preset.Rules.Merge(domain.DefaultRules())
		}
	}

	// Fallback to default preset if specific ID not found
	for _, preset := range c.Presets {
		if preset.ID == c.DefaultPreset {
			return preset.Rules.Merge(domain.DefaultRules())
		}
	}

	return domain.DefaultRules()
}
