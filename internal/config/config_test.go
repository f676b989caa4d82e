package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cachito/internal/domain"
)

const testConfig = `{
	"default_preset": "classic",
	"presets": [
		{"id": "classic", "rules": {}},
		{"id": "no_wilds", "rules": {"onesWild": false}},
		{"id": "quick", "rules": {"maxDice": 3, "calzaPenalty": 2}}
	]
}`

func TestGameConfigRules(t *testing.T) {
	c, err := ParseGameConfig([]byte(testConfig))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}

	quick := domain.DefaultRules()
	quick.MaxDice = 3
	quick.CalzaPenalty = 2
	noWilds := domain.DefaultRules()
	noWilds.OnesWild = false

	tests := []struct {
		name   string
		preset string
		want   domain.Rules
	}{
		{name: "default preset", preset: "", want: domain.DefaultRules()},
		{name: "named preset", preset: "quick", want: quick},
		{name: "boolean override", preset: "no_wilds", want: noWilds},
		{name: "unknown preset", preset: "missing", want: domain.DefaultRules()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Rules(tt.preset); got != tt.want {
				t.Fatalf("Rules(%q) = %+v, want %+v", tt.preset, got, tt.want)
			}
		})
	}

	var empty *GameConfig
	if got := empty.Rules("quick"); got != domain.DefaultRules() {
		t.Fatalf("nil config rules = %+v", got)
	}
}

func TestParseGameConfigRejectsUnplayablePreset(t *testing.T) {
	_, err := ParseGameConfig([]byte(`{"presets": [{"id": "broken", "rules": {"maxDice": 0}}]}`))
	if !errors.Is(err, domain.ErrInvalidRules) {
		t.Fatalf("parse error = %v, want ErrInvalidRules", err)
	}
	if _, err := ParseGameConfig([]byte(`not json`)); err == nil {
		t.Fatal("expected error for malformed config")
	}
}

func TestLoadGameConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules_config.json")
	if err := os.WriteFile(path, []byte(testConfig), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if err := LoadGameConfig(path); err != nil {
		t.Fatalf("load config: %v", err)
	}
	if GetGameConfig() == nil || GetGameConfig().DefaultPreset != "classic" {
		t.Fatalf("global config not set: %+v", GetGameConfig())
	}
	if got := GetRules("quick"); got.MaxDice != 3 {
		t.Fatalf("GetRules(quick) = %+v", got)
	}
}

func TestParseRuntimeDefaults(t *testing.T) {
	rt, err := ParseRuntime(map[string]string{})
	if err != nil {
		t.Fatalf("parse runtime: %v", err)
	}
	if rt.BotsEnabled || rt.MaxPlayers != 6 || rt.BotAutoFillDelaySec != 5 || rt.TicketIssuer != "cachito" {
		t.Fatalf("unexpected defaults %+v", rt)
	}
	if rt.TicketTTL.Hours() != 24 || rt.GameConfigPath != "data/rules_config.json" {
		t.Fatalf("unexpected defaults %+v", rt)
	}
}

func TestParseRuntime(t *testing.T) {
	tests := []struct {
		name    string
		vars    map[string]string
		check   func(t *testing.T, rt Runtime)
		wantErr bool
	}{
		{
			name: "overrides",
			vars: map[string]string{
				"cachito_bots_enabled":      "true",
				"cachito_max_players":       "4",
				"cachito_ticket_secret":     "s3cret",
				"cachito_ticket_ttl":        "90m",
				"cachito_bot_max_delay_sec": "5",
			},
			check: func(t *testing.T, rt Runtime) {
				if !rt.BotsEnabled || rt.MaxPlayers != 4 || rt.TicketSecret != "s3cret" || rt.TicketTTL.Minutes() != 90 || rt.BotMaxDelaySec != 5 {
					t.Fatalf("overrides not applied: %+v", rt)
				}
			},
		},
		{name: "bad int", vars: map[string]string{"cachito_max_players": "six"}, wantErr: true},
		{name: "bad bool", vars: map[string]string{"cachito_bots_enabled": "maybe"}, wantErr: true},
		{name: "too few players", vars: map[string]string{"cachito_max_players": "1"}, wantErr: true},
		{name: "inverted delays", vars: map[string]string{"cachito_bot_min_delay_sec": "4", "cachito_bot_max_delay_sec": "2"}, wantErr: true},
		{name: "zero ttl", vars: map[string]string{"cachito_ticket_ttl": "0s"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := ParseRuntime(tt.vars)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", rt)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse runtime: %v", err)
			}
			tt.check(t, rt)
		})
	}
}
