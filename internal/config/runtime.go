package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Runtime holds the settings read from the Nakama runtime environment
// (the runtime.env entries of the server config).
type Runtime struct {
	BotsEnabled         bool `env:"cachito_bots_enabled" envDefault:"false"`
	BotMinDelaySec      int  `env:"cachito_bot_min_delay_sec" envDefault:"1"`
	BotMaxDelaySec      int  `env:"cachito_bot_max_delay_sec" envDefault:"3"`
	BotAutoFillDelaySec int  `env:"cachito_bot_auto_fill_delay_sec" envDefault:"5"`

	MaxPlayers int `env:"cachito_max_players" envDefault:"6"`

	TicketSecret string        `env:"cachito_ticket_secret"`
	TicketIssuer string        `env:"cachito_ticket_issuer" envDefault:"cachito"`
	TicketTTL    time.Duration `env:"cachito_ticket_ttl" envDefault:"24h"`

	GameConfigPath    string `env:"cachito_game_config" envDefault:"data/rules_config.json"`
	BotIdentitiesPath string `env:"cachito_bot_identities" envDefault:"data/bot_identities.json"`
}

// ErrInvalidRuntime is returned when runtime settings are out of range.
var ErrInvalidRuntime = errors.New("invalid runtime config")

// ParseRuntime reads Runtime from vars. Unset keys take their defaults; the process
// environment is never consulted.
func ParseRuntime(vars map[string]string) (Runtime, error) {
	if vars == nil {
		vars = map[string]string{}
	}
	var rt Runtime
	if err := env.ParseWithOptions(&rt, env.Options{Environment: vars}); err != nil {
		return Runtime{}, fmt.Errorf("parse env: %w", err)
	}
	if err := rt.Validate(); err != nil {
		return Runtime{}, err
	}
	return rt, nil
}

// Validate checks ranges that the parser cannot express.
func (rt Runtime) Validate() error {
	switch {
	case rt.MaxPlayers < 2:
		return fmt.Errorf("%w: cachito_max_players must be at least 2", ErrInvalidRuntime)
	case rt.BotMinDelaySec < 0 || rt.BotMaxDelaySec < rt.BotMinDelaySec:
		return fmt.Errorf("%w: bot delays must satisfy 0 <= min <= max", ErrInvalidRuntime)
	case rt.BotAutoFillDelaySec < 0:
		return fmt.Errorf("%w: cachito_bot_auto_fill_delay_sec must not be negative", ErrInvalidRuntime)
	case rt.TicketTTL <= 0:
		return fmt.Errorf("%w: cachito_ticket_ttl must be positive", ErrInvalidRuntime)
	}
	return nil
}
