package bot

import (
	"fmt"
)

// BotLevel selects a strategy.
type BotLevel int

const (
	BotLevelCautious BotLevel = iota + 1
	BotLevelBold
)

// ParseLevel maps an identity difficulty to a level. Unknown values are cautious.
func ParseLevel(difficulty string) BotLevel {
	switch difficulty {
	case "bold", "hard":
		return BotLevelBold
	default:
		return BotLevelCautious
	}
}

// NewBrain creates a new AI brain based on the specified level.
func NewBrain(level BotLevel) (Brain, error) {
	switch level {
	case BotLevelCautious:
		return &CautiousBot{Tuning: CautiousTuning}, nil
	case BotLevelBold:
		return &BoldBot{Tuning: BoldTuning}, nil
	default:
		return nil, fmt.Errorf("unknown bot level: %d", level)
	}
}

// NewAgent creates an agent for identity.
func NewAgent(identity BotIdentity) (*Agent, error) {
	level := ParseLevel(identity.Difficulty)
	brain, err := NewBrain(level)
	if err != nil {
		return nil, err
	}
	name := identity.DisplayName
	if name == "" {
		name = identity.Username
	}
	return &Agent{
		ID:       identity.UserID,
		Name:     name,
		Level:    level,
		Strategy: brain,
	}, nil
}
