package bot

import (
	"cachito/internal/domain"
	"cachito/internal/visibility"
)

// MoveKind is the action a bot chose.
type MoveKind string

const (
	MoveBid   MoveKind = "bid"
	MoveDudo  MoveKind = "dudo"
	MoveCalza MoveKind = "calza"
)

// Move represents the decision made by the AI.
type Move struct {
	Kind MoveKind
	Bid  domain.Bid // set when Kind is MoveBid
}

// View is everything a bot is allowed to know: the public projection and its own hand.
type View struct {
	PlayerID   string
	State      visibility.PublicState
	Hand       []int
	DiceInPlay int // dice dealt this round, own hand included
}

// Brain is the interface that all bot strategies must implement.
type Brain interface {
	CalculateMove(view View) (Move, error)
}
