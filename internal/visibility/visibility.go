// Package visibility decides what each observer of a room may see.
// Nothing here mutates engine state and nothing returned aliases it.
package visibility

import (
	"errors"

	"cachito/internal/domain"
)

// ErrNotRevealed is returned when all hands are requested outside the reveal window.
var ErrNotRevealed = errors.New("hands are not revealed")

// PublicState is the broadcast-safe view of a room. It has no field for secret data.
type PublicState struct {
	RoomID      string          `json:"roomId"`
	Rules       domain.Rules    `json:"rules"`
	Phase       domain.Phase    `json:"phase"`
	Players     []domain.Player `json:"players"`
	CurrentBid  *domain.Bid     `json:"currentBid"`
	CurrentTurn *string         `json:"currentTurn"`
	Round       int             `json:"round"`
	LastAction  *domain.Outcome `json:"lastAction"`
	Summary     string          `json:"summary,omitempty"`
	WinnerID    *string         `json:"winnerId"`
}

// PublicProjection strips every secret from s.
func PublicProjection(s *domain.State) PublicState {
	ps := PublicState{
		RoomID:  s.RoomID,
		Rules:   s.Rules,
		Phase:   s.Phase,
		Players: append([]domain.Player{}, s.Players...),
		Round:   s.Round,
		Summary: s.LastAction.Summary(),
	}
	if s.CurrentBid != nil {
		bid := *s.CurrentBid
		ps.CurrentBid = &bid
	}
	if s.CurrentTurn != "" {
		turn := s.CurrentTurn
		ps.CurrentTurn = &turn
	}
	if s.LastAction != nil {
		out := *s.LastAction
		ps.LastAction = &out
	}
	if s.WinnerID != "" {
		winner := s.WinnerID
		ps.WinnerID = &winner
	}
	return ps
}

// PrivateHand returns the current hand of playerID, or an empty hand when the player
// holds none this round.
func PrivateHand(s *domain.State, playerID string) []int {
	return append([]int{}, s.Secret.Hands[playerID]...)
}

// AllHandsRevealed returns the hands of the round that was just resolved. It fails once
// the next round's first bid has been placed, or before any round was resolved.
func AllHandsRevealed(s *domain.State) (map[string][]int, error) {
	if !s.LastAction.Resolved() || s.Secret.Revealed == nil {
		return nil, ErrNotRevealed
	}
	hands := make(map[string][]int, len(s.Secret.Revealed))
	for id, hand := range s.Secret.Revealed {
		hands[id] = append([]int{}, hand...)
	}
	return hands, nil
}
