package domain

import (
	"errors"
	"fmt"
)

// Rules is the per-room configuration fixed at room creation.
type Rules struct {
	OnesWild     bool `json:"onesWild"`
	CalzaGain    int  `json:"calzaGain"`
	CalzaPenalty int  `json:"calzaPenalty"`
	PaloFijo     bool `json:"paloFijo"` // reserved; no fixed-face variant is played
	MaxDice      int  `json:"maxDice"`
}

// DefaultRules returns the classic Cachito configuration.
func DefaultRules() Rules {
	return Rules{
		OnesWild:     true,
		CalzaGain:    1,
		CalzaPenalty: 1,
		PaloFijo:     false,
		MaxDice:      5,
	}
}

// Rule limits. MaxDiceLimit also bounds the per-die allocations of hands and bot estimates.
const (
	MaxDiceLimit    = 10
	MaxCalzaGain    = 1
	MaxCalzaPenalty = 2
)

// ErrInvalidRules is returned by Rules.Validate.
var ErrInvalidRules = errors.New("invalid rules")

// Validate checks that the rules describe a playable game.
func (r Rules) Validate() error {
	switch {
	case r.MaxDice < 1 || r.MaxDice > MaxDiceLimit:
		return errors.Join(ErrInvalidRules, fmt.Errorf("maxDice must be between 1 and %d", MaxDiceLimit))
	case r.CalzaGain < 0 || r.CalzaGain > MaxCalzaGain:
		return errors.Join(ErrInvalidRules, fmt.Errorf("calzaGain must be between 0 and %d", MaxCalzaGain))
	case r.CalzaPenalty < 1 || r.CalzaPenalty > MaxCalzaPenalty:
		return errors.Join(ErrInvalidRules, fmt.Errorf("calzaPenalty must be between 1 and %d", MaxCalzaPenalty))
	}
	return nil
}

// RulesOverride carries the subset of rules a room creator chose to change.
type RulesOverride struct {
	OnesWild     *bool `json:"onesWild,omitempty"`
	CalzaGain    *int  `json:"calzaGain,omitempty"`
	CalzaPenalty *int  `json:"calzaPenalty,omitempty"`
	PaloFijo     *bool `json:"paloFijo,omitempty"`
	MaxDice      *int  `json:"maxDice,omitempty"`
}

// Merge returns base with every set override field applied.
func (o RulesOverride) Merge(base Rules) Rules {
	if o.OnesWild != nil {
		base.OnesWild = *o.OnesWild
	}
	if o.CalzaGain != nil {
		base.CalzaGain = *o.CalzaGain
	}
	if o.CalzaPenalty != nil {
		base.CalzaPenalty = *o.CalzaPenalty
	}
	if o.PaloFijo != nil {
		base.PaloFijo = *o.PaloFijo
	}
	if o.MaxDice != nil {
		base.MaxDice = *o.MaxDice
	}
	return base
}

// ValidFace reports whether face is a pip value of a six-sided die.
func ValidFace(face int) bool {
	return face >= 1 && face <= 6
}

// ValidNextBid reports whether next may follow prev. A nil prev means no bid yet.
//
// Moving from the wild face to a regular face requires at least 2*prev+1 dice; moving
// onto the wild face requires at least ceil(prev/2). Within the same domain the bid must
// raise the quantity, or keep it and raise the face.
func ValidNextBid(prev *Bid, next Bid) bool {
	if next.Quantity < 1 || !ValidFace(next.Face) {
		return false
	}
	if prev == nil {
		return true
	}

	fromWild := prev.Face == WildFace
	toWild := next.Face == WildFace

	switch {
	case toWild && !fromWild:
		return next.Quantity >= (prev.Quantity+1)/2
	case fromWild && !toWild:
		return next.Quantity >= 2*prev.Quantity+1
	default:
		return next.Quantity > prev.Quantity ||
			(next.Quantity == prev.Quantity && next.Face > prev.Face)
	}
}

// MinimumBid returns the smallest legal bid on face that may follow prev.
func MinimumBid(prev *Bid, face int) Bid {
	if prev == nil {
		return Bid{Quantity: 1, Face: face}
	}
	fromWild := prev.Face == WildFace
	toWild := face == WildFace
	switch {
	case toWild && !fromWild:
		return Bid{Quantity: (prev.Quantity + 1) / 2, Face: face}
	case fromWild && !toWild:
		return Bid{Quantity: 2*prev.Quantity + 1, Face: face}
	case face > prev.Face:
		return Bid{Quantity: prev.Quantity, Face: face}
	default:
		return Bid{Quantity: prev.Quantity + 1, Face: face}
	}
}

// Matches reports whether a single die counts toward a bid on face.
func Matches(die, face int, onesWild bool) bool {
	if die == face {
		return true
	}
	return onesWild && face != WildFace && die == WildFace
}

// CountFace returns the true count of face across hands.
func CountFace(hands map[string][]int, face int, onesWild bool) int {
	total := 0
	for _, hand := range hands {
		for _, die := range hand {
			if Matches(die, face, onesWild) {
				total++
			}
		}
	}
	return total
}
