package domain

import "fmt"

// OutcomeKind identifies the action recorded in State.LastAction.
type OutcomeKind string

const (
	OutcomeBidPlaced         OutcomeKind = "bid_placed"
	OutcomeChallengeResolved OutcomeKind = "challenge_resolved"
	OutcomeExactCallResolved OutcomeKind = "exact_call_resolved"
)

// Outcome is the structured summary of the last accepted bid or resolution.
type Outcome struct {
	Kind     OutcomeKind `json:"kind"`
	Round    int         `json:"round"`
	PlayerID string      `json:"playerId"` // bidder for bids, caller for resolutions
	Bid      Bid         `json:"bid"`      // the placed bid, or the bid that was called

	// Resolution fields.
	BidderID   string `json:"bidderId,omitempty"`
	TrueCount  int    `json:"trueCount"`
	BidderLost bool   `json:"bidderLost"` // challenge only
	Exact      bool   `json:"exact"`      // exact call only
	LoserID    string `json:"loserId,omitempty"`
	DiceDelta  int    `json:"diceDelta,omitempty"` // dice change applied to LoserID, or to the caller on an exact call
	StarterID  string `json:"starterId,omitempty"` // player passed as next-round starter
}

// Resolved reports whether the outcome closed a round.
func (o *Outcome) Resolved() bool {
	return o != nil && (o.Kind == OutcomeChallengeResolved || o.Kind == OutcomeExactCallResolved)
}

// Summary renders the outcome for logs.
func (o *Outcome) Summary() string {
	if o == nil {
		return ""
	}
	switch o.Kind {
	case OutcomeBidPlaced:
		return fmt.Sprintf("bid:%dx%d", o.Bid.Quantity, o.Bid.Face)
	case OutcomeChallengeResolved:
		if o.BidderLost {
			return fmt.Sprintf("dudo:bidder_loses:%d", o.TrueCount)
		}
		return fmt.Sprintf("dudo:caller_loses:%d", o.TrueCount)
	case OutcomeExactCallResolved:
		if o.Exact {
			return fmt.Sprintf("calza:exact:%d", o.TrueCount)
		}
		return fmt.Sprintf("calza:wrong:%d", o.TrueCount)
	default:
		return string(o.Kind)
	}
}
