package domain

import "errors"

var (
	// ErrIllegalPhase is returned when an operation is attempted outside the phase that permits it.
	ErrIllegalPhase = errors.New("operation not allowed in current phase")
	// ErrNotYourTurn is returned when the acting player is not the current turn.
	ErrNotYourTurn = errors.New("not your turn")
	// ErrInvalidBid is returned when a bid does not beat the current bid.
	ErrInvalidBid = errors.New("invalid bid")
	// ErrNoActiveBid is returned when dudo or calza is called before any bid.
	ErrNoActiveBid = errors.New("no active bid")
	// ErrUnknownPlayer is returned when the actor is not a player taking part in the round.
	ErrUnknownPlayer = errors.New("player not in round")
)

// Reason returns the stable wire name for an engine error, or "Internal" for anything else.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrIllegalPhase):
		return "IllegalPhase"
	case errors.Is(err, ErrNotYourTurn):
		return "NotYourTurn"
	case errors.Is(err, ErrInvalidBid):
		return "InvalidBid"
	case errors.Is(err, ErrNoActiveBid):
		return "NoActiveBid"
	case errors.Is(err, ErrUnknownPlayer):
		return "UnknownPlayer"
	case errors.Is(err, ErrInvalidRules):
		return "InvalidRules"
	default:
		return "Internal"
	}
}
