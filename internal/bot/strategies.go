package bot

import (
	"errors"

	"cachito/internal/domain"
)

// ErrNoHand is returned when a bot is asked to act without dice.
var ErrNoHand = errors.New("bot holds no dice this round")

// CautiousBot opens low, never calls exact and challenges early.
type CautiousBot struct {
	Tuning Tuning
}

func (b *CautiousBot) CalculateMove(view View) (Move, error) {
	if len(view.Hand) == 0 {
		return Move{}, ErrNoHand
	}
	return decide(view, b.Tuning), nil
}

// BoldBot keeps bidding on thinner odds and takes exact calls.
type BoldBot struct {
	Tuning Tuning
}

func (b *BoldBot) CalculateMove(view View) (Move, error) {
	if len(view.Hand) == 0 {
		return Move{}, ErrNoHand
	}
	return decide(view, b.Tuning), nil
}

func decide(view View, t Tuning) Move {
	est := NewEstimator(view)
	prev := view.State.CurrentBid
	if prev == nil {
		return Move{Kind: MoveBid, Bid: opening(est, t)}
	}

	if t.CalzaThreshold > 0 && est.Exactly(*prev) >= t.CalzaThreshold {
		return Move{Kind: MoveCalza}
	}

	holds := est.AtLeast(*prev)
	if holds < t.DudoThreshold {
		return Move{Kind: MoveDudo}
	}

	raise, confidence := bestRaise(est, prev)
	if confidence < t.RaiseConfidence && confidence < 1-holds {
		return Move{Kind: MoveDudo}
	}
	return Move{Kind: MoveBid, Bid: raise}
}

// opening picks the regular face with the highest expected count; ties go to the higher face.
func opening(est *Estimator, t Tuning) domain.Bid {
	best := domain.Bid{Quantity: 1, Face: 2}
	bestExpected := -1.0
	for face := 2; face <= domain.DieSides; face++ {
		if e := est.Expected(face); e >= bestExpected {
			best.Face = face
			bestExpected = e
		}
	}
	best.Quantity = max(1, int(bestExpected)-t.OpeningMargin)
	return best
}

// bestRaise returns the legal minimum raise most likely to hold.
func bestRaise(est *Estimator, prev *domain.Bid) (domain.Bid, float64) {
	var best domain.Bid
	bestP := -1.0
	for face := 1; face <= domain.DieSides; face++ {
		cand := domain.MinimumBid(prev, face)
		p := est.AtLeast(cand)
		if p > bestP || (p == bestP && cand.Quantity < best.Quantity) {
			best, bestP = cand, p
		}
	}
	return best, bestP
}
