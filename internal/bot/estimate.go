package bot

import (
	"cachito/internal/domain"
)

// Estimator reasons about the true count of a face from one hand plus the number of
// dice the bot cannot see.
type Estimator struct {
	hand     []int
	unknown  int
	onesWild bool
}

// NewEstimator builds an estimator from a bot view.
func NewEstimator(view View) *Estimator {
	return &Estimator{
		hand:     view.Hand,
		unknown:  max(view.DiceInPlay-len(view.Hand), 0),
		onesWild: view.State.Rules.OnesWild,
	}
}

// Unknown returns the number of dice hidden from the bot.
func (e *Estimator) Unknown() int {
	return e.unknown
}

// Known counts the bot's own dice that match face.
func (e *Estimator) Known(face int) int {
	return domain.CountFace(map[string][]int{"": e.hand}, face, e.onesWild)
}

// MatchProbability is the chance a single hidden die counts toward face.
func (e *Estimator) MatchProbability(face int) float64 {
	if e.onesWild && face != domain.WildFace {
		return 2.0 / domain.DieSides
	}
	return 1.0 / domain.DieSides
}

// Expected returns the expected true count of face.
func (e *Estimator) Expected(face int) float64 {
	return float64(e.Known(face)) + float64(e.unknown)*e.MatchProbability(face)
}

// AtLeast returns the probability that bid holds.
func (e *Estimator) AtLeast(bid domain.Bid) float64 {
	need := bid.Quantity - e.Known(bid.Face)
	if need <= 0 {
		return 1
	}
	if need > e.unknown {
		return 0
	}
	pmf := binomial(e.unknown, e.MatchProbability(bid.Face))
	total := 0.0
	for _, p := range pmf[need:] {
		total += p
	}
	return min(total, 1)
}

// Exactly returns the probability that the true count equals bid.Quantity.
func (e *Estimator) Exactly(bid domain.Bid) float64 {
	need := bid.Quantity - e.Known(bid.Face)
	if need < 0 || need > e.unknown {
		return 0
	}
	return binomial(e.unknown, e.MatchProbability(bid.Face))[need]
}

// binomial returns P(X = k) for k in 0..n. p must be below 1.
func binomial(n int, p float64) []float64 {
	pmf := make([]float64, n+1)
	q := 1 - p
	pmf[0] = 1
	for i := 0; i < n; i++ {
		pmf[0] *= q
	}
	for k := 0; k < n; k++ {
		pmf[k+1] = pmf[k] * float64(n-k) / float64(k+1) * p / q
	}
	return pmf
}
