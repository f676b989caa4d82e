package bot

// Tuning holds the probability thresholds a strategy plays by.
type Tuning struct {
	// DudoThreshold: challenge when the current bid holds with lower probability.
	DudoThreshold float64
	// CalzaThreshold: call exact when the bid is exactly right with at least this
	// probability. Zero disables exact calls.
	CalzaThreshold float64
	// RaiseConfidence: below this, a raise is only made when challenging looks worse.
	RaiseConfidence float64
	// OpeningMargin is subtracted from the expected count of the opening face.
	OpeningMargin int
}

// CautiousTuning challenges readily and opens low.
var CautiousTuning = Tuning{
	DudoThreshold:   0.45,
	CalzaThreshold:  0,
	RaiseConfidence: 0.55,
	OpeningMargin:   1,
}

// BoldTuning keeps bids alive longer, opens at the expected count and takes exact calls.
var BoldTuning = Tuning{
	DudoThreshold:   0.3,
	CalzaThreshold:  0.4,
	RaiseConfidence: 0.35,
	OpeningMargin:   0,
}
