package domain

// Roller is the randomness source used to deal hands. *rand.Rand satisfies it.
type Roller interface {
	// Intn returns a uniform value in [0, n).
	Intn(n int) int
}

// DieSides is the number of faces on every die.
const DieSides = 6

// RollHand rolls count independent six-sided dice.
func RollHand(roller Roller, count int) []int {
	hand := make([]int, count)
	for i := range hand {
		hand[i] = roller.Intn(DieSides) + 1
	}
	return hand
}
