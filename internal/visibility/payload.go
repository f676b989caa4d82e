package visibility

import "cachito/internal/domain"

// Payload type discriminators.
const (
	TypeState   = "state"
	TypeDice    = "dice"
	TypeAllDice = "allDice"
	TypeError   = "error"
)

// StatePayload carries the public projection to every member of a room.
type StatePayload struct {
	Type  string      `json:"type"`
	State PublicState `json:"state"`
}

// DicePayload carries one player's hand to that player only.
type DicePayload struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
	Round    int    `json:"round"`
	Dice     []int  `json:"dice"`
}

// AllDicePayload carries the revealed hands after a resolution.
type AllDicePayload struct {
	Type         string           `json:"type"`
	Round        int              `json:"round"`
	DiceByPlayer map[string][]int `json:"diceByPlayer"`
}

// ErrorPayload tells a single player why their command was rejected.
type ErrorPayload struct {
	Type    string `json:"type"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// StateMessage builds the public state payload broadcast to the whole room.
func StateMessage(s *domain.State) StatePayload {
	return StatePayload{Type: TypeState, State: PublicProjection(s)}
}

// DiceMessage builds the private hand payload for playerID.
func DiceMessage(s *domain.State, playerID string) DicePayload {
	return DicePayload{Type: TypeDice, PlayerID: playerID, Round: s.Round, Dice: PrivateHand(s, playerID)}
}

// AllDiceMessage builds the reveal payload for the round recorded in LastAction.
func AllDiceMessage(s *domain.State) (AllDicePayload, error) {
	hands, err := AllHandsRevealed(s)
	if err != nil {
		return AllDicePayload{}, err
	}
	return AllDicePayload{Type: TypeAllDice, Round: s.LastAction.Round, DiceByPlayer: hands}, nil
}

// ErrorMessage builds the rejection payload sent to the offending player.
func ErrorMessage(err error) ErrorPayload {
	return ErrorPayload{Type: TypeError, Reason: domain.Reason(err), Message: err.Error()}
}
