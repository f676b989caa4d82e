package domain

// Phase represents the lifecycle stage of a Cachito room.
type Phase string

const (
	// PhaseLobby is the pre-game state where players can join.
	PhaseLobby Phase = "lobby"
	// PhaseRolling is the transient state while fresh hands are dealt.
	PhaseRolling Phase = "rolling"
	// PhaseBidding is the active state where players bid, challenge or call exact.
	PhaseBidding Phase = "bidding"
	// PhaseReveal is the transient state while a challenge or exact call is resolved.
	PhaseReveal Phase = "reveal"
	// PhaseGameOver is the terminal state once a single player holds dice.
	PhaseGameOver Phase = "gameover"
)

// WildFace is the face value that counts toward every other face when ones are wild.
const WildFace = 1

// Player is a roster entry. Players are never removed once added.
type Player struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	DiceCount int    `json:"diceCount"` // 0..Rules.MaxDice
	Connected bool   `json:"connected"`
}

// Alive reports whether the player still holds dice.
func (p Player) Alive() bool {
	return p.DiceCount > 0
}

// Bid claims that at least Quantity dice across all hands show Face.
type Bid struct {
	Quantity int `json:"quantity"`
	Face     int `json:"face"` // 1..6
}

// Secret holds data that must never be broadcast as-is.
type Secret struct {
	// Hands maps player id to the hand dealt for the current round.
	Hands map[string][]int `json:"hands"`
	// Revealed holds the hands of the most recently resolved round.
	Revealed map[string][]int `json:"revealed,omitempty"`
}

// State is the authoritative state for one room.
type State struct {
	RoomID      string   `json:"roomId"`
	Rules       Rules    `json:"rules"`
	Phase       Phase    `json:"phase"`
	Players     []Player `json:"players"` // roster order is turn order
	CurrentBid  *Bid     `json:"currentBid"`
	CurrentTurn string   `json:"currentTurn"` // empty when nobody is to act
	Round       int      `json:"round"`
	LastAction  *Outcome `json:"lastAction,omitempty"`
	WinnerID    string   `json:"winnerId,omitempty"`
	InviteOnly  bool     `json:"inviteOnly,omitempty"` // joins require an invite ticket

	Secret Secret `json:"secret"`
}

// FindPlayer returns the roster index of the player or -1.
func (s *State) FindPlayer(playerID string) int {
	for i := range s.Players {
		if s.Players[i].ID == playerID {
			return i
		}
	}
	return -1
}

// AliveCount returns the number of players holding dice.
func (s *State) AliveCount() int {
	n := 0
	for _, p := range s.Players {
		if p.Alive() {
			n++
		}
	}
	return n
}

// RoundOrder returns the ids of players taking part in the current round, in roster order.
// A player takes part when they hold dice and were dealt a hand this round, so a player
// who joined mid-round sits out until the next deal.
func (s *State) RoundOrder() []string {
	order := make([]string, 0, len(s.Players))
	for _, p := range s.Players {
		if !p.Alive() {
			continue
		}
		if _, dealt := s.Secret.Hands[p.ID]; !dealt {
			continue
		}
		order = append(order, p.ID)
	}
	return order
}
