package domain

import "fmt"

// NewGame creates the lobby state for a room with defaults merged with override.
func NewGame(roomID string, override RulesOverride) *State {
	return &State{
		RoomID:  roomID,
		Rules:   override.Merge(DefaultRules()),
		Phase:   PhaseLobby,
		Players: []Player{},
		Secret:  Secret{Hands: map[string][]int{}},
	}
}

// Join appends a player with a full set of dice. Joining twice is a no-op.
// There is no phase restriction; a player joining mid-round is dealt in at the next round.
func (s *State) Join(playerID, name string) bool {
	if s.FindPlayer(playerID) >= 0 {
		return false
	}
	s.Players = append(s.Players, Player{
		ID:        playerID,
		Name:      name,
		DiceCount: s.Rules.MaxDice,
		Connected: true,
	})
	return true
}

// SetConnected updates the connectivity flag of a known player.
func (s *State) SetConnected(playerID string, connected bool) bool {
	i := s.FindPlayer(playerID)
	if i < 0 {
		return false
	}
	s.Players[i].Connected = connected
	return true
}

// StartRound deals fresh hands and opens bidding. It does nothing unless at least two
// players hold dice. The starter bids first when alive; otherwise the first alive player
// in roster order does.
func (s *State) StartRound(roller Roller, starterID string) bool {
	if s.AliveCount() < 2 {
		return false
	}

	s.Phase = PhaseRolling
	s.Round++
	s.CurrentBid = nil

	hands := make(map[string][]int, len(s.Players))
	for _, p := range s.Players {
		if p.Alive() {
			hands[p.ID] = RollHand(roller, p.DiceCount)
		}
	}
	s.Secret.Hands = hands

	s.CurrentTurn = s.RoundOrder()[0]
	if i := s.FindPlayer(starterID); i >= 0 && s.Players[i].Alive() {
		s.CurrentTurn = starterID
	}

	s.Phase = PhaseBidding
	return true
}

// PlaceBid records a bid from the current player and passes the turn on.
func (s *State) PlaceBid(playerID string, bid Bid) (*Outcome, error) {
	if s.Phase != PhaseBidding {
		return nil, ErrIllegalPhase
	}
	if s.CurrentTurn != playerID {
		return nil, ErrNotYourTurn
	}
	if !ValidNextBid(s.CurrentBid, bid) {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidBid, bid.Quantity, bid.Face)
	}

	placed := bid
	s.CurrentBid = &placed
	s.CurrentTurn = s.nextInRound(playerID)

	out := &Outcome{
		Kind:     OutcomeBidPlaced,
		Round:    s.Round,
		PlayerID: playerID,
		Bid:      bid,
	}
	s.LastAction = out
	return out, nil
}

// Challenge resolves a dudo call: the bidder loses a die if the bid overstated the true
// count, otherwise the caller does. The loser is the starter of the next round.
func (s *State) Challenge(callerID string, roller Roller) (*Outcome, error) {
	bidderID, err := s.checkCall(callerID)
	if err != nil {
		return nil, err
	}

	bid := *s.CurrentBid
	s.Phase = PhaseReveal
	trueCount := CountFace(s.Secret.Hands, bid.Face, s.Rules.OnesWild)

	bidderLost := trueCount < bid.Quantity
	loserID := callerID
	if bidderLost {
		loserID = bidderID
	}
	delta := s.adjustDice(loserID, -1)

	out := &Outcome{
		Kind:       OutcomeChallengeResolved,
		Round:      s.Round,
		PlayerID:   callerID,
		Bid:        bid,
		BidderID:   bidderID,
		TrueCount:  trueCount,
		BidderLost: bidderLost,
		LoserID:    loserID,
		DiceDelta:  delta,
	}
	s.resolve(out, loserID, roller)
	return out, nil
}

// ExactCall resolves a calza call: an exact true count earns the caller dice, anything
// else costs the caller dice. The bidder is never penalised.
func (s *State) ExactCall(callerID string, roller Roller) (*Outcome, error) {
	bidderID, err := s.checkCall(callerID)
	if err != nil {
		return nil, err
	}

	bid := *s.CurrentBid
	s.Phase = PhaseReveal
	trueCount := CountFace(s.Secret.Hands, bid.Face, s.Rules.OnesWild)

	out := &Outcome{
		Kind:      OutcomeExactCallResolved,
		Round:     s.Round,
		PlayerID:  callerID,
		Bid:       bid,
		BidderID:  bidderID,
		TrueCount: trueCount,
		Exact:     trueCount == bid.Quantity,
	}

	starterID := bidderID
	if out.Exact {
		out.DiceDelta = s.adjustDice(callerID, s.Rules.CalzaGain)
	} else {
		out.LoserID = callerID
		out.DiceDelta = s.adjustDice(callerID, -s.Rules.CalzaPenalty)
		starterID = callerID
	}
	s.resolve(out, starterID, roller)
	return out, nil
}

// checkCall validates a dudo or calza and returns the id of the player who made the current bid.
func (s *State) checkCall(callerID string) (string, error) {
	if s.Phase != PhaseBidding {
		return "", ErrIllegalPhase
	}
	if s.CurrentBid == nil {
		return "", ErrNoActiveBid
	}
	if !s.inRound(callerID) {
		return "", ErrUnknownPlayer
	}
	return s.previousInRound(s.CurrentTurn), nil
}

// resolve records the outcome, retires the round's hands and either ends the game or deals
// the next round.
func (s *State) resolve(out *Outcome, starterID string, roller Roller) {
	out.StarterID = starterID
	s.LastAction = out
	s.Secret.Revealed = s.Secret.Hands
	s.Secret.Hands = map[string][]int{}
	s.CurrentBid = nil
	s.CurrentTurn = ""

	if s.AliveCount() == 1 {
		for _, p := range s.Players {
			if p.Alive() {
				s.WinnerID = p.ID
			}
		}
		out.StarterID = ""
		s.Phase = PhaseGameOver
		return
	}

	s.StartRound(roller, starterID)
}

// adjustDice changes a player's dice count within [0, MaxDice] and returns the applied delta.
func (s *State) adjustDice(playerID string, delta int) int {
	i := s.FindPlayer(playerID)
	if i < 0 {
		return 0
	}
	before := s.Players[i].DiceCount
	after := min(max(before+delta, 0), s.Rules.MaxDice)
	s.Players[i].DiceCount = after
	return after - before
}

func (s *State) inRound(playerID string) bool {
	for _, id := range s.RoundOrder() {
		if id == playerID {
			return true
		}
	}
	return false
}

// nextInRound returns the player after playerID in round order, wrapping.
func (s *State) nextInRound(playerID string) string {
	return s.stepInRound(playerID, 1)
}

// previousInRound returns the player before playerID in round order, wrapping.
func (s *State) previousInRound(playerID string) string {
	return s.stepInRound(playerID, -1)
}

func (s *State) stepInRound(playerID string, step int) string {
	order := s.RoundOrder()
	if len(order) == 0 {
		return ""
	}
	idx := 0
	for i, id := range order {
		if id == playerID {
			idx = i
			break
		}
	}
	n := len(order)
	return order[((idx+step)%n+n)%n]
}

// Rematch restores every roster player to a full set of dice after a finished game and
// deals the first round of the new game. The previous winner starts.
func (s *State) Rematch(roller Roller) bool {
	if s.Phase != PhaseGameOver || len(s.Players) < 2 {
		return false
	}
	for i := range s.Players {
		s.Players[i].DiceCount = s.Rules.MaxDice
	}
	starterID := s.WinnerID
	s.WinnerID = ""
	return s.StartRound(roller, starterID)
}
