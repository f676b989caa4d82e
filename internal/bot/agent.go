package bot

import (
	"errors"

	"cachito/internal/domain"
	"cachito/internal/visibility"
)

// ErrNotBotTurn is returned when an agent is asked to act out of turn.
var ErrNotBotTurn = errors.New("not the bot's turn")

// Agent represents an autonomous bot player.
type Agent struct {
	ID       string
	Name     string
	Level    BotLevel
	Strategy Brain
}

// Play asks the agent to calculate its move from what it may see of state.
func (a *Agent) Play(state *domain.State) (Move, error) {
	if state.Phase != domain.PhaseBidding || state.CurrentTurn != a.ID {
		return Move{}, ErrNotBotTurn
	}
	return a.Strategy.CalculateMove(a.View(state))
}

// View builds the agent's masked view of state.
func (a *Agent) View(state *domain.State) View {
	inPlay := 0
	for _, id := range state.RoundOrder() {
		inPlay += state.Players[state.FindPlayer(id)].DiceCount
	}
	return View{
		PlayerID:   a.ID,
		State:      visibility.PublicProjection(state),
		Hand:       visibility.PrivateHand(state, a.ID),
		DiceInPlay: inPlay,
	}
}
