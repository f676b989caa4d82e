package bot

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"

	"cachito/internal/domain"
)

func TestAgentPlaysOnlyOnItsTurn(t *testing.T) {
	agent, err := NewAgent(BotIdentity{UserID: "bot-a", Username: "bota", Difficulty: "bold"})
	if err != nil {
		t.Fatalf("NewAgent: %v", err)
	}
	if agent.Level != BotLevelBold || agent.Name != "bota" {
		t.Fatalf("unexpected agent %+v", agent)
	}

	state := domain.NewGame("room1", domain.RulesOverride{})
	state.Join("bot-a", "Bot A")
	state.Join("human", "Ana")

	if _, err := agent.Play(state); !errors.Is(err, ErrNotBotTurn) {
		t.Fatalf("play in lobby = %v, want ErrNotBotTurn", err)
	}

	state.StartRound(rand.New(rand.NewSource(1)), "bot-a")
	view := agent.View(state)
	if !reflect.DeepEqual(view.Hand, state.Secret.Hands["bot-a"]) {
		t.Fatalf("view hand = %v, want own hand", view.Hand)
	}

	move, err := agent.Play(state)
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if move.Kind != MoveBid {
		t.Fatalf("opening move = %+v, want a bid", move)
	}
	if _, err := state.PlaceBid("bot-a", move.Bid); err != nil {
		t.Fatalf("engine rejected bot bid %+v: %v", move.Bid, err)
	}

	if _, err := agent.Play(state); !errors.Is(err, ErrNotBotTurn) {
		t.Fatalf("play out of turn = %v, want ErrNotBotTurn", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]BotLevel{
		"bold":     BotLevelBold,
		"hard":     BotLevelBold,
		"cautious": BotLevelCautious,
		"":         BotLevelCautious,
		"easy":     BotLevelCautious,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestViewCountsOnlyDealtDice(t *testing.T) {
	agent, err := NewAgent(BotIdentity{UserID: "bot-a", Username: "bota", Difficulty: "bold"})
	if err != nil {
		t.Fatalf("NewAgent: %v", err)
	}

	state := domain.NewGame("room1", domain.RulesOverride{})
	state.Join("bot-a", "Bot A")
	state.Join("human", "Ana")
	state.Join("gone", "Gone")
	state.StartRound(rand.New(rand.NewSource(1)), "bot-a")
	state.Players[state.FindPlayer("gone")].DiceCount = 0
	delete(state.Secret.Hands, "gone")
	state.Join("late", "Late")

	view := agent.View(state)
	if view.DiceInPlay != 10 {
		t.Fatalf("dice in play = %d, want 10", view.DiceInPlay)
	}
	if got := NewEstimator(view).Unknown(); got != 5 {
		t.Fatalf("unknown = %d, want 5", got)
	}
}
