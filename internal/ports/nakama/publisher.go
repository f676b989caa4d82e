package nakama

import (
	"context"
	"encoding/json"
	"fmt"

	"cachito/internal/ports"
	"cachito/internal/visibility"

	"github.com/heroiclabs/nakama-common/runtime"
)

// DispatcherPublisher delivers visibility payloads through a match dispatcher.
// Private payloads only ever reach the addressed presence.
type DispatcherPublisher struct {
	dispatcher runtime.MatchDispatcher
	presences  map[string]runtime.Presence
}

// NewDispatcherPublisher creates a publisher over the match's live presences.
func NewDispatcherPublisher(dispatcher runtime.MatchDispatcher, presences map[string]runtime.Presence) *DispatcherPublisher {
	return &DispatcherPublisher{dispatcher: dispatcher, presences: presences}
}

// PublishPublic broadcasts payload to every presence in the match.
func (p *DispatcherPublisher) PublishPublic(_ context.Context, _ string, payload any) error {
	opCode, data, err := encodePayload(payload)
	if err != nil {
		return err
	}
	return p.dispatcher.BroadcastMessage(opCode, data, nil, nil, true)
}

// PublishPrivate sends payload to a single player. Players without a presence
// (bots, disconnected humans) are skipped; nothing is broadcast in their place.
func (p *DispatcherPublisher) PublishPrivate(_ context.Context, _ string, playerID string, payload any) error {
	presence, ok := p.presences[playerID]
	if !ok {
		return nil
	}
	opCode, data, err := encodePayload(payload)
	if err != nil {
		return err
	}
	return p.dispatcher.BroadcastMessage(opCode, data, []runtime.Presence{presence}, nil, true)
}

// encodePayload maps a payload to its op code and JSON bytes.
func encodePayload(payload any) (int64, []byte, error) {
	var opCode int64
	switch payload.(type) {
	case visibility.StatePayload:
		opCode = OpState
	case visibility.DicePayload:
		opCode = OpDice
	case visibility.AllDicePayload:
		opCode = OpAllDice
	case visibility.ErrorPayload:
		opCode = OpError
	default:
		return 0, nil, fmt.Errorf("unsupported payload type %T", payload)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal %T: %w", payload, err)
	}
	return opCode, data, nil
}

var _ ports.Publisher = (*DispatcherPublisher)(nil)
