package app

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"cachito/internal/domain"
	"cachito/internal/ports"
	"cachito/internal/visibility"
)

// CommandType names an inbound room command.
type CommandType string

const (
	CommandJoin  CommandType = "join"
	CommandLeave CommandType = "leave"
	CommandStart CommandType = "start"
	CommandBid   CommandType = "bid"
	CommandDudo  CommandType = "dudo"
	CommandCalza CommandType = "calza"
)

// Command is a single player action addressed to a room.
type Command struct {
	Type     CommandType `json:"type"`
	PlayerID string      `json:"playerId"`
	Name     string      `json:"name,omitempty"`
	Bid      *domain.Bid `json:"bid,omitempty"`
}

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrInvalidID      = errors.New("invalid id")
	ErrInvalidName    = fmt.Errorf("name must be 1-%d characters", MaxNameLength)
	ErrMissingBid     = errors.New("bid command without bid")
	ErrRoomFull       = errors.New("room is full")
)

var unsafeIDChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// SafeID strips every character outside [a-zA-Z0-9_-].
func SafeID(raw string) string {
	return unsafeIDChars.ReplaceAllString(raw, "")
}

// ValidateName trims raw and checks its length.
func ValidateName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if n := utf8.RuneCountInString(name); n < 1 || n > MaxNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}

// Service contains Cachito use-cases operating on domain state.
type Service struct {
	rng        domain.Roller
	maxPlayers int
}

// NewService constructs a Service. A nil rng means every round is dealt from a freshly
// seeded generator; maxPlayers <= 0 means DefaultMaxPlayers.
func NewService(rng domain.Roller, maxPlayers int) *Service {
	if maxPlayers <= 0 {
		maxPlayers = DefaultMaxPlayers
	}
	return &Service{rng: rng, maxPlayers: maxPlayers}
}

// MaxPlayers returns the roster cap enforced on join.
func (s *Service) MaxPlayers() int {
	return s.maxPlayers
}

// CreateRoom validates rules and returns the lobby state for a new room.
func (s *Service) CreateRoom(roomID string, rules domain.Rules) (*domain.State, error) {
	id := SafeID(roomID)
	if id == "" {
		return nil, fmt.Errorf("room %q: %w", roomID, ErrInvalidID)
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	state := domain.NewGame(id, domain.RulesOverride{})
	state.Rules = rules
	return state, nil
}

// Apply runs one command against state and returns the events to publish.
// A rejected command leaves state untouched. Commands that are valid but have no
// effect return no events and no error.
func (s *Service) Apply(state *domain.State, cmd Command) ([]Event, error) {
	playerID := SafeID(cmd.PlayerID)
	if playerID == "" {
		return nil, fmt.Errorf("player %q: %w", cmd.PlayerID, ErrInvalidID)
	}

	switch cmd.Type {
	case CommandJoin:
		return s.join(state, playerID, cmd.Name)
	case CommandLeave:
		if !state.SetConnected(playerID, false) {
			return nil, nil
		}
		return []Event{stateEvent(state, EventPlayerLeft)}, nil
	case CommandStart:
		return s.start(state, playerID)
	case CommandBid:
		if cmd.Bid == nil {
			return nil, ErrMissingBid
		}
		if _, err := state.PlaceBid(playerID, *cmd.Bid); err != nil {
			return nil, err
		}
		return []Event{stateEvent(state, EventBidPlaced)}, nil
	case CommandDudo:
		if _, err := state.Challenge(playerID, s.roller()); err != nil {
			return nil, err
		}
		return resolutionEvents(state), nil
	case CommandCalza:
		if _, err := state.ExactCall(playerID, s.roller()); err != nil {
			return nil, err
		}
		return resolutionEvents(state), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}
}

func (s *Service) join(state *domain.State, playerID, rawName string) ([]Event, error) {
	if state.FindPlayer(playerID) >= 0 {
		state.SetConnected(playerID, true)
		events := []Event{stateEvent(state, EventPlayerJoined)}
		return append(events, privateEvents(state, playerID)...), nil
	}

	name, err := ValidateName(rawName)
	if err != nil {
		return nil, err
	}
	if len(state.Players) >= s.maxPlayers {
		return nil, ErrRoomFull
	}
	state.Join(playerID, name)
	return []Event{stateEvent(state, EventPlayerJoined)}, nil
}

func (s *Service) start(state *domain.State, playerID string) ([]Event, error) {
	if state.FindPlayer(playerID) < 0 {
		return nil, domain.ErrUnknownPlayer
	}

	var started bool
	switch state.Phase {
	case domain.PhaseLobby, domain.PhaseReveal:
		if state.AliveCount() >= MinPlayersToStartGame {
			started = state.StartRound(s.roller(), "")
		}
	case domain.PhaseGameOver:
		started = state.Rematch(s.roller())
	}
	if !started {
		return nil, nil
	}

	events := []Event{stateEvent(state, EventRoundStarted)}
	return append(events, handEvents(state)...), nil
}

// Snapshot returns what a (re)connecting player needs to catch up, addressed to them only.
func (s *Service) Snapshot(state *domain.State, playerID string) []Event {
	events := []Event{{
		Kind:       EventSnapshot,
		Payload:    visibility.StateMessage(state),
		Recipients: []string{playerID},
	}}
	return append(events, privateEvents(state, playerID)...)
}

func (s *Service) roller() domain.Roller {
	if s.rng != nil {
		return s.rng
	}
	return newRoundRoller()
}

func stateEvent(state *domain.State, kind EventKind) Event {
	return Event{Kind: kind, Payload: visibility.StateMessage(state)}
}

// resolutionEvents follows a dudo or calza: the public state, the revealed hands and,
// when play continues, the freshly dealt hands.
func resolutionEvents(state *domain.State) []Event {
	kind := EventRoundResolved
	if state.Phase == domain.PhaseGameOver {
		kind = EventGameEnded
	}
	events := []Event{stateEvent(state, kind)}
	if revealed, err := visibility.AllDiceMessage(state); err == nil {
		events = append(events, Event{Kind: EventHandsRevealed, Payload: revealed})
	}
	return append(events, handEvents(state)...)
}

func handEvents(state *domain.State) []Event {
	order := state.RoundOrder()
	events := make([]Event, 0, len(order))
	for _, id := range order {
		events = append(events, Event{
			Kind:       EventHandDealt,
			Payload:    visibility.DiceMessage(state, id),
			Recipients: []string{id},
		})
	}
	return events
}

// privateEvents returns the player's own hand and, inside the reveal window, the revealed hands.
func privateEvents(state *domain.State, playerID string) []Event {
	var events []Event
	if _, dealt := state.Secret.Hands[playerID]; dealt {
		events = append(events, Event{
			Kind:       EventHandDealt,
			Payload:    visibility.DiceMessage(state, playerID),
			Recipients: []string{playerID},
		})
	}
	if revealed, err := visibility.AllDiceMessage(state); err == nil {
		events = append(events, Event{
			Kind:       EventHandsRevealed,
			Payload:    revealed,
			Recipients: []string{playerID},
		})
	}
	return events
}

// Publish delivers events through pub. Every event is attempted; failures are joined.
func Publish(ctx context.Context, pub ports.Publisher, roomID string, events []Event) error {
	var errs []error
	for _, ev := range events {
		if !ev.Private() {
			if err := pub.PublishPublic(ctx, roomID, ev.Payload); err != nil {
				errs = append(errs, fmt.Errorf("publish %s: %w", ev.Kind, err))
			}
			continue
		}
		for _, playerID := range ev.Recipients {
			if err := pub.PublishPrivate(ctx, roomID, playerID, ev.Payload); err != nil {
				errs = append(errs, fmt.Errorf("publish %s to %s: %w", ev.Kind, playerID, err))
			}
		}
	}
	return errors.Join(errs...)
}
