package app

// EventKind identifies emitted room events for dispatch.
type EventKind string

const (
	EventPlayerJoined  EventKind = "player_joined"
	EventPlayerLeft    EventKind = "player_left"
	EventRoundStarted  EventKind = "round_started"
	EventBidPlaced     EventKind = "bid_placed"
	EventRoundResolved EventKind = "round_resolved"
	EventGameEnded     EventKind = "game_ended"
	EventHandDealt     EventKind = "hand_dealt"
	EventHandsRevealed EventKind = "hands_revealed"
	EventSnapshot      EventKind = "snapshot"
)

// Event is an app event with optional targeted recipients.
// Payload is one of the visibility payload types.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string // player IDs; empty means broadcast
}

// Private reports whether the event targets specific players.
func (e Event) Private() bool {
	return len(e.Recipients) > 0
}
