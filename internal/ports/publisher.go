package ports

import "context"

// Publisher delivers projections to the members of a room.
// Payloads are JSON-encodable values carrying a "type" discriminator.
type Publisher interface {
	// PublishPublic sends payload to every member of the room.
	PublishPublic(ctx context.Context, roomID string, payload any) error

	// PublishPrivate sends payload to a single player of the room.
	PublishPrivate(ctx context.Context, roomID, playerID string, payload any) error
}
