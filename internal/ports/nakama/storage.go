package nakama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cachito/internal/domain"
	"cachito/internal/ports"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// storageAPI is the subset of runtime.NakamaModule used by the state store.
type storageAPI interface {
	StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error)
	StorageWrite(ctx context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error)
}

// NakamaStateStore persists room state as system-owned storage objects.
// Objects are neither readable nor writable by clients since they hold every hand.
type NakamaStateStore struct {
	nk storageAPI
}

// NewNakamaStateStore creates a state store backed by Nakama storage.
func NewNakamaStateStore(nk storageAPI) *NakamaStateStore {
	return &NakamaStateStore{nk: nk}
}

// Load reads the room state and its storage version. It returns ports.ErrRoomNotFound
// when nothing is stored.
func (s *NakamaStateStore) Load(ctx context.Context, roomID string) (*domain.State, string, error) {
	if roomID == "" {
		return nil, "", fmt.Errorf("roomID is required")
	}

	objects, err := s.nk.StorageRead(ctx, []*runtime.StorageRead{
		{
			Collection: StorageCollectionRooms,
			Key:        roomID,
		},
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to read room %s: %w", roomID, err)
	}
	if len(objects) == 0 {
		return nil, "", ports.ErrRoomNotFound
	}

	var state domain.State
	if err := json.Unmarshal([]byte(objects[0].GetValue()), &state); err != nil {
		return nil, "", fmt.Errorf("failed to unmarshal room %s: %w", roomID, err)
	}
	if state.Secret.Hands == nil {
		state.Secret.Hands = map[string][]int{}
	}
	return &state, objects[0].GetVersion(), nil
}

// Store writes the full room state guarded by version and returns the new version.
// Nakama rejects the write when the stored object does not match version.
func (s *NakamaStateStore) Store(ctx context.Context, roomID string, state *domain.State, version string) (string, error) {
	if roomID == "" {
		return "", fmt.Errorf("roomID is required")
	}

	value, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("failed to marshal room %s: %w", roomID, err)
	}

	acks, err := s.nk.StorageWrite(ctx, []*runtime.StorageWrite{
		{
			Collection:      StorageCollectionRooms,
			Key:             roomID,
			Value:           string(value),
			Version:         version,
			PermissionRead:  runtime.STORAGE_PERMISSION_NO_READ,
			PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
		},
	})
	if err != nil {
		if errors.Is(err, runtime.ErrStorageRejectedVersion) {
			return "", fmt.Errorf("room %s: %w", roomID, ports.ErrVersionConflict)
		}
		return "", fmt.Errorf("failed to write room %s: %w", roomID, err)
	}
	if len(acks) == 0 {
		return "", fmt.Errorf("no ack writing room %s", roomID)
	}
	return acks[0].GetVersion(), nil
}

var _ ports.StateStore = (*NakamaStateStore)(nil)
