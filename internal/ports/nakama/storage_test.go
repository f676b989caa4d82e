package nakama

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"

	"cachito/internal/domain"
	"cachito/internal/ports"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// fakeStorage keeps storage objects in memory keyed by collection and key and enforces
// write versions the way Nakama does.
type fakeStorage struct {
	objects map[string]*api.StorageObject
	writes  []*runtime.StorageWrite
	seq     int
	err     error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string]*api.StorageObject{}}
}

func (f *fakeStorage) StorageRead(_ context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*api.StorageObject
	for _, r := range reads {
		if obj, ok := f.objects[r.Collection+"/"+r.Key]; ok {
			out = append(out, obj)
		}
	}
	return out, nil
}

func (f *fakeStorage) StorageWrite(_ context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error) {
	if f.err != nil {
		return nil, f.err
	}
	acks := make([]*api.StorageObjectAck, 0, len(writes))
	for _, w := range writes {
		id := w.Collection + "/" + w.Key
		current, exists := f.objects[id]
		switch {
		case w.Version == "*" && exists:
			return nil, runtime.ErrStorageRejectedVersion
		case w.Version != "" && w.Version != "*" && (!exists || current.Version != w.Version):
			return nil, runtime.ErrStorageRejectedVersion
		}
		f.seq++
		version := "v" + strconv.Itoa(f.seq)
		f.writes = append(f.writes, w)
		f.objects[id] = &api.StorageObject{Collection: w.Collection, Key: w.Key, Value: w.Value, Version: version}
		acks = append(acks, &api.StorageObjectAck{Collection: w.Collection, Key: w.Key, Version: version})
	}
	return acks, nil
}

func TestNakamaStateStoreRoundTrip(t *testing.T) {
	nk := newFakeStorage()
	store := NewNakamaStateStore(nk)
	ctx := context.Background()

	state := domain.NewGame("ROOM01", domain.RulesOverride{})
	state.Join("u-alice", "alice")
	state.Join("u-bob", "bob")
	state.StartRound(constRoller(2), "u-bob")

	version, err := store.Store(ctx, "ROOM01", state, ports.AbsentVersion)
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	w := nk.writes[0]
	if w.Collection != StorageCollectionRooms || w.Key != "ROOM01" || w.UserID != "" {
		t.Fatalf("unexpected write target: %+v", w)
	}
	if w.PermissionRead != runtime.STORAGE_PERMISSION_NO_READ || w.PermissionWrite != runtime.STORAGE_PERMISSION_NO_WRITE {
		t.Fatalf("room state must not be client accessible: read=%d write=%d", w.PermissionRead, w.PermissionWrite)
	}

	loaded, loadedVersion, err := store.Load(ctx, "ROOM01")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loadedVersion != version {
		t.Fatalf("Load() version = %q, want %q", loadedVersion, version)
	}
	want, _ := json.Marshal(state)
	got, _ := json.Marshal(loaded)
	if string(got) != string(want) {
		t.Fatalf("Load() = %s, want %s", got, want)
	}
	if len(loaded.Secret.Hands["u-alice"]) != 5 {
		t.Fatal("hands must survive persistence")
	}
}

func TestNakamaStateStoreLoadMissing(t *testing.T) {
	store := NewNakamaStateStore(newFakeStorage())
	if _, _, err := store.Load(context.Background(), "NOPE99"); !errors.Is(err, ports.ErrRoomNotFound) {
		t.Fatalf("Load() error = %v, want ErrRoomNotFound", err)
	}
}

func TestNakamaStateStoreErrors(t *testing.T) {
	nk := newFakeStorage()
	nk.err = errors.New("storage down")
	store := NewNakamaStateStore(nk)

	if _, _, err := store.Load(context.Background(), "ROOM01"); err == nil || errors.Is(err, ports.ErrRoomNotFound) {
		t.Fatalf("Load() error = %v, want storage failure", err)
	}
	if _, err := store.Store(context.Background(), "ROOM01", domain.NewGame("ROOM01", domain.RulesOverride{}), ports.AnyVersion); !errors.Is(err, nk.err) {
		t.Fatalf("Store() error = %v, want wrapped storage failure", err)
	}
	if _, err := store.Store(context.Background(), "", domain.NewGame("", domain.RulesOverride{}), ports.AnyVersion); err == nil {
		t.Fatal("Store() without room id should fail")
	}
}

func TestNakamaStateStoreRefusesStaleClaim(t *testing.T) {
	store := NewNakamaStateStore(newFakeStorage())
	ctx := context.Background()

	if _, err := store.Store(ctx, "ROOM01", domain.NewGame("ROOM01", domain.RulesOverride{}), ports.AbsentVersion); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.Store(ctx, "ROOM01", domain.NewGame("ROOM01", domain.RulesOverride{}), ports.AbsentVersion); !errors.Is(err, ports.ErrVersionConflict) {
		t.Fatalf("second create error = %v, want ErrVersionConflict", err)
	}

	// Two resumes read the same version; only the first may claim the room.
	first, v1, err := store.Load(ctx, "ROOM01")
	if err != nil {
		t.Fatal(err)
	}
	second, v2, err := store.Load(ctx, "ROOM01")
	if err != nil {
		t.Fatal(err)
	}
	claimed, err := store.Store(ctx, "ROOM01", first, v1)
	if err != nil {
		t.Fatalf("first claim error = %v", err)
	}
	if claimed == v1 {
		t.Fatal("a write must produce a new version")
	}
	if _, err := store.Store(ctx, "ROOM01", second, v2); !errors.Is(err, ports.ErrVersionConflict) {
		t.Fatalf("second claim error = %v, want ErrVersionConflict", err)
	}
	if _, err := store.Store(ctx, "ROOM01", first, claimed); err != nil {
		t.Fatalf("owner write error = %v", err)
	}
}
