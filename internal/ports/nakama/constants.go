package nakama

const (
	// RpcCreateRoom is the Nakama RPC id clients call to open a new room.
	RpcCreateRoom = "create_room"
	// RpcFindRoom is the Nakama RPC id clients call to resolve a room code to a match id.
	RpcFindRoom = "find_room"

	// MatchNameCachito is the authoritative match handler name registered with Nakama.
	MatchNameCachito = "cachito_match"

	// StorageCollectionRooms holds one system-owned object per room, keyed by room id.
	StorageCollectionRooms = "cachito_rooms"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpStart int64 = 1
	OpBid   int64 = 2 // {"quantity": n, "face": f}
	OpDudo  int64 = 3
	OpCalza int64 = 4

	// Server -> Client events
	OpState   int64 = 101
	OpDice    int64 = 102 // send privately
	OpAllDice int64 = 103
	OpError   int64 = 104 // send privately
)

// Match label keys.
const (
	MatchLabelKeyGame    = "game"
	MatchLabelKeyRoom    = "room"
	MatchLabelKeyPhase   = "phase"
	MatchLabelKeyOpen    = "open"
	MatchLabelKeyPlayers = "players"
	MatchLabelKeyPrivate = "private"

	matchLabelGame = "cachito"
)

// Match params passed from create_room and find_room to MatchInit.
const (
	paramRoomID  = "room_id"
	paramRules   = "rules"
	paramPrivate = "private"
)

const (
	roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // no ambiguous characters
	roomCodeLength   = 6

	// botAutoFillTarget is the roster size a lone human is topped up to with bots.
	botAutoFillTarget = 3
)
