package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/heroiclabs/nakama-common/rtapi"
	"github.com/heroiclabs/nakama-go/v2"
)

const (
	ServerKey = "defaultkey"
	HttpKey   = "defaulthttpkey"
	Host      = "127.0.0.1"
	Port      = 7350
	RPCPort   = 7350
)

// Op codes mirrored from the server module.
const (
	OpStart   int64 = 1
	OpBid     int64 = 2
	OpDudo    int64 = 3
	OpCalza   int64 = 4
	OpSync    int64 = 5
	OpState   int64 = 101
	OpDice    int64 = 102
	OpAllDice int64 = 103
	OpError   int64 = 104
)

type TestClient struct {
	Client  *nakama.Client
	Session *nakama.Session
	Socket  *nakama.Socket
	UserID  string
}

func NewTestClient(t *testing.T) *TestClient {
	client := nakama.NewClient(ServerKey, Host, Port, false)

	// Create unique ID
	deviceID := fmt.Sprintf("test_device_%d", time.Now().UnixNano())

	// Authenticate
	session, err := client.AuthenticateDevice(context.Background(), deviceID, true, "")
	if err != nil {
		t.Fatalf("Failed to authenticate: %v", err)
	}

	// Create Socket
	socket := client.NewSocket()
	if err := socket.Connect(context.Background(), session, true); err != nil {
		t.Fatalf("Failed to connect socket: %v", err)
	}

	return &TestClient{
		Client:  client,
		Session: session,
		Socket:  socket,
		UserID:  session.UserId,
	}
}

func (tc *TestClient) Close() {
	if tc.Socket != nil {
		tc.Socket.Close()
	}
}

type roomResponse struct {
	MatchID string `json:"match_id"`
	RoomID  string `json:"room_id"`
}

// rpc calls a server RPC and decodes its JSON response into out.
func (tc *TestClient) rpc(t *testing.T, id, payload string, out interface{}) {
	resp, err := tc.Client.RpcFunc(context.Background(), tc.Session, id, payload)
	if err != nil {
		t.Fatalf("RPC %s failed: %v", id, err)
	}
	if err := json.Unmarshal([]byte(resp.Payload), out); err != nil {
		t.Fatalf("RPC %s returned %q: %v", id, resp.Payload, err)
	}
}

// CreateAndJoinRoom calls the 'create_room' RPC and joins the returned match.
func (tc *TestClient) CreateAndJoinRoom(t *testing.T, payload string) roomResponse {
	var room roomResponse
	tc.rpc(t, "create_room", payload, &room)
	if room.MatchID == "" || room.RoomID == "" {
		t.Fatalf("RPC create_room returned %+v", room)
	}
	tc.join(t, room.MatchID)
	return room
}

// FindAndJoinRoom resolves a room code with the 'find_room' RPC and joins its match.
func (tc *TestClient) FindAndJoinRoom(t *testing.T, roomID string) roomResponse {
	var room roomResponse
	tc.rpc(t, "find_room", fmt.Sprintf(`{"room_id":%q}`, roomID), &room)
	if room.MatchID == "" {
		t.Fatalf("RPC find_room returned %+v", room)
	}
	tc.join(t, room.MatchID)
	return room
}

func (tc *TestClient) join(t *testing.T, matchID string) {
	if _, err := tc.Socket.JoinMatch(context.Background(), nil, matchID, nil); err != nil {
		t.Fatalf("Failed to join match %s: %v", matchID, err)
	}
}

// WaitForMatchState waits for a specific opcode from the socket.
func (tc *TestClient) WaitForMatchState(t *testing.T, opCode int64, timeout time.Duration) *rtapi.MatchData {
	ch := make(chan *rtapi.MatchData, 1)

	originalHandler := tc.Socket.OnMatchData
	tc.Socket.OnMatchData = func(data *rtapi.MatchData) {
		if data.OpCode == opCode {
			select {
			case ch <- data:
			default:
			}
		}
		if originalHandler != nil {
			originalHandler(data)
		}
	}

	select {
	case data := <-ch:
		return data
	case <-time.After(timeout):
		t.Fatalf("Timeout waiting for OpCode %d", opCode)
		return nil
	}
}
