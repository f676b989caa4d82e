package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cachito/internal/app"
	"cachito/internal/config"
	"cachito/internal/domain"
	"cachito/internal/ports"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
	"google.golang.org/grpc/codes"
)

// roomCodeAttempts bounds the search for an unused room code.
const roomCodeAttempts = 5

// CreateRoomRequest is the create_room payload. Every field is optional.
type CreateRoomRequest struct {
	Preset  string               `json:"preset"`
	Rules   domain.RulesOverride `json:"rules"`
	Private bool                 `json:"private"`
}

// CreateRoomResponse is returned to the creator of a room.
type CreateRoomResponse struct {
	MatchID string       `json:"match_id"`
	RoomID  string       `json:"room_id"`
	Rules   domain.Rules `json:"rules"`
	Ticket  string       `json:"ticket,omitempty"` // invite ticket for private rooms
}

// FindRoomRequest is the find_room payload.
type FindRoomRequest struct {
	RoomID string `json:"room_id"`
}

// FindRoomResponse points a client at the match serving a room.
type FindRoomResponse struct {
	MatchID string `json:"match_id"`
	RoomID  string `json:"room_id"`
	Resumed bool   `json:"resumed"` // true when the match was recreated from storage
}

// matchAPI is the subset of runtime.NakamaModule used by the room RPCs.
type matchAPI interface {
	MatchCreate(ctx context.Context, module string, params map[string]interface{}) (string, error)
	MatchList(ctx context.Context, limit int, authoritative bool, label string, minSize, maxSize *int, query string) ([]*api.Match, error)
}

// RegisterRPCs registers Nakama RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer) error {
	if err := initializer.RegisterRpc(RpcCreateRoom, rpcCreateRoom); err != nil {
		return err
	}
	return initializer.RegisterRpc(RpcFindRoom, rpcFindRoom)
}

func rpcCreateRoom(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	rt := runtimeConfig(ctx, logger)
	if err := config.LoadGameConfig(rt.GameConfigPath); err != nil {
		logger.Warn("create_room: Could not load game config: %v", err)
	}

	var req CreateRoomRequest
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			return "", runtime.NewError("Invalid payload", int(codes.InvalidArgument))
		}
	}

	tickets := app.NewTicketService(rt.TicketSecret, rt.TicketIssuer, rt.TicketTTL)
	resp, err := createRoom(ctx, nk, NewNakamaStateStore(nk), tickets, config.GetGameConfig(), req)
	if err != nil {
		logger.Error("create_room [User:%s]: %v", userID, err)
		return "", err
	}

	logger.Info("create_room [User:%s]: Created room %s in match %s", userID, resp.RoomID, resp.MatchID)
	b, err := json.Marshal(resp)
	if err != nil {
		return "", runtime.NewError("Failed to encode response", int(codes.Internal))
	}
	return string(b), nil
}

// createRoom resolves the rules, reserves an unused room code and starts its match.
func createRoom(ctx context.Context, nk matchAPI, store ports.StateStore, tickets *app.TicketService, cfg *config.GameConfig, req CreateRoomRequest) (*CreateRoomResponse, error) {
	rules := req.Rules.Merge(cfg.Rules(req.Preset))
	if err := rules.Validate(); err != nil {
		return nil, runtime.NewError(err.Error(), int(codes.InvalidArgument))
	}
	if req.Private && !tickets.Enabled() {
		return nil, runtime.NewError("Private rooms are not configured", int(codes.FailedPrecondition))
	}

	roomID, err := unusedRoomCode(ctx, store)
	if err != nil {
		return nil, err
	}

	rulesJSON, err := json.Marshal(rules)
	if err != nil {
		return nil, runtime.NewError("Failed to encode rules", int(codes.Internal))
	}

	matchID, err := nk.MatchCreate(ctx, MatchNameCachito, map[string]interface{}{
		paramRoomID:  roomID,
		paramRules:   string(rulesJSON),
		paramPrivate: req.Private,
	})
	if err != nil {
		return nil, runtime.NewError(fmt.Sprintf("Failed to create match: %v", err), int(codes.Internal))
	}

	resp := &CreateRoomResponse{MatchID: matchID, RoomID: roomID, Rules: rules}
	if req.Private {
		ticket, err := tickets.Issue(roomID)
		if err != nil {
			return nil, runtime.NewError(fmt.Sprintf("Failed to issue ticket: %v", err), int(codes.Internal))
		}
		resp.Ticket = ticket
	}
	return resp, nil
}

// unusedRoomCode draws room codes until one has no stored state.
func unusedRoomCode(ctx context.Context, store ports.StateStore) (string, error) {
	for i := 0; i < roomCodeAttempts; i++ {
		code := newRoomCode()
		_, _, err := store.Load(ctx, code)
		if errors.Is(err, ports.ErrRoomNotFound) {
			return code, nil
		}
		if err != nil {
			return "", runtime.NewError(fmt.Sprintf("Failed to check room code: %v", err), int(codes.Internal))
		}
	}
	return "", runtime.NewError("No room code available", int(codes.ResourceExhausted))
}

func rpcFindRoom(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

	var req FindRoomRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", runtime.NewError("Invalid payload", int(codes.InvalidArgument))
	}

	resp, err := findRoom(ctx, nk, NewNakamaStateStore(nk), req)
	if err != nil {
		logger.Warn("find_room [User:%s]: %v", userID, err)
		return "", err
	}

	logger.Info("find_room [User:%s]: Room %s is served by match %s (resumed=%t)", userID, resp.RoomID, resp.MatchID, resp.Resumed)
	b, err := json.Marshal(resp)
	if err != nil {
		return "", runtime.NewError("Failed to encode response", int(codes.Internal))
	}
	return string(b), nil
}

// findRoom returns the live match for a room code. A stored room without a live match
// is resumed in a new match.
func findRoom(ctx context.Context, nk matchAPI, store ports.StateStore, req FindRoomRequest) (*FindRoomResponse, error) {
	roomID := strings.ToUpper(app.SafeID(req.RoomID))
	if roomID == "" {
		return nil, runtime.NewError("room_id is required", int(codes.InvalidArgument))
	}

	query := fmt.Sprintf("+label.%s:%s +label.%s:%s", MatchLabelKeyGame, matchLabelGame, MatchLabelKeyRoom, roomID)
	matches, err := nk.MatchList(ctx, 1, true, "", nil, nil, query)
	if err != nil {
		return nil, runtime.NewError(fmt.Sprintf("Failed to list matches: %v", err), int(codes.Internal))
	}
	if len(matches) > 0 {
		return &FindRoomResponse{MatchID: matches[0].GetMatchId(), RoomID: roomID}, nil
	}

	if _, _, err := store.Load(ctx, roomID); err != nil {
		if errors.Is(err, ports.ErrRoomNotFound) {
			return nil, runtime.NewError("Room not found", int(codes.NotFound))
		}
		return nil, runtime.NewError(fmt.Sprintf("Failed to load room: %v", err), int(codes.Internal))
	}

	matchID, err := nk.MatchCreate(ctx, MatchNameCachito, map[string]interface{}{paramRoomID: roomID})
	if err != nil {
		return nil, runtime.NewError(fmt.Sprintf("Failed to resume room: %v", err), int(codes.Internal))
	}
	return &FindRoomResponse{MatchID: matchID, RoomID: roomID, Resumed: true}, nil
}
