package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"unicode/utf8"

	"cachito/internal/app"
	"cachito/internal/bot"
	"cachito/internal/config"
	"cachito/internal/domain"
	"cachito/internal/ports"
	"cachito/internal/visibility"

	"github.com/heroiclabs/nakama-common/runtime"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// OpSync asks the server to resend the sender's view of the room.
const OpSync int64 = 5

var errUnknownOpCode = errors.New("unknown op code")

// MatchState holds the authoritative runtime state for the Nakama match handler.
type MatchState struct {
	RoomID               string                      `json:"room_id"`                 // Room code, also the storage key
	Private              bool                        `json:"private"`                 // Joins require an invite ticket
	Tick                 int64                       `json:"tick"`                    // Current tick of the match for turn-based logic
	Game                 *domain.State               `json:"-"`                       // Authoritative room state
	Presences            map[string]runtime.Presence `json:"-"`                       // Map player id -> Presence for targeted messaging
	App                  *app.Service                `json:"-"`                       // Cachito app service with game logic
	Store                ports.StateStore            `json:"-"`                       // Persistence after every accepted command
	Version              string                      `json:"-"`                       // Storage version this match last wrote
	Superseded           bool                        `json:"-"`                       // Another match took over the room
	Tickets              *app.TicketService          `json:"-"`                       // Invite ticket verification
	BotsEnabled          bool                        `json:"bots_enabled"`            // Whether AI players are allowed
	BotMinDelay          int                         `json:"bot_min_delay"`           // Min seconds a bot waits
	BotMaxDelay          int                         `json:"bot_max_delay"`           // Max seconds a bot waits
	BotAutoFillDelay     int                         `json:"bot_auto_fill_delay"`     // Seconds to wait before auto-filling with bots
	BotWaitUntil         int64                       `json:"bot_wait_until"`          // Tick when the bot should act
	LastSinglePlayerTick int64                       `json:"last_single_player_tick"` // Tick when a single player started waiting
	Bots                 map[string]*bot.Agent       `json:"-"`                       // Active bot agents
}

// GetHumanPresenceCount returns the number of connected human players.
func (ms *MatchState) GetHumanPresenceCount() int {
	count := 0
	for id := range ms.Presences {
		if !bot.IsBot(id) {
			count++
		}
	}
	return count
}

// IsOpen reports whether the room should be offered to new players.
func (ms *MatchState) IsOpen() bool {
	return !ms.Private &&
		ms.Game.Phase == domain.PhaseLobby &&
		len(ms.Game.Players) < ms.App.MaxPlayers()
}

// shouldTerminateNoHumans returns true when no human is connected to the match.
func shouldTerminateNoHumans(presences map[string]runtime.Presence) bool {
	for id := range presences {
		if !bot.IsBot(id) {
			return false
		}
	}
	return true
}

// playerName derives a roster name from a presence username.
func playerName(username string) string {
	name := strings.TrimSpace(username)
	if name == "" {
		return "Player"
	}
	if utf8.RuneCountInString(name) > app.MaxNameLength {
		name = string([]rune(name)[:app.MaxNameLength])
	}
	return name
}

// runtimeConfig parses the runtime env carried by ctx, falling back to defaults.
func runtimeConfig(ctx context.Context, logger runtime.Logger) config.Runtime {
	vars, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	rt, err := config.ParseRuntime(vars)
	if err != nil {
		logger.Warn("Invalid runtime env, using defaults: %v", err)
		rt, _ = config.ParseRuntime(nil)
	}
	return rt
}

// newRoomCode returns a random room code.
func newRoomCode() string {
	code := make([]byte, roomCodeLength)
	for i := range code {
		code[i] = roomCodeAlphabet[rand.Intn(len(roomCodeAlphabet))]
	}
	return string(code)
}

// NewMatch is the factory function registered with Nakama.
func NewMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	return newMatchHandler(), nil
}

type matchHandler struct {
	store ports.StateStore // nil means Nakama storage
	rng   domain.Roller    // nil means a fresh seed per round
}

func newMatchHandler() *matchHandler {
	return &matchHandler{}
}

// MatchInit is called when the match is created. A room id with stored state resumes
// that room; otherwise a new lobby is created with the rules passed by create_room.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing match handler.")

	rt := runtimeConfig(ctx, logger)

	if err := bot.LoadIdentities(rt.BotIdentitiesPath); err != nil {
		logger.Warn("MatchInit: Could not load bot identities: %v", err)
	}
	if err := config.LoadGameConfig(rt.GameConfigPath); err != nil {
		logger.Warn("MatchInit: Could not load game config: %v", err)
	}

	store := mh.store
	if store == nil {
		store = NewNakamaStateStore(nk)
	}

	state := &MatchState{
		Presences:        make(map[string]runtime.Presence),
		App:              app.NewService(mh.rng, rt.MaxPlayers),
		Store:            store,
		Tickets:          app.NewTicketService(rt.TicketSecret, rt.TicketIssuer, rt.TicketTTL),
		BotsEnabled:      rt.BotsEnabled,
		BotMinDelay:      rt.BotMinDelaySec,
		BotMaxDelay:      rt.BotMaxDelaySec,
		BotAutoFillDelay: rt.BotAutoFillDelaySec,
		Bots:             make(map[string]*bot.Agent),
	}

	roomID, _ := params[paramRoomID].(string)
	state.RoomID = app.SafeID(roomID)
	if state.RoomID == "" {
		state.RoomID = newRoomCode()
	}

	game, err := mh.loadOrCreate(ctx, logger, state, params)
	if err != nil {
		logger.Error("MatchInit: Failed to prepare room %s: %v", state.RoomID, err)
		return nil, 0, ""
	}
	state.Game = game
	state.Private = game.InviteOnly
	mh.restoreBots(state, logger)

	label, err := encodeLabel(state)
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}

	tickRate := 1 // 1 tick per second; bot delays are counted in ticks
	return state, tickRate, label
}

// loadOrCreate resumes the stored room or creates and stores a new lobby.
func (mh *matchHandler) loadOrCreate(ctx context.Context, logger runtime.Logger, state *MatchState, params map[string]interface{}) (*domain.State, error) {
	game, version, err := state.Store.Load(ctx, state.RoomID)
	if err == nil {
		// Nobody is attached to a freshly created match.
		for _, p := range game.Players {
			if !bot.IsBot(p.ID) {
				game.SetConnected(p.ID, false)
			}
		}
		// Claim the room; a concurrent resume holding the same version is refused.
		if state.Version, err = state.Store.Store(ctx, state.RoomID, game, version); err != nil {
			return nil, err
		}
		logger.Info("MatchInit: Resumed room %s (phase=%s, round=%d).", state.RoomID, game.Phase, game.Round)
		return game, nil
	}
	if !errors.Is(err, ports.ErrRoomNotFound) {
		return nil, err
	}

	rules := config.GetRules("")
	if raw, ok := params[paramRules].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &rules); err != nil {
			return nil, fmt.Errorf("invalid rules param: %w", err)
		}
	}

	game, err = state.App.CreateRoom(state.RoomID, rules)
	if err != nil {
		return nil, err
	}
	game.InviteOnly, _ = params[paramPrivate].(bool)

	if state.Version, err = state.Store.Store(ctx, state.RoomID, game, ports.AbsentVersion); err != nil {
		return nil, err
	}
	logger.Info("MatchInit: Created room %s (private=%t).", state.RoomID, game.InviteOnly)
	return game, nil
}

// restoreBots recreates agents for bots already on a resumed roster.
func (mh *matchHandler) restoreBots(state *MatchState, logger runtime.Logger) {
	for _, p := range state.Game.Players {
		if !bot.IsBot(p.ID) {
			continue
		}
		identity, ok := bot.IdentityByID(p.ID)
		if !ok {
			identity = bot.BotIdentity{UserID: p.ID, DisplayName: p.Name}
		}
		agent, err := bot.NewAgent(identity)
		if err != nil {
			logger.Error("restoreBots: Failed to create agent for %s: %v", p.ID, err)
			continue
		}
		state.Bots[p.ID] = agent
	}
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	// Roster members may always come back.
	playerID := app.SafeID(presence.GetUserId())
	if matchState.Game.FindPlayer(playerID) >= 0 {
		return matchState, true, ""
	}

	if len(matchState.Game.Players) >= matchState.App.MaxPlayers() {
		return matchState, false, "Room full"
	}

	if matchState.Private {
		if err := matchState.Tickets.Verify(metadata["ticket"], matchState.RoomID); err != nil {
			logger.Warn("MatchJoinAttempt: User %s rejected from room %s: %v", playerID, matchState.RoomID, err)
			return matchState, false, "Invite ticket required"
		}
	}

	return matchState, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		playerID := app.SafeID(p.GetUserId())
		matchState.Presences[playerID] = p

		cmd := app.Command{Type: app.CommandJoin, PlayerID: playerID, Name: playerName(p.GetUsername())}
		if err := mh.apply(ctx, matchState, dispatcher, logger, cmd); err != nil {
			// Lost a race for the last seat.
			delete(matchState.Presences, playerID)
			if kickErr := dispatcher.MatchKick([]runtime.Presence{p}); kickErr != nil {
				logger.Error("MatchJoin: Failed to kick %s: %v", playerID, kickErr)
			}
			continue
		}
		logger.Debug("MatchJoin: Player %s joined room %s.", playerID, matchState.RoomID)
	}
	if matchState.Superseded {
		return mh.abandon(matchState, dispatcher, logger)
	}

	mh.updateLabel(matchState, dispatcher, logger)
	return matchState
}

// MatchLeave is called when one or more players leave the match. Leaving players stay on
// the roster and keep their dice.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		playerID := app.SafeID(p.GetUserId())
		delete(matchState.Presences, playerID)
		mh.apply(ctx, matchState, dispatcher, logger, app.Command{Type: app.CommandLeave, PlayerID: playerID})
		logger.Debug("MatchLeave: Player %s left room %s.", playerID, matchState.RoomID)
	}
	if matchState.Superseded {
		return mh.abandon(matchState, dispatcher, logger)
	}

	if shouldTerminateNoHumans(matchState.Presences) {
		logger.Info("MatchLeave: Terminating room %s with no humans.", matchState.RoomID)
		mh.persist(ctx, matchState, logger)
		return nil
	}

	mh.updateLabel(matchState, dispatcher, logger)
	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick

	for _, msg := range messages {
		playerID := app.SafeID(msg.GetUserId())

		if msg.GetOpCode() == OpSync {
			mh.publish(ctx, matchState, dispatcher, logger, matchState.App.Snapshot(matchState.Game, playerID))
			continue
		}

		cmd, err := decodeCommand(msg.GetOpCode(), msg.GetData())
		if errors.Is(err, errUnknownOpCode) {
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
			continue
		}
		if err != nil {
			logger.Warn("MatchLoop: Invalid payload from %s: %v", playerID, err)
			mh.sendError(ctx, matchState, dispatcher, logger, playerID, err)
			continue
		}

		cmd.PlayerID = playerID
		mh.apply(ctx, matchState, dispatcher, logger, cmd)
	}

	if matchState.BotsEnabled && !matchState.Superseded {
		mh.processBots(ctx, matchState, dispatcher, logger)
	}
	if matchState.Superseded {
		return mh.abandon(matchState, dispatcher, logger)
	}

	return matchState
}

// decodeCommand maps a client message to an app command.
func decodeCommand(opCode int64, data []byte) (app.Command, error) {
	switch opCode {
	case OpStart:
		return app.Command{Type: app.CommandStart}, nil
	case OpBid:
		var bid domain.Bid
		if err := json.Unmarshal(data, &bid); err != nil {
			return app.Command{}, fmt.Errorf("%w: %v", domain.ErrInvalidBid, err)
		}
		return app.Command{Type: app.CommandBid, Bid: &bid}, nil
	case OpDudo:
		return app.Command{Type: app.CommandDudo}, nil
	case OpCalza:
		return app.Command{Type: app.CommandCalza}, nil
	default:
		return app.Command{}, errUnknownOpCode
	}
}

// moveCommand maps a bot move to an app command.
func moveCommand(playerID string, move bot.Move) app.Command {
	switch move.Kind {
	case bot.MoveDudo:
		return app.Command{Type: app.CommandDudo, PlayerID: playerID}
	case bot.MoveCalza:
		return app.Command{Type: app.CommandCalza, PlayerID: playerID}
	default:
		bid := move.Bid
		return app.Command{Type: app.CommandBid, PlayerID: playerID, Bid: &bid}
	}
}

// apply runs one command against the room: engine first, then storage, then clients.
// A rejected command is reported to its sender only and changes nothing.
func (mh *matchHandler) apply(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, cmd app.Command) error {
	phase := state.Game.Phase
	roster := len(state.Game.Players)

	events, err := state.App.Apply(state.Game, cmd)
	if err != nil {
		logger.WithField("room", state.RoomID).Warn("apply: %s from %s rejected: %v", cmd.Type, cmd.PlayerID, err)
		mh.sendError(ctx, state, dispatcher, logger, cmd.PlayerID, err)
		return err
	}
	if len(events) == 0 {
		return nil
	}

	if err := mh.persist(ctx, state, logger); errors.Is(err, ports.ErrVersionConflict) {
		return err
	}
	mh.publish(ctx, state, dispatcher, logger, events)

	if state.Game.Phase != phase || len(state.Game.Players) != roster {
		mh.updateLabel(state, dispatcher, logger)
	}
	return nil
}

// persist writes the room guarded by the version this match last wrote. A version
// conflict means another match owns the room now, so this one stops serving it.
func (mh *matchHandler) persist(ctx context.Context, state *MatchState, logger runtime.Logger) error {
	if state.Superseded {
		return ports.ErrVersionConflict
	}
	version, err := state.Store.Store(ctx, state.RoomID, state.Game, state.Version)
	if err != nil {
		logger.Error("Failed to persist room %s: %v", state.RoomID, err)
		if errors.Is(err, ports.ErrVersionConflict) {
			state.Superseded = true
		}
		return err
	}
	state.Version = version
	return nil
}

// abandon kicks everyone from a superseded match and ends it. Clients rejoin through
// find_room, which points them at the match that owns the room.
func (mh *matchHandler) abandon(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) interface{} {
	logger.Warn("Room %s is served by another match, terminating.", state.RoomID)
	presences := make([]runtime.Presence, 0, len(state.Presences))
	for _, p := range state.Presences {
		presences = append(presences, p)
	}
	if len(presences) > 0 {
		if err := dispatcher.MatchKick(presences); err != nil {
			logger.Error("Failed to kick players from room %s: %v", state.RoomID, err)
		}
	}
	return nil
}

func (mh *matchHandler) publish(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, events []app.Event) {
	pub := NewDispatcherPublisher(dispatcher, state.Presences)
	if err := app.Publish(ctx, pub, state.RoomID, events); err != nil {
		logger.Error("Failed to publish to room %s: %v", state.RoomID, err)
	}
}

func (mh *matchHandler) processBots(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	// 1. Auto-fill the lobby with bots if a single human has been waiting
	if state.Game.Phase == domain.PhaseLobby {
		target := min(botAutoFillTarget, state.App.MaxPlayers())
		if state.GetHumanPresenceCount() == 1 && len(state.Game.Players) < target {
			if state.LastSinglePlayerTick == 0 {
				state.LastSinglePlayerTick = state.Tick
				logger.Debug("processBots: Single player detected, starting auto-fill timer.")
			}

			if state.Tick-state.LastSinglePlayerTick >= int64(state.BotAutoFillDelay) {
				mh.fillWithBots(ctx, state, dispatcher, logger, target)
				state.LastSinglePlayerTick = 0
			}
		} else {
			state.LastSinglePlayerTick = 0
		}
	}

	// 2. Handle bot turns in-game
	if state.Game.Phase != domain.PhaseBidding {
		state.BotWaitUntil = 0
		return
	}

	botID := state.Game.CurrentTurn
	agent, isBot := state.Bots[botID]
	if !isBot {
		// Not a bot turn, reset wait if it was set
		state.BotWaitUntil = 0
		return
	}

	if state.BotWaitUntil == 0 {
		delay := rand.Intn(state.BotMaxDelay-state.BotMinDelay+1) + state.BotMinDelay
		state.BotWaitUntil = state.Tick + int64(delay)
		logger.Debug("processBots: Bot %s will act at tick %d (current %d)", botID, state.BotWaitUntil, state.Tick)
	}
	if state.Tick < state.BotWaitUntil {
		return
	}
	state.BotWaitUntil = 0

	move, err := agent.Play(state.Game)
	if err != nil {
		logger.Error("processBots: Bot %s failed to calculate move: %v", botID, err)
		return
	}
	if err := mh.apply(ctx, state, dispatcher, logger, moveCommand(botID, move)); err != nil {
		logger.Error("processBots: Bot %s move %s rejected: %v", botID, move.Kind, err)
	}
}

// fillWithBots seats bots from the identity pool until the roster reaches target.
func (mh *matchHandler) fillWithBots(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, target int) {
	attempts := bot.PoolSize() + target
	for i := 0; i < attempts && len(state.Game.Players) < target; i++ {
		identity := bot.GetBotIdentity(i)
		if state.Game.FindPlayer(identity.UserID) >= 0 {
			continue
		}

		agent, err := bot.NewAgent(identity)
		if err != nil {
			logger.Error("Failed to create bot agent for %s: %v", identity.UserID, err)
			continue
		}

		cmd := app.Command{Type: app.CommandJoin, PlayerID: agent.ID, Name: agent.Name}
		if err := mh.apply(ctx, state, dispatcher, logger, cmd); err != nil {
			return
		}
		state.Bots[agent.ID] = agent
		logger.Info("processBots: Added bot %s (%s) to room %s", agent.Name, agent.ID, state.RoomID)
	}
}

// sendError sends an error payload to a specific player.
func (mh *matchHandler) sendError(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, playerID string, cause error) {
	if _, ok := state.Presences[playerID]; !ok {
		logger.Warn("Cannot send error to %s: Presence not found", playerID)
		return
	}
	pub := NewDispatcherPublisher(dispatcher, state.Presences)
	if err := pub.PublishPrivate(ctx, state.RoomID, playerID, visibility.ErrorMessage(cause)); err != nil {
		logger.Error("Failed to send error to %s: %v", playerID, err)
	}
}

// encodeLabel renders the match label used by find_room and match listings.
func encodeLabel(state *MatchState) (string, error) {
	label, err := structpb.NewStruct(map[string]interface{}{
		MatchLabelKeyGame:    matchLabelGame,
		MatchLabelKeyRoom:    state.RoomID,
		MatchLabelKeyPhase:   string(state.Game.Phase),
		MatchLabelKeyOpen:    state.IsOpen(),
		MatchLabelKeyPlayers: len(state.Game.Players),
		MatchLabelKeyPrivate: state.Private,
	})
	if err != nil {
		return "", err
	}
	labelBytes, err := protojson.Marshal(label)
	if err != nil {
		return "", err
	}
	return string(labelBytes), nil
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	label, err := encodeLabel(state)
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(label); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	if matchState, ok := state.(*MatchState); ok {
		mh.persist(ctx, matchState, logger)
	}
	logger.Debug("MatchTerminate: Match terminated with %d grace seconds", graceSeconds)
	return state
}

// MatchSignal answers "state" with the public projection of the room.
func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	matchState, ok := state.(*MatchState)
	if !ok || data != "state" {
		return state, ""
	}
	b, err := json.Marshal(visibility.PublicProjection(matchState.Game))
	if err != nil {
		logger.Error("MatchSignal: Failed to marshal state: %v", err)
		return state, ""
	}
	return state, string(b)
}
