package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"jhitster/internal/app"
	"jhitster/internal/config"
	"jhitster/internal/domain"
	"jhitster/internal/packs"
	"jhitster/internal/ports"
	"jhitster/internal/protocol"

	"github.com/heroiclabs/nakama-common/runtime"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	tickRate = 1 // ticks per second

	previewTimeout = 5 * time.Second
)

var (
	errPresenceNotFound = errors.New("presence not found")
	errNoDispatcher     = errors.New("no match dispatcher bound")
)

// MatchState holds the authoritative runtime state for the Nakama match handler.
type MatchState struct {
	Host      *app.Host                   // owns the game; only touched from match callbacks
	Presences map[string]runtime.Presence // Map UserId -> Presence for targeted messaging
	Tick      int64
	MatchID   string
	PackIDs   []string

	transport *dispatcherTransport
	label     string // last label pushed to Nakama
}

// newMatchState builds the state around a fresh Host that sends through the match dispatcher.
func newMatchState(cfg config.GameConfig, logger runtime.Logger) *MatchState {
	presences := make(map[string]runtime.Presence)
	transport := &dispatcherTransport{presences: presences}
	return &MatchState{
		Host:      app.NewHost(cfg, transport, logger, nil),
		Presences: presences,
		transport: transport,
	}
}

// bind points the transport at the dispatcher of the current callback.
func (ms *MatchState) bind(dispatcher runtime.MatchDispatcher) {
	ms.transport.dispatcher = dispatcher
}

// dispatcherTransport sends host messages as match data. Peer ids are Nakama user ids.
type dispatcherTransport struct {
	dispatcher runtime.MatchDispatcher
	presences  map[string]runtime.Presence
}

func (t *dispatcherTransport) Broadcast(msg protocol.HostMessage) error {
	return t.send(msg, nil)
}

func (t *dispatcherTransport) SendTo(userID string, msg protocol.HostMessage) error {
	p, ok := t.presences[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, errPresenceNotFound)
	}
	return t.send(msg, []runtime.Presence{p})
}

func (t *dispatcherTransport) send(msg protocol.HostMessage, recipients []runtime.Presence) error {
	if t.dispatcher == nil {
		return errNoDispatcher
	}
	op, data, err := hostFrame(msg)
	if err != nil {
		return err
	}
	return t.dispatcher.BroadcastMessage(op, data, recipients, nil, true)
}

// matchSignaler is the part of runtime.NakamaModule used to hand preview results back to the
// match loop.
type matchSignaler interface {
	MatchSignal(ctx context.Context, id string, data string) (string, error)
}

type previewSignal struct {
	SongID     int    `json:"songId"`
	PreviewURL string `json:"previewUrl"`
}

// signalPreviews resolves previews off the match loop and delivers them through MatchSignal.
type signalPreviews struct {
	resolver ports.PreviewResolver
	signaler matchSignaler
	matchID  string
	logger   runtime.Logger
}

func (p *signalPreviews) RequestPreview(song domain.Song) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), previewTimeout)
		defer cancel()

		url, err := p.resolver.Resolve(ctx, song)
		if err != nil {
			p.logger.Warn("RequestPreview: lookup for song %d failed: %v", song.ID, err)
			url = ""
		}
		data, err := json.Marshal(previewSignal{SongID: song.ID, PreviewURL: url})
		if err != nil {
			p.logger.Error("RequestPreview: failed to marshal signal: %v", err)
			return
		}
		if _, err := p.signaler.MatchSignal(ctx, p.matchID, string(data)); err != nil {
			p.logger.Warn("RequestPreview: failed to signal match %s: %v", p.matchID, err)
		}
	}()
}

type matchHandler struct {
	catalog  *packs.Catalog
	resolver ports.PreviewResolver
}

func newMatchHandler(catalog *packs.Catalog, resolver ports.PreviewResolver) *matchHandler {
	if catalog == nil {
		catalog = packs.NewCatalog()
	}
	return &matchHandler{catalog: catalog, resolver: resolver}
}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing match handler.")

	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	if err := config.LoadGameConfig(envOr(env, EnvGameConfig, defaultGameConfigPath)); err != nil {
		logger.Warn("MatchInit: Could not load game config, using defaults: %v", err)
	}
	cfg := config.GetGameConfig()

	state := newMatchState(cfg, logger)
	state.MatchID, _ = ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)
	state.PackIDs = mh.packIDs(params, cfg)

	songs, err := mh.catalog.LoadSongs(ctx, state.PackIDs)
	if err != nil {
		logger.Warn("MatchInit: Could not load packs %v: %v", state.PackIDs, err)
	} else if err := state.Host.SetPacks(state.PackIDs, songs); err != nil {
		logger.Warn("MatchInit: Could not set packs: %v", err)
	}

	if mh.resolver != nil && nk != nil {
		state.Host.SetPreviewRequester(&signalPreviews{
			resolver: mh.resolver,
			signaler: nk,
			matchID:  state.MatchID,
			logger:   logger,
		})
	}

	label, err := matchLabel(state)
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}
	state.label = label
	return state, tickRate, label
}

// packIDs picks the packs of a new match: the "packs" create parameter, then the configured
// defaults, then every known pack.
func (mh *matchHandler) packIDs(params map[string]interface{}, cfg config.GameConfig) []string {
	var ids []string
	switch v := params["packs"].(type) {
	case string:
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	case []interface{}:
		for _, item := range v {
			if id, ok := item.(string); ok && id != "" {
				ids = append(ids, id)
			}
		}
	case []string:
		ids = append(ids, v...)
	}
	if len(ids) > 0 {
		return ids
	}
	if len(cfg.DefaultPacks) > 0 {
		return append([]string(nil), cfg.DefaultPacks...)
	}
	for _, p := range mh.catalog.Packs() {
		ids = append(ids, p.ID)
	}
	return ids
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	if matchState.Host.SeatOf(presence.GetUserId()) >= 0 {
		return state, true, ""
	}
	if matchState.Host.Stage() != app.StageLobby {
		return state, false, "Game in progress"
	}
	if matchState.Host.OpenSeats() <= 0 {
		return state, false, "Match full"
	}
	return state, true, ""
}

// MatchJoin seats every new presence under its username; returning users get a resync.
func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}
	matchState.bind(dispatcher)

	for _, p := range presences {
		matchState.Presences[p.GetUserId()] = p
		matchState.Host.HandlePeerMessage(p.GetUserId(), protocol.Join{RequestedName: p.GetUsername()})
	}

	mh.updateLabel(matchState, dispatcher, logger)
	return matchState
}

// MatchLeave is called when one or more players leave the match.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}
	matchState.bind(dispatcher)

	for _, p := range presences {
		delete(matchState.Presences, p.GetUserId())
		matchState.Host.Leave(p.GetUserId())
	}

	if len(matchState.Presences) == 0 {
		logger.Info("MatchLeave: Terminating match with no players connected.")
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
	matchState.bind(dispatcher)
	matchState.Tick = tick

	for _, msg := range messages {
		intent, err := guestMessage(msg.GetOpCode(), msg.GetData())
		if err != nil {
			logger.Warn("MatchLoop: Bad message from %s (op %d): %v", msg.GetUserId(), msg.GetOpCode(), err)
			mh.sendError(matchState, logger, msg.GetUserId(), app.CodeBadRequest, err.Error())
			continue
		}
		matchState.Host.HandlePeerMessage(msg.GetUserId(), intent)
	}

	matchState.Host.Tick(time.Second / tickRate)
	mh.updateLabel(matchState, dispatcher, logger)
	return matchState
}

// sendError sends an ERROR message to a specific user.
func (mh *matchHandler) sendError(state *MatchState, logger runtime.Logger, userID string, code int, message string) {
	if err := state.transport.SendTo(userID, protocol.Error{Code: code, Message: message}); err != nil {
		logger.Warn("Cannot send error to %s: %v", userID, err)
	}
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	label, err := matchLabel(state)
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if label == state.label {
		return
	}
	if err := dispatcher.MatchLabelUpdate(label); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
		return
	}
	state.label = label
}

// matchLabel renders the searchable label, e.g. {"game":"jhitster","open":6,"phase":"lobby",...}.
func matchLabel(state *MatchState) (string, error) {
	phase := "playing"
	switch state.Host.Stage() {
	case app.StageLobby:
		phase = "lobby"
	case app.StageOver:
		phase = "over"
	}
	packIDs := make([]interface{}, len(state.PackIDs))
	for i, id := range state.PackIDs {
		packIDs[i] = id
	}

	label, err := structpb.NewStruct(map[string]interface{}{
		"game":    MatchLabelGame,
		"open":    state.Host.OpenSeats(),
		"phase":   phase,
		"players": len(state.Host.Seats()),
		"packs":   packIDs,
	})
	if err != nil {
		return "", err
	}
	labelBytes, err := (&protojson.MarshalOptions{EmitUnpopulated: true}).Marshal(label)
	if err != nil {
		return "", err
	}
	return string(labelBytes), nil
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	logger.Debug("MatchTerminate: Match terminated with %d grace seconds", graceSeconds)
	return state
}

// MatchSignal receives preview results resolved outside the match loop.
func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, "state not found"
	}
	matchState.bind(dispatcher)

	var signal previewSignal
	if err := json.Unmarshal([]byte(data), &signal); err != nil || signal.SongID == 0 {
		logger.Warn("MatchSignal: Ignoring unknown signal %q", data)
		return matchState, "unknown signal"
	}
	matchState.Host.PreviewResolved(signal.SongID, signal.PreviewURL)
	return matchState, ""
}

func envOr(env map[string]string, key, def string) string {
	if v, ok := env[key]; ok && v != "" {
		return v
	}
	return def
}
