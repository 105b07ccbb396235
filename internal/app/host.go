package app

import (
	"fmt"
	"math/rand"
	"strings"

	"jhitster/internal/config"
	"jhitster/internal/domain"
	"jhitster/internal/ports"
	"jhitster/internal/protocol"

	"github.com/heroiclabs/nakama-common/runtime"
)

// Stage is where the host's session currently stands.
type Stage string

const (
	StageLobby   Stage = "lobby"
	StagePlacing Stage = "placing"
	StageWindow  Stage = "window"
	StageResult  Stage = "result"
	StageOver    Stage = "over"
)

// Seat is one participant. Seats driven from the host device have no peer id.
type Seat struct {
	PeerID    string
	Name      string
	Connected bool
}

// Local reports whether the seat is played on the host device.
func (s Seat) Local() bool {
	return s.PeerID == ""
}

// Host owns the canonical GameState and is the only caller of the reducer in a session.
// It is not safe for concurrent use: exactly one goroutine (a Runner or the Nakama match loop)
// drives it, which keeps state single-writer without locks.
type Host struct {
	cfg       config.GameConfig
	transport ports.Transport
	previews  ports.PreviewRequester
	logger    runtime.Logger
	reducer   *domain.Reducer
	state     domain.GameState

	seats []Seat
	owner string // peer id allowed to send START_GAME

	stage turnStage
}

// NewHost constructs a Host in the lobby. transport may be nil for a same-device game; rng may
// be nil to use a time-seeded default.
func NewHost(cfg config.GameConfig, transport ports.Transport, logger runtime.Logger, rng *rand.Rand) *Host {
	if transport == nil {
		transport = discardTransport{}
	}
	h := &Host{
		cfg:       cfg,
		transport: transport,
		logger:    logger,
		reducer:   domain.NewReducer(rng),
		state:     domain.InitialState(),
		stage:     turnStage{current: StageLobby},
	}
	h.dispatch(domain.SetTargetLength{Length: cfg.TargetTimelineLength})
	return h
}

// SetPreviewRequester enables asynchronous preview lookups for cards without a preview URL.
func (h *Host) SetPreviewRequester(p ports.PreviewRequester) {
	h.previews = p
}

// State returns the canonical state. The value is never mutated afterwards.
func (h *Host) State() domain.GameState {
	return h.state
}

// Stage returns the current stage of the session.
func (h *Host) Stage() Stage {
	return h.stage.current
}

// Seats returns a copy of the seat list in player-index order.
func (h *Host) Seats() []Seat {
	return append([]Seat(nil), h.seats...)
}

// Owner returns the peer id of the room owner, or "" when no guest is seated.
func (h *Host) Owner() string {
	return h.owner
}

// OpenSeats is the number of guests that can still join.
func (h *Host) OpenSeats() int {
	if h.stage.current != StageLobby {
		return 0
	}
	return max(0, h.cfg.MaxPlayers-len(h.seats))
}

// SeatOf returns the player index of peerID, or -1.
func (h *Host) SeatOf(peerID string) int {
	if peerID == "" {
		return -1
	}
	for i, s := range h.seats {
		if s.PeerID == peerID {
			return i
		}
	}
	return -1
}

// SetPacks records the song pool for the next game.
func (h *Host) SetPacks(packIDs []string, songs []domain.Song) error {
	if h.stage.current != StageLobby {
		return ErrNotInLobby
	}
	h.dispatch(domain.SetPacks{PackIDs: packIDs, Songs: songs})
	h.logger.Info("SetPacks: %d songs from packs %v.", len(songs), packIDs)
	return nil
}

// AddLocalPlayer seats a player on the host device. Local seats come before every guest, so
// guests shift down by one and are told their new index.
func (h *Host) AddLocalPlayer(name string) (int, error) {
	if h.stage.current != StageLobby {
		return -1, ErrNotInLobby
	}
	if len(h.seats) >= h.cfg.MaxPlayers {
		return -1, ErrRoomFull
	}

	idx := 0
	for idx < len(h.seats) && h.seats[idx].Local() {
		idx++
	}
	seat := Seat{Name: h.uniqueName(name, idx), Connected: true}
	h.seats = append(h.seats[:idx], append([]Seat{seat}, h.seats[idx:]...)...)
	h.logger.Info("AddLocalPlayer: %q seated at index %d.", seat.Name, idx)

	for i := idx + 1; i < len(h.seats); i++ {
		h.sendAssignment(i)
	}
	h.broadcast(h.gameStateMessage())
	return idx, nil
}

// Start deals the first hand. A room with guests needs the configured minimum of players; a
// same-device room can be played solo.
func (h *Host) Start() error {
	if h.stage.current == StageOver {
		h.rematch()
	}
	if h.stage.current != StageLobby {
		return ErrNotInLobby
	}
	if len(h.seats) == 0 || (h.networked() && len(h.seats) < h.cfg.MinPlayers) {
		return ErrTooFewPlayers
	}
	if len(h.state.Songs) == 0 {
		return ErrNoSongs
	}

	mode := domain.GameModeLocal
	if h.networked() {
		mode = domain.GameModeMultiplayer
	}
	names := make([]string, len(h.seats))
	for i, s := range h.seats {
		names[i] = s.Name
	}

	h.dispatch(domain.SetGameMode{Mode: mode})
	h.dispatch(domain.SetPlayers{Names: names})
	h.dispatch(domain.SetTargetLength{Length: h.cfg.TargetTimelineLength})
	h.dispatch(domain.DealInitialCards{CardsPerHand: h.cfg.CardsPerHand})
	h.logger.Info("Start: %d players, %s mode, %d cards left in deck.", len(names), mode, len(h.state.Deck))

	h.beginTurn()
	return nil
}

// rematch returns a finished session to the lobby with the same seats and song pool.
func (h *Host) rematch() {
	h.dispatch(domain.Reset{})
	h.dispatch(domain.SetTargetLength{Length: h.cfg.TargetTimelineLength})
	h.stage = turnStage{current: StageLobby}
	h.logger.Info("Rematch: session reset to lobby.")
	h.broadcast(h.gameStateMessage())
}

// HandlePeerMessage applies an intent received from a guest. Rejections are logged and answered
// with a targeted ERROR; they never reach the reducer.
func (h *Host) HandlePeerMessage(peerID string, msg protocol.GuestMessage) {
	var err error
	switch m := msg.(type) {
	case protocol.Join:
		err = h.join(peerID, m.RequestedName)
	case protocol.StartGame:
		if peerID != h.owner {
			err = ErrNotOwner
		} else {
			err = h.Start()
		}
	case protocol.RequestState:
		h.sendSnapshot(peerID)
	default:
		idx := h.SeatOf(peerID)
		if idx < 0 {
			err = ErrUnknownPeer
		} else {
			err = h.Apply(idx, msg)
		}
	}

	if err != nil {
		h.logger.Warn("HandlePeerMessage: %s from %s rejected: %v", msg.MessageType(), peerID, err)
		h.send(peerID, protocol.Error{Code: errorCode(err), Message: err.Error()})
	}
}

// Apply performs an in-game intent on behalf of playerIndex. Local input and remote guests
// both end up here.
func (h *Host) Apply(playerIndex int, msg protocol.GuestMessage) error {
	switch m := msg.(type) {
	case protocol.PendingPosition:
		return h.setPending(playerIndex, m.Position)
	case protocol.CancelPlacement:
		return h.setPending(playerIndex, nil)
	case protocol.ConfirmPlacement:
		return h.confirm(playerIndex, m.Position)
	case protocol.UseToken:
		return h.useToken(playerIndex, m.Position)
	case protocol.SkipSong:
		return h.skip(playerIndex)
	case protocol.StartGame:
		return h.Start()
	case protocol.RequestState, protocol.Join:
		return nil
	default:
		return fmt.Errorf("unsupported intent %s", msg.MessageType())
	}
}

// Leave handles a disconnected peer. A lobby seat is freed; a seat in a running game is kept.
func (h *Host) Leave(peerID string) {
	idx := h.SeatOf(peerID)
	if idx < 0 {
		return
	}

	if h.stage.current == StageLobby {
		name := h.seats[idx].Name
		h.seats = append(h.seats[:idx], h.seats[idx+1:]...)
		h.logger.Info("Leave: %s (%q) left the lobby, seat %d freed.", peerID, name, idx)
		for i := idx; i < len(h.seats); i++ {
			h.sendAssignment(i)
		}
	} else {
		h.seats[idx].Connected = false
		h.logger.Warn("Leave: %s (%q) disconnected mid-game, seat %d kept.", peerID, h.seats[idx].Name, idx)
	}

	if h.owner == peerID {
		h.owner = ""
		for _, s := range h.seats {
			if !s.Local() && s.Connected {
				h.owner = s.PeerID
				break
			}
		}
		h.logger.Debug("Leave: owner is now %q.", h.owner)
	}

	if h.stage.current == StageLobby {
		h.broadcast(h.gameStateMessage())
	}
}

func (h *Host) join(peerID, requested string) error {
	if idx := h.SeatOf(peerID); idx >= 0 {
		h.seats[idx].Connected = true
		h.logger.Info("Join: %s rejoined as %q.", peerID, h.seats[idx].Name)
		h.sendSnapshot(peerID)
		return nil
	}
	if h.stage.current != StageLobby {
		return ErrNotInLobby
	}
	if len(h.seats) >= h.cfg.MaxPlayers {
		return ErrRoomFull
	}

	idx := len(h.seats)
	h.seats = append(h.seats, Seat{PeerID: peerID, Name: h.uniqueName(requested, idx), Connected: true})
	if h.owner == "" {
		h.owner = peerID
	}
	h.logger.Info("Join: %s seated as %q at index %d.", peerID, h.seats[idx].Name, idx)

	h.sendAssignment(idx)
	h.broadcast(h.gameStateMessage())
	return nil
}

func (h *Host) uniqueName(requested string, idx int) string {
	base := strings.TrimSpace(requested)
	if base == "" {
		base = fmt.Sprintf("Player %d", idx+1)
	}
	name := base
	for n := 2; h.nameTaken(name); n++ {
		name = fmt.Sprintf("%s (%d)", base, n)
	}
	return name
}

func (h *Host) nameTaken(name string) bool {
	for _, s := range h.seats {
		if strings.EqualFold(s.Name, name) {
			return true
		}
	}
	return false
}

func (h *Host) networked() bool {
	for _, s := range h.seats {
		if !s.Local() {
			return true
		}
	}
	return false
}

func (h *Host) dispatch(a domain.Action) {
	h.state = h.reducer.Reduce(h.state, a)
}

func (h *Host) gameStateMessage() protocol.GameState {
	players := h.state.Players
	if h.stage.current == StageLobby {
		players = make([]domain.Player, len(h.seats))
		for i, s := range h.seats {
			players[i] = domain.Player{Name: s.Name, Timeline: []domain.Song{}, Hand: []domain.Song{}, Tokens: domain.StartingTokens}
		}
	}
	return protocol.GameState{
		Players:              players,
		CurrentPlayerIndex:   h.state.CurrentPlayerIndex,
		Phase:                h.state.Phase,
		TargetTimelineLength: h.state.TargetTimelineLength,
		DeckSize:             len(h.state.Deck),
	}
}

func (h *Host) sendAssignment(idx int) {
	s := h.seats[idx]
	if s.Local() {
		return
	}
	h.send(s.PeerID, protocol.PlayerAssignment{PlayerIndex: idx, PlayerName: s.Name})
}

func (h *Host) broadcast(msg protocol.HostMessage) {
	if err := h.transport.Broadcast(msg); err != nil {
		h.logger.Warn("Broadcast: %s failed: %v", msg.MessageType(), err)
	}
}

func (h *Host) send(peerID string, msg protocol.HostMessage) {
	if peerID == "" {
		return
	}
	if err := h.transport.SendTo(peerID, msg); err != nil {
		h.logger.Warn("SendTo: %s to %s failed: %v", msg.MessageType(), peerID, err)
	}
}

type discardTransport struct{}

func (discardTransport) Broadcast(protocol.HostMessage) error      { return nil }
func (discardTransport) SendTo(string, protocol.HostMessage) error { return nil }
