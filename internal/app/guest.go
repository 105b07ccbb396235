package app

import (
	"slices"
	"sync"
	"time"

	"jhitster/internal/domain"
	"jhitster/internal/ports"
	"jhitster/internal/protocol"

	"github.com/heroiclabs/nakama-common/runtime"
)

// GuestPhase is what a guest's screen is showing.
type GuestPhase string

const (
	GuestWaiting     GuestPhase = "waiting"
	GuestYourTurn    GuestPhase = "yourTurn"
	GuestTokenWindow GuestPhase = "tokenWindow"
	GuestTurnResult  GuestPhase = "turnResult"
	GuestGameOver    GuestPhase = "gameOver"
)

// GuestView is the guest's disposable projection of the host's state. It is overwritten by
// host broadcasts and never fed back to the host.
type GuestView struct {
	Phase       GuestPhase
	PlayerIndex int // -1 until PLAYER_ASSIGNMENT
	PlayerName  string

	Players              []domain.Player
	CurrentPlayerIndex   int
	GamePhase            domain.Phase
	TargetTimelineLength int
	DeckSize             int

	Timeline        []domain.Song
	CurrentCard     *domain.Song
	Tokens          int
	PendingPosition *int // own selection, for highlight only

	ActivePending  *int // the active player's ghost cursor
	ActiveTimeline []domain.Song

	TokenTimeline  []domain.Song
	TokenCard      *domain.Song
	TimeRemaining  time.Duration
	TakenPositions []int
	TokenUsed      bool

	TurnResult *protocol.TurnResult
	Winner     *string

	PreviewURL   *string
	AudioPlaying bool

	LastError *protocol.Error
}

// Guest renders host broadcasts into a GuestView and turns local input into intents. It holds
// no authoritative state.
type Guest struct {
	link   ports.HostLink
	logger runtime.Logger

	mu   sync.Mutex
	view GuestView
}

// NewGuest constructs a guest that sends its intents over link.
func NewGuest(link ports.HostLink, logger runtime.Logger) *Guest {
	return &Guest{
		link:   link,
		logger: logger,
		view: GuestView{
			Phase:       GuestWaiting,
			PlayerIndex: -1,
			Tokens:      domain.StartingTokens,
		},
	}
}

// View returns a copy of the current projection.
func (g *Guest) View() GuestView {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.view
}

// Apply folds a host message into the projection.
func (g *Guest) Apply(msg protocol.HostMessage) {
	g.mu.Lock()
	defer g.mu.Unlock()
	v := &g.view

	switch m := msg.(type) {
	case protocol.GameState:
		v.Players = m.Players
		v.CurrentPlayerIndex = m.CurrentPlayerIndex
		v.GamePhase = m.Phase
		v.TargetTimelineLength = m.TargetTimelineLength
		v.DeckSize = m.DeckSize
		if v.PlayerIndex >= 0 && v.PlayerIndex < len(m.Players) {
			v.Tokens = m.Players[v.PlayerIndex].Tokens
		}
		switch v.Phase {
		case GuestTokenWindow, GuestGameOver:
		case GuestYourTurn:
			if m.CurrentPlayerIndex != v.PlayerIndex {
				v.Phase = GuestWaiting
			}
		default:
			v.Phase = GuestWaiting
		}

	case protocol.YourTurn:
		v.Timeline = m.Timeline
		v.CurrentCard = m.CurrentCard
		v.Tokens = m.Tokens
		v.PendingPosition = nil
		v.Phase = GuestYourTurn

	case protocol.TokenWindow:
		if v.Phase != GuestTokenWindow {
			v.TokenUsed = false
		}
		card := m.Card
		v.TokenTimeline = m.Timeline
		v.TokenCard = &card
		v.TimeRemaining = time.Duration(m.TimeRemaining) * time.Second
		v.TakenPositions = m.TakenPositions
		v.Phase = GuestTokenWindow

	case protocol.TurnResult:
		v.TurnResult = &m
		v.ActivePending = nil
		v.Phase = GuestTurnResult

	case protocol.GameOver:
		winner := m.Winner
		v.Winner = &winner
		v.Phase = GuestGameOver

	case protocol.PlayerAssignment:
		v.PlayerIndex = m.PlayerIndex
		v.PlayerName = m.PlayerName

	case protocol.AudioSync:
		v.PreviewURL = m.PreviewURL
		v.AudioPlaying = m.Playing

	case protocol.PendingPlacement:
		v.ActivePending = m.Position
		v.ActiveTimeline = m.Timeline

	case protocol.Error:
		v.LastError = &m
		g.logger.Warn("Guest: host rejected intent (%d): %s", m.Code, m.Message)
	}
}

// Join asks the host for a seat.
func (g *Guest) Join(name string) error {
	return g.link.Send(protocol.Join{RequestedName: name})
}

// StartGame asks a headless host to deal. Only the room owner is accepted.
func (g *Guest) StartGame() error {
	return g.link.Send(protocol.StartGame{})
}

// RequestState asks the host to resend the current moment.
func (g *Guest) RequestState() error {
	return g.link.Send(protocol.RequestState{})
}

// Select reacts to a tap on a timeline gap: during the guest's turn it moves the tentative
// selection, during a steal window it spends the token.
func (g *Guest) Select(position int) error {
	g.mu.Lock()
	v := &g.view
	var msg protocol.GuestMessage
	switch v.Phase {
	case GuestYourTurn:
		v.PendingPosition = protocol.Position(position)
		msg = protocol.PendingPosition{Position: protocol.Position(position)}
	case GuestTokenWindow:
		switch {
		case v.PlayerIndex == v.CurrentPlayerIndex:
			g.mu.Unlock()
			return ErrActiveCannotSteal
		case v.Tokens <= 0:
			g.mu.Unlock()
			return ErrNoTokens
		case v.TokenUsed:
			g.mu.Unlock()
			return ErrTokenUsed
		case slices.Contains(v.TakenPositions, position):
			g.mu.Unlock()
			return ErrPositionTaken
		}
		v.TokenUsed = true
		msg = protocol.UseToken{Position: position}
	default:
		g.mu.Unlock()
		return ErrNotYourTurn
	}
	g.mu.Unlock()
	return g.link.Send(msg)
}

// Confirm commits the tentative selection.
func (g *Guest) Confirm() error {
	g.mu.Lock()
	v := &g.view
	if v.Phase != GuestYourTurn {
		g.mu.Unlock()
		return ErrNotYourTurn
	}
	if v.PendingPosition == nil {
		g.mu.Unlock()
		return ErrNoSelection
	}
	pos := *v.PendingPosition
	v.PendingPosition = nil
	v.Phase = GuestWaiting
	g.mu.Unlock()
	return g.link.Send(protocol.ConfirmPlacement{Position: pos})
}

// Cancel clears the tentative selection.
func (g *Guest) Cancel() error {
	g.mu.Lock()
	if g.view.Phase != GuestYourTurn {
		g.mu.Unlock()
		return ErrNotYourTurn
	}
	g.view.PendingPosition = nil
	g.mu.Unlock()
	return g.link.Send(protocol.CancelPlacement{})
}

// Skip spends a token to swap the current song.
func (g *Guest) Skip() error {
	g.mu.Lock()
	phase, tokens := g.view.Phase, g.view.Tokens
	g.mu.Unlock()
	if phase != GuestYourTurn {
		return ErrNotYourTurn
	}
	if tokens <= 0 {
		return ErrNoTokens
	}
	return g.link.Send(protocol.SkipSong{})
}

// Tick runs the display-only countdown of the steal window. Reaching zero resolves nothing;
// the guest waits for TURN_RESULT.
func (g *Guest) Tick(elapsed time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.view.Phase != GuestTokenWindow {
		return
	}
	g.view.TimeRemaining = max(0, g.view.TimeRemaining-elapsed)
}
