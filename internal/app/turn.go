package app

import (
	"slices"
	"time"

	"jhitster/internal/domain"
	"jhitster/internal/protocol"
)

// turnStage is the host-only bookkeeping around the reducer: what the active player has
// selected, the open steal window and the timers the host is the sole authority for.
type turnStage struct {
	current Stage
	pending *int
	placed  int
	window  stealWindow
	hold    time.Duration
	resync  time.Duration
	audio   *string

	lastResult *protocol.TurnResult
	lastOver   *protocol.GameOver
}

type stealWindow struct {
	remaining  time.Duration
	placements []domain.TokenPlacement // in arrival order
	used       map[int]bool
	taken      []int
}

func (w stealWindow) seconds() int {
	if w.remaining <= 0 {
		return 0
	}
	return int((w.remaining + time.Second - 1) / time.Second)
}

// Tick advances the host clock. The steal window, the result hold and the periodic
// GAME_STATE re-broadcast all count down here.
func (h *Host) Tick(elapsed time.Duration) {
	switch h.stage.current {
	case StageWindow:
		h.stage.window.remaining -= elapsed
		if h.stage.window.remaining <= 0 {
			h.resolve()
			return
		}
	case StageResult:
		h.stage.hold -= elapsed
		if h.stage.hold <= 0 {
			h.advance()
		}
		return
	case StagePlacing:
		if h.activeAbsent() {
			h.passTurn()
			return
		}
	default:
		return
	}

	h.stage.resync -= elapsed
	if h.stage.resync <= 0 {
		h.stage.resync = h.cfg.ResyncInterval()
		h.broadcast(h.gameStateMessage())
	}
}

// NextTurn ends the result hold early.
func (h *Host) NextTurn() error {
	if h.stage.current != StageResult {
		return ErrNotPlaying
	}
	h.advance()
	return nil
}

// PreviewResolved delivers the result of a lookup started through the PreviewRequester.
// Results for a card that is no longer current are dropped.
func (h *Host) PreviewResolved(songID int, url string) {
	card := h.state.CurrentCard
	if h.stage.current != StagePlacing || card == nil || card.ID != songID || h.stage.audio != nil {
		h.logger.Debug("PreviewResolved: dropping stale preview for song %d.", songID)
		return
	}
	if url == "" {
		h.noPreview()
		return
	}
	h.setAudio(url)
}

// activeAbsent reports whether the active seat's guest has disconnected while someone else is
// still playing.
func (h *Host) activeAbsent() bool {
	idx := h.state.CurrentPlayerIndex
	if idx < 0 || idx >= len(h.seats) {
		return false
	}
	if s := h.seats[idx]; s.Local() || s.Connected {
		return false
	}
	for _, s := range h.seats {
		if s.Local() || s.Connected {
			return true
		}
	}
	return false
}

// passTurn discards the current card of a disconnected active player and moves on.
func (h *Host) passTurn() {
	idx := h.state.CurrentPlayerIndex
	h.logger.Warn("PassTurn: %q is disconnected, skipping their turn.", h.seats[idx].Name)
	h.advance()
}

func (h *Host) advance() {
	h.dispatch(domain.NextTurn{})
	h.beginTurn()
}

// beginTurn announces the card that was just drawn, or ends the session in a draw when none
// could be drawn.
func (h *Host) beginTurn() {
	h.stage = turnStage{current: StagePlacing, resync: h.cfg.ResyncInterval()}

	if h.state.CurrentCard == nil {
		h.logger.Info("BeginTurn: deck exhausted, ending in a draw.")
		h.finish("")
		return
	}

	active := h.state.CurrentPlayerIndex
	h.broadcast(h.gameStateMessage())
	h.send(h.seats[active].PeerID, h.yourTurnMessage())

	card := *h.state.CurrentCard
	switch {
	case card.PreviewURL != "":
		h.setAudio(card.PreviewURL)
	case h.previews != nil:
		h.previews.RequestPreview(card)
	default:
		h.noPreview()
	}
}

func (h *Host) setAudio(url string) {
	h.stage.audio = &url
	h.broadcast(protocol.AudioSync{PreviewURL: &url, Playing: true})
}

func (h *Host) noPreview() {
	if h.cfg.RequirePreview {
		h.logger.Debug("BeginTurn: song %d has no preview, redrawing.", h.state.CurrentCard.ID)
		h.dispatch(domain.DrawCard{})
		h.beginTurn()
		return
	}
	h.broadcast(protocol.AudioSync{PreviewURL: nil, Playing: false})
}

func (h *Host) requireTurn(idx int) error {
	if h.stage.current != StagePlacing || h.state.CurrentCard == nil {
		return ErrNotPlaying
	}
	if idx != h.state.CurrentPlayerIndex {
		return ErrNotYourTurn
	}
	return nil
}

func (h *Host) activeTimeline() []domain.Song {
	return domain.SortTimeline(h.state.Players[h.state.CurrentPlayerIndex].Timeline)
}

func (h *Host) validPosition(pos int) bool {
	return pos >= 0 && pos <= len(h.state.Players[h.state.CurrentPlayerIndex].Timeline)
}

func (h *Host) setPending(idx int, pos *int) error {
	if err := h.requireTurn(idx); err != nil {
		return err
	}
	if pos != nil && !h.validPosition(*pos) {
		return ErrInvalidPosition
	}
	h.stage.pending = nil
	if pos != nil {
		h.stage.pending = protocol.Position(*pos)
	}
	h.broadcast(protocol.PendingPlacement{Position: h.stage.pending, Timeline: h.activeTimeline()})
	return nil
}

func (h *Host) confirm(idx, pos int) error {
	if err := h.requireTurn(idx); err != nil {
		return err
	}
	if !h.validPosition(pos) {
		return ErrInvalidPosition
	}
	h.stage.placed = pos
	h.stage.pending = protocol.Position(pos)
	h.logger.Debug("Confirm: player %d placed at %d.", idx, pos)

	if len(h.state.Players) > 1 && h.state.PlayersWithTokens(idx) > 0 {
		h.stage.current = StageWindow
		h.stage.window = stealWindow{
			remaining: h.cfg.StealWindow(h.networked()),
			used:      make(map[int]bool),
			taken:     []int{pos},
		}
		h.broadcast(h.tokenWindowMessage())
		return nil
	}
	h.resolve()
	return nil
}

func (h *Host) useToken(idx, pos int) error {
	if h.stage.current != StageWindow {
		return ErrNoWindow
	}
	if idx < 0 || idx >= len(h.state.Players) {
		return ErrUnknownPeer
	}
	if idx == h.state.CurrentPlayerIndex {
		return ErrActiveCannotSteal
	}
	if h.stage.window.used[idx] {
		return ErrTokenUsed
	}
	if h.state.Players[idx].Tokens <= 0 {
		return ErrNoTokens
	}
	if !h.validPosition(pos) {
		return ErrInvalidPosition
	}
	if slices.Contains(h.stage.window.taken, pos) {
		return ErrPositionTaken
	}

	w := &h.stage.window
	w.placements = append(w.placements, domain.TokenPlacement{PlayerIndex: idx, Position: pos})
	w.used[idx] = true
	w.taken = append(w.taken, pos)
	h.logger.Debug("UseToken: player %d guessed %d (%d guesses).", idx, pos, len(w.placements))
	h.broadcast(h.tokenWindowMessage())
	return nil
}

func (h *Host) skip(idx int) error {
	if err := h.requireTurn(idx); err != nil {
		return err
	}
	if h.state.Players[idx].Tokens <= 0 {
		return ErrNoTokens
	}
	h.dispatch(domain.SkipSong{})
	h.logger.Info("Skip: player %d skipped, %d tokens left.", idx, h.state.Players[idx].Tokens)
	h.beginTurn()
	return nil
}

// resolve judges the placement and the gathered steal guesses, then applies the same judgement
// through the reducer.
func (h *Host) resolve() {
	card := *h.state.CurrentCard
	placed := h.stage.placed
	placements := h.stage.window.placements
	outcome := domain.JudgeTurn(h.activeTimeline(), card, placed, placements)

	if len(h.state.Players) == 1 {
		h.dispatch(domain.PlaceCard{Position: placed})
	} else {
		h.dispatch(domain.ResolveTurn{Position: placed, TokenPlacements: placements})
	}

	result := protocol.TurnResult{WasCorrect: outcome.Correct, Card: card}
	if outcome.Steal != nil {
		stealer := outcome.Steal.PlayerIndex
		result.StealResult = &protocol.StealResult{PlayerIndex: stealer, PlayerName: h.state.Players[stealer].Name}
	}
	h.logger.Info("Resolve: %q (%d) correct=%v steals=%d stolen=%v.", card.Title, card.Year, outcome.Correct, len(placements), outcome.Steal != nil)

	h.stage = turnStage{current: StageResult, hold: h.cfg.ResultHold(), lastResult: &result}
	if h.state.Phase == domain.PhaseVictory {
		h.broadcast(result)
		h.finish(h.state.Winner)
		return
	}
	// State first so guests end up showing the result.
	h.broadcast(h.gameStateMessage())
	h.broadcast(result)
}

// finish ends the session. An empty winner is a draw.
func (h *Host) finish(winner string) {
	over := protocol.GameOver{Winner: winner}
	h.stage.current = StageOver
	h.stage.lastOver = &over
	h.logger.Info("Finish: winner %q.", winner)
	h.broadcast(h.gameStateMessage())
	h.broadcast(over)
}

func (h *Host) yourTurnMessage() protocol.YourTurn {
	p := h.state.Players[h.state.CurrentPlayerIndex]
	return protocol.YourTurn{
		Timeline:    domain.SortTimeline(p.Timeline),
		CurrentCard: h.state.CurrentCard,
		Tokens:      p.Tokens,
	}
}

func (h *Host) tokenWindowMessage() protocol.TokenWindow {
	return protocol.TokenWindow{
		Timeline:       h.activeTimeline(),
		Card:           *h.state.CurrentCard,
		TimeRemaining:  h.stage.window.seconds(),
		TakenPositions: append([]int(nil), h.stage.window.taken...),
	}
}

// sendSnapshot answers REQUEST_STATE (and rejoins) with everything a guest needs to render the
// current moment.
func (h *Host) sendSnapshot(peerID string) {
	h.send(peerID, h.gameStateMessage())
	idx := h.SeatOf(peerID)
	if idx >= 0 {
		h.sendAssignment(idx)
	}

	switch h.stage.current {
	case StagePlacing:
		if idx == h.state.CurrentPlayerIndex {
			h.send(peerID, h.yourTurnMessage())
		}
		if h.stage.pending != nil {
			h.send(peerID, protocol.PendingPlacement{Position: h.stage.pending, Timeline: h.activeTimeline()})
		}
		if h.stage.audio != nil {
			h.send(peerID, protocol.AudioSync{PreviewURL: h.stage.audio, Playing: true})
		}
	case StageWindow:
		h.send(peerID, h.tokenWindowMessage())
	case StageResult:
		if h.stage.lastResult != nil {
			h.send(peerID, *h.stage.lastResult)
		}
	case StageOver:
		if h.stage.lastResult != nil {
			h.send(peerID, *h.stage.lastResult)
		}
		if h.stage.lastOver != nil {
			h.send(peerID, *h.stage.lastOver)
		}
	}
}
