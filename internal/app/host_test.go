package app

import (
	"errors"
	"math/rand"
	"slices"
	"testing"
	"time"

	"jhitster/internal/config"
	"jhitster/internal/domain"
	"jhitster/internal/protocol"
)

func newLobby(t *testing.T, cfg config.GameConfig, songs int, guests ...string) (*Host, *recordingTransport) {
	t.Helper()
	rt := newRecordingTransport()
	h := NewHost(cfg, rt, noopLogger{}, rand.New(rand.NewSource(7)))
	if err := h.SetPacks([]string{"test"}, testSongs(songs)); err != nil {
		t.Fatalf("SetPacks: %v", err)
	}
	for _, g := range guests {
		h.HandlePeerMessage(g, protocol.Join{RequestedName: g})
	}
	return h, rt
}

func startedGame(t *testing.T, cfg config.GameConfig, songs int, guests ...string) (*Host, *recordingTransport) {
	t.Helper()
	h, rt := newLobby(t, cfg, songs, guests...)
	h.HandlePeerMessage(guests[0], protocol.StartGame{})
	if h.Stage() != StagePlacing {
		t.Fatalf("stage = %s after start, want placing", h.Stage())
	}
	return h, rt
}

// placements returns a correct and a wrong gap for the current card on the active timeline.
func placements(t *testing.T, h *Host) (correct, wrong int) {
	t.Helper()
	s := h.State()
	timeline := domain.SortTimeline(s.Players[s.CurrentPlayerIndex].Timeline)
	good := domain.FindCorrectPositions(timeline, *s.CurrentCard)
	for p := 0; p <= len(timeline); p++ {
		if !slices.Contains(good, p) {
			return good[0], p
		}
	}
	t.Fatalf("no wrong position for %v on %v", s.CurrentCard, timeline)
	return 0, 0
}

func TestJoinAssignsSeats(t *testing.T) {
	cfg := config.Defaults()
	cfg.MaxPlayers = 3
	h, rt := newLobby(t, cfg, 10, "peer-a", "peer-b")

	msg, ok := rt.lastSent("peer-b", protocol.TypePlayerAssignment)
	if !ok {
		t.Fatalf("peer-b got no assignment")
	}
	if got := msg.(protocol.PlayerAssignment); got.PlayerIndex != 1 || got.PlayerName != "peer-b" {
		t.Fatalf("assignment = %+v", got)
	}
	if h.Owner() != "peer-a" {
		t.Fatalf("owner = %q, want peer-a", h.Owner())
	}

	state, _ := rt.lastBroadcast(protocol.TypeGameState)
	if gs := state.(protocol.GameState); len(gs.Players) != 2 || gs.Phase != domain.PhaseSetup {
		t.Fatalf("lobby state = %+v", gs)
	}

	h.HandlePeerMessage("peer-c", protocol.Join{RequestedName: "PEER-A"})
	if got := h.Seats()[2].Name; got != "PEER-A (2)" {
		t.Fatalf("duplicate name resolved to %q", got)
	}

	h.HandlePeerMessage("peer-d", protocol.Join{RequestedName: "Dee"})
	errMsg, ok := rt.lastSent("peer-d", protocol.TypeError)
	if !ok || errMsg.(protocol.Error).Code != CodeConflict {
		t.Fatalf("expected room full rejection, got %+v", errMsg)
	}
	if h.OpenSeats() != 0 {
		t.Fatalf("open seats = %d", h.OpenSeats())
	}
}

func TestStartRequiresOwnerAndPlayers(t *testing.T) {
	h, rt := newLobby(t, config.Defaults(), 10, "peer-a")

	h.HandlePeerMessage("peer-a", protocol.StartGame{})
	if msg, ok := rt.lastSent("peer-a", protocol.TypeError); !ok || msg.(protocol.Error).Message != ErrTooFewPlayers.Error() {
		t.Fatalf("expected too few players, got %+v", msg)
	}

	h.HandlePeerMessage("peer-b", protocol.Join{RequestedName: "Ben"})
	h.HandlePeerMessage("peer-b", protocol.StartGame{})
	if msg, ok := rt.lastSent("peer-b", protocol.TypeError); !ok || msg.(protocol.Error).Code != CodeForbidden {
		t.Fatalf("expected forbidden, got %+v", msg)
	}
	if h.Stage() != StageLobby {
		t.Fatalf("non-owner started the game")
	}

	rt.reset()
	h.HandlePeerMessage("peer-a", protocol.StartGame{})
	s := h.State()
	if s.Phase != domain.PhasePlaying || s.GameMode != domain.GameModeMultiplayer || s.CurrentCard == nil {
		t.Fatalf("unexpected state after start: %+v", s)
	}
	if got := rt.sentTypes("peer-a"); !slices.Contains(got, protocol.TypeYourTurn) {
		t.Fatalf("active guest got %v, want YOUR_TURN", got)
	}
	if got := rt.sentTypes("peer-b"); slices.Contains(got, protocol.TypeYourTurn) {
		t.Fatalf("waiting guest got YOUR_TURN")
	}
	audio, ok := rt.lastBroadcast(protocol.TypeAudioSync)
	if !ok || audio.(protocol.AudioSync).PreviewURL != nil {
		t.Fatalf("expected null AUDIO_SYNC, got %+v", audio)
	}

	h.HandlePeerMessage("peer-c", protocol.Join{RequestedName: "Late"})
	if msg, ok := rt.lastSent("peer-c", protocol.TypeError); !ok || msg.(protocol.Error).Message != ErrNotInLobby.Error() {
		t.Fatalf("late join not rejected: %+v", msg)
	}
}

func TestStealFlow(t *testing.T) {
	cfg := config.Defaults()
	h, rt := startedGame(t, cfg, 20, "peer-a", "peer-b")
	correct, wrong := placements(t, h)
	card := *h.State().CurrentCard

	h.HandlePeerMessage("peer-a", protocol.PendingPosition{Position: protocol.Position(wrong)})
	ghost, _ := rt.lastBroadcast(protocol.TypePendingPlacement)
	if p := ghost.(protocol.PendingPlacement).Position; p == nil || *p != wrong {
		t.Fatalf("ghost position = %v, want %d", p, wrong)
	}

	h.HandlePeerMessage("peer-a", protocol.ConfirmPlacement{Position: wrong})
	if h.Stage() != StageWindow {
		t.Fatalf("stage = %s, want window", h.Stage())
	}
	win, _ := rt.lastBroadcast(protocol.TypeTokenWindow)
	tw := win.(protocol.TokenWindow)
	if tw.TimeRemaining != cfg.StealWindowSeconds || !slices.Equal(tw.TakenPositions, []int{wrong}) || tw.Card.ID != card.ID {
		t.Fatalf("token window = %+v", tw)
	}

	h.HandlePeerMessage("peer-b", protocol.UseToken{Position: correct})
	win, _ = rt.lastBroadcast(protocol.TypeTokenWindow)
	if got := win.(protocol.TokenWindow).TakenPositions; !slices.Equal(got, []int{wrong, correct}) {
		t.Fatalf("taken = %v", got)
	}

	h.Tick(cfg.StealWindow(true) / 2)
	if h.Stage() != StageWindow {
		t.Fatalf("window closed early")
	}
	rt.reset()
	h.Tick(cfg.StealWindow(true))
	if h.Stage() != StageResult {
		t.Fatalf("stage = %s, want result", h.Stage())
	}
	want := []protocol.MessageType{protocol.TypeGameState, protocol.TypeTurnResult}
	if got := rt.broadcastTypes(); !slices.Equal(got, want) {
		t.Fatalf("broadcasts on resolve = %v, want %v", got, want)
	}
	snap, _ := rt.lastBroadcast(protocol.TypeGameState)
	if p := snap.(protocol.GameState).Players[1]; p.Tokens != domain.StartingTokens-1 || len(p.Timeline) != 2 {
		t.Fatalf("snapshot stealer = %+v", p)
	}

	res, _ := rt.lastBroadcast(protocol.TypeTurnResult)
	tr := res.(protocol.TurnResult)
	if tr.WasCorrect || tr.StealResult == nil || tr.StealResult.PlayerIndex != 1 || tr.StealResult.PlayerName != "peer-b" {
		t.Fatalf("turn result = %+v", tr)
	}

	s := h.State()
	if len(s.Players[1].Timeline) != 2 || s.Players[1].Tokens != domain.StartingTokens-1 {
		t.Fatalf("stealer = %+v", s.Players[1])
	}
	if len(s.Players[0].Timeline) != 1 || len(s.Players[0].Hand) != 0 {
		t.Fatalf("active player = %+v", s.Players[0])
	}

	rt.reset()
	h.Tick(cfg.ResultHold())
	if h.Stage() != StagePlacing || h.State().CurrentPlayerIndex != 1 {
		t.Fatalf("stage=%s idx=%d after hold", h.Stage(), h.State().CurrentPlayerIndex)
	}
	if _, ok := rt.lastSent("peer-b", protocol.TypeYourTurn); !ok {
		t.Fatalf("next player got no YOUR_TURN")
	}
}

func TestUseTokenRejections(t *testing.T) {
	h, rt := startedGame(t, config.Defaults(), 20, "peer-a", "peer-b", "peer-c")
	correct, wrong := placements(t, h)

	h.HandlePeerMessage("peer-b", protocol.UseToken{Position: correct})
	if msg, _ := rt.lastSent("peer-b", protocol.TypeError); msg.(protocol.Error).Message != ErrNoWindow.Error() {
		t.Fatalf("token before window: %+v", msg)
	}

	h.HandlePeerMessage("peer-a", protocol.ConfirmPlacement{Position: wrong})

	tests := []struct {
		name string
		peer string
		pos  int
		want error
	}{
		{name: "active player", peer: "peer-a", pos: correct, want: ErrActiveCannotSteal},
		{name: "taken by active", peer: "peer-b", pos: wrong, want: ErrPositionTaken},
		{name: "out of range", peer: "peer-b", pos: 9, want: ErrInvalidPosition},
		{name: "unknown peer", peer: "peer-z", pos: correct, want: ErrUnknownPeer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h.HandlePeerMessage(tt.peer, protocol.UseToken{Position: tt.pos})
			msg, ok := rt.lastSent(tt.peer, protocol.TypeError)
			if !ok || msg.(protocol.Error).Message != tt.want.Error() || msg.(protocol.Error).Code != errorCode(tt.want) {
				t.Fatalf("got %+v, want %v", msg, tt.want)
			}
		})
	}

	if err := h.Apply(1, protocol.UseToken{Position: correct}); err != nil {
		t.Fatalf("first token: %v", err)
	}
	if err := h.Apply(1, protocol.UseToken{Position: correct}); !errors.Is(err, ErrTokenUsed) {
		t.Fatalf("second token: %v", err)
	}
	if err := h.Apply(2, protocol.UseToken{Position: correct}); !errors.Is(err, ErrPositionTaken) {
		t.Fatalf("same slot as another guess: %v", err)
	}
}

func TestConfirmRejections(t *testing.T) {
	h, rt := startedGame(t, config.Defaults(), 20, "peer-a", "peer-b")

	h.HandlePeerMessage("peer-b", protocol.ConfirmPlacement{Position: 0})
	if msg, _ := rt.lastSent("peer-b", protocol.TypeError); msg.(protocol.Error).Code != CodeForbidden {
		t.Fatalf("waiting player confirmed: %+v", msg)
	}
	h.HandlePeerMessage("peer-a", protocol.ConfirmPlacement{Position: -1})
	if msg, _ := rt.lastSent("peer-a", protocol.TypeError); msg.(protocol.Error).Message != ErrInvalidPosition.Error() {
		t.Fatalf("negative position accepted: %+v", msg)
	}
	if h.Stage() != StagePlacing {
		t.Fatalf("stage = %s", h.Stage())
	}
}

func TestCorrectPlacementWinsGame(t *testing.T) {
	cfg := config.Defaults()
	cfg.TargetTimelineLength = 2
	h, rt := startedGame(t, cfg, 20, "peer-a", "peer-b")
	correct, _ := placements(t, h)

	h.HandlePeerMessage("peer-a", protocol.ConfirmPlacement{Position: correct})
	h.Tick(cfg.StealWindow(true))

	if h.Stage() != StageOver {
		t.Fatalf("stage = %s, want over", h.Stage())
	}
	over, ok := rt.lastBroadcast(protocol.TypeGameOver)
	if !ok || over.(protocol.GameOver).Winner != "peer-a" {
		t.Fatalf("game over = %+v", over)
	}
	if res, _ := rt.lastBroadcast(protocol.TypeTurnResult); !res.(protocol.TurnResult).WasCorrect {
		t.Fatalf("turn result not correct")
	}

	h.Tick(cfg.ResultHold())
	if h.Stage() != StageOver {
		t.Fatalf("finished game advanced")
	}
}

func TestDeckExhaustionEndsInDraw(t *testing.T) {
	cfg := config.Defaults()
	h, rt := startedGame(t, cfg, 3, "peer-a", "peer-b")
	if len(h.State().Deck) != 0 {
		t.Fatalf("deck = %d, want 0", len(h.State().Deck))
	}
	correct, _ := placements(t, h)

	h.HandlePeerMessage("peer-a", protocol.ConfirmPlacement{Position: correct})
	h.Tick(cfg.StealWindow(true))
	h.Tick(cfg.ResultHold())

	if h.Stage() != StageOver {
		t.Fatalf("stage = %s, want over", h.Stage())
	}
	over, _ := rt.lastBroadcast(protocol.TypeGameOver)
	if over.(protocol.GameOver).Winner != "" {
		t.Fatalf("expected a draw, got %+v", over)
	}
	if h.State().Phase != domain.PhasePlaying {
		t.Fatalf("a draw must not enter victory")
	}
}

func TestSkipSong(t *testing.T) {
	h, rt := startedGame(t, config.Defaults(), 20, "peer-a", "peer-b")
	before := *h.State().CurrentCard

	rt.reset()
	h.HandlePeerMessage("peer-a", protocol.SkipSong{})
	s := h.State()
	if s.CurrentCard == nil || s.CurrentCard.ID == before.ID || s.Players[0].Tokens != domain.StartingTokens-1 {
		t.Fatalf("skip did not swap the card: %+v", s)
	}
	turn, ok := rt.lastSent("peer-a", protocol.TypeYourTurn)
	if !ok || turn.(protocol.YourTurn).Tokens != domain.StartingTokens-1 {
		t.Fatalf("YOUR_TURN after skip = %+v", turn)
	}

	h.HandlePeerMessage("peer-a", protocol.SkipSong{})
	h.HandlePeerMessage("peer-a", protocol.SkipSong{})
	if msg, _ := rt.lastSent("peer-a", protocol.TypeError); msg.(protocol.Error).Message != ErrNoTokens.Error() {
		t.Fatalf("skip without tokens: %+v", msg)
	}
}

func TestRequestStateDuringWindow(t *testing.T) {
	h, rt := startedGame(t, config.Defaults(), 20, "peer-a", "peer-b")
	_, wrong := placements(t, h)
	h.HandlePeerMessage("peer-a", protocol.ConfirmPlacement{Position: wrong})

	rt.reset()
	h.HandlePeerMessage("peer-b", protocol.RequestState{})
	want := []protocol.MessageType{protocol.TypeGameState, protocol.TypePlayerAssignment, protocol.TypeTokenWindow}
	if got := rt.sentTypes("peer-b"); !slices.Equal(got, want) {
		t.Fatalf("resync = %v, want %v", got, want)
	}
}

func TestPeriodicResync(t *testing.T) {
	cfg := config.Defaults()
	h, rt := startedGame(t, cfg, 20, "peer-a", "peer-b")

	rt.reset()
	h.Tick(cfg.ResyncInterval() - 1)
	if _, ok := rt.lastBroadcast(protocol.TypeGameState); ok {
		t.Fatalf("resync before interval")
	}
	h.Tick(1)
	if _, ok := rt.lastBroadcast(protocol.TypeGameState); !ok {
		t.Fatalf("no resync after interval")
	}
}

func TestLeave(t *testing.T) {
	h, rt := newLobby(t, config.Defaults(), 20, "peer-a", "peer-b", "peer-c")

	rt.reset()
	h.Leave("peer-a")
	if h.Owner() != "peer-b" || len(h.Seats()) != 2 {
		t.Fatalf("owner=%q seats=%d", h.Owner(), len(h.Seats()))
	}
	msg, ok := rt.lastSent("peer-c", protocol.TypePlayerAssignment)
	if !ok || msg.(protocol.PlayerAssignment).PlayerIndex != 1 {
		t.Fatalf("peer-c not reassigned: %+v", msg)
	}

	h.HandlePeerMessage("peer-b", protocol.StartGame{})
	h.Leave("peer-c")
	seats := h.Seats()
	if len(seats) != 2 || seats[1].Connected {
		t.Fatalf("mid-game leave should keep a disconnected seat: %+v", seats)
	}

	h.HandlePeerMessage("peer-c", protocol.Join{RequestedName: "peer-c"})
	if !h.Seats()[1].Connected {
		t.Fatalf("rejoin did not reconnect the seat")
	}
}

func TestLocalSoloGame(t *testing.T) {
	h := NewHost(config.Defaults(), nil, noopLogger{}, rand.New(rand.NewSource(3)))
	if _, err := h.AddLocalPlayer("Solo"); err != nil {
		t.Fatalf("AddLocalPlayer: %v", err)
	}
	if err := h.Start(); !errors.Is(err, ErrNoSongs) {
		t.Fatalf("start without songs: %v", err)
	}
	if err := h.SetPacks([]string{"test"}, testSongs(10)); err != nil {
		t.Fatalf("SetPacks: %v", err)
	}
	if err := h.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if h.State().GameMode != domain.GameModeLocal {
		t.Fatalf("mode = %s", h.State().GameMode)
	}

	correct, _ := placements(t, h)
	if err := h.Apply(0, protocol.ConfirmPlacement{Position: correct}); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if h.Stage() != StageResult {
		t.Fatalf("solo placement should resolve without a window, stage = %s", h.Stage())
	}
	if got := len(h.State().Players[0].Timeline); got != 2 {
		t.Fatalf("timeline = %d", got)
	}
	if err := h.Apply(0, protocol.SkipSong{}); !errors.Is(err, ErrNotPlaying) {
		t.Fatalf("skip during result: %v", err)
	}
	if err := h.NextTurn(); err != nil {
		t.Fatalf("NextTurn: %v", err)
	}
	if h.Stage() != StagePlacing || h.State().CurrentPlayerIndex != 0 {
		t.Fatalf("stage=%s idx=%d", h.Stage(), h.State().CurrentPlayerIndex)
	}
}

func TestLocalPlayerTakesFirstSeat(t *testing.T) {
	h, rt := newLobby(t, config.Defaults(), 10, "peer-a")
	idx, err := h.AddLocalPlayer("Host")
	if err != nil || idx != 0 {
		t.Fatalf("AddLocalPlayer = %d, %v", idx, err)
	}
	msg, _ := rt.lastSent("peer-a", protocol.TypePlayerAssignment)
	if msg.(protocol.PlayerAssignment).PlayerIndex != 1 {
		t.Fatalf("guest not shifted: %+v", msg)
	}
}

func TestPreviewResolution(t *testing.T) {
	h, rt := newLobby(t, config.Defaults(), 20, "peer-a", "peer-b")
	req := &recordingRequester{}
	h.SetPreviewRequester(req)
	h.HandlePeerMessage("peer-a", protocol.StartGame{})

	card := *h.State().CurrentCard
	if len(req.requested) != 1 || req.requested[0].ID != card.ID {
		t.Fatalf("requested = %+v", req.requested)
	}

	rt.reset()
	h.PreviewResolved(card.ID+1000, "https://stale.example/a.m4a")
	if _, ok := rt.lastBroadcast(protocol.TypeAudioSync); ok {
		t.Fatalf("stale preview broadcast")
	}
	h.PreviewResolved(card.ID, "https://audio.example/a.m4a")
	audio, ok := rt.lastBroadcast(protocol.TypeAudioSync)
	if !ok || !audio.(protocol.AudioSync).Playing || *audio.(protocol.AudioSync).PreviewURL != "https://audio.example/a.m4a" {
		t.Fatalf("audio = %+v", audio)
	}
}

func TestRequirePreviewRedraws(t *testing.T) {
	cfg := config.Defaults()
	cfg.RequirePreview = true
	h, _ := newLobby(t, cfg, 20, "peer-a", "peer-b")
	req := &recordingRequester{}
	h.SetPreviewRequester(req)
	h.HandlePeerMessage("peer-a", protocol.StartGame{})

	first := *h.State().CurrentCard
	deck := len(h.State().Deck)
	h.PreviewResolved(first.ID, "")

	s := h.State()
	if s.CurrentCard == nil || s.CurrentCard.ID == first.ID || len(s.Deck) != deck-1 {
		t.Fatalf("no redraw: card=%v deck=%d", s.CurrentCard, len(s.Deck))
	}
	if len(req.requested) != 2 || len(s.Players[0].Hand) != 0 {
		t.Fatalf("requested=%d hand=%d", len(req.requested), len(s.Players[0].Hand))
	}
}

func TestRematchAfterGameOver(t *testing.T) {
	cfg := config.Defaults()
	cfg.TargetTimelineLength = 2
	h, _ := startedGame(t, cfg, 20, "peer-a", "peer-b")
	correct, _ := placements(t, h)
	h.HandlePeerMessage("peer-a", protocol.ConfirmPlacement{Position: correct})
	h.Tick(cfg.StealWindow(true))
	if h.Stage() != StageOver {
		t.Fatalf("stage = %s", h.Stage())
	}

	h.HandlePeerMessage("peer-a", protocol.StartGame{})
	s := h.State()
	if h.Stage() != StagePlacing || s.Winner != "" || len(s.Songs) != 20 || s.TargetTimelineLength != 2 {
		t.Fatalf("rematch state: stage=%s %+v", h.Stage(), s)
	}
}

func TestDisconnectedActivePlayerLosesTurn(t *testing.T) {
	h, rt := startedGame(t, config.Defaults(), 30, "peer-a", "peer-b", "peer-c")
	before := h.State()

	h.Leave("peer-a")
	if h.Stage() != StagePlacing || h.State().CurrentPlayerIndex != 0 {
		t.Fatalf("leave changed the turn immediately")
	}

	rt.reset()
	h.Tick(time.Second)
	s := h.State()
	if s.CurrentPlayerIndex != 1 || h.Stage() != StagePlacing {
		t.Fatalf("idx=%d stage=%s, want peer-b placing", s.CurrentPlayerIndex, h.Stage())
	}
	if len(s.Deck) != len(before.Deck)-1 || s.CurrentCard == nil || s.CurrentCard.ID == before.CurrentCard.ID {
		t.Fatalf("turn passed without a fresh card: deck %d->%d", len(before.Deck), len(s.Deck))
	}
	if len(s.Players[0].Timeline) != 1 || len(s.Players[0].Hand) != 0 {
		t.Fatalf("absent player was penalised: %+v", s.Players[0])
	}
	if _, ok := rt.lastSent("peer-b", protocol.TypeYourTurn); !ok {
		t.Fatalf("peer-b got no YOUR_TURN")
	}

	h.Leave("peer-b")
	h.Leave("peer-c")
	h.Tick(time.Second)
	if got := h.State().CurrentPlayerIndex; got != 1 {
		t.Fatalf("turn moved to %d with nobody connected", got)
	}
}
