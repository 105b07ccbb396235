package app

import (
	"errors"
	"testing"
	"time"

	"jhitster/internal/domain"
	"jhitster/internal/protocol"
)

func seatedGuest(t *testing.T, idx int) (*Guest, *recordingLink) {
	t.Helper()
	link := &recordingLink{}
	g := NewGuest(link, noopLogger{})
	g.Apply(protocol.PlayerAssignment{PlayerIndex: idx, PlayerName: "Ben"})
	g.Apply(protocol.GameState{
		Players: []domain.Player{
			{Name: "Ana", Tokens: 2},
			{Name: "Ben", Tokens: 2},
		},
		CurrentPlayerIndex:   0,
		Phase:                domain.PhasePlaying,
		TargetTimelineLength: 10,
		DeckSize:             30,
	})
	return g, link
}

func TestGuestInitialView(t *testing.T) {
	v := NewGuest(&recordingLink{}, noopLogger{}).View()
	if v.Phase != GuestWaiting || v.PlayerIndex != -1 || v.Tokens != domain.StartingTokens {
		t.Fatalf("initial view = %+v", v)
	}
}

func TestGuestPlacementIntents(t *testing.T) {
	g, link := seatedGuest(t, 0)

	if err := g.Confirm(); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("confirm while waiting: %v", err)
	}

	card := song(7, 1984)
	g.Apply(protocol.YourTurn{Timeline: []domain.Song{song(1, 1970)}, CurrentCard: &card, Tokens: 2})
	if g.View().Phase != GuestYourTurn {
		t.Fatalf("phase = %s", g.View().Phase)
	}
	if err := g.Confirm(); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("confirm without selection: %v", err)
	}

	if err := g.Select(1); err != nil {
		t.Fatalf("Select: %v", err)
	}
	pending, ok := link.last().(protocol.PendingPosition)
	if !ok || pending.Position == nil || *pending.Position != 1 {
		t.Fatalf("sent %+v", link.last())
	}

	if err := g.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, ok := link.last().(protocol.CancelPlacement); !ok || g.View().PendingPosition != nil {
		t.Fatalf("cancel did not clear selection")
	}

	_ = g.Select(0)
	if err := g.Confirm(); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if got, ok := link.last().(protocol.ConfirmPlacement); !ok || got.Position != 0 {
		t.Fatalf("sent %+v", link.last())
	}
	if g.View().Phase != GuestWaiting {
		t.Fatalf("phase after confirm = %s", g.View().Phase)
	}
}

func TestGuestKeepsTurnOnResync(t *testing.T) {
	g, _ := seatedGuest(t, 0)
	card := song(7, 1984)
	g.Apply(protocol.YourTurn{CurrentCard: &card, Tokens: 2})

	g.Apply(protocol.GameState{Players: g.View().Players, CurrentPlayerIndex: 0, Phase: domain.PhasePlaying})
	if g.View().Phase != GuestYourTurn {
		t.Fatalf("resync for the same turn dropped YOUR_TURN")
	}
	g.Apply(protocol.GameState{Players: g.View().Players, CurrentPlayerIndex: 1, Phase: domain.PhasePlaying})
	if g.View().Phase != GuestWaiting {
		t.Fatalf("phase = %s after turn moved on", g.View().Phase)
	}
}

func TestGuestStealWindow(t *testing.T) {
	g, link := seatedGuest(t, 1)
	window := protocol.TokenWindow{
		Timeline:       []domain.Song{song(1, 1970)},
		Card:           song(7, 1984),
		TimeRemaining:  5,
		TakenPositions: []int{0},
	}
	g.Apply(window)

	v := g.View()
	if v.Phase != GuestTokenWindow || v.TimeRemaining != 5*time.Second || v.TokenCard.ID != 7 {
		t.Fatalf("window view = %+v", v)
	}
	if err := g.Select(0); !errors.Is(err, ErrPositionTaken) {
		t.Fatalf("taken slot: %v", err)
	}
	if err := g.Select(1); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got, ok := link.last().(protocol.UseToken); !ok || got.Position != 1 {
		t.Fatalf("sent %+v", link.last())
	}

	window.TakenPositions = []int{0, 1}
	window.TimeRemaining = 3
	g.Apply(window)
	g.Apply(protocol.GameState{Players: g.View().Players, CurrentPlayerIndex: 0, Phase: domain.PhasePlaying})
	if v := g.View(); v.Phase != GuestTokenWindow || !v.TokenUsed {
		t.Fatalf("window update reset the guess: %+v", v)
	}
	if err := g.Select(1); !errors.Is(err, ErrTokenUsed) {
		t.Fatalf("second guess: %v", err)
	}

	g.Tick(2 * time.Second)
	if got := g.View().TimeRemaining; got != time.Second {
		t.Fatalf("remaining = %v", got)
	}
	g.Tick(5 * time.Second)
	if got := g.View().TimeRemaining; got != 0 {
		t.Fatalf("remaining = %v, want 0", got)
	}
	if g.View().Phase != GuestTokenWindow {
		t.Fatalf("countdown resolved the window locally")
	}

	resolved := []domain.Player{
		{Name: "Ana", Timeline: []domain.Song{song(1, 1970)}, Hand: []domain.Song{song(9, 1990)}, Tokens: 2},
		{Name: "Ben", Timeline: []domain.Song{song(2, 1960), song(7, 1984)}, Tokens: 1},
	}
	g.Apply(protocol.GameState{Players: resolved, CurrentPlayerIndex: 0, Phase: domain.PhasePlaying})
	if v := g.View(); v.Phase != GuestTokenWindow || v.Tokens != 1 {
		t.Fatalf("snapshot before result = %+v", v)
	}
	steal := &protocol.StealResult{PlayerIndex: 1, PlayerName: "Ben"}
	g.Apply(protocol.TurnResult{WasCorrect: false, Card: song(7, 1984), StealResult: steal})
	if v := g.View(); v.Phase != GuestTurnResult || v.TurnResult.StealResult.PlayerName != "Ben" || v.Tokens != 1 || len(v.Players[1].Timeline) != 2 {
		t.Fatalf("result view = %+v", v)
	}
	g.Apply(protocol.GameState{Players: g.View().Players, CurrentPlayerIndex: 1, Phase: domain.PhasePlaying})
	if g.View().Phase != GuestWaiting {
		t.Fatalf("phase = %s", g.View().Phase)
	}
}

func TestGuestSelectRejections(t *testing.T) {
	tests := []struct {
		name   string
		seat   int
		tokens int
		want   error
	}{
		{name: "active player", seat: 0, tokens: 2, want: ErrActiveCannotSteal},
		{name: "no tokens", seat: 1, tokens: 0, want: ErrNoTokens},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, link := seatedGuest(t, tt.seat)
			players := g.View().Players
			players[tt.seat].Tokens = tt.tokens
			g.Apply(protocol.GameState{Players: players, CurrentPlayerIndex: 0, Phase: domain.PhasePlaying})
			g.Apply(protocol.TokenWindow{Card: song(7, 1984), TimeRemaining: 5, TakenPositions: []int{0}})

			if err := g.Select(1); !errors.Is(err, tt.want) {
				t.Fatalf("Select = %v, want %v", err, tt.want)
			}
			if len(link.sent) != 0 {
				t.Fatalf("rejected guess was sent: %+v", link.sent)
			}
		})
	}

	g, _ := seatedGuest(t, 1)
	if err := g.Select(0); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("select while waiting: %v", err)
	}
	if err := g.Skip(); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("skip while waiting: %v", err)
	}
}

func TestGuestSkip(t *testing.T) {
	g, link := seatedGuest(t, 0)
	card := song(7, 1984)

	g.Apply(protocol.YourTurn{CurrentCard: &card, Tokens: 0})
	if err := g.Skip(); !errors.Is(err, ErrNoTokens) {
		t.Fatalf("skip without tokens: %v", err)
	}

	g.Apply(protocol.YourTurn{CurrentCard: &card, Tokens: 1})
	if err := g.Skip(); err != nil {
		t.Fatalf("Skip: %v", err)
	}
	if _, ok := link.last().(protocol.SkipSong); !ok {
		t.Fatalf("sent %+v", link.last())
	}
}

func TestGuestSessionMessages(t *testing.T) {
	g, link := seatedGuest(t, 1)

	if err := g.Join("Ben"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if got, ok := link.last().(protocol.Join); !ok || got.RequestedName != "Ben" {
		t.Fatalf("sent %+v", link.last())
	}
	_ = g.StartGame()
	if _, ok := link.last().(protocol.StartGame); !ok {
		t.Fatalf("sent %+v", link.last())
	}
	_ = g.RequestState()
	if _, ok := link.last().(protocol.RequestState); !ok {
		t.Fatalf("sent %+v", link.last())
	}

	url := "https://audio.example/a.m4a"
	g.Apply(protocol.AudioSync{PreviewURL: &url, Playing: true})
	g.Apply(protocol.PendingPlacement{Position: protocol.Position(2), Timeline: []domain.Song{song(1, 1970)}})
	g.Apply(protocol.Error{Code: CodeForbidden, Message: ErrNotYourTurn.Error()})
	v := g.View()
	if !v.AudioPlaying || *v.PreviewURL != url || *v.ActivePending != 2 || v.LastError.Code != CodeForbidden {
		t.Fatalf("view = %+v", v)
	}

	g.Apply(protocol.GameOver{Winner: "Ana"})
	g.Apply(protocol.GameState{Players: v.Players, Phase: domain.PhaseVictory})
	if v := g.View(); v.Phase != GuestGameOver || *v.Winner != "Ana" {
		t.Fatalf("game over view = %+v", v)
	}
}
