package domain

// Phase represents the lifecycle stage of a game session.
type Phase string

const (
	// PhaseSetup is the state before cards are dealt.
	PhaseSetup Phase = "setup"
	// PhasePlaying is the state in which turns are taken.
	PhasePlaying Phase = "playing"
	// PhaseVictory is the state after a player reached the target timeline length.
	PhaseVictory Phase = "victory"
)

// GameMode tags whether the session is played on one device or over the network.
type GameMode string

const (
	GameModeLocal       GameMode = "local"
	GameModeMultiplayer GameMode = "multiplayer"
)

// Song is a single card. Year is the only field the rules look at.
type Song struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Year       int    `json:"year"`
	PreviewURL string `json:"previewUrl,omitempty"`
}

// Player holds the per-participant state of a session.
type Player struct {
	Name     string `json:"name"`
	Timeline []Song `json:"timeline"` // kept sorted by year after every placement
	Hand     []Song `json:"hand"`     // penalty cards
	Tokens   int    `json:"tokens"`
}

// GameState is the root aggregate. It is only ever replaced, never mutated,
// so snapshots handed to broadcasters stay valid.
type GameState struct {
	Players              []Player `json:"players"`
	Deck                 []Song   `json:"deck"` // draw pile, the last element is the top
	CurrentPlayerIndex   int      `json:"currentPlayerIndex"`
	CurrentCard          *Song    `json:"currentCard"`
	Phase                Phase    `json:"phase"`
	TargetTimelineLength int      `json:"targetTimelineLength"`
	Winner               string   `json:"winner,omitempty"`
	SelectedPackIDs      []string `json:"selectedPackIds"`
	Songs                []Song   `json:"songs"`
	GameMode             GameMode `json:"gameMode"`
}

// InitialState returns the state a session starts from.
func InitialState() GameState {
	return GameState{
		Players:              []Player{},
		Deck:                 []Song{},
		Phase:                PhaseSetup,
		TargetTimelineLength: DefaultTargetTimelineLength,
		SelectedPackIDs:      []string{},
		Songs:                []Song{},
		GameMode:             GameModeLocal,
	}
}

// ActivePlayer returns the player whose turn it is, or nil when there are no players.
func (s GameState) ActivePlayer() *Player {
	if s.CurrentPlayerIndex < 0 || s.CurrentPlayerIndex >= len(s.Players) {
		return nil
	}
	p := s.Players[s.CurrentPlayerIndex]
	return &p
}

// DeckExhausted reports a playing session whose turn cannot continue because
// no card could be drawn.
func (s GameState) DeckExhausted() bool {
	return s.Phase == PhasePlaying && s.CurrentCard == nil && len(s.Deck) == 0
}

// PlayersWithTokens counts the players, excluding index skip, holding at least one token.
func (s GameState) PlayersWithTokens(skip int) int {
	n := 0
	for i, p := range s.Players {
		if i != skip && p.Tokens > 0 {
			n++
		}
	}
	return n
}

func (p Player) clone() Player {
	out := p
	out.Timeline = append([]Song(nil), p.Timeline...)
	out.Hand = append([]Song(nil), p.Hand...)
	return out
}

func clonePlayers(players []Player) []Player {
	out := make([]Player, len(players))
	for i, p := range players {
		out[i] = p.clone()
	}
	return out
}
