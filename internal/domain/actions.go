package domain

// Action is a state transition request. The set of actions is closed; Reduce matches on
// every variant.
type Action interface {
	isAction()
}

// SetPacks records the song pool for the session.
type SetPacks struct {
	PackIDs []string
	Songs   []Song
}

// SetPlayers starts a fresh round with one player per name and a shuffled deck.
type SetPlayers struct {
	Names []string
}

// DealInitialCards gives every player a starter timeline card, CardsPerHand hand cards,
// and draws the first current card.
type DealInitialCards struct {
	CardsPerHand int
}

// DrawCard replaces the current card with the top of the deck.
type DrawCard struct{}

// PlaceCard resolves a turn without steals.
type PlaceCard struct {
	Position int
}

// ResolveTurn resolves a turn together with the steal attempts gathered in the token window.
type ResolveTurn struct {
	Position        int
	TokenPlacements []TokenPlacement
}

// SkipSong spends one token of the active player to swap the current card.
type SkipSong struct{}

// NextTurn rotates to the next player and draws their card.
type NextTurn struct{}

// SetPhase overrides the phase directly.
type SetPhase struct {
	Phase Phase
}

// SetGameMode tags the session as local or multiplayer.
type SetGameMode struct {
	Mode GameMode
}

// SetTargetLength changes the winning timeline length.
type SetTargetLength struct {
	Length int
}

// Reset returns to the initial state, keeping the pool and the game mode.
type Reset struct{}

func (SetPacks) isAction()         {}
func (SetPlayers) isAction()       {}
func (DealInitialCards) isAction() {}
func (DrawCard) isAction()         {}
func (PlaceCard) isAction()        {}
func (ResolveTurn) isAction()      {}
func (SkipSong) isAction()         {}
func (NextTurn) isAction()         {}
func (SetPhase) isAction()         {}
func (SetGameMode) isAction()      {}
func (SetTargetLength) isAction()  {}
func (Reset) isAction()            {}
