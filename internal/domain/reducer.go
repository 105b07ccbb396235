package domain

import (
	"math/rand"
	"time"
)

// Reducer applies actions to game state. Apart from the shuffle source it holds nothing, so
// Reduce behaves as a pure function of (state, action).
type Reducer struct {
	rng *rand.Rand
}

// NewReducer constructs a Reducer with the provided rng or a time-seeded default.
func NewReducer(rng *rand.Rand) *Reducer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Reducer{rng: rng}
}

// Reduce returns the state that results from applying action to s. Actions that do not apply
// in the current phase return s unchanged.
func (r *Reducer) Reduce(s GameState, action Action) GameState {
	switch a := action.(type) {
	case SetPacks:
		s.SelectedPackIDs = append([]string(nil), a.PackIDs...)
		s.Songs = append([]Song(nil), a.Songs...)
		return s

	case SetPlayers:
		next := InitialState()
		next.SelectedPackIDs = s.SelectedPackIDs
		next.Songs = s.Songs
		next.GameMode = s.GameMode
		next.Deck = Shuffle(s.Songs, r.rng)
		next.Players = make([]Player, 0, len(a.Names))
		for _, name := range a.Names {
			next.Players = append(next.Players, Player{
				Name:     name,
				Timeline: []Song{},
				Hand:     []Song{},
				Tokens:   StartingTokens,
			})
		}
		return next

	case DealInitialCards:
		return dealInitialCards(s, a.CardsPerHand)

	case DrawCard:
		if s.Phase != PhasePlaying {
			return s
		}
		s.Deck, s.CurrentCard = pop(append([]Song(nil), s.Deck...))
		return s

	case PlaceCard:
		return placeCard(s, a.Position)

	case ResolveTurn:
		return resolveTurn(s, a.Position, a.TokenPlacements)

	case SkipSong:
		return skipSong(s)

	case NextTurn:
		if s.Phase != PhasePlaying || len(s.Players) == 0 {
			return s
		}
		s.CurrentPlayerIndex = (s.CurrentPlayerIndex + 1) % len(s.Players)
		s.Deck, s.CurrentCard = pop(append([]Song(nil), s.Deck...))
		return s

	case SetPhase:
		s.Phase = a.Phase
		return s

	case SetGameMode:
		s.GameMode = a.Mode
		return s

	case SetTargetLength:
		if a.Length >= 1 {
			s.TargetTimelineLength = a.Length
		}
		return s

	case Reset:
		next := InitialState()
		next.SelectedPackIDs = s.SelectedPackIDs
		next.Songs = s.Songs
		next.GameMode = s.GameMode
		return next

	default:
		return s
	}
}

func dealInitialCards(s GameState, cardsPerHand int) GameState {
	deck := append([]Song(nil), s.Deck...)
	players := clonePlayers(s.Players)

	var card *Song
	for i := range players {
		if deck, card = pop(deck); card != nil {
			players[i].Timeline = append(players[i].Timeline, *card)
		}
	}
	for i := range players {
		for n := 0; n < cardsPerHand; n++ {
			if deck, card = pop(deck); card != nil {
				players[i].Hand = append(players[i].Hand, *card)
			}
		}
	}

	s.Deck, s.CurrentCard = pop(deck)
	s.Players = players
	s.CurrentPlayerIndex = 0
	s.Phase = PhasePlaying
	return s
}

func placeCard(s GameState, position int) GameState {
	if s.Phase != PhasePlaying || s.CurrentCard == nil || s.ActivePlayer() == nil {
		return s
	}
	card := *s.CurrentCard
	idx := s.CurrentPlayerIndex
	players := clonePlayers(s.Players)
	sorted := SortTimeline(players[idx].Timeline)

	correct := IsPlacementCorrect(sorted, card, position)
	if correct {
		players[idx].Timeline = insertAt(sorted, card, position)
	} else {
		players[idx].Timeline = sorted
		s = drawPenalty(s, players, idx)
	}

	s.Players = players
	s.CurrentCard = nil
	if correct {
		s = checkWin(s, idx)
	}
	return s
}

func resolveTurn(s GameState, position int, placements []TokenPlacement) GameState {
	if s.Phase != PhasePlaying || s.CurrentCard == nil || s.ActivePlayer() == nil {
		return s
	}
	card := *s.CurrentCard
	active := s.CurrentPlayerIndex
	players := clonePlayers(s.Players)
	sorted := SortTimeline(players[active].Timeline)

	valid := make([]TokenPlacement, 0, len(placements))
	charged := make(map[int]bool, len(placements))
	// Unknown players are ignored. The active player pays for a token but cannot steal their own card.
	for _, tp := range placements {
		if tp.PlayerIndex < 0 || tp.PlayerIndex >= len(players) {
			continue
		}
		if !charged[tp.PlayerIndex] {
			charged[tp.PlayerIndex] = true
			if players[tp.PlayerIndex].Tokens > 0 {
				players[tp.PlayerIndex].Tokens--
			}
		}
		if tp.PlayerIndex != active {
			valid = append(valid, tp)
		}
	}

	outcome := JudgeTurn(sorted, card, position, valid)
	s.CurrentCard = nil

	switch {
	case outcome.Steal != nil:
		stealer := outcome.Steal.PlayerIndex
		stealerTimeline := SortTimeline(players[stealer].Timeline)
		insert := len(stealerTimeline)
		if candidates := FindCorrectPositions(stealerTimeline, card); len(candidates) > 0 {
			insert = candidates[0]
		}
		players[stealer].Timeline = insertAt(stealerTimeline, card, insert)
		s.Players = players
		return checkWin(s, stealer)

	case outcome.Correct:
		players[active].Timeline = insertAt(sorted, card, position)
		s.Players = players
		return checkWin(s, active)

	default:
		s = drawPenalty(s, players, active)
		s.Players = players
		return s
	}
}

func skipSong(s GameState) GameState {
	if s.Phase != PhasePlaying || s.CurrentCard == nil || s.ActivePlayer() == nil {
		return s
	}
	if s.Players[s.CurrentPlayerIndex].Tokens <= 0 {
		return s
	}
	players := clonePlayers(s.Players)
	players[s.CurrentPlayerIndex].Tokens--
	s.Players = players
	s.Deck, s.CurrentCard = pop(append([]Song(nil), s.Deck...))
	return s
}

// drawPenalty moves the top of the deck into players[idx].Hand. players must already be a
// private copy.
func drawPenalty(s GameState, players []Player, idx int) GameState {
	deck, card := pop(append([]Song(nil), s.Deck...))
	if card != nil {
		players[idx].Hand = append(players[idx].Hand, *card)
	}
	s.Deck = deck
	return s
}

func checkWin(s GameState, idx int) GameState {
	if len(s.Players[idx].Timeline) >= s.TargetTimelineLength {
		s.Phase = PhaseVictory
		s.Winner = s.Players[idx].Name
	}
	return s
}
