package domain

// IsPlacementCorrect reports whether card may be inserted into the sorted timeline at
// position. Positions are insertion gaps 0..len(timeline); anything outside that range is
// incorrect. Equal years never reject.
func IsPlacementCorrect(timeline []Song, card Song, position int) bool {
	if position < 0 || position > len(timeline) {
		return false
	}
	if position > 0 && card.Year < timeline[position-1].Year {
		return false
	}
	if position < len(timeline) && card.Year > timeline[position].Year {
		return false
	}
	return true
}

// FindCorrectPositions lists every correct insertion gap for card in ascending order.
// The result is never empty for a sorted timeline.
func FindCorrectPositions(timeline []Song, card Song) []int {
	positions := make([]int, 0, 2)
	for i := 0; i <= len(timeline); i++ {
		if IsPlacementCorrect(timeline, card, i) {
			positions = append(positions, i)
		}
	}
	return positions
}

// TokenPlacement is a steal attempt: a non-active player's guess of the card's slot on the
// active player's timeline.
type TokenPlacement struct {
	PlayerIndex int `json:"playerIndex"`
	Position    int `json:"position"`
}

// TurnOutcome is the judgement of a turn before it is applied to state.
type TurnOutcome struct {
	Correct bool
	Steal   *TokenPlacement // nil when nobody stole the card
}

// JudgeTurn decides correctness and the winning steal for card placed at position on the
// active player's sorted timeline. placements are scanned in the order given; the first one on
// a correct slot other than position wins.
func JudgeTurn(activeTimeline []Song, card Song, position int, placements []TokenPlacement) TurnOutcome {
	outcome := TurnOutcome{Correct: IsPlacementCorrect(activeTimeline, card, position)}

	stealable := make(map[int]bool)
	for _, p := range FindCorrectPositions(activeTimeline, card) {
		if p != position {
			stealable[p] = true
		}
	}

	for _, tp := range placements {
		if stealable[tp.Position] {
			steal := tp
			outcome.Steal = &steal
			break
		}
	}
	return outcome
}

// insertAt returns a copy of timeline with card spliced in at position.
func insertAt(timeline []Song, card Song, position int) []Song {
	out := make([]Song, 0, len(timeline)+1)
	out = append(out, timeline[:position]...)
	out = append(out, card)
	out = append(out, timeline[position:]...)
	return out
}
