package bot

import (
	"math"
	"math/rand"
	"slices"

	"jhitster/internal/domain"
)

// EasyBot guesses blindly and never steals.
type EasyBot struct {
	rng *rand.Rand
}

func (b *EasyBot) Place(timeline []domain.Song, _ domain.Song) int {
	return b.rng.Intn(len(timeline) + 1)
}

func (b *EasyBot) Steal([]domain.Song, domain.Song, []int, int) (int, bool) {
	return 0, false
}

// GoodBot guesses the year with normally distributed error and only steals when the guess sits
// comfortably inside a gap.
type GoodBot struct {
	rng    *rand.Rand
	Tuning Tuning
}

func (b *GoodBot) guess(card domain.Song) int {
	return card.Year + int(math.Round(b.rng.NormFloat64()*b.Tuning.YearSpread))
}

func (b *GoodBot) Place(timeline []domain.Song, card domain.Song) int {
	return gapFor(timeline, b.guess(card))
}

func (b *GoodBot) Steal(timeline []domain.Song, card domain.Song, taken []int, tokens int) (int, bool) {
	if tokens <= b.Tuning.KeepTokens {
		return 0, false
	}
	year := b.guess(card)
	pos := gapFor(timeline, year)
	if slices.Contains(taken, pos) {
		return 0, false
	}
	if pos > 0 && year-timeline[pos-1].Year < b.Tuning.StealMargin {
		return 0, false
	}
	if pos < len(timeline) && timeline[pos].Year-year < b.Tuning.StealMargin {
		return 0, false
	}
	return pos, true
}

// GodBot knows every release year.
type GodBot struct{}

func (GodBot) Place(timeline []domain.Song, card domain.Song) int {
	return domain.FindCorrectPositions(timeline, card)[0]
}

func (GodBot) Steal(timeline []domain.Song, card domain.Song, taken []int, tokens int) (int, bool) {
	if tokens <= 0 {
		return 0, false
	}
	for _, pos := range domain.FindCorrectPositions(timeline, card) {
		if !slices.Contains(taken, pos) {
			return pos, true
		}
	}
	return 0, false
}
