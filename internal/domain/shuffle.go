package domain

import (
	"math/rand"
	"sort"
)

// Shuffle returns a Fisher-Yates shuffled copy of items. The input is left untouched.
// A nil rng falls back to the shared math/rand source.
func Shuffle[T any](items []T, rng *rand.Rand) []T {
	out := make([]T, len(items))
	copy(out, items)
	intn := rand.Intn
	if rng != nil {
		intn = rng.Intn
	}
	for i := len(out) - 1; i > 0; i-- {
		j := intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// SortTimeline returns a copy of songs ordered by ascending year. Equal years keep their
// insertion order.
func SortTimeline(songs []Song) []Song {
	out := append([]Song(nil), songs...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Year < out[j].Year
	})
	return out
}

// pop removes the top card of the deck. The second return is nil on underflow.
func pop(deck []Song) ([]Song, *Song) {
	if len(deck) == 0 {
		return deck, nil
	}
	card := deck[len(deck)-1]
	return deck[:len(deck)-1], &card
}
