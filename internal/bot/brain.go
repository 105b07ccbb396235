package bot

import (
	"fmt"
	"math/rand"
	"strings"

	"jhitster/internal/domain"
)

// Level is a bot's difficulty.
type Level int

const (
	LevelEasy Level = iota
	LevelGood
	LevelGod
)

func (l Level) String() string {
	switch l {
	case LevelEasy:
		return "easy"
	case LevelGood:
		return "good"
	case LevelGod:
		return "god"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLevel maps a difficulty name to a Level. "medium" and "hard" are accepted as aliases.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy", "":
		return LevelEasy, nil
	case "good", "medium":
		return LevelGood, nil
	case "god", "hard":
		return LevelGod, nil
	default:
		return LevelEasy, fmt.Errorf("unknown bot level: %q", s)
	}
}

// Brain decides where a bot puts cards.
type Brain interface {
	// Place picks an insertion gap in timeline for card on the bot's own turn.
	Place(timeline []domain.Song, card domain.Song) int
	// Steal picks a gap in another player's timeline, or reports false to keep the token.
	Steal(timeline []domain.Song, card domain.Song, taken []int, tokens int) (int, bool)
}

// NewBrain creates a brain for level. A nil rng uses the shared math/rand source.
func NewBrain(level Level, rng *rand.Rand) (Brain, error) {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	switch level {
	case LevelEasy:
		return &EasyBot{rng: rng}, nil
	case LevelGood:
		return &GoodBot{rng: rng, Tuning: DefaultTuning}, nil
	case LevelGod:
		return &GodBot{}, nil
	default:
		return nil, fmt.Errorf("unknown bot level: %d", level)
	}
}

// gapFor is the first gap whose right neighbour is later than year.
func gapFor(timeline []domain.Song, year int) int {
	for i, s := range timeline {
		if s.Year > year {
			return i
		}
	}
	return len(timeline)
}
