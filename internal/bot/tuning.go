package bot

// Tuning shapes how well a GoodBot knows its music.
type Tuning struct {
	// YearSpread is the standard deviation, in years, of the bot's guess around the true year.
	YearSpread float64
	// StealMargin is how far, in years, the guess must sit from both neighbours before the bot
	// spends a token on a steal.
	StealMargin int
	// KeepTokens is the number of tokens the bot never spends on steals.
	KeepTokens int
}

// DefaultTuning is a player who is usually within a decade.
var DefaultTuning = Tuning{
	YearSpread:  6,
	StealMargin: 5,
	KeepTokens:  1,
}
