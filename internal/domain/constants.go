package domain

const (
	// DefaultTargetTimelineLength is the timeline length that wins the game.
	DefaultTargetTimelineLength = 10
	// StartingTokens is the number of steal/skip tokens each player is dealt.
	StartingTokens = 2
)
