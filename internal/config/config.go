package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// GameConfig holds the tunable rules of a session.
type GameConfig struct {
	TargetTimelineLength    int      `json:"target_timeline_length"`
	CardsPerHand            int      `json:"cards_per_hand"`
	StealWindowSeconds      int      `json:"steal_window_seconds"`
	LocalStealWindowSeconds int      `json:"local_steal_window_seconds"`
	ResultHoldSeconds       int      `json:"result_hold_seconds"`
	ResyncIntervalSeconds   int      `json:"resync_interval_seconds"`
	MinPlayers              int      `json:"min_players"`
	MaxPlayers              int      `json:"max_players"`
	RequirePreview          bool     `json:"require_preview"`
	DefaultPacks            []string `json:"default_packs"`
}

// Defaults returns the configuration used when no file is loaded.
func Defaults() GameConfig {
	return GameConfig{
		TargetTimelineLength:    10,
		CardsPerHand:            0,
		StealWindowSeconds:      5,
		LocalStealWindowSeconds: 10,
		ResultHoldSeconds:       4,
		ResyncIntervalSeconds:   15,
		MinPlayers:              2,
		MaxPlayers:              8,
	}
}

// StealWindow returns the token window length for a networked or a same-device session.
func (c GameConfig) StealWindow(networked bool) time.Duration {
	if networked {
		return time.Duration(c.StealWindowSeconds) * time.Second
	}
	return time.Duration(c.LocalStealWindowSeconds) * time.Second
}

// ResultHold is how long a turn result stays on screen before the next turn.
func (c GameConfig) ResultHold() time.Duration {
	return time.Duration(c.ResultHoldSeconds) * time.Second
}

// ResyncInterval is the period of the full-state re-broadcast during play.
func (c GameConfig) ResyncInterval() time.Duration {
	return time.Duration(c.ResyncIntervalSeconds) * time.Second
}

// Parse decodes a game config, filling unset (zero or negative) numeric fields from Defaults.
func Parse(data []byte) (GameConfig, error) {
	var c GameConfig
	if err := json.Unmarshal(data, &c); err != nil {
		return GameConfig{}, fmt.Errorf("failed to unmarshal game config: %w", err)
	}

	d := Defaults()
	fill := func(v *int, def int) {
		if *v <= 0 {
			*v = def
		}
	}
	fill(&c.TargetTimelineLength, d.TargetTimelineLength)
	fill(&c.StealWindowSeconds, d.StealWindowSeconds)
	fill(&c.LocalStealWindowSeconds, d.LocalStealWindowSeconds)
	fill(&c.ResultHoldSeconds, d.ResultHoldSeconds)
	fill(&c.ResyncIntervalSeconds, d.ResyncIntervalSeconds)
	fill(&c.MinPlayers, d.MinPlayers)
	fill(&c.MaxPlayers, d.MaxPlayers)
	if c.CardsPerHand < 0 {
		c.CardsPerHand = 0
	}
	if c.MinPlayers > c.MaxPlayers {
		return GameConfig{}, fmt.Errorf("min_players %d exceeds max_players %d", c.MinPlayers, c.MaxPlayers)
	}
	return c, nil
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadGameConfig loads the game configuration from the given path.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}

		c, err := Parse(data)
		if err != nil {
			loadErr = err
			return
		}
		cfg = &c
	})
	return loadErr
}

// GetGameConfig returns the loaded game configuration, or Defaults when nothing was loaded.
func GetGameConfig() GameConfig {
	if cfg == nil {
		return Defaults()
	}
	return *cfg
}
