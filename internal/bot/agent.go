package bot

import (
	"context"
	"time"

	"jhitster/internal/app"

	"github.com/heroiclabs/nakama-common/runtime"
)

// Agent is an autonomous player. It reads a guest's view and answers with the same intents a
// person would tap in.
type Agent struct {
	Name     string
	Strategy Brain

	guest  *app.Guest
	logger runtime.Logger

	passedCard int // card id of the last steal window the agent sat out
}

// NewAgent binds a strategy to a seated or soon-to-be-seated guest.
func NewAgent(name string, strategy Brain, guest *app.Guest, logger runtime.Logger) *Agent {
	return &Agent{Name: name, Strategy: strategy, guest: guest, logger: logger}
}

// Step acts on the current view at most once per decision point and reports whether it sent
// anything.
func (a *Agent) Step() (bool, error) {
	v := a.guest.View()
	switch v.Phase {
	case app.GuestYourTurn:
		if v.CurrentCard == nil {
			return false, nil
		}
		pos := a.Strategy.Place(v.Timeline, *v.CurrentCard)
		if err := a.guest.Select(pos); err != nil {
			return false, err
		}
		a.logger.Debug("Agent: %s places card %d at %d.", a.Name, v.CurrentCard.ID, pos)
		return true, a.guest.Confirm()

	case app.GuestTokenWindow:
		if v.TokenCard == nil || v.TokenUsed || v.Tokens <= 0 || v.PlayerIndex == v.CurrentPlayerIndex {
			return false, nil
		}
		if a.passedCard == v.TokenCard.ID {
			return false, nil
		}
		pos, ok := a.Strategy.Steal(v.TokenTimeline, *v.TokenCard, v.TakenPositions, v.Tokens)
		if !ok {
			a.passedCard = v.TokenCard.ID
			return false, nil
		}
		a.logger.Debug("Agent: %s steals card %d at %d.", a.Name, v.TokenCard.ID, pos)
		return true, a.guest.Select(pos)
	}
	return false, nil
}

// Run steps the agent every interval until ctx is cancelled or the game ends.
func (a *Agent) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.guest.Tick(interval)
			if a.guest.View().Phase == app.GuestGameOver {
				a.logger.Info("Agent: %s finished, winner %q.", a.Name, *a.guest.View().Winner)
				return nil
			}
			if _, err := a.Step(); err != nil {
				a.logger.Warn("Agent: %s: %v", a.Name, err)
			}
		}
	}
}
