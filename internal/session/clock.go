package session

import (
	"context"
	"time"

	"github.com/eliteGoblin/focusd/card_gate/internal/domain"
)

// RealClock implements domain.Clock with the wall clock.
type RealClock struct{}

// Sleep waits for d or until ctx is done.
func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Ensure RealClock implements domain.Clock.
var _ domain.Clock = RealClock{}
