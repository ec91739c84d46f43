// Package session implements the block → monitor → reward → re-block cycle.
package session

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/card_gate/internal/domain"
)

// Config holds controller timing.
type Config struct {
	PollInterval   time.Duration // Time between counter reads while monitoring
	StallThreshold int           // Consecutive absent reads before the operator is warned
}

// DefaultConfig returns default controller configuration.
func DefaultConfig() Config {
	return Config{
		PollInterval:   1500 * time.Millisecond,
		StallThreshold: 3,
	}
}

// Controller is the session state machine.
// It is driven by a single goroutine; none of its methods are safe for
// concurrent use.
type Controller struct {
	config    Config
	gate      domain.Gate
	counter   domain.ReviewCounter
	presenter domain.Presenter
	clock     domain.Clock
	changes   <-chan struct{}
	logger    *zap.Logger

	state        domain.State
	session      domain.Session
	absentStreak int
	sitesBlocked bool
}

// NewController creates a controller in the Idle state.
func NewController(
	config Config,
	session domain.Session,
	gate domain.Gate,
	counter domain.ReviewCounter,
	presenter domain.Presenter,
	clock domain.Clock,
	logger *zap.Logger,
) *Controller {
	if config.StallThreshold < 1 {
		config.StallThreshold = 1
	}
	return &Controller{
		config:    config,
		gate:      gate,
		counter:   counter,
		presenter: presenter,
		clock:     clock,
		logger:    logger,
		state:     domain.StateIdle,
		session:   session,
	}
}

// WatchHosts makes the controller re-apply the block at the next tick after
// a signal on changes.
func (c *Controller) WatchHosts(changes <-chan struct{}) {
	c.changes = changes
}

// State returns the current state.
func (c *Controller) State() domain.State {
	return c.state
}

// Session returns a copy of the session.
func (c *Controller) Session() domain.Session {
	return c.session
}

// SitesBlocked reports whether the last completed transition left sites blocked.
func (c *Controller) SitesBlocked() bool {
	return c.sitesBlocked
}

// Run starts the session and monitors until ctx is canceled.
// Cancellation is a clean stop and returns nil; sites keep their state.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.Start(ctx); err != nil {
		return err
	}
	if c.state == domain.StateTerminated {
		return nil
	}
	return c.Monitor(ctx)
}

// Start moves Idle → Blocking → Monitoring.
// The block is applied before the baseline read, so a failed read leaves
// sites blocked with no monitor running. An interruption during the read is
// a clean stop: Start returns nil in the Terminated state.
func (c *Controller) Start(ctx context.Context) error {
	c.state = domain.StateBlocking
	c.presenter.SessionStarted(c.session.Quota, c.session.RewardDuration)

	if err := c.gate.Engage(ctx); err != nil {
		c.state = domain.StateTerminated
		return err
	}
	c.sitesBlocked = true
	c.drainChanges()

	reading := c.counter.FetchCount(ctx)
	if !reading.Present && ctx.Err() != nil {
		// Interrupted while the baseline request was in flight
		return c.terminate(ctx.Err())
	}
	if !reading.Present {
		c.state = domain.StateTerminated
		c.logger.Error("baseline read failed, sites remain blocked")
		return domain.ErrBaselineUnavailable
	}

	c.session.Baseline = reading.Count
	c.state = domain.StateMonitoring
	c.logger.Info("session started",
		zap.Int("baseline", c.session.Baseline),
		zap.Int("quota", c.session.Quota),
		zap.Duration("reward", c.session.RewardDuration))
	return nil
}

// Monitor polls until ctx is canceled, running a reward cycle whenever the
// quota is reached.
func (c *Controller) Monitor(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return c.terminate(ctx.Err())
		}

		if c.Poll(ctx) {
			if err := c.Reward(ctx); err != nil {
				return c.terminate(err)
			}
		}

		if err := c.clock.Sleep(ctx, c.config.PollInterval); err != nil {
			return c.terminate(err)
		}
	}
}

// Poll runs one Monitoring tick. It returns true when the quota is reached,
// leaving the controller in Rewarding.
func (c *Controller) Poll(ctx context.Context) bool {
	c.checkHosts(ctx)

	reading := c.counter.FetchCount(ctx)
	if !reading.Present {
		c.absentStreak++
		c.logger.Debug("review count absent", zap.Int("streak", c.absentStreak))
		if c.absentStreak == c.config.StallThreshold {
			c.logger.Warn("review service stalled", zap.Int("consecutive_absent", c.absentStreak))
			c.presenter.Stalled(c.absentStreak)
		}
		return false
	}
	c.absentStreak = 0

	c.presenter.Progress(c.session.Done(reading.Count), c.session.Quota)
	if !c.session.Reached(reading.Count) {
		return false
	}

	c.logger.Info("quota reached",
		zap.Int("count", reading.Count),
		zap.Int("baseline", c.session.Baseline))
	c.state = domain.StateRewarding
	return true
}

// Reward runs Rewarding → Blocking → Monitoring: unblock, pause for the
// full reward without polling, re-block, then re-baseline.
func (c *Controller) Reward(ctx context.Context) error {
	c.state = domain.StateRewarding
	if err := c.gate.Release(ctx, domain.ReleaseEarned); err != nil {
		return err
	}
	c.sitesBlocked = false

	c.presenter.RewardStarted(c.session.RewardDuration)
	if err := c.clock.Sleep(ctx, c.session.RewardDuration); err != nil {
		return err
	}

	c.state = domain.StateBlocking
	if err := c.gate.Engage(ctx); err != nil {
		return err
	}
	c.sitesBlocked = true
	c.drainChanges()

	reading := c.counter.FetchCount(ctx)
	if reading.Present {
		c.session.Baseline = reading.Count
	} else {
		c.logger.Warn("re-baseline read failed, keeping previous baseline",
			zap.Int("baseline", c.session.Baseline))
	}
	c.absentStreak = 0
	c.state = domain.StateMonitoring
	return nil
}

// checkHosts re-applies the block if the hosts file changed since the last tick.
func (c *Controller) checkHosts(ctx context.Context) {
	if c.changes == nil {
		return
	}
	select {
	case <-c.changes:
	default:
		return
	}

	added, err := c.gate.Reinforce(ctx)
	if err != nil {
		c.logger.Warn("failed to re-apply block", zap.Error(err))
		c.presenter.GuardFailed(err)
		return
	}
	if added > 0 {
		c.presenter.Tampered(added)
	}
}

// drainChanges discards signals caused by our own writes.
func (c *Controller) drainChanges() {
	if c.changes == nil {
		return
	}
	for {
		select {
		case <-c.changes:
		default:
			return
		}
	}
}

// terminate enters Terminated. Cancellation is reported as a clean stop.
func (c *Controller) terminate(err error) error {
	c.state = domain.StateTerminated
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		c.logger.Info("session interrupted", zap.Bool("sites_blocked", c.sitesBlocked))
		c.presenter.Closed(c.sitesBlocked)
		return nil
	}
	c.logger.Error("session failed", zap.Error(err))
	return err
}
