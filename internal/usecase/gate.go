// Package usecase contains application business logic.
package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/card_gate/internal/domain"
)

// GateImpl implements domain.Gate.
// Every transition finishes its hosts write before the resolver is flushed,
// so the resolver never re-reads a half-written file.
type GateImpl struct {
	registry  domain.BlockRegistry
	flusher   domain.ResolverFlusher
	notifier  domain.Notifier
	presenter domain.Presenter
	hosts     []string
	logger    *zap.Logger
}

// NewGate creates a gate over hosts.
// notifier and presenter may be nil.
func NewGate(
	registry domain.BlockRegistry,
	flusher domain.ResolverFlusher,
	notifier domain.Notifier,
	presenter domain.Presenter,
	hosts []string,
	logger *zap.Logger,
) *GateImpl {
	return &GateImpl{
		registry:  registry,
		flusher:   flusher,
		notifier:  notifier,
		presenter: presenter,
		hosts:     hosts,
		logger:    logger,
	}
}

// Engage blocks the hosts and flushes the resolver.
func (g *GateImpl) Engage(ctx context.Context) error {
	added, err := g.registry.Block(g.hosts)
	if err != nil {
		g.logger.Error("failed to block hosts",
			zap.String("path", g.registry.Path()),
			zap.Error(err))
		return fmt.Errorf("block sites: %w", err)
	}

	g.flush(ctx)

	g.logger.Info("sites blocked", zap.Int("added", added))
	if g.presenter != nil {
		g.presenter.SitesBlocked()
	}
	return nil
}

// Reinforce repairs the block after an external edit. Presence is an exact
// redirect line, so a deleted or commented-out entry counts as missing even
// when another line still mentions the name. Missing entries trigger a full
// unblock and re-block. Returns how many hosts were missing.
func (g *GateImpl) Reinforce(ctx context.Context) (int, error) {
	blocked, err := g.registry.Blocked(g.hosts)
	if err != nil {
		return 0, fmt.Errorf("reinforce block: %w", err)
	}

	present := make(map[string]bool, len(blocked))
	for _, h := range blocked {
		present[h] = true
	}
	var missing []string
	for _, h := range g.hosts {
		if !present[h] {
			missing = append(missing, h)
			present[h] = true
		}
	}
	if len(missing) == 0 {
		return 0, nil
	}

	if _, err := g.registry.Unblock(g.hosts); err != nil {
		return 0, fmt.Errorf("reinforce block: %w", err)
	}
	if _, err := g.registry.Block(g.hosts); err != nil {
		return 0, fmt.Errorf("reinforce block: %w", err)
	}
	g.flush(ctx)

	g.logger.Warn("hosts file lost block entries, re-applied", zap.Strings("missing", missing))
	return len(missing), nil
}

// Release unblocks the hosts and flushes the resolver.
// Earned releases then play the notification; manual ones never do.
func (g *GateImpl) Release(ctx context.Context, reason domain.ReleaseReason) error {
	removed, err := g.registry.Unblock(g.hosts)
	if err != nil {
		g.logger.Error("failed to unblock hosts",
			zap.String("path", g.registry.Path()),
			zap.String("reason", reason.String()),
			zap.Error(err))
		return fmt.Errorf("unblock sites: %w", err)
	}

	g.flush(ctx)

	if reason == domain.ReleaseEarned && g.notifier != nil {
		if err := g.notifier.Notify(); err != nil {
			g.logger.Debug("notification failed", zap.Error(err))
		}
	}

	g.logger.Info("sites unblocked",
		zap.String("reason", reason.String()),
		zap.Int("removed", removed))
	if g.presenter != nil {
		g.presenter.SitesUnblocked(reason)
	}
	return nil
}

// flush is best effort; failures are logged only.
func (g *GateImpl) flush(ctx context.Context) {
	if g.flusher == nil {
		return
	}
	if err := g.flusher.Flush(ctx); err != nil {
		g.logger.Warn("resolver flush failed", zap.Error(err))
		return
	}
	g.logger.Debug("resolver cache flushed")
}

// Ensure GateImpl implements domain.Gate.
var _ domain.Gate = (*GateImpl)(nil)
