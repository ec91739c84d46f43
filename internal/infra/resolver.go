package infra

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/card_gate/internal/domain"
)

// DefaultFlushCommands drop the macOS resolver cache, then make
// mDNSResponder re-read /etc/hosts.
var DefaultFlushCommands = [][]string{
	{"dscacheutil", "-flushcache"},
	{"killall", "-HUP", "mDNSResponder"},
}

// ResolverFlusher implements domain.ResolverFlusher by running commands in order.
type ResolverFlusher struct {
	commands  [][]string
	cmdRunner CommandRunner
	logger    *zap.Logger
}

// NewResolverFlusher creates a flusher using the default macOS commands.
func NewResolverFlusher(logger *zap.Logger) *ResolverFlusher {
	return NewResolverFlusherWithDeps(DefaultFlushCommands, &RealCommandRunner{}, logger)
}

// NewResolverFlusherWithDeps creates a flusher with injectable dependencies (for testing)
func NewResolverFlusherWithDeps(commands [][]string, cmdRunner CommandRunner, logger *zap.Logger) *ResolverFlusher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResolverFlusher{
		commands:  commands,
		cmdRunner: cmdRunner,
		logger:    logger,
	}
}

// Flush runs every command even if an earlier one fails.
// The joined error is informational; callers treat flushing as best effort.
func (f *ResolverFlusher) Flush(ctx context.Context) error {
	var errs []error
	for _, command := range f.commands {
		if len(command) == 0 {
			continue
		}
		if err := f.cmdRunner.Run(ctx, command[0], command[1:]...); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", strings.Join(command, " "), err))
			continue
		}
		f.logger.Debug("resolver command ok", zap.Strings("command", command))
	}
	return errors.Join(errs...)
}

// Ensure ResolverFlusher implements domain.ResolverFlusher.
var _ domain.ResolverFlusher = (*ResolverFlusher)(nil)
