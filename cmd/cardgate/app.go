package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/card_gate/internal/config"
	"github.com/eliteGoblin/focusd/card_gate/internal/domain"
	"github.com/eliteGoblin/focusd/card_gate/internal/infra"
	"github.com/eliteGoblin/focusd/card_gate/internal/session"
	"github.com/eliteGoblin/focusd/card_gate/internal/ui"
	"github.com/eliteGoblin/focusd/card_gate/internal/usecase"
)

// runner executes the actions a command line can select.
type runner interface {
	Unblock(ctx context.Context) error
	Session(ctx context.Context, minutes int) error
}

// app wires the gate for one invocation.
type app struct {
	cfg      *config.Config
	console  *ui.Console
	logger   *zap.Logger
	registry domain.BlockRegistry
	flusher  domain.ResolverFlusher
	notifier domain.Notifier
	counter  domain.ReviewCounter
	clock    domain.Clock
	lock     domain.SessionLock
	pm       domain.ProcessManager

	// watch starts the hosts watcher; nil disables the tamper guard.
	watch func() (<-chan struct{}, func(), error)
}

func newApp(cfg *config.Config, execMode *infra.ExecModeConfig, console *ui.Console, logger *zap.Logger) *app {
	pm := infra.NewProcessManager()
	a := &app{
		cfg:      cfg,
		console:  console,
		logger:   logger,
		registry: infra.NewHostsFile(cfg.HostsPath, logger),
		flusher:  infra.NewResolverFlusher(logger),
		notifier: infra.NewSoundNotifier(cfg.SoundFile, logger),
		counter:  infra.NewAnkiClient(cfg.ServiceURL, cfg.RequestTimeout, logger),
		clock:    session.RealClock{},
		lock:     infra.NewFileSessionLock(execMode.LockPath, pm),
		pm:       pm,
	}
	if cfg.GuardHosts {
		a.watch = func() (<-chan struct{}, func(), error) {
			w, err := infra.NewHostsWatcher(cfg.HostsPath, logger)
			if err != nil {
				return nil, nil, err
			}
			return w.Changes(), func() { _ = w.Close() }, nil
		}
	}
	return a
}

// Unblock removes every managed host, flushes and exits. It ignores the
// session lock and never plays the reward sound.
func (a *app) Unblock(ctx context.Context) error {
	gate := a.newGate(nil)
	if err := gate.Release(ctx, domain.ReleaseManual); err != nil {
		a.console.Error(err)
		return &exitError{code: 1, err: err}
	}
	return nil
}

// Session runs the block/reward cycle until interrupted.
func (a *app) Session(ctx context.Context, minutes int) error {
	sess := domain.NewSession(minutes, a.cfg.CardsPerMinute, a.cfg.Hostnames)

	record := domain.SessionRecord{
		PID:       a.pm.GetCurrentPID(),
		StartedAt: time.Now().Unix(),
		HostsPath: a.cfg.HostsPath,
		Quota:     sess.Quota,
	}
	if err := a.lock.Acquire(record); err != nil {
		a.console.Error(err)
		return &exitError{code: 1, err: err}
	}
	defer func() {
		if err := a.lock.Release(); err != nil {
			a.logger.Warn("failed to release session lock", zap.Error(err))
		}
	}()

	ctrl := session.NewController(
		session.Config{
			PollInterval:   a.cfg.PollInterval,
			StallThreshold: a.cfg.StallThreshold,
		},
		sess,
		a.newGate(a.notifier),
		a.counter,
		a.console,
		a.clock,
		a.logger,
	)

	if a.watch != nil {
		changes, stop, err := a.watch()
		if err != nil {
			a.logger.Warn("hosts watcher unavailable, tamper guard disabled", zap.Error(err))
		} else {
			defer stop()
			ctrl.WatchHosts(changes)
		}
	}

	if err := ctrl.Run(ctx); err != nil {
		a.console.Error(err)
		return &exitError{code: 1, err: err}
	}
	return nil
}

func (a *app) newGate(notifier domain.Notifier) domain.Gate {
	return usecase.NewGate(a.registry, a.flusher, notifier, a.console, a.cfg.Hostnames, a.logger)
}

// Status reports the config, hosts state and any running session.
func (a *app) Status(execMode *infra.ExecModeConfig) error {
	report := ui.StatusReport{
		ConfigPath: a.cfg.Path,
		HostsPath:  a.cfg.HostsPath,
		Mode:       execMode.Mode.String(),
		Hosts:      a.cfg.Hostnames,
	}

	blocked, err := a.registry.Blocked(a.cfg.Hostnames)
	if err != nil {
		a.console.Error(err)
		return &exitError{code: 1, err: err}
	}
	report.Blocked = blocked

	holder, err := a.lock.Holder()
	if err != nil {
		a.logger.Warn("unreadable session lock", zap.Error(err))
	}
	report.Session = holder

	a.console.Status(report)
	return nil
}

var _ runner = (*app)(nil)
