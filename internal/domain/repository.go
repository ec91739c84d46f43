package domain

import (
	"context"
	"time"
)

// BlockRegistry owns the hosts file.
// Implementation: infra.HostsFile (line-oriented text file, atomic replace).
type BlockRegistry interface {
	// Block appends a redirect line for every host not already present.
	// Returns the number of lines appended.
	Block(hosts []string) (int, error)

	// Unblock removes every line containing any of the hosts as a substring.
	// Returns the number of lines removed.
	Unblock(hosts []string) (int, error)

	// Blocked returns the hosts currently present in the file.
	Blocked(hosts []string) ([]string, error)

	// Path returns the managed file path.
	Path() string
}

// ReviewCounter reports completed reviews from the review-tracking service.
// It never returns an error: failures are an absent reading.
type ReviewCounter interface {
	FetchCount(ctx context.Context) CounterReading
}

// ResolverFlusher invalidates the OS resolver cache after hosts changes.
type ResolverFlusher interface {
	Flush(ctx context.Context) error
}

// Notifier plays the earned-reward notification. Best effort.
type Notifier interface {
	Notify() error
}

// Gate applies and lifts the block in the required order
// (registry, then resolver flush, then notification).
type Gate interface {
	// Engage blocks the configured hosts and flushes the resolver.
	Engage(ctx context.Context) error

	// Reinforce re-applies missing entries. Flushes only when something changed.
	Reinforce(ctx context.Context) (int, error)

	// Release unblocks the configured hosts and flushes the resolver.
	// Earned releases also notify.
	Release(ctx context.Context, reason ReleaseReason) error
}

// Presenter renders session progress to the operator.
type Presenter interface {
	SessionStarted(quota int, reward time.Duration)
	SitesBlocked()
	SitesUnblocked(reason ReleaseReason)
	RewardStarted(d time.Duration)
	Progress(done, quota int)
	Stalled(consecutive int)
	Tampered(readded int)
	GuardFailed(err error)
	Closed(blockedAtExit bool)
}

// Clock abstracts waiting for the session loop.
type Clock interface {
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// ProcessManager handles OS process queries.
// Implementation: uses gopsutil for cross-platform support.
type ProcessManager interface {
	// IsRunning checks if a PID exists and is running.
	IsRunning(pid int) bool

	// GetCurrentPID returns the current process PID.
	GetCurrentPID() int
}

// SessionLock guarantees a single running session per machine.
type SessionLock interface {
	// Acquire takes the lock and records the session, or returns ErrSessionRunning.
	Acquire(record SessionRecord) error

	// Release drops the lock and clears the record.
	Release() error

	// Holder returns the record of the live holder, or nil if none.
	Holder() (*SessionRecord, error)
}
