// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import (
	"errors"
	"math"
	"time"
)

// RedirectAddress is the loopback address blocked hostnames resolve to.
const RedirectAddress = "127.0.0.1"

var (
	// ErrBaselineUnavailable means the review service could not be read when
	// the session started. Sites stay blocked.
	ErrBaselineUnavailable = errors.New("review service unavailable: could not read baseline count")

	// ErrSessionRunning means another session already holds the session lock.
	ErrSessionRunning = errors.New("another cardgate session is already running")
)

// State is a SessionController state.
type State string

const (
	StateIdle       State = "idle"
	StateBlocking   State = "blocking"
	StateMonitoring State = "monitoring"
	StateRewarding  State = "rewarding"
	StateTerminated State = "terminated"
)

// CounterReading is a snapshot of the completed-review count.
// An absent reading means the service was unreachable or returned something
// unparseable at that instant. It is not the same as zero.
type CounterReading struct {
	Count   int
	Present bool
}

// Reading returns a present reading.
func Reading(count int) CounterReading {
	return CounterReading{Count: count, Present: true}
}

// Absent returns an absent reading.
func Absent() CounterReading {
	return CounterReading{}
}

// Session is the state of one block/reward cycle run. It lives for the
// process only.
type Session struct {
	Baseline       int           // Counter value the current quota is measured from
	Quota          int           // Cards required to earn the reward
	RewardDuration time.Duration // Length of the unblocked window
	Hosts          []string      // Hostnames under the gate
}

// MaxRewardMinutes is the longest reward whose duration fits a time.Duration.
const MaxRewardMinutes = math.MaxInt64 / int64(time.Minute)

// ValidRewardMinutes reports whether minutes is a usable reward length.
func ValidRewardMinutes(minutes int) bool {
	return minutes > 0 && int64(minutes) <= MaxRewardMinutes
}

// Quota returns the cards required for a reward of minutes, rounded up.
// For integral ratios this is exactly minutes × cardsPerMinute.
func Quota(minutes int, cardsPerMinute float64) int {
	product := float64(minutes) * cardsPerMinute
	// Absorb float noise such as 10 × 1.1 = 11.000000000000002.
	return int(math.Ceil(product - 1e-9))
}

// NewSession derives quota and reward duration from the reward minutes.
// Baseline is set once the first reading is taken.
func NewSession(minutes int, cardsPerMinute float64, hosts []string) Session {
	return Session{
		Quota:          Quota(minutes, cardsPerMinute),
		RewardDuration: time.Duration(minutes) * time.Minute,
		Hosts:          hosts,
	}
}

// Done returns how many cards have been completed against the quota.
func (s Session) Done(current int) int {
	return current - s.Baseline
}

// Reached reports whether current satisfies the quota.
func (s Session) Reached(current int) bool {
	return current >= s.Baseline+s.Quota
}

// ReleaseReason distinguishes an earned unblock from an operator override.
type ReleaseReason int

const (
	ReleaseEarned ReleaseReason = iota
	ReleaseManual
)

func (r ReleaseReason) String() string {
	if r == ReleaseManual {
		return "manual"
	}
	return "earned"
}

// SessionRecord is written to the session lock file so other invocations
// can see who holds the gate.
type SessionRecord struct {
	PID       int    `json:"pid"`
	StartedAt int64  `json:"started_at"`
	HostsPath string `json:"hosts_path"`
	Quota     int    `json:"quota"`
}
