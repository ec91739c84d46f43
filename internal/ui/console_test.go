package ui

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/eliteGoblin/focusd/card_gate/internal/domain"
)

// A bytes.Buffer is not a TTY, so the renderer emits no colour codes.
func newTestConsole() (*Console, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewConsole(&buf, 1), &buf
}

func TestConsole_ProgressRewritesOneLine(t *testing.T) {
	c, buf := newTestConsole()

	c.Progress(0, 5)
	c.Progress(2, 5)

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "\r"))
	assert.NotContains(t, out, "\n")
	assert.Contains(t, out, "\rProgress: 2/5 cards completed ")
}

func TestConsole_MessageAfterProgressStartsNewLine(t *testing.T) {
	c, buf := newTestConsole()

	c.Progress(5, 5)
	c.Closed(true)

	assert.Contains(t, buf.String(), "cards completed "+strings.Repeat("█", barWidth)+"\n")
	assert.Contains(t, buf.String(), "Sites remain blocked for focus!")
}

func TestConsole_Bar(t *testing.T) {
	c, _ := newTestConsole()

	tests := []struct {
		done, quota, filled int
	}{
		{0, 5, 0},
		{1, 4, 5},
		{5, 5, barWidth},
		{9, 5, barWidth},
		{-3, 5, 0},
		{3, 0, 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.done, tt.quota), func(t *testing.T) {
			bar := c.bar(tt.done, tt.quota)
			assert.Equal(t, tt.filled, strings.Count(bar, "█"))
			assert.Equal(t, barWidth-tt.filled, strings.Count(bar, "░"))
		})
	}
}

func TestConsole_SessionStarted(t *testing.T) {
	c, buf := newTestConsole()

	c.SessionStarted(15, 3*time.Minute)
	assert.Contains(t, buf.String(), "Goal: 15 cards | Reward: 3 minutes")

	buf.Reset()
	c.SessionStarted(5, time.Minute)
	assert.Contains(t, buf.String(), "Reward: 1 minute\n")
}

func TestConsole_SitesUnblocked(t *testing.T) {
	c, buf := newTestConsole()

	c.SitesUnblocked(domain.ReleaseManual)
	assert.Contains(t, buf.String(), "--- SITES UNBLOCKED --- (manual)")

	buf.Reset()
	c.SitesUnblocked(domain.ReleaseEarned)
	assert.NotContains(t, buf.String(), "manual")
}

func TestConsole_Closed(t *testing.T) {
	c, buf := newTestConsole()

	c.Closed(false)
	assert.Contains(t, buf.String(), "Sites remain unblocked.")
}

func TestConsole_UsageMentionsDefault(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, 7)

	c.Usage()

	assert.True(t, strings.HasPrefix(buf.String(), "\nUsage: cardgate [-d] [-<minutes>] [-u]"))
	assert.Contains(t, buf.String(), "Start session with default (7m).")
}

func TestConsole_InvalidOption(t *testing.T) {
	c, buf := newTestConsole()

	c.InvalidOption("-xyz")

	assert.True(t, strings.HasPrefix(buf.String(), "-xyz is not a valid command option.\n\nUsage:"))
}

func TestConsole_ErrorHints(t *testing.T) {
	tests := []struct {
		name string
		err  error
		hint string
	}{
		{"permission", fmt.Errorf("block sites: %w", fs.ErrPermission), "Run again with sudo"},
		{"baseline", domain.ErrBaselineUnavailable, "Run cardgate -u to unblock"},
		{"running", fmt.Errorf("%w (pid 12)", domain.ErrSessionRunning), "Ctrl-C"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, buf := newTestConsole()
			c.Error(tt.err)
			assert.Contains(t, buf.String(), "Error: "+tt.err.Error())
			assert.Contains(t, buf.String(), tt.hint)
		})
	}

	c, buf := newTestConsole()
	c.Error(errors.New("plain"))
	assert.Equal(t, "Error: plain\n", buf.String())
}

func TestConsole_Status(t *testing.T) {
	c, buf := newTestConsole()

	c.Status(StatusReport{
		ConfigPath: "/opt/cardgate/config.json",
		HostsPath:  "/etc/hosts",
		Hosts:      []string{"reddit.com", "youtube.com"},
		Blocked:    []string{"reddit.com"},
		Session:    &domain.SessionRecord{PID: 321, StartedAt: time.Now().Unix(), Quota: 10},
	})

	out := buf.String()
	assert.Contains(t, out, "Config:  /opt/cardgate/config.json")
	assert.Contains(t, out, "Blocked: 1/2")
	assert.Contains(t, out, "✗ reddit.com")
	assert.Contains(t, out, "✓ youtube.com")
	assert.Contains(t, out, "pid 321")
	assert.Contains(t, out, "goal 10 cards")
}

func TestConsole_StatusWithoutSession(t *testing.T) {
	c, buf := newTestConsole()

	c.Status(StatusReport{ConfigPath: "c", HostsPath: "h"})

	assert.Contains(t, buf.String(), "Session: none")
}

func TestConsole_FirstRun(t *testing.T) {
	c, buf := newTestConsole()

	c.FirstRun("/opt/cardgate/config.json")

	assert.Contains(t, buf.String(), "--- FIRST RUN DETECTED ---")
	assert.Contains(t, buf.String(), "Created a default config.json at: /opt/cardgate/config.json")
}

func TestConsole_GuardFailed(t *testing.T) {
	c, buf := newTestConsole()

	c.GuardFailed(fmt.Errorf("reinforce block: %w", fs.ErrPermission))

	assert.Contains(t, buf.String(), "Error: reinforce block:")
	assert.Contains(t, buf.String(), "Run again with sudo")
}
