// Package ui renders operator-facing terminal output.
package ui

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/eliteGoblin/focusd/card_gate/internal/domain"
)

const barWidth = 20

// StatusReport is what the status command shows.
type StatusReport struct {
	ConfigPath string
	HostsPath  string
	Mode       string
	Hosts      []string
	Blocked    []string
	Session    *domain.SessionRecord // nil when no session is running
}

// Console implements domain.Presenter on a terminal.
// Progress is a single line rewritten with \r; any other message first ends
// that line.
type Console struct {
	mu             sync.Mutex
	out            io.Writer
	styles         styles
	defaultMinutes int
	progressOpen   bool
}

// NewConsole creates a console writing to out. defaultMinutes is shown in
// the usage text.
func NewConsole(out io.Writer, defaultMinutes int) *Console {
	return &Console{
		out:            out,
		styles:         newStyles(lipgloss.NewRenderer(out)),
		defaultMinutes: defaultMinutes,
	}
}

// FirstRun announces a freshly written default config.
func (c *Console) FirstRun(path string) {
	c.println(c.styles.hot.Render("--- FIRST RUN DETECTED ---"))
	c.println("Created a default config.json at: " + path)
	c.println("Please edit this file to add your specific blocked websites.")
	c.println(c.styles.hot.Render("---------------------------"))
	c.println("")
}

func (c *Console) SessionStarted(quota int, reward time.Duration) {
	c.println(c.styles.title.Render("--- CARDGATE STARTED ---"))
	c.println(fmt.Sprintf("Goal: %d cards | Reward: %s", quota, minutes(reward)))
}

func (c *Console) SitesBlocked() {
	c.println("")
	c.println(c.styles.hot.Render("--- SITES BLOCKED ---"))
}

func (c *Console) SitesUnblocked(reason domain.ReleaseReason) {
	c.println("")
	if reason == domain.ReleaseManual {
		c.println(c.styles.ok.Render("--- SITES UNBLOCKED ---") + c.styles.muted.Render(" (manual)"))
		return
	}
	c.println(c.styles.ok.Render("--- SITES UNBLOCKED ---"))
}

func (c *Console) RewardStarted(d time.Duration) {
	c.println(fmt.Sprintf("Quota reached. Enjoy %s; sites will be blocked again afterwards.", minutes(d)))
}

// Progress rewrites the current line.
func (c *Console) Progress(done, quota int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "\rProgress: %d/%d cards completed %s", done, quota, c.bar(done, quota))
	c.progressOpen = true
}

func (c *Console) Stalled(consecutive int) {
	c.println(c.styles.muted.Render(fmt.Sprintf(
		"Anki has not answered %d checks in a row. Is Anki open and AnkiConnect installed?", consecutive)))
}

func (c *Console) Tampered(readded int) {
	c.println(c.styles.hot.Render(fmt.Sprintf(
		"Hosts file was edited during the session: re-blocked %d entries.", readded)))
}

// GuardFailed reports that an edited hosts file could not be repaired.
// The session keeps running.
func (c *Console) GuardFailed(err error) {
	c.Error(err)
}

func (c *Console) Closed(blockedAtExit bool) {
	c.println("")
	if blockedAtExit {
		c.println(c.styles.title.Render("Cardgate closed. Sites remain blocked for focus!"))
		return
	}
	c.println(c.styles.title.Render("Cardgate closed during a reward. Sites remain unblocked."))
}

// Error prints err with a hint for the failures an operator can act on.
func (c *Console) Error(err error) {
	c.println(c.styles.err.Render("Error: ") + err.Error())

	switch {
	case errors.Is(err, fs.ErrPermission):
		c.println(c.styles.muted.Render("Editing the hosts file requires root. Run again with sudo."))
	case errors.Is(err, domain.ErrBaselineUnavailable):
		c.println(c.styles.muted.Render("Could not connect to Anki. Is Anki open and AnkiConnect installed?"))
		c.println(c.styles.muted.Render("Sites remain blocked. Run cardgate -u to unblock."))
	case errors.Is(err, domain.ErrSessionRunning):
		c.println(c.styles.muted.Render("Stop the running session with Ctrl-C, or run cardgate -u to unblock."))
	}
}

// Usage prints the help text preceded by a blank line.
func (c *Console) Usage() {
	c.println("")
	c.println(c.usageText())
}

// InvalidOption reports an unrecognised argument followed by the usage.
func (c *Console) InvalidOption(arg string) {
	c.println(fmt.Sprintf("%s is not a valid command option.", arg))
	c.println("")
	c.println(c.usageText())
}

func (c *Console) Status(report StatusReport) {
	c.println(c.styles.title.Render("cardgate status"))
	c.println(fmt.Sprintf("  Config:  %s", report.ConfigPath))
	c.println(fmt.Sprintf("  Hosts:   %s", report.HostsPath))
	if report.Mode != "" {
		c.println(fmt.Sprintf("  Mode:    %s", report.Mode))
	}

	blocked := make(map[string]bool, len(report.Blocked))
	for _, h := range report.Blocked {
		blocked[h] = true
	}
	c.println(fmt.Sprintf("  Blocked: %d/%d", len(report.Blocked), len(report.Hosts)))
	for _, h := range report.Hosts {
		if blocked[h] {
			c.println("    " + c.styles.hot.Render("✗ ") + h)
		} else {
			c.println("    " + c.styles.ok.Render("✓ ") + h)
		}
	}

	if report.Session == nil {
		c.println("  Session: " + c.styles.muted.Render("none"))
		return
	}
	started := time.Unix(report.Session.StartedAt, 0).Format("15:04:05")
	c.println(fmt.Sprintf("  Session: pid %d since %s, goal %d cards",
		report.Session.PID, started, report.Session.Quota))
}

func (c *Console) usageText() string {
	return strings.Join([]string{
		"Usage: cardgate [-d] [-<minutes>] [-u]",
		"",
		"Options:",
		fmt.Sprintf("    -d             Start session with default (%dm).", c.defaultMinutes),
		"    -<minutes>     Start session with custom reward minutes.",
		"    -u             Emergency unblock: Cleans the hosts file and exits.",
		"",
		"Commands:",
		"    status         Show config, blocked hosts and the running session.",
		"    version        Show version information.",
	}, "\n")
}

func (c *Console) bar(done, quota int) string {
	filled := 0
	if quota > 0 {
		filled = done * barWidth / quota
	}
	if filled < 0 {
		filled = 0
	}
	if filled > barWidth {
		filled = barWidth
	}
	return c.styles.barFull.Render(strings.Repeat("█", filled)) +
		c.styles.barRest.Render(strings.Repeat("░", barWidth-filled))
}

// println writes one line, ending an open progress line first.
func (c *Console) println(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.progressOpen {
		io.WriteString(c.out, "\n")
		c.progressOpen = false
	}
	io.WriteString(c.out, line+"\n")
}

func minutes(d time.Duration) string {
	m := int(d / time.Minute)
	if m == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", m)
}

// Ensure Console implements domain.Presenter.
var _ domain.Presenter = (*Console)(nil)
