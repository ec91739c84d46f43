package infra

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/card_gate/internal/domain"
)

// DefaultHostsPath is the macOS system hosts file.
const DefaultHostsPath = "/etc/hosts"

// HostsFile implements domain.BlockRegistry over a hosts file.
//
// Presence is decided by substring match on the raw file text, and so is
// removal. A line such as "127.0.0.1 oldreddit.com" is dropped when
// "reddit.com" is unblocked. This over-removal is known and kept.
//
// There is no locking against other writers. Single-instance operation is
// assumed (see SessionLock); concurrent external edits are undefined.
type HostsFile struct {
	path   string
	logger *zap.Logger
}

// NewHostsFile creates a registry for the hosts file at path.
func NewHostsFile(path string, logger *zap.Logger) *HostsFile {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HostsFile{path: path, logger: logger}
}

// Path returns the managed hosts file path.
func (h *HostsFile) Path() string {
	return h.path
}

// Block appends "127.0.0.1 <host>" for each host not already in the file.
// The file is left untouched when nothing needs appending.
func (h *HostsFile) Block(hosts []string) (int, error) {
	content, err := os.ReadFile(h.path)
	if err != nil {
		return 0, fmt.Errorf("read hosts file: %w", err)
	}
	text := string(content)

	var appended strings.Builder
	added := 0
	for _, host := range normalizeHosts(hosts) {
		// Checked against the file as read, not against lines appended in
		// this call: "www.youtube.com" must not hide "youtube.com".
		if strings.Contains(text, host) {
			continue
		}
		fmt.Fprintf(&appended, "%s %s\n", domain.RedirectAddress, host)
		added++
	}

	if added == 0 {
		return 0, nil
	}

	if len(text) > 0 && !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	text += appended.String()

	if err := AtomicWriteFile(h.path, []byte(text), 0644); err != nil {
		return 0, fmt.Errorf("write hosts file: %w", err)
	}

	h.logger.Info("hosts blocked",
		zap.String("path", h.path),
		zap.Int("added", added))
	return added, nil
}

// Unblock rewrites the file without any line containing one of hosts.
func (h *HostsFile) Unblock(hosts []string) (int, error) {
	content, err := os.ReadFile(h.path)
	if err != nil {
		return 0, fmt.Errorf("read hosts file: %w", err)
	}

	hosts = normalizeHosts(hosts)
	lines := strings.SplitAfter(string(content), "\n")

	var kept strings.Builder
	removed := 0
	for _, line := range lines {
		if line == "" {
			continue
		}
		if containsAny(line, hosts) {
			removed++
			continue
		}
		kept.WriteString(line)
	}

	if removed == 0 {
		return 0, nil
	}

	if err := AtomicWriteFile(h.path, []byte(kept.String()), 0644); err != nil {
		return 0, fmt.Errorf("write hosts file: %w", err)
	}

	h.logger.Info("hosts unblocked",
		zap.String("path", h.path),
		zap.Int("removed", removed))
	return removed, nil
}

// Blocked returns the hosts that have a redirect line pointing at the
// loopback address. Unlike Block, this is an exact field match.
func (h *HostsFile) Blocked(hosts []string) ([]string, error) {
	content, err := os.ReadFile(h.path)
	if err != nil {
		return nil, fmt.Errorf("read hosts file: %w", err)
	}

	redirected := make(map[string]bool)
	for _, line := range strings.Split(string(content), "\n") {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] != domain.RedirectAddress {
			continue
		}
		for _, name := range fields[1:] {
			redirected[name] = true
		}
	}

	var blocked []string
	for _, host := range normalizeHosts(hosts) {
		if redirected[host] {
			blocked = append(blocked, host)
		}
	}
	return blocked, nil
}

// normalizeHosts trims, drops empties and removes exact duplicates while
// keeping order. An empty host would match every line on Unblock.
func normalizeHosts(hosts []string) []string {
	seen := make(map[string]bool, len(hosts))
	out := make([]string, 0, len(hosts))
	for _, host := range hosts {
		host = strings.TrimSpace(host)
		if host == "" || seen[host] {
			continue
		}
		seen[host] = true
		out = append(out, host)
	}
	return out
}

func containsAny(line string, hosts []string) bool {
	for _, host := range hosts {
		if strings.Contains(line, host) {
			return true
		}
	}
	return false
}

// Ensure HostsFile implements domain.BlockRegistry.
var _ domain.BlockRegistry = (*HostsFile)(nil)
