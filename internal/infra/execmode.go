// Package infra implements infrastructure concerns (hosts file, review
// service, resolver, sound, session lock).
package infra

import (
	"os"
	"os/user"
	"path/filepath"
)

// ExecMode represents the privilege level the gate runs with.
type ExecMode string

const (
	// ExecModeUser cannot write the hosts file; only status and config work.
	ExecModeUser ExecMode = "user"
	// ExecModeSystem runs as root (sudo) and can write the hosts file.
	ExecModeSystem ExecMode = "system"
)

const (
	// DefaultLockPath is where the running session records itself.
	DefaultLockPath = "/var/tmp/.cardgate.lock"

	// DefaultLogPath is the zap log file.
	DefaultLogPath = "/var/tmp/cardgate.log"

	// SystemAlertSound is played when the configured success asset is missing.
	SystemAlertSound = "/System/Library/Sounds/Glass.aiff"
)

// ExecModeConfig holds privilege and platform settings.
type ExecModeConfig struct {
	Mode      ExecMode
	IsRoot    bool
	LockPath  string
	ConfigDir string // Directory holding config.json and success.wav
}

// DetectExecMode determines the execution mode based on effective UID.
// The config directory is the directory of the running executable.
func DetectExecMode() *ExecModeConfig {
	isRoot := os.Geteuid() == 0

	mode := ExecModeUser
	if isRoot {
		mode = ExecModeSystem
	}

	return &ExecModeConfig{
		Mode:      mode,
		IsRoot:    isRoot,
		LockPath:  DefaultLockPath,
		ConfigDir: executableDir(),
	}
}

// String returns a human-readable description of the mode.
func (m ExecMode) String() string {
	switch m {
	case ExecModeSystem:
		return "system (root, hosts file writable)"
	case ExecModeUser:
		return "user (non-root, hosts file read-only)"
	default:
		return "unknown"
	}
}

// GetRealUserHome returns the real user's home directory, even when running under sudo.
// Under sudo, os.UserHomeDir() returns /var/root, so we use SUDO_USER to find the real user.
func GetRealUserHome() string {
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
		if u, err := user.Lookup(sudoUser); err == nil {
			return u.HomeDir
		}
	}
	home, _ := os.UserHomeDir()
	return home
}

func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		wd, _ := os.Getwd()
		return wd
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}
