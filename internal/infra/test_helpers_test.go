package infra

import (
	"context"
	"os"
	"strings"

	"github.com/eliteGoblin/focusd/card_gate/internal/domain"
)

// mockProcessManager is a test double for ProcessManager
type mockProcessManager struct {
	runningPIDs map[int]bool
}

func newMockProcessManager() *mockProcessManager {
	return &mockProcessManager{
		runningPIDs: make(map[int]bool),
	}
}

func (m *mockProcessManager) IsRunning(pid int) bool {
	return m.runningPIDs[pid]
}

func (m *mockProcessManager) GetCurrentPID() int {
	return os.Getpid()
}

func (m *mockProcessManager) SetRunning(pid int, running bool) {
	m.runningPIDs[pid] = running
}

// Ensure mockProcessManager implements domain.ProcessManager
var _ domain.ProcessManager = (*mockProcessManager)(nil)

// mockCommandRunner records commands instead of executing them
type mockCommandRunner struct {
	ran      []string
	started  []string
	runErrs  map[string]error // keyed by command name
	startErr map[string]error // keyed by first argument
}

func newMockCommandRunner() *mockCommandRunner {
	return &mockCommandRunner{
		runErrs:  make(map[string]error),
		startErr: make(map[string]error),
	}
}

func (m *mockCommandRunner) Run(ctx context.Context, name string, args ...string) error {
	m.ran = append(m.ran, strings.Join(append([]string{name}, args...), " "))
	return m.runErrs[name]
}

func (m *mockCommandRunner) Start(name string, args ...string) error {
	m.started = append(m.started, strings.Join(append([]string{name}, args...), " "))
	if len(args) > 0 {
		return m.startErr[args[0]]
	}
	return nil
}

// mockFileChecker reports existence from a fixed set
type mockFileChecker struct {
	existing map[string]bool
}

func newMockFileChecker(paths ...string) *mockFileChecker {
	m := &mockFileChecker{existing: make(map[string]bool)}
	for _, p := range paths {
		m.existing[p] = true
	}
	return m
}

func (m *mockFileChecker) Exists(path string) bool {
	return m.existing[path]
}
