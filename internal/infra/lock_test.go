package infra

import (
	"encoding/json"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/focusd/card_gate/internal/domain"
)

func newTestLock(t *testing.T, pm domain.ProcessManager) *FileSessionLock {
	t.Helper()
	return NewFileSessionLock(filepath.Join(t.TempDir(), ".cardgate.lock"), pm)
}

func TestFileSessionLock_AcquireWritesRecord(t *testing.T) {
	pm := newMockProcessManager()
	lock := newTestLock(t, pm)
	record := domain.SessionRecord{PID: 4242, StartedAt: 1700000000, HostsPath: "/etc/hosts", Quota: 5}

	require.NoError(t, lock.Acquire(record))
	defer lock.Release()

	data, err := os.ReadFile(lock.Path())
	require.NoError(t, err)

	var got domain.SessionRecord
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, record, got)
}

func TestFileSessionLock_SecondAcquireFails(t *testing.T) {
	pm := newMockProcessManager()
	pm.SetRunning(4242, true)
	path := filepath.Join(t.TempDir(), ".cardgate.lock")

	first := NewFileSessionLock(path, pm)
	require.NoError(t, first.Acquire(domain.SessionRecord{PID: 4242}))
	defer first.Release()

	// flock is per open file description, so a second descriptor in the
	// same process contends like another process would.
	second := NewFileSessionLock(path, pm)
	err := second.Acquire(domain.SessionRecord{PID: 5000})

	assert.ErrorIs(t, err, domain.ErrSessionRunning)
	assert.Contains(t, err.Error(), "pid 4242")
}

func TestFileSessionLock_ReacquireAfterRelease(t *testing.T) {
	pm := newMockProcessManager()
	path := filepath.Join(t.TempDir(), ".cardgate.lock")

	first := NewFileSessionLock(path, pm)
	require.NoError(t, first.Acquire(domain.SessionRecord{PID: 1}))
	require.NoError(t, first.Release())

	data, err := os.ReadFile(path)
	require.NoError(t, err, "release keeps the lock file")
	assert.Empty(t, data, "release clears the record")

	holder, err := first.Holder()
	require.NoError(t, err)
	assert.Nil(t, holder)

	second := NewFileSessionLock(path, pm)
	require.NoError(t, second.Acquire(domain.SessionRecord{PID: 2}))
	assert.NoError(t, second.Release())
}

func TestFileSessionLock_ReleaseKeepsInodeForWaiter(t *testing.T) {
	pm := newMockProcessManager()
	path := filepath.Join(t.TempDir(), ".cardgate.lock")

	first := NewFileSessionLock(path, pm)
	require.NoError(t, first.Acquire(domain.SessionRecord{PID: 1}))

	// Opened while the lock is held, as a process about to call flock would.
	waiter, err := os.OpenFile(path, os.O_RDWR, 0644)
	require.NoError(t, err)
	defer waiter.Close()

	require.NoError(t, first.Release())
	require.NoError(t, syscall.Flock(int(waiter.Fd()), syscall.LOCK_EX|syscall.LOCK_NB))
	defer syscall.Flock(int(waiter.Fd()), syscall.LOCK_UN)

	// A newcomer must contend with the waiter, not lock a fresh file.
	newcomer := NewFileSessionLock(path, pm)
	err = newcomer.Acquire(domain.SessionRecord{PID: 3})
	assert.ErrorIs(t, err, domain.ErrSessionRunning)
}

func TestFileSessionLock_DoubleAcquireSameInstance(t *testing.T) {
	lock := newTestLock(t, newMockProcessManager())
	require.NoError(t, lock.Acquire(domain.SessionRecord{PID: 1}))
	defer lock.Release()

	assert.Error(t, lock.Acquire(domain.SessionRecord{PID: 1}))
}

func TestFileSessionLock_ReleaseWithoutAcquire(t *testing.T) {
	lock := newTestLock(t, newMockProcessManager())
	assert.NoError(t, lock.Release())
}

func TestFileSessionLock_AcquireOverStaleFile(t *testing.T) {
	pm := newMockProcessManager()
	lock := newTestLock(t, pm)
	// Left behind by a crashed session: content but no flock
	require.NoError(t, os.WriteFile(lock.Path(), []byte(`{"pid":99999,"started_at":1,"hosts_path":"/etc/hosts","quota":50}`), 0644))

	require.NoError(t, lock.Acquire(domain.SessionRecord{PID: 7, Quota: 5}))
	defer lock.Release()

	data, err := os.ReadFile(lock.Path())
	require.NoError(t, err)
	var got domain.SessionRecord
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 7, got.PID)
	assert.Equal(t, 5, got.Quota)
}

func TestFileSessionLock_Holder(t *testing.T) {
	pm := newMockProcessManager()
	lock := newTestLock(t, pm)

	holder, err := lock.Holder()
	require.NoError(t, err)
	assert.Nil(t, holder, "no file means no holder")

	require.NoError(t, os.WriteFile(lock.Path(), []byte(`{"pid":4242,"quota":10}`), 0644))

	holder, err = lock.Holder()
	require.NoError(t, err)
	assert.Nil(t, holder, "dead pid is not a holder")

	pm.SetRunning(4242, true)
	holder, err = lock.Holder()
	require.NoError(t, err)
	require.NotNil(t, holder)
	assert.Equal(t, 4242, holder.PID)
	assert.Equal(t, 10, holder.Quota)
}

func TestFileSessionLock_HolderCorruptFile(t *testing.T) {
	lock := newTestLock(t, newMockProcessManager())
	require.NoError(t, os.WriteFile(lock.Path(), []byte("not json"), 0644))

	_, err := lock.Holder()
	assert.Error(t, err)
}
