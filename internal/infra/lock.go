package infra

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/eliteGoblin/focusd/card_gate/internal/domain"
)

// FileSessionLock implements domain.SessionLock with an flock-held file.
// The lock lives as long as the file descriptor, so a crashed session
// releases it automatically. The JSON record inside is informational.
type FileSessionLock struct {
	path           string
	processManager domain.ProcessManager
	file           *os.File
}

// NewFileSessionLock creates a session lock at path.
func NewFileSessionLock(path string, pm domain.ProcessManager) *FileSessionLock {
	return &FileSessionLock{
		path:           path,
		processManager: pm,
	}
}

// Path returns the lock file path.
func (l *FileSessionLock) Path() string {
	return l.path
}

// Acquire takes an exclusive non-blocking lock and writes the record.
func (l *FileSessionLock) Acquire(record domain.SessionRecord) error {
	if l.file != nil {
		return fmt.Errorf("session lock already held by this process")
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			if holder, _ := l.Holder(); holder != nil {
				return fmt.Errorf("%w (pid %d)", domain.ErrSessionRunning, holder.PID)
			}
			return domain.ErrSessionRunning
		}
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	data, err := json.Marshal(record)
	if err != nil {
		l.unlock(f)
		return err
	}

	// Written in place: replacing the file would orphan the lock.
	if err := f.Truncate(0); err != nil {
		l.unlock(f)
		return fmt.Errorf("failed to truncate lock file: %w", err)
	}
	if _, err := f.WriteAt(data, 0); err != nil {
		l.unlock(f)
		return fmt.Errorf("failed to write lock file: %w", err)
	}
	_ = f.Sync()

	l.file = f
	return nil
}

// Release clears the record and drops the lock. The file stays in place so
// a process blocked on the old descriptor and a new opener share one inode.
func (l *FileSessionLock) Release() error {
	if l.file == nil {
		return nil
	}
	f := l.file
	l.file = nil

	truncErr := f.Truncate(0)
	l.unlock(f)
	if truncErr != nil {
		return fmt.Errorf("failed to clear lock file: %w", truncErr)
	}
	return nil
}

// Holder returns the recorded session if its process is still alive.
func (l *FileSessionLock) Holder() (*domain.SessionRecord, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	var record domain.SessionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}

	if !l.processManager.IsRunning(record.PID) {
		return nil, nil
	}
	return &record, nil
}

func (l *FileSessionLock) unlock(f *os.File) {
	_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	f.Close()
}

// Ensure FileSessionLock implements domain.SessionLock.
var _ domain.SessionLock = (*FileSessionLock)(nil)
