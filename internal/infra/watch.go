package infra

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// HostsWatcher reports changes to the hosts file.
// The parent directory is watched because atomic replaces swap the inode.
// Changes coalesce: at most one pending signal is buffered.
type HostsWatcher struct {
	watcher   *fsnotify.Watcher
	target    string
	changes   chan struct{}
	logger    *zap.Logger
	closeOnce sync.Once
	done      chan struct{}
}

// NewHostsWatcher starts watching path.
func NewHostsWatcher(path string, logger *zap.Logger) (*HostsWatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	target := path
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		target = resolved
	}
	target = filepath.Clean(target)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}

	w := &HostsWatcher{
		watcher: watcher,
		target:  target,
		changes: make(chan struct{}, 1),
		logger:  logger,
		done:    make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Changes returns the coalesced change signal channel.
func (w *HostsWatcher) Changes() <-chan struct{} {
	return w.changes
}

// Close stops the watcher.
func (w *HostsWatcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.watcher.Close()
		<-w.done
	})
	return err
}

func (w *HostsWatcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug("hosts file changed", zap.String("op", event.Op.String()))
			select {
			case w.changes <- struct{}{}:
			default:
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("hosts watcher error", zap.Error(err))
		}
	}
}
