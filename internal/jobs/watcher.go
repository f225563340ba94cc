package jobs

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Trigger is anything that can be nudged to run now.
type Trigger interface {
	Trigger()
}

// InboxWatcher triggers a worker pass as soon as a bundle is written into
// the inbox, so new files do not wait for the next poll.
type InboxWatcher struct {
	watcher *fsnotify.Watcher
	target  Trigger
	logger  *zap.Logger
}

// NewInboxWatcher watches dir (not recursively).
func NewInboxWatcher(dir string, target Trigger, logger *zap.Logger) (*InboxWatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	return &InboxWatcher{watcher: w, target: target, logger: logger}, nil
}

// Run forwards events until ctx is done or the watcher is closed.
func (w *InboxWatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !IsBundleFile(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Rename) {
				w.logger.Debug("inbox changed", zap.String("file", event.Name), zap.String("op", event.Op.String()))
				w.target.Trigger()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("inbox watcher error", zap.Error(err))
		}
	}
}

// Close stops watching.
func (w *InboxWatcher) Close() error {
	return w.watcher.Close()
}
