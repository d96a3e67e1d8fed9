package watches

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/reusee/taidoc/logs"
)

// Watcher reports content changes of a single file.
// The parent directory is watched so that atomic replacements by editors are seen.
type Watcher struct {
	path      string
	fsWatcher *fsnotify.Watcher
	logger    logs.Logger
	changes   chan struct{}
}

type NewWatcher func(path string) (*Watcher, error)

func (Module) NewWatcher(
	logger logs.Logger,
) NewWatcher {
	return func(path string) (*Watcher, error) {
		path, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		fsWatcher, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, wrap(err)
		}
		if err := fsWatcher.Add(filepath.Dir(path)); err != nil {
			fsWatcher.Close()
			return nil, wrap(err)
		}
		return &Watcher{
			path:      path,
			fsWatcher: fsWatcher,
			logger:    logger,
			// one slot: pending changes coalesce
			changes: make(chan struct{}, 1),
		}, nil
	}
}

// Changes receives a value after the file is written or replaced.
// Bursts of events are coalesced into one pending value.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

func (w *Watcher) Path() string {
	return w.path
}

// Run dispatches events until ctx is done or the watcher fails. The watcher is closed on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsWatcher.Close()
	for {
		select {

		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			w.logger.DebugContext(ctx, "file event",
				"path", event.Name,
				"op", event.Op.String(),
			)
			if !isContentEvent(event) {
				continue
			}
			w.notify()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			if err == fsnotify.ErrEventOverflow {
				// events lost, the file may have changed
				w.logger.WarnContext(ctx, "watch event overflow")
				w.notify()
				continue
			}
			return wrap(err)

		}
	}
}

func (w *Watcher) notify() {
	select {
	case w.changes <- struct{}{}:
	default:
	}
}

func isContentEvent(event fsnotify.Event) bool {
	return event.Has(fsnotify.Write) ||
		event.Has(fsnotify.Create)
}
