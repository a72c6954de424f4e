package filewatch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/riskibarqy/perf-import/internal/platform/logging"
)

const defaultDebounce = 200 * time.Millisecond

// Watcher reports changes to a single file. The parent directory is watched
// so a file replaced by rename (as most editors and config mounts do) keeps
// being tracked.
type Watcher struct {
	path     string
	debounce time.Duration
	fs       *fsnotify.Watcher
	logger   *logging.Logger
}

func New(path string, debounce time.Duration, logger *logging.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve watched file: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{path: abs, debounce: debounce, fs: fw, logger: logger}, nil
}

func (w *Watcher) Path() string {
	return w.path
}

// Run calls onChange once per burst of writes to the file until ctx is done
// or Close is called. onChange runs on the Run goroutine.
func (w *Watcher) Run(ctx context.Context, onChange func(context.Context)) {
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			timer.Reset(w.debounce)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.WarnContext(ctx, "file watcher error", "path", w.path, "error", err)
		case <-timer.C:
			onChange(ctx)
		}
	}
}

func (w *Watcher) Close() error {
	return w.fs.Close()
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}
