package config

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"

	"github.com/cochaviz/buildgate/internal/logging"
	"github.com/cochaviz/buildgate/internal/repositories/local"
	"github.com/cochaviz/buildgate/internal/validation"
)

// DefaultDebounce is the quiet period after the last change before the content
// is validated again.
const DefaultDebounce = 300 * time.Millisecond

// WatchOptions configures WatchData.
type WatchOptions struct {
	Project  string
	Debounce time.Duration
	Sink     validation.Sink
	Logger   *slog.Logger

	// OnPass receives the summary of every validation pass, including the
	// initial one.
	OnPass func(validation.Summary)
}

// WatchData validates the project's content once, then again after every
// burst of changes under the data directory, until ctx is done. Passes never
// overlap.
func WatchData(ctx context.Context, opts WatchOptions) error {
	logger := logging.Ensure(opts.Logger).With("component", "config", "action", "watch")
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	dataDir := local.NewStore(opts.Project).DataPath()
	if info, err := os.Stat(dataDir); err != nil || !info.IsDir() {
		return errors.WithHint(errors.Newf("data directory %s is not accessible", dataDir), "create it before watching")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "fsnotify")
	}
	defer watcher.Close()

	addDirsRecursive(watcher, dataDir, logger)

	pass := func() {
		summary := ValidateData(opts.Project, opts.Sink, logger)
		if opts.OnPass != nil {
			opts.OnPass(summary)
		}
	}
	pass()

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("stopped watching content")
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ignoreEvent(ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					addDirsRecursive(watcher, ev.Name, logger)
				}
			}
			logger.Debug("content change detected", "path", ev.Name, "op", ev.Op.String())
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)
		case <-timer.C:
			logger.Info("content changed; validating again")
			pass()
		}
	}
}

func addDirsRecursive(w *fsnotify.Watcher, root string, logger *slog.Logger) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := w.Add(path); err != nil {
				logger.Warn("watch add failed", "dir", path, "error", err)
			}
		}
		return nil
	})
}

// ignoreEvent skips editor swap and backup files.
func ignoreEvent(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") ||
		strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".tmp")
}
