// Package watch rebuilds on filesystem changes to uploads, content sources
// or the CMS schema.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/cmsbuild/internal/config"
	"git.home.luguber.info/inful/cmsbuild/internal/logfields"
)

// DefaultDebounce is the quiet period before a rebuild starts.
const DefaultDebounce = 300 * time.Millisecond

// Change records which stages a batch of events affects.
type Change struct {
	Images  bool
	Content bool
}

// Any reports whether the change affects any stage.
func (c Change) Any() bool { return c.Images || c.Content }

func (c Change) merge(o Change) Change {
	return Change{Images: c.Images || o.Images, Content: c.Content || o.Content}
}

// RebuildFunc runs a rebuild for a change. Errors are logged, not fatal.
type RebuildFunc func(ctx context.Context, c Change) error

// Watcher triggers debounced rebuilds.
type Watcher struct {
	cfg      *config.Config
	rebuild  RebuildFunc
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	pending Change
	ready   chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period.
func WithDebounce(d time.Duration) Option { return func(w *Watcher) { w.debounce = d } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(w *Watcher) { w.logger = l } }

// New returns a watcher for the directories of cfg.
func New(cfg *config.Config, rebuild RebuildFunc, opts ...Option) *Watcher {
	w := &Watcher{
		cfg:      cfg,
		rebuild:  rebuild,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
		ready:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Classify maps a path to the stages it affects.
func (w *Watcher) Classify(path string) Change {
	path = filepath.Clean(path)
	switch {
	case within(w.cfg.Picture.UploadDir, path):
		return Change{Images: true}
	case within(w.cfg.Content.SourceRoot, path), path == filepath.Clean(w.cfg.SchemaPath):
		return Change{Content: true}
	}
	return Change{}
}

// Run watches until ctx is done. Rebuilds run one at a time; changes that
// arrive during a rebuild are batched into the next one.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() { _ = fw.Close() }()

	for _, root := range []string{w.cfg.Picture.UploadDir, w.cfg.Content.SourceRoot} {
		if err := addDirsRecursive(fw, root, w.logger); err != nil {
			w.logger.Warn("Not watching missing directory", logfields.Path(root), logfields.Error(err))
		}
	}
	if err := fw.Add(filepath.Dir(w.cfg.SchemaPath)); err != nil {
		w.logger.Warn("Not watching CMS schema", logfields.Path(w.cfg.SchemaPath), logfields.Error(err))
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.worker(ctx)
	}()
	defer wg.Wait()

	w.logger.Info("Watching for changes", slog.Duration("debounce", w.debounce))
	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fw, ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(fw *fsnotify.Watcher, ev fsnotify.Event) {
	if shouldIgnoreEvent(ev.Name) {
		return
	}
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = addDirsRecursive(fw, ev.Name, w.logger)
		}
	}
	change := w.Classify(ev.Name)
	if !change.Any() {
		return
	}
	w.logger.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	w.trigger(change)
}

// trigger records c and restarts the debounce timer.
func (w *Watcher) trigger(c Change) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = w.pending.merge(c)
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case w.ready <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *Watcher) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.ready:
			w.mu.Lock()
			change := w.pending
			w.pending = Change{}
			w.mu.Unlock()
			if !change.Any() {
				continue
			}
			w.logger.Info("Change detected; rebuilding",
				slog.Bool("images", change.Images), slog.Bool("content", change.Content))
			if err := w.rebuild(ctx, change); err != nil {
				w.logger.Warn("Rebuild failed", logfields.Error(err))
			}
		}
	}
}

func addDirsRecursive(fw *fsnotify.Watcher, root string, logger *slog.Logger) error {
	if _, err := os.Stat(root); err != nil {
		return err
	}
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := fw.Add(path); err != nil {
				logger.Warn("Watch add failed", logfields.Path(path), logfields.Error(err))
			}
		}
		return nil
	})
}

// shouldIgnoreEvent returns true for hidden, editor swap and temp files.
// Derivative cache temp files are hidden and so never trigger a rebuild.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		(strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#")) {
		return true
	}
	return base == "Thumbs.db"
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
