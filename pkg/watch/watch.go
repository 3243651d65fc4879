// Package watch reports changes to a set of files.
//
// Files are watched through their parent directories, so that editors which
// replace a file on save (write to a temporary file, then rename) keep
// producing events.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/macropower/crumbs/pkg/log"
)

// DefaultDebounce is the quiet period after the last event before a change
// is reported.
const DefaultDebounce = 100 * time.Millisecond

// Event is a debounced batch of file events.
type Event struct {
	// Paths lists the changed files, sorted.
	Paths []string
	// Op is the union of the operations seen.
	Op fsnotify.Op
}

// Has reports whether any file in the batch saw op.
func (e Event) Has(op fsnotify.Op) bool {
	return e.Op.Has(op)
}

// Filter decides whether an event on a watched file counts as a change.
type Filter func(path string, op fsnotify.Op) bool

// Watcher watches files for changes.
type Watcher struct {
	tracer  trace.Tracer
	watcher *fsnotify.Watcher
	filter  Filter

	// Absolute paths.
	files map[string]struct{}
	dirs  map[string]struct{}

	debounce time.Duration
	mu       sync.Mutex
}

// WatcherOpt configures a [Watcher].
type WatcherOpt func(w *Watcher)

// WithDebounce sets the quiet period before a change is reported.
func WithDebounce(d time.Duration) WatcherOpt {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithFilter sets a filter applied to every event on a watched file.
func WithFilter(f Filter) WatcherOpt {
	return func(w *Watcher) {
		w.filter = f
	}
}

// New creates a new [Watcher].
func New(opts ...WatcherOpt) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		tracer:   otel.Tracer("watch"),
		watcher:  fw,
		files:    make(map[string]struct{}),
		dirs:     make(map[string]struct{}),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Add starts watching files. Empty paths are skipped.
func (w *Watcher) Add(paths ...string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, path := range paths {
		if path == "" {
			continue
		}

		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("get absolute path of %q: %w", path, err)
		}

		dir := filepath.Dir(abs)
		if _, ok := w.dirs[dir]; !ok {
			err = w.watcher.Add(dir)
			if err != nil {
				return fmt.Errorf("add %q to watcher: %w", dir, err)
			}

			w.dirs[dir] = struct{}{}
		}

		w.files[abs] = struct{}{}
	}

	return nil
}

// Reset stops watching every file.
func (w *Watcher) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for dir := range w.dirs {
		err := w.watcher.Remove(dir)
		if err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) {
			slog.Error("remove path from watcher", slog.Any("err", err))
		}
	}

	clear(w.dirs)
	clear(w.files)
}

// Files returns the watched files, sorted.
func (w *Watcher) Files() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	return slices.Sorted(maps.Keys(w.files))
}

func (w *Watcher) isWatched(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	_, ok := w.files[path]

	return ok
}

// Run delivers changes to onChange and watcher errors to onError until ctx
// is done or the watcher is closed. Callbacks run on the calling goroutine.
func (w *Watcher) Run(ctx context.Context, onChange func(context.Context, Event), onError func(context.Context, error)) {
	logger := log.WithContext(ctx)

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending = make(map[string]struct{})
		op      fsnotify.Op
	)

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case evt, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if !w.isWatched(evt.Name) {
				continue
			}

			// Ignore events that are not related to file content changes.
			if evt.Op == fsnotify.Chmod {
				continue
			}

			if w.filter != nil && !w.filter(evt.Name, evt.Op) {
				logger.DebugContext(ctx, "filtered file event", slog.String("event", evt.String()))

				continue
			}

			pending[evt.Name] = struct{}{}
			op |= evt.Op

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}

			fire = timer.C

		case <-fire:
			fire = nil

			batch := Event{
				Paths: slices.Sorted(maps.Keys(pending)),
				Op:    op,
			}

			clear(pending)
			op = 0

			evtCtx, span := w.tracer.Start(ctx, "change", trace.WithAttributes(
				attribute.StringSlice("paths", batch.Paths),
				attribute.String("op", batch.Op.String()),
			))

			logger.DebugContext(evtCtx, "files changed",
				slog.Any("paths", batch.Paths),
				slog.String("op", batch.Op.String()),
			)

			onChange(evtCtx, batch)
			span.End()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}

			logger.ErrorContext(ctx, "watch files", slog.Any("error", err))

			if onError != nil {
				onError(ctx, err)
			}
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	if err != nil {
		return fmt.Errorf("close watcher: %w", err)
	}

	return nil
}
