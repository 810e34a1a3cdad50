package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// WatchFunc receives the outcome of every file the watcher ingested.
type WatchFunc func(path string, res *Result, err error)

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets how long a file must be quiet before it is ingested.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithTemplate sets the request every watched file is ingested with;
// Format and Source.Location are filled in per file.
func WithTemplate(req Request) WatcherOption {
	return func(w *Watcher) { w.template = req }
}

// Watcher ingests files dropped into a directory. The importer is chosen
// by file extension (".xy" uses the "xy" importer).
type Watcher struct {
	mu       sync.Mutex
	coord    *Coordinator
	watcher  *fsnotify.Watcher
	dir      string
	onResult WatchFunc
	template Request
	debounce time.Duration
	pending  map[string]time.Time
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
}

// NewWatcher watches dir and reports each ingest to fn.
func NewWatcher(coord *Coordinator, dir string, fn WatchFunc, opts ...WatcherOption) (*Watcher, error) {
	if coord == nil || fn == nil {
		return nil, errors.New("ingest: watcher needs a coordinator and a callback")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("ingest: create watcher: %w", err)
	}

	w := &Watcher{
		coord:    coord,
		watcher:  fw,
		dir:      dir,
		onResult: fn,
		debounce: 500 * time.Millisecond,
		pending:  map[string]time.Time{},
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w, nil
}

// Start begins watching. It does not block.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("ingest: watch %s: %w", w.dir, err)
	}
	w.running = true

	go w.run(ctx)
	w.coord.logger.Info("watching drop directory", zap.String("dir", w.dir))
	return nil
}

// Stop ends the watch loop and waits for it. A watcher is not restartable.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	running := w.running
	w.running = false
	w.mu.Unlock()

	if running {
		close(w.stopCh)
		<-w.doneCh
	}
	return w.watcher.Close()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := time.NewTicker(max(w.debounce/4, 10*time.Millisecond))
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.coord.logger.Warn("watcher error", zap.Error(err))
		case <-tick.C:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	if w.format(ev.Name) == "" {
		return
	}
	w.mu.Lock()
	w.pending[ev.Name] = time.Now()
	w.mu.Unlock()
}

// flush ingests the files that have been quiet for the debounce period.
func (w *Watcher) flush(ctx context.Context) {
	now := time.Now()

	w.mu.Lock()
	var ready []string
	for path, seen := range w.pending {
		if now.Sub(seen) >= w.debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	for _, path := range ready {
		req := w.template
		req.Format = w.format(path)
		req.Source.Location = path
		req.Source.Checksum = ""
		req.Raw = nil

		res, err := w.coord.IngestSource(ctx, req)
		if err != nil {
			w.coord.logger.Warn("watched file not ingested", zap.String("path", path), zap.Error(err))
		}
		w.onResult(path, res, err)
	}
}

func (w *Watcher) format(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return ""
	}
	if _, err := w.coord.importers.Lookup(ext); err != nil {
		return ""
	}
	return ext
}
