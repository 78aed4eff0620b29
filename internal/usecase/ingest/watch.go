package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	domingest "github.com/kailas-cloud/docchat/internal/domain/ingest"
)

// DefaultSettle is how long a file must stay quiet before it is ingested.
const DefaultSettle = 500 * time.Millisecond

// processor is the part of Service the watcher drives.
type processor interface {
	Process(ctx context.Context, filename string) domingest.FileResult
}

// Watcher ingests PDFs dropped into an inbox directory.
type Watcher struct {
	fsw    *fsnotify.Watcher
	dir    string
	files  FileStore
	proc   processor
	settle time.Duration
	logger *zap.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	wg      sync.WaitGroup
}

// NewWatcher starts watching dir. The directory is created if missing.
func NewWatcher(dir string, files FileStore, proc processor, settle time.Duration, log *zap.Logger) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create inbox %s: %w", dir, err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	if settle <= 0 {
		settle = DefaultSettle
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		fsw:     fsw,
		dir:     dir,
		files:   files,
		proc:    proc,
		settle:  settle,
		logger:  log.With(zap.String("inbox", dir)),
		pending: make(map[string]*time.Timer),
	}, nil
}

// Run handles events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	w.logger.Info("Inbox watcher started")
	defer w.logger.Info("Inbox watcher stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !IsPDF(ev.Name) {
				continue
			}
			w.debounce(ctx, ev.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Inbox watcher error", zap.Error(err))
		}
	}
}

// Close stops the watcher and waits for in-flight ingests.
func (w *Watcher) Close() error {
	w.mu.Lock()
	for name, t := range w.pending {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.pending, name)
	}
	w.mu.Unlock()

	err := w.fsw.Close()
	w.wg.Wait()
	if err != nil {
		return fmt.Errorf("close watcher: %w", err)
	}
	return nil
}

// debounce restarts the settle timer for path; writers emit many events per file.
func (w *Watcher) debounce(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok && t.Stop() {
		w.wg.Done()
	}
	w.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(w.settle, func() {
		defer w.wg.Done()
		w.mu.Lock()
		if w.pending[path] == t {
			delete(w.pending, path)
		}
		w.mu.Unlock()
		w.ingest(ctx, path)
	})
	w.pending[path] = t
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	name := filepath.Base(path)
	log := w.logger.With(zap.String("filename", name))

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		log.Error("Failed to open inbox file", zap.Error(err))
		return
	}
	_, err = w.files.Save(name, f)
	_ = f.Close()
	if err != nil {
		log.Error("Failed to copy inbox file", zap.Error(err))
		return
	}

	res := w.proc.Process(ctx, name)
	if res.Err() != nil {
		log.Error("Inbox file rejected", zap.Error(res.Err()))
		return
	}
	log.Info("Inbox file ingested", zap.String("task_id", res.TaskID()))
}
