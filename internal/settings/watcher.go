package settings

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce coalesces the burst of writes one transaction produces.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reloads registered settings when the database files change on
// disk. It watches the parent directory so WAL and SHM writes are seen.
type Watcher struct {
	fs       *fsnotify.Watcher
	dbPath   string
	debounce time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	settings []Reloader
	timer    *time.Timer
	closed   bool

	done chan struct{}
	wg   sync.WaitGroup
}

// NewWatcher starts watching dbPath.
func NewWatcher(dbPath string, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(dbPath)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(dbPath), err)
	}

	w := &Watcher{
		fs:       fw,
		dbPath:   dbPath,
		debounce: debounce,
		logger:   logger,
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Register adds settings to reload on change.
func (w *Watcher) Register(rs ...Reloader) {
	w.mu.Lock()
	w.settings = append(w.settings, rs...)
	w.mu.Unlock()
}

// ReloadAll refreshes every registered setting now.
func (w *Watcher) ReloadAll() {
	w.mu.Lock()
	rs := append([]Reloader(nil), w.settings...)
	w.mu.Unlock()

	for _, r := range rs {
		if err := r.Reload(); err != nil {
			w.logger.Warn("reload setting", zap.String("key", r.Key()), zap.Error(err))
		}
	}
}

// Close stops watching. A pending debounced reload is dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	close(w.done)
	err := w.fs.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) relevant(name string) bool {
	base := filepath.Base(w.dbPath)
	switch filepath.Base(name) {
	case base, base + "-wal", base + "-shm":
		return true
	}
	return false
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !w.relevant(event.Name) || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.schedule()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("settings watcher", zap.Error(err))
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.ReloadAll)
}
