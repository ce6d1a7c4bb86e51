// Package watch triggers rescans on file changes. Events are debounced so
// a burst of saves (or a branch switch) produces one scan, not hundreds.
package watch

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

var watchLog = log.New(os.Stderr, "[scour:watch] ", log.Ltime)

// DefaultDebounce is how long the watcher waits after the last relevant
// event before invoking the handler.
const DefaultDebounce = 5 * time.Second

// skipDirs are directory basenames never watched.
var skipDirs = map[string]bool{
	".git": true, ".svn": true, ".hg": true,
	".scour":        true,
	"node_modules":  true,
	"__pycache__":   true,
	".venv":         true,
	"venv":          true,
	".tox":          true,
	".mypy_cache":   true,
	".pytest_cache": true,
	".ruff_cache":   true,
	"vendor":        true,
	"target":        true,
	".idea":         true,
	".vscode":       true,
}

// Handler receives the debounced batch of changed paths.
type Handler func(changed map[string]fsnotify.Op)

// Config tunes a watcher.
type Config struct {
	Root     string
	Debounce time.Duration
	// FileFilter keeps only interesting files; nil keeps everything.
	FileFilter func(path string) bool
}

// Watcher recursively watches a repository root and batches changes.
type Watcher struct {
	fsw      *fsnotify.Watcher
	cfg      Config
	handler  Handler
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu       sync.Mutex
	pending  map[string]fsnotify.Op
	flushing bool
	dirs     int
}

// New builds a watcher; Start begins delivery.
func New(cfg Config, handler Handler) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if cfg.Debounce == 0 {
		cfg.Debounce = DefaultDebounce
	}
	return &Watcher{
		fsw:     fsw,
		cfg:     cfg,
		handler: handler,
		stop:    make(chan struct{}),
		pending: make(map[string]fsnotify.Op),
	}, nil
}

// Start registers the directory tree and begins processing events.
func (w *Watcher) Start() error {
	err := filepath.Walk(w.cfg.Root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			name := info.Name()
			if skipDirs[name] || (len(name) > 1 && name[0] == '.' && path != w.cfg.Root) {
				return filepath.SkipDir
			}
			if aerr := w.fsw.Add(path); aerr == nil {
				w.dirs++
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	w.wg.Add(1)
	go w.loop()
	watchLog.Printf("watching %d directories under %s (debounce %v)", w.dirs, w.cfg.Root, w.cfg.Debounce)
	return nil
}

// Stop halts event delivery and closes the underlying watcher.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() { close(w.stop) })
	w.wg.Wait()
	return w.fsw.Close()
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.stop:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			// New directories join the watch set immediately.
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					name := filepath.Base(ev.Name)
					if !skipDirs[name] && !(len(name) > 1 && name[0] == '.') {
						if aerr := w.fsw.Add(ev.Name); aerr == nil {
							w.dirs++
						}
					}
					continue
				}
			}
			if w.cfg.FileFilter != nil && !w.cfg.FileFilter(ev.Name) {
				continue
			}
			base := filepath.Base(ev.Name)
			if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") ||
				strings.HasSuffix(base, ".swp") || strings.HasSuffix(base, ".tmp") {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				w.queue(ev.Name, ev.Op)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			watchLog.Printf("error: %v", err)
		}
	}
}

func (w *Watcher) queue(path string, op fsnotify.Op) {
	w.mu.Lock()
	w.pending[path] = op
	if !w.flushing {
		w.flushing = true
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			select {
			case <-time.After(w.cfg.Debounce):
				w.flush()
			case <-w.stop:
			}
		}()
	}
	w.mu.Unlock()
}

func (w *Watcher) flush() {
	w.mu.Lock()
	pending := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.flushing = false
	w.mu.Unlock()

	if len(pending) == 0 {
		return
	}
	watchLog.Printf("%d changes, rescanning", len(pending))
	w.handler(pending)
}
