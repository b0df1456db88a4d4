package scout

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"aoe2scout/internal/domain"
)

const (
	importDebounce     = 500 * time.Millisecond
	importPollInterval = time.Minute
)

// CacheLoader reads matches from a legacy JSON cache file.
type CacheLoader func(path string) ([]domain.Match, error)

// CacheNamer extracts the user ID from a cache filename, reporting whether
// the name is a cache file at all.
type CacheNamer func(filename string) (userID string, ok bool)

// Importer watches the data directory for legacy matches_<user>.json caches
// and merges them into the store. It lets users drop old cache files into
// the data directory and have them picked up without a restart.
// If fsnotify fails to initialize, falls back to poll-only mode.
type Importer struct {
	svc    *Service
	dir    string
	load   CacheLoader
	name   CacheNamer
	logger *log.Logger

	mu        sync.Mutex
	stopped   bool
	timers    map[string]*time.Timer // pending debounced imports by filename
	imported  map[string]time.Time   // filename -> mtime at last import
	watcher   *fsnotify.Watcher
	useNotify bool
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewImporter returns an importer for dir.
func NewImporter(svc *Service, dir string, load CacheLoader, name CacheNamer, logger *log.Logger) *Importer {
	return &Importer{
		svc:      svc,
		dir:      dir,
		load:     load,
		name:     name,
		logger:   logger,
		timers:   map[string]*time.Timer{},
		imported: map[string]time.Time{},
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start watches the directory until ctx is cancelled or Stop is called.
func (im *Importer) Start(ctx context.Context) {
	defer close(im.doneCh)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		im.logger.Printf("Importer: fsnotify init failed (%v), using poll-only", err)
	} else {
		im.watcher = watcher
		im.useNotify = true
		if err := watcher.Add(im.dir); err != nil {
			im.logger.Printf("Importer: fsnotify add %s failed (%v), using poll-only", im.dir, err)
			_ = watcher.Close()
			im.watcher = nil
			im.useNotify = false
		}
	}

	im.Scan()

	if im.useNotify {
		defer im.watcher.Close()
		go im.watchLoop(ctx)
	}
	im.pollLoop(ctx)
}

// Stop signals the importer to stop and cancels pending debounced imports,
// so no import can hit the store after shutdown. Call after cancelling the
// context passed to Start.
func (im *Importer) Stop() {
	close(im.stopCh)
	im.cancelPending()
	<-im.doneCh
}

func (im *Importer) cancelPending() {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.stopped = true
	for name, t := range im.timers {
		t.Stop()
		delete(im.timers, name)
	}
}

func (im *Importer) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-im.stopCh:
			return
		case event, ok := <-im.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			name := filepath.Base(event.Name)
			if _, ok := im.name(name); !ok {
				continue
			}
			im.scheduleImport(name)
		case _, ok := <-im.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (im *Importer) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(importPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-im.stopCh:
			return
		case <-ticker.C:
			im.Scan()
		}
	}
}

// scheduleImport debounces rapid writes to the same file.
func (im *Importer) scheduleImport(name string) {
	im.mu.Lock()
	defer im.mu.Unlock()
	if im.stopped {
		return
	}
	if t := im.timers[name]; t != nil {
		t.Stop()
	}
	im.timers[name] = time.AfterFunc(importDebounce, func() {
		im.mu.Lock()
		if im.stopped {
			im.mu.Unlock()
			return
		}
		delete(im.timers, name)
		im.mu.Unlock()
		im.importFile(name)
	})
}

// Scan imports every cache file in the directory that changed since its
// last import.
func (im *Importer) Scan() {
	entries, err := os.ReadDir(im.dir)
	if err != nil {
		im.logger.Printf("Importer: read %s: %v", im.dir, err)
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := im.name(e.Name()); !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		im.mu.Lock()
		last, seen := im.imported[e.Name()]
		im.mu.Unlock()
		if seen && !info.ModTime().After(last) {
			continue
		}
		im.importFile(e.Name())
	}
}

func (im *Importer) importFile(name string) {
	userID, ok := im.name(name)
	if !ok {
		return
	}
	path := filepath.Join(im.dir, name)
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	matches, err := im.load(path)
	if err != nil {
		im.logger.Printf("Importer: load %s: %v", name, err)
		return
	}
	added, err := im.svc.ImportLegacy(userID, matches)
	if err != nil {
		im.logger.Printf("Importer: import %s: %v", name, err)
		return
	}
	im.mu.Lock()
	im.imported[name] = info.ModTime()
	im.mu.Unlock()
	im.logger.Printf("Importer: %s: %d matches (%d new) for user %s", name, len(matches), added, userID)
}
