package playlist

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tunefolder/tunefolder/internal/descriptor"
	"github.com/tunefolder/tunefolder/internal/logx"
	"github.com/tunefolder/tunefolder/internal/metrics"
	"github.com/tunefolder/tunefolder/internal/scanner"
)

// DefaultDebounce is the quiet period before a burst of changes fires
const DefaultDebounce = 250 * time.Millisecond

// Watcher reports changes to audio files and folders below a playlists root.
// Bursts of events are coalesced into a single callback.
type Watcher struct {
	root     string
	debounce time.Duration
	onChange func()

	fsw *fsnotify.Watcher

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher creates a watcher on root and every non-hidden directory below it.
// onChange runs on its own goroutine after each debounced burst.
func NewWatcher(root string, debounce time.Duration, onChange func()) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{root: root, debounce: debounce, onChange: onChange, fsw: fsw}
	if n := w.addTree(root); n == 0 {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s", root)
	}
	return w, nil
}

// Run processes filesystem events until ctx is cancelled
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
		if err := w.fsw.Close(); err != nil {
			log.Printf("[WATCH] Failed to close watcher: %v", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			log.Printf("[WATCH] Watcher error: %v", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op == fsnotify.Chmod || isHidden(w.root, event.Name) {
		return
	}
	if filepath.Base(event.Name) == descriptor.FileName || strings.Contains(filepath.Base(event.Name), descriptor.FileName+".") {
		return
	}

	relevant := scanner.IsAudioFile(event.Name)
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.addTree(event.Name)
			relevant = true
		}
	}
	// Removed or renamed directories can no longer be stat'ed
	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 && filepath.Ext(event.Name) == "" {
		relevant = true
	}
	if !relevant {
		return
	}

	metrics.WatcherEventsTotal.WithLabelValues(opName(event.Op)).Inc()
	logx.Debugf("[WATCH] %s %s", opName(event.Op), event.Name)
	w.schedule()
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.onChange)
}

// addTree registers dir and its non-hidden subdirectories
func (w *Watcher) addTree(dir string) int {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			log.Printf("[WATCH] Failed to watch %s: %v", path, addErr)
			return nil
		}
		count++
		return nil
	})
	if err != nil {
		log.Printf("[WATCH] Failed to walk %s: %v", dir, err)
	}
	metrics.WatchedDirectories.Add(float64(count))
	return count
}

func isHidden(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	return false
}

func opName(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Create != 0:
		return "create"
	case op&fsnotify.Write != 0:
		return "write"
	case op&fsnotify.Remove != 0:
		return "remove"
	case op&fsnotify.Rename != 0:
		return "rename"
	default:
		return "other"
	}
}
