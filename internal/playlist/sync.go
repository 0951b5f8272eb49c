package playlist

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/tunefolder/tunefolder/internal/descriptor"
	"github.com/tunefolder/tunefolder/internal/metrics"
	"github.com/tunefolder/tunefolder/internal/scanner"
)

// Result is the outcome of synchronizing one playlist folder
type Result struct {
	Playlist *Playlist

	// Added and Pruned list the filenames appended to or dropped from the descriptor
	Added  []string
	Pruned []string

	// Changed is true when the descriptor needed an update
	Changed bool

	// Saved is true when the descriptor was written to disk
	Saved bool

	// Missing is true when the folder no longer exists
	Missing bool

	// BackupPath and Corruption are set when a bad descriptor was replaced
	BackupPath string
	Corruption *descriptor.ValidationError

	// Err holds the per-folder error when produced by SyncAll
	Err error
}

// Synchronizer reconciles playlist folders with their descriptors. Every
// read-modify-write of one folder's descriptor holds that folder's lock.
type Synchronizer struct {
	store *descriptor.Store
	now   func() time.Time

	mu      sync.Mutex
	folders map[string]*sync.Mutex
}

// NewSynchronizer creates a new synchronizer backed by store
func NewSynchronizer(store *descriptor.Store) *Synchronizer {
	return &Synchronizer{
		store:   store,
		now:     time.Now,
		folders: make(map[string]*sync.Mutex),
	}
}

// lockFolder locks folder's descriptor and returns the unlock func
func (s *Synchronizer) lockFolder(folder string) func() {
	key := filepath.Clean(folder)
	s.mu.Lock()
	m, ok := s.folders[key]
	if !ok {
		m = &sync.Mutex{}
		s.folders[key] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// Store returns the descriptor store used by the synchronizer
func (s *Synchronizer) Store() *descriptor.Store {
	return s.store
}

// Sync reconciles folder with its descriptor and returns the ordered
// playlist. New files are appended after the highest existing order in
// alphabetical order; entries whose files are gone are dropped. The
// descriptor is written only when something changed.
//
// A folder that does not exist yields an empty playlist with Missing set.
// When the descriptor cannot be saved the playlist is still returned along
// with a *descriptor.PersistenceError.
func (s *Synchronizer) Sync(folder string) (*Result, error) {
	unlock := s.lockFolder(folder)
	defer unlock()
	return s.syncLocked(folder)
}

func (s *Synchronizer) syncLocked(folder string) (*Result, error) {
	res, err := s.sync(folder)
	metrics.SyncRunsTotal.WithLabelValues(metrics.Result(err)).Inc()
	return res, err
}

func (s *Synchronizer) sync(folder string) (*Result, error) {
	id := filepath.Base(folder)

	files, err := scanner.ListAudioFiles(folder)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return missingResult(id, folder), nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", folder, err)
	}

	var saveErr error
	lr, err := s.store.LoadOrDefault(folder, files)
	if err != nil {
		var perr *descriptor.PersistenceError
		switch {
		case errors.Is(err, descriptor.ErrFolderNotFound):
			return missingResult(id, folder), nil
		case errors.As(err, &perr) && lr.Descriptor != nil:
			if folderGone(folder) {
				return missingResult(id, folder), nil
			}
			saveErr = err
		default:
			return nil, err
		}
	}

	res := &Result{
		Saved:      lr.Synthesized && saveErr == nil,
		BackupPath: lr.BackupPath,
		Corruption: lr.Corruption,
	}
	d := lr.Descriptor.Clone()

	present := lo.SliceToMap(files, func(f string) (string, bool) { return f, true })
	res.Added = lo.Filter(files, func(f string, _ int) bool {
		_, known := d.Tracks[f]
		return !known
	})
	res.Pruned = lo.Filter(lo.Keys(d.Tracks), func(f string, _ int) bool {
		return !present[f]
	})
	sort.Strings(res.Pruned)

	if len(res.Added) > 0 {
		next := nextOrder(d)
		added := descriptor.FormatTime(s.now())
		for _, f := range res.Added {
			d.Tracks[f] = descriptor.Entry{DisplayName: f, Order: next, Added: added}
			next++
		}
		metrics.TracksDiscoveredTotal.Add(float64(len(res.Added)))
		log.Printf("[SYNC] %s: %d new file(s)", id, len(res.Added))
	}
	if len(res.Pruned) > 0 {
		for _, f := range res.Pruned {
			delete(d.Tracks, f)
		}
		metrics.TracksPrunedTotal.Add(float64(len(res.Pruned)))
		log.Printf("[SYNC] %s: pruned %d missing file(s)", id, len(res.Pruned))
	}

	res.Changed = len(res.Added) > 0 || len(res.Pruned) > 0
	if res.Changed {
		if err := s.store.Save(folder, d); err != nil {
			saveErr = err
		} else {
			res.Saved = true
		}
	}

	res.Playlist = FromDescriptor(id, folder, d)
	return res, saveErr
}

// SyncAll synchronizes every non-hidden subdirectory of root, sorted by
// name. Per-folder failures are reported in Result.Err and do not stop the
// scan. A missing root yields an empty catalog.
func (s *Synchronizer) SyncAll(root string) ([]*Result, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read playlists root: %w", err)
	}

	var results []*Result
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		folder := filepath.Join(root, e.Name())
		res, err := s.Sync(folder)
		if res == nil {
			log.Printf("[SYNC] Failed to sync %s: %v", folder, err)
			res = &Result{Playlist: &Playlist{ID: e.Name(), Folder: folder, DisplayName: e.Name()}}
		}
		res.Err = err
		if res.Missing {
			continue
		}
		results = append(results, res)
	}

	metrics.Playlists.Set(float64(len(results)))
	return results, nil
}

// nextOrder returns one past the highest order in d, or 0 when d is empty
func nextOrder(d *descriptor.Descriptor) int {
	if len(d.Tracks) == 0 {
		return 0
	}
	return lo.Max(lo.Map(lo.Values(d.Tracks), func(e descriptor.Entry, _ int) int {
		return e.Order
	})) + 1
}

func missingResult(id, folder string) *Result {
	log.Printf("[SYNC] Folder %s is gone", folder)
	return &Result{
		Playlist: &Playlist{ID: id, Folder: folder, DisplayName: id, Tracks: []*Track{}},
		Missing:  true,
	}
}

func folderGone(folder string) bool {
	_, err := os.Stat(folder)
	return errors.Is(err, fs.ErrNotExist)
}
