package descriptor

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/tunefolder/tunefolder/internal/atomicfile"
	"github.com/tunefolder/tunefolder/internal/metrics"
)

// LoadResult describes how LoadOrDefault obtained its descriptor
type LoadResult struct {
	Descriptor *Descriptor

	// Synthesized is true when the descriptor was built from scratch and saved
	Synthesized bool

	// BackupPath is set when a corrupt descriptor was moved aside
	BackupPath string

	// Corruption is the validation failure that triggered the backup
	Corruption *ValidationError
}

// Store reads and writes playlist descriptors
type Store struct {
	now func() time.Time
}

// NewStore creates a new descriptor store
func NewStore() *Store {
	return &Store{now: time.Now}
}

// Load reads the descriptor in folder. It returns ErrNotFound when no
// descriptor exists and a *ValidationError when the file is malformed.
func (s *Store) Load(folder string) (*Descriptor, error) {
	path := Path(folder)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if _, statErr := os.Stat(folder); errors.Is(statErr, fs.ErrNotExist) {
				return nil, ErrFolderNotFound
			}
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read descriptor: %w", err)
	}
	return Decode(path, data)
}

// Save atomically writes the descriptor into folder
func (s *Store) Save(folder string, d *Descriptor) error {
	data, err := Encode(d)
	if err != nil {
		return &PersistenceError{Folder: folder, Err: err}
	}

	err = atomicfile.WriteFile(Path(folder), data, 0644)
	metrics.DescriptorWritesTotal.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		log.Printf("[STORE] Failed to save %s: %v", Path(folder), err)
		return &PersistenceError{Folder: folder, Err: err}
	}
	return nil
}

// LoadOrDefault loads the descriptor in folder, synthesizing and saving a
// default one when it is missing or corrupt. discovered lists the audio
// filenames in enumeration order; synthesized orders follow it.
//
// When the synthesized descriptor cannot be saved, the result is still
// returned together with a *PersistenceError.
func (s *Store) LoadOrDefault(folder string, discovered []string) (LoadResult, error) {
	d, err := s.Load(folder)
	if err == nil {
		return LoadResult{Descriptor: d}, nil
	}

	var res LoadResult
	var verr *ValidationError
	switch {
	case errors.Is(err, ErrNotFound):
		log.Printf("[STORE] No descriptor in %s, creating one", folder)
	case errors.As(err, &verr):
		backup, berr := s.backup(folder)
		if berr != nil {
			return LoadResult{}, &PersistenceError{Folder: folder, Err: berr}
		}
		metrics.DescriptorCorruptionsTotal.Inc()
		log.Printf("[STORE] %v; backed up to %s", verr, backup)
		res.BackupPath = backup
		res.Corruption = verr
	default:
		return LoadResult{}, err
	}

	res.Descriptor = s.Synthesize(folder, discovered)
	res.Synthesized = true
	if err := s.Save(folder, res.Descriptor); err != nil {
		return res, err
	}
	return res, nil
}

// Synthesize builds a default descriptor with dense orders in the given
// filename order
func (s *Store) Synthesize(folder string, filenames []string) *Descriptor {
	now := FormatTime(s.now())
	name := filepath.Base(filepath.Clean(folder))
	d := &Descriptor{
		DisplayName: name,
		Description: "Auto-generated playlist for " + name,
		Created:     now,
		Tracks:      make(map[string]Entry, len(filenames)),
	}
	for i, f := range filenames {
		d.Tracks[f] = Entry{DisplayName: f, Order: i, Added: now}
	}
	return d
}

// backup renames the descriptor in folder out of the way and returns the
// new path
func (s *Store) backup(folder string) (string, error) {
	src := Path(folder)
	base := src + ".corrupt-" + s.now().UTC().Format("20060102T150405Z")
	dst := base
	for i := 1; ; i++ {
		if _, err := os.Lstat(dst); errors.Is(err, fs.ErrNotExist) {
			break
		}
		dst = fmt.Sprintf("%s-%d", base, i)
	}
	if err := os.Rename(src, dst); err != nil {
		return "", fmt.Errorf("failed to back up descriptor: %w", err)
	}
	return dst, nil
}
