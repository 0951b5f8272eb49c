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

	"github.com/tunefolder/tunefolder/internal/descriptor"
)

var (
	// ErrTrackNotFound is returned when an edit names a file not in the playlist
	ErrTrackNotFound = errors.New("track not found")

	// ErrInvalidName is returned for empty or path-like playlist names
	ErrInvalidName = errors.New("invalid playlist name")

	// ErrPlaylistExists is returned when creating a playlist whose folder exists
	ErrPlaylistExists = errors.New("playlist already exists")
)

// edit syncs folder, applies fn to its descriptor and saves the result.
// The returned playlist reflects the edit. The folder stays locked from the
// sync to the save so a concurrent scan cannot write back a stale copy.
func (s *Synchronizer) edit(folder string, fn func(d *descriptor.Descriptor) error) (*Playlist, error) {
	unlock := s.lockFolder(folder)
	defer unlock()

	res, err := s.syncLocked(folder)
	if err != nil {
		return nil, err
	}
	if res.Missing {
		return nil, fmt.Errorf("%s: %w", folder, descriptor.ErrFolderNotFound)
	}

	d, err := s.store.Load(folder)
	if err != nil {
		return nil, err
	}
	if err := fn(d); err != nil {
		return nil, err
	}
	if err := s.store.Save(folder, d); err != nil {
		return nil, err
	}
	return FromDescriptor(res.Playlist.ID, folder, d), nil
}

// UpdateInfo sets the playlist display name and description. An empty
// displayName keeps the current one.
func (s *Synchronizer) UpdateInfo(folder, displayName, description string) (*Playlist, error) {
	return s.edit(folder, func(d *descriptor.Descriptor) error {
		if name := strings.TrimSpace(displayName); name != "" {
			d.DisplayName = name
		}
		d.Description = description
		return nil
	})
}

// SetTrackDisplayName renames a track without touching the file. An empty
// name restores the filename.
func (s *Synchronizer) SetTrackDisplayName(folder, filename, name string) (*Playlist, error) {
	return s.edit(folder, func(d *descriptor.Descriptor) error {
		e, ok := d.Tracks[filename]
		if !ok {
			return fmt.Errorf("%s: %w", filename, ErrTrackNotFound)
		}
		e.DisplayName = strings.TrimSpace(name)
		if e.DisplayName == "" {
			e.DisplayName = filename
		}
		d.Tracks[filename] = e
		return nil
	})
}

// MoveTrack moves the track at position from to position to and rewrites
// all orders densely as 0..N-1
func (s *Synchronizer) MoveTrack(folder string, from, to int) (*Playlist, error) {
	return s.edit(folder, func(d *descriptor.Descriptor) error {
		names := orderedNames(d)
		if from < 0 || from >= len(names) || to < 0 || to >= len(names) {
			return fmt.Errorf("move %d -> %d in %d tracks: %w", from, to, len(names), ErrTrackNotFound)
		}

		moved := names[from]
		names = append(names[:from], names[from+1:]...)
		names = append(names[:to], append([]string{moved}, names[to:]...)...)

		for i, name := range names {
			e := d.Tracks[name]
			e.Order = i
			d.Tracks[name] = e
		}
		return nil
	})
}

// Create makes a new playlist folder under root with a default descriptor
func (s *Synchronizer) Create(root, name string) (*Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return nil, fmt.Errorf("%q: %w", name, ErrInvalidName)
	}

	folder := filepath.Join(root, name)
	if err := os.Mkdir(folder, 0755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%s: %w", name, ErrPlaylistExists)
		}
		return nil, fmt.Errorf("failed to create playlist folder: %w", err)
	}
	log.Printf("[SYNC] Created playlist folder %s", folder)

	res, err := s.Sync(folder)
	if err != nil {
		return nil, err
	}
	return res.Playlist, nil
}

// orderedNames returns descriptor filenames sorted by order, then name
func orderedNames(d *descriptor.Descriptor) []string {
	names := make([]string, 0, len(d.Tracks))
	for name := range d.Tracks {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := d.Tracks[names[i]], d.Tracks[names[j]]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		return names[i] < names[j]
	})
	return names
}
