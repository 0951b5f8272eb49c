// Package playlist turns playlist folders into ordered track lists and keeps
// their descriptors in step with the files on disk.
package playlist

import (
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/tunefolder/tunefolder/internal/descriptor"
)

// Track is one audio file in a playlist
type Track struct {
	// Filename is the slash-separated path relative to the playlist folder
	Filename    string    `json:"filename"`
	Path        string    `json:"path"`
	DisplayName string    `json:"displayName"`
	AddedAt     time.Time `json:"addedAt,omitempty"`

	// Order is the dense 0-based position; the descriptor may keep gaps
	Order int `json:"order"`

	// Duration in seconds; zero until probed or when unknown
	Duration float64 `json:"duration,omitempty"`
}

// Playlist is a folder of tracks in playback order
type Playlist struct {
	ID          string    `json:"id"`
	Folder      string    `json:"folder"`
	DisplayName string    `json:"displayName"`
	Description string    `json:"description,omitempty"`
	Created     time.Time `json:"created,omitempty"`
	Tracks      []*Track  `json:"tracks"`
}

// Len returns the number of tracks
func (p *Playlist) Len() int {
	return len(p.Tracks)
}

// IndexOf returns the position of filename in the playlist, or -1
func (p *Playlist) IndexOf(filename string) int {
	for i, t := range p.Tracks {
		if t.Filename == filename {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy that is safe to hand to other goroutines
func (p *Playlist) Clone() *Playlist {
	c := *p
	c.Tracks = make([]*Track, len(p.Tracks))
	for i, t := range p.Tracks {
		tc := *t
		c.Tracks[i] = &tc
	}
	return &c
}

// FromDescriptor builds the in-memory playlist for folder. Tracks are sorted
// by stored order, ties broken by filename, and renumbered 0..N-1.
func FromDescriptor(id, folder string, d *descriptor.Descriptor) *Playlist {
	p := &Playlist{
		ID:          id,
		Folder:      folder,
		DisplayName: d.DisplayName,
		Description: d.Description,
		Tracks:      make([]*Track, 0, len(d.Tracks)),
	}
	if p.DisplayName == "" {
		p.DisplayName = filepath.Base(folder)
	}
	if t, ok := descriptor.ParseTime(d.Created); ok {
		p.Created = t
	}

	for name, e := range d.Tracks {
		t := &Track{
			Filename:    name,
			Path:        filepath.Join(folder, filepath.FromSlash(name)),
			DisplayName: e.DisplayName,
			Order:       e.Order,
		}
		if t.DisplayName == "" {
			t.DisplayName = path.Base(name)
		}
		if added, ok := descriptor.ParseTime(e.Added); ok {
			t.AddedAt = added
		}
		p.Tracks = append(p.Tracks, t)
	}

	sort.Slice(p.Tracks, func(i, j int) bool {
		a, b := p.Tracks[i], p.Tracks[j]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		return a.Filename < b.Filename
	})
	for i, t := range p.Tracks {
		t.Order = i
	}
	return p
}
