// Package descriptor reads and writes the playlist.json file kept in each
// playlist folder.
package descriptor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

// FileName is the descriptor file kept in every playlist folder
const FileName = "playlist.json"

var (
	// ErrNotFound is returned by Load when the folder has no descriptor.
	// Callers synthesize a default in that case.
	ErrNotFound = errors.New("descriptor not found")

	// ErrFolderNotFound is returned when the playlist folder itself is gone
	ErrFolderNotFound = errors.New("playlist folder not found")
)

// Descriptor is the on-disk form of a playlist
type Descriptor struct {
	DisplayName string           `json:"display_name"`
	Description string           `json:"description"`
	Created     string           `json:"created"`
	Tracks      map[string]Entry `json:"tracks"`
}

// Entry is the persisted metadata for one track, keyed by filename
type Entry struct {
	DisplayName string `json:"display_name"`
	Order       int    `json:"order"`
	Added       string `json:"added"`
}

// ValidationError reports a descriptor that failed structural checks
type ValidationError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid descriptor %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid descriptor %s: %s", e.Path, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// PersistenceError reports a failed descriptor write. The descriptor
// previously on disk, if any, is left intact.
type PersistenceError struct {
	Folder string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to save descriptor in %s: %v", e.Folder, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Path returns the descriptor path for a playlist folder
func Path(folder string) string {
	return filepath.Join(folder, FileName)
}

// Clone returns a deep copy of the descriptor
func (d *Descriptor) Clone() *Descriptor {
	c := *d
	c.Tracks = make(map[string]Entry, len(d.Tracks))
	for name, e := range d.Tracks {
		c.Tracks[name] = e
	}
	return &c
}

// Equal reports whether two descriptors hold the same playlist fields and
// the same track set with identical orders and display names
func (d *Descriptor) Equal(o *Descriptor) bool {
	if d.DisplayName != o.DisplayName || d.Description != o.Description {
		return false
	}
	if len(d.Tracks) != len(o.Tracks) {
		return false
	}
	for name, e := range d.Tracks {
		oe, ok := o.Tracks[name]
		if !ok || oe.DisplayName != e.DisplayName || oe.Order != e.Order {
			return false
		}
	}
	return true
}

// raw mirrors Descriptor with pointers so missing keys can be told apart
// from zero values
type raw struct {
	DisplayName *string              `json:"display_name"`
	Description string               `json:"description"`
	Created     string               `json:"created"`
	Tracks      map[string]*rawEntry `json:"tracks"`
}

type rawEntry struct {
	DisplayName *string `json:"display_name"`
	Order       *int    `json:"order"`
	Added       string  `json:"added"`
}

// Decode parses and validates descriptor bytes. Any structural problem is
// reported as a *ValidationError; path is only used for error messages.
func Decode(path string, data []byte) (*Descriptor, error) {
	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, &ValidationError{Path: path, Reason: "malformed json", Err: err}
	}
	if r.DisplayName == nil {
		return nil, &ValidationError{Path: path, Reason: "missing display_name"}
	}
	if r.Tracks == nil {
		return nil, &ValidationError{Path: path, Reason: "missing tracks"}
	}

	d := &Descriptor{
		DisplayName: *r.DisplayName,
		Description: r.Description,
		Created:     r.Created,
		Tracks:      make(map[string]Entry, len(r.Tracks)),
	}

	seen := make(map[int]string, len(r.Tracks))
	for name, e := range r.Tracks {
		switch {
		case name == "":
			return nil, &ValidationError{Path: path, Reason: "empty track filename"}
		case e == nil:
			return nil, &ValidationError{Path: path, Reason: fmt.Sprintf("track %q has no entry", name)}
		case e.DisplayName == nil:
			return nil, &ValidationError{Path: path, Reason: fmt.Sprintf("track %q missing display_name", name)}
		case e.Order == nil:
			return nil, &ValidationError{Path: path, Reason: fmt.Sprintf("track %q missing order", name)}
		case *e.Order < 0:
			return nil, &ValidationError{Path: path, Reason: fmt.Sprintf("track %q has negative order %d", name, *e.Order)}
		}
		if other, dup := seen[*e.Order]; dup {
			return nil, &ValidationError{
				Path:   path,
				Reason: fmt.Sprintf("order %d shared by %q and %q", *e.Order, other, name),
			}
		}
		seen[*e.Order] = name
		d.Tracks[name] = Entry{DisplayName: *e.DisplayName, Order: *e.Order, Added: e.Added}
	}

	return d, nil
}

// Encode renders a descriptor as indented UTF-8 JSON
func Encode(d *Descriptor) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("failed to marshal descriptor: %w", err)
	}
	return buf.Bytes(), nil
}

// FormatTime renders a timestamp the way descriptors store them
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// timeLayouts covers RFC 3339 plus the zone-less ISO forms written by
// older versions of the player
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTime parses a stored timestamp. Unparseable values yield false.
func ParseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
