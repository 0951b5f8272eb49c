package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
)

// Tags holds the embedded metadata of an audio file
type Tags struct {
	Title       string `json:"title,omitempty"`
	Artist      string `json:"artist,omitempty"`
	Album       string `json:"album,omitempty"`
	AlbumArtist string `json:"albumArtist,omitempty"`
	Genre       string `json:"genre,omitempty"`
	Year        int    `json:"year,omitempty"`
	Track       int    `json:"track,omitempty"`
	Format      string `json:"format,omitempty"`
}

// ReadTags reads embedded tags from the file at path. Files without tags
// get a title derived from the filename.
func ReadTags(path string) (*Tags, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	fallback := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	m, err := tag.ReadFrom(f)
	if err != nil {
		if err == tag.ErrNoTagsFound {
			return &Tags{Title: fallback}, nil
		}
		return nil, fmt.Errorf("failed to read tags: %w", err)
	}

	t := &Tags{
		Title:       m.Title(),
		Artist:      m.Artist(),
		Album:       m.Album(),
		AlbumArtist: m.AlbumArtist(),
		Genre:       m.Genre(),
		Year:        m.Year(),
		Format:      string(m.FileType()),
	}
	t.Track, _ = m.Track()
	if t.Title == "" {
		t.Title = fallback
	}
	if t.Artist == "" {
		t.Artist = t.AlbumArtist
	}
	return t, nil
}
