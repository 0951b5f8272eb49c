package playlist

import (
	"os"
	"path/filepath"
	"strings"
)

// Stats summarizes a playlist's files on disk
type Stats struct {
	TrackCount int            `json:"trackCount"`
	TotalSize  int64          `json:"totalSize"`
	SizeMB     float64        `json:"sizeMb"`
	Formats    map[string]int `json:"formats"`

	// TotalDuration only counts tracks whose duration is known
	TotalDuration float64 `json:"totalDuration"`
}

// ComputeStats stats every track file in p. Files that vanished since the
// last sync are counted but contribute no size.
func ComputeStats(p *Playlist) Stats {
	st := Stats{TrackCount: len(p.Tracks), Formats: make(map[string]int)}
	for _, t := range p.Tracks {
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(t.Filename)), ".")
		st.Formats[ext]++
		st.TotalDuration += t.Duration
		if info, err := os.Stat(t.Path); err == nil {
			st.TotalSize += info.Size()
		}
	}
	st.SizeMB = float64(st.TotalSize) / (1024 * 1024)
	return st
}
