package playlist

import (
	"fmt"
	"io"
	"math"
	"strings"
)

// Format is a playlist export format
type Format string

const (
	FormatM3U Format = "m3u"
	FormatPLS Format = "pls"
)

// ParseFormat parses an export format name
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimPrefix(s, "."))) {
	case FormatM3U, "m3u8":
		return FormatM3U, nil
	case FormatPLS:
		return FormatPLS, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// Export writes p to w in the given format using absolute track paths.
// Unknown durations are written as -1.
func Export(w io.Writer, p *Playlist, format Format) error {
	switch format {
	case FormatM3U:
		return exportM3U(w, p)
	case FormatPLS:
		return exportPLS(w, p)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

func exportM3U(w io.Writer, p *Playlist) error {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	fmt.Fprintf(&b, "#PLAYLIST:%s\n", p.DisplayName)
	for _, t := range p.Tracks {
		fmt.Fprintf(&b, "#EXTINF:%d,%s\n", exportSeconds(t.Duration), t.DisplayName)
		b.WriteString(t.Path)
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func exportPLS(w io.Writer, p *Playlist) error {
	var b strings.Builder
	b.WriteString("[playlist]\n")
	for i, t := range p.Tracks {
		n := i + 1
		fmt.Fprintf(&b, "File%d=%s\n", n, t.Path)
		fmt.Fprintf(&b, "Title%d=%s\n", n, t.DisplayName)
		fmt.Fprintf(&b, "Length%d=%d\n", n, exportSeconds(t.Duration))
	}
	fmt.Fprintf(&b, "NumberOfEntries=%d\n", len(p.Tracks))
	b.WriteString("Version=2\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func exportSeconds(d float64) int {
	if d <= 0 {
		return -1
	}
	return int(math.Round(d))
}
