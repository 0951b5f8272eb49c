// Package types provides shared type definitions used across tunefolder.
package types

import "strings"

// LoopMode represents the loop behavior of the transport
type LoopMode int

const (
	LoopNone LoopMode = iota
	LoopTrack
	LoopPlaylist
)

// String returns the string representation of the loop mode
func (l LoopMode) String() string {
	switch l {
	case LoopTrack:
		return "track"
	case LoopPlaylist:
		return "playlist"
	default:
		return "none"
	}
}

// ParseLoopMode parses a string into a LoopMode.
// The repeat names used by older clients ("one", "all") are accepted too.
func ParseLoopMode(s string) LoopMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "track", "one":
		return LoopTrack
	case "playlist", "all":
		return LoopPlaylist
	default:
		return LoopNone
	}
}

// MarshalText encodes the loop mode by name
func (l LoopMode) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText decodes a loop mode name
func (l *LoopMode) UnmarshalText(text []byte) error {
	*l = ParseLoopMode(string(text))
	return nil
}

// Status represents the playback status of a session
type Status string

const (
	StatusStopped Status = "stopped"
	StatusPlaying Status = "playing"
	StatusPaused  Status = "paused"
)

// IsActive reports whether a track is loaded and not stopped
func (s Status) IsActive() bool {
	return s == StatusPlaying || s == StatusPaused
}
