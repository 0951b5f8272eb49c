// Package media exposes the player to the desktop's media controls.
package media

import (
	"time"

	"github.com/tunefolder/tunefolder/internal/types"
)

// PlaybackState represents the playback state for media sessions
type PlaybackState int

const (
	StateStopped PlaybackState = iota
	StatePlaying
	StatePaused
)

// StateFor maps a session status to a media playback state
func StateFor(s types.Status) PlaybackState {
	switch s {
	case types.StatusPlaying:
		return StatePlaying
	case types.StatusPaused:
		return StatePaused
	default:
		return StateStopped
	}
}

// Metadata contains track metadata for media session display
type Metadata struct {
	// TrackID identifies the track within the playlist
	TrackID  int
	Title    string
	Artist   string
	Album    string
	Duration time.Duration
	Path     string
}

// LoopStatus represents the loop/repeat mode for MPRIS
type LoopStatus string

const (
	LoopNone     LoopStatus = "None"
	LoopTrack    LoopStatus = "Track"
	LoopPlaylist LoopStatus = "Playlist"
)

// LoopStatusFor maps a loop mode to its MPRIS name
func LoopStatusFor(mode types.LoopMode) LoopStatus {
	switch mode {
	case types.LoopTrack:
		return LoopTrack
	case types.LoopPlaylist:
		return LoopPlaylist
	default:
		return LoopNone
	}
}

// Mode maps the MPRIS name back to a loop mode
func (l LoopStatus) Mode() types.LoopMode {
	switch l {
	case LoopTrack:
		return types.LoopTrack
	case LoopPlaylist:
		return types.LoopPlaylist
	default:
		return types.LoopNone
	}
}

// Session is the interface for OS media session integration
type Session interface {
	// UpdateMetadata updates the currently playing track metadata
	UpdateMetadata(metadata Metadata) error

	// UpdatePlaybackState updates the playback state and position
	UpdatePlaybackState(state PlaybackState, position time.Duration) error

	// UpdatePosition records the position without notifying clients
	UpdatePosition(position time.Duration)

	// UpdateRate updates the playback speed
	UpdateRate(rate float64) error

	// UpdateVolume updates the volume, 0.0 - 1.0
	UpdateVolume(volume float64) error

	// UpdateShuffle updates the shuffle state
	UpdateShuffle(enabled bool) error

	// UpdateLoopStatus updates the repeat/loop mode
	UpdateLoopStatus(status LoopStatus) error

	// SetCommandHandler sets the handler for media commands (play, pause, etc.)
	SetCommandHandler(handler CommandHandler)

	// Close releases resources
	Close() error
}

// Command represents a media command from the OS
type Command int

const (
	CmdPlay Command = iota
	CmdPause
	CmdPlayPause
	CmdStop
	CmdNext
	CmdPrevious
	CmdSeek
	CmdSetShuffle
	CmdSetLoopStatus
	CmdSetRate
	CmdSetVolume
)

// String returns the command name
func (c Command) String() string {
	switch c {
	case CmdPlay:
		return "Play"
	case CmdPause:
		return "Pause"
	case CmdPlayPause:
		return "PlayPause"
	case CmdStop:
		return "Stop"
	case CmdNext:
		return "Next"
	case CmdPrevious:
		return "Previous"
	case CmdSeek:
		return "Seek"
	case CmdSetShuffle:
		return "SetShuffle"
	case CmdSetLoopStatus:
		return "SetLoopStatus"
	case CmdSetRate:
		return "SetRate"
	case CmdSetVolume:
		return "SetVolume"
	default:
		return "Unknown"
	}
}

// CommandHandler handles media commands from the OS
type CommandHandler interface {
	OnCommand(cmd Command, data interface{}) error
}

// CommandHandlerFunc is a function adapter for CommandHandler
type CommandHandlerFunc func(cmd Command, data interface{}) error

func (f CommandHandlerFunc) OnCommand(cmd Command, data interface{}) error {
	return f(cmd, data)
}

// NoOpSession is a session that does nothing
// Used when media session integration is not available
type NoOpSession struct{}

// NewNoOpSession creates a new no-op session
func NewNoOpSession() *NoOpSession {
	return &NoOpSession{}
}

func (s *NoOpSession) UpdateMetadata(metadata Metadata) error { return nil }

func (s *NoOpSession) UpdatePlaybackState(state PlaybackState, position time.Duration) error {
	return nil
}

func (s *NoOpSession) UpdatePosition(position time.Duration) {}

func (s *NoOpSession) UpdateRate(rate float64) error { return nil }

func (s *NoOpSession) UpdateVolume(volume float64) error { return nil }

func (s *NoOpSession) UpdateShuffle(enabled bool) error { return nil }

func (s *NoOpSession) UpdateLoopStatus(status LoopStatus) error { return nil }

func (s *NoOpSession) SetCommandHandler(handler CommandHandler) {}

func (s *NoOpSession) Close() error { return nil }
