// Package events defines the notifications the player core sends to its
// observers and a small bus to deliver them.
package events

import (
	"github.com/tunefolder/tunefolder/internal/playlist"
	"github.com/tunefolder/tunefolder/internal/types"
)

// Kind names an event on the wire
type Kind string

const (
	KindPositionChanged     Kind = "positionChanged"
	KindTrackStarted        Kind = "trackStarted"
	KindTrackEnded          Kind = "trackEnded"
	KindEndOfPlaylist       Kind = "endOfPlaylist"
	KindStatusChanged       Kind = "statusChanged"
	KindSpeedChanged        Kind = "speedChanged"
	KindVolumeChanged       Kind = "volumeChanged"
	KindLoopModeChanged     Kind = "loopModeChanged"
	KindShuffleChanged      Kind = "shuffleChanged"
	KindPlaylistsRefreshed  Kind = "playlistsRefreshed"
	KindPlaylistChanged     Kind = "playlistChanged"
	KindDescriptorCorrupted Kind = "descriptorCorrupted"
	KindLoadFailed          Kind = "loadFailed"
	KindPersistenceFailed   Kind = "persistenceFailed"
	KindFeatureUnavailable  Kind = "featureUnavailable"
)

// Event is implemented by every notification type
type Event interface {
	Kind() Kind
}

// PositionChanged reports the playback position in seconds.
// Duration is zero when unknown.
type PositionChanged struct {
	Position float64 `json:"position"`
	Duration float64 `json:"duration"`
}

// TrackStarted is sent after a track was loaded and started
type TrackStarted struct {
	PlaylistID  string  `json:"playlistId"`
	Index       int     `json:"index"`
	Filename    string  `json:"filename"`
	Path        string  `json:"path"`
	DisplayName string  `json:"displayName"`
	Duration    float64 `json:"duration"`
	Position    float64 `json:"position"`
}

// TrackEnded is sent when the current track played to completion
type TrackEnded struct {
	PlaylistID string `json:"playlistId"`
	Index      int    `json:"index"`
	Filename   string `json:"filename"`
}

// EndOfPlaylist is sent when playback stops after the last track
type EndOfPlaylist struct {
	PlaylistID string `json:"playlistId"`
}

// StatusChanged reports a session state transition
type StatusChanged struct {
	Status   types.Status `json:"status"`
	Position float64      `json:"position"`
}

// SpeedChanged reports the effective playback speed
type SpeedChanged struct {
	Speed float64 `json:"speed"`
}

// VolumeChanged reports the playback volume
type VolumeChanged struct {
	Volume float64 `json:"volume"`
}

// LoopModeChanged reports the loop mode
type LoopModeChanged struct {
	Mode types.LoopMode `json:"mode"`
}

// ShuffleChanged reports whether shuffle is enabled
type ShuffleChanged struct {
	Enabled bool `json:"enabled"`
}

// PlaylistsRefreshed carries the catalog after a rescan
type PlaylistsRefreshed struct {
	Playlists []*playlist.Playlist `json:"playlists"`
}

// PlaylistChanged carries one playlist after an edit or a single-folder sync
type PlaylistChanged struct {
	Playlist *playlist.Playlist `json:"playlist"`
}

// DescriptorCorrupted reports a descriptor that was moved aside and rebuilt
type DescriptorCorrupted struct {
	Folder     string `json:"folder"`
	BackupPath string `json:"backupPath"`
	Reason     string `json:"reason,omitempty"`
}

// LoadFailed reports a track the backend could not open
type LoadFailed struct {
	PlaylistID string `json:"playlistId"`
	Index      int    `json:"index"`
	Path       string `json:"path"`
	Error      string `json:"error"`
}

// PersistenceFailed reports a descriptor that could not be written
type PersistenceFailed struct {
	Folder string `json:"folder"`
	Error  string `json:"error"`
}

// FeatureUnavailable is a non-fatal capability notice
type FeatureUnavailable struct {
	Feature string `json:"feature"`
	Reason  string `json:"reason"`
}

func (PositionChanged) Kind() Kind     { return KindPositionChanged }
func (TrackStarted) Kind() Kind        { return KindTrackStarted }
func (TrackEnded) Kind() Kind          { return KindTrackEnded }
func (EndOfPlaylist) Kind() Kind       { return KindEndOfPlaylist }
func (StatusChanged) Kind() Kind       { return KindStatusChanged }
func (SpeedChanged) Kind() Kind        { return KindSpeedChanged }
func (VolumeChanged) Kind() Kind       { return KindVolumeChanged }
func (LoopModeChanged) Kind() Kind     { return KindLoopModeChanged }
func (ShuffleChanged) Kind() Kind      { return KindShuffleChanged }
func (PlaylistsRefreshed) Kind() Kind  { return KindPlaylistsRefreshed }
func (PlaylistChanged) Kind() Kind     { return KindPlaylistChanged }
func (DescriptorCorrupted) Kind() Kind { return KindDescriptorCorrupted }
func (LoadFailed) Kind() Kind          { return KindLoadFailed }
func (PersistenceFailed) Kind() Kind   { return KindPersistenceFailed }
func (FeatureUnavailable) Kind() Kind  { return KindFeatureUnavailable }
