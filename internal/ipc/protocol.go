// Package ipc handles inter-process communication between the daemon and clients.
package ipc

import (
	"encoding/json"
	"fmt"
)

// CommandType represents the type of command
type CommandType string

const (
	// Status & catalog
	CmdStatus         CommandType = "status"
	CmdListPlaylists  CommandType = "listPlaylists"
	CmdGetPlaylist    CommandType = "getPlaylist"
	CmdSelectPlaylist CommandType = "selectPlaylist"
	CmdRefresh        CommandType = "refresh"

	// Playback
	CmdPlayTrack   CommandType = "playTrack"
	CmdPlay        CommandType = "play"
	CmdPause       CommandType = "pause"
	CmdTogglePause CommandType = "togglePause"
	CmdStop        CommandType = "stop"
	CmdNext        CommandType = "next"
	CmdPrev        CommandType = "prev"
	CmdSeek        CommandType = "seek"
	CmdRewind      CommandType = "rewind"

	// Settings
	CmdSpeed      CommandType = "speed"
	CmdVolume     CommandType = "volume"
	CmdSetLoop    CommandType = "setLoop"
	CmdSetShuffle CommandType = "setShuffle"

	// Playlist edits
	CmdRenamePlaylist CommandType = "renamePlaylist"
	CmdRenameTrack    CommandType = "renameTrack"
	CmdMoveTrack      CommandType = "moveTrack"
	CmdCreatePlaylist CommandType = "createPlaylist"

	// Info & export
	CmdTrackInfo CommandType = "trackInfo"
	CmdStats     CommandType = "stats"
	CmdExport    CommandType = "export"

	// Event stream
	CmdSubscribe   CommandType = "subscribe"
	CmdUnsubscribe CommandType = "unsubscribe"
)

// PushMessage represents a server-initiated message (no request needed)
type PushMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Request represents a client request
type Request struct {
	Cmd  CommandType     `json:"cmd"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Response represents a server response
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// PlaylistRequest names a playlist by its folder name
type PlaylistRequest struct {
	Playlist string `json:"playlist"`
}

// PlaylistSummary is one entry of a listPlaylists response
type PlaylistSummary struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Description string `json:"description,omitempty"`
	TrackCount  int    `json:"trackCount"`
}

// PlayTrackRequest is the data for a playTrack command
type PlayTrackRequest struct {
	Index int `json:"index"`
}

// SeekRequest is the data for a seek command
type SeekRequest struct {
	Position float64 `json:"position"` // seconds
}

// SpeedRequest is the data for a speed command
type SpeedRequest struct {
	Factor float64 `json:"factor"` // 0.5 - 2.0
}

// VolumeRequest is the data for a volume command
type VolumeRequest struct {
	Level float64 `json:"level"` // 0.0 - 1.0
}

// SetLoopRequest is the data for a setLoop command
type SetLoopRequest struct {
	Mode string `json:"mode"` // "none", "track", "playlist"
}

// SetShuffleRequest is the data for a setShuffle command
type SetShuffleRequest struct {
	Enabled bool `json:"enabled"`
}

// RenamePlaylistRequest is the data for a renamePlaylist command.
// An empty display name keeps the current one.
type RenamePlaylistRequest struct {
	Playlist    string `json:"playlist"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
}

// RenameTrackRequest is the data for a renameTrack command.
// An empty name restores the filename.
type RenameTrackRequest struct {
	Playlist string `json:"playlist"`
	Filename string `json:"filename"`
	Name     string `json:"name"`
}

// MoveTrackRequest is the data for a moveTrack command
type MoveTrackRequest struct {
	Playlist  string `json:"playlist"`
	FromIndex int    `json:"fromIndex"`
	ToIndex   int    `json:"toIndex"`
}

// CreatePlaylistRequest is the data for a createPlaylist command
type CreatePlaylistRequest struct {
	Name string `json:"name"`
}

// TrackInfoRequest is the data for a trackInfo command
type TrackInfoRequest struct {
	Playlist string `json:"playlist"`
	Index    int    `json:"index"`
}

// ExportRequest is the data for an export command
type ExportRequest struct {
	Playlist string `json:"playlist"`
	Format   string `json:"format"` // "m3u" or "pls"
}

// ExportResponse carries the exported playlist text
type ExportResponse struct {
	Format  string `json:"format"`
	Content string `json:"content"`
}

// EncodeRequest encodes a request to JSON
func EncodeRequest(req *Request) ([]byte, error) {
	return json.Marshal(req)
}

// DecodeRequest decodes a request from JSON
func DecodeRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}
	return &req, nil
}

// EncodeResponse encodes a response to JSON
func EncodeResponse(resp *Response) ([]byte, error) {
	return json.Marshal(resp)
}

// DecodeResponse decodes a response from JSON
func DecodeResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &resp, nil
}

// NewSuccessResponse creates a successful response
func NewSuccessResponse(data interface{}) (*Response, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, err
		}
	}
	return &Response{
		Success: true,
		Data:    rawData,
	}, nil
}

// NewErrorResponse creates an error response
func NewErrorResponse(err string) *Response {
	return &Response{
		Success: false,
		Error:   err,
	}
}

// NewPushMessage creates a push message for streaming data
func NewPushMessage(msgType string, data interface{}) ([]byte, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, err
		}
	}
	msg := PushMessage{
		Type: msgType,
		Data: rawData,
	}
	return json.Marshal(msg)
}
