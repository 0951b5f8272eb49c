package ipc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/tunefolder/tunefolder/internal/playlist"
	"github.com/tunefolder/tunefolder/internal/transport"
	"github.com/tunefolder/tunefolder/internal/types"
)

// handlerFunc runs one command. The returned value becomes the response data.
type handlerFunc func(ctx context.Context, c *client, data json.RawMessage) (interface{}, error)

// decode unmarshals a command's data, treating missing data as empty
func decode[T any](data json.RawMessage) (T, error) {
	var v T
	if len(data) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("invalid request data: %w", err)
	}
	return v, nil
}

// commandTable maps every command to its implementation
func (s *Server) commandTable() map[CommandType]handlerFunc {
	ctrl := s.ctrl

	// status is returned after every playback command
	status := func(err error) (interface{}, error) {
		if err != nil {
			return nil, err
		}
		return ctrl.Status(), nil
	}

	return map[CommandType]handlerFunc{
		CmdStatus: func(ctx context.Context, c *client, data json.RawMessage) (interface{}, error) {
			return ctrl.Status(), nil
		},
		CmdListPlaylists: func(ctx context.Context, c *client, data json.RawMessage) (interface{}, error) {
			return summarize(ctrl.Playlists()), nil
		},
		CmdGetPlaylist: func(ctx context.Context, c *client, data json.RawMessage) (interface{}, error) {
			req, err := decode[PlaylistRequest](data)
			if err != nil {
				return nil, err
			}
			return ctrl.Playlist(req.Playlist)
		},
		CmdSelectPlaylist: func(ctx context.Context, c *client, data json.RawMessage) (interface{}, error) {
			req, err := decode[PlaylistRequest](data)
			if err != nil {
				return nil, err
			}
			if err := ctrl.SelectPlaylist(req.Playlist); err != nil {
				return nil, err
			}
			return ctrl.Playlist(req.Playlist)
		},
		CmdRefresh: func(ctx context.Context, c *client, data json.RawMessage) (interface{}, error) {
			// A superseded scan is followed by a newer one
			if err := ctrl.Refresh(ctx); err != nil && !errors.Is(err, transport.ErrSuperseded) {
				return nil, err
			}
			return summarize(ctrl.Playlists()), nil
		},

		CmdPlayTrack: func(ctx context.Context, c *client, data json.RawMessage) (interface{}, error) {
			req, err := decode[PlayTrackRequest](data)
			if err != nil {
				return nil, err
			}
			return status(ctrl.PlayTrack(req.Index))
		},
		CmdPlay: func(ctx context.Context, c *client, data json.RawMessage) (interface{}, error) {
			return status(ctrl.Play())
		},
		CmdPause: func(ctx context.Context, c *client, data json.RawMessage) (interface{}, error) {
			return status(ctrl.Pause())
		},
		CmdTogglePause: func(ctx context.Context, c *client, data json.RawMessage) (interface{}, error) {
			return status(ctrl.TogglePause())
		},
		CmdStop: func(ctx context.Context, c *client, data json.RawMessage) (interface{}, error) {
			return status(ctrl.Stop())
		},
		CmdNext: func(ctx context.Context, c *client, data json.RawMessage) (interface{}, error) {
			return status(ctrl.Next())
		},
		CmdPrev: func(ctx context.Context, c *client, data json.RawMessage) (interface{}, error) {
			return status(ctrl.Previous())
		},
		CmdSeek: func(ctx context.Context, c *client, data json.RawMessage) (interface{}, error) {
			req, err := decode[SeekRequest](data)
			if err != nil {
				return nil, err
			}
			return status(ctrl.Seek(req.Position))
		},
		CmdRewind: func(ctx context.Context, c *client, data json.RawMessage) (interface{}, error) {
			return status(ctrl.Rewind())
		},

		CmdSpeed: func(ctx context.Context, c *client, data json.RawMessage) (interface{}, error) {
			req, err := decode[SpeedRequest](data)
			if err != nil {
				return nil, err
			}
			return status(ctrl.SetSpeed(req.Factor))
		},
		CmdVolume: func(ctx context.Context, c *client, data json.RawMessage) (interface{}, error) {
			req, err := decode[VolumeRequest](data)
			if err != nil {
				return nil, err
			}
			return status(ctrl.SetVolume(req.Level))
		},
		CmdSetLoop: func(ctx context.Context, c *client, data json.RawMessage) (interface{}, error) {
			req, err := decode[SetLoopRequest](data)
			if err != nil {
				return nil, err
			}
			return status(ctrl.SetLoopMode(types.ParseLoopMode(req.Mode)))
		},
		CmdSetShuffle: func(ctx context.Context, c *client, data json.RawMessage) (interface{}, error) {
			req, err := decode[SetShuffleRequest](data)
			if err != nil {
				return nil, err
			}
			return status(ctrl.SetShuffle(req.Enabled))
		},

		CmdRenamePlaylist: func(ctx context.Context, c *client, data json.RawMessage) (interface{}, error) {
			req, err := decode[RenamePlaylistRequest](data)
			if err != nil {
				return nil, err
			}
			return ctrl.UpdatePlaylistInfo(req.Playlist, req.DisplayName, req.Description)
		},
		CmdRenameTrack: func(ctx context.Context, c *client, data json.RawMessage) (interface{}, error) {
			req, err := decode[RenameTrackRequest](data)
			if err != nil {
				return nil, err
			}
			return ctrl.SetTrackDisplayName(req.Playlist, req.Filename, req.Name)
		},
		CmdMoveTrack: func(ctx context.Context, c *client, data json.RawMessage) (interface{}, error) {
			req, err := decode[MoveTrackRequest](data)
			if err != nil {
				return nil, err
			}
			return ctrl.MoveTrack(req.Playlist, req.FromIndex, req.ToIndex)
		},
		CmdCreatePlaylist: func(ctx context.Context, c *client, data json.RawMessage) (interface{}, error) {
			req, err := decode[CreatePlaylistRequest](data)
			if err != nil {
				return nil, err
			}
			return ctrl.CreatePlaylist(req.Name)
		},

		CmdTrackInfo: func(ctx context.Context, c *client, data json.RawMessage) (interface{}, error) {
			req, err := decode[TrackInfoRequest](data)
			if err != nil {
				return nil, err
			}
			return ctrl.TrackInfo(req.Playlist, req.Index)
		},
		CmdStats: func(ctx context.Context, c *client, data json.RawMessage) (interface{}, error) {
			req, err := decode[PlaylistRequest](data)
			if err != nil {
				return nil, err
			}
			return ctrl.Stats(req.Playlist)
		},
		CmdExport: func(ctx context.Context, c *client, data json.RawMessage) (interface{}, error) {
			req, err := decode[ExportRequest](data)
			if err != nil {
				return nil, err
			}
			format, err := playlist.ParseFormat(req.Format)
			if err != nil {
				return nil, err
			}
			var buf bytes.Buffer
			if err := ctrl.Export(req.Playlist, &buf, format); err != nil {
				return nil, err
			}
			return ExportResponse{Format: string(format), Content: buf.String()}, nil
		},

		CmdSubscribe: func(ctx context.Context, c *client, data json.RawMessage) (interface{}, error) {
			c.setSubscribed(true)
			return map[string]bool{"subscribed": true}, nil
		},
		CmdUnsubscribe: func(ctx context.Context, c *client, data json.RawMessage) (interface{}, error) {
			c.setSubscribed(false)
			return map[string]bool{"subscribed": false}, nil
		},
	}
}

func summarize(ps []*playlist.Playlist) []PlaylistSummary {
	return lo.Map(ps, func(p *playlist.Playlist, _ int) PlaylistSummary {
		return PlaylistSummary{
			ID:          p.ID,
			DisplayName: p.DisplayName,
			Description: p.Description,
			TrackCount:  p.Len(),
		}
	})
}
