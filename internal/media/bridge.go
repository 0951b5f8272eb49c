package media

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/tunefolder/tunefolder/internal/events"
	"github.com/tunefolder/tunefolder/internal/scanner"
	"github.com/tunefolder/tunefolder/internal/types"
)

// Player is the part of the transport the media controls drive
type Player interface {
	Play() error
	Pause() error
	TogglePause() error
	Stop() error
	Next() error
	Previous() error
	Seek(seconds float64) error
	SetSpeed(factor float64) error
	SetVolume(v float64) error
	SetLoopMode(mode types.LoopMode) error
	SetShuffle(enabled bool) error
}

// Bridge mirrors transport events into a media session and turns the
// session's commands into player calls
type Bridge struct {
	session Session
	player  Player

	// readTags fills artist and album; nil skips tag reading
	readTags func(path string) (*scanner.Tags, error)
}

// NewBridge connects session and player. Subscribe the bridge to the
// event bus to keep the session current.
func NewBridge(session Session, player Player) *Bridge {
	b := &Bridge{
		session:  session,
		player:   player,
		readTags: scanner.ReadTags,
	}
	session.SetCommandHandler(b)
	return b
}

// OnEvent implements events.Listener
func (b *Bridge) OnEvent(ev events.Event) {
	var err error
	switch e := ev.(type) {
	case events.TrackStarted:
		err = b.session.UpdateMetadata(b.metadata(e))
		b.session.UpdatePosition(seconds(e.Position))
	case events.StatusChanged:
		err = b.session.UpdatePlaybackState(StateFor(e.Status), seconds(e.Position))
	case events.PositionChanged:
		b.session.UpdatePosition(seconds(e.Position))
	case events.SpeedChanged:
		err = b.session.UpdateRate(e.Speed)
	case events.VolumeChanged:
		err = b.session.UpdateVolume(e.Volume)
	case events.LoopModeChanged:
		err = b.session.UpdateLoopStatus(LoopStatusFor(e.Mode))
	case events.ShuffleChanged:
		err = b.session.UpdateShuffle(e.Enabled)
	}
	if err != nil {
		log.Printf("[MEDIA] Failed to update %s: %v", ev.Kind(), err)
	}
}

func (b *Bridge) metadata(e events.TrackStarted) Metadata {
	md := Metadata{
		TrackID:  e.Index,
		Title:    e.DisplayName,
		Duration: seconds(e.Duration),
		Path:     e.Path,
	}
	if b.readTags == nil {
		return md
	}
	tags, err := b.readTags(e.Path)
	if err != nil {
		return md
	}
	md.Artist = tags.Artist
	md.Album = tags.Album
	// A title the user did not customize reads better from the tags
	if tags.Title != "" && strings.EqualFold(e.DisplayName, e.Filename) {
		md.Title = tags.Title
	}
	return md
}

// OnCommand implements CommandHandler
func (b *Bridge) OnCommand(cmd Command, data interface{}) error {
	switch cmd {
	case CmdPlay:
		return b.player.Play()
	case CmdPause:
		return b.player.Pause()
	case CmdPlayPause:
		return b.player.TogglePause()
	case CmdStop:
		return b.player.Stop()
	case CmdNext:
		return b.player.Next()
	case CmdPrevious:
		return b.player.Previous()
	case CmdSeek:
		pos, ok := data.(time.Duration)
		if !ok {
			return fmt.Errorf("invalid seek position %v", data)
		}
		return b.player.Seek(pos.Seconds())
	case CmdSetShuffle:
		enabled, ok := data.(bool)
		if !ok {
			return fmt.Errorf("invalid shuffle value %v", data)
		}
		return b.player.SetShuffle(enabled)
	case CmdSetLoopStatus:
		status, ok := data.(LoopStatus)
		if !ok {
			return fmt.Errorf("invalid loop status %v", data)
		}
		return b.player.SetLoopMode(status.Mode())
	case CmdSetRate:
		rate, ok := data.(float64)
		if !ok {
			return fmt.Errorf("invalid rate %v", data)
		}
		return b.player.SetSpeed(rate)
	case CmdSetVolume:
		volume, ok := data.(float64)
		if !ok {
			return fmt.Errorf("invalid volume %v", data)
		}
		return b.player.SetVolume(volume)
	}
	return fmt.Errorf("unsupported command %s", cmd)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
