package media

import (
	"errors"
	"testing"
	"time"

	"github.com/tunefolder/tunefolder/internal/events"
	"github.com/tunefolder/tunefolder/internal/scanner"
	"github.com/tunefolder/tunefolder/internal/types"
)

type recordingSession struct {
	NoOpSession
	handler  CommandHandler
	metadata Metadata
	state    PlaybackState
	position time.Duration
	rate     float64
	volume   float64
	loop     LoopStatus
	shuffle  bool
}

func (s *recordingSession) SetCommandHandler(h CommandHandler) { s.handler = h }
func (s *recordingSession) UpdateMetadata(m Metadata) error    { s.metadata = m; return nil }
func (s *recordingSession) UpdatePosition(p time.Duration)     { s.position = p }
func (s *recordingSession) UpdateRate(r float64) error         { s.rate = r; return nil }
func (s *recordingSession) UpdateVolume(v float64) error       { s.volume = v; return nil }
func (s *recordingSession) UpdateShuffle(e bool) error         { s.shuffle = e; return nil }
func (s *recordingSession) UpdateLoopStatus(l LoopStatus) error {
	s.loop = l
	return nil
}
func (s *recordingSession) UpdatePlaybackState(st PlaybackState, p time.Duration) error {
	s.state, s.position = st, p
	return nil
}

type recordingPlayer struct {
	calls []string
	seek  float64
	speed float64
	loop  types.LoopMode
}

func (p *recordingPlayer) record(name string) error { p.calls = append(p.calls, name); return nil }

func (p *recordingPlayer) Play() error        { return p.record("play") }
func (p *recordingPlayer) Pause() error       { return p.record("pause") }
func (p *recordingPlayer) TogglePause() error { return p.record("toggle") }
func (p *recordingPlayer) Stop() error        { return p.record("stop") }
func (p *recordingPlayer) Next() error        { return p.record("next") }
func (p *recordingPlayer) Previous() error    { return p.record("previous") }
func (p *recordingPlayer) Seek(s float64) error {
	p.seek = s
	return p.record("seek")
}
func (p *recordingPlayer) SetSpeed(f float64) error {
	p.speed = f
	return p.record("speed")
}
func (p *recordingPlayer) SetVolume(v float64) error { return p.record("volume") }
func (p *recordingPlayer) SetLoopMode(m types.LoopMode) error {
	p.loop = m
	return p.record("loop")
}
func (p *recordingPlayer) SetShuffle(e bool) error { return p.record("shuffle") }

func TestBridgeMirrorsEvents(t *testing.T) {
	session := &recordingSession{}
	b := NewBridge(session, &recordingPlayer{})
	b.readTags = func(path string) (*scanner.Tags, error) {
		return &scanner.Tags{Title: "Clair de Lune", Artist: "Debussy", Album: "Suite bergamasque"}, nil
	}

	b.OnEvent(events.TrackStarted{Index: 3, Filename: "03.mp3", DisplayName: "03.mp3", Path: "/m/03.mp3", Duration: 300})
	b.OnEvent(events.StatusChanged{Status: types.StatusPlaying, Position: 1.5})
	b.OnEvent(events.SpeedChanged{Speed: 1.25})
	b.OnEvent(events.VolumeChanged{Volume: 0.4})
	b.OnEvent(events.LoopModeChanged{Mode: types.LoopPlaylist})
	b.OnEvent(events.ShuffleChanged{Enabled: true})
	b.OnEvent(events.PositionChanged{Position: 2})

	if session.metadata.Title != "Clair de Lune" || session.metadata.Artist != "Debussy" {
		t.Errorf("Expected tag metadata, got %+v", session.metadata)
	}
	if session.metadata.TrackID != 3 || session.metadata.Duration != 300*time.Second {
		t.Errorf("Unexpected track id or duration %+v", session.metadata)
	}
	if session.state != StatePlaying {
		t.Errorf("Expected playing, got %d", session.state)
	}
	if session.position != 2*time.Second {
		t.Errorf("Expected 2s, got %v", session.position)
	}
	if session.rate != 1.25 || session.volume != 0.4 {
		t.Errorf("Expected rate 1.25 volume 0.4, got %f %f", session.rate, session.volume)
	}
	if session.loop != LoopPlaylist || !session.shuffle {
		t.Errorf("Expected Playlist loop with shuffle, got %s %v", session.loop, session.shuffle)
	}
}

func TestBridgeKeepsCustomTitle(t *testing.T) {
	session := &recordingSession{}
	b := NewBridge(session, &recordingPlayer{})
	b.readTags = func(path string) (*scanner.Tags, error) {
		return &scanner.Tags{Title: "Track 1"}, nil
	}

	b.OnEvent(events.TrackStarted{Filename: "01.mp3", DisplayName: "Moonlight Sonata"})
	if session.metadata.Title != "Moonlight Sonata" {
		t.Errorf("Expected Moonlight Sonata, got %s", session.metadata.Title)
	}

	b.readTags = func(path string) (*scanner.Tags, error) { return nil, errors.New("no file") }
	b.OnEvent(events.TrackStarted{Filename: "02.mp3", DisplayName: "02.mp3"})
	if session.metadata.Title != "02.mp3" {
		t.Errorf("Expected display name fallback, got %s", session.metadata.Title)
	}
}

func TestBridgeCommands(t *testing.T) {
	tests := []struct {
		cmd      Command
		data     interface{}
		expected string
	}{
		{CmdPlay, nil, "play"},
		{CmdPause, nil, "pause"},
		{CmdPlayPause, nil, "toggle"},
		{CmdStop, nil, "stop"},
		{CmdNext, nil, "next"},
		{CmdPrevious, nil, "previous"},
		{CmdSeek, 90 * time.Second, "seek"},
		{CmdSetShuffle, true, "shuffle"},
		{CmdSetLoopStatus, LoopTrack, "loop"},
		{CmdSetRate, 1.5, "speed"},
		{CmdSetVolume, 0.5, "volume"},
	}

	for _, tt := range tests {
		t.Run(tt.cmd.String(), func(t *testing.T) {
			session := &recordingSession{}
			player := &recordingPlayer{}
			NewBridge(session, player)

			if err := session.handler.OnCommand(tt.cmd, tt.data); err != nil {
				t.Fatalf("OnCommand failed: %v", err)
			}
			if len(player.calls) != 1 || player.calls[0] != tt.expected {
				t.Errorf("Expected %s, got %v", tt.expected, player.calls)
			}
		})
	}
}

func TestBridgeCommandValues(t *testing.T) {
	session := &recordingSession{}
	player := &recordingPlayer{}
	b := NewBridge(session, player)

	b.OnCommand(CmdSeek, 90*time.Second)
	b.OnCommand(CmdSetRate, 0.75)
	b.OnCommand(CmdSetLoopStatus, LoopTrack)

	if player.seek != 90 {
		t.Errorf("Expected seek to 90, got %f", player.seek)
	}
	if player.speed != 0.75 {
		t.Errorf("Expected speed 0.75, got %f", player.speed)
	}
	if player.loop != types.LoopTrack {
		t.Errorf("Expected loop track, got %s", player.loop)
	}

	if err := b.OnCommand(CmdSeek, "later"); err == nil {
		t.Error("Expected an error for a bad seek value")
	}
}

func TestLoopStatusRoundTrip(t *testing.T) {
	for _, mode := range []types.LoopMode{types.LoopNone, types.LoopTrack, types.LoopPlaylist} {
		if got := LoopStatusFor(mode).Mode(); got != mode {
			t.Errorf("Expected %s, got %s", mode, got)
		}
	}
}
