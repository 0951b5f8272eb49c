// Package session implements the playback state machine for a single track.
// It tracks position against the wall clock and owns the backend handle of
// the loaded track.
//
// A Session is not safe for concurrent use; its owner serializes calls and
// publishes the queued events once it has released its own lock.
package session

import (
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/tunefolder/tunefolder/internal/audio"
	"github.com/tunefolder/tunefolder/internal/events"
	"github.com/tunefolder/tunefolder/internal/metrics"
	"github.com/tunefolder/tunefolder/internal/playlist"
	"github.com/tunefolder/tunefolder/internal/types"
)

const (
	// MinSpeed and MaxSpeed bound the playback speed factor
	MinSpeed = 0.5
	MaxSpeed = 2.0

	// DefaultVolume and DefaultSpeed apply to a new session
	DefaultVolume = 0.7
	DefaultSpeed  = 1.0

	// RewindStep is how far Rewind jumps back, in seconds
	RewindStep = 10.0
)

var (
	// ErrFeatureUnavailable is returned when the backend cannot honor a
	// request for the current track
	ErrFeatureUnavailable = errors.New("feature unavailable")

	// ErrNotActive is returned by Seek while stopped
	ErrNotActive = errors.New("no active track")

	// ErrNoTrack is returned by Play when nothing was ever loaded
	ErrNoTrack = errors.New("no track loaded")
)

// LoadError reports a track the backend could not open
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Session is the playback state machine
type Session struct {
	backend audio.Backend
	now     func() time.Time

	handle audio.Handle
	loaded bool

	status   types.Status
	track    *playlist.Track
	duration float64

	// position = accumulated + elapsed since startedAt * speed while playing
	accumulated float64
	startedAt   time.Time

	speed  float64
	volume float64

	pending []events.Event
}

// New creates a stopped session on backend
func New(backend audio.Backend) *Session {
	return &Session{
		backend: backend,
		now:     time.Now,
		status:  types.StatusStopped,
		speed:   DefaultSpeed,
		volume:  DefaultVolume,
	}
}

// Status returns the current state
func (s *Session) Status() types.Status {
	return s.status
}

// Track returns the loaded track, or nil
func (s *Session) Track() *playlist.Track {
	return s.track
}

// Duration returns the track duration in seconds, zero when unknown
func (s *Session) Duration() float64 {
	return s.duration
}

// Speed returns the playback speed factor
func (s *Session) Speed() float64 {
	return s.speed
}

// Volume returns the playback volume
func (s *Session) Volume() float64 {
	return s.volume
}

// Position returns the playback position in seconds
func (s *Session) Position() float64 {
	pos := s.accumulated
	if s.status == types.StatusPlaying {
		pos += s.now().Sub(s.startedAt).Seconds() * s.speed
	}
	if s.duration > 0 && pos > s.duration {
		pos = s.duration
	}
	return pos
}

// DrainEvents returns and clears the events queued since the last call
func (s *Session) DrainEvents() []events.Event {
	evs := s.pending
	s.pending = nil
	return evs
}

func (s *Session) emit(ev events.Event) {
	s.pending = append(s.pending, ev)
}

func (s *Session) setStatus(status types.Status) {
	if s.status == status {
		return
	}
	s.status = status
	s.emit(events.StatusChanged{Status: status, Position: s.Position()})
}

// release returns the backend handle, if any
func (s *Session) release() {
	if s.loaded {
		s.backend.Stop(s.handle)
		s.loaded = false
		s.handle = 0
	}
}

// Load releases the previous track and acquires t at resume seconds. The
// session is left stopped with the track loaded; call Play to start it.
// duration is zero when unknown.
func (s *Session) Load(t *playlist.Track, duration, resume float64) error {
	s.release()
	s.setStatus(types.StatusStopped)
	s.accumulated = 0

	s.track = t
	s.duration = duration
	if err := s.acquire(t.Path, clamp(resume, duration)); err != nil {
		s.track = nil
		s.duration = 0
		return err
	}
	return nil
}

// acquire loads path at offset and re-applies volume and speed
func (s *Session) acquire(path string, offset float64) error {
	h, err := s.backend.Load(path, offset)
	metrics.TrackLoadsTotal.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		log.Printf("[SESSION] Failed to load %s: %v", path, err)
		return &LoadError{Path: path, Err: err}
	}
	s.handle, s.loaded = h, true
	s.accumulated = offset
	s.startedAt = s.now()

	s.backend.SetVolume(h, s.volume)
	if s.speed != 1 {
		if err := s.backend.SetRate(h, s.speed); err != nil {
			s.rateRejected(err)
			s.speed = 1
			s.emit(events.SpeedChanged{Speed: s.speed})
		}
	}
	return nil
}

func (s *Session) rateRejected(err error) {
	reason := err.Error()
	if s.track != nil {
		reason = fmt.Sprintf("%s: %v", s.track.Filename, err)
	}
	s.emit(events.FeatureUnavailable{Feature: "speed", Reason: reason})
}

// Play starts or resumes playback. After Stop the track is reacquired from
// the beginning.
func (s *Session) Play() error {
	switch s.status {
	case types.StatusPlaying:
		return nil
	case types.StatusStopped:
		if s.track == nil {
			return ErrNoTrack
		}
		if !s.loaded {
			if err := s.acquire(s.track.Path, 0); err != nil {
				return err
			}
		}
	}

	s.backend.Play(s.handle)
	s.startedAt = s.now()
	s.setStatus(types.StatusPlaying)
	return nil
}

// Pause holds playback; a no-op unless playing
func (s *Session) Pause() {
	if s.status != types.StatusPlaying {
		return
	}
	s.accumulated = s.Position()
	s.backend.Pause(s.handle)
	s.setStatus(types.StatusPaused)
}

// Stop releases the backend handle and resets the position. The track
// stays selected so Play can restart it.
func (s *Session) Stop() {
	s.release()
	s.accumulated = 0
	s.setStatus(types.StatusStopped)
}

// Seek moves to target seconds by reloading the track at that offset.
// The play/pause state, volume and speed survive the reload.
func (s *Session) Seek(target float64) error {
	if !s.status.IsActive() {
		return ErrNotActive
	}

	target = clamp(target, s.duration)
	wasPlaying := s.status == types.StatusPlaying

	s.release()
	if err := s.acquire(s.track.Path, target); err != nil {
		s.accumulated = 0
		s.setStatus(types.StatusStopped)
		return err
	}

	if wasPlaying {
		s.backend.Play(s.handle)
		s.startedAt = s.now()
	}
	s.emit(events.PositionChanged{Position: target, Duration: s.duration})
	return nil
}

// Rewind jumps back RewindStep seconds, stopping at the start
func (s *Session) Rewind() error {
	return s.Seek(math.Max(0, s.Position()-RewindStep))
}

// SetSpeed clamps factor to [MinSpeed, MaxSpeed] and applies it without
// moving the position. If the backend cannot change rate the speed is kept
// and ErrFeatureUnavailable is returned.
func (s *Session) SetSpeed(factor float64) error {
	factor = math.Max(MinSpeed, math.Min(MaxSpeed, factor))
	if factor == s.speed {
		return nil
	}

	if s.loaded {
		if err := s.backend.SetRate(s.handle, factor); err != nil {
			if errors.Is(err, audio.ErrRateUnsupported) {
				s.rateRejected(err)
				return fmt.Errorf("%w: %w", ErrFeatureUnavailable, err)
			}
			return fmt.Errorf("failed to set rate: %w", err)
		}
		s.accumulated = s.Position()
		s.startedAt = s.now()
	}

	s.speed = factor
	s.emit(events.SpeedChanged{Speed: factor})
	return nil
}

// SetVolume clamps v to [0, 1] and applies it
func (s *Session) SetVolume(v float64) {
	v = math.Max(0, math.Min(1, v))
	s.volume = v
	if s.loaded {
		s.backend.SetVolume(s.handle, v)
	}
	s.emit(events.VolumeChanged{Volume: v})
}

// Tick recomputes the position and detects completion. It returns true
// when the track ended, after releasing it and stopping. A track the
// backend gave up on while decoding ends with a *LoadError.
//
// Tracks with unknown duration only end when the backend reports them
// finished; otherwise they play until skipped.
func (s *Session) Tick() (bool, error) {
	if s.status != types.StatusPlaying {
		return false, nil
	}

	pos := s.Position()
	metrics.PlaybackPositionSeconds.Set(pos)
	s.emit(events.PositionChanged{Position: pos, Duration: s.duration})

	ended := (s.duration > 0 && pos >= s.duration) || s.backend.IsFinished(s.handle)
	if !ended {
		return false, nil
	}

	var err error
	if derr := s.backend.Err(s.handle); derr != nil {
		log.Printf("[SESSION] Playback of %s failed: %v", s.track.Path, derr)
		err = &LoadError{Path: s.track.Path, Err: derr}
	}

	s.release()
	s.accumulated = 0
	s.setStatus(types.StatusStopped)
	return true, err
}

// clamp bounds pos to [0, duration], or only below when duration is unknown
func clamp(pos, duration float64) float64 {
	if pos < 0 {
		return 0
	}
	if duration > 0 && pos > duration {
		return duration
	}
	return pos
}
