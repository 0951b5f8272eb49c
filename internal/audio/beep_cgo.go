//go:build (linux && cgo) || windows || darwin

package audio

import (
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
)

// resampleQuality is the beep resampler quality (1-64)
const resampleQuality = 4

// BeepBackend plays tracks through the beep speaker with the pure-Go
// decoders. Speed changes go through the resampler ratio.
type BeepBackend struct {
	sampleRate beep.SampleRate
	bufferSize time.Duration

	mu          sync.Mutex
	initialized bool
	next        Handle
	tracks      map[Handle]*beepTrack
}

type beepTrack struct {
	streamer  beep.StreamSeekCloser
	baseRatio float64
	resampler *beep.Resampler
	volume    *effects.Volume
	ctrl      *beep.Ctrl
	done      chan struct{}
}

func newBeepBackend(opts Options) (Backend, error) {
	log.Printf("[AUDIO] Using beep backend at %dHz", opts.SampleRate)
	return &BeepBackend{
		sampleRate: beep.SampleRate(opts.SampleRate),
		bufferSize: time.Duration(opts.BufferSizeMs) * time.Millisecond,
		tracks:     make(map[Handle]*beepTrack),
	}, nil
}

// initSpeakerLocked opens the output device on first use
func (b *BeepBackend) initSpeakerLocked() error {
	if b.initialized {
		return nil
	}
	if err := speaker.Init(b.sampleRate, b.sampleRate.N(b.bufferSize)); err != nil {
		return fmt.Errorf("failed to initialize speaker: %w", err)
	}
	b.initialized = true
	return nil
}

// Load decodes path and queues it on the speaker, paused
func (b *BeepBackend) Load(path string, offset float64) (Handle, error) {
	streamer, format, err := DecodeFile(path)
	if err != nil {
		return 0, err
	}

	if offset > 0 {
		pos := format.SampleRate.N(time.Duration(offset * float64(time.Second)))
		if n := streamer.Len(); n > 0 && pos > n {
			pos = n
		}
		if err := streamer.Seek(pos); err != nil {
			streamer.Close()
			return 0, fmt.Errorf("failed to seek: %w", err)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.initSpeakerLocked(); err != nil {
		streamer.Close()
		return 0, err
	}

	t := &beepTrack{
		streamer:  streamer,
		baseRatio: float64(format.SampleRate) / float64(b.sampleRate),
		done:      make(chan struct{}),
	}
	t.resampler = beep.ResampleRatio(resampleQuality, t.baseRatio, streamer)
	t.volume = &effects.Volume{Streamer: t.resampler, Base: 2}
	t.ctrl = &beep.Ctrl{Streamer: t.volume, Paused: true}

	b.next++
	h := b.next
	b.tracks[h] = t

	speaker.Play(beep.Seq(t.ctrl, beep.Callback(func() {
		close(t.done)
	})))
	return h, nil
}

func (b *BeepBackend) track(h Handle) *beepTrack {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tracks[h]
}

func (b *BeepBackend) setPaused(h Handle, paused bool) {
	if t := b.track(h); t != nil {
		speaker.Lock()
		t.ctrl.Paused = paused
		speaker.Unlock()
	}
}

func (b *BeepBackend) Play(h Handle)  { b.setPaused(h, false) }
func (b *BeepBackend) Pause(h Handle) { b.setPaused(h, true) }

// Stop detaches the track from the speaker and closes its decoder
func (b *BeepBackend) Stop(h Handle) {
	b.mu.Lock()
	t := b.tracks[h]
	delete(b.tracks, h)
	b.mu.Unlock()

	if t != nil {
		b.release(t)
	}
}

func (b *BeepBackend) release(t *beepTrack) {
	speaker.Lock()
	t.ctrl.Paused = true
	t.ctrl.Streamer = nil
	speaker.Unlock()
	t.streamer.Close()
}

// SetVolume maps a linear volume onto the base-2 volume effect
func (b *BeepBackend) SetVolume(h Handle, volume float64) {
	t := b.track(h)
	if t == nil {
		return
	}
	speaker.Lock()
	defer speaker.Unlock()
	if volume <= 0 {
		t.volume.Silent = true
		return
	}
	t.volume.Silent = false
	t.volume.Volume = math.Log2(math.Min(volume, 1))
}

func (b *BeepBackend) SetRate(h Handle, rate float64) error {
	t := b.track(h)
	if t == nil {
		return ErrUnknownHandle
	}
	speaker.Lock()
	t.resampler.SetRatio(t.baseRatio * rate)
	speaker.Unlock()
	return nil
}

func (b *BeepBackend) IsFinished(h Handle) bool {
	t := b.track(h)
	if t == nil {
		return false
	}
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Err returns the decoder error of a track that stopped early
func (b *BeepBackend) Err(h Handle) error {
	t := b.track(h)
	if t == nil {
		return nil
	}
	select {
	case <-t.done:
		return t.streamer.Err()
	default:
		return nil
	}
}

// Close stops every track and shuts the speaker down
func (b *BeepBackend) Close() error {
	b.mu.Lock()
	tracks := b.tracks
	b.tracks = make(map[Handle]*beepTrack)
	initialized := b.initialized
	b.initialized = false
	b.mu.Unlock()

	for _, t := range tracks {
		b.release(t)
	}
	if initialized {
		speaker.Clear()
		speaker.Close()
	}
	return nil
}
