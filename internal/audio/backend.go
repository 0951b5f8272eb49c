// Package audio provides the playback backends used by the session.
// Each backend decodes one track per handle and plays it on the default
// output device.
package audio

import (
	"errors"
	"fmt"
	"log"
	"strings"
)

var (
	// ErrRateUnsupported is returned by SetRate when the backend cannot
	// change playback speed
	ErrRateUnsupported = errors.New("playback rate not supported")

	// ErrAudioUnavailable is returned when the build has no audio support
	ErrAudioUnavailable = errors.New("audio playback not available in this build")

	// ErrUnsupportedFormat is returned for files a decoder cannot read
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrUnknownHandle is returned for handles that were never loaded or
	// were already stopped
	ErrUnknownHandle = errors.New("unknown audio handle")
)

// Handle identifies one loaded track inside a Backend
type Handle uint64

// Backend is the audio device collaborator. A handle starts paused after
// Load and is released by Stop.
type Backend interface {
	// Load opens path and positions it at offset seconds
	Load(path string, offset float64) (Handle, error)
	Play(h Handle)
	Pause(h Handle)

	// Stop halts playback and releases the handle
	Stop(h Handle)

	// SetVolume sets the linear volume in [0, 1]
	SetVolume(h Handle, volume float64)

	// SetRate changes the playback speed. Backends that cannot do this
	// return ErrRateUnsupported.
	SetRate(h Handle, rate float64) error

	// IsFinished reports whether the handle played to its end
	IsFinished(h Handle) bool

	// Err returns the decode error that ended h early. It is only
	// meaningful once IsFinished reports true.
	Err(h Handle) error

	Close() error
}

// Backend names accepted by New
const (
	BackendAuto   = "auto"
	BackendBeep   = "beep"
	BackendFFmpeg = "ffmpeg"
)

// Options configures a backend
type Options struct {
	Name         string
	SampleRate   int
	BufferSizeMs int
}

const (
	defaultSampleRate   = 44100
	defaultBufferSizeMs = 100
)

func (o Options) withDefaults() Options {
	if o.SampleRate <= 0 {
		o.SampleRate = defaultSampleRate
	}
	if o.BufferSizeMs <= 0 {
		o.BufferSizeMs = defaultBufferSizeMs
	}
	if o.Name == "" {
		o.Name = BackendAuto
	}
	return o
}

// New creates the backend named in opts. "auto" prefers ffmpeg when it is
// installed, since it reads every supported extension, and falls back to
// the pure-Go decoders.
func New(opts Options) (Backend, error) {
	opts = opts.withDefaults()

	switch strings.ToLower(opts.Name) {
	case BackendBeep:
		return newBeepBackend(opts)
	case BackendFFmpeg:
		return newFFmpegBackend(opts)
	case BackendAuto:
		b, err := newFFmpegBackend(opts)
		if err == nil {
			return b, nil
		}
		if errors.Is(err, ErrAudioUnavailable) {
			return nil, err
		}
		log.Printf("[AUDIO] ffmpeg backend unavailable (%v), using beep", err)
		return newBeepBackend(opts)
	default:
		return nil, fmt.Errorf("unknown audio backend %q", opts.Name)
	}
}
