//go:build (linux && cgo) || windows || darwin

package audio

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
)

const ffmpegChannels = 2

// FFmpegBackend decodes with an ffmpeg subprocess into a single oto output.
// Only one handle is live at a time; loading a new track stops the old one.
// Playback rate cannot be changed.
type FFmpegBackend struct {
	decoder *FFmpegDecoder
	output  *OtoOutput

	mu     sync.Mutex
	next   Handle
	active *ffmpegTrack
}

type ffmpegTrack struct {
	handle Handle
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func newFFmpegBackend(opts Options) (Backend, error) {
	decoder, err := NewFFmpegDecoder()
	if err != nil {
		return nil, err
	}
	output, err := NewOtoOutput(opts.SampleRate, ffmpegChannels, opts.BufferSizeMs)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio output: %w", err)
	}
	output.Reset()
	log.Printf("[AUDIO] Using ffmpeg backend at %dHz", opts.SampleRate)
	return &FFmpegBackend{decoder: decoder, output: output}, nil
}

// Load starts decoding path at offset. Output stays paused until Play.
func (b *FFmpegBackend) Load(path string, offset float64) (Handle, error) {
	// ffmpeg reports open failures asynchronously, so check the file first
	if _, err := os.Stat(path); err != nil {
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopLocked()

	b.next++
	ctx, cancel := context.WithCancel(context.Background())
	t := &ffmpegTrack{handle: b.next, cancel: cancel, done: make(chan struct{})}
	b.active = t

	go func() {
		defer close(t.done)
		err := b.decoder.DecodeFrom(ctx, path, b.output, offset)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("[AUDIO] Decode error for %s: %v", path, err)
			t.err = err
		}
	}()
	return t.handle, nil
}

func (b *FFmpegBackend) live(h Handle) bool {
	return b.active != nil && b.active.handle == h
}

func (b *FFmpegBackend) Play(h Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.live(h) {
		b.output.Resume()
	}
}

func (b *FFmpegBackend) Pause(h Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.live(h) {
		b.output.Pause()
	}
}

func (b *FFmpegBackend) Stop(h Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.live(h) {
		b.stopLocked()
	}
}

// stopLocked cancels the decoder and waits for it to exit
func (b *FFmpegBackend) stopLocked() {
	t := b.active
	if t == nil {
		return
	}
	b.active = nil

	t.cancel()
	b.output.Drain()
	<-t.done
	b.output.Reset()
}

func (b *FFmpegBackend) SetVolume(h Handle, volume float64) {
	b.output.SetVolume(volume)
}

// SetRate accepts only normal speed
func (b *FFmpegBackend) SetRate(h Handle, rate float64) error {
	if rate == 1 {
		return nil
	}
	return ErrRateUnsupported
}

// IsFinished reports true once ffmpeg exited and the buffer ran dry
func (b *FFmpegBackend) IsFinished(h Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.live(h) {
		return false
	}
	select {
	case <-b.active.done:
		return b.output.Buffered() == 0
	default:
		return false
	}
}

// Err returns why ffmpeg exited, once it has
func (b *FFmpegBackend) Err(h Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.live(h) {
		return nil
	}
	select {
	case <-b.active.done:
		return b.active.err
	default:
		return nil
	}
}

func (b *FFmpegBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopLocked()
	return b.output.Close()
}
