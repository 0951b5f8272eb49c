//go:build (linux && cgo) || windows || darwin

package audio

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hajimehoshi/oto/v2"
)

const bytesPerSample = 2 // s16le

// oto allows one context per process
var (
	otoOnce    sync.Once
	otoContext *oto.Context
	otoErr     error
	otoRate    int
	otoChans   int
)

func sharedContext(sampleRate, channels int) (*oto.Context, error) {
	otoOnce.Do(func() {
		ctx, ready, err := oto.NewContext(sampleRate, channels, bytesPerSample)
		if err != nil {
			otoErr = fmt.Errorf("failed to create oto context: %w", err)
			return
		}
		<-ready
		otoContext, otoRate, otoChans = ctx, sampleRate, channels
	})
	if otoErr != nil {
		return nil, otoErr
	}
	if otoRate != sampleRate || otoChans != channels {
		return nil, fmt.Errorf("oto context already open at %dHz/%dch", otoRate, otoChans)
	}
	return otoContext, nil
}

// OtoOutput buffers PCM written by a decoder and feeds it to an oto player.
// Reads return silence while the buffer is empty so the stream stays open.
type OtoOutput struct {
	player     oto.Player
	sampleRate int
	channels   int
	maxBuffer  int

	mu     sync.Mutex
	cond   *sync.Cond
	buffer *bytes.Buffer
	volume float64
	paused bool
	closed bool
}

// NewOtoOutput creates an output with bufferMs of PCM headroom
func NewOtoOutput(sampleRate, channels, bufferMs int) (*OtoOutput, error) {
	ctx, err := sharedContext(sampleRate, channels)
	if err != nil {
		return nil, err
	}

	o := &OtoOutput{
		sampleRate: sampleRate,
		channels:   channels,
		maxBuffer:  sampleRate * channels * bytesPerSample * bufferMs / 1000,
		buffer:     &bytes.Buffer{},
		volume:     1.0,
	}
	o.cond = sync.NewCond(&o.mu)
	o.player = ctx.NewPlayer(o)
	return o, nil
}

// Read implements io.Reader for the oto player
func (o *OtoOutput) Read(p []byte) (n int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for o.paused && !o.closed {
		o.cond.Wait()
	}
	if o.closed {
		return 0, io.EOF
	}

	if o.buffer.Len() == 0 {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}

	n, err = o.buffer.Read(p)
	if err != nil {
		return n, err
	}
	if o.volume < 1.0 && n > 0 {
		o.applyVolume(p[:n])
	}
	return n, nil
}

// applyVolume scales 16-bit little-endian samples by the current volume
func (o *OtoOutput) applyVolume(data []byte) {
	vol := o.volume
	if vol >= 1.0 {
		return
	}
	for i := 0; i < len(data)-1; i += 2 {
		sample := int16(data[i]) | int16(data[i+1])<<8
		scaled := int16(float64(sample) * vol)
		data[i] = byte(scaled)
		data[i+1] = byte(scaled >> 8)
	}
}

// SetVolume sets the playback volume (0.0 - 1.0)
func (o *OtoOutput) SetVolume(v float64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	o.volume = v
}

// GetVolume returns the current volume
func (o *OtoOutput) GetVolume() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.volume
}

// Write appends PCM to the buffer, blocking while the buffer is full so
// decoding is paced by playback
func (o *OtoOutput) Write(data []byte) (int, error) {
	for {
		o.mu.Lock()
		if o.closed {
			o.mu.Unlock()
			return 0, io.ErrClosedPipe
		}
		if o.buffer.Len() < o.maxBuffer {
			break
		}
		o.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	defer o.mu.Unlock()

	n, err := o.buffer.Write(data)
	if err != nil {
		return n, err
	}
	if o.player != nil && !o.player.IsPlaying() && !o.paused {
		o.player.Play()
	}
	return n, nil
}

// Buffered returns the number of PCM bytes not yet played
func (o *OtoOutput) Buffered() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.buffer.Len()
}

// Pause holds playback; buffered audio is kept
func (o *OtoOutput) Pause() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.paused = true
	if o.player != nil && o.player.IsPlaying() {
		o.player.Pause()
	}
}

// Resume continues playback after Pause
func (o *OtoOutput) Resume() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.paused = false
	o.cond.Broadcast()
	if o.player != nil && !o.player.IsPlaying() {
		o.player.Play()
	}
}

// Reset stops playback and drops buffered audio. The output is left
// paused so nothing sounds until the next Resume.
func (o *OtoOutput) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.paused = true
	if o.player != nil {
		o.player.Pause()
	}
	o.buffer.Reset()
}

// Drain drops buffered audio without changing the paused state. A decoder
// blocked in Write is released.
func (o *OtoOutput) Drain() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.buffer.Reset()
}

// Close releases the player. The shared oto context stays open.
func (o *OtoOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.closed = true
	o.cond.Broadcast()
	if o.player != nil {
		return o.player.Close()
	}
	return nil
}

// SampleRate returns the sample rate
func (o *OtoOutput) SampleRate() int {
	return o.sampleRate
}

// Channels returns the number of channels
func (o *OtoOutput) Channels() int {
	return o.channels
}

var _ io.Reader = (*OtoOutput)(nil)
