// Package audiotest provides an in-memory audio.Backend for tests.
package audiotest

import (
	"fmt"
	"sync"

	"github.com/tunefolder/tunefolder/internal/audio"
)

// Track is the fake state of one handle
type Track struct {
	Path     string
	Offset   float64
	Playing  bool
	Volume   float64
	Rate     float64
	Finished bool

	// Err is reported by Backend.Err once Finished is set
	Err error
}

// Backend records calls and keeps handles in memory
type Backend struct {
	mu sync.Mutex

	// Fail makes Load return an error for the listed paths
	Fail map[string]error

	// RateUnsupported makes SetRate reject anything but 1
	RateUnsupported bool

	next   audio.Handle
	tracks map[audio.Handle]*Track
	loads  []string
}

// New creates an empty fake backend
func New() *Backend {
	return &Backend{
		Fail:   make(map[string]error),
		tracks: make(map[audio.Handle]*Track),
	}
}

func (b *Backend) Load(path string, offset float64) (audio.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.loads = append(b.loads, path)
	if err, ok := b.Fail[path]; ok {
		if err == nil {
			err = fmt.Errorf("cannot open %s", path)
		}
		return 0, err
	}
	b.next++
	b.tracks[b.next] = &Track{Path: path, Offset: offset, Volume: 1, Rate: 1}
	return b.next, nil
}

func (b *Backend) with(h audio.Handle, fn func(t *Track)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok := b.tracks[h]; ok {
		fn(t)
	}
}

func (b *Backend) Play(h audio.Handle)  { b.with(h, func(t *Track) { t.Playing = true }) }
func (b *Backend) Pause(h audio.Handle) { b.with(h, func(t *Track) { t.Playing = false }) }

func (b *Backend) Stop(h audio.Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.tracks, h)
}

func (b *Backend) SetVolume(h audio.Handle, v float64) {
	b.with(h, func(t *Track) { t.Volume = v })
}

func (b *Backend) SetRate(h audio.Handle, r float64) error {
	if b.RateUnsupported && r != 1 {
		return audio.ErrRateUnsupported
	}
	b.with(h, func(t *Track) { t.Rate = r })
	return nil
}

func (b *Backend) IsFinished(h audio.Handle) bool {
	finished := false
	b.with(h, func(t *Track) { finished = t.Finished })
	return finished
}

func (b *Backend) Err(h audio.Handle) error {
	var err error
	b.with(h, func(t *Track) {
		if t.Finished {
			err = t.Err
		}
	})
	return err
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tracks = make(map[audio.Handle]*Track)
	return nil
}

// Live returns the number of handles not yet stopped
func (b *Backend) Live() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.tracks)
}

// Current returns a copy of the single live track, or nil
func (b *Backend) Current() *Track {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range b.tracks {
		c := *t
		return &c
	}
	return nil
}

// Finish marks every live handle as played to the end
func (b *Backend) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range b.tracks {
		t.Finished = true
	}
}

// FailPlaying makes every live handle stop early with err, the way a file
// that opens but cannot be decoded does
func (b *Backend) FailPlaying(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range b.tracks {
		t.Finished = true
		t.Err = err
	}
}

// Loads returns the paths passed to Load, in order
func (b *Backend) Loads() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.loads...)
}

var _ audio.Backend = (*Backend)(nil)
