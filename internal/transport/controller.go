// Package transport owns the playlist catalog and the playback session and
// decides what plays next.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/tunefolder/tunefolder/internal/audio"
	"github.com/tunefolder/tunefolder/internal/descriptor"
	"github.com/tunefolder/tunefolder/internal/events"
	"github.com/tunefolder/tunefolder/internal/logx"
	"github.com/tunefolder/tunefolder/internal/playlist"
	"github.com/tunefolder/tunefolder/internal/scanner"
	"github.com/tunefolder/tunefolder/internal/session"
	"github.com/tunefolder/tunefolder/internal/state"
	"github.com/tunefolder/tunefolder/internal/types"
)

const (
	DefaultTickInterval = 200 * time.Millisecond
	MinTickInterval     = 100 * time.Millisecond
	MaxTickInterval     = 250 * time.Millisecond

	// DefaultMaxLoadAttempts bounds how many tracks are tried in a row when
	// files fail to open
	DefaultMaxLoadAttempts = 5
)

var (
	ErrNoPlaylist      = errors.New("no playlist selected")
	ErrNoTracks        = errors.New("playlist has no tracks")
	ErrIndexOutOfRange = errors.New("track index out of range")
	ErrUnknownPlaylist = errors.New("unknown playlist")

	// ErrSuperseded is returned by a scan whose result was discarded
	// because a newer one started
	ErrSuperseded = errors.New("scan superseded")
)

// Options configures a Controller
type Options struct {
	// Root is the directory whose subfolders are playlists
	Root string

	TickInterval    time.Duration
	MaxLoadAttempts int

	Loop    types.LoopMode
	Shuffle bool
	Volume  float64
	Speed   float64

	// Rand drives the shuffle bag; seeded from the clock when nil
	Rand *rand.Rand
}

// Status is a snapshot of the transport
type Status struct {
	State      types.Status    `json:"state"`
	PlaylistID string          `json:"playlistId,omitempty"`
	Index      int             `json:"index"`
	TrackCount int             `json:"trackCount"`
	Track      *playlist.Track `json:"track,omitempty"`
	Position   float64         `json:"position"`
	Duration   float64         `json:"duration"`
	Speed      float64         `json:"speed"`
	Volume     float64         `json:"volume"`
	Loop       types.LoopMode  `json:"loop"`
	Shuffle    bool            `json:"shuffle"`
}

// TrackInfo describes one track with the tags read from its file
type TrackInfo struct {
	Track *playlist.Track `json:"track"`
	Tags  *scanner.Tags   `json:"tags,omitempty"`
	Size  int64           `json:"size"`
}

// Controller serializes every playback and catalog mutation behind one
// lock. Events raised while the lock is held are published after it is
// released, so listeners may call back into the controller.
type Controller struct {
	syncer  *playlist.Synchronizer
	prober  scanner.Prober
	backend audio.Backend
	bus     *events.Bus

	root        string
	tick        time.Duration
	maxAttempts int

	mu      sync.Mutex
	session *session.Session
	catalog []*playlist.Playlist
	active  *playlist.Playlist
	current int
	loop    types.LoopMode
	shuffle bool
	bag     *ShuffleBag
	version uint64
	pending []events.Event

	// failures counts tracks in a row that broke while playing
	failures int

	// scanHook runs between a scan and applying its result
	scanHook func()
}

// New creates a controller. The controller owns the session built on backend.
func New(syncer *playlist.Synchronizer, backend audio.Backend, prober scanner.Prober, bus *events.Bus, opts Options) *Controller {
	tick := opts.TickInterval
	switch {
	case tick <= 0:
		tick = DefaultTickInterval
	case tick < MinTickInterval:
		tick = MinTickInterval
	case tick > MaxTickInterval:
		tick = MaxTickInterval
	}

	attempts := opts.MaxLoadAttempts
	if attempts <= 0 {
		attempts = DefaultMaxLoadAttempts
	}

	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	s := session.New(backend)
	if opts.Volume > 0 {
		s.SetVolume(opts.Volume)
	}
	if opts.Speed > 0 {
		s.SetSpeed(opts.Speed)
	}
	s.DrainEvents()

	return &Controller{
		syncer:      syncer,
		prober:      prober,
		backend:     backend,
		bus:         bus,
		root:        opts.Root,
		tick:        tick,
		maxAttempts: attempts,
		session:     s,
		current:     -1,
		loop:        opts.Loop,
		shuffle:     opts.Shuffle,
		bag:         NewShuffleBag(0, rng),
	}
}

// Root returns the playlists directory
func (c *Controller) Root() string {
	return c.root
}

// Bus returns the event bus the controller publishes on
func (c *Controller) Bus() *events.Bus {
	return c.bus
}

// do runs fn under the lock and publishes what it emitted afterwards
func (c *Controller) do(fn func() error) error {
	c.mu.Lock()
	err := fn()
	c.pending = append(c.pending, c.session.DrainEvents()...)
	evs := c.pending
	c.pending = nil
	c.mu.Unlock()

	c.bus.Publish(evs...)
	return err
}

// emit queues ev behind anything the session raised so far
func (c *Controller) emit(ev events.Event) {
	c.pending = append(c.pending, c.session.DrainEvents()...)
	c.pending = append(c.pending, ev)
}

// Run ticks the session until ctx is cancelled
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Tick()
		}
	}
}

// Tick advances the position and handles track completion
func (c *Controller) Tick() {
	err := c.do(func() error {
		ended, err := c.session.Tick()
		if err != nil {
			return c.playbackFailedLocked(err)
		}
		if !ended {
			return nil
		}
		return c.trackEndedLocked()
	})
	if err != nil {
		log.Printf("[TRANSPORT] Auto-advance failed: %v", err)
	}
}

// Watch rescans the catalog whenever audio files below the root change
func (c *Controller) Watch(ctx context.Context) error {
	w, err := playlist.NewWatcher(c.root, playlist.DefaultDebounce, c.RefreshAsync)
	if err != nil {
		return err
	}
	log.Printf("[TRANSPORT] Watching %s for changes", c.root)
	return w.Run(ctx)
}

// Close stops playback and closes the backend
func (c *Controller) Close() error {
	c.do(func() error {
		c.session.Stop()
		return nil
	})
	return c.backend.Close()
}

// Refresh rescans every playlist folder. The scan runs without the lock;
// its result is dropped with ErrSuperseded when another scan started
// meanwhile.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.version++
	v := c.version
	c.mu.Unlock()

	results, err := c.syncer.SyncAll(c.root)
	if err != nil {
		return err
	}
	if c.scanHook != nil {
		c.scanHook()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return c.do(func() error {
		if v != c.version {
			logx.Debugf("[TRANSPORT] Discarding catalog scan %d, latest is %d", v, c.version)
			return ErrSuperseded
		}

		catalog := make([]*playlist.Playlist, 0, len(results))
		for _, r := range results {
			c.noteSyncLocked(r, r.Err)
			catalog = append(catalog, r.Playlist)
		}
		c.catalog = catalog
		c.remapLocked()

		c.emit(events.PlaylistsRefreshed{Playlists: clonePlaylists(c.catalog)})
		log.Printf("[TRANSPORT] Catalog refreshed: %d playlist(s)", len(c.catalog))
		return nil
	})
}

// RefreshAsync starts a Refresh in the background
func (c *Controller) RefreshAsync() {
	go func() {
		if err := c.Refresh(context.Background()); err != nil && !errors.Is(err, ErrSuperseded) {
			log.Printf("[TRANSPORT] Refresh failed: %v", err)
		}
	}()
}

// SelectPlaylist syncs the playlist and makes it active. Switching to a
// different playlist stops playback.
func (c *Controller) SelectPlaylist(id string) error {
	c.mu.Lock()
	folder, err := c.folderLocked(id)
	c.version++
	v := c.version
	c.mu.Unlock()
	if err != nil {
		return err
	}

	res, syncErr := c.syncer.Sync(folder)
	if res == nil {
		return syncErr
	}
	if c.scanHook != nil {
		c.scanHook()
	}

	return c.do(func() error {
		c.noteSyncLocked(res, syncErr)
		if v != c.version {
			return ErrSuperseded
		}
		if res.Missing {
			c.dropLocked(id)
			return fmt.Errorf("%s: %w", id, ErrUnknownPlaylist)
		}

		c.replaceLocked(res.Playlist)
		if c.active == nil || c.active.ID != id {
			c.session.Stop()
			c.active = res.Playlist
			c.current = -1
			c.bag.Reset(c.active.Len(), -1)
			log.Printf("[TRANSPORT] Selected playlist %s (%d tracks)", id, c.active.Len())
		} else {
			c.remapLocked()
		}
		c.emit(events.PlaylistChanged{Playlist: res.Playlist.Clone()})
		return nil
	})
}

// noteSyncLocked turns recoverable sync outcomes into events
func (c *Controller) noteSyncLocked(res *playlist.Result, err error) {
	if res != nil && res.BackupPath != "" {
		reason := ""
		if res.Corruption != nil {
			reason = res.Corruption.Error()
		}
		c.emit(events.DescriptorCorrupted{
			Folder:     res.Playlist.Folder,
			BackupPath: res.BackupPath,
			Reason:     reason,
		})
	}
	var perr *descriptor.PersistenceError
	if errors.As(err, &perr) {
		c.emit(events.PersistenceFailed{Folder: perr.Folder, Error: perr.Err.Error()})
	} else if err != nil {
		log.Printf("[TRANSPORT] Sync error: %v", err)
	}
}

// remapLocked points the active playlist at its latest catalog entry and
// finds the current track again by filename
func (c *Controller) remapLocked() {
	if c.active == nil {
		return
	}

	next := c.findLocked(c.active.ID)
	if next == nil {
		log.Printf("[TRANSPORT] Active playlist %s is gone", c.active.ID)
		c.session.Stop()
		c.active = nil
		c.current = -1
		return
	}

	filename := ""
	if c.current >= 0 && c.current < c.active.Len() {
		filename = c.active.Tracks[c.current].Filename
	}
	prev := c.active
	c.active = next

	if filename != "" {
		c.current = next.IndexOf(filename)
		if c.current < 0 {
			log.Printf("[TRANSPORT] Current track %s is gone", filename)
			c.session.Stop()
		}
	}
	c.remapBagLocked(prev, next)
}

// remapBagLocked keeps the shuffle pass pointing at the same files after
// the track list changed
func (c *Controller) remapBagLocked(prev, next *playlist.Playlist) {
	if c.bag.Size() != prev.Len() {
		c.bag.Reset(next.Len(), c.current)
		return
	}

	index := make(map[string]int, next.Len())
	for i, t := range next.Tracks {
		index[t.Filename] = i
	}
	moved := make([]int, prev.Len())
	same := prev.Len() == next.Len()
	for i, t := range prev.Tracks {
		j, ok := index[t.Filename]
		if !ok {
			j = -1
		}
		moved[i] = j
		same = same && j == i
	}
	if !same {
		c.bag.Remap(moved, next.Len())
	}
}

func (c *Controller) findLocked(id string) *playlist.Playlist {
	p, _ := lo.Find(c.catalog, func(p *playlist.Playlist) bool { return p.ID == id })
	return p
}

// folderLocked resolves id to its folder. Names not yet in the catalog are
// looked up directly below the root.
func (c *Controller) folderLocked(id string) (string, error) {
	if p := c.findLocked(id); p != nil {
		return p.Folder, nil
	}
	if id == "" || id != filepath.Base(id) || id[0] == '.' {
		return "", fmt.Errorf("%q: %w", id, ErrUnknownPlaylist)
	}
	return filepath.Join(c.root, id), nil
}

// replaceLocked swaps p into the catalog, keeping it sorted by ID
func (c *Controller) replaceLocked(p *playlist.Playlist) {
	catalog := lo.Reject(c.catalog, func(old *playlist.Playlist, _ int) bool { return old.ID == p.ID })
	catalog = append(catalog, p)
	sort.Slice(catalog, func(i, j int) bool { return catalog[i].ID < catalog[j].ID })
	c.catalog = catalog
}

func (c *Controller) dropLocked(id string) {
	c.catalog = lo.Reject(c.catalog, func(p *playlist.Playlist, _ int) bool { return p.ID == id })
	c.remapLocked()
}

// Playlists returns a copy of the catalog
func (c *Controller) Playlists() []*playlist.Playlist {
	c.mu.Lock()
	defer c.mu.Unlock()
	return clonePlaylists(c.catalog)
}

// Playlist returns a copy of one catalog entry
func (c *Controller) Playlist(id string) (*playlist.Playlist, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.findLocked(id)
	if p == nil {
		return nil, fmt.Errorf("%s: %w", id, ErrUnknownPlaylist)
	}
	return p.Clone(), nil
}

func clonePlaylists(ps []*playlist.Playlist) []*playlist.Playlist {
	return lo.Map(ps, func(p *playlist.Playlist, _ int) *playlist.Playlist { return p.Clone() })
}

// Status returns a snapshot of the transport
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		State:    c.session.Status(),
		Index:    c.current,
		Position: c.session.Position(),
		Duration: c.session.Duration(),
		Speed:    c.session.Speed(),
		Volume:   c.session.Volume(),
		Loop:     c.loop,
		Shuffle:  c.shuffle,
	}
	if c.active != nil {
		st.PlaylistID = c.active.ID
		st.TrackCount = c.active.Len()
		if c.current >= 0 && c.current < c.active.Len() {
			t := *c.active.Tracks[c.current]
			st.Track = &t
		}
	}
	return st
}

// Snapshot returns the state to persist for the next start, or nil when
// no playlist is active
func (c *Controller) Snapshot() *state.State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return nil
	}
	st := &state.State{
		PlaylistID: c.active.ID,
		TrackIndex: lo.Max([]int{c.current, 0}),
		Position:   c.session.Position(),
		Volume:     c.session.Volume(),
		Speed:      c.session.Speed(),
		Loop:       c.loop,
		Shuffle:    c.shuffle,
	}
	if c.current >= 0 && c.current < c.active.Len() {
		st.TrackFilename = c.active.Tracks[c.current].Filename
	}
	return st
}

// Resume restores a saved state. The track is looked up by filename first
// and by index when the file was renamed. With play false the track is
// left loaded at the saved position.
func (c *Controller) Resume(st *state.State, play bool) error {
	if st == nil || st.PlaylistID == "" {
		return nil
	}

	c.do(func() error {
		c.loop = st.Loop
		c.shuffle = st.Shuffle
		if st.Volume > 0 {
			c.session.SetVolume(st.Volume)
		}
		if st.Speed > 0 {
			c.session.SetSpeed(st.Speed)
		}
		return nil
	})

	if err := c.SelectPlaylist(st.PlaylistID); err != nil {
		return err
	}

	return c.do(func() error {
		n := c.active.Len()
		if n == 0 {
			return nil
		}
		i := c.active.IndexOf(st.TrackFilename)
		position := st.Position
		if i < 0 {
			i = lo.Clamp(st.TrackIndex, 0, n-1)
			position = 0
		}
		if c.shuffle {
			c.bag.Reset(n, i)
		}
		log.Printf("[TRANSPORT] Resuming %s track %d at %.1fs", c.active.ID, i, position)
		if !play {
			return c.loadLocked(i, position, false)
		}
		return c.startLocked(i, position)
	})
}

// PlayTrack plays the track at index i of the active playlist
func (c *Controller) PlayTrack(i int) error {
	return c.do(func() error {
		if c.active == nil {
			return ErrNoPlaylist
		}
		if i < 0 || i >= c.active.Len() {
			return fmt.Errorf("%d of %d: %w", i, c.active.Len(), ErrIndexOutOfRange)
		}
		if c.shuffle {
			c.bag.Take(i)
		}
		c.failures = 0
		return c.startLocked(i, 0)
	})
}

// Next skips forward. Loop TRACK replays the current track; shuffle deals
// from the bag; otherwise the following track plays, wrapping under loop
// PLAYLIST and stopping at the end otherwise.
func (c *Controller) Next() error {
	return c.do(func() error {
		if err := c.checkTracksLocked(); err != nil {
			return err
		}
		c.failures = 0
		if c.loop == types.LoopTrack && c.current >= 0 {
			return c.startLocked(c.current, 0)
		}
		i, ok := c.successorLocked(false)
		if !ok {
			c.endLocked()
			return nil
		}
		return c.startLocked(i, 0)
	})
}

// Previous goes back one track, stopping at the first. Loop TRACK replays
// the current track.
func (c *Controller) Previous() error {
	return c.do(func() error {
		if err := c.checkTracksLocked(); err != nil {
			return err
		}
		c.failures = 0
		if c.loop == types.LoopTrack && c.current >= 0 {
			return c.startLocked(c.current, 0)
		}
		return c.startLocked(lo.Max([]int{c.current - 1, 0}), 0)
	})
}

func (c *Controller) checkTracksLocked() error {
	if c.active == nil {
		return ErrNoPlaylist
	}
	if c.active.Len() == 0 {
		return ErrNoTracks
	}
	return nil
}

// trackEndedLocked decides what follows a track that played to the end
func (c *Controller) trackEndedLocked() error {
	ended := c.current
	if c.active == nil || ended < 0 || ended >= c.active.Len() {
		return nil
	}
	c.failures = 0
	c.emit(events.TrackEnded{
		PlaylistID: c.active.ID,
		Index:      ended,
		Filename:   c.active.Tracks[ended].Filename,
	})

	if c.loop == types.LoopTrack {
		return c.startLocked(ended, 0)
	}
	i, ok := c.successorLocked(true)
	if !ok {
		c.endLocked()
		return nil
	}
	return c.startLocked(i, 0)
}

// successorLocked returns the track after the current one. With auto set
// the end of the playlist under loop NONE yields ok == false; a manual
// skip in shuffle mode always deals a new pass.
func (c *Controller) successorLocked(auto bool) (int, bool) {
	n := c.active.Len()
	if n == 0 {
		return -1, false
	}
	if c.shuffle {
		if auto && c.loop == types.LoopNone && c.bag.Remaining() == 0 {
			return -1, false
		}
		if c.bag.Size() != n {
			c.bag.Reset(n, c.current)
		}
		return c.bag.Next(c.current), true
	}

	if i := c.current + 1; i < n {
		return i, true
	}
	if c.loop == types.LoopPlaylist {
		return 0, true
	}
	return -1, false
}

func (c *Controller) endLocked() {
	c.session.Stop()
	c.emit(events.EndOfPlaylist{PlaylistID: c.active.ID})
	log.Printf("[TRANSPORT] End of playlist %s", c.active.ID)
}

// startLocked loads and plays track i. Tracks that fail to load are
// reported and skipped, up to maxAttempts in a row.
func (c *Controller) startLocked(i int, resume float64) error {
	attempts := lo.Min([]int{c.maxAttempts, c.active.Len()})

	var firstErr error
	for k := 0; k < attempts; k++ {
		err := c.loadLocked(i, resume, true)
		if err == nil {
			return nil
		}

		var lerr *session.LoadError
		if !errors.As(err, &lerr) {
			return err
		}
		if firstErr == nil {
			firstErr = err
		}
		c.emit(events.LoadFailed{
			PlaylistID: c.active.ID,
			Index:      i,
			Path:       lerr.Path,
			Error:      lerr.Err.Error(),
		})

		c.current = i
		next, ok := c.successorLocked(true)
		if !ok {
			c.endLocked()
			return firstErr
		}
		i, resume = next, 0
	}

	log.Printf("[TRANSPORT] Giving up after %d failed loads", attempts)
	c.session.Stop()
	return firstErr
}

// loadLocked loads track i at resume seconds, probing its duration on
// first use, and starts it when play is set
func (c *Controller) loadLocked(i int, resume float64, play bool) error {
	t := c.active.Tracks[i]
	c.probeLocked(t)

	if err := c.session.Load(t, t.Duration, resume); err != nil {
		return err
	}
	c.current = i
	if play {
		if err := c.session.Play(); err != nil {
			return err
		}
	}

	c.emit(events.TrackStarted{
		PlaylistID:  c.active.ID,
		Index:       i,
		Filename:    t.Filename,
		Path:        t.Path,
		DisplayName: t.DisplayName,
		Duration:    t.Duration,
		Position:    resume,
	})
	logx.Debugf("[TRANSPORT] Loaded %s (%d/%d)", t.Filename, i+1, c.active.Len())
	return nil
}

func (c *Controller) probeLocked(t *playlist.Track) {
	if t.Duration > 0 || c.prober == nil {
		return
	}
	d, err := c.prober.ProbeDuration(t.Path)
	if err != nil {
		if !errors.Is(err, scanner.ErrUnknownDuration) {
			logx.Debugf("[TRANSPORT] Probe failed for %s: %v", t.Path, err)
		}
		return
	}
	t.Duration = d
}

// recoverLocked reports a load failure raised by a session call and skips
// to the next track
func (c *Controller) recoverLocked(err error) error {
	var lerr *session.LoadError
	if !errors.As(err, &lerr) || c.active == nil {
		return err
	}
	c.emit(events.LoadFailed{
		PlaylistID: c.active.ID,
		Index:      c.current,
		Path:       lerr.Path,
		Error:      lerr.Err.Error(),
	})
	i, ok := c.successorLocked(true)
	if !ok {
		c.endLocked()
		return err
	}
	c.startLocked(i, 0)
	return err
}

// playbackFailedLocked handles a track that loaded but could not be
// decoded. Like a load error it skips ahead regardless of loop TRACK, and
// it gives up after maxAttempts broken tracks in a row.
func (c *Controller) playbackFailedLocked(err error) error {
	if c.active == nil {
		return err
	}
	c.failures++
	if c.failures >= lo.Min([]int{c.maxAttempts, c.active.Len()}) {
		var lerr *session.LoadError
		if errors.As(err, &lerr) {
			c.emit(events.LoadFailed{
				PlaylistID: c.active.ID,
				Index:      c.current,
				Path:       lerr.Path,
				Error:      lerr.Err.Error(),
			})
		}
		log.Printf("[TRANSPORT] Giving up after %d broken tracks", c.failures)
		c.failures = 0
		c.session.Stop()
		return err
	}
	return c.recoverLocked(err)
}

// Play starts the current track, or the first one when nothing is loaded
func (c *Controller) Play() error {
	return c.do(func() error {
		if err := c.checkTracksLocked(); err != nil {
			return err
		}
		if c.current < 0 || c.session.Track() == nil {
			return c.startLocked(lo.Max([]int{c.current, 0}), 0)
		}
		return c.recoverLocked(c.session.Play())
	})
}

// Pause pauses playback
func (c *Controller) Pause() error {
	return c.do(func() error {
		c.session.Pause()
		return nil
	})
}

// TogglePause pauses while playing and plays otherwise
func (c *Controller) TogglePause() error {
	c.mu.Lock()
	playing := c.session.Status() == types.StatusPlaying
	c.mu.Unlock()

	if playing {
		return c.Pause()
	}
	return c.Play()
}

// Stop stops playback and rewinds the current track
func (c *Controller) Stop() error {
	return c.do(func() error {
		c.session.Stop()
		return nil
	})
}

// Seek moves within the current track
func (c *Controller) Seek(seconds float64) error {
	return c.do(func() error {
		return c.recoverLocked(c.session.Seek(seconds))
	})
}

// Rewind jumps back a few seconds
func (c *Controller) Rewind() error {
	return c.do(func() error {
		return c.recoverLocked(c.session.Rewind())
	})
}

// SetSpeed sets the playback speed
func (c *Controller) SetSpeed(factor float64) error {
	return c.do(func() error {
		return c.session.SetSpeed(factor)
	})
}

// SetVolume sets the playback volume
func (c *Controller) SetVolume(v float64) error {
	return c.do(func() error {
		c.session.SetVolume(v)
		return nil
	})
}

// SetLoopMode sets the loop mode
func (c *Controller) SetLoopMode(mode types.LoopMode) error {
	return c.do(func() error {
		if c.loop != mode {
			c.loop = mode
			c.emit(events.LoopModeChanged{Mode: mode})
		}
		return nil
	})
}

// SetShuffle enables or disables shuffle. Enabling starts a fresh pass
// that excludes the current track.
func (c *Controller) SetShuffle(enabled bool) error {
	return c.do(func() error {
		if c.shuffle == enabled {
			return nil
		}
		c.shuffle = enabled
		if enabled && c.active != nil {
			c.bag.Reset(c.active.Len(), c.current)
		}
		c.emit(events.ShuffleChanged{Enabled: enabled})
		return nil
	})
}

// UpdatePlaylistInfo changes a playlist's display name and description
func (c *Controller) UpdatePlaylistInfo(id, displayName, description string) (*playlist.Playlist, error) {
	return c.edit(id, func(folder string) (*playlist.Playlist, error) {
		return c.syncer.UpdateInfo(folder, displayName, description)
	})
}

// SetTrackDisplayName renames a track in its playlist
func (c *Controller) SetTrackDisplayName(id, filename, name string) (*playlist.Playlist, error) {
	return c.edit(id, func(folder string) (*playlist.Playlist, error) {
		return c.syncer.SetTrackDisplayName(folder, filename, name)
	})
}

// MoveTrack reorders a playlist. The current track keeps playing.
func (c *Controller) MoveTrack(id string, from, to int) (*playlist.Playlist, error) {
	return c.edit(id, func(folder string) (*playlist.Playlist, error) {
		return c.syncer.MoveTrack(folder, from, to)
	})
}

// edit applies a descriptor edit off the lock and swaps the result in
func (c *Controller) edit(id string, fn func(folder string) (*playlist.Playlist, error)) (*playlist.Playlist, error) {
	c.mu.Lock()
	p := c.findLocked(id)
	c.mu.Unlock()
	if p == nil {
		return nil, fmt.Errorf("%s: %w", id, ErrUnknownPlaylist)
	}

	updated, err := fn(p.Folder)
	if err != nil {
		c.do(func() error {
			c.noteSyncLocked(nil, err)
			return nil
		})
		return nil, err
	}

	c.do(func() error {
		// An in-flight scan predates the edit
		c.version++
		c.replaceLocked(updated)
		if c.active != nil && c.active.ID == id {
			c.remapLocked()
		}
		c.emit(events.PlaylistChanged{Playlist: updated.Clone()})
		return nil
	})
	return updated.Clone(), nil
}

// CreatePlaylist makes a new empty playlist folder below the root
func (c *Controller) CreatePlaylist(name string) (*playlist.Playlist, error) {
	p, err := c.syncer.Create(c.root, name)
	if err != nil {
		return nil, err
	}
	c.do(func() error {
		c.replaceLocked(p)
		c.emit(events.PlaylistChanged{Playlist: p.Clone()})
		return nil
	})
	return p.Clone(), nil
}

// TrackInfo returns a track with its file tags and size
func (c *Controller) TrackInfo(id string, index int) (*TrackInfo, error) {
	p, err := c.Playlist(id)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= p.Len() {
		return nil, fmt.Errorf("%d of %d: %w", index, p.Len(), ErrIndexOutOfRange)
	}
	t := p.Tracks[index]

	if t.Duration == 0 && c.prober != nil {
		if d, err := c.prober.ProbeDuration(t.Path); err == nil {
			t.Duration = d
		}
	}

	info := &TrackInfo{Track: t}
	if st, err := os.Stat(t.Path); err == nil {
		info.Size = st.Size()
	}
	if tags, err := scanner.ReadTags(t.Path); err == nil {
		info.Tags = tags
	} else {
		logx.Debugf("[TRANSPORT] No tags for %s: %v", t.Path, err)
	}
	return info, nil
}

// Stats summarizes a playlist's files
func (c *Controller) Stats(id string) (playlist.Stats, error) {
	p, err := c.Playlist(id)
	if err != nil {
		return playlist.Stats{}, err
	}
	return playlist.ComputeStats(p), nil
}

// Export writes a playlist in the given format
func (c *Controller) Export(id string, w io.Writer, format playlist.Format) error {
	p, err := c.Playlist(id)
	if err != nil {
		return err
	}
	return playlist.Export(w, p, format)
}
