package scanner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ErrUnknownDuration is returned when a prober cannot tell how long a file is
var ErrUnknownDuration = errors.New("duration unknown")

// Prober resolves the duration of an audio file in seconds
type Prober interface {
	ProbeDuration(path string) (float64, error)
}

// FFprobe probes durations with the ffprobe binary
type FFprobe struct {
	path    string
	timeout time.Duration
}

// NewFFprobe locates ffprobe in PATH
func NewFFprobe() (*FFprobe, error) {
	path, err := exec.LookPath("ffprobe")
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found in PATH: %w", err)
	}
	return &FFprobe{path: path, timeout: 5 * time.Second}, nil
}

// ProbeDuration implements Prober
func (p *FFprobe) ProbeDuration(path string) (float64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	output, err := exec.CommandContext(ctx, p.path, args...).Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	return parseProbeDuration(string(output))
}

// parseProbeDuration parses ffprobe's bare duration output
func parseProbeDuration(out string) (float64, error) {
	s := strings.TrimSpace(out)
	if s == "" || s == "N/A" {
		return 0, ErrUnknownDuration
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration %q: %w", s, err)
	}
	if secs <= 0 {
		return 0, ErrUnknownDuration
	}
	return secs, nil
}

// ChainProber asks each prober in turn and returns the first answer
type ChainProber []Prober

// ProbeDuration implements Prober
func (c ChainProber) ProbeDuration(path string) (float64, error) {
	var errs []error
	for _, p := range c {
		if p == nil {
			continue
		}
		secs, err := p.ProbeDuration(path)
		if err == nil {
			return secs, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return 0, ErrUnknownDuration
	}
	return 0, fmt.Errorf("%w: %v", ErrUnknownDuration, errors.Join(errs...))
}

// CachedProber memoizes another prober for the life of the process.
// Failures are cached too so an unreadable file is only probed once.
type CachedProber struct {
	inner Prober
	mu    sync.Mutex
	cache map[string]cachedDuration
}

type cachedDuration struct {
	secs float64
	err  error
}

// NewCachedProber wraps inner with a cache
func NewCachedProber(inner Prober) *CachedProber {
	return &CachedProber{inner: inner, cache: make(map[string]cachedDuration)}
}

// ProbeDuration implements Prober
func (c *CachedProber) ProbeDuration(path string) (float64, error) {
	c.mu.Lock()
	if hit, ok := c.cache[path]; ok {
		c.mu.Unlock()
		return hit.secs, hit.err
	}
	c.mu.Unlock()

	secs, err := c.inner.ProbeDuration(path)

	c.mu.Lock()
	c.cache[path] = cachedDuration{secs: secs, err: err}
	c.mu.Unlock()
	return secs, err
}

// Forget drops a cached result, e.g. after the file changed on disk
func (c *CachedProber) Forget(path string) {
	c.mu.Lock()
	delete(c.cache, path)
	c.mu.Unlock()
}
