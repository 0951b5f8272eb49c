package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"

	"github.com/tunefolder/tunefolder/internal/scanner"
)

// DecodableExtensions lists the extensions the pure-Go decoders can read
var DecodableExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".flac": true,
	".ogg":  true,
}

// fileStreamer closes the underlying file along with the decoder
type fileStreamer struct {
	beep.StreamSeekCloser
	f *os.File
}

func (s *fileStreamer) Close() error {
	err := s.StreamSeekCloser.Close()
	s.f.Close()
	return err
}

// DecodeFile opens path with the decoder matching its extension.
// The caller must Close the returned streamer.
func DecodeFile(path string) (beep.StreamSeekCloser, beep.Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !DecodableExtensions[ext] {
		return nil, beep.Format{}, fmt.Errorf("%s: %w", ext, ErrUnsupportedFormat)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, err
	}

	var (
		s      beep.StreamSeekCloser
		format beep.Format
	)
	switch ext {
	case ".mp3":
		s, format, err = mp3.Decode(f)
	case ".wav":
		s, format, err = wav.Decode(f)
	case ".flac":
		s, format, err = flac.Decode(f)
	case ".ogg":
		s, format, err = vorbis.Decode(f)
	}
	if err != nil {
		f.Close()
		return nil, beep.Format{}, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return &fileStreamer{StreamSeekCloser: s, f: f}, format, nil
}

// BeepProber reads track durations from the decoded stream length
type BeepProber struct{}

// ProbeDuration implements scanner.Prober
func (BeepProber) ProbeDuration(path string) (float64, error) {
	s, format, err := DecodeFile(path)
	if err != nil {
		return 0, err
	}
	defer s.Close()

	n := s.Len()
	if n <= 0 || format.SampleRate <= 0 {
		return 0, scanner.ErrUnknownDuration
	}
	return format.SampleRate.D(n).Seconds(), nil
}

var _ scanner.Prober = BeepProber{}
