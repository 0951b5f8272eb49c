package audio

import (
	"context"
	"fmt"
	"io"
	"os/exec"
)

// Output is a PCM sink fed by a decoder
type Output interface {
	io.Writer
	SampleRate() int
	Channels() int
}

// FFmpegDecoder pipes ffmpeg's raw PCM output into an Output
type FFmpegDecoder struct {
	ffmpegPath string
}

// NewFFmpegDecoder locates ffmpeg in PATH
func NewFFmpegDecoder() (*FFmpegDecoder, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}
	return &FFmpegDecoder{ffmpegPath: ffmpegPath}, nil
}

// decodeArgs builds the ffmpeg arguments for signed 16-bit little-endian
// PCM at the output's format, starting offset seconds into the file
func decodeArgs(path string, offset float64, sampleRate, channels int) []string {
	var args []string
	if offset > 0 {
		args = append(args, "-ss", fmt.Sprintf("%.3f", offset))
	}
	return append(args,
		"-v", "error",
		"-nostdin",
		"-i", path,
		"-vn",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ac", fmt.Sprintf("%d", channels),
		"-ar", fmt.Sprintf("%d", sampleRate),
		"-",
	)
}

// DecodeFrom decodes path starting at offset seconds and writes PCM to
// output until the file ends or ctx is cancelled
func (d *FFmpegDecoder) DecodeFrom(ctx context.Context, path string, output Output, offset float64) error {
	cmd := exec.CommandContext(ctx, d.ffmpegPath,
		decodeArgs(path, offset, output.SampleRate(), output.Channels())...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to get stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	// Kill and reap on every exit path
	waited := false
	defer func() {
		if !waited && cmd.Process != nil {
			cmd.Process.Kill()
			cmd.Wait()
		}
	}()

	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := stdout.Read(buf)
		if n > 0 {
			if _, writeErr := output.Write(buf[:n]); writeErr != nil {
				return fmt.Errorf("failed to write to output: %w", writeErr)
			}
		}
		if err != nil {
			break
		}
	}

	waited = true
	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg failed: %w", err)
	}
	return nil
}
