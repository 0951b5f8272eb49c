//go:build !(linux && cgo) && !windows && !darwin

package audio

// Native audio output needs cgo on this platform

func newBeepBackend(opts Options) (Backend, error) {
	return nil, ErrAudioUnavailable
}

func newFFmpegBackend(opts Options) (Backend, error) {
	return nil, ErrAudioUnavailable
}
