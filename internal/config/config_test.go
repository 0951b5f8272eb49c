package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tunefolder/tunefolder/internal/types"
)

func noEnv(string) string { return "" }

func TestLoadWritesDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tunefolder")
	m := NewManager(dir)
	m.getenv = noEnv

	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if _, err := os.Stat(m.GetPath()); err != nil {
		t.Fatalf("Expected config file to be written: %v", err)
	}

	cfg := m.Get()
	if cfg.Audio.DefaultVolume != 0.7 {
		t.Errorf("Expected default volume 0.7, got %f", cfg.Audio.DefaultVolume)
	}
	if cfg.Audio.DefaultSpeed != 1.0 {
		t.Errorf("Expected default speed 1.0, got %f", cfg.Audio.DefaultSpeed)
	}
	if cfg.Audio.Backend != "auto" {
		t.Errorf("Expected backend auto, got %s", cfg.Audio.Backend)
	}
	if cfg.Audio.TickInterval().Milliseconds() != 200 {
		t.Errorf("Expected 200ms tick, got %v", cfg.Audio.TickInterval())
	}
	if !cfg.Behavior.WatchFolders {
		t.Error("Expected folder watching on by default")
	}
}

func TestLoadKeepsDefaultsForMissingFields(t *testing.T) {
	dir := t.TempDir()
	data := `{"playlistsDir": "/srv/music", "behavior": {"loopMode": "playlist", "shuffle": true}}`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	m := NewManager(dir)
	m.getenv = noEnv
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cfg := m.Get()
	if cfg.PlaylistsDir != "/srv/music" {
		t.Errorf("Expected /srv/music, got %s", cfg.PlaylistsDir)
	}
	if cfg.Behavior.LoopMode != types.LoopPlaylist || !cfg.Behavior.Shuffle {
		t.Errorf("Unexpected behavior %+v", cfg.Behavior)
	}
	if cfg.Audio.SampleRate != 44100 {
		t.Errorf("Expected default sample rate, got %d", cfg.Audio.SampleRate)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, FileName), []byte("{nope"), 0600)

	m := NewManager(dir)
	m.getenv = noEnv
	if err := m.Load(); err == nil {
		t.Error("Expected an error for invalid JSON")
	}
}

func TestEnvOverrides(t *testing.T) {
	env := map[string]string{
		EnvPlaylistsDir: "/data/playlists",
		EnvBackend:      "FFMPEG",
		EnvMetricsAddr:  ":9464",
	}

	m := NewManager(t.TempDir())
	m.getenv = func(k string) string { return env[k] }
	if err := m.Load(); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"playlists dir", m.Get().PlaylistsDir, "/data/playlists"},
		{"backend", m.Get().Audio.Backend, "ffmpeg"},
		{"metrics addr", m.Get().MetricsAddr, ":9464"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, tt.got)
			}
		})
	}

	// Overrides are not written back
	data, _ := os.ReadFile(m.GetPath())
	if string(data) == "" {
		t.Fatal("Expected config file")
	}
	reloaded := NewManager(m.Dir())
	reloaded.getenv = noEnv
	reloaded.Load()
	if reloaded.Get().PlaylistsDir == "/data/playlists" {
		t.Error("Expected env override to stay out of the file")
	}
}

func TestUpdateSaves(t *testing.T) {
	m := NewManager(t.TempDir())
	m.getenv = noEnv
	m.Load()

	cfg := m.Get()
	cfg.Audio.DefaultVolume = 0.3
	if err := m.Update(cfg); err != nil {
		t.Fatal(err)
	}

	reloaded := NewManager(m.Dir())
	reloaded.getenv = noEnv
	if err := reloaded.Load(); err != nil {
		t.Fatal(err)
	}
	if reloaded.Get().Audio.DefaultVolume != 0.3 {
		t.Errorf("Expected 0.3, got %f", reloaded.Get().Audio.DefaultVolume)
	}
}
