// Package config handles daemon configuration file management.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tunefolder/tunefolder/internal/atomicfile"
	"github.com/tunefolder/tunefolder/internal/types"
)

// FileName is the configuration file inside the config directory
const FileName = "config.json"

// Environment overrides applied after the file is loaded
const (
	EnvPlaylistsDir = "TUNEFOLDER_PLAYLISTS_DIR"
	EnvBackend      = "TUNEFOLDER_BACKEND"
	EnvMetricsAddr  = "TUNEFOLDER_METRICS_ADDR"
)

// Config represents the daemon configuration
type Config struct {
	// PlaylistsDir holds one subfolder per playlist
	PlaylistsDir string `json:"playlistsDir"`

	// Audio settings
	Audio AudioConfig `json:"audio"`

	// Behavior settings
	Behavior BehaviorConfig `json:"behavior"`

	// MetricsAddr serves /metrics when set, e.g. "127.0.0.1:9464"
	MetricsAddr string `json:"metricsAddr"`
}

// AudioConfig contains audio-related settings
type AudioConfig struct {
	// Backend is "auto", "beep" or "ffmpeg" (default: auto)
	Backend string `json:"backend"`

	// SampleRate for audio output (default: 44100)
	SampleRate int `json:"sampleRate"`

	// BufferSize in milliseconds (default: 100)
	BufferSizeMs int `json:"bufferSizeMs"`

	// Volume level 0.0 - 1.0 (default: 0.7)
	DefaultVolume float64 `json:"defaultVolume"`

	// Speed factor 0.5 - 2.0 (default: 1.0)
	DefaultSpeed float64 `json:"defaultSpeed"`

	// TickIntervalMs between position updates, 100 - 250 (default: 200)
	TickIntervalMs int `json:"tickIntervalMs"`
}

// TickInterval returns the tick interval as a duration
func (a AudioConfig) TickInterval() time.Duration {
	return time.Duration(a.TickIntervalMs) * time.Millisecond
}

// BehaviorConfig contains behavior-related settings
type BehaviorConfig struct {
	// ResumeOnStart - resume last playing track on daemon start
	ResumeOnStart bool `json:"resumeOnStart"`

	// RememberPosition - save the position whenever a track starts
	RememberPosition bool `json:"rememberPosition"`

	// WatchFolders - rescan playlists when files change on disk
	WatchFolders bool `json:"watchFolders"`

	// LoopMode is the initial loop mode: none, track or playlist
	LoopMode types.LoopMode `json:"loopMode"`

	// Shuffle is the initial shuffle setting
	Shuffle bool `json:"shuffle"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	playlists := "Music"
	if home, err := os.UserHomeDir(); err == nil {
		playlists = filepath.Join(home, "Music")
	}

	return &Config{
		PlaylistsDir: playlists,
		Audio: AudioConfig{
			Backend:        "auto",
			SampleRate:     44100,
			BufferSizeMs:   100,
			DefaultVolume:  0.7,
			DefaultSpeed:   1.0,
			TickIntervalMs: 200,
		},
		Behavior: BehaviorConfig{
			ResumeOnStart:    false,
			RememberPosition: true,
			WatchFolders:     true,
			LoopMode:         types.LoopNone,
		},
	}
}

// DefaultDir returns ~/.config/tunefolder
func DefaultDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(dir, "tunefolder"), nil
}

// Manager handles loading and saving configuration
type Manager struct {
	configDir  string
	configPath string
	config     *Config
	getenv     func(string) string
}

// NewManager creates a new configuration manager
func NewManager(configDir string) *Manager {
	return &Manager{
		configDir:  configDir,
		configPath: filepath.Join(configDir, FileName),
		config:     DefaultConfig(),
		getenv:     os.Getenv,
	}
}

// Load reads the configuration from disk, writing the defaults on first
// run, then applies environment overrides
func (m *Manager) Load() error {
	if err := os.MkdirAll(m.configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := os.ReadFile(m.configPath)
	switch {
	case os.IsNotExist(err):
		m.config = DefaultConfig()
		if err := m.Save(); err != nil {
			return err
		}
		log.Printf("[CONFIG] Wrote default configuration to %s", m.configPath)
	case err != nil:
		return fmt.Errorf("failed to read config: %w", err)
	default:
		config := DefaultConfig() // Start with defaults
		if err := json.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
		m.config = config
	}

	m.applyEnv()
	return nil
}

func (m *Manager) applyEnv() {
	if v := m.getenv(EnvPlaylistsDir); v != "" {
		m.config.PlaylistsDir = v
	}
	if v := m.getenv(EnvBackend); v != "" {
		m.config.Audio.Backend = strings.ToLower(v)
	}
	if v := m.getenv(EnvMetricsAddr); v != "" {
		m.config.MetricsAddr = v
	}
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	if err := os.MkdirAll(m.configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := atomicfile.WriteFile(m.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Get returns the current configuration
func (m *Manager) Get() *Config {
	return m.config
}

// GetPath returns the config file path
func (m *Manager) GetPath() string {
	return m.configPath
}

// Dir returns the config directory
func (m *Manager) Dir() string {
	return m.configDir
}

// Update updates the configuration and saves it
func (m *Manager) Update(config *Config) error {
	m.config = config
	return m.Save()
}
