// Package state persists the playback position across restarts.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/tunefolder/tunefolder/internal/atomicfile"
	"github.com/tunefolder/tunefolder/internal/types"
)

// FileName is the state file inside the config directory
const FileName = "state.json"

// State is what gets restored on the next start
type State struct {
	PlaylistID    string         `json:"playlistId"`
	TrackIndex    int            `json:"trackIndex"`
	TrackFilename string         `json:"trackFilename,omitempty"`
	Position      float64        `json:"position"`
	Volume        float64        `json:"volume"`
	Speed         float64        `json:"speed"`
	Loop          types.LoopMode `json:"loop"`
	Shuffle       bool           `json:"shuffle"`
}

// Store reads and writes the state file
type Store struct {
	mu       sync.Mutex
	filePath string
}

// NewStore creates a store in configDir
func NewStore(configDir string) *Store {
	return &Store{filePath: filepath.Join(configDir, FileName)}
}

// Path returns the state file path
func (s *Store) Path() string {
	return s.filePath
}

// Load reads the saved state. It returns nil without error when nothing was
// saved. A corrupt file is moved to state.json.backup and ignored.
func (s *Store) Load() (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		backup := s.filePath + ".backup"
		log.Printf("[STATE] Corrupt state file (%v), moving to %s", err, backup)
		if renameErr := os.Rename(s.filePath, backup); renameErr != nil {
			log.Printf("[STATE] Failed to back up state file: %v", renameErr)
		}
		return nil, nil
	}
	if st.TrackIndex < 0 {
		st.TrackIndex = 0
	}
	if st.Position < 0 {
		st.Position = 0
	}
	return &st, nil
}

// Save writes st atomically
func (s *Store) Save(st *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := atomicfile.WriteFile(s.filePath, data, 0600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}
