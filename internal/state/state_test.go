package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tunefolder/tunefolder/internal/types"
)

func TestStoreLoadSaveRoundtrip(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	want := &State{
		PlaylistID:    "Classical",
		TrackIndex:    3,
		TrackFilename: "04.flac",
		Position:      93.5,
		Volume:        0.6,
		Speed:         1.25,
		Loop:          types.LoopPlaylist,
		Shuffle:       true,
	}
	if err := store.Save(want); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	got, err := NewStore(dir).Load()
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if got == nil || *got != *want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestStoreLoadMissing(t *testing.T) {
	st, err := NewStore(t.TempDir()).Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if st != nil {
		t.Errorf("Expected nil state, got %+v", st)
	}
}

func TestStoreLoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	os.WriteFile(path, []byte("{not json"), 0600)

	st, err := NewStore(dir).Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if st != nil {
		t.Errorf("Expected nil state, got %+v", st)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected corrupt file to be moved aside")
	}
	data, err := os.ReadFile(path + ".backup")
	if err != nil || string(data) != "{not json" {
		t.Errorf("Expected backup with original bytes, got %q (%v)", data, err)
	}
}

func TestStoreLoadClampsNegatives(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, FileName), []byte(`{"playlistId":"x","trackIndex":-4,"position":-2}`), 0600)

	st, err := NewStore(dir).Load()
	if err != nil {
		t.Fatal(err)
	}
	if st.TrackIndex != 0 || st.Position != 0 {
		t.Errorf("Expected clamped values, got %+v", st)
	}
}

func TestStoreSaveCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "config")
	if err := NewStore(dir).Save(&State{PlaylistID: "a"}); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, FileName)); err != nil {
		t.Errorf("Expected state file: %v", err)
	}
}
