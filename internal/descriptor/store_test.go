package descriptor

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestStore() *Store {
	s := NewStore()
	s.now = func() time.Time { return time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC) }
	return s
}

func writeDescriptor(t *testing.T, folder, content string) {
	t.Helper()
	if err := os.WriteFile(Path(folder), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write descriptor: %v", err)
	}
}

func TestLoadNotFound(t *testing.T) {
	s := newTestStore()

	_, err := s.Load(t.TempDir())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestLoadFolderNotFound(t *testing.T) {
	s := newTestStore()

	_, err := s.Load(filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, ErrFolderNotFound) {
		t.Errorf("Expected ErrFolderNotFound, got %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore()
	folder := t.TempDir()

	// Key order deliberately differs from the struct order
	writeDescriptor(t, folder, `{
  "tracks": {
    "b.mp3": {"order": 1, "added": "2024-01-01T10:00:00", "display_name": "Bee"},
    "a.mp3": {"display_name": "a.mp3", "order": 0, "added": "2024-01-01T10:00:00"}
  },
  "created": "2024-01-01T10:00:00.123456",
  "description": "Mix",
  "display_name": "Road Trip"
}`)

	d, err := s.Load(folder)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if err := s.Save(folder, d); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded, err := s.Load(folder)
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	if !d.Equal(reloaded) {
		t.Errorf("Round trip changed descriptor: %+v vs %+v", d, reloaded)
	}
	if reloaded.Tracks["b.mp3"].DisplayName != "Bee" {
		t.Errorf("Expected display name 'Bee', got %q", reloaded.Tracks["b.mp3"].DisplayName)
	}
	if reloaded.Created != "2024-01-01T10:00:00.123456" {
		t.Errorf("Expected created timestamp to survive verbatim, got %q", reloaded.Created)
	}
}

func TestDecodeValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{
			name:    "valid",
			content: `{"display_name":"X","tracks":{"a.mp3":{"display_name":"a","order":0}}}`,
		},
		{
			name:    "gaps are tolerated",
			content: `{"display_name":"X","tracks":{"a.mp3":{"display_name":"a","order":3},"b.mp3":{"display_name":"b","order":7}}}`,
		},
		{
			name:    "malformed json",
			content: `{"display_name":`,
			wantErr: true,
		},
		{
			name:    "missing display_name",
			content: `{"tracks":{}}`,
			wantErr: true,
		},
		{
			name:    "missing tracks",
			content: `{"display_name":"X"}`,
			wantErr: true,
		},
		{
			name:    "missing order",
			content: `{"display_name":"X","tracks":{"a.mp3":{"display_name":"a"}}}`,
			wantErr: true,
		},
		{
			name:    "negative order",
			content: `{"display_name":"X","tracks":{"a.mp3":{"display_name":"a","order":-1}}}`,
			wantErr: true,
		},
		{
			name:    "duplicate order",
			content: `{"display_name":"X","tracks":{"a.mp3":{"display_name":"a","order":0},"b.mp3":{"display_name":"b","order":0}}}`,
			wantErr: true,
		},
		{
			name:    "order of wrong type",
			content: `{"display_name":"X","tracks":{"a.mp3":{"display_name":"a","order":"first"}}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode("playlist.json", []byte(tt.content))
			if tt.wantErr {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Errorf("Expected ValidationError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

func TestLoadOrDefaultSynthesizes(t *testing.T) {
	s := newTestStore()
	folder := filepath.Join(t.TempDir(), "Classical")
	if err := os.Mkdir(folder, 0755); err != nil {
		t.Fatal(err)
	}

	res, err := s.LoadOrDefault(folder, []string{"a.wav", "b.wav", "c.wav"})
	if err != nil {
		t.Fatalf("LoadOrDefault failed: %v", err)
	}
	if !res.Synthesized {
		t.Error("Expected Synthesized to be true")
	}
	if res.BackupPath != "" {
		t.Errorf("Expected no backup, got %s", res.BackupPath)
	}

	d := res.Descriptor
	if d.DisplayName != "Classical" {
		t.Errorf("Expected display name 'Classical', got %q", d.DisplayName)
	}
	for i, name := range []string{"a.wav", "b.wav", "c.wav"} {
		e, ok := d.Tracks[name]
		if !ok {
			t.Fatalf("Expected track %s", name)
		}
		if e.Order != i {
			t.Errorf("Expected %s order %d, got %d", name, i, e.Order)
		}
		if e.DisplayName != name {
			t.Errorf("Expected display name %q, got %q", name, e.DisplayName)
		}
	}

	if _, err := os.Stat(Path(folder)); err != nil {
		t.Errorf("Expected descriptor on disk: %v", err)
	}

	// Second call loads instead of synthesizing
	res, err = s.LoadOrDefault(folder, []string{"a.wav"})
	if err != nil {
		t.Fatalf("LoadOrDefault failed: %v", err)
	}
	if res.Synthesized {
		t.Error("Expected existing descriptor to be loaded")
	}
	if len(res.Descriptor.Tracks) != 3 {
		t.Errorf("Expected 3 tracks from disk, got %d", len(res.Descriptor.Tracks))
	}
}

func TestLoadOrDefaultBacksUpCorrupt(t *testing.T) {
	s := newTestStore()
	folder := t.TempDir()
	bad := `{"display_name":"X","tracks":{"b.mp3":{"display_name":"b","order":0},"a.mp3":{"display_name":"a","order":0}}}`
	writeDescriptor(t, folder, bad)

	res, err := s.LoadOrDefault(folder, []string{"a.mp3", "b.mp3"})
	if err != nil {
		t.Fatalf("LoadOrDefault failed: %v", err)
	}
	if res.Corruption == nil {
		t.Error("Expected corruption to be reported")
	}
	if !strings.HasPrefix(filepath.Base(res.BackupPath), FileName+".corrupt-") {
		t.Errorf("Unexpected backup path %q", res.BackupPath)
	}

	data, err := os.ReadFile(res.BackupPath)
	if err != nil {
		t.Fatalf("Failed to read backup: %v", err)
	}
	if string(data) != bad {
		t.Error("Expected backup to hold the original bytes")
	}

	d, err := s.Load(folder)
	if err != nil {
		t.Fatalf("Expected fresh descriptor to load, got %v", err)
	}
	if d.Tracks["a.mp3"].Order != 0 || d.Tracks["b.mp3"].Order != 1 {
		t.Errorf("Expected fresh unique orders, got %+v", d.Tracks)
	}
}

func TestBackupDoesNotOverwrite(t *testing.T) {
	s := newTestStore()
	folder := t.TempDir()

	writeDescriptor(t, folder, `not json`)
	first, err := s.LoadOrDefault(folder, nil)
	if err != nil {
		t.Fatal(err)
	}

	writeDescriptor(t, folder, `still not json`)
	second, err := s.LoadOrDefault(folder, nil)
	if err != nil {
		t.Fatal(err)
	}

	if first.BackupPath == second.BackupPath {
		t.Errorf("Expected distinct backup paths, both were %s", first.BackupPath)
	}
}

func TestLoadOrDefaultMissingFolder(t *testing.T) {
	s := newTestStore()

	_, err := s.LoadOrDefault(filepath.Join(t.TempDir(), "gone"), []string{"a.mp3"})
	if !errors.Is(err, ErrFolderNotFound) {
		t.Errorf("Expected ErrFolderNotFound, got %v", err)
	}
}

func TestSaveMissingFolder(t *testing.T) {
	s := newTestStore()

	err := s.Save(filepath.Join(t.TempDir(), "gone"), s.Synthesize("gone", nil))
	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Errorf("Expected PersistenceError, got %v", err)
	}
}

func TestEncodeKeepsAmpersands(t *testing.T) {
	d := &Descriptor{DisplayName: "Rock & Roll", Tracks: map[string]Entry{}}

	data, err := Encode(d)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Rock & Roll") {
		t.Errorf("Expected unescaped ampersand, got %s", data)
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in string
		ok bool
	}{
		{"2026-10-18T09:30:00Z", true},
		{"2024-01-01T10:00:00.123456", true},
		{"2024-01-01T10:00:00", true},
		{"yesterday", false},
		{"", false},
	}

	for _, tt := range tests {
		if _, ok := ParseTime(tt.in); ok != tt.ok {
			t.Errorf("ParseTime(%q): expected ok=%v", tt.in, tt.ok)
		}
	}
}
