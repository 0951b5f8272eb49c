package playlist

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestMoveTrack(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		expected string
	}{
		{"first to last", 0, 3, "b,c,d,a"},
		{"last to first", 3, 0, "d,a,b,c"},
		{"middle down", 1, 2, "a,c,b,d"},
		{"no-op", 2, 2, "a,b,c,d"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			folder := t.TempDir()
			touch(t, folder, "a.mp3", "b.mp3", "c.mp3", "d.mp3")

			p, err := newTestSynchronizer().MoveTrack(folder, tt.from, tt.to)
			if err != nil {
				t.Fatalf("MoveTrack failed: %v", err)
			}

			var got []string
			for i, tr := range p.Tracks {
				got = append(got, strings.TrimSuffix(tr.Filename, ".mp3"))
				if tr.Order != i {
					t.Errorf("Expected dense order %d, got %d", i, tr.Order)
				}
			}
			if strings.Join(got, ",") != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, strings.Join(got, ","))
			}
		})
	}
}

func TestMoveTrackOutOfRange(t *testing.T) {
	folder := t.TempDir()
	touch(t, folder, "a.mp3")

	_, err := newTestSynchronizer().MoveTrack(folder, 0, 5)
	if !errors.Is(err, ErrTrackNotFound) {
		t.Errorf("Expected ErrTrackNotFound, got %v", err)
	}
}

func TestSetTrackDisplayName(t *testing.T) {
	folder := t.TempDir()
	touch(t, folder, "a.mp3")
	s := newTestSynchronizer()

	p, err := s.SetTrackDisplayName(folder, "a.mp3", "  Intro  ")
	if err != nil {
		t.Fatal(err)
	}
	if p.Tracks[0].DisplayName != "Intro" {
		t.Errorf("Expected Intro, got %q", p.Tracks[0].DisplayName)
	}

	p, err = s.SetTrackDisplayName(folder, "a.mp3", "")
	if err != nil {
		t.Fatal(err)
	}
	if p.Tracks[0].DisplayName != "a.mp3" {
		t.Errorf("Expected filename restored, got %q", p.Tracks[0].DisplayName)
	}

	if _, err := s.SetTrackDisplayName(folder, "nope.mp3", "x"); !errors.Is(err, ErrTrackNotFound) {
		t.Errorf("Expected ErrTrackNotFound, got %v", err)
	}
}

func TestUpdateInfoKeepsNameWhenEmpty(t *testing.T) {
	folder := filepath.Join(t.TempDir(), "Road Trip")
	touch(t, folder, "a.mp3")

	p, err := newTestSynchronizer().UpdateInfo(folder, "", "Summer")
	if err != nil {
		t.Fatal(err)
	}
	if p.DisplayName != "Road Trip" {
		t.Errorf("Expected Road Trip, got %s", p.DisplayName)
	}
	if p.Description != "Summer" {
		t.Errorf("Expected Summer, got %s", p.Description)
	}
}

func TestCreate(t *testing.T) {
	root := t.TempDir()
	s := newTestSynchronizer()

	p, err := s.Create(root, "Focus")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if p.ID != "Focus" || p.Len() != 0 {
		t.Errorf("Unexpected playlist %+v", p)
	}
	if _, err := os.Stat(filepath.Join(root, "Focus", "playlist.json")); err != nil {
		t.Errorf("Expected descriptor written: %v", err)
	}

	if _, err := s.Create(root, "Focus"); !errors.Is(err, ErrPlaylistExists) {
		t.Errorf("Expected ErrPlaylistExists, got %v", err)
	}

	for _, bad := range []string{"", "..", ".hidden", "a/b"} {
		if _, err := s.Create(root, bad); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Expected ErrInvalidName for %q, got %v", bad, err)
		}
	}
}

func TestEditSurvivesConcurrentSync(t *testing.T) {
	folder := t.TempDir()
	touch(t, folder, "a.mp3")
	s := newTestSynchronizer()
	if _, err := s.Sync(folder); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 50; i++ {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			os.WriteFile(filepath.Join(folder, fmt.Sprintf("n%02d.mp3", i)), []byte("x"), 0644)
			s.Sync(folder)
		}()

		name := fmt.Sprintf("Moonlight Sonata %d", i)
		var editErr error
		go func() {
			defer wg.Done()
			_, editErr = s.SetTrackDisplayName(folder, "a.mp3", name)
		}()
		wg.Wait()
		if editErr != nil {
			t.Fatalf("SetTrackDisplayName failed: %v", editErr)
		}

		d, err := s.Store().Load(folder)
		if err != nil {
			t.Fatal(err)
		}
		if got := d.Tracks["a.mp3"].DisplayName; got != name {
			t.Fatalf("Expected %q after round %d, got %q", name, i, got)
		}
	}
}
