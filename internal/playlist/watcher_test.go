package playlist

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatcherDebouncesAudioChanges(t *testing.T) {
	root := t.TempDir()
	folder := filepath.Join(root, "Rock")
	if err := os.Mkdir(folder, 0755); err != nil {
		t.Fatal(err)
	}

	var fired atomic.Int32
	w, err := NewWatcher(root, 50*time.Millisecond, func() { fired.Add(1) })
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	touch(t, folder, "a.mp3", "b.mp3", "c.mp3")

	deadline := time.Now().Add(2 * time.Second)
	for fired.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(150 * time.Millisecond)

	if got := fired.Load(); got != 1 {
		t.Errorf("Expected 1 debounced callback, got %d", got)
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	root := t.TempDir()
	folder := filepath.Join(root, "Rock")
	if err := os.Mkdir(folder, 0755); err != nil {
		t.Fatal(err)
	}

	var fired atomic.Int32
	w, err := NewWatcher(root, 20*time.Millisecond, func() { fired.Add(1) })
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	os.WriteFile(filepath.Join(folder, "cover.jpg"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(folder, "playlist.json"), []byte("{}"), 0644)
	time.Sleep(200 * time.Millisecond)

	if got := fired.Load(); got != 0 {
		t.Errorf("Expected no callback, got %d", got)
	}
}

func TestIsHidden(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"/music/Rock/a.mp3", false},
		{"/music/.trash/a.mp3", true},
		{"/music/Rock/.a.mp3", true},
		{"/music", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := isHidden("/music", tt.path); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}
