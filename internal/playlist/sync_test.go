package playlist

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tunefolder/tunefolder/internal/descriptor"
)

func touch(t *testing.T, folder string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(folder, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create dir: %v", err)
		}
		if err := os.WriteFile(path, make([]byte, 512), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
}

func newTestSynchronizer() *Synchronizer {
	s := NewSynchronizer(descriptor.NewStore())
	s.now = func() time.Time { return time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC) }
	return s
}

func filenames(p *Playlist) []string {
	out := make([]string, len(p.Tracks))
	for i, t := range p.Tracks {
		out[i] = t.Filename
	}
	return out
}

func TestSyncNewFolder(t *testing.T) {
	folder := t.TempDir()
	touch(t, folder, "b.mp3", "a.flac", "c.ogg", "notes.txt")

	s := newTestSynchronizer()
	res, err := s.Sync(folder)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if !res.Saved {
		t.Error("Expected descriptor to be saved")
	}

	want := []string{"a.flac", "b.mp3", "c.ogg"}
	got := filenames(res.Playlist)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i, tr := range res.Playlist.Tracks {
		if tr.Order != i {
			t.Errorf("Expected %s order %d, got %d", tr.Filename, i, tr.Order)
		}
		if tr.DisplayName != tr.Filename {
			t.Errorf("Expected display name %s, got %s", tr.Filename, tr.DisplayName)
		}
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	folder := t.TempDir()
	touch(t, folder, "one.mp3", "two.mp3")

	s := newTestSynchronizer()
	if _, err := s.Sync(folder); err != nil {
		t.Fatalf("First sync failed: %v", err)
	}

	path := descriptor.Path(folder)
	before, _ := os.ReadFile(path)
	old := time.Now().Add(-time.Hour).Truncate(time.Second)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}

	res, err := s.Sync(folder)
	if err != nil {
		t.Fatalf("Second sync failed: %v", err)
	}
	if res.Saved || res.Changed {
		t.Errorf("Expected no write on second sync, got Saved=%v Changed=%v", res.Saved, res.Changed)
	}

	info, _ := os.Stat(path)
	if !info.ModTime().Equal(old) {
		t.Errorf("Expected descriptor mtime unchanged, got %v", info.ModTime())
	}
	after, _ := os.ReadFile(path)
	if string(before) != string(after) {
		t.Error("Expected descriptor contents unchanged")
	}
}

func TestSyncPreservesCustomization(t *testing.T) {
	folder := t.TempDir()
	touch(t, folder, "01.mp3", "02.mp3")

	s := newTestSynchronizer()
	if _, err := s.SetTrackDisplayName(folder, "02.mp3", "Moonlight Sonata"); err != nil {
		t.Fatalf("SetTrackDisplayName failed: %v", err)
	}
	if _, err := s.UpdateInfo(folder, "Classical", "Piano works"); err != nil {
		t.Fatalf("UpdateInfo failed: %v", err)
	}

	touch(t, folder, "03.mp3")
	res, err := s.Sync(folder)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	p := res.Playlist
	if p.DisplayName != "Classical" {
		t.Errorf("Expected display name Classical, got %s", p.DisplayName)
	}
	if p.Description != "Piano works" {
		t.Errorf("Expected description kept, got %q", p.Description)
	}
	if p.Tracks[1].DisplayName != "Moonlight Sonata" {
		t.Errorf("Expected Moonlight Sonata, got %s", p.Tracks[1].DisplayName)
	}
	if len(res.Added) != 1 || res.Added[0] != "03.mp3" {
		t.Errorf("Expected 03.mp3 added, got %v", res.Added)
	}
	if p.Tracks[2].Order != 2 {
		t.Errorf("Expected new track at order 2, got %d", p.Tracks[2].Order)
	}
}

func TestSyncAppendsAfterHighestOrder(t *testing.T) {
	folder := t.TempDir()
	touch(t, folder, "a.mp3", "b.mp3", "z.mp3", "y.mp3")
	content := `{"display_name":"Mix","tracks":{
		"b.mp3":{"display_name":"B","order":7},
		"a.mp3":{"display_name":"A","order":3}}}`
	if err := os.WriteFile(descriptor.Path(folder), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	res, err := newTestSynchronizer().Sync(folder)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	want := []string{"a.mp3", "b.mp3", "y.mp3", "z.mp3"}
	if got := filenames(res.Playlist); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i, tr := range res.Playlist.Tracks {
		if tr.Order != i {
			t.Errorf("Expected dense order %d for %s, got %d", i, tr.Filename, tr.Order)
		}
	}

	d, err := descriptor.NewStore().Load(folder)
	if err != nil {
		t.Fatal(err)
	}
	if d.Tracks["y.mp3"].Order != 8 || d.Tracks["z.mp3"].Order != 9 {
		t.Errorf("Expected stored orders 8 and 9, got %d and %d",
			d.Tracks["y.mp3"].Order, d.Tracks["z.mp3"].Order)
	}
}

func TestSyncPrunesMissingFiles(t *testing.T) {
	folder := t.TempDir()
	touch(t, folder, "keep.mp3", "gone.mp3")

	s := newTestSynchronizer()
	if _, err := s.Sync(folder); err != nil {
		t.Fatal(err)
	}
	os.Remove(filepath.Join(folder, "gone.mp3"))

	res, err := s.Sync(folder)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if len(res.Pruned) != 1 || res.Pruned[0] != "gone.mp3" {
		t.Errorf("Expected gone.mp3 pruned, got %v", res.Pruned)
	}
	if !res.Saved {
		t.Error("Expected descriptor saved after prune")
	}

	d, err := s.Store().Load(folder)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := d.Tracks["gone.mp3"]; ok {
		t.Error("Expected gone.mp3 removed from descriptor")
	}
}

func TestSyncCorruptDescriptor(t *testing.T) {
	folder := t.TempDir()
	touch(t, folder, "b.mp3", "a.mp3")
	content := `{"display_name":"Dupes","tracks":{
		"a.mp3":{"display_name":"A","order":1},
		"b.mp3":{"display_name":"B","order":1}}}`
	if err := os.WriteFile(descriptor.Path(folder), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	res, err := newTestSynchronizer().Sync(folder)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if res.BackupPath == "" || res.Corruption == nil {
		t.Fatal("Expected corrupt descriptor to be backed up")
	}
	backup, err := os.ReadFile(res.BackupPath)
	if err != nil {
		t.Fatalf("Expected backup file: %v", err)
	}
	if string(backup) != content {
		t.Error("Expected backup to hold the original bytes")
	}

	want := []string{"a.mp3", "b.mp3"}
	if got := filenames(res.Playlist); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if res.Playlist.Tracks[0].Order != 0 || res.Playlist.Tracks[1].Order != 1 {
		t.Error("Expected fresh orders 0 and 1")
	}
}

func TestSyncMissingFolder(t *testing.T) {
	folder := filepath.Join(t.TempDir(), "deleted")

	res, err := newTestSynchronizer().Sync(folder)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !res.Missing {
		t.Error("Expected Missing to be set")
	}
	if res.Playlist.Len() != 0 {
		t.Errorf("Expected empty playlist, got %d tracks", res.Playlist.Len())
	}
	if _, err := os.Stat(folder); !errors.Is(err, os.ErrNotExist) {
		t.Error("Expected folder not to be recreated")
	}
}

func TestSyncNestedFiles(t *testing.T) {
	folder := t.TempDir()
	touch(t, folder, "disc2/01.mp3", "disc1/01.mp3", ".hidden/x.mp3")

	res, err := newTestSynchronizer().Sync(folder)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"disc1/01.mp3", "disc2/01.mp3"}
	if got := filenames(res.Playlist); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	if res.Playlist.Tracks[0].DisplayName != "disc1/01.mp3" {
		t.Errorf("Expected relative display name, got %s", res.Playlist.Tracks[0].DisplayName)
	}
	if res.Playlist.Tracks[1].Path != filepath.Join(folder, "disc2", "01.mp3") {
		t.Errorf("Unexpected path %s", res.Playlist.Tracks[1].Path)
	}
}

func TestSyncAll(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "Rock"), "a.mp3")
	touch(t, filepath.Join(root, "Jazz"), "b.mp3", "c.mp3")
	touch(t, filepath.Join(root, ".trash"), "d.mp3")
	os.WriteFile(filepath.Join(root, "readme.txt"), []byte("hi"), 0644)

	results, err := newTestSynchronizer().SyncAll(root)
	if err != nil {
		t.Fatalf("SyncAll failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 playlists, got %d", len(results))
	}
	if results[0].Playlist.ID != "Jazz" || results[1].Playlist.ID != "Rock" {
		t.Errorf("Expected Jazz, Rock; got %s, %s", results[0].Playlist.ID, results[1].Playlist.ID)
	}
	if results[0].Playlist.Len() != 2 {
		t.Errorf("Expected 2 tracks in Jazz, got %d", results[0].Playlist.Len())
	}
}

func TestSyncAllMissingRoot(t *testing.T) {
	results, err := newTestSynchronizer().SyncAll(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected empty catalog, got %d", len(results))
	}
}
