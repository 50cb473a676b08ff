package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"vfscore/memoryfs"
	"vfscore/vfs"
)

func TestCaptureRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := memoryfs.New(false)
	if _, err := src.CreateDirectory(ctx, vfs.MustPath("/a")); err != nil {
		t.Fatalf("CreateDirectory: %v", err)
	}
	entry, err := src.CreateFile(ctx, vfs.MustPath("/a/b.txt"))
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	s := vfs.EntryStream(entry)
	s.Write(ctx, []byte("payload"))
	s.Close()

	snap, err := Capture(ctx, src)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if snap.Files["/a/b.txt"] == "" {
		t.Fatalf("snapshot missing /a/b.txt, got %+v", snap)
	}

	dst := memoryfs.New(false)
	if err := Restore(ctx, dst, snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	readEntry, err := dst.OpenFileRead(ctx, vfs.MustPath("/a/b.txt"))
	if err != nil || readEntry == nil {
		t.Fatalf("OpenFileRead: %v, %v", readEntry, err)
	}
	buf := make([]byte, 32)
	n, _ := vfs.EntryStream(readEntry).Read(ctx, buf)
	if got := string(buf[:n]); got != "payload" {
		t.Errorf("got %q, want payload", got)
	}
}

func TestManagerSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	snap := &Snapshot{Version: 1, Directories: []string{"/a"}, Files: map[string]string{"/a/b.txt": "cGF5bG9hZA=="}}
	if err := mgr.Save(snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := mgr.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Files["/a/b.txt"] != snap.Files["/a/b.txt"] {
		t.Errorf("loaded snapshot mismatch: %+v", loaded)
	}
}

func TestManagerLoadMissingFileReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	os.Remove(path)

	snap, err := mgr.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snap.Files) != 0 {
		t.Errorf("expected empty snapshot, got %+v", snap)
	}
}
