package overlayfs

import (
	"context"
	"io"
	"testing"

	"vfscore/memoryfs"
	"vfscore/vfs"
)

func readAll(t *testing.T, s vfs.Stream) string {
	t.Helper()
	ctx := context.Background()
	var buf []byte
	chunk := make([]byte, 16)
	for {
		n, err := s.Read(ctx, chunk)
		buf = append(buf, chunk[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("read: %v", err)
		}
	}
	return string(buf)
}

func writeFile(t *testing.T, fs vfs.FileSystem, path, contents string) {
	t.Helper()
	ctx := context.Background()
	entry, err := fs.CreateFile(ctx, vfs.MustPath(path))
	if err != nil {
		t.Fatalf("CreateFile(%s): %v", path, err)
	}
	s := vfs.EntryStream(entry)
	if _, err := s.Write(ctx, []byte(contents)); err != nil {
		t.Fatalf("Write(%s): %v", path, err)
	}
	s.Close()
}

// TestOverlayCopyUp exercises spec scenario S3.
func TestOverlayCopyUp(t *testing.T) {
	ctx := context.Background()
	lower := memoryfs.New(false)
	writeFile(t, lower, "/r.txt", "lo")
	upper := memoryfs.New(false)
	ov := New(lower, upper)

	entry, err := ov.OpenFileReadWrite(ctx, vfs.MustPath("/r.txt"))
	if err != nil {
		t.Fatalf("OpenFileReadWrite: %v", err)
	}
	s := vfs.EntryStream(entry)
	if _, err := s.Write(ctx, []byte("hi")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	lowerEntry, err := lower.OpenFileRead(ctx, vfs.MustPath("/r.txt"))
	if err != nil || lowerEntry == nil {
		t.Fatalf("lower.OpenFileRead: %v, %v", lowerEntry, err)
	}
	if got := readAll(t, vfs.EntryStream(lowerEntry)); got != "lo" {
		t.Errorf("lower still reads %q, want lo", got)
	}

	ovEntry, err := ov.OpenFileRead(ctx, vfs.MustPath("/r.txt"))
	if err != nil || ovEntry == nil {
		t.Fatalf("ov.OpenFileRead: %v, %v", ovEntry, err)
	}
	if got := readAll(t, vfs.EntryStream(ovEntry)); got != "hi" {
		t.Errorf("overlay reads %q, want hi", got)
	}
}

// TestOverlayShadowing exercises invariant 4.
func TestOverlayShadowing(t *testing.T) {
	ctx := context.Background()
	lower := memoryfs.New(false)
	writeFile(t, lower, "/p.txt", "original")
	upper := memoryfs.New(false)
	ov := New(lower, upper)

	if _, err := ov.DeleteFile(ctx, vfs.MustPath("/p.txt")); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}

	status, err := ov.FileStat(ctx, vfs.MustPath("/p.txt"))
	if err != nil {
		t.Fatalf("FileStat: %v", err)
	}
	if status != vfs.StatusDeleted {
		t.Errorf("status = %v, want Deleted", status)
	}

	entry, err := ov.OpenFileRead(ctx, vfs.MustPath("/p.txt"))
	if err != nil {
		t.Fatalf("OpenFileRead: %v", err)
	}
	if entry != nil {
		t.Error("expected nil entry for tombstoned path")
	}
}

// TestOverlayCopyUpIdempotence exercises invariant 5.
func TestOverlayCopyUpIdempotence(t *testing.T) {
	ctx := context.Background()
	lower := memoryfs.New(false)
	writeFile(t, lower, "/f.txt", "one")
	upper := memoryfs.New(false)
	ov := New(lower, upper)

	first, err := ov.OpenFileReadWrite(ctx, vfs.MustPath("/f.txt"))
	if err != nil || first == nil {
		t.Fatalf("first OpenFileReadWrite: %v, %v", first, err)
	}
	s1 := vfs.EntryStream(first)
	if _, err := s1.Write(ctx, []byte("two")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s1.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	second, err := ov.OpenFileReadWrite(ctx, vfs.MustPath("/f.txt"))
	if err != nil || second == nil {
		t.Fatalf("second OpenFileReadWrite: %v, %v", second, err)
	}
	if got := readAll(t, vfs.EntryStream(second)); got != "two" {
		t.Errorf("second handle reads %q, want two", got)
	}
}

func TestOverlayEntriesMergeAndShadow(t *testing.T) {
	ctx := context.Background()
	lower := memoryfs.New(false)
	writeFile(t, lower, "/a.txt", "a")
	writeFile(t, lower, "/b.txt", "b")
	upper := memoryfs.New(false)
	writeFile(t, upper, "/c.txt", "c")
	ov := New(lower, upper)

	if _, err := ov.DeleteFile(ctx, vfs.MustPath("/b.txt")); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}

	entries, err := ov.Entries(ctx, vfs.MustPath("/"), vfs.Shallow("*"))
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	names := map[string]bool{}
	for _, e := range entries {
		names[e.Path().String()] = true
	}
	if !names["/a.txt"] || !names["/c.txt"] {
		t.Errorf("missing expected entries, got %v", names)
	}
	if names["/b.txt"] {
		t.Errorf("shadowed entry /b.txt should not appear, got %v", names)
	}
}

func TestOverlayAtComposesRecursively(t *testing.T) {
	ctx := context.Background()
	lower := memoryfs.New(false)
	if _, err := lower.CreateDirectory(ctx, vfs.MustPath("/sub")); err != nil {
		t.Fatalf("CreateDirectory: %v", err)
	}
	writeFile(t, lower, "/sub/x.txt", "x")
	upper := memoryfs.New(false)
	if _, err := upper.CreateDirectory(ctx, vfs.MustPath("/sub")); err != nil {
		t.Fatalf("CreateDirectory: %v", err)
	}
	ov := New(lower, upper)

	sub, err := ov.At(ctx, vfs.MustPath("/sub"), true)
	if err != nil {
		t.Fatalf("At: %v", err)
	}
	entry, err := sub.OpenFileRead(ctx, vfs.MustPath("/x.txt"))
	if err != nil || entry == nil {
		t.Fatalf("OpenFileRead via sub: %v, %v", entry, err)
	}
	if got := readAll(t, vfs.EntryStream(entry)); got != "x" {
		t.Errorf("got %q, want x", got)
	}
}
