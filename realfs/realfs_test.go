package realfs

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"vfscore/vfs"
)

func tempRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "realfs-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

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

func TestRealWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	fs := New(tempRoot(t), false)

	if _, err := fs.CreateDirectory(ctx, vfs.MustPath("/a")); err != nil {
		t.Fatalf("CreateDirectory: %v", err)
	}
	entry, err := fs.CreateFile(ctx, vfs.MustPath("/a/b.txt"))
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	s := vfs.EntryStream(entry)
	if _, err := s.Write(ctx, []byte("hi")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	s.Close()

	readEntry, err := fs.OpenFileRead(ctx, vfs.MustPath("/a/b.txt"))
	if err != nil || readEntry == nil {
		t.Fatalf("OpenFileRead: %v, %v", readEntry, err)
	}
	if got := readAll(t, vfs.EntryStream(readEntry)); got != "hi" {
		t.Errorf("got %q, want hi", got)
	}
}

func TestRealConfinement(t *testing.T) {
	fs := New(tempRoot(t), false)
	// A path with dotted segments is rejected by vfs.NewPath before it ever
	// reaches realfs, so confinement here is belt-and-suspenders; this test
	// only checks that a path inside the root resolves without error.
	_, err := fs.resolve(vfs.MustPath("/ok"))
	if err != nil {
		t.Fatalf("resolve valid path: %v", err)
	}
}

func TestRealDeleteMissingFile(t *testing.T) {
	ctx := context.Background()
	fs := New(tempRoot(t), false)
	removed, err := fs.DeleteFile(ctx, vfs.MustPath("/missing.txt"))
	if err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	if removed {
		t.Error("expected removed=false for missing file")
	}
}

func TestRealOpenFileWriteMissingReturnsNil(t *testing.T) {
	ctx := context.Background()
	fs := New(tempRoot(t), false)
	entry, err := fs.OpenFileWrite(ctx, vfs.MustPath("/missing.txt"))
	if err != nil {
		t.Fatalf("OpenFileWrite: %v", err)
	}
	if entry != nil {
		t.Error("expected nil entry for missing file")
	}
}

func TestRealReadOnlyRejectsWrite(t *testing.T) {
	ctx := context.Background()
	fs := New(tempRoot(t), true)
	if _, err := fs.CreateFile(ctx, vfs.MustPath("/x.txt")); !errors.Is(err, vfs.ErrReadOnly) {
		t.Errorf("CreateFile on read-only fs: %v, want ErrReadOnly", err)
	}
}

func TestRealEntriesListing(t *testing.T) {
	ctx := context.Background()
	fs := New(tempRoot(t), false)
	if _, err := fs.CreateDirectory(ctx, vfs.MustPath("/dir")); err != nil {
		t.Fatalf("CreateDirectory: %v", err)
	}
	for _, p := range []string{"/dir/a.txt", "/dir/b.csv"} {
		if _, err := fs.CreateFile(ctx, vfs.MustPath(p)); err != nil {
			t.Fatalf("CreateFile(%s): %v", p, err)
		}
	}

	entries, err := fs.Entries(ctx, vfs.MustPath("/dir"), vfs.Shallow("*.txt"))
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
}

func TestRealDeleteDirectoryNonEmptyFails(t *testing.T) {
	ctx := context.Background()
	fs := New(tempRoot(t), false)
	if _, err := fs.CreateDirectory(ctx, vfs.MustPath("/dir")); err != nil {
		t.Fatalf("CreateDirectory: %v", err)
	}
	if _, err := fs.CreateFile(ctx, vfs.MustPath("/dir/a.txt")); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	if _, err := fs.DeleteDirectory(ctx, vfs.MustPath("/dir"), false); err == nil {
		t.Error("expected error removing non-empty directory without recursive")
	}
}

func TestRealAtSubMount(t *testing.T) {
	ctx := context.Background()
	fs := New(tempRoot(t), false)
	if _, err := fs.CreateDirectory(ctx, vfs.MustPath("/sub")); err != nil {
		t.Fatalf("CreateDirectory: %v", err)
	}
	sub, err := fs.At(ctx, vfs.MustPath("/sub"), true)
	if err != nil {
		t.Fatalf("At: %v", err)
	}
	if _, err := sub.CreateFile(ctx, vfs.MustPath("/x.txt")); err != nil {
		t.Fatalf("CreateFile via sub-fs: %v", err)
	}
	exists, err := fs.FileExists(ctx, vfs.MustPath("/sub/x.txt"))
	if err != nil || !exists {
		t.Fatalf("FileExists via parent: %v, %v", exists, err)
	}
}
