package objectstorefs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"vfscore/objectstoreclient"
	"vfscore/vfs"
)

// fakeClient is an in-memory objectstoreclient.Client for exercising
// objectstorefs without a real S3 endpoint.
type fakeClient struct {
	mu      sync.Mutex
	bucket  bool
	objects map[string][]byte
	types   map[string]string
}

func newFakeClient() *fakeClient {
	return &fakeClient{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (c *fakeClient) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.objects[key] = data
	c.types[key] = contentType
	return nil
}

func (c *fakeClient) GetObject(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.objects[key]
	if !ok {
		return nil, 0, nil
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

func (c *fakeClient) StatObject(ctx context.Context, key string) (objectstoreclient.ObjectInfo, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.objects[key]
	if !ok {
		return objectstoreclient.ObjectInfo{}, false, nil
	}
	return objectstoreclient.ObjectInfo{Key: key, Size: int64(len(data)), ContentType: c.types[key]}, true, nil
}

func (c *fakeClient) RemoveObject(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.objects, key)
	delete(c.types, key)
	return nil
}

func (c *fakeClient) ListObjects(ctx context.Context, prefix string, recursive bool) ([]objectstoreclient.ObjectInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []objectstoreclient.ObjectInfo
	for key, data := range c.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := strings.TrimPrefix(key, prefix)
		if !recursive && strings.Contains(rest, "/") {
			continue
		}
		out = append(out, objectstoreclient.ObjectInfo{Key: key, Size: int64(len(data))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (c *fakeClient) BucketExists(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bucket, nil
}

func (c *fakeClient) MakeBucket(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bucket = true
	return nil
}

var _ objectstoreclient.Client = (*fakeClient)(nil)

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

func TestObjectStoreWriteFlushRead(t *testing.T) {
	ctx := context.Background()
	fs := New(newFakeClient(), "", false)

	entry, err := fs.CreateFile(ctx, vfs.MustPath("/a/b.txt"))
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	s := vfs.EntryStream(entry)
	if _, err := s.Write(ctx, []byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	exists, err := fs.FileExists(ctx, vfs.MustPath("/a/b.txt"))
	if err != nil || !exists {
		t.Fatalf("FileExists before flush: %v, %v", exists, err)
	}

	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	s.Close()

	readEntry, err := fs.OpenFileRead(ctx, vfs.MustPath("/a/b.txt"))
	if err != nil || readEntry == nil {
		t.Fatalf("OpenFileRead: %v, %v", readEntry, err)
	}
	if got := readAll(t, vfs.EntryStream(readEntry)); got != "hello" {
		t.Errorf("got %q, want hello", got)
	}
}

func TestObjectStoreOpenReadBeforeFlush(t *testing.T) {
	ctx := context.Background()
	fs := New(newFakeClient(), "", false)

	_, err := fs.CreateFile(ctx, vfs.MustPath("/building.txt"))
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}

	entry, err := fs.OpenFileRead(ctx, vfs.MustPath("/building.txt"))
	if err != nil {
		t.Fatalf("OpenFileRead: %v", err)
	}
	if entry == nil {
		t.Fatal("expected a handle over an empty stream, got nil")
	}
	if got := readAll(t, vfs.EntryStream(entry)); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestObjectStoreOpenFileWriteMissingReturnsNil(t *testing.T) {
	ctx := context.Background()
	fs := New(newFakeClient(), "", false)
	entry, err := fs.OpenFileWrite(ctx, vfs.MustPath("/missing.txt"))
	if err != nil {
		t.Fatalf("OpenFileWrite: %v", err)
	}
	if entry != nil {
		t.Error("expected nil entry for missing file")
	}
}

func TestObjectStoreDeleteThenStat(t *testing.T) {
	ctx := context.Background()
	fs := New(newFakeClient(), "", false)

	entry, err := fs.CreateFile(ctx, vfs.MustPath("/x.txt"))
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	s := vfs.EntryStream(entry)
	s.Write(ctx, []byte("data"))
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	s.Close()

	removed, err := fs.DeleteFile(ctx, vfs.MustPath("/x.txt"))
	if err != nil || !removed {
		t.Fatalf("DeleteFile: %v, %v", removed, err)
	}
	status, err := fs.FileStat(ctx, vfs.MustPath("/x.txt"))
	if err != nil {
		t.Fatalf("FileStat: %v", err)
	}
	if status != vfs.StatusDeleted {
		t.Errorf("status = %v, want Deleted", status)
	}
}

func TestObjectStoreReadOnlyRejectsWrite(t *testing.T) {
	ctx := context.Background()
	fs := New(newFakeClient(), "", true)
	if _, err := fs.CreateFile(ctx, vfs.MustPath("/x.txt")); !errors.Is(err, vfs.ErrReadOnly) {
		t.Errorf("CreateFile on read-only fs: %v, want ErrReadOnly", err)
	}
}

func TestObjectStoreEntriesShallowSurfacesDirectory(t *testing.T) {
	ctx := context.Background()
	fs := New(newFakeClient(), "", false)

	for _, p := range []string{"/dir/sub/deep.txt", "/dir/a.txt"} {
		entry, err := fs.CreateFile(ctx, vfs.MustPath(p))
		if err != nil {
			t.Fatalf("CreateFile(%s): %v", p, err)
		}
		s := vfs.EntryStream(entry)
		s.Write(ctx, []byte("x"))
		if err := s.Flush(ctx); err != nil {
			t.Fatalf("Flush(%s): %v", p, err)
		}
		s.Close()
	}

	entries, err := fs.Entries(ctx, vfs.MustPath("/dir"), vfs.Shallow("*"))
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2 (a.txt file + sub directory)", len(entries))
	}
	var sawDir, sawFile bool
	for _, e := range entries {
		switch e.Kind() {
		case vfs.KindDirectory:
			sawDir = true
		case vfs.KindFileRef:
			sawFile = true
		}
	}
	if !sawDir || !sawFile {
		t.Errorf("sawDir=%v sawFile=%v, want both true", sawDir, sawFile)
	}
}

// TestObjectStoreEntriesSurfacesEmptySimulatedDirectory exercises a
// directory that exists only as a simulated entry (no descendant object
// ever written under it), which must still list as KindDirectory rather
// than being misclassified as a file.
func TestObjectStoreEntriesSurfacesEmptySimulatedDirectory(t *testing.T) {
	ctx := context.Background()
	fs := New(newFakeClient(), "", false)

	if _, err := fs.CreateDirectory(ctx, vfs.MustPath("/dir/empty")); err != nil {
		t.Fatalf("CreateDirectory: %v", err)
	}

	entries, err := fs.Entries(ctx, vfs.MustPath("/dir"), vfs.Shallow("*"))
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1 (empty directory)", len(entries))
	}
	if entries[0].Kind() != vfs.KindDirectory {
		t.Errorf("Kind() = %v, want KindDirectory", entries[0].Kind())
	}
	if entries[0].Path().String() != "/dir/empty" {
		t.Errorf("Path() = %q, want /dir/empty", entries[0].Path().String())
	}
}

func TestObjectStoreDeleteDirectoryRecursive(t *testing.T) {
	ctx := context.Background()
	fs := New(newFakeClient(), "", false)

	for _, p := range []string{"/dir/a.txt", "/dir/sub/b.txt"} {
		entry, err := fs.CreateFile(ctx, vfs.MustPath(p))
		if err != nil {
			t.Fatalf("CreateFile(%s): %v", p, err)
		}
		s := vfs.EntryStream(entry)
		s.Write(ctx, []byte("x"))
		if err := s.Flush(ctx); err != nil {
			t.Fatalf("Flush(%s): %v", p, err)
		}
		s.Close()
	}

	if _, err := fs.DeleteDirectory(ctx, vfs.MustPath("/dir"), false); err == nil {
		t.Error("expected non-recursive delete of non-empty directory to fail")
	}
	removed, err := fs.DeleteDirectory(ctx, vfs.MustPath("/dir"), true)
	if err != nil || !removed {
		t.Fatalf("DeleteDirectory recursive: %v, %v", removed, err)
	}
	exists, err := fs.FileExists(ctx, vfs.MustPath("/dir/a.txt"))
	if err != nil || exists {
		t.Fatalf("FileExists after recursive delete: %v, %v", exists, err)
	}
}

func TestObjectStoreAtSubMount(t *testing.T) {
	ctx := context.Background()
	fs := New(newFakeClient(), "", false)
	if _, err := fs.CreateDirectory(ctx, vfs.MustPath("/sub")); err != nil {
		t.Fatalf("CreateDirectory: %v", err)
	}
	sub, err := fs.At(ctx, vfs.MustPath("/sub"), true)
	if err != nil {
		t.Fatalf("At: %v", err)
	}
	entry, err := sub.CreateFile(ctx, vfs.MustPath("/x.txt"))
	if err != nil {
		t.Fatalf("CreateFile via sub-fs: %v", err)
	}
	s := vfs.EntryStream(entry)
	s.Write(ctx, []byte("y"))
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	s.Close()

	exists, err := fs.FileExists(ctx, vfs.MustPath("/sub/x.txt"))
	if err != nil || !exists {
		t.Fatalf("FileExists via parent: %v, %v", exists, err)
	}
}

func TestObjectStoreIntegrate(t *testing.T) {
	ctx := context.Background()
	src := New(newFakeClient(), "", false)
	srcEntry, err := src.CreateFile(ctx, vfs.MustPath("/src.txt"))
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	srcStream := vfs.EntryStream(srcEntry)
	srcStream.Write(ctx, []byte("payload"))
	if err := srcStream.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	readEntry, err := src.OpenFileRead(ctx, vfs.MustPath("/src.txt"))
	if err != nil || readEntry == nil {
		t.Fatalf("OpenFileRead: %v, %v", readEntry, err)
	}

	dst := New(newFakeClient(), "", false)
	integrated, err := dst.Integrate(ctx, vfs.MustPath("/dst.txt"), readEntry)
	if err != nil {
		t.Fatalf("Integrate: %v", err)
	}
	dstStream := vfs.EntryStream(integrated)
	if err := dstStream.Flush(ctx); err != nil {
		t.Fatalf("Flush after integrate: %v", err)
	}
	dstStream.Close()

	check, err := dst.OpenFileRead(ctx, vfs.MustPath("/dst.txt"))
	if err != nil || check == nil {
		t.Fatalf("OpenFileRead: %v, %v", check, err)
	}
	if got := readAll(t, vfs.EntryStream(check)); got != "payload" {
		t.Errorf("got %q, want payload", got)
	}
}
