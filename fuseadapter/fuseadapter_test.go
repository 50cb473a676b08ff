package fuseadapter

import (
	"context"
	"syscall"
	"testing"

	"vfscore/memoryfs"
	"vfscore/vfs"

	"bazil.org/fuse"
)

func testMount(fsys vfs.FileSystem) *Mount {
	return &Mount{fsys: fsys, uid: 1000, gid: 1000}
}

func TestDirLookupFindsFileAndDirectory(t *testing.T) {
	ctx := context.Background()
	fsys := memoryfs.New(false)
	if _, err := fsys.CreateDirectory(ctx, vfs.MustPath("/sub")); err != nil {
		t.Fatalf("CreateDirectory: %v", err)
	}
	if _, err := fsys.CreateFile(ctx, vfs.MustPath("/a.txt")); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}

	root := &dirNode{mount: testMount(fsys), path: vfs.Root()}

	subNode, err := root.Lookup(ctx, "sub")
	if err != nil {
		t.Fatalf("Lookup(sub): %v", err)
	}
	if _, ok := subNode.(*dirNode); !ok {
		t.Errorf("Lookup(sub) = %T, want *dirNode", subNode)
	}

	fileNodeResult, err := root.Lookup(ctx, "a.txt")
	if err != nil {
		t.Fatalf("Lookup(a.txt): %v", err)
	}
	if _, ok := fileNodeResult.(*fileNode); !ok {
		t.Errorf("Lookup(a.txt) = %T, want *fileNode", fileNodeResult)
	}

	if _, err := root.Lookup(ctx, "missing"); err != syscall.ENOENT {
		t.Errorf("Lookup(missing) = %v, want ENOENT", err)
	}
}

func TestDirReadDirAllListsEntries(t *testing.T) {
	ctx := context.Background()
	fsys := memoryfs.New(false)
	if _, err := fsys.CreateFile(ctx, vfs.MustPath("/one.txt")); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}

	root := &dirNode{mount: testMount(fsys), path: vfs.Root()}
	dirents, err := root.ReadDirAll(ctx)
	if err != nil {
		t.Fatalf("ReadDirAll: %v", err)
	}
	found := false
	for _, d := range dirents {
		if d.Name == "one.txt" && d.Type == fuse.DT_File {
			found = true
		}
	}
	if !found {
		t.Errorf("ReadDirAll = %+v, want to contain one.txt", dirents)
	}
}

func TestDirMkdirThenRemove(t *testing.T) {
	ctx := context.Background()
	fsys := memoryfs.New(false)
	root := &dirNode{mount: testMount(fsys), path: vfs.Root()}

	node, err := root.Mkdir(ctx, &fuse.MkdirRequest{Name: "child"})
	if err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if _, ok := node.(*dirNode); !ok {
		t.Fatalf("Mkdir result = %T, want *dirNode", node)
	}

	exists, err := fsys.DirExists(ctx, vfs.MustPath("/child"))
	if err != nil || !exists {
		t.Fatalf("DirExists(/child): %v, %v", exists, err)
	}

	if err := root.Remove(ctx, &fuse.RemoveRequest{Name: "child", Dir: true}); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	exists, err = fsys.DirExists(ctx, vfs.MustPath("/child"))
	if err != nil || exists {
		t.Fatalf("DirExists(/child) after remove: %v, %v", exists, err)
	}
}

func TestFileCreateWriteReadRelease(t *testing.T) {
	ctx := context.Background()
	fsys := memoryfs.New(false)
	root := &dirNode{mount: testMount(fsys), path: vfs.Root()}

	_, handle, err := root.Create(ctx, &fuse.CreateRequest{Name: "f.txt"}, &fuse.CreateResponse{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	fh := handle.(*fileHandle)

	writeResp := &fuse.WriteResponse{}
	if err := fh.Write(ctx, &fuse.WriteRequest{Data: []byte("hello")}, writeResp); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if writeResp.Size != 5 {
		t.Errorf("Write size = %d, want 5", writeResp.Size)
	}
	if err := fh.Flush(ctx, &fuse.FlushRequest{}); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := fh.Release(ctx, &fuse.ReleaseRequest{}); err != nil {
		t.Fatalf("Release: %v", err)
	}

	fileNodeResult := &fileNode{mount: testMount(fsys), path: vfs.MustPath("/f.txt")}
	readHandle, err := fileNodeResult.Open(ctx, &fuse.OpenRequest{}, &fuse.OpenResponse{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	readResp := &fuse.ReadResponse{}
	if err := readHandle.(*fileHandle).Read(ctx, &fuse.ReadRequest{Size: 32}, readResp); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got := string(readResp.Data); got != "hello" {
		t.Errorf("Read = %q, want hello", got)
	}
}

func TestToErrnoMapsSentinels(t *testing.T) {
	cases := map[error]syscall.Errno{
		vfs.ErrNotFound:      syscall.ENOENT,
		vfs.ErrAlreadyExists: syscall.EEXIST,
		vfs.ErrReadOnly:      syscall.EROFS,
		vfs.ErrForbidden:     syscall.EACCES,
	}
	for in, want := range cases {
		if got := toErrno(in); got != want {
			t.Errorf("toErrno(%v) = %v, want %v", in, got, want)
		}
	}
}
