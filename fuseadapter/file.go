package fuseadapter

import (
	"context"
	"os"
	"sync"
	"syscall"

	"vfscore/internal/logging"
	"vfscore/vfs"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
)

var fileLog = logging.GetLogger().WithPrefix("fuseadapter.file")

// fileNode adapts a vfs.FileSystem file path to a fusefs.Node.
type fileNode struct {
	mount *Mount
	path  vfs.Path
}

func (f *fileNode) Attr(ctx context.Context, a *fuse.Attr) error {
	status, err := f.mount.fsys.FileStat(ctx, f.path)
	if err != nil {
		return toErrno(err)
	}
	if status != vfs.StatusExists {
		return syscall.ENOENT
	}
	a.Mode = 0644
	a.Uid = f.mount.uid
	a.Gid = f.mount.gid

	entry, err := f.mount.fsys.OpenFileRead(ctx, f.path)
	if err != nil {
		return toErrno(err)
	}
	if entry != nil {
		s := vfs.EntryStream(entry)
		a.Size = uint64(s.Length())
		s.Close()
	}
	return nil
}

func (f *fileNode) Open(ctx context.Context, req *fuse.OpenRequest, resp *fuse.OpenResponse) (fusefs.Handle, error) {
	fileLog.Debug("opening %q with flags %v", f.path.String(), req.Flags)

	wantsWrite := req.Flags&fuse.OpenFlags(os.O_WRONLY) != 0 || req.Flags&fuse.OpenFlags(os.O_RDWR) != 0

	var entry vfs.FileEntry
	var err error
	switch {
	case wantsWrite && req.Flags&fuse.OpenFlags(os.O_RDWR) != 0:
		entry, err = f.mount.fsys.OpenFileReadWrite(ctx, f.path)
	case wantsWrite:
		entry, err = f.mount.fsys.OpenFileWrite(ctx, f.path)
	default:
		entry, err = f.mount.fsys.OpenFileRead(ctx, f.path)
	}
	if err != nil {
		return nil, toErrno(err)
	}
	if entry == nil {
		return nil, syscall.ENOENT
	}

	resp.Flags |= fuse.OpenDirectIO
	return &fileHandle{path: f.path, stream: vfs.EntryStream(entry)}, nil
}

// fileHandle wraps an open vfs.Stream behind bazil.org/fuse's handle
// interfaces.
type fileHandle struct {
	path   vfs.Path
	stream vfs.Stream
	mu     sync.Mutex
}

func (h *fileHandle) Read(ctx context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	// vfs.Stream reads sequentially from its current position; random
	// access via req.Offset is not supported for backends whose streams
	// are forward-only (e.g. objectstorefs' GetObject body).
	buf := make([]byte, req.Size)
	n, err := h.stream.Read(ctx, buf)
	if err != nil && n == 0 {
		return toErrno(err)
	}
	resp.Data = buf[:n]
	return nil
}

func (h *fileHandle) Write(ctx context.Context, req *fuse.WriteRequest, resp *fuse.WriteResponse) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	n, err := h.stream.Write(ctx, req.Data)
	if err != nil {
		return toErrno(err)
	}
	resp.Size = n
	return nil
}

func (h *fileHandle) Flush(ctx context.Context, _ *fuse.FlushRequest) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return toErrno(h.stream.Flush(ctx))
}

func (h *fileHandle) Release(_ context.Context, _ *fuse.ReleaseRequest) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	fileLog.Debug("closing %q", h.path.String())
	return toErrno(h.stream.Close())
}
