package fuseadapter

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"

	"vfscore/internal/logging"
	"vfscore/vfs"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
)

var log = logging.GetLogger().WithPrefix("fuseadapter")

// Mount serves fsys at mountpoint over FUSE until Close is called.
type Mount struct {
	fsys       vfs.FileSystem
	conn       *fuse.Conn
	mountpoint string
	uid        uint32
	gid        uint32
	mu         sync.Mutex
	served     chan error
}

// Root implements fusefs.FS, returning the root directory node.
func (m *Mount) Root() (fusefs.Node, error) {
	return &dirNode{mount: m, path: vfs.Root()}, nil
}

func safeIntToUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	return uint32(n)
}

// NewMount mounts fsys at mountpoint and begins serving FUSE requests in a
// background goroutine. Call (*Mount).Close to unmount.
func NewMount(ctx context.Context, fsys vfs.FileSystem, mountpoint string) (*Mount, error) {
	log.Info("mounting virtual filesystem at %s", mountpoint)

	uid := safeIntToUint32(os.Getuid())
	gid := safeIntToUint32(os.Getgid())
	if puidStr := os.Getenv("PUID"); puidStr != "" {
		if puid, err := strconv.ParseUint(puidStr, 10, 32); err == nil {
			uid = uint32(puid)
		}
	}
	if pgidStr := os.Getenv("PGID"); pgidStr != "" {
		if pgid, err := strconv.ParseUint(pgidStr, 10, 32); err == nil {
			gid = uint32(pgid)
		}
	}

	opts := []fuse.MountOption{
		fuse.FSName("vfscore"),
		fuse.Subtype("vfscore"),
		fuse.AllowOther(),
		fuse.DefaultPermissions(),
	}
	if fsys.ReadOnly() {
		opts = append(opts, fuse.ReadOnly())
	}

	c, err := fuse.Mount(mountpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("mount failed: %w", err)
	}

	m := &Mount{
		fsys:       fsys,
		conn:       c,
		mountpoint: mountpoint,
		uid:        uid,
		gid:        gid,
		served:     make(chan error, 1),
	}

	go func() {
		m.served <- fusefs.Serve(c, m)
	}()

	select {
	case <-c.Ready:
		if err := c.MountError; err != nil {
			c.Close()
			return nil, fmt.Errorf("mount handshake failed: %w", err)
		}
	case <-ctx.Done():
		c.Close()
		return nil, ctx.Err()
	}

	log.Info("filesystem mounted at %s", mountpoint)
	return m, nil
}

// Close unmounts the filesystem and waits for the serve loop to exit.
func (m *Mount) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := fuse.Unmount(m.mountpoint); err != nil {
		log.Error("unmount failed: %v", err)
		return err
	}
	err := <-m.served
	m.conn.Close()
	log.Info("filesystem unmounted from %s", m.mountpoint)
	return err
}
