// Package mountfs implements vfs.FileSystem as a longest-prefix router over
// a set of child backends. Grounded on spec §4.8; VMapFS itself routes a
// single fixed source directory, so the routing table here generalizes that
// idea to an arbitrary number of mount points rather than being grounded on
// any one pack repo's multi-backend code (none of the pack implements this
// exact longest-prefix scheme — see DESIGN.md).
package mountfs

import (
	"context"
	"sort"
	"sync"

	"vfscore/internal/logging"
	"vfscore/vfs"
)

var log = logging.GetLogger().WithPrefix("mountfs")

type mountPoint struct {
	path vfs.Path
	fs   vfs.FileSystem
}

// FS routes requests to whichever mounted backend owns the longest matching
// path prefix. readOnly is always reported true: the router itself holds no
// mutable state beyond the mount table.
type FS struct {
	mu     sync.RWMutex
	mounts []mountPoint
}

// New returns an empty router; populate it with Mount.
func New() *FS {
	return &FS{}
}

func (f *FS) ReadOnly() bool { return true }

// Mount registers fs at p. Mounting an already-occupied path replaces the
// prior entry.
func (f *FS) Mount(p vfs.Path, fs vfs.FileSystem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, m := range f.mounts {
		if m.path.Equal(p) {
			f.mounts[i].fs = fs
			return
		}
	}
	f.mounts = append(f.mounts, mountPoint{path: p, fs: fs})
	sort.Slice(f.mounts, func(i, j int) bool {
		return len(f.mounts[i].path.String()) > len(f.mounts[j].path.String())
	})
	log.Debug("mounted %q", p.String())
}

// Unmount removes the mount at p, reporting whether one was present.
func (f *FS) Unmount(p vfs.Path) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, m := range f.mounts {
		if m.path.Equal(p) {
			f.mounts = append(f.mounts[:i], f.mounts[i+1:]...)
			return true
		}
	}
	return false
}

// route picks the mount whose path is the longest prefix of p (or an exact
// match), returning the child FS and the request path rebased onto the
// child's root.
func (f *FS) route(p vfs.Path) (vfs.FileSystem, vfs.Path, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	// f.mounts is kept sorted longest-prefix-first by Mount.
	for _, m := range f.mounts {
		if m.path.Equal(p) || p.InDirectory(m.path) {
			rebased, err := p.Rebase(m.path, vfs.Root())
			if err != nil {
				continue
			}
			return m.fs, rebased, nil
		}
	}
	return nil, vfs.Path{}, vfs.NewError(vfs.OpValidate, p.String(), vfs.ErrNotFound)
}

func (f *FS) FileExists(ctx context.Context, p vfs.Path) (bool, error) {
	child, rebased, err := f.route(p)
	if err != nil {
		return false, nil
	}
	return child.FileExists(ctx, rebased)
}

func (f *FS) DirExists(ctx context.Context, p vfs.Path) (bool, error) {
	child, rebased, err := f.route(p)
	if err != nil {
		return false, nil
	}
	return child.DirExists(ctx, rebased)
}

func (f *FS) FileStat(ctx context.Context, p vfs.Path) (vfs.FileStatus, error) {
	child, rebased, err := f.route(p)
	if err != nil {
		return vfs.StatusNotFound, err
	}
	return child.FileStat(ctx, rebased)
}

func (f *FS) CreateDirectory(ctx context.Context, p vfs.Path) (vfs.FileEntry, error) {
	child, rebased, err := f.route(p)
	if err != nil {
		return nil, err
	}
	return child.CreateDirectory(ctx, rebased)
}

func (f *FS) CreateFile(ctx context.Context, p vfs.Path) (vfs.FileEntry, error) {
	child, rebased, err := f.route(p)
	if err != nil {
		return nil, err
	}
	return child.CreateFile(ctx, rebased)
}

func (f *FS) OpenFileRead(ctx context.Context, p vfs.Path) (vfs.FileEntry, error) {
	child, rebased, err := f.route(p)
	if err != nil {
		return nil, nil
	}
	return child.OpenFileRead(ctx, rebased)
}

func (f *FS) OpenFileWrite(ctx context.Context, p vfs.Path) (vfs.FileEntry, error) {
	child, rebased, err := f.route(p)
	if err != nil {
		return nil, err
	}
	return child.OpenFileWrite(ctx, rebased)
}

func (f *FS) OpenFileReadWrite(ctx context.Context, p vfs.Path) (vfs.FileEntry, error) {
	child, rebased, err := f.route(p)
	if err != nil {
		return nil, err
	}
	return child.OpenFileReadWrite(ctx, rebased)
}

func (f *FS) DeleteFile(ctx context.Context, p vfs.Path) (bool, error) {
	child, rebased, err := f.route(p)
	if err != nil {
		return false, err
	}
	return child.DeleteFile(ctx, rebased)
}

func (f *FS) DeleteDirectory(ctx context.Context, p vfs.Path, recursive bool) (bool, error) {
	child, rebased, err := f.route(p)
	if err != nil {
		return false, err
	}
	return child.DeleteDirectory(ctx, rebased, recursive)
}

func (f *FS) Integrate(ctx context.Context, p vfs.Path, readable vfs.FileEntry) (vfs.FileEntry, error) {
	child, rebased, err := f.route(p)
	if err != nil {
		return nil, err
	}
	return child.Integrate(ctx, rebased, readable)
}

// Entries does not merge across mount points: a request spanning multiple
// mounts only returns the entries of the single backend owning that prefix.
func (f *FS) Entries(ctx context.Context, p vfs.Path, mode vfs.ListMode) ([]vfs.FileEntry, error) {
	child, rebased, err := f.route(p)
	if err != nil {
		return nil, err
	}
	entries, err := child.Entries(ctx, rebased, mode)
	if err != nil {
		return nil, err
	}
	out := make([]vfs.FileEntry, 0, len(entries))
	for _, e := range entries {
		rebasedBack, err := e.Path().Rebase(vfs.Root(), p)
		if err != nil {
			continue
		}
		if e.Kind() == vfs.KindDirectory {
			out = append(out, vfs.NewDirEntry(rebasedBack, f))
		} else {
			out = append(out, vfs.NewFileRefEntry(rebasedBack, f))
		}
	}
	return out, nil
}

// At returns the chosen child's own root view (child.At("/", writable))
// when p equals its mount point, so the child's read/write upgrade check
// still applies; otherwise it delegates At into the child with the rebased
// path.
func (f *FS) At(ctx context.Context, p vfs.Path, writable bool) (vfs.FileSystem, error) {
	f.mu.RLock()
	for _, m := range f.mounts {
		if m.path.Equal(p) {
			f.mu.RUnlock()
			return m.fs.At(ctx, vfs.Root(), writable)
		}
	}
	f.mu.RUnlock()
	child, rebased, err := f.route(p)
	if err != nil {
		return nil, err
	}
	return child.At(ctx, rebased, writable)
}

var _ vfs.FileSystem = (*FS)(nil)
