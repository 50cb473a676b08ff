package fuseadapter

import (
	"context"
	"os"
	"syscall"

	"vfscore/internal/logging"
	"vfscore/vfs"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
)

var dirLog = logging.GetLogger().WithPrefix("fuseadapter.dir")

// dirNode adapts a vfs.FileSystem directory path to a fusefs.Node.
type dirNode struct {
	mount *Mount
	path  vfs.Path
}

func (d *dirNode) Attr(_ context.Context, a *fuse.Attr) error {
	a.Mode = os.ModeDir | 0755
	a.Uid = d.mount.uid
	a.Gid = d.mount.gid
	return nil
}

func (d *dirNode) Lookup(ctx context.Context, name string) (fusefs.Node, error) {
	childPath, err := d.path.Append(name)
	if err != nil {
		return nil, toErrno(err)
	}

	dirExists, err := d.mount.fsys.DirExists(ctx, childPath)
	if err != nil {
		return nil, toErrno(err)
	}
	if dirExists {
		return &dirNode{mount: d.mount, path: childPath}, nil
	}

	fileExists, err := d.mount.fsys.FileExists(ctx, childPath)
	if err != nil {
		return nil, toErrno(err)
	}
	if fileExists {
		return &fileNode{mount: d.mount, path: childPath}, nil
	}

	return nil, syscall.ENOENT
}

func (d *dirNode) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	dirLog.Debug("reading directory %q", d.path.String())
	entries, err := d.mount.fsys.Entries(ctx, d.path, vfs.Shallow("*"))
	if err != nil {
		return nil, toErrno(err)
	}

	result := make([]fuse.Dirent, 0, len(entries))
	for _, e := range entries {
		typ := fuse.DT_File
		if e.Kind() == vfs.KindDirectory {
			typ = fuse.DT_Dir
		}
		result = append(result, fuse.Dirent{Name: e.Path().Filename(), Type: typ})
	}
	return result, nil
}

func (d *dirNode) Mkdir(ctx context.Context, req *fuse.MkdirRequest) (fusefs.Node, error) {
	childPath, err := d.path.Append(req.Name)
	if err != nil {
		return nil, toErrno(err)
	}
	if _, err := d.mount.fsys.CreateDirectory(ctx, childPath); err != nil {
		return nil, toErrno(err)
	}
	return &dirNode{mount: d.mount, path: childPath}, nil
}

func (d *dirNode) Create(ctx context.Context, req *fuse.CreateRequest, resp *fuse.CreateResponse) (fusefs.Node, fusefs.Handle, error) {
	childPath, err := d.path.Append(req.Name)
	if err != nil {
		return nil, nil, toErrno(err)
	}
	entry, err := d.mount.fsys.CreateFile(ctx, childPath)
	if err != nil {
		return nil, nil, toErrno(err)
	}
	node := &fileNode{mount: d.mount, path: childPath}
	handle := &fileHandle{path: childPath, stream: vfs.EntryStream(entry)}
	return node, handle, nil
}

// Remove implements both file and directory removal; FUSE tells us which
// via req.Dir.
func (d *dirNode) Remove(ctx context.Context, req *fuse.RemoveRequest) error {
	childPath, err := d.path.Append(req.Name)
	if err != nil {
		return toErrno(err)
	}
	if req.Dir {
		if _, err := d.mount.fsys.DeleteDirectory(ctx, childPath, false); err != nil {
			return toErrno(err)
		}
		return nil
	}
	if _, err := d.mount.fsys.DeleteFile(ctx, childPath); err != nil {
		return toErrno(err)
	}
	return nil
}
