// Package realfs implements vfs.FileSystem as a thin, confined mapping onto
// the host operating system's file system, grounded on VMapFS's SourcePath
// confinement (internal/fs/path.go) and its FileHandle (internal/fs/file.go).
package realfs

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"vfscore/internal/logging"
	"vfscore/vfs"
)

var log = logging.GetLogger().WithPrefix("realfs")

// FS is a vfs.FileSystem rooted at a host directory. Every resolved path is
// confined to root: a join that would escape it fails with ErrForbidden.
type FS struct {
	root     string
	readOnly bool
}

// New roots a Real backend at root, an existing host directory.
func New(root string, readOnly bool) *FS {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	return &FS{root: filepath.Clean(abs), readOnly: readOnly}
}

func (f *FS) ReadOnly() bool { return f.readOnly }

// resolve joins p under the backend root and confines the result.
func (f *FS) resolve(p vfs.Path) (string, error) {
	full := filepath.Clean(p.FullPath(f.root))
	if full != f.root && !strings.HasPrefix(full, f.root+string(filepath.Separator)) {
		return "", vfs.NewError(vfs.OpValidate, p.String(), vfs.ErrForbidden)
	}
	return full, nil
}

func (f *FS) checkWritable(op, path string) error {
	if f.readOnly {
		return vfs.NewError(op, path, vfs.ErrReadOnly)
	}
	return nil
}

func (f *FS) FileExists(ctx context.Context, p vfs.Path) (bool, error) {
	full, err := f.resolve(p)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return false, nil
	}
	return !info.IsDir(), nil
}

func (f *FS) DirExists(ctx context.Context, p vfs.Path) (bool, error) {
	full, err := f.resolve(p)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return false, nil
	}
	return info.IsDir(), nil
}

// FileStat reports Exists or NotFound. Real is a thin passthrough with no
// tombstone bookkeeping, so Deleted is never reported (spec §4.5).
func (f *FS) FileStat(ctx context.Context, p vfs.Path) (vfs.FileStatus, error) {
	exists, err := f.FileExists(ctx, p)
	if err != nil {
		return vfs.StatusNotFound, err
	}
	if exists {
		return vfs.StatusExists, nil
	}
	return vfs.StatusNotFound, nil
}

func (f *FS) CreateDirectory(ctx context.Context, p vfs.Path) (vfs.FileEntry, error) {
	if err := f.checkWritable(vfs.OpMkdir, p.String()); err != nil {
		return nil, err
	}
	full, err := f.resolve(p)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(full, 0o755); err != nil {
		return nil, vfs.NewError(vfs.OpMkdir, p.String(), err)
	}
	log.Debug("created directory %q", p.String())
	return vfs.NewDirEntry(p, f), nil
}

func (f *FS) CreateFile(ctx context.Context, p vfs.Path) (vfs.FileEntry, error) {
	if err := f.checkWritable(vfs.OpCreate, p.String()); err != nil {
		return nil, err
	}
	full, err := f.resolve(p)
	if err != nil {
		return nil, err
	}
	file, err := os.OpenFile(full, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, vfs.NewError(vfs.OpCreate, p.String(), vfs.ErrNotFound)
		}
		return nil, vfs.NewError(vfs.OpCreate, p.String(), err)
	}
	log.Debug("created file %q", p.String())
	return vfs.NewFileRWEntry(p, f, newFileStream(file, true, true)), nil
}

func (f *FS) OpenFileRead(ctx context.Context, p vfs.Path) (vfs.FileEntry, error) {
	full, err := f.resolve(p)
	if err != nil {
		return nil, err
	}
	file, err := os.OpenFile(full, os.O_RDONLY, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, vfs.NewError(vfs.OpOpenRead, p.String(), err)
	}
	return vfs.NewFileROEntry(p, f, newFileStream(file, true, false)), nil
}

// OpenFileWrite returns nil, nil if the file is absent — Real's chosen
// policy for the open question in spec §9 (ObjectStore mirrors this;
// Memory instead creates).
func (f *FS) OpenFileWrite(ctx context.Context, p vfs.Path) (vfs.FileEntry, error) {
	if err := f.checkWritable(vfs.OpOpenWrite, p.String()); err != nil {
		return nil, err
	}
	full, err := f.resolve(p)
	if err != nil {
		return nil, err
	}
	file, err := os.OpenFile(full, os.O_WRONLY, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, vfs.NewError(vfs.OpOpenWrite, p.String(), err)
	}
	return vfs.NewFileWOEntry(p, f, newFileStream(file, false, true)), nil
}

// OpenFileReadWrite creates the file if absent, matching Memory's policy.
func (f *FS) OpenFileReadWrite(ctx context.Context, p vfs.Path) (vfs.FileEntry, error) {
	if err := f.checkWritable(vfs.OpOpenRW, p.String()); err != nil {
		return nil, err
	}
	full, err := f.resolve(p)
	if err != nil {
		return nil, err
	}
	file, err := os.OpenFile(full, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, vfs.NewError(vfs.OpOpenRW, p.String(), err)
	}
	return vfs.NewFileRWEntry(p, f, newFileStream(file, true, true)), nil
}

func (f *FS) DeleteFile(ctx context.Context, p vfs.Path) (bool, error) {
	if err := f.checkWritable(vfs.OpDelete, p.String()); err != nil {
		return false, err
	}
	full, err := f.resolve(p)
	if err != nil {
		return false, err
	}
	if err := os.Remove(full); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, vfs.NewError(vfs.OpDelete, p.String(), err)
	}
	log.Debug("deleted file %q", p.String())
	return true, nil
}

func (f *FS) DeleteDirectory(ctx context.Context, p vfs.Path, recursive bool) (bool, error) {
	if err := f.checkWritable(vfs.OpDeleteDir, p.String()); err != nil {
		return false, err
	}
	full, err := f.resolve(p)
	if err != nil {
		return false, err
	}
	if recursive {
		if err := os.RemoveAll(full); err != nil {
			return false, vfs.NewError(vfs.OpDeleteDir, p.String(), err)
		}
		return true, nil
	}
	if err := os.Remove(full); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		if isNotEmpty(err) {
			return false, vfs.NewError(vfs.OpDeleteDir, p.String(), vfs.ErrDirectoryNotEmpty)
		}
		return false, vfs.NewError(vfs.OpDeleteDir, p.String(), err)
	}
	return true, nil
}

func isNotEmpty(err error) bool {
	return strings.Contains(err.Error(), "not empty") || strings.Contains(err.Error(), "directory not empty")
}

// Integrate is create-then-copy, per spec §4.5.
func (f *FS) Integrate(ctx context.Context, p vfs.Path, readable vfs.FileEntry) (vfs.FileEntry, error) {
	entry, err := f.CreateFile(ctx, p)
	if err != nil {
		return nil, err
	}
	if _, err := vfs.EntryStream(readable).CopyTo(ctx, vfs.EntryStream(entry)); err != nil {
		return nil, vfs.NewError(vfs.OpIntegrate, p.String(), err)
	}
	return entry, nil
}

func (f *FS) Entries(ctx context.Context, p vfs.Path, mode vfs.ListMode) ([]vfs.FileEntry, error) {
	full, err := f.resolve(p)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(full); err != nil {
		return nil, vfs.NewError(vfs.OpEntries, p.String(), vfs.ErrNotFound)
	}
	var out []vfs.FileEntry
	if err := f.collect(full, p, mode, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (f *FS) collect(fullDir string, virtualDir vfs.Path, mode vfs.ListMode, out *[]vfs.FileEntry) error {
	dirents, err := os.ReadDir(fullDir)
	if err != nil {
		return vfs.NewError(vfs.OpEntries, virtualDir.String(), err)
	}
	sort.Slice(dirents, func(i, j int) bool { return dirents[i].Name() < dirents[j].Name() })
	for _, de := range dirents {
		childPath, err := virtualDir.Append(de.Name())
		if err != nil {
			continue
		}
		if mode.Match(de.Name()) {
			if de.IsDir() {
				*out = append(*out, vfs.NewDirEntry(childPath, f))
			} else {
				*out = append(*out, vfs.NewFileRefEntry(childPath, f))
			}
		}
		if mode.IsRecursive() && de.IsDir() {
			if err := f.collect(filepath.Join(fullDir, de.Name()), childPath, mode, out); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *FS) At(ctx context.Context, p vfs.Path, writable bool) (vfs.FileSystem, error) {
	full, err := f.resolve(p)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(full)
	if err != nil || !info.IsDir() {
		return nil, vfs.NewError(vfs.OpAt, p.String(), vfs.ErrNotFound)
	}
	if writable && f.readOnly {
		return nil, vfs.NewError(vfs.OpAt, p.String(), vfs.ErrUpgradeNotPermitted)
	}
	return &FS{root: full, readOnly: f.readOnly || !writable}, nil
}

var _ vfs.FileSystem = (*FS)(nil)
