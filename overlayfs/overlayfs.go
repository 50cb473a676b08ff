// Package overlayfs composes a read-only lower vfs.FileSystem with a
// mutable upper one, shadowing lower entries with upper tombstones and
// copying lower files up to the upper layer when opened for writing. Grounded on
// spec §4.7; the copy-up primitive reuses FileSystem.Integrate exactly as
// spec §4.3 describes it ("Overlay uses it to copy-up lower files into the
// upper layer").
package overlayfs

import (
	"context"

	"vfscore/internal/logging"
	"vfscore/vfs"
)

var log = logging.GetLogger().WithPrefix("overlayfs")

// FS layers upper over lower. ReadOnly mirrors upper's flag: the overlay is
// only as writable as its mutable layer.
type FS struct {
	lower vfs.FileSystem
	upper vfs.FileSystem
}

// New composes lower (read-only source) with upper (mutable target).
func New(lower, upper vfs.FileSystem) *FS {
	return &FS{lower: lower, upper: upper}
}

func (f *FS) ReadOnly() bool { return f.upper.ReadOnly() }

func (f *FS) FileExists(ctx context.Context, p vfs.Path) (bool, error) {
	status, err := f.FileStat(ctx, p)
	if err != nil {
		return false, err
	}
	return status == vfs.StatusExists, nil
}

func (f *FS) DirExists(ctx context.Context, p vfs.Path) (bool, error) {
	if ok, err := f.upper.DirExists(ctx, p); err != nil || ok {
		return ok, err
	}
	return f.lower.DirExists(ctx, p)
}

// FileStat consults upper first; a Deleted or Exists verdict from upper is
// authoritative (a tombstone in upper shadows a same-named lower file).
// Only when upper reports NotFound does lower get consulted.
func (f *FS) FileStat(ctx context.Context, p vfs.Path) (vfs.FileStatus, error) {
	status, err := f.upper.FileStat(ctx, p)
	if err != nil {
		return vfs.StatusNotFound, err
	}
	if status != vfs.StatusNotFound {
		return status, nil
	}
	return f.lower.FileStat(ctx, p)
}

func (f *FS) CreateDirectory(ctx context.Context, p vfs.Path) (vfs.FileEntry, error) {
	return f.upper.CreateDirectory(ctx, p)
}

func (f *FS) CreateFile(ctx context.Context, p vfs.Path) (vfs.FileEntry, error) {
	return f.upper.CreateFile(ctx, p)
}

// OpenFileRead prefers upper; falls back to lower when upper has no record
// at all (NotFound). A tombstoned upper entry (Deleted) hides lower.
func (f *FS) OpenFileRead(ctx context.Context, p vfs.Path) (vfs.FileEntry, error) {
	status, err := f.upper.FileStat(ctx, p)
	if err != nil {
		return nil, err
	}
	switch status {
	case vfs.StatusExists:
		return f.upper.OpenFileRead(ctx, p)
	case vfs.StatusDeleted:
		return nil, nil
	default:
		return f.lower.OpenFileRead(ctx, p)
	}
}

// copyUp materializes p from lower into upper via Integrate, returning the
// resulting handle. Per spec §5's ordering guarantee, this forms a single
// critical section from the caller's perspective.
func (f *FS) copyUp(ctx context.Context, p vfs.Path) (vfs.FileEntry, error) {
	lowerEntry, err := f.lower.OpenFileRead(ctx, p)
	if err != nil {
		return nil, err
	}
	if lowerEntry == nil {
		return f.upper.CreateFile(ctx, p)
	}
	log.Debug("copy-up %q", p.String())
	return f.upper.Integrate(ctx, p, lowerEntry)
}

// OpenFileReadWrite opens in upper if present there; copies up from lower at
// open time if only lower has it; creates empty in upper if absent in both.
func (f *FS) OpenFileReadWrite(ctx context.Context, p vfs.Path) (vfs.FileEntry, error) {
	upperExists, err := f.upper.FileExists(ctx, p)
	if err != nil {
		return nil, err
	}
	if upperExists {
		return f.upper.OpenFileReadWrite(ctx, p)
	}
	lowerExists, err := f.lower.FileExists(ctx, p)
	if err != nil {
		return nil, err
	}
	if lowerExists {
		return f.copyUp(ctx, p)
	}
	return f.upper.CreateFile(ctx, p)
}

// OpenFileWrite follows the same copy-up strategy as OpenFileReadWrite, then
// wraps the resulting handle's stream write-only.
func (f *FS) OpenFileWrite(ctx context.Context, p vfs.Path) (vfs.FileEntry, error) {
	entry, err := f.OpenFileReadWrite(ctx, p)
	if err != nil || entry == nil {
		return entry, err
	}
	return vfs.NewFileWOEntry(p, f, vfs.NewWriteOnly(vfs.EntryStream(entry))), nil
}

func (f *FS) DeleteFile(ctx context.Context, p vfs.Path) (bool, error) {
	return f.upper.DeleteFile(ctx, p)
}

func (f *FS) DeleteDirectory(ctx context.Context, p vfs.Path, recursive bool) (bool, error) {
	return f.upper.DeleteDirectory(ctx, p, recursive)
}

func (f *FS) Integrate(ctx context.Context, p vfs.Path, readable vfs.FileEntry) (vfs.FileEntry, error) {
	return f.upper.Integrate(ctx, p, readable)
}

// Entries yields every upper entry, then every lower entry whose path upper
// didn't already report and whose upper status is not Deleted.
func (f *FS) Entries(ctx context.Context, p vfs.Path, mode vfs.ListMode) ([]vfs.FileEntry, error) {
	upperEntries, err := f.upper.Entries(ctx, p, mode)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(upperEntries))
	for _, e := range upperEntries {
		seen[e.Path().String()] = true
	}

	lowerEntries, err := f.lower.Entries(ctx, p, mode)
	if err != nil {
		return nil, err
	}

	out := make([]vfs.FileEntry, 0, len(upperEntries)+len(lowerEntries))
	out = append(out, upperEntries...)
	for _, e := range lowerEntries {
		key := e.Path().String()
		if seen[key] {
			continue
		}
		status, err := f.upper.FileStat(ctx, e.Path())
		if err != nil {
			return nil, err
		}
		if status == vfs.StatusDeleted {
			continue
		}
		if e.Kind() == vfs.KindDirectory {
			out = append(out, vfs.NewDirEntry(e.Path(), f))
		} else {
			out = append(out, vfs.NewFileRefEntry(e.Path(), f))
		}
	}
	return out, nil
}

// At composes recursively: the result overlays lower.At(p, false) with
// upper.At(p, writable). Lower is always opened read-only; only upper
// receives the requested mode.
func (f *FS) At(ctx context.Context, p vfs.Path, writable bool) (vfs.FileSystem, error) {
	lowerSub, err := f.lower.At(ctx, p, false)
	if err != nil {
		return nil, err
	}
	upperSub, err := f.upper.At(ctx, p, writable)
	if err != nil {
		return nil, err
	}
	return New(lowerSub, upperSub), nil
}

var _ vfs.FileSystem = (*FS)(nil)
