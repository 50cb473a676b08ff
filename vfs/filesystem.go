package vfs

import "context"

// FileStatus is the outcome of FileSystem.FileStat. Deleted is only
// observable through a backend's tombstone (or Overlay's upper-shadowing)
// bookkeeping; it is distinct from NotFound, which means "no record of this
// path exists at all".
type FileStatus int

const (
	StatusExists FileStatus = iota
	StatusNotFound
	StatusDeleted
)

func (s FileStatus) String() string {
	switch s {
	case StatusExists:
		return "Exists"
	case StatusNotFound:
		return "NotFound"
	case StatusDeleted:
		return "Deleted"
	default:
		return "Unknown"
	}
}

// FileSystem is the common contract every backend implements: existence
// and status checks, create/delete, open in each capability mode,
// cross-backend integrate, directory listing, and sub-mounting via at.
// Every operation accepts a context.Context first and should return
// promptly once it is cancelled.
type FileSystem interface {
	// FileExists reports whether p names a file (not a directory).
	FileExists(ctx context.Context, p Path) (bool, error)
	// DirExists reports whether p names a directory.
	DirExists(ctx context.Context, p Path) (bool, error)
	// FileStat reports p's status: Exists, NotFound, or Deleted.
	FileStat(ctx context.Context, p Path) (FileStatus, error)

	// CreateFile creates (or replaces) an empty file at p, returning a
	// FileRW handle. Fails with ErrReadOnly. A missing parent is
	// backend-defined: memoryfs and objectstorefs create it implicitly,
	// realfs fails with ErrNotFound.
	CreateFile(ctx context.Context, p Path) (FileEntry, error)
	// CreateDirectory creates p and any missing intermediate directories.
	// Idempotent for an already-existing directory. Fails with ErrReadOnly.
	CreateDirectory(ctx context.Context, p Path) (FileEntry, error)

	// OpenFileRead opens p for reading, returning nil if p is absent.
	OpenFileRead(ctx context.Context, p Path) (FileEntry, error)
	// OpenFileWrite opens p for writing. Absent-file policy is
	// backend-defined (see each backend's doc comment).
	OpenFileWrite(ctx context.Context, p Path) (FileEntry, error)
	// OpenFileReadWrite opens p for both reading and writing, creating it
	// if absent where the backend's policy says so.
	OpenFileReadWrite(ctx context.Context, p Path) (FileEntry, error)

	// DeleteFile removes the file at p, returning true iff a file was
	// actually present to remove. Fails with ErrReadOnly.
	DeleteFile(ctx context.Context, p Path) (bool, error)
	// DeleteDirectory removes the directory at p. If recursive is false
	// and the directory is non-empty, the outcome is backend-defined.
	DeleteDirectory(ctx context.Context, p Path, recursive bool) (bool, error)

	// Integrate creates or replaces the file at p in this FileSystem by
	// bulk-copying from readable's contents. Fails with ErrReadOnly.
	Integrate(ctx context.Context, p Path, readable FileEntry) (FileEntry, error)

	// Entries lists the contents of directory p according to mode.
	Entries(ctx context.Context, p Path, mode ListMode) ([]FileEntry, error)

	// At returns a sub-FileSystem rooted at p. writable requests a
	// read-write sub-FS; requesting writable=true on a read-only parent
	// fails with ErrUpgradeNotPermitted.
	At(ctx context.Context, p Path, writable bool) (FileSystem, error)

	// ReadOnly reports whether mutating operations on this FileSystem fail.
	ReadOnly() bool
}
