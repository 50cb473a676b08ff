// Package fuseadapter mounts any vfs.FileSystem as a FUSE filesystem.
// Adapted from VMapFS's internal/fs package (vmapfs.go, dir.go, file.go):
// same bazil.org/fuse node types and FSName/Subtype/AllowOther mount
// options, generalized from a read-only source-path mapper to the full
// vfs.FileSystem contract.
package fuseadapter

import (
	"errors"
	"syscall"

	"vfscore/vfs"
)

// toErrno translates a vfs error into the syscall.Errno FUSE expects,
// mirroring VMapFS's ToFuseError but matching vfs.Error's kinds instead of
// its own.
func toErrno(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, vfs.ErrNotFound):
		return syscall.ENOENT
	case errors.Is(err, vfs.ErrAlreadyExists):
		return syscall.EEXIST
	case errors.Is(err, vfs.ErrReadOnly), errors.Is(err, vfs.ErrUpgradeNotPermitted):
		return syscall.EROFS
	case errors.Is(err, vfs.ErrForbidden):
		return syscall.EACCES
	case errors.Is(err, vfs.ErrDirectoryNotEmpty):
		return syscall.ENOTEMPTY
	case errors.Is(err, vfs.ErrNotSupported):
		return syscall.ENOTSUP
	case errors.Is(err, vfs.ErrWriteLimitExceeded):
		return syscall.EFBIG
	case errors.Is(err, vfs.ErrPathInvalid), errors.Is(err, vfs.ErrPathEmpty),
		errors.Is(err, vfs.ErrPathInvalidChars), errors.Is(err, vfs.ErrPathDottedSegments):
		return syscall.EINVAL
	default:
		return syscall.EIO
	}
}
