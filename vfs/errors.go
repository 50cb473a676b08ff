// Package vfs defines the virtual file system contract: validated paths,
// capability-typed streams, tagged file entries, and the FileSystem
// interface every backend implements.
package vfs

import (
	"errors"
	"fmt"
)

// Sentinel errors identifying the taxonomy from the design's error model.
// Backends return these (optionally wrapped in *Error) so callers can match
// with errors.Is regardless of which backend produced the failure.
var (
	ErrPathEmpty           = errors.New("vfs: path is empty")
	ErrPathInvalidChars    = errors.New("vfs: path contains invalid characters")
	ErrPathDottedSegments  = errors.New("vfs: path contains dotted segments")
	ErrPathInvalid         = errors.New("vfs: path is malformed")
	ErrNotFound            = errors.New("vfs: not found")
	ErrReadOnly            = errors.New("vfs: file system is read-only")
	ErrForbidden           = errors.New("vfs: path escapes backend root")
	ErrNotSupported        = errors.New("vfs: operation not supported by this stream")
	ErrAlreadyExists       = errors.New("vfs: already exists")
	ErrDirectoryNotEmpty   = errors.New("vfs: directory not empty")
	ErrWriteLimitExceeded  = errors.New("vfs: write exceeds configured limit")
	ErrUpgradeNotPermitted = errors.New("vfs: cannot open a read-only file system for writing")
)

// Error wraps a failed operation with the path it was attempted against,
// mirroring VMapFS's fs.Error so callers get consistent "op on path failed:
// cause" messages across every backend.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("vfs: %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("vfs: %s on %q failed: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds an *Error. op should be a short verb like "open" or
// "delete"; path may be empty when the failure isn't about a specific path.
func NewError(op, path string, err error) *Error {
	return &Error{Op: op, Path: path, Err: err}
}

// Common operation names, kept consistent across backends for logging and
// error messages.
const (
	OpValidate  = "validate"
	OpExists    = "exists"
	OpStat      = "stat"
	OpCreate    = "create"
	OpMkdir     = "mkdir"
	OpOpenRead  = "open-read"
	OpOpenWrite = "open-write"
	OpOpenRW    = "open-readwrite"
	OpDelete    = "delete"
	OpDeleteDir = "delete-dir"
	OpIntegrate = "integrate"
	OpEntries   = "entries"
	OpAt        = "at"
	OpRead      = "read"
	OpWrite     = "write"
	OpFlush     = "flush"
	OpSetLength = "set-length"
)
