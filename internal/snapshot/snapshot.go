// Package snapshot captures and restores a vfs.FileSystem tree as a single
// JSON document, for a MemoryBackend that a host process wants to survive a
// restart. Adapted from VMapFS's internal/state.FSState (internal/state/types.go),
// which serialized a virtual-path-to-source-path table the same way.
package snapshot

import (
	"context"
	"encoding/base64"
	"io"

	"vfscore/vfs"
)

// Snapshot is the JSON-serializable form of a FileSystem tree: every
// directory path, and every file path with its content base64-encoded.
type Snapshot struct {
	Version     int               `json:"version"`
	Directories []string          `json:"directories"`
	Files       map[string]string `json:"files"`
}

// Capture walks fs depth-first from the root and records every directory
// and file it finds.
func Capture(ctx context.Context, fs vfs.FileSystem) (*Snapshot, error) {
	snap := &Snapshot{Version: 1, Files: make(map[string]string)}
	if err := captureDir(ctx, fs, vfs.Root(), snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func captureDir(ctx context.Context, fs vfs.FileSystem, dir vfs.Path, snap *Snapshot) error {
	entries, err := fs.Entries(ctx, dir, vfs.Shallow("*"))
	if err != nil {
		return err
	}
	for _, e := range entries {
		switch e.Kind() {
		case vfs.KindDirectory:
			snap.Directories = append(snap.Directories, e.Path().String())
			if err := captureDir(ctx, fs, e.Path(), snap); err != nil {
				return err
			}
		case vfs.KindFileRef:
			entry, err := fs.OpenFileRead(ctx, e.Path())
			if err != nil {
				return err
			}
			if entry == nil {
				continue
			}
			data, err := io.ReadAll(streamReader{ctx: ctx, s: vfs.EntryStream(entry)})
			vfs.EntryStream(entry).Close()
			if err != nil {
				return err
			}
			snap.Files[e.Path().String()] = base64.StdEncoding.EncodeToString(data)
		}
	}
	return nil
}

// Restore recreates every directory and file snap recorded into fs,
// overwriting any existing file at the same path.
func Restore(ctx context.Context, fs vfs.FileSystem, snap *Snapshot) error {
	for _, dir := range snap.Directories {
		if _, err := fs.CreateDirectory(ctx, vfs.MustPath(dir)); err != nil {
			return err
		}
	}
	for path, encoded := range snap.Files {
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return err
		}
		entry, err := fs.CreateFile(ctx, vfs.MustPath(path))
		if err != nil {
			return err
		}
		s := vfs.EntryStream(entry)
		if _, err := s.Write(ctx, data); err != nil {
			return err
		}
		if err := s.Flush(ctx); err != nil {
			return err
		}
		s.Close()
	}
	return nil
}

// streamReader adapts a vfs.Stream to io.Reader for io.ReadAll, fixing ctx.
type streamReader struct {
	ctx context.Context
	s   vfs.Stream
}

func (r streamReader) Read(buf []byte) (int, error) {
	return r.s.Read(r.ctx, buf)
}
