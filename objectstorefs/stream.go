package objectstorefs

import (
	"bytes"
	"context"
	"io"

	"vfscore/mimetype"
	"vfscore/vfs"
)

// writeThroughStream buffers writes in memory and uploads the buffer's full
// contents as a single object on Flush. Grounded on isgasho-lakeFS's
// pyramid.ImmutableTierFS, which likewise accumulates writes locally and
// pushes to the block store only when the local handle is sealed.
type writeThroughStream struct {
	fs          *FS
	key         string
	contentType string
	mem         *vfs.MemoryStream
}

func newWriteThroughStream(fs *FS, key, ext string, mem *vfs.MemoryStream) *writeThroughStream {
	return &writeThroughStream{fs: fs, key: key, contentType: mimetype.ForExtension(ext), mem: mem}
}

func (w *writeThroughStream) Read(ctx context.Context, buf []byte) (int, error) {
	return w.mem.Read(ctx, buf)
}

func (w *writeThroughStream) Write(ctx context.Context, buf []byte) (int, error) {
	return w.mem.Write(ctx, buf)
}

func (w *writeThroughStream) CopyTo(ctx context.Context, dest vfs.Stream) (int64, error) {
	return w.mem.CopyTo(ctx, dest)
}

func (w *writeThroughStream) Flush(ctx context.Context) error {
	if err := w.fs.ensureBucket(ctx); err != nil {
		return err
	}
	data := w.mem.Bytes()
	if err := w.fs.client.PutObject(ctx, w.key, bytes.NewReader(data), int64(len(data)), w.contentType); err != nil {
		return err
	}
	log.Debug("flushed %q (%d bytes)", w.key, len(data))
	return nil
}

func (w *writeThroughStream) SetLength(ctx context.Context, n int64) error {
	return w.mem.SetLength(ctx, n)
}

func (w *writeThroughStream) Close() error {
	w.fs.unmarkFile(w.key)
	return w.mem.Close()
}

func (w *writeThroughStream) Length() int64   { return w.mem.Length() }
func (w *writeThroughStream) Position() int64 { return w.mem.Position() }
func (w *writeThroughStream) Readable() bool  { return true }
func (w *writeThroughStream) Writable() bool  { return true }
func (w *writeThroughStream) Owned() bool     { return true }

var _ vfs.Stream = (*writeThroughStream)(nil)

// newReaderStream adapts a GetObject response body to the Stream contract:
// forward-only, advertising size as its Length.
func newReaderStream(body io.ReadCloser, size int64) vfs.Stream {
	var pos int64
	return &vfs.FunctionalStream{
		ReadFunc: func(ctx context.Context, buf []byte) (int, error) {
			n, err := body.Read(buf)
			pos += int64(n)
			return n, err
		},
		CloseFunc:    body.Close,
		LengthFunc:   func() int64 { return size },
		PositionFunc: func() int64 { return pos },
		IsReadable:   true,
		IsOwned:      true,
	}
}
