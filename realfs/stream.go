package realfs

import (
	"context"
	"io"
	"os"
	"sync"

	"vfscore/vfs"
)

// fileStream is the Concrete adapter over a host *os.File, grounded on
// VMapFS's FileHandle (internal/fs/file.go), which reads via ReadAt so
// concurrent handles over the same descriptor don't race on a shared
// cursor. Position is tracked explicitly rather than delegated to the
// descriptor's own offset.
type fileStream struct {
	mu       sync.Mutex
	file     *os.File
	pos      int64
	readable bool
	writable bool
}

func newFileStream(f *os.File, readable, writable bool) *fileStream {
	return &fileStream{file: f, readable: readable, writable: writable}
}

func (s *fileStream) Read(ctx context.Context, buf []byte) (int, error) {
	if !s.readable {
		return 0, vfs.NewError(vfs.OpRead, s.file.Name(), vfs.ErrNotSupported)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.file.ReadAt(buf, s.pos)
	s.pos += int64(n)
	if err == io.EOF {
		return n, io.EOF
	}
	return n, err
}

func (s *fileStream) Write(ctx context.Context, buf []byte) (int, error) {
	if !s.writable {
		return 0, vfs.NewError(vfs.OpWrite, s.file.Name(), vfs.ErrNotSupported)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.file.WriteAt(buf, s.pos)
	s.pos += int64(n)
	return n, err
}

func (s *fileStream) CopyTo(ctx context.Context, dest vfs.Stream) (int64, error) {
	buf := make([]byte, 32*1024)
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, rerr := s.Read(ctx, buf)
		if n > 0 {
			wn, werr := dest.Write(ctx, buf[:n])
			total += int64(wn)
			if werr != nil {
				return total, werr
			}
		}
		if rerr == io.EOF {
			return total, nil
		}
		if rerr != nil {
			return total, rerr
		}
	}
}

func (s *fileStream) Flush(ctx context.Context) error {
	return s.file.Sync()
}

func (s *fileStream) SetLength(ctx context.Context, n int64) error {
	if !s.writable {
		return vfs.NewError(vfs.OpSetLength, s.file.Name(), vfs.ErrNotSupported)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.file.Truncate(n); err != nil {
		return err
	}
	if n == 0 {
		s.pos = 0
	}
	return nil
}

func (s *fileStream) Close() error { return s.file.Close() }

func (s *fileStream) Length() int64 {
	info, err := s.file.Stat()
	if err != nil {
		return 0
	}
	return info.Size()
}

func (s *fileStream) Position() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

func (s *fileStream) Readable() bool { return s.readable }
func (s *fileStream) Writable() bool { return s.writable }
func (s *fileStream) Owned() bool    { return true }

var _ vfs.Stream = (*fileStream)(nil)
