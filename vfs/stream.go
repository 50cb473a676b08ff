package vfs

import (
	"context"
	"io"
	"sync"
)

// Stream is a byte sequence with capability flags (readable, writable,
// owned) and a cursor. Every operation that can block accepts a context and
// returns ctx.Err() promptly once it is cancelled; cancellation is a
// distinct signal from the Error taxonomy (spec §7).
type Stream interface {
	// Read reads into buf starting at the current position, advancing it.
	Read(ctx context.Context, buf []byte) (int, error)
	// Write writes buf at the current position, advancing it.
	Write(ctx context.Context, buf []byte) (int, error)
	// CopyTo drains the remainder of the stream into dest.
	CopyTo(ctx context.Context, dest Stream) (int64, error)
	// Flush persists buffered writes to the backing store, if any.
	Flush(ctx context.Context) error
	// SetLength truncates or extends the stream to n bytes.
	SetLength(ctx context.Context, n int64) error
	// Close disposes the stream. An owning stream releases its underlying
	// resource; a non-owning view only resets its own position.
	Close() error

	Length() int64
	Position() int64

	Readable() bool
	Writable() bool
	Owned() bool
}

// IntoMemory drains stream (via CopyTo) into a fresh in-memory stream
// positioned at zero, giving the caller a random-access view of an
// otherwise forward-only backend stream.
func IntoMemory(ctx context.Context, s Stream) (Stream, error) {
	dst := NewMemoryStream(nil)
	if _, err := s.CopyTo(ctx, dst); err != nil {
		return nil, err
	}
	dst.pos = 0
	return dst, nil
}

// MemoryStream is the Concrete variant backed by an in-memory byte buffer.
// It underlies MemoryBackend files and ObjectStoreBackend's write-through
// buffers.
type MemoryStream struct {
	mu    sync.Mutex
	data  []byte
	pos   int64
	owned bool
}

// NewMemoryStream wraps data (copied) as a readable, writable, owned
// stream positioned at zero.
func NewMemoryStream(data []byte) *MemoryStream {
	buf := make([]byte, len(data))
	copy(buf, data)
	return &MemoryStream{data: buf, owned: true}
}

func (s *MemoryStream) Read(ctx context.Context, buf []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos >= int64(len(s.data)) {
		return 0, io.EOF
	}
	n := copy(buf, s.data[s.pos:])
	s.pos += int64(n)
	return n, nil
}

func (s *MemoryStream) Write(ctx context.Context, buf []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	end := s.pos + int64(len(buf))
	if end > int64(len(s.data)) {
		grown := make([]byte, end)
		copy(grown, s.data)
		s.data = grown
	}
	n := copy(s.data[s.pos:end], buf)
	s.pos += int64(n)
	return n, nil
}

func (s *MemoryStream) CopyTo(ctx context.Context, dest Stream) (int64, error) {
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

func (s *MemoryStream) Flush(ctx context.Context) error { return nil }

func (s *MemoryStream) SetLength(ctx context.Context, n int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 0 {
		n = 0
	}
	if n <= int64(len(s.data)) {
		s.data = s.data[:n]
	} else {
		grown := make([]byte, n)
		copy(grown, s.data)
		s.data = grown
	}
	if s.pos > n {
		s.pos = n
	}
	return nil
}

func (s *MemoryStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = nil
	return nil
}

func (s *MemoryStream) Length() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.data))
}

func (s *MemoryStream) Position() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

func (s *MemoryStream) Readable() bool { return true }
func (s *MemoryStream) Writable() bool { return true }
func (s *MemoryStream) Owned() bool    { return s.owned }

// Bytes returns a copy of the stream's current contents, for callers that
// need the whole buffer (e.g. ObjectStoreBackend's flush).
func (s *MemoryStream) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out
}

// mirrorStream is a non-owning view over an underlying stream: dispose
// resets only the view's own position, never the origin's resource.
type mirrorStream struct {
	origin Stream
	pos    int64
}

// NewMirror returns a non-owning view over origin. Multiple mirrors may be
// held concurrently; each tracks its own position. This is how
// MemoryBackend hands out independent readers/writers over one underlying
// stream.
func NewMirror(origin Stream) Stream {
	return &mirrorStream{origin: origin}
}

func (m *mirrorStream) Read(ctx context.Context, buf []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	ms, ok := m.origin.(*MemoryStream)
	if !ok {
		return 0, ErrNotSupported
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if m.pos >= int64(len(ms.data)) {
		return 0, io.EOF
	}
	n := copy(buf, ms.data[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *mirrorStream) Write(ctx context.Context, buf []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	ms, ok := m.origin.(*MemoryStream)
	if !ok {
		return 0, ErrNotSupported
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	end := m.pos + int64(len(buf))
	if end > int64(len(ms.data)) {
		grown := make([]byte, end)
		copy(grown, ms.data)
		ms.data = grown
	}
	n := copy(ms.data[m.pos:end], buf)
	m.pos += int64(n)
	return n, nil
}

func (m *mirrorStream) CopyTo(ctx context.Context, dest Stream) (int64, error) {
	return genericCopy(ctx, m, dest)
}

func (m *mirrorStream) Flush(ctx context.Context) error { return m.origin.Flush(ctx) }

func (m *mirrorStream) SetLength(ctx context.Context, n int64) error {
	return m.origin.SetLength(ctx, n)
}

// Close resets the mirror's own position only; the origin is unaffected.
func (m *mirrorStream) Close() error {
	m.pos = 0
	return nil
}

func (m *mirrorStream) Length() int64   { return m.origin.Length() }
func (m *mirrorStream) Position() int64 { return m.pos }
func (m *mirrorStream) Readable() bool  { return m.origin.Readable() }
func (m *mirrorStream) Writable() bool  { return m.origin.Writable() }
func (m *mirrorStream) Owned() bool     { return false }

func genericCopy(ctx context.Context, src, dest Stream) (int64, error) {
	buf := make([]byte, 32*1024)
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, rerr := src.Read(ctx, buf)
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

// readOnlyStream rejects writes with ErrNotSupported.
type readOnlyStream struct{ inner Stream }

// NewReadOnly wraps inner, rejecting Write and SetLength.
func NewReadOnly(inner Stream) Stream { return &readOnlyStream{inner: inner} }

func (r *readOnlyStream) Read(ctx context.Context, buf []byte) (int, error) {
	return r.inner.Read(ctx, buf)
}
func (r *readOnlyStream) Write(ctx context.Context, buf []byte) (int, error) {
	return 0, NewError(OpWrite, "", ErrNotSupported)
}
func (r *readOnlyStream) CopyTo(ctx context.Context, dest Stream) (int64, error) {
	return r.inner.CopyTo(ctx, dest)
}
func (r *readOnlyStream) Flush(ctx context.Context) error { return nil }
func (r *readOnlyStream) SetLength(ctx context.Context, n int64) error {
	return NewError(OpSetLength, "", ErrNotSupported)
}
func (r *readOnlyStream) Close() error     { return r.inner.Close() }
func (r *readOnlyStream) Length() int64    { return r.inner.Length() }
func (r *readOnlyStream) Position() int64  { return r.inner.Position() }
func (r *readOnlyStream) Readable() bool   { return true }
func (r *readOnlyStream) Writable() bool   { return false }
func (r *readOnlyStream) Owned() bool      { return r.inner.Owned() }

// writeOnlyStream rejects reads with ErrNotSupported.
type writeOnlyStream struct{ inner Stream }

// NewWriteOnly wraps inner, rejecting Read.
func NewWriteOnly(inner Stream) Stream { return &writeOnlyStream{inner: inner} }

func (w *writeOnlyStream) Read(ctx context.Context, buf []byte) (int, error) {
	return 0, NewError(OpRead, "", ErrNotSupported)
}
func (w *writeOnlyStream) Write(ctx context.Context, buf []byte) (int, error) {
	return w.inner.Write(ctx, buf)
}
func (w *writeOnlyStream) CopyTo(ctx context.Context, dest Stream) (int64, error) {
	return 0, NewError(OpRead, "", ErrNotSupported)
}
func (w *writeOnlyStream) Flush(ctx context.Context) error { return w.inner.Flush(ctx) }
func (w *writeOnlyStream) SetLength(ctx context.Context, n int64) error {
	return w.inner.SetLength(ctx, n)
}
func (w *writeOnlyStream) Close() error     { return w.inner.Close() }
func (w *writeOnlyStream) Length() int64    { return w.inner.Length() }
func (w *writeOnlyStream) Position() int64  { return w.inner.Position() }
func (w *writeOnlyStream) Readable() bool   { return false }
func (w *writeOnlyStream) Writable() bool   { return true }
func (w *writeOnlyStream) Owned() bool      { return w.inner.Owned() }

// writeLimitedStream enforces a cumulative write cap; setLength(0) resets
// the counter, supporting "truncate and rewrite".
type writeLimitedStream struct {
	mu      sync.Mutex
	inner   Stream
	limit   int64
	written int64
}

// NewWriteLimited wraps inner with a cumulative byte cap n.
func NewWriteLimited(inner Stream, n int64) Stream {
	return &writeLimitedStream{inner: inner, limit: n}
}

func (w *writeLimitedStream) Read(ctx context.Context, buf []byte) (int, error) {
	return w.inner.Read(ctx, buf)
}

func (w *writeLimitedStream) Write(ctx context.Context, buf []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.written+int64(len(buf)) > w.limit {
		return 0, NewError(OpWrite, "", ErrWriteLimitExceeded)
	}
	n, err := w.inner.Write(ctx, buf)
	w.written += int64(n)
	return n, err
}

func (w *writeLimitedStream) CopyTo(ctx context.Context, dest Stream) (int64, error) {
	return genericCopy(ctx, w, dest)
}

func (w *writeLimitedStream) Flush(ctx context.Context) error { return w.inner.Flush(ctx) }

func (w *writeLimitedStream) SetLength(ctx context.Context, n int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if n == 0 {
		w.written = 0
	}
	return w.inner.SetLength(ctx, n)
}

func (w *writeLimitedStream) Close() error     { return w.inner.Close() }
func (w *writeLimitedStream) Length() int64    { return w.inner.Length() }
func (w *writeLimitedStream) Position() int64  { return w.inner.Position() }
func (w *writeLimitedStream) Readable() bool   { return w.inner.Readable() }
func (w *writeLimitedStream) Writable() bool   { return w.inner.Writable() }
func (w *writeLimitedStream) Owned() bool      { return w.inner.Owned() }

// copyOnWriteStream reads pass through to origin until the first write or
// setLength, at which point factory() materializes a private target,
// origin's contents (from position zero) are copied into it, and the
// current position is preserved. Subsequent operations target the private
// copy; origin is never mutated.
type copyOnWriteStream struct {
	mu      sync.Mutex
	origin  Stream
	factory func() Stream
	target  Stream // nil until materialized
	pos     int64
}

// NewCopyOnWrite returns a lazy clone of origin: reads see origin's
// contents until the first write, which materializes a private stream via
// factory.
func NewCopyOnWrite(origin Stream, factory func() Stream) Stream {
	return &copyOnWriteStream{origin: origin, factory: factory}
}

// materialize runs factory(), drains origin's full contents into the new
// target from position zero, then seeks the target to c.pos so writes
// continue from wherever reads had left off. Requires factory to produce a
// *MemoryStream, which every caller in this module does.
func (c *copyOnWriteStream) materialize(ctx context.Context) error {
	if c.target != nil {
		return nil
	}
	target := c.factory()
	mem, ok := target.(*MemoryStream)
	if !ok {
		return NewError(OpWrite, "", ErrNotSupported)
	}
	src := c.origin
	if ms, ok := c.origin.(*MemoryStream); ok {
		src = NewMemoryStream(ms.Bytes())
	}
	origin, err := IntoMemory(ctx, src)
	if err != nil {
		return err
	}
	if _, err := origin.CopyTo(ctx, mem); err != nil {
		return err
	}
	mem.pos = c.pos
	c.target = mem
	return nil
}

func (c *copyOnWriteStream) Read(ctx context.Context, buf []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int
	var err error
	if c.target != nil {
		n, err = c.target.Read(ctx, buf)
	} else {
		n, err = c.origin.Read(ctx, buf)
	}
	c.pos += int64(n)
	return n, err
}

func (c *copyOnWriteStream) Write(ctx context.Context, buf []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.materialize(ctx); err != nil {
		return 0, err
	}
	n, err := c.target.Write(ctx, buf)
	c.pos += int64(n)
	return n, err
}

func (c *copyOnWriteStream) CopyTo(ctx context.Context, dest Stream) (int64, error) {
	return genericCopy(ctx, c, dest)
}

func (c *copyOnWriteStream) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.target != nil {
		return c.target.Flush(ctx)
	}
	return nil
}

func (c *copyOnWriteStream) SetLength(ctx context.Context, n int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.materialize(ctx); err != nil {
		return err
	}
	return c.target.SetLength(ctx, n)
}

func (c *copyOnWriteStream) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.target != nil {
		return c.target.Close()
	}
	return nil
}

func (c *copyOnWriteStream) Length() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.target != nil {
		return c.target.Length()
	}
	return c.origin.Length()
}

func (c *copyOnWriteStream) Position() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos
}

func (c *copyOnWriteStream) Readable() bool { return true }
func (c *copyOnWriteStream) Writable() bool { return true }
func (c *copyOnWriteStream) Owned() bool    { return true }

// FunctionalStream adapts user-provided callables to the Stream contract,
// for backends needing custom read/write semantics (e.g. a GetObject
// response body in ObjectStoreBackend's open-read path).
type FunctionalStream struct {
	ReadFunc      func(ctx context.Context, buf []byte) (int, error)
	WriteFunc     func(ctx context.Context, buf []byte) (int, error)
	FlushFunc     func(ctx context.Context) error
	SetLengthFunc func(ctx context.Context, n int64) error
	CloseFunc     func() error
	LengthFunc    func() int64
	PositionFunc  func() int64
	IsReadable    bool
	IsWritable    bool
	IsOwned       bool
}

func (f *FunctionalStream) Read(ctx context.Context, buf []byte) (int, error) {
	if f.ReadFunc == nil {
		return 0, NewError(OpRead, "", ErrNotSupported)
	}
	return f.ReadFunc(ctx, buf)
}

func (f *FunctionalStream) Write(ctx context.Context, buf []byte) (int, error) {
	if f.WriteFunc == nil {
		return 0, NewError(OpWrite, "", ErrNotSupported)
	}
	return f.WriteFunc(ctx, buf)
}

func (f *FunctionalStream) CopyTo(ctx context.Context, dest Stream) (int64, error) {
	return genericCopy(ctx, f, dest)
}

func (f *FunctionalStream) Flush(ctx context.Context) error {
	if f.FlushFunc == nil {
		return nil
	}
	return f.FlushFunc(ctx)
}

func (f *FunctionalStream) SetLength(ctx context.Context, n int64) error {
	if f.SetLengthFunc == nil {
		return NewError(OpSetLength, "", ErrNotSupported)
	}
	return f.SetLengthFunc(ctx, n)
}

func (f *FunctionalStream) Close() error {
	if f.CloseFunc == nil {
		return nil
	}
	return f.CloseFunc()
}

func (f *FunctionalStream) Length() int64 {
	if f.LengthFunc == nil {
		return 0
	}
	return f.LengthFunc()
}

func (f *FunctionalStream) Position() int64 {
	if f.PositionFunc == nil {
		return 0
	}
	return f.PositionFunc()
}

func (f *FunctionalStream) Readable() bool { return f.IsReadable }
func (f *FunctionalStream) Writable() bool { return f.IsWritable }
func (f *FunctionalStream) Owned() bool    { return f.IsOwned }

var _ io.Closer = (*MemoryStream)(nil)
