package vfs

// EntryKind tags which variant of FileEntry a value holds.
type EntryKind int

const (
	KindDirectory EntryKind = iota
	KindFileRef
	KindFileRO
	KindFileWO
	KindFileRW
)

func (k EntryKind) String() string {
	switch k {
	case KindDirectory:
		return "Directory"
	case KindFileRef:
		return "FileRef"
	case KindFileRO:
		return "FileRO"
	case KindFileWO:
		return "FileWO"
	case KindFileRW:
		return "FileRW"
	default:
		return "Unknown"
	}
}

// FileEntry is the tagged handle returned by listing and opening
// operations. It is a closed interface: the only implementations live in
// this package, one struct per EntryKind. Callers switch on Kind() to learn
// which accessors are valid.
type FileEntry interface {
	Path() Path
	Kind() EntryKind
	// FS returns the FileSystem this entry belongs to.
	FS() FileSystem

	isFileEntry()
}

// EntryStream returns the entry's open stream. Only FileRO, FileWO and
// FileRW entries carry one; it panics if Kind() is Directory or FileRef,
// since those never own a stream.
func EntryStream(e FileEntry) Stream {
	switch v := e.(type) {
	case *fileROEntry:
		return v.stream
	case *fileWOEntry:
		return v.stream
	case *fileRWEntry:
		return v.stream
	default:
		panic("vfs: Stream called on an entry with no open stream")
	}
}

type dirEntry struct {
	path Path
	fs   FileSystem
}

func (d *dirEntry) Path() Path        { return d.path }
func (d *dirEntry) Kind() EntryKind   { return KindDirectory }
func (d *dirEntry) FS() FileSystem    { return d.fs }
func (d *dirEntry) isFileEntry()      {}

// NewDirEntry builds a Directory-kind FileEntry.
func NewDirEntry(path Path, fs FileSystem) FileEntry {
	return &dirEntry{path: path, fs: fs}
}

type fileRefEntry struct {
	path Path
	fs   FileSystem
}

func (f *fileRefEntry) Path() Path      { return f.path }
func (f *fileRefEntry) Kind() EntryKind { return KindFileRef }
func (f *fileRefEntry) FS() FileSystem  { return f.fs }
func (f *fileRefEntry) isFileEntry()    {}

// NewFileRefEntry builds a FileRef-kind FileEntry: a file reference with no
// open stream, as returned by listing.
func NewFileRefEntry(path Path, fs FileSystem) FileEntry {
	return &fileRefEntry{path: path, fs: fs}
}

type fileROEntry struct {
	path   Path
	fs     FileSystem
	stream Stream
}

func (f *fileROEntry) Path() Path      { return f.path }
func (f *fileROEntry) Kind() EntryKind { return KindFileRO }
func (f *fileROEntry) FS() FileSystem  { return f.fs }
func (f *fileROEntry) isFileEntry()    {}

// NewFileROEntry builds a FileRO-kind FileEntry owning a readable,
// non-writable stream.
func NewFileROEntry(path Path, fs FileSystem, s Stream) FileEntry {
	return &fileROEntry{path: path, fs: fs, stream: s}
}

type fileWOEntry struct {
	path   Path
	fs     FileSystem
	stream Stream
}

func (f *fileWOEntry) Path() Path      { return f.path }
func (f *fileWOEntry) Kind() EntryKind { return KindFileWO }
func (f *fileWOEntry) FS() FileSystem  { return f.fs }
func (f *fileWOEntry) isFileEntry()    {}

// NewFileWOEntry builds a FileWO-kind FileEntry owning a writable,
// non-readable stream.
func NewFileWOEntry(path Path, fs FileSystem, s Stream) FileEntry {
	return &fileWOEntry{path: path, fs: fs, stream: s}
}

type fileRWEntry struct {
	path   Path
	fs     FileSystem
	stream Stream
}

func (f *fileRWEntry) Path() Path      { return f.path }
func (f *fileRWEntry) Kind() EntryKind { return KindFileRW }
func (f *fileRWEntry) FS() FileSystem  { return f.fs }
func (f *fileRWEntry) isFileEntry()    {}

// NewFileRWEntry builds a FileRW-kind FileEntry owning a readable and
// writable stream.
func NewFileRWEntry(path Path, fs FileSystem, s Stream) FileEntry {
	return &fileRWEntry{path: path, fs: fs, stream: s}
}
