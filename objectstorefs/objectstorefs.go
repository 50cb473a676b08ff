// Package objectstorefs implements vfs.FileSystem over an S3-compatible
// object store, simulating directories and deferring uploads until flush.
// Grounded on spec §4.6, with the local-buffer/flush-to-blob-store shape
// borrowed from isgasho-lakeFS's pyramid.ImmutableTierFS
// (pyramid/tierFS.go) and the client dependency from that repo's go.mod
// (github.com/aws/aws-sdk-go).
package objectstorefs

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	"vfscore/internal/logging"
	"vfscore/objectstoreclient"
	"vfscore/vfs"
)

var log = logging.GetLogger().WithPrefix("objectstorefs")

// namespace is the shared state threaded down the at() chain: simulated
// directories, files currently being built (opened but not flushed), and a
// tombstone set mirroring MemoryBackend's. Per
// spec §9 Design Notes, these maps are rooted in the outermost FS and
// borrowed by children rather than duplicated.
type namespace struct {
	mu          sync.Mutex
	directories map[string]bool
	files       map[string]bool
	tombstones  map[string]bool
}

func newNamespace() *namespace {
	return &namespace{
		directories: make(map[string]bool),
		files:       make(map[string]bool),
		tombstones:  make(map[string]bool),
	}
}

// FS is a vfs.FileSystem backed by an object store client. keyPrefix is
// this view's root, expressed as an object-key prefix with no leading or
// trailing slash ("" means the bucket root).
type FS struct {
	client       objectstoreclient.Client
	ns           *namespace
	keyPrefix    string
	readOnly     bool
	bucketEnsure sync.Once
}

// New constructs an ObjectStore backend over client, rooted at rootPrefix
// (a key prefix within the bucket; "" for the bucket root).
func New(client objectstoreclient.Client, rootPrefix string, readOnly bool) *FS {
	return &FS{
		client:    client,
		ns:        newNamespace(),
		keyPrefix: strings.Trim(rootPrefix, "/"),
		readOnly:  readOnly,
	}
}

func (f *FS) ReadOnly() bool { return f.readOnly }

func (f *FS) checkWritable(op, path string) error {
	if f.readOnly {
		return vfs.NewError(op, path, vfs.ErrReadOnly)
	}
	return nil
}

// objectKey maps p (relative to this view) to an absolute object key.
func (f *FS) objectKey(p vfs.Path) string {
	rel := strings.TrimPrefix(p.String(), "/")
	if f.keyPrefix == "" {
		return rel
	}
	if rel == "" {
		return f.keyPrefix
	}
	return f.keyPrefix + "/" + rel
}

func (f *FS) ensureBucket(ctx context.Context) error {
	var outerErr error
	f.bucketEnsure.Do(func() {
		exists, err := f.client.BucketExists(ctx)
		if err != nil {
			outerErr = err
			return
		}
		if !exists {
			outerErr = f.client.MakeBucket(ctx)
		}
	})
	return outerErr
}

func (f *FS) markFile(key string)   { f.ns.mu.Lock(); f.ns.files[key] = true; f.ns.mu.Unlock() }
func (f *FS) unmarkFile(key string) { f.ns.mu.Lock(); delete(f.ns.files, key); f.ns.mu.Unlock() }
func (f *FS) isMarkedFile(key string) bool {
	f.ns.mu.Lock()
	defer f.ns.mu.Unlock()
	return f.ns.files[key]
}

func (f *FS) markDir(key string)   { f.ns.mu.Lock(); f.ns.directories[key] = true; f.ns.mu.Unlock() }
func (f *FS) unmarkDir(key string) { f.ns.mu.Lock(); delete(f.ns.directories, key); f.ns.mu.Unlock() }
func (f *FS) isMarkedDir(key string) bool {
	f.ns.mu.Lock()
	defer f.ns.mu.Unlock()
	return f.ns.directories[key]
}

func (f *FS) addTombstone(key string) {
	f.ns.mu.Lock()
	f.ns.tombstones[key] = true
	f.ns.mu.Unlock()
}

func (f *FS) clearTombstone(key string) {
	f.ns.mu.Lock()
	delete(f.ns.tombstones, key)
	f.ns.mu.Unlock()
}

func (f *FS) isTombstoned(key string) bool {
	f.ns.mu.Lock()
	defer f.ns.mu.Unlock()
	return f.ns.tombstones[key]
}

func (f *FS) statObjectExists(ctx context.Context, key string) (bool, error) {
	_, found, err := f.client.StatObject(ctx, key)
	return found, err
}

func (f *FS) FileExists(ctx context.Context, p vfs.Path) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	key := f.objectKey(p)
	if f.isMarkedFile(key) {
		return true, nil
	}
	found, err := f.statObjectExists(ctx, key)
	if err != nil {
		// existence-shaped queries resolve backend-native errors to false.
		log.Warn("stat %q failed: %v", key, err)
		return false, nil
	}
	return found, nil
}

func (f *FS) DirExists(ctx context.Context, p vfs.Path) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if p.IsRoot() {
		return true, nil
	}
	key := f.objectKey(p)
	if f.isMarkedDir(key) {
		return true, nil
	}
	objs, err := f.client.ListObjects(ctx, key, true)
	if err != nil {
		log.Warn("list %q failed: %v", key, err)
		return false, nil
	}
	return len(objs) > 0, nil
}

func (f *FS) FileStat(ctx context.Context, p vfs.Path) (vfs.FileStatus, error) {
	exists, err := f.FileExists(ctx, p)
	if err != nil {
		return vfs.StatusNotFound, err
	}
	if exists {
		return vfs.StatusExists, nil
	}
	if f.isTombstoned(f.objectKey(p)) {
		return vfs.StatusDeleted, nil
	}
	return vfs.StatusNotFound, nil
}

func (f *FS) CreateDirectory(ctx context.Context, p vfs.Path) (vfs.FileEntry, error) {
	if err := f.checkWritable(vfs.OpMkdir, p.String()); err != nil {
		return nil, err
	}
	segs := p.Segments()
	cur := vfs.Root()
	for _, seg := range segs {
		var err error
		cur, err = cur.Append(seg)
		if err != nil {
			return nil, err
		}
		f.markDir(f.objectKey(cur))
	}
	log.Debug("created directory %q", p.String())
	return vfs.NewDirEntry(p, f), nil
}

func (f *FS) CreateFile(ctx context.Context, p vfs.Path) (vfs.FileEntry, error) {
	if err := f.checkWritable(vfs.OpCreate, p.String()); err != nil {
		return nil, err
	}
	key := f.objectKey(p)
	wts := newWriteThroughStream(f, key, p.Extension(), vfs.NewMemoryStream(nil))
	f.markFile(key)
	f.clearTombstone(key)
	log.Debug("created file %q", p.String())
	return vfs.NewFileRWEntry(p, f, wts), nil
}

// OpenFileRead issues a GET; if the object is absent but still being built
// (recorded in the files map, not yet flushed), returns a handle over an
// empty stream rather than failing.
func (f *FS) OpenFileRead(ctx context.Context, p vfs.Path) (vfs.FileEntry, error) {
	key := f.objectKey(p)
	body, size, err := f.client.GetObject(ctx, key)
	if err != nil {
		return nil, vfs.NewError(vfs.OpOpenRead, p.String(), err)
	}
	if body == nil {
		if f.isMarkedFile(key) {
			return vfs.NewFileROEntry(p, f, vfs.NewReadOnly(vfs.NewMemoryStream(nil))), nil
		}
		return nil, nil
	}
	s := newReaderStream(body, size)
	return vfs.NewFileROEntry(p, f, s), nil
}

func (f *FS) openWriteThrough(ctx context.Context, p vfs.Path) (*writeThroughStream, error) {
	key := f.objectKey(p)
	mem := vfs.NewMemoryStream(nil)
	body, _, err := f.client.GetObject(ctx, key)
	if err != nil {
		return nil, vfs.NewError(vfs.OpOpenRW, p.String(), err)
	}
	if body != nil {
		data, err := io.ReadAll(body)
		body.Close()
		if err != nil {
			return nil, vfs.NewError(vfs.OpOpenRW, p.String(), err)
		}
		mem = vfs.NewMemoryStream(data)
	}
	f.markFile(key)
	f.clearTombstone(key)
	return newWriteThroughStream(f, key, p.Extension(), mem), nil
}

// OpenFileWrite returns nil, nil if the file is absent, matching Real's
// policy for the open question in spec §9.
func (f *FS) OpenFileWrite(ctx context.Context, p vfs.Path) (vfs.FileEntry, error) {
	if err := f.checkWritable(vfs.OpOpenWrite, p.String()); err != nil {
		return nil, err
	}
	exists, err := f.FileExists(ctx, p)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	wts, err := f.openWriteThrough(ctx, p)
	if err != nil {
		return nil, err
	}
	return vfs.NewFileWOEntry(p, f, vfs.NewWriteOnly(wts)), nil
}

func (f *FS) OpenFileReadWrite(ctx context.Context, p vfs.Path) (vfs.FileEntry, error) {
	if err := f.checkWritable(vfs.OpOpenRW, p.String()); err != nil {
		return nil, err
	}
	wts, err := f.openWriteThrough(ctx, p)
	if err != nil {
		return nil, err
	}
	return vfs.NewFileRWEntry(p, f, wts), nil
}

func (f *FS) DeleteFile(ctx context.Context, p vfs.Path) (bool, error) {
	if err := f.checkWritable(vfs.OpDelete, p.String()); err != nil {
		return false, err
	}
	key := f.objectKey(p)
	existed, _ := f.FileExists(ctx, p)
	f.unmarkFile(key)
	if err := f.client.RemoveObject(ctx, key); err != nil {
		return false, vfs.NewError(vfs.OpDelete, p.String(), err)
	}
	f.addTombstone(key)
	log.Debug("deleted file %q (existed=%v)", p.String(), existed)
	return existed, nil
}

func (f *FS) DeleteDirectory(ctx context.Context, p vfs.Path, recursive bool) (bool, error) {
	if err := f.checkWritable(vfs.OpDeleteDir, p.String()); err != nil {
		return false, err
	}
	key := f.objectKey(p)
	objs, err := f.client.ListObjects(ctx, key, true)
	if err != nil {
		return false, vfs.NewError(vfs.OpDeleteDir, p.String(), err)
	}
	if !recursive && len(objs) > 0 {
		return false, vfs.NewError(vfs.OpDeleteDir, p.String(), vfs.ErrDirectoryNotEmpty)
	}
	for _, obj := range objs {
		if err := f.client.RemoveObject(ctx, obj.Key); err != nil {
			return false, vfs.NewError(vfs.OpDeleteDir, p.String(), err)
		}
		f.addTombstone(obj.Key)
		f.unmarkFile(obj.Key)
	}
	f.ns.mu.Lock()
	for dirKey := range f.ns.directories {
		if dirKey == key || strings.HasPrefix(dirKey, key+"/") {
			delete(f.ns.directories, dirKey)
		}
	}
	for fileKey := range f.ns.files {
		if strings.HasPrefix(fileKey, key+"/") {
			delete(f.ns.files, fileKey)
		}
	}
	f.ns.mu.Unlock()
	return true, nil
}

func (f *FS) Integrate(ctx context.Context, p vfs.Path, readable vfs.FileEntry) (vfs.FileEntry, error) {
	if err := f.checkWritable(vfs.OpIntegrate, p.String()); err != nil {
		return nil, err
	}
	key := f.objectKey(p)
	mem := vfs.NewMemoryStream(nil)
	if _, err := vfs.EntryStream(readable).CopyTo(ctx, mem); err != nil {
		return nil, vfs.NewError(vfs.OpIntegrate, p.String(), err)
	}
	wts := newWriteThroughStream(f, key, p.Extension(), mem)
	f.markFile(key)
	f.clearTombstone(key)
	return vfs.NewFileRWEntry(p, f, wts), nil
}

func (f *FS) Entries(ctx context.Context, p vfs.Path, mode vfs.ListMode) ([]vfs.FileEntry, error) {
	prefix := f.objectKey(p)
	listPrefix := prefix
	if listPrefix != "" {
		listPrefix += "/"
	}

	objs, err := f.client.ListObjects(ctx, listPrefix, true)
	if err != nil {
		return nil, vfs.NewError(vfs.OpEntries, p.String(), err)
	}

	type candidate struct {
		name  string
		isDir bool
	}
	seen := make(map[string]candidate)

	// addCandidate records the immediate child named by rel. forceDir is set
	// for keys drawn from f.ns.directories: such a key is a directory by
	// construction, even when it has no descendant object of its own (an
	// empty simulated directory), so its child-name segment must not be
	// downgraded to a file just because it happens to contain no further
	// "/" once the listPrefix is trimmed off.
	addCandidate := func(rel string, forceDir bool) {
		rel = strings.TrimPrefix(rel, listPrefix)
		if rel == "" {
			return
		}
		parts := strings.SplitN(rel, "/", 2)
		name := parts[0]
		isDir := forceDir || len(parts) > 1
		if existing, ok := seen[name]; !ok || (!existing.isDir && isDir) {
			seen[name] = candidate{name: name, isDir: isDir}
		}
	}

	for _, obj := range objs {
		addCandidate(obj.Key, false)
	}
	f.ns.mu.Lock()
	for dirKey := range f.ns.directories {
		if strings.HasPrefix(dirKey, listPrefix) || (listPrefix == "" && dirKey != "") {
			addCandidate(dirKey, true)
		}
	}
	for fileKey := range f.ns.files {
		if strings.HasPrefix(fileKey, listPrefix) {
			addCandidate(fileKey, false)
		}
	}
	f.ns.mu.Unlock()

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []vfs.FileEntry
	for _, name := range names {
		c := seen[name]
		if !mode.Match(name) {
			continue
		}
		childPath, err := p.Append(name)
		if err != nil {
			continue
		}
		if c.isDir {
			out = append(out, vfs.NewDirEntry(childPath, f))
			if mode.IsRecursive() {
				sub, err := f.Entries(ctx, childPath, mode)
				if err == nil {
					out = append(out, sub...)
				}
			}
		} else {
			out = append(out, vfs.NewFileRefEntry(childPath, f))
		}
	}
	return out, nil
}

func (f *FS) At(ctx context.Context, p vfs.Path, writable bool) (vfs.FileSystem, error) {
	if writable && f.readOnly {
		return nil, vfs.NewError(vfs.OpAt, p.String(), vfs.ErrUpgradeNotPermitted)
	}
	return &FS{
		client:    f.client,
		ns:        f.ns,
		keyPrefix: f.objectKey(p),
		readOnly:  f.readOnly || !writable,
	}, nil
}

var _ vfs.FileSystem = (*FS)(nil)
