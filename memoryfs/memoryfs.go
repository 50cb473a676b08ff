// Package memoryfs implements vfs.FileSystem over an in-memory directory
// tree with tombstone bookkeeping, grounded on VMapFS's tree-walking
// PathMapper (internal/fs/path.go) and webos's pkg/vfs/memfs/memfs.go node
// model, adapted to this module's Path/Stream/FileEntry contract.
package memoryfs

import (
	"context"
	"sort"
	"sync"

	"vfscore/internal/logging"
	"vfscore/vfs"
)

var log = logging.GetLogger().WithPrefix("memoryfs")

// dirNode and fileNode form the tree. A dirNode's children map holds either
// kind, keyed by base name.
type dirNode struct {
	name     string
	readOnly bool
	parent   *dirNode
	children map[string]any // *dirNode | *fileNode
}

type fileNode struct {
	name   string
	parent *dirNode
	stream *vfs.MemoryStream
}

func newDirNode(name string, parent *dirNode, readOnly bool) *dirNode {
	return &dirNode{name: name, parent: parent, readOnly: readOnly, children: make(map[string]any)}
}

// fullPath reconstructs the absolute path of n by walking parent links.
func (n *dirNode) fullPath() vfs.Path {
	if n.parent == nil {
		return vfs.Root()
	}
	parts := []string{n.name}
	for p := n.parent; p != nil && p.parent != nil; p = p.parent {
		parts = append([]string{p.name}, parts...)
	}
	s := "/"
	for i, part := range parts {
		if i > 0 {
			s += "/"
		}
		s += part
	}
	return vfs.MustPath(s)
}

// tree is the shared state every sub-FS view (via At) borrows: the
// tombstone set lives at the root, per spec §9 Design Notes.
type tree struct {
	mu         sync.RWMutex
	tombstones map[string]bool
}

// FS is a vfs.FileSystem backed by an in-memory tree. ReadOnly propagates
// from the referenced node's own flag, optionally further restricted by a
// view-level downgrade applied through At.
type FS struct {
	tree     *tree
	node     *dirNode
	readOnly bool // effective for this view: node.readOnly || downgraded
}

// New constructs a fresh Memory backend rooted at "/".
func New(readOnly bool) *FS {
	root := newDirNode("", nil, readOnly)
	return &FS{
		tree:     &tree{tombstones: make(map[string]bool)},
		node:     root,
		readOnly: readOnly,
	}
}

// ReadOnly reports whether mutating operations fail on this view.
func (f *FS) ReadOnly() bool { return f.readOnly }

func (f *FS) checkWritable(op, path string) error {
	if f.readOnly {
		return vfs.NewError(op, path, vfs.ErrReadOnly)
	}
	return nil
}

// resolve walks segments from f.node, returning the named dir or file node.
// Missing intermediate directories cause a "not found" result (ok=false).
func (f *FS) resolve(p vfs.Path) (dir *dirNode, file *fileNode, ok bool) {
	cur := f.node
	segs := p.Segments()
	for i, seg := range segs {
		child, exists := cur.children[seg]
		if !exists {
			return nil, nil, false
		}
		if i == len(segs)-1 {
			switch v := child.(type) {
			case *dirNode:
				return v, nil, true
			case *fileNode:
				return nil, v, true
			}
		}
		d, isDir := child.(*dirNode)
		if !isDir {
			return nil, nil, false
		}
		cur = d
	}
	return cur, nil, true
}

// absolutePath rebases p (relative to this view's node) onto the node's
// true position in the shared tree, so that tombstones recorded through one
// view are visible through any other view over the same underlying node.
func (f *FS) absolutePath(p vfs.Path) vfs.Path {
	base := f.node.fullPath()
	if base.IsRoot() {
		return p
	}
	if p.IsRoot() {
		return base
	}
	return vfs.MustPath(base.String() + p.String())
}

func (f *FS) tombstonePath(p vfs.Path) string {
	return f.absolutePath(p).String()
}

func (f *FS) addTombstone(p vfs.Path) {
	f.tree.mu.Lock()
	defer f.tree.mu.Unlock()
	f.tree.tombstones[f.tombstonePath(p)] = true
}

func (f *FS) clearTombstone(p vfs.Path) {
	f.tree.mu.Lock()
	defer f.tree.mu.Unlock()
	delete(f.tree.tombstones, f.tombstonePath(p))
}

func (f *FS) isTombstoned(p vfs.Path) bool {
	f.tree.mu.RLock()
	defer f.tree.mu.RUnlock()
	return f.tree.tombstones[f.tombstonePath(p)]
}

func (f *FS) FileExists(ctx context.Context, p vfs.Path) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, file, ok := f.resolve(p)
	return ok && file != nil, nil
}

func (f *FS) DirExists(ctx context.Context, p vfs.Path) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	dir, _, ok := f.resolve(p)
	return ok && dir != nil, nil
}

func (f *FS) FileStat(ctx context.Context, p vfs.Path) (vfs.FileStatus, error) {
	if err := ctx.Err(); err != nil {
		return vfs.StatusNotFound, err
	}
	_, file, ok := f.resolve(p)
	if ok && file != nil {
		return vfs.StatusExists, nil
	}
	if f.isTombstoned(p) {
		return vfs.StatusDeleted, nil
	}
	return vfs.StatusNotFound, nil
}

// ensureDir walks from f.node creating any missing intermediate
// directories, inheriting this view's effective read-only flag. Returns the
// final directory node. Fails with ErrReadOnly if the walk must create a
// node under a directory that is itself read-only.
func (f *FS) ensureDir(ctx context.Context, p vfs.Path) (*dirNode, error) {
	cur := f.node
	for _, seg := range p.Segments() {
		child, exists := cur.children[seg]
		if !exists {
			if cur.readOnly {
				return nil, vfs.NewError(vfs.OpMkdir, p.String(), vfs.ErrReadOnly)
			}
			nd := newDirNode(seg, cur, f.readOnly)
			cur.children[seg] = nd
			cur = nd
			continue
		}
		d, isDir := child.(*dirNode)
		if !isDir {
			return nil, vfs.NewError(vfs.OpMkdir, p.String(), vfs.ErrAlreadyExists)
		}
		cur = d
	}
	return cur, nil
}

func (f *FS) CreateDirectory(ctx context.Context, p vfs.Path) (vfs.FileEntry, error) {
	if err := f.checkWritable(vfs.OpMkdir, p.String()); err != nil {
		return nil, err
	}
	_, err := f.ensureDir(ctx, p)
	if err != nil {
		return nil, err
	}
	log.Debug("created directory %q", p.String())
	return vfs.NewDirEntry(p, f), nil
}

func (f *FS) CreateFile(ctx context.Context, p vfs.Path) (vfs.FileEntry, error) {
	if err := f.checkWritable(vfs.OpCreate, p.String()); err != nil {
		return nil, err
	}
	parentDir, err := f.ensureDir(ctx, p.Parent())
	if err != nil {
		return nil, err
	}
	name := p.Filename()
	if existing, ok := parentDir.children[name].(*fileNode); ok {
		existing.stream.Close()
	}
	fn := &fileNode{name: name, parent: parentDir, stream: vfs.NewMemoryStream(nil)}
	parentDir.children[name] = fn
	f.clearTombstone(p)
	log.Debug("created file %q", p.String())
	return vfs.NewFileRWEntry(p, f, vfs.NewMirror(fn.stream)), nil
}

func (f *FS) OpenFileRead(ctx context.Context, p vfs.Path) (vfs.FileEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, file, ok := f.resolve(p)
	if !ok || file == nil {
		return nil, nil
	}
	s := vfs.NewReadOnly(vfs.NewMirror(file.stream))
	return vfs.NewFileROEntry(p, f, s), nil
}

func (f *FS) OpenFileWrite(ctx context.Context, p vfs.Path) (vfs.FileEntry, error) {
	if err := f.checkWritable(vfs.OpOpenWrite, p.String()); err != nil {
		return nil, err
	}
	_, file, ok := f.resolve(p)
	if ok && file != nil {
		s := vfs.NewWriteOnly(vfs.NewMirror(file.stream))
		return vfs.NewFileWOEntry(p, f, s), nil
	}
	entry, err := f.CreateFile(ctx, p)
	if err != nil {
		return nil, err
	}
	s := vfs.NewWriteOnly(vfs.EntryStream(entry))
	return vfs.NewFileWOEntry(p, f, s), nil
}

func (f *FS) OpenFileReadWrite(ctx context.Context, p vfs.Path) (vfs.FileEntry, error) {
	if err := f.checkWritable(vfs.OpOpenRW, p.String()); err != nil {
		return nil, err
	}
	_, file, ok := f.resolve(p)
	if ok && file != nil {
		s := vfs.NewMirror(file.stream)
		return vfs.NewFileRWEntry(p, f, s), nil
	}
	return f.CreateFile(ctx, p)
}

func (f *FS) DeleteFile(ctx context.Context, p vfs.Path) (bool, error) {
	if err := f.checkWritable(vfs.OpDelete, p.String()); err != nil {
		return false, err
	}
	parentDir, _, ok := f.resolve(p.Parent())
	removed := false
	if ok && parentDir != nil {
		if fn, isFile := parentDir.children[p.Filename()].(*fileNode); isFile {
			fn.stream.Close()
			delete(parentDir.children, p.Filename())
			removed = true
		}
	}
	f.addTombstone(p)
	log.Debug("deleted file %q (removed=%v)", p.String(), removed)
	return removed, nil
}

func (f *FS) DeleteDirectory(ctx context.Context, p vfs.Path, recursive bool) (bool, error) {
	if err := f.checkWritable(vfs.OpDeleteDir, p.String()); err != nil {
		return false, err
	}
	dir, _, ok := f.resolve(p)
	if !ok || dir == nil {
		return false, nil
	}
	if !recursive && len(dir.children) > 0 {
		return false, vfs.NewError(vfs.OpDeleteDir, p.String(), vfs.ErrDirectoryNotEmpty)
	}
	f.tombstoneSubtree(dir, p)
	if dir.parent != nil {
		delete(dir.parent.children, dir.name)
	}
	log.Debug("deleted directory %q (recursive=%v)", p.String(), recursive)
	return true, nil
}

// tombstoneSubtree disposes every file stream under dir and records a
// tombstone for each removed file path, matching spec §4.4's "adds a
// tombstone for each removed file path".
func (f *FS) tombstoneSubtree(dir *dirNode, base vfs.Path) {
	names := make([]string, 0, len(dir.children))
	for name := range dir.children {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		child := dir.children[name]
		childPath, err := base.Append(name)
		if err != nil {
			continue
		}
		switch v := child.(type) {
		case *fileNode:
			v.stream.Close()
			f.addTombstone(childPath)
		case *dirNode:
			f.tombstoneSubtree(v, childPath)
		}
	}
}

func (f *FS) Integrate(ctx context.Context, p vfs.Path, readable vfs.FileEntry) (vfs.FileEntry, error) {
	if err := f.checkWritable(vfs.OpIntegrate, p.String()); err != nil {
		return nil, err
	}
	parentDir, err := f.ensureDir(ctx, p.Parent())
	if err != nil {
		return nil, err
	}
	origin := vfs.EntryStream(readable)
	materialized := vfs.NewMemoryStream(nil)
	if _, err := origin.CopyTo(ctx, materialized); err != nil {
		return nil, err
	}
	name := p.Filename()
	if existing, ok := parentDir.children[name].(*fileNode); ok {
		existing.stream.Close()
	}
	fn := &fileNode{name: name, parent: parentDir, stream: materialized}
	parentDir.children[name] = fn
	f.clearTombstone(p)
	return vfs.NewFileRWEntry(p, f, vfs.NewMirror(fn.stream)), nil
}

func (f *FS) Entries(ctx context.Context, p vfs.Path, mode vfs.ListMode) ([]vfs.FileEntry, error) {
	dir, _, ok := f.resolve(p)
	if !ok || dir == nil {
		return nil, vfs.NewError(vfs.OpEntries, p.String(), vfs.ErrNotFound)
	}
	var out []vfs.FileEntry
	f.collect(dir, p, mode, &out)
	return out, nil
}

func (f *FS) collect(dir *dirNode, base vfs.Path, mode vfs.ListMode, out *[]vfs.FileEntry) {
	names := make([]string, 0, len(dir.children))
	for name := range dir.children {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		child := dir.children[name]
		childPath, err := base.Append(name)
		if err != nil {
			continue
		}
		if mode.Match(name) {
			switch child.(type) {
			case *dirNode:
				*out = append(*out, vfs.NewDirEntry(childPath, f))
			case *fileNode:
				*out = append(*out, vfs.NewFileRefEntry(childPath, f))
			}
		}
		if mode.IsRecursive() {
			if d, isDir := child.(*dirNode); isDir {
				f.collect(d, childPath, mode, out)
			}
		}
	}
}

func (f *FS) At(ctx context.Context, p vfs.Path, writable bool) (vfs.FileSystem, error) {
	dir, _, ok := f.resolve(p)
	if !ok || dir == nil {
		return nil, vfs.NewError(vfs.OpAt, p.String(), vfs.ErrNotFound)
	}
	if writable && (f.readOnly || dir.readOnly) {
		return nil, vfs.NewError(vfs.OpAt, p.String(), vfs.ErrUpgradeNotPermitted)
	}
	return &FS{tree: f.tree, node: dir, readOnly: dir.readOnly || !writable}, nil
}

var _ vfs.FileSystem = (*FS)(nil)
