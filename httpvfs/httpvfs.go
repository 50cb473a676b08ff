// Package httpvfs exposes a vfs.FileSystem over HTTP: list/read/write/
// delete/stat routes per spec §6. Routing uses stdlib net/http's ServeMux
// with manual path parsing after the mount prefix — no router library
// appears anywhere in the retrieval pack, so this is the grounded choice
// (see DESIGN.md). Authorization and MIME inference are consulted per
// request, matching spec §6 exactly.
package httpvfs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"vfscore/internal/logging"
	"vfscore/mimetype"
	"vfscore/vfs"
)

var log = logging.GetLogger().WithPrefix("httpvfs")

// Permission is one of the closed set spec §6 names; MaxSize carries a byte
// cap and is only meaningful when Kind is PermKindMaxSize.
type Permission struct {
	Kind PermKind
	N    int64
}

type PermKind int

const (
	PermKindRead PermKind = iota
	PermKindWrite
	PermKindDelete
	PermKindMaxSize
	PermKindListShallow
	PermKindListDeep
	PermKindListAll
)

var (
	PermRead        = Permission{Kind: PermKindRead}
	PermWrite       = Permission{Kind: PermKindWrite}
	PermDelete      = Permission{Kind: PermKindDelete}
	PermListShallow = Permission{Kind: PermKindListShallow}
	PermListDeep    = Permission{Kind: PermKindListDeep}
	PermListAll     = Permission{Kind: PermKindListAll}
)

// PermMaxSize returns a permission wrapping the incoming upload stream in a
// writeLimited(n) adapter.
func PermMaxSize(n int64) Permission { return Permission{Kind: PermKindMaxSize, N: n} }

// Authorizer is consulted per request; it returns the permissions granted
// to subject over path.
type Authorizer interface {
	Authorize(ctx context.Context, subject string, path vfs.Path) ([]Permission, error)
}

// Server wraps a FileSystem, an Authorizer, and the shared MIME table
// behind the spec §6 HTTP surface.
type Server struct {
	fs     vfs.FileSystem
	authz  Authorizer
	prefix string
}

// NewServer builds a Server mounting fsys's routes under prefix (e.g. "/vfs").
func NewServer(fsys vfs.FileSystem, authz Authorizer, prefix string) *Server {
	return &Server{fs: fsys, authz: authz, prefix: strings.TrimSuffix(prefix, "/")}
}

// Handler returns the http.Handler implementing spec §6's five routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.prefix+"/entries/", s.handleEntries)
	mux.HandleFunc(s.prefix+"/files/", s.handleFiles)
	return mux
}

// subject extracts the caller identity the Authorizer checks against. The
// transport for this is HTTP-layer glue the spec leaves unspecified; a
// header is the simplest choice absent any auth scheme in the pack.
func subject(r *http.Request) string {
	return r.Header.Get("X-Subject")
}

func decodePath(raw string) (vfs.Path, error) {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return vfs.Path{}, err
	}
	if !strings.HasPrefix(decoded, "/") {
		decoded = "/" + decoded
	}
	return vfs.NewPath(decoded)
}

func hasPermission(perms []Permission, kind PermKind) bool {
	for _, p := range perms {
		if p.Kind == kind {
			return true
		}
	}
	return false
}

func maxSizePermission(perms []Permission) (int64, bool) {
	for _, p := range perms {
		if p.Kind == PermKindMaxSize {
			return p.N, true
		}
	}
	return 0, false
}

func (s *Server) authorize(w http.ResponseWriter, r *http.Request, path vfs.Path) ([]Permission, bool) {
	perms, err := s.authz.Authorize(r.Context(), subject(r), path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return perms, true
}

func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, s.prefix+"/entries/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) == 0 || (parts[0] != "shallow" && parts[0] != "deep") {
		http.Error(w, "entries mode must be shallow or deep", http.StatusBadRequest)
		return
	}
	deep := parts[0] == "deep"
	rawPath := ""
	if len(parts) > 1 {
		rawPath = parts[1]
	}
	path, err := decodePath(rawPath)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	perms, ok := s.authorize(w, r, path)
	if !ok {
		return
	}
	needed := PermKindListShallow
	if deep {
		needed = PermKindListDeep
	}
	if !hasPermission(perms, needed) && !hasPermission(perms, PermKindListAll) {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	filter := r.URL.Query().Get("filter")
	var mode vfs.ListMode
	if deep {
		mode = vfs.Recursive(filter)
	} else {
		mode = vfs.Shallow(filter)
	}

	entries, err := s.fs.Entries(r.Context(), path, mode)
	if err != nil {
		writeError(w, err)
		return
	}
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path().String()
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(paths)
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	rawPath := strings.TrimPrefix(r.URL.Path, s.prefix+"/files/")
	path, err := decodePath(rawPath)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	perms, ok := s.authorize(w, r, path)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.getFile(w, r, path, perms)
	case http.MethodHead:
		s.headFile(w, r, path, perms)
	case http.MethodPut:
		s.putFile(w, r, path, perms)
	case http.MethodDelete:
		s.deleteFile(w, r, path, perms)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) getFile(w http.ResponseWriter, r *http.Request, path vfs.Path, perms []Permission) {
	if !hasPermission(perms, PermKindRead) {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	entry, err := s.fs.OpenFileRead(r.Context(), path)
	if err != nil {
		writeError(w, err)
		return
	}
	if entry == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	stream := vfs.EntryStream(entry)
	defer stream.Close()

	w.Header().Set("Content-Type", mimetype.ForExtension(path.Extension()))
	w.Header().Set("Content-Disposition", "attachment; filename=\""+path.Filename()+"\"")
	io.Copy(w, streamReader{ctx: r.Context(), s: stream})
}

func (s *Server) headFile(w http.ResponseWriter, r *http.Request, path vfs.Path, perms []Permission) {
	if !hasPermission(perms, PermKindRead) {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	status, err := s.fs.FileStat(r.Context(), path)
	if err != nil {
		writeError(w, err)
		return
	}
	if status == vfs.StatusExists {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *Server) putFile(w http.ResponseWriter, r *http.Request, path vfs.Path, perms []Permission) {
	if !hasPermission(perms, PermKindWrite) {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	entry, err := s.fs.OpenFileWrite(r.Context(), path)
	if err != nil {
		writeError(w, err)
		return
	}
	if entry == nil {
		entry, err = s.fs.CreateFile(r.Context(), path)
		if err != nil {
			writeError(w, err)
			return
		}
	}
	stream := vfs.EntryStream(entry)
	defer stream.Close()

	if n, ok := maxSizePermission(perms); ok {
		stream = vfs.NewWriteLimited(stream, n)
	}

	buf := make([]byte, 32*1024)
	for {
		n, rerr := r.Body.Read(buf)
		if n > 0 {
			if _, werr := stream.Write(r.Context(), buf[:n]); werr != nil {
				if errors.Is(werr, vfs.ErrWriteLimitExceeded) {
					http.Error(w, werr.Error(), http.StatusRequestEntityTooLarge)
					return
				}
				writeError(w, werr)
				return
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			http.Error(w, rerr.Error(), http.StatusBadRequest)
			return
		}
	}
	if err := stream.Flush(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) deleteFile(w http.ResponseWriter, r *http.Request, path vfs.Path, perms []Permission) {
	if !hasPermission(perms, PermKindDelete) {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	// deleteFile on an absent path still reports 200 per spec §9's open
	// question decision: the bool result is not surfaced to the caller.
	if _, err := s.fs.DeleteFile(r.Context(), path); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// writeError maps a vfs.Error's kind to the spec §6 HTTP status table;
// anything else propagates as 5xx.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, vfs.ErrReadOnly), errors.Is(err, vfs.ErrForbidden), errors.Is(err, vfs.ErrUpgradeNotPermitted):
		w.WriteHeader(http.StatusForbidden)
	case errors.Is(err, vfs.ErrNotFound):
		w.WriteHeader(http.StatusNotFound)
	default:
		log.Error("unhandled error: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

type streamReader struct {
	ctx context.Context
	s   vfs.Stream
}

func (sr streamReader) Read(buf []byte) (int, error) {
	return sr.s.Read(sr.ctx, buf)
}
