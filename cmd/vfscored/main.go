// Command vfscored runs a virtual filesystem backend behind an optional
// HTTP surface and an optional FUSE mount. Structured the way VMapFS's
// cmd/vmapfs/main.go wires flags, logging, and signal-driven shutdown.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"vfscore/fuseadapter"
	"vfscore/httpvfs"
	"vfscore/internal/logging"
	"vfscore/internal/snapshot"
	"vfscore/memoryfs"
	"vfscore/objectstoreclient"
	"vfscore/objectstorefs"
	"vfscore/realfs"
	"vfscore/vfs"
)

var logger = logging.GetLogger()

// allowAllAuthorizer grants every permission to every subject. It is the
// default when no authorization policy is configured; a real deployment
// supplies its own httpvfs.Authorizer.
type allowAllAuthorizer struct{}

func (allowAllAuthorizer) Authorize(ctx context.Context, subject string, path vfs.Path) ([]httpvfs.Permission, error) {
	return []httpvfs.Permission{
		httpvfs.PermRead, httpvfs.PermWrite, httpvfs.PermDelete,
		httpvfs.PermListShallow, httpvfs.PermListDeep, httpvfs.PermListAll,
	}, nil
}

func main() {
	backend := flag.String("backend", "memory", "Backend to serve: memory, real, or objectstore")
	root := flag.String("root", "", "Source directory root (backend=real)")
	bucket := flag.String("bucket", "", "Object store bucket name (backend=objectstore)")
	endpoint := flag.String("endpoint", "", "Object store endpoint URL (backend=objectstore)")
	readOnly := flag.Bool("readonly", false, "Serve the backend read-only")
	mountPoint := flag.String("mount", "", "FUSE mount point (optional)")
	httpAddr := flag.String("http", "", "HTTP listen address, e.g. :8080 (optional)")
	httpPrefix := flag.String("http-prefix", "/vfs", "HTTP route prefix")
	stateFile := flag.String("state", "", "Snapshot state file for a memory backend (optional)")
	verbose := flag.Bool("verbose", false, "Enable verbose logging")
	flag.Parse()

	if *verbose {
		logger.SetLevel(logging.LevelDebug)
	}

	if *mountPoint == "" && *httpAddr == "" {
		logger.Error("at least one of -mount or -http must be set")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fsys, snapMgr, err := buildBackend(ctx, *backend, *root, *bucket, *endpoint, *readOnly, *stateFile)
	if err != nil {
		logger.Error("failed to build backend: %v", err)
		os.Exit(1)
	}

	var wg sync.WaitGroup

	var mount *fuseadapter.Mount
	if *mountPoint != "" {
		cleanMount := filepath.Clean(*mountPoint)
		logger.Info("mounting %s backend at %s", *backend, cleanMount)
		mount, err = fuseadapter.NewMount(ctx, fsys, cleanMount)
		if err != nil {
			logger.Error("mount failed: %v", err)
			os.Exit(1)
		}
	}

	var httpServer *http.Server
	if *httpAddr != "" {
		server := httpvfs.NewServer(fsys, allowAllAuthorizer{}, *httpPrefix)
		httpServer = &http.Server{Addr: *httpAddr, Handler: server.Handler()}
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("serving HTTP on %s%s", *httpAddr, *httpPrefix)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server error: %v", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	wg.Add(1)
	go func() {
		defer wg.Done()
		sig := <-sigChan
		logger.Info("received signal %v, shutting down", sig)

		if snapMgr != nil {
			snap, err := snapshot.Capture(ctx, fsys)
			if err != nil {
				logger.Error("failed to capture snapshot: %v", err)
			} else if err := snapMgr.Save(snap); err != nil {
				logger.Error("failed to save snapshot: %v", err)
			}
		}

		if httpServer != nil {
			httpServer.Close()
		}
		if mount != nil {
			if err := mount.Close(); err != nil {
				logger.Error("unmount error: %v", err)
			}
		}
		cancel()
	}()

	logger.Info("vfscored ready")
	wg.Wait()
	logger.Info("clean shutdown complete")
}

func buildBackend(ctx context.Context, backend, root, bucket, endpoint string, readOnly bool, stateFile string) (vfs.FileSystem, *snapshot.Manager, error) {
	switch backend {
	case "memory":
		fsys := memoryfs.New(readOnly)
		if stateFile == "" {
			return fsys, nil, nil
		}
		mgr, err := snapshot.NewManager(stateFile)
		if err != nil {
			return nil, nil, err
		}
		snap, err := mgr.Load()
		if err != nil {
			return nil, nil, err
		}
		if err := snapshot.Restore(ctx, fsys, snap); err != nil {
			return nil, nil, err
		}
		return fsys, mgr, nil

	case "real":
		if root == "" {
			return nil, nil, errRequiredFlag("-root")
		}
		return realfs.New(root, readOnly), nil, nil

	case "objectstore":
		if bucket == "" {
			return nil, nil, errRequiredFlag("-bucket")
		}
		client, err := objectstoreclient.NewS3Client(objectstoreclient.Config{
			Bucket:         bucket,
			Endpoint:       endpoint,
			ForcePathStyle: endpoint != "",
		})
		if err != nil {
			return nil, nil, err
		}
		return objectstorefs.New(client, "", readOnly), nil, nil

	default:
		return nil, nil, errUnknownBackend(backend)
	}
}

type errRequiredFlag string

func (e errRequiredFlag) Error() string { return "missing required flag " + string(e) }

type errUnknownBackend string

func (e errUnknownBackend) Error() string { return "unknown backend " + string(e) }
