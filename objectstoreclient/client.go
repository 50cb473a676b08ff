// Package objectstoreclient wraps an S3-compatible object store behind the
// narrow contract objectstorefs needs: put/get/stat/remove/list plus
// bucket lifecycle. Grounded on isgasho-lakeFS's pyramid.ImmutableTierFS
// (pyramid/tierFS.go), which layers a local cache over block.Adapter.Put/Get;
// here the client talks straight to S3 via github.com/aws/aws-sdk-go, the
// dependency lakeFS's go.mod carries for exactly this purpose.
package objectstoreclient

import (
	"context"
	"io"
)

// ObjectInfo describes a single stored object.
type ObjectInfo struct {
	Key         string
	Size        int64
	ContentType string
}

// Client is the contract objectstorefs depends on. Config carries bucket,
// endpoint, credentials and the SSL flag per spec §6's ObjectStore
// construction parameters.
type Client interface {
	// PutObject uploads body (exactly size bytes) as key, with contentType.
	PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	// GetObject streams the current contents of key. The caller must Close
	// the returned reader.
	GetObject(ctx context.Context, key string) (io.ReadCloser, int64, error)
	// StatObject reports an object's size/content-type, or found=false if
	// it does not exist.
	StatObject(ctx context.Context, key string) (info ObjectInfo, found bool, err error)
	// RemoveObject deletes key. Removing an absent key is not an error.
	RemoveObject(ctx context.Context, key string) error
	// ListObjects lists keys under prefix. When recursive is false, only
	// keys with no further "/" after the prefix are candidates (delimiter
	// semantics); when true, every key under the prefix is returned.
	ListObjects(ctx context.Context, prefix string, recursive bool) ([]ObjectInfo, error)
	// BucketExists reports whether the configured bucket exists.
	BucketExists(ctx context.Context) (bool, error)
	// MakeBucket creates the configured bucket if it does not already exist.
	MakeBucket(ctx context.Context) error
}

// Config describes how to reach an S3-compatible endpoint.
type Config struct {
	Bucket          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	// ForcePathStyle is needed for most non-AWS S3-compatible endpoints
	// (minio, etc.) where the bucket is not resolved via subdomain.
	ForcePathStyle bool
}
