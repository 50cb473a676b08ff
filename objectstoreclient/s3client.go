package objectstoreclient

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3Client is the Client implementation backed by aws-sdk-go's s3 service.
type S3Client struct {
	svc    *s3.S3
	bucket string
}

// NewS3Client builds a Client from cfg. It does not contact the endpoint;
// bucket presence is checked lazily via BucketExists/MakeBucket, mirroring
// ImmutableTierFS's lazy-first-use posture in isgasho-lakeFS/pyramid/tierFS.go.
func NewS3Client(cfg Config) (*S3Client, error) {
	awsCfg := aws.NewConfig().
		WithRegion(cfg.Region).
		WithS3ForcePathStyle(cfg.ForcePathStyle).
		WithDisableSSL(!cfg.UseSSL)

	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint)
	}
	if cfg.AccessKeyID != "" {
		awsCfg = awsCfg.WithCredentials(credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, ""))
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, err
	}
	return &S3Client{svc: s3.New(sess), bucket: cfg.Bucket}, nil
}

func (c *S3Client) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	buf, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	_, err = c.svc.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(buf),
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	return err
}

func (c *S3Client) GetObject(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	out, err := c.svc.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, 0, nil
		}
		return nil, 0, err
	}
	size := int64(0)
	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	return out.Body, size, nil
}

func (c *S3Client) StatObject(ctx context.Context, key string) (ObjectInfo, bool, error) {
	out, err := c.svc.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return ObjectInfo{}, false, nil
		}
		return ObjectInfo{}, false, err
	}
	info := ObjectInfo{Key: key}
	if out.ContentLength != nil {
		info.Size = *out.ContentLength
	}
	if out.ContentType != nil {
		info.ContentType = *out.ContentType
	}
	return info, true, nil
}

func (c *S3Client) RemoveObject(ctx context.Context, key string) error {
	_, err := c.svc.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

func (c *S3Client) ListObjects(ctx context.Context, prefix string, recursive bool) ([]ObjectInfo, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(prefix),
	}
	if !recursive {
		input.Delimiter = aws.String("/")
	}

	var out []ObjectInfo
	err := c.svc.ListObjectsV2PagesWithContext(ctx, input, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			info := ObjectInfo{Key: *obj.Key}
			if obj.Size != nil {
				info.Size = *obj.Size
			}
			out = append(out, info)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *S3Client) BucketExists(ctx context.Context) (bool, error) {
	_, err := c.svc.HeadBucketWithContext(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c *S3Client) MakeBucket(ctx context.Context) error {
	exists, err := c.BucketExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	_, err = c.svc.CreateBucketWithContext(ctx, &s3.CreateBucketInput{Bucket: aws.String(c.bucket)})
	return err
}

func isNotFound(err error) bool {
	if aerr, ok := err.(awserr.Error); ok {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, s3.ErrCodeNoSuchBucket, "NotFound":
			return true
		}
	}
	return strings.Contains(err.Error(), "not found") || strings.Contains(err.Error(), "404")
}

var _ Client = (*S3Client)(nil)
