package ingest

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rotisserie/eris"
)

// ============================================================================
// SOURCES — Local files and s3://bucket/key objects
// ============================================================================

// ErrNotFound is returned when a source path does not exist.
var ErrNotFound = eris.New("ingest: source not found")

// S3Config configures the optional object-storage source.
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// Fetcher reads report bytes from the local filesystem or S3.
type Fetcher struct {
	s3 *minio.Client
}

// NewFetcher builds a fetcher. S3 is enabled only when cfg has an endpoint.
func NewFetcher(cfg S3Config) (*Fetcher, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return &Fetcher{}, nil
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, eris.New("ingest: s3 access key and secret key are required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, eris.Wrap(err, "ingest: init s3 client")
	}
	return &Fetcher{s3: client}, nil
}

// IsS3 reports whether path is an s3:// URL.
func IsS3(path string) bool {
	return strings.HasPrefix(path, "s3://")
}

func splitS3(path string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(path, "s3://")
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", eris.Errorf("ingest: malformed s3 path %q", path)
	}
	return bucket, key, nil
}

// Fetch returns the full contents of path.
func (f *Fetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	if !IsS3(path) {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return nil, eris.Wrapf(ErrNotFound, "%s", path)
		}
		return data, eris.Wrapf(err, "ingest: read %s", path)
	}

	if f == nil || f.s3 == nil {
		return nil, eris.Errorf("ingest: s3 source not configured for %s", path)
	}
	bucket, key, err := splitS3(path)
	if err != nil {
		return nil, err
	}
	obj, err := f.s3.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: get %s", path)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return nil, eris.Wrapf(ErrNotFound, "%s", path)
		}
		return nil, eris.Wrapf(err, "ingest: read %s", path)
	}
	return data, nil
}

// Exists reports whether path can be fetched.
func (f *Fetcher) Exists(ctx context.Context, path string) bool {
	if !IsS3(path) {
		info, err := os.Stat(path)
		return err == nil && !info.IsDir()
	}
	if f == nil || f.s3 == nil {
		return false
	}
	bucket, key, err := splitS3(path)
	if err != nil {
		return false
	}
	_, err = f.s3.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	return err == nil
}

// baseName is the final element of a local or s3 path.
func baseName(path string) string {
	if IsS3(path) {
		return path[strings.LastIndex(path, "/")+1:]
	}
	return filepath.Base(path)
}

// siblingPath returns path with suffix inserted before the extension.
func siblingPath(path, suffix string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + suffix + ext
}
