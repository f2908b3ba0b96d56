package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const parquetContentType = "application/vnd.apache.parquet"

// MinIOConfig holds connection settings for an S3-compatible endpoint.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	Secure    bool
}

// MinIO uploads objects to a bucket.
type MinIO struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinIO builds a client. Endpoints may carry an http:// or https://
// scheme, which overrides Secure.
func NewMinIO(cfg MinIOConfig) (*MinIO, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("minio: bucket is required")
	}
	host, secure, err := endpointHost(cfg.Endpoint, cfg.Secure)
	if err != nil {
		return nil, err
	}
	client, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &MinIO{client: client, bucket: cfg.Bucket, prefix: strings.Trim(cfg.Prefix, "/")}, nil
}

func (m *MinIO) Name() string { return "minio" }

// Key returns the object key for a file name, including the prefix.
func (m *MinIO) Key(name string) string {
	if m.prefix == "" {
		return name
	}
	return path.Join(m.prefix, name)
}

// Check verifies the endpoint answers and the bucket exists.
func (m *MinIO) Check(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", m.bucket, err)
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", m.bucket)
	}
	return nil
}

func (m *MinIO) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	if err := m.Check(ctx); err != nil {
		return err
	}
	_, err := m.client.PutObject(ctx, m.bucket, m.Key(key), r, size, minio.PutObjectOptions{
		ContentType: parquetContentType,
	})
	if err != nil {
		return fmt.Errorf("put object %s/%s: %w", m.bucket, m.Key(key), err)
	}
	return nil
}

func endpointHost(endpoint string, secure bool) (string, bool, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "", false, errors.New("minio: endpoint is required")
	}
	if !strings.Contains(endpoint, "://") {
		return strings.TrimRight(endpoint, "/"), secure, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("minio: parse endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("minio: endpoint %q has no host", endpoint)
	}
	return u.Host, u.Scheme == "https", nil
}
