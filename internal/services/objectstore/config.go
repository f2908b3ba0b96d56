package objectstore

import (
	"errors"
	"fmt"
	"strings"

	"fuzzyjoin/internal/config"
)

// ErrNotConfigured means uploads are disabled or missing a destination.
var ErrNotConfigured = errors.New("object storage not configured")

// FromConfig builds the sink described by cfg. Kind "none" and a MinIO sink
// without a bucket return ErrNotConfigured.
func FromConfig(cfg config.Sink) (Sink, error) {
	switch cfg.Kind {
	case "", "none":
		return nil, fmt.Errorf("%w: sink.kind is none", ErrNotConfigured)
	case "dir":
		if strings.TrimSpace(cfg.Dir) == "" {
			return nil, fmt.Errorf("%w: sink.dir is empty", ErrNotConfigured)
		}
		return DirSink{Dir: cfg.Dir}, nil
	case "minio":
		if strings.TrimSpace(cfg.Bucket) == "" {
			return nil, fmt.Errorf("%w: no bucket (set sink.bucket or MINIO_BUCKET_NAME)", ErrNotConfigured)
		}
		return NewMinIO(MinIOConfig{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Bucket:    cfg.Bucket,
			Prefix:    cfg.Prefix,
			Secure:    cfg.Secure,
		})
	default:
		return nil, fmt.Errorf("unknown sink kind %q", cfg.Kind)
	}
}
