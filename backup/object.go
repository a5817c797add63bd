package backup

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/jmgilman/simplefs/errors"
)

// ObjectConfig holds MinIO/S3 target configuration.
type ObjectConfig struct {
	// Endpoint is the MinIO server address (e.g., "localhost:9000").
	Endpoint string

	// Bucket is the bucket images are stored in.
	Bucket string

	// AccessKey is the access key ID for authentication.
	AccessKey string

	// SecretKey is the secret access key for authentication.
	SecretKey string

	// UseSSL enables HTTPS connections.
	UseSSL bool

	// Prefix is an optional key prefix for every image.
	Prefix string

	// Client is an optional pre-configured MinIO client.
	// If provided, Endpoint/AccessKey/SecretKey are ignored.
	Client *minio.Client
}

// validate checks that either Client or Endpoint+AccessKey+SecretKey is set.
func (c *ObjectConfig) validate() error {
	if c.Bucket == "" {
		return errors.New(errors.CodeInvalidConfig, "bucket is required")
	}
	if c.Client != nil {
		return nil
	}
	if c.Endpoint == "" {
		return errors.New(errors.CodeInvalidConfig, "endpoint is required when client is not provided")
	}
	if c.AccessKey == "" {
		return errors.New(errors.CodeInvalidConfig, "access key is required when client is not provided")
	}
	if c.SecretKey == "" {
		return errors.New(errors.CodeInvalidConfig, "secret key is required when client is not provided")
	}
	return nil
}

// ObjectTarget stores images as objects in a MinIO/S3 bucket.
type ObjectTarget struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewObjectTarget creates a bucket-backed target. No request is made until
// the first Put or Get.
func NewObjectTarget(cfg ObjectConfig) (*ObjectTarget, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	client := cfg.Client
	if client == nil {
		var err error
		client, err = minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.UseSSL,
		})
		if err != nil {
			return nil, errors.WrapWithContext(err, errors.CodeInvalidConfig, "failed to create minio client",
				map[string]interface{}{"endpoint": cfg.Endpoint})
		}
	}

	return &ObjectTarget{
		client: client,
		bucket: cfg.Bucket,
		prefix: normalizePrefix(cfg.Prefix),
	}, nil
}

// Put uploads the image.
func (t *ObjectTarget) Put(ctx context.Context, name string, r io.Reader, size int64) error {
	key := t.key(name)
	_, err := t.client.PutObject(ctx, t.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return translate(err, "failed to upload backup", key)
	}
	return nil
}

// Get opens the object for streaming.
func (t *ObjectTarget) Get(ctx context.Context, name string) (io.ReadCloser, int64, error) {
	key := t.key(name)
	info, err := t.client.StatObject(ctx, t.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, 0, translate(err, "failed to stat backup", key)
	}

	obj, err := t.client.GetObject(ctx, t.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, translate(err, "failed to download backup", key)
	}
	return obj, info.Size, nil
}

func (t *ObjectTarget) String() string {
	return "s3://" + path.Join(t.bucket, t.prefix)
}

func (t *ObjectTarget) key(name string) string {
	if t.prefix == "" {
		return name
	}
	return t.prefix + "/" + name
}

// translate maps MinIO error responses onto error codes.
func translate(err error, msg, key string) error {
	code := errors.CodeNetwork
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		code = errors.CodeNotFound
	case "AccessDenied":
		code = errors.CodeIO
	}
	return errors.WrapWithContext(err, code, msg, map[string]interface{}{"key": key})
}

// normalizePrefix converts backslashes, cleans the path and trims slashes.
func normalizePrefix(prefix string) string {
	if prefix == "" || prefix == "." {
		return ""
	}
	prefix = strings.ReplaceAll(prefix, "\\", "/")
	prefix = path.Clean(prefix)
	prefix = strings.Trim(prefix, "/")
	if prefix == "." {
		return ""
	}
	return prefix
}
