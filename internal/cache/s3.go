package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/opencontainers/go-digest"
)

// User metadata keys stored on each object.
const (
	metaCreated = "Created"
	metaBlob    = "Blob-Digest"
)

// Connection settings for an S3-compatible bucket.
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string // Object name prefix, such as "cruxmatrix/".
	UseSSL    bool
}

// [Store] backed by an S3-compatible bucket.
//
// Each artifact is a single object, so a write is visible only once the
// upload completes. Entry metadata is carried as object user metadata.
type S3Store struct {
	client   *minio.Client
	bucket   string
	region   string
	prefix   string
	initOnce sync.Once
	initErr  error
}

// Creates an S3 store. The bucket is created on first use if missing.
func NewS3Store(cfg S3Config) (*S3Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("%w: s3 endpoint is required", ErrStore)
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("%w: s3 access key and secret key are required", ErrStore)
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("%w: s3 bucket is required", ErrStore)
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
		return nil, fmt.Errorf("%w: init s3 client: %w", ErrStore, err)
	}

	return &S3Store{
		client: client,
		bucket: bucket,
		region: region,
		prefix: cfg.Prefix,
	}, nil
}

func (s *S3Store) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
	})
	if s.initErr != nil {
		return fmt.Errorf("%w: ensure bucket: %w", ErrStore, s.initErr)
	}
	return nil
}

func (s *S3Store) Exists(ctx context.Context, key Key) (bool, error) {
	if _, err := s.stat(ctx, key); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *S3Store) Read(ctx context.Context, key Key) (*Artifact, error) {
	info, err := s.stat(ctx, key)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, err
	}

	obj, err := s.client.GetObject(ctx, s.bucket, s.objectName(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	defer obj.Close()

	blob, err := io.ReadAll(obj)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}

	if want := digest.Digest(userMeta(info, metaBlob)); want != "" {
		if got := digest.Canonical.FromBytes(blob); got != want {
			return nil, fmt.Errorf("%w: %s: blob digest %s, want %s", ErrCorrupt, key, got, want)
		}
	}

	created := info.LastModified.UTC()
	if raw := userMeta(info, metaCreated); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			created = t
		}
	}

	return &Artifact{Key: key, Blob: blob, Created: created}, nil
}

func (s *S3Store) Write(ctx context.Context, a *Artifact) error {
	if err := a.Key.Validate(); err != nil {
		return err
	}
	// A corrupt object is overwritten below.
	switch _, err := s.Read(ctx, a.Key); {
	case err == nil:
		return nil
	case errors.Is(err, ErrCorrupt):
		slog.Warn("replacing corrupt cache object", "key", a.Key.Short())
	case !errors.Is(err, ErrNotFound):
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	created := a.Created
	if created.IsZero() {
		created = time.Now().UTC()
	}

	_, err := s.client.PutObject(ctx, s.bucket, s.objectName(a.Key), bytes.NewReader(a.Blob), int64(len(a.Blob)), minio.PutObjectOptions{
		ContentType: "application/zstd",
		UserMetadata: map[string]string{
			metaCreated: created.Format(time.RFC3339),
			metaBlob:    digest.Canonical.FromBytes(a.Blob).String(),
		},
	})
	if err != nil {
		return fmt.Errorf("%w: put %s: %w", ErrStore, a.Key.Short(), err)
	}

	slog.Debug("cache object written", "bucket", s.bucket, "key", a.Key.Short(), "size", len(a.Blob))
	return nil
}

// Returns object info for key.
func (s *S3Store) stat(ctx context.Context, key Key) (minio.ObjectInfo, error) {
	if err := key.Validate(); err != nil {
		return minio.ObjectInfo{}, err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return minio.ObjectInfo{}, err
	}
	info, err := s.client.StatObject(ctx, s.bucket, s.objectName(key), minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return minio.ObjectInfo{}, err
		}
		return minio.ObjectInfo{}, fmt.Errorf("%w: stat %s: %w", ErrStore, key.Short(), err)
	}
	return info, nil
}

// Returns the object name for key.
func (s *S3Store) objectName(key Key) string {
	d := key.Digest()
	return s.prefix + d.Algorithm().String() + "/" + d.Encoded() + "/" + blobFile
}

// Reports whether err is a missing object or bucket.
func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchBucket"
}

// Looks up user metadata case-insensitively.
//
// Servers differ in how they canonicalize metadata header names.
func userMeta(info minio.ObjectInfo, name string) string {
	for k, v := range info.UserMetadata {
		if strings.EqualFold(k, name) || strings.EqualFold(k, "X-Amz-Meta-"+name) {
			return v
		}
	}
	return ""
}
