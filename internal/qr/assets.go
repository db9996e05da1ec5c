package qr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MemoryAssets keeps images in process memory. The reference is the key itself.
type MemoryAssets struct {
	mu     sync.RWMutex
	images map[string][]byte
}

func NewMemoryAssets() *MemoryAssets {
	return &MemoryAssets{images: make(map[string][]byte)}
}

func (m *MemoryAssets) Put(_ context.Context, key string, png []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.images[key] = bytes.Clone(png)

	return key, nil
}

func (m *MemoryAssets) Get(_ context.Context, ref string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	png, ok := m.images[ref]
	if !ok {
		return nil, ErrAssetNotFound
	}

	return bytes.Clone(png), nil
}

// MinioConfig locates an S3-compatible bucket.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinioAssets stores images as objects in an S3-compatible bucket.
type MinioAssets struct {
	client *minio.Client
	bucket string
}

// NewMinioAssets connects to the bucket, creating it when it does not exist.
func NewMinioAssets(ctx context.Context, cfg MinioConfig) (*MinioAssets, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}

	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &MinioAssets{client: client, bucket: cfg.Bucket}, nil
}

func (m *MinioAssets) Put(ctx context.Context, key string, png []byte) (string, error) {
	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(png), int64(len(png)),
		minio.PutObjectOptions{ContentType: "image/png"})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}

	return key, nil
}

func (m *MinioAssets) Get(ctx context.Context, ref string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, ref, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", ref, err)
	}
	defer obj.Close()

	png, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrAssetNotFound
		}

		return nil, fmt.Errorf("read object %s: %w", ref, err)
	}

	return png, nil
}
