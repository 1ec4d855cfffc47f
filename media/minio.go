package media

import (
	"bytes"
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"floordesign/config"
)

// MinioStore keeps images in an S3-compatible bucket.
type MinioStore struct {
	api       *minio.Client
	bucket    string
	publicURL string
}

// NewMinioStore creates a client. It does not contact the server.
func NewMinioStore(cfg config.MinioConfig) (*MinioStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("minio: bucket is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, "minio client")
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http://"
		if cfg.UseSSL {
			scheme = "https://"
		}
		publicURL = scheme + cfg.Endpoint
	}

	return &MinioStore{
		api:       client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}, nil
}

func (m *MinioStore) url(key string) string {
	return m.publicURL + "/" + m.bucket + "/" + key
}

func (m *MinioStore) Upload(ctx context.Context, data []byte, publicID, folder string) (string, error) {
	key := objectKey(publicID, folder)
	_, err := m.api.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType(data),
	})
	if err != nil {
		return "", errors.Wrapf(err, "minio put %s", key)
	}
	return m.url(key), nil
}

func (m *MinioStore) Delete(ctx context.Context, publicID string) error {
	if err := m.api.RemoveObject(ctx, m.bucket, publicID, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrapf(err, "minio remove %s", publicID)
	}
	return nil
}
