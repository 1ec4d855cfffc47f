// Package media stores product images on a remote host.
package media

import (
	"context"
	"net/http"
	"path"
	"strings"

	"github.com/go-faster/errors"

	"floordesign/config"
)

// Store uploads and deletes images. publicID passed to Delete is the full
// path including the folder, e.g. "products/Tapis/Floral/rouge".
type Store interface {
	Upload(ctx context.Context, data []byte, publicID, folder string) (string, error)
	Delete(ctx context.Context, publicID string) error
}

// NewFromConfig builds the store selected by cfg.Provider.
func NewFromConfig(ctx context.Context, cfg config.MediaConfig) (Store, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "cloudinary":
		return NewCloudinaryStore(cfg.Cloudinary, cfg.RequestsPerSecond)
	case "minio":
		return NewMinioStore(cfg.Minio)
	case "s3":
		return NewS3Store(ctx, cfg.S3)
	default:
		return nil, errors.Errorf("unknown media provider %q", cfg.Provider)
	}
}

func objectKey(publicID, folder string) string {
	return strings.TrimPrefix(path.Join(folder, publicID), "/")
}

func contentType(data []byte) string {
	return http.DetectContentType(data)
}
