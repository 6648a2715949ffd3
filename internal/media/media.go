// Package media stores uploaded and generated image files.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"photoalbum/internal/models"
)

var ErrNotFound = errors.New("media not found")

type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// New builds the store selected by cfg.MediaBackend.
func New(ctx context.Context, cfg *models.Config) (Store, error) {
	switch cfg.MediaBackend {
	case "s3":
		return NewS3(ctx, S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
		})
	default:
		return NewLocal(cfg.StoragePath)
	}
}

// AlbumDir is the prefix every file of an album lives under.
func AlbumDir(ownerID int64, albumID uuid.UUID) string {
	return fmt.Sprintf("user_%d/album_%s", ownerID, albumID)
}

func PhotoKey(ownerID int64, albumID uuid.UUID, filename string) string {
	return path.Join(AlbumDir(ownerID, albumID), "photos", uuid.NewString()+cleanExt(filename))
}

func ThumbnailKey(ownerID int64, albumID uuid.UUID, photoID int64) string {
	return path.Join(AlbumDir(ownerID, albumID), "thumbnails", fmt.Sprintf("%d.jpg", photoID))
}

func CollageKey(ownerID int64, albumID uuid.UUID, ext string) string {
	return path.Join(AlbumDir(ownerID, albumID), "collages", "collage_"+uuid.NewString()+"."+ext)
}

func AvatarKey(userID int64, filename string) string {
	return path.Join(fmt.Sprintf("user_%d", userID), "avatar", uuid.NewString()+cleanExt(filename))
}

func cleanExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return ext
	}
	return ""
}

// ContentType guesses the image content type from a key's extension.
func ContentType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	case ".tif", ".tiff":
		return "image/tiff"
	case ".webp":
		return "image/webp"
	}
	return "application/octet-stream"
}
