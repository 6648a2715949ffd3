package server

import (
	"context"
	"errors"
	"fmt"
	"image"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"photoalbum/internal/media"
	"photoalbum/internal/models"
)

var errInvalidImage = errors.New("upload a valid image")

func (s *Server) limitBody(c *gin.Context) {
	if s.cfg.MaxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadSize)
	}
}

// checkImage fails unless the upload decodes as a supported image format.
func checkImage(fh *multipart.FileHeader) error {
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	if _, _, err := image.DecodeConfig(f); err != nil {
		return fmt.Errorf("%w: %s", errInvalidImage, fh.Filename)
	}
	return nil
}

func (s *Server) putUpload(ctx context.Context, key string, fh *multipart.FileHeader) error {
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	return s.media.Put(ctx, key, f, fh.Size, media.ContentType(key))
}

// storePhotos saves every file into the album and queues thumbnails. Files
// are validated before anything is written, and a failure part way through
// removes the photos already saved so none are left pending.
func (s *Server) storePhotos(ctx context.Context, album *models.Album, files []*multipart.FileHeader) ([]models.Photo, error) {
	const op = "server.storePhotos"

	for _, fh := range files {
		if err := checkImage(fh); err != nil {
			return nil, err
		}
	}

	photos := make([]models.Photo, 0, len(files))
	ids := make([]int64, 0, len(files))
	for _, fh := range files {
		key := media.PhotoKey(album.UserID, album.ID, fh.Filename)
		if err := s.putUpload(ctx, key, fh); err != nil {
			s.discardPhotos(ctx, photos)
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		p := models.Photo{AlbumID: album.ID, ImagePath: key}
		if err := s.db.CreatePhoto(ctx, &p); err != nil {
			s.removeMedia(ctx, key)
			s.discardPhotos(ctx, photos)
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		photos = append(photos, p)
		ids = append(ids, p.ID)
	}
	photosUploaded.Add(float64(len(photos)))

	if err := s.publisher.Publish(ctx, ids...); err != nil {
		s.log.Error("queue thumbnails", zap.Int64s("photo_ids", ids), zap.Error(err))
	}
	return photos, nil
}

// discardPhotos deletes rows and files from an upload that did not finish.
// It keeps going after the request context is cancelled.
func (s *Server) discardPhotos(ctx context.Context, photos []models.Photo) {
	ctx = context.WithoutCancel(ctx)
	for _, p := range photos {
		if err := s.db.DeletePhoto(ctx, p.ID); err != nil {
			s.log.Warn("discard photo", zap.Int64("photo_id", p.ID), zap.Error(err))
		}
		s.removeMedia(ctx, p.ImagePath)
	}
}

// saveAvatar replaces the user's avatar file.
func (s *Server) saveAvatar(c *gin.Context, u *models.User, fh *multipart.FileHeader) (*models.UserProfile, error) {
	const op = "server.saveAvatar"
	ctx := c.Request.Context()

	if err := checkImage(fh); err != nil {
		return nil, err
	}
	p, err := s.db.GetProfile(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	key := media.AvatarKey(u.ID, fh.Filename)
	if err := s.putUpload(ctx, key, fh); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	old := p.AvatarPath
	p.AvatarPath = key
	if err := s.db.UpdateProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if old != "" {
		s.removeMedia(ctx, old)
	}
	return p, nil
}

// removeMedia deletes a file, logging rather than failing the request.
func (s *Server) removeMedia(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.media.Delete(ctx, key); err != nil {
			s.log.Warn("remove media", zap.String("key", key), zap.Error(err))
		}
	}
}
