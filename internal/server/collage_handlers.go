package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"photoalbum/internal/collage"
	"photoalbum/internal/media"
	"photoalbum/internal/models"
)

var errCollageFailed = errors.New("collage could not be built")

// generateCollage tiles the album's favorites, or every photo when none are
// favorited, into a new stored collage.
func (s *Server) generateCollage(ctx context.Context, album *models.Album) (*models.Collage, error) {
	const op = "server.generateCollage"

	photos, err := s.db.ListPhotos(ctx, album.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	selected, err := collage.Select(photos)
	if errors.Is(err, collage.ErrNoPhotos) {
		collagesGenerated.WithLabelValues("empty").Inc()
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	paths := make([]string, len(selected))
	for i, p := range selected {
		paths[i] = p.ImagePath
	}
	images := collage.Load(ctx, s.media.Open, paths, s.log)

	canvas, err := collage.Build(images, s.collage)
	if err != nil {
		collagesGenerated.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%s: %w: %v", op, errCollageFailed, err)
	}

	var buf bytes.Buffer
	if err := collage.Encode(&buf, canvas, s.collage.Format); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	key := media.CollageKey(album.UserID, album.ID, collage.Extension(s.collage.Format))
	if err := s.media.Put(ctx, key, &buf, int64(buf.Len()), collage.ContentType(s.collage.Format)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	record := &models.Collage{AlbumID: album.ID, ImagePath: key}
	if err := s.db.CreateCollage(ctx, record); err != nil {
		s.removeMedia(ctx, key)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	collagesGenerated.WithLabelValues("created").Inc()
	return record, nil
}

func (s *Server) loadCollage(c *gin.Context, need access) (*models.Collage, bool) {
	const op = "server.loadCollage"
	ctx := c.Request.Context()

	id, ok := parseID(c)
	if !ok {
		return nil, false
	}
	record, err := s.db.GetCollage(ctx, id)
	if err != nil {
		s.fail(c, op, err)
		return nil, false
	}
	album, err := s.db.GetAlbum(ctx, record.AlbumID)
	if err != nil {
		s.fail(c, op, err)
		return nil, false
	}
	return record, s.authorize(c, album, need)
}

func (s *Server) handleGetCollage(c *gin.Context) {
	record, ok := s.loadCollage(c, accessView)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newCollageView(record))
}

func (s *Server) handleCollageImage(c *gin.Context) {
	record, ok := s.loadCollage(c, accessView)
	if !ok {
		return
	}
	s.serveMedia(c, "server.handleCollageImage", record.ImagePath)
}

func (s *Server) handleDeleteCollage(c *gin.Context) {
	const op = "server.handleDeleteCollage"
	ctx := c.Request.Context()

	record, ok := s.loadCollage(c, accessEdit)
	if !ok {
		return
	}
	if err := s.db.DeleteCollage(ctx, record.ID); err != nil {
		s.fail(c, op, err)
		return
	}
	s.removeMedia(ctx, record.ImagePath)
	c.Status(http.StatusNoContent)
}
