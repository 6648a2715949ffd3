package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"photoalbum/internal/models"
)

type photoPatchRequest struct {
	IsFavorite *bool `json:"is_favorite" binding:"required"`
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		abort(c, http.StatusNotFound, msgNotFound)
		return 0, false
	}
	return id, true
}

// loadPhoto fetches the :id photo and checks access to its album.
func (s *Server) loadPhoto(c *gin.Context, need access) (*models.Photo, *models.Album, bool) {
	const op = "server.loadPhoto"
	ctx := c.Request.Context()

	id, ok := parseID(c)
	if !ok {
		return nil, nil, false
	}
	photo, err := s.db.GetPhoto(ctx, id)
	if err != nil {
		s.fail(c, op, err)
		return nil, nil, false
	}
	album, err := s.db.GetAlbum(ctx, photo.AlbumID)
	if err != nil {
		s.fail(c, op, err)
		return nil, nil, false
	}
	if !s.authorize(c, album, need) {
		return nil, nil, false
	}
	return photo, album, true
}

func (s *Server) handleListPhotos(c *gin.Context) {
	const op = "server.handleListPhotos"

	photos, err := s.db.ListUserPhotos(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		s.fail(c, op, err)
		return
	}
	c.JSON(http.StatusOK, photoViews(photos))
}

func (s *Server) handleGetPhoto(c *gin.Context) {
	photo, _, ok := s.loadPhoto(c, accessView)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newPhotoView(photo))
}

func (s *Server) handleUpdatePhoto(c *gin.Context) {
	const op = "server.handleUpdatePhoto"

	photo, _, ok := s.loadPhoto(c, accessEdit)
	if !ok {
		return
	}
	var req photoPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	updated, err := s.db.SetPhotoFavorite(c.Request.Context(), photo.ID, *req.IsFavorite)
	if err != nil {
		s.fail(c, op, err)
		return
	}
	c.JSON(http.StatusOK, newPhotoView(updated))
}

func (s *Server) handleDeletePhoto(c *gin.Context) {
	const op = "server.handleDeletePhoto"
	ctx := c.Request.Context()

	photo, _, ok := s.loadPhoto(c, accessEdit)
	if !ok {
		return
	}
	if err := s.db.DeletePhoto(ctx, photo.ID); err != nil {
		s.fail(c, op, err)
		return
	}
	s.removeMedia(ctx, photo.ImagePath, photo.ThumbnailPath)
	c.Status(http.StatusNoContent)
}

func (s *Server) handlePhotoImage(c *gin.Context) {
	photo, _, ok := s.loadPhoto(c, accessView)
	if !ok {
		return
	}
	s.serveMedia(c, "server.handlePhotoImage", photo.ImagePath)
}

func (s *Server) handlePhotoThumbnail(c *gin.Context) {
	photo, _, ok := s.loadPhoto(c, accessView)
	if !ok {
		return
	}
	if photo.ThumbnailPath == "" {
		abort(c, http.StatusNotFound, "thumbnail not ready")
		return
	}
	s.serveMedia(c, "server.handlePhotoThumbnail", photo.ThumbnailPath)
}

// handleSharePhoto gives the photo a public token; sharing twice keeps the
// existing token.
func (s *Server) handleSharePhoto(c *gin.Context) {
	const op = "server.handleSharePhoto"

	photo, _, ok := s.loadPhoto(c, accessEdit)
	if !ok {
		return
	}
	token, err := s.db.SharePhoto(c.Request.Context(), photo.ID, uuid.New())
	if err != nil {
		s.fail(c, op, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"share_token": token.String(),
		"share_url":   shareURL(token),
	})
}

func (s *Server) handleUnsharePhoto(c *gin.Context) {
	const op = "server.handleUnsharePhoto"

	photo, _, ok := s.loadPhoto(c, accessEdit)
	if !ok {
		return
	}
	if photo.ShareToken != nil {
		if err := s.db.UnsharePhoto(c.Request.Context(), photo.ID); err != nil {
			s.fail(c, op, err)
			return
		}
	}
	c.Status(http.StatusNoContent)
}

// handleSharedPhoto serves a shared photo without authentication.
func (s *Server) handleSharedPhoto(c *gin.Context) {
	const op = "server.handleSharedPhoto"

	token, err := uuid.Parse(c.Param("token"))
	if err != nil {
		abort(c, http.StatusNotFound, msgNotFound)
		return
	}
	photo, err := s.db.GetPhotoByShareToken(c.Request.Context(), token)
	if err != nil {
		s.fail(c, op, err)
		return
	}
	s.serveMedia(c, op, photo.ImagePath)
}
