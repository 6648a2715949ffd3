package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"photoalbum/internal/collage"
	"photoalbum/internal/models"
	"photoalbum/internal/storage"
)

func albumPage(id uuid.UUID) string {
	return "/albums/" + id.String()
}

// pageError answers a page request that cannot go on.
func (s *Server) pageError(c *gin.Context, status int, err error) {
	if status == http.StatusInternalServerError {
		s.log.Error("page request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.String(status, http.StatusText(status))
}

// webAlbum loads the :id album for a page and applies the same access rules
// as the API.
func (s *Server) webAlbum(c *gin.Context, need access) (*models.Album, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.pageError(c, http.StatusNotFound, err)
		return nil, false
	}
	album, err := s.db.GetAlbum(c.Request.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.pageError(c, http.StatusNotFound, err)
		return nil, false
	}
	if err != nil {
		s.pageError(c, http.StatusInternalServerError, err)
		return nil, false
	}
	if status := denied(currentUser(c), album, need); status != 0 {
		s.pageError(c, status, nil)
		return nil, false
	}
	return album, true
}

// webPhoto loads :photo_id and checks that it belongs to the album.
func (s *Server) webPhoto(c *gin.Context, album *models.Album) (*models.Photo, bool) {
	id, err := strconv.ParseInt(c.Param("photo_id"), 10, 64)
	if err != nil {
		s.pageError(c, http.StatusNotFound, err)
		return nil, false
	}
	photo, err := s.db.GetPhoto(c.Request.Context(), id)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && photo.AlbumID != album.ID) {
		s.pageError(c, http.StatusNotFound, err)
		return nil, false
	}
	if err != nil {
		s.pageError(c, http.StatusInternalServerError, err)
		return nil, false
	}
	return photo, true
}

func (s *Server) renderAlbum(c *gin.Context, status int, album *models.Album, msg string) {
	ctx := c.Request.Context()
	u := currentUser(c)

	photos, err := s.db.ListPhotos(ctx, album.ID)
	if err != nil {
		s.pageError(c, http.StatusInternalServerError, err)
		return
	}
	collages, err := s.db.ListCollages(ctx, album.ID)
	if err != nil {
		s.pageError(c, http.StatusInternalServerError, err)
		return
	}
	c.HTML(status, "album.html", gin.H{
		"User":      u,
		"Error":     msg,
		"Album":     album,
		"Photos":    photoViews(photos),
		"Collages":  collages,
		"CanEdit":   album.CanEdit(u),
		"CanManage": album.CanManage(u),
	})
}

func (s *Server) pageAlbum(c *gin.Context) {
	album, ok := s.webAlbum(c, accessView)
	if !ok {
		return
	}
	s.renderAlbum(c, http.StatusOK, album, "")
}

func (s *Server) submitUploadPhotos(c *gin.Context) {
	album, ok := s.webAlbum(c, accessEdit)
	if !ok {
		return
	}

	s.limitBody(c)
	form, err := c.MultipartForm()
	if err != nil || len(form.File["photos"]) == 0 {
		s.renderAlbum(c, http.StatusBadRequest, album, "No images provided")
		return
	}
	_, err = s.storePhotos(c.Request.Context(), album, form.File["photos"])
	if errors.Is(err, errInvalidImage) {
		s.renderAlbum(c, http.StatusBadRequest, album, err.Error())
		return
	}
	if err != nil {
		s.log.Error("store album photos", zap.Stringer("album_id", album.ID), zap.Error(err))
		s.renderAlbum(c, http.StatusInternalServerError, album, msgUploadFailed)
		return
	}
	c.Redirect(http.StatusFound, albumPage(album.ID))
}

func (s *Server) submitGenerateCollage(c *gin.Context) {
	album, ok := s.webAlbum(c, accessEdit)
	if !ok {
		return
	}

	_, err := s.generateCollage(c.Request.Context(), album)
	switch {
	case errors.Is(err, collage.ErrNoPhotos):
		s.renderAlbum(c, http.StatusBadRequest, album, "No photos in album to generate collage")
	case err != nil:
		s.log.Error("generate collage from page", zap.Stringer("album_id", album.ID), zap.Error(err))
		s.renderAlbum(c, http.StatusInternalServerError, album, "Failed to generate collage")
	default:
		c.Redirect(http.StatusFound, albumPage(album.ID))
	}
}

func (s *Server) submitDeleteAlbum(c *gin.Context) {
	album, ok := s.webAlbum(c, accessManage)
	if !ok {
		return
	}
	if err := s.deleteAlbum(c.Request.Context(), album); err != nil {
		s.pageError(c, http.StatusInternalServerError, err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

// submitToggleFavorite flips the photo's favorite flag.
func (s *Server) submitToggleFavorite(c *gin.Context) {
	album, ok := s.webAlbum(c, accessEdit)
	if !ok {
		return
	}
	photo, ok := s.webPhoto(c, album)
	if !ok {
		return
	}
	if _, err := s.db.SetPhotoFavorite(c.Request.Context(), photo.ID, !photo.IsFavorite); err != nil {
		s.pageError(c, http.StatusInternalServerError, err)
		return
	}
	c.Redirect(http.StatusFound, albumPage(album.ID))
}

func (s *Server) submitSharePhoto(c *gin.Context) {
	album, ok := s.webAlbum(c, accessEdit)
	if !ok {
		return
	}
	photo, ok := s.webPhoto(c, album)
	if !ok {
		return
	}
	if _, err := s.db.SharePhoto(c.Request.Context(), photo.ID, uuid.New()); err != nil {
		s.pageError(c, http.StatusInternalServerError, err)
		return
	}
	c.Redirect(http.StatusFound, albumPage(album.ID))
}
