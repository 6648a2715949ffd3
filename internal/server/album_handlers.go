package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"photoalbum/internal/collage"
	"photoalbum/internal/media"
	"photoalbum/internal/models"
	"photoalbum/internal/storage"
)

type albumRequest struct {
	Title       string `json:"title" binding:"required,max=255"`
	Description string `json:"description"`
	IsPublic    bool   `json:"is_public"`
}

type albumPatchRequest struct {
	Title       *string `json:"title" binding:"omitempty,min=1,max=255"`
	Description *string `json:"description"`
	IsPublic    *bool   `json:"is_public"`
}

type editorRequest struct {
	Username string `json:"username" binding:"required"`
}

type access int

const (
	accessView access = iota
	accessEdit
	accessManage
)

// loadAlbum fetches the :id album and checks the caller's access. Albums the
// caller cannot see are reported as missing.
func (s *Server) loadAlbum(c *gin.Context, need access) (*models.Album, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abort(c, http.StatusNotFound, msgNotFound)
		return nil, false
	}
	album, err := s.db.GetAlbum(c.Request.Context(), id)
	if err != nil {
		s.fail(c, "server.loadAlbum", err)
		return nil, false
	}
	return album, s.authorize(c, album, need)
}

// denied returns the status for a user without the needed access, or 0.
func denied(u *models.User, album *models.Album, need access) int {
	if !album.CanView(u) {
		return http.StatusNotFound
	}
	if (need == accessEdit && !album.CanEdit(u)) || (need == accessManage && !album.CanManage(u)) {
		return http.StatusForbidden
	}
	return 0
}

func (s *Server) authorize(c *gin.Context, album *models.Album, need access) bool {
	switch denied(currentUser(c), album, need) {
	case http.StatusNotFound:
		abort(c, http.StatusNotFound, msgNotFound)
		return false
	case http.StatusForbidden:
		abort(c, http.StatusForbidden, msgForbidden)
		return false
	}
	return true
}

func (s *Server) handleListAlbums(c *gin.Context) {
	const op = "server.handleListAlbums"
	ctx := c.Request.Context()
	u := currentUser(c)

	var (
		albums []models.Album
		err    error
	)
	switch c.Query("scope") {
	case "":
		albums, err = s.db.ListAlbums(ctx, u.ID)
	case "owned":
		albums, err = s.db.ListOwnedAlbums(ctx, u.ID)
	case "public":
		albums, err = s.db.ListPublicAlbums(ctx)
	case "all":
		if !u.IsStaff {
			abort(c, http.StatusForbidden, msgForbidden)
			return
		}
		albums, err = s.db.ListAllAlbums(ctx)
	default:
		abort(c, http.StatusBadRequest, "scope must be one of owned, public, all")
		return
	}
	if err != nil {
		s.fail(c, op, err)
		return
	}
	c.JSON(http.StatusOK, albums)
}

func (s *Server) handleCreateAlbum(c *gin.Context) {
	const op = "server.handleCreateAlbum"

	var req albumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		abort(c, http.StatusBadRequest, "title may not be blank")
		return
	}

	album := &models.Album{
		UserID:      currentUser(c).ID,
		Title:       title,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	}
	if err := s.db.CreateAlbum(c.Request.Context(), album); err != nil {
		s.fail(c, op, err)
		return
	}
	c.JSON(http.StatusCreated, album)
}

func (s *Server) handleGetAlbum(c *gin.Context) {
	album, ok := s.loadAlbum(c, accessView)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, album)
}

func (s *Server) handleUpdateAlbum(c *gin.Context) {
	const op = "server.handleUpdateAlbum"

	album, ok := s.loadAlbum(c, accessManage)
	if !ok {
		return
	}

	var req albumPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			abort(c, http.StatusBadRequest, "title may not be blank")
			return
		}
		album.Title = title
	}
	if req.Description != nil {
		album.Description = *req.Description
	}
	if req.IsPublic != nil {
		album.IsPublic = *req.IsPublic
	}

	if err := s.db.UpdateAlbum(c.Request.Context(), album); err != nil {
		s.fail(c, op, err)
		return
	}
	c.JSON(http.StatusOK, album)
}

func (s *Server) handleDeleteAlbum(c *gin.Context) {
	const op = "server.handleDeleteAlbum"
	ctx := c.Request.Context()

	album, ok := s.loadAlbum(c, accessManage)
	if !ok {
		return
	}
	if err := s.deleteAlbum(ctx, album); err != nil {
		s.fail(c, op, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// deleteAlbum removes the album row, which cascades to its photos and
// collages, and then its media directory.
func (s *Server) deleteAlbum(ctx context.Context, album *models.Album) error {
	if err := s.db.DeleteAlbum(ctx, album.ID); err != nil {
		return err
	}
	if err := s.media.DeletePrefix(ctx, media.AlbumDir(album.UserID, album.ID)); err != nil {
		s.log.Warn("remove album media", zap.Stringer("album_id", album.ID), zap.Error(err))
	}
	return nil
}

func (s *Server) handleUploadPhotos(c *gin.Context) {
	const op = "server.handleUploadPhotos"

	album, ok := s.loadAlbum(c, accessEdit)
	if !ok {
		return
	}

	s.limitBody(c)
	form, err := c.MultipartForm()
	if err != nil || len(form.File["images"]) == 0 {
		abort(c, http.StatusBadRequest, "No images provided")
		return
	}

	photos, err := s.storePhotos(c.Request.Context(), album, form.File["images"])
	if errors.Is(err, errInvalidImage) {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.fail(c, op, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "Photos uploaded", "count": len(photos)})
}

func (s *Server) handleGenerateCollage(c *gin.Context) {
	const op = "server.handleGenerateCollage"

	album, ok := s.loadAlbum(c, accessEdit)
	if !ok {
		return
	}

	record, err := s.generateCollage(c.Request.Context(), album)
	switch {
	case errors.Is(err, collage.ErrNoPhotos):
		abort(c, http.StatusBadRequest, "No photos in album to generate collage")
	case errors.Is(err, errCollageFailed):
		s.log.Error("build collage", zap.Stringer("album_id", album.ID), zap.Error(err))
		abort(c, http.StatusInternalServerError, "Failed to generate collage")
	case err != nil:
		s.fail(c, op, err)
	default:
		c.JSON(http.StatusCreated, newCollageView(record))
	}
}

func (s *Server) handleListAlbumPhotos(c *gin.Context) {
	const op = "server.handleListAlbumPhotos"

	album, ok := s.loadAlbum(c, accessView)
	if !ok {
		return
	}
	photos, err := s.db.ListPhotos(c.Request.Context(), album.ID)
	if err != nil {
		s.fail(c, op, err)
		return
	}
	c.JSON(http.StatusOK, photoViews(photos))
}

func (s *Server) handleListAlbumCollages(c *gin.Context) {
	const op = "server.handleListAlbumCollages"

	album, ok := s.loadAlbum(c, accessView)
	if !ok {
		return
	}
	collages, err := s.db.ListCollages(c.Request.Context(), album.ID)
	if err != nil {
		s.fail(c, op, err)
		return
	}
	c.JSON(http.StatusOK, collageViews(collages))
}

func (s *Server) handleAddEditor(c *gin.Context) {
	const op = "server.handleAddEditor"
	ctx := c.Request.Context()

	album, ok := s.loadAlbum(c, accessManage)
	if !ok {
		return
	}

	var req editorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	editor, err := s.db.GetUserByUsername(ctx, req.Username)
	if errors.Is(err, storage.ErrNotFound) {
		abort(c, http.StatusBadRequest, "unknown user")
		return
	}
	if err != nil {
		s.fail(c, op, err)
		return
	}
	if album.IsOwner(editor.ID) {
		abort(c, http.StatusBadRequest, "the owner cannot be an editor")
		return
	}

	if err := s.db.AddEditor(ctx, album.ID, editor.ID); err != nil {
		s.fail(c, op, err)
		return
	}
	album, err = s.db.GetAlbum(ctx, album.ID)
	if err != nil {
		s.fail(c, op, err)
		return
	}
	c.JSON(http.StatusOK, album)
}

func (s *Server) handleRemoveEditor(c *gin.Context) {
	const op = "server.handleRemoveEditor"

	album, ok := s.loadAlbum(c, accessManage)
	if !ok {
		return
	}
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		abort(c, http.StatusNotFound, msgNotFound)
		return
	}
	if err := s.db.RemoveEditor(c.Request.Context(), album.ID, userID); err != nil {
		s.fail(c, op, err)
		return
	}
	c.Status(http.StatusNoContent)
}
