package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"photoalbum/internal/media"
	"photoalbum/internal/storage"
)

const (
	msgNotFound     = "Not found."
	msgForbidden    = "You do not have permission to perform this action."
	msgUnauthorized = "Authentication credentials were not provided."
)

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// fail maps an error from the store or media layers onto a response.
func (s *Server) fail(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, media.ErrNotFound):
		abort(c, http.StatusNotFound, msgNotFound)
	case errors.Is(err, storage.ErrConflict):
		abort(c, http.StatusBadRequest, "already exists")
	default:
		s.log.Error("request failed", zap.String("op", op), zap.Error(err))
		abort(c, http.StatusInternalServerError, "internal server error")
	}
}

// bindError reports a request that failed binding or validation.
func bindError(c *gin.Context, err error) {
	abort(c, http.StatusBadRequest, err.Error())
}
