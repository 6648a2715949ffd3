package server

import (
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"photoalbum/internal/auth"
	"photoalbum/internal/media"
	"photoalbum/internal/models"
	"photoalbum/internal/storage"
)

type registerRequest struct {
	Username  string `json:"username" binding:"required,min=3,max=150"`
	Password  string `json:"password" binding:"required"`
	Email     string `json:"email" binding:"omitempty,email"`
	FirstName string `json:"first_name" binding:"max=150"`
	LastName  string `json:"last_name" binding:"max=150"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

type updateProfileRequest struct {
	Email     *string `json:"email" binding:"omitempty,email"`
	FirstName *string `json:"first_name" binding:"omitempty,max=150"`
	LastName  *string `json:"last_name" binding:"omitempty,max=150"`
	Bio       *string `json:"bio" binding:"omitempty,max=500"`
	Location  *string `json:"location" binding:"omitempty,max=30"`
	BirthDate *string `json:"birth_date"`
}

var (
	errUsernameTaken   = errors.New("username already exists")
	errInvalidUsername = errors.New("username must be between 3 and 150 characters")
)

// registerUser validates and stores a new account. Length limits apply to
// the trimmed username.
func (s *Server) registerUser(c *gin.Context, req registerRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	if n := utf8.RuneCountInString(username); n < 3 || n > 150 {
		return nil, errInvalidUsername
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		Username:     username,
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hash,
	}
	if err := s.db.CreateUser(c.Request.Context(), u); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, errUsernameTaken
		}
		return nil, err
	}
	return u, nil
}

// login checks credentials; unknown users and wrong passwords look the same.
func (s *Server) login(c *gin.Context, username, password string) (*models.User, error) {
	u, err := s.db.GetUserByUsername(c.Request.Context(), username)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, auth.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Server) handleRegister(c *gin.Context) {
	const op = "server.handleRegister"

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	u, err := s.registerUser(c, req)
	switch {
	case errors.Is(err, auth.ErrWeakPassword), errors.Is(err, errUsernameTaken), errors.Is(err, errInvalidUsername):
		abort(c, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.fail(c, op, err)
		return
	}

	pair, err := s.tokens.Issue(u)
	if err != nil {
		s.fail(c, op, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"user":          newUserView(u, nil),
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"message":       "Registration successful!",
	})
}

func (s *Server) handleLogin(c *gin.Context) {
	const op = "server.handleLogin"

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	u, err := s.login(c, req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		abort(c, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		s.fail(c, op, err)
		return
	}

	pair, err := s.tokens.Issue(u)
	if err != nil {
		s.fail(c, op, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":          newUserView(u, nil),
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

func (s *Server) handleRefresh(c *gin.Context) {
	const op = "server.handleRefresh"

	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	ctx := c.Request.Context()
	u, claims, err := s.authenticate(ctx, req.RefreshToken, auth.TypeRefresh)
	if err != nil {
		if isAuthError(err) {
			abort(c, http.StatusUnauthorized, "invalid refresh token")
			return
		}
		s.fail(c, op, err)
		return
	}

	if err := s.tokens.Revoke(ctx, claims); err != nil {
		s.fail(c, op, err)
		return
	}
	pair, err := s.tokens.Issue(u)
	if err != nil {
		s.fail(c, op, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

func (s *Server) handleLogout(c *gin.Context) {
	const op = "server.handleLogout"
	ctx := c.Request.Context()

	var req logoutRequest
	_ = c.ShouldBindJSON(&req)

	if err := s.tokens.Revoke(ctx, currentClaims(c)); err != nil {
		s.fail(c, op, err)
		return
	}
	if req.RefreshToken != "" {
		claims, err := s.tokens.Parse(ctx, req.RefreshToken, auth.TypeRefresh)
		if err == nil && claims.UserID == currentUser(c).ID {
			if err := s.tokens.Revoke(ctx, claims); err != nil {
				s.fail(c, op, err)
				return
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out."})
}

func (s *Server) handleGetProfile(c *gin.Context) {
	const op = "server.handleGetProfile"

	u := currentUser(c)
	p, err := s.db.GetProfile(c.Request.Context(), u.ID)
	if err != nil {
		s.fail(c, op, err)
		return
	}
	c.JSON(http.StatusOK, newUserView(u, p))
}

// applyProfile copies the non-nil request fields onto the user and profile.
func applyProfile(req updateProfileRequest, u *models.User, p *models.UserProfile) error {
	if req.Email != nil {
		u.Email = *req.Email
	}
	if req.FirstName != nil {
		u.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		u.LastName = *req.LastName
	}
	if req.Bio != nil {
		p.Bio = *req.Bio
	}
	if req.Location != nil {
		p.Location = *req.Location
	}
	if req.BirthDate != nil {
		if *req.BirthDate == "" {
			p.BirthDate = nil
		} else {
			d, err := time.Parse(dateLayout, *req.BirthDate)
			if err != nil {
				return errors.New("birth_date must be YYYY-MM-DD")
			}
			p.BirthDate = &d
		}
	}
	return nil
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	const op = "server.handleUpdateProfile"
	ctx := c.Request.Context()

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	u := currentUser(c)
	p, err := s.db.GetProfile(ctx, u.ID)
	if err != nil {
		s.fail(c, op, err)
		return
	}
	if err := applyProfile(req, u, p); err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.db.UpdateUser(ctx, u); err != nil {
		s.fail(c, op, err)
		return
	}
	if err := s.db.UpdateProfile(ctx, p); err != nil {
		s.fail(c, op, err)
		return
	}
	c.JSON(http.StatusOK, newUserView(u, p))
}

func (s *Server) handleGetAvatar(c *gin.Context) {
	const op = "server.handleGetAvatar"

	p, err := s.db.GetProfile(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		s.fail(c, op, err)
		return
	}
	if p.AvatarPath == "" {
		abort(c, http.StatusNotFound, msgNotFound)
		return
	}
	s.serveMedia(c, op, p.AvatarPath)
}

func (s *Server) handleUploadAvatar(c *gin.Context) {
	const op = "server.handleUploadAvatar"

	s.limitBody(c)
	fh, err := c.FormFile("avatar")
	if err != nil {
		abort(c, http.StatusBadRequest, "avatar file is required")
		return
	}

	u := currentUser(c)
	p, err := s.saveAvatar(c, u, fh)
	if errors.Is(err, errInvalidImage) {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.fail(c, op, err)
		return
	}
	c.JSON(http.StatusOK, newUserView(u, p))
}

func (s *Server) handleChangePassword(c *gin.Context) {
	const op = "server.handleChangePassword"
	ctx := c.Request.Context()

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	u := currentUser(c)
	if err := auth.CheckPassword(u.PasswordHash, req.OldPassword); err != nil {
		abort(c, http.StatusBadRequest, "old password is incorrect")
		return
	}
	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}

	version, err := s.db.SetPassword(ctx, u.ID, hash)
	if err != nil {
		s.fail(c, op, err)
		return
	}
	u.PasswordHash = hash
	u.TokenVersion = version

	pair, err := s.tokens.Issue(u)
	if err != nil {
		s.fail(c, op, err)
		return
	}
	s.log.Info("password changed", zap.Int64("user_id", u.ID))
	c.JSON(http.StatusOK, gin.H{
		"message":       "Password changed successfully.",
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

// serveMedia streams a stored file.
func (s *Server) serveMedia(c *gin.Context, op, key string) {
	rc, err := s.media.Open(c.Request.Context(), key)
	if err != nil {
		s.fail(c, op, err)
		return
	}
	defer rc.Close()
	c.DataFromReader(http.StatusOK, -1, media.ContentType(key), rc, nil)
}
