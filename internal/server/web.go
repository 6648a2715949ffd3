package server

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"photoalbum/internal/auth"
	"photoalbum/internal/models"
)

const (
	cookieAccess  = "access_token"
	cookieRefresh = "refresh_token"

	msgUploadFailed = "The photos could not be saved. Please try again."
)

type registerForm struct {
	Username  string `form:"username" binding:"required,min=3,max=150"`
	Email     string `form:"email" binding:"omitempty,email"`
	FirstName string `form:"first_name" binding:"max=150"`
	LastName  string `form:"last_name" binding:"max=150"`
	Password1 string `form:"password1" binding:"required"`
	Password2 string `form:"password2" binding:"required"`
}

type loginForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

type profileForm struct {
	Email     string `form:"email" binding:"omitempty,email"`
	FirstName string `form:"first_name" binding:"max=150"`
	LastName  string `form:"last_name" binding:"max=150"`
	Bio       string `form:"bio" binding:"max=500"`
	Location  string `form:"location" binding:"max=30"`
	BirthDate string `form:"birth_date"`
}

func (f profileForm) request() updateProfileRequest {
	return updateProfileRequest{
		Email:     &f.Email,
		FirstName: &f.FirstName,
		LastName:  &f.LastName,
		Bio:       &f.Bio,
		Location:  &f.Location,
		BirthDate: &f.BirthDate,
	}
}

func (s *Server) setSession(c *gin.Context, pair *auth.Pair) {
	secure := !s.cfg.Development
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cookieAccess, pair.AccessToken, int(s.tokens.AccessTTL().Seconds()), "/", "", secure, true)
	c.SetCookie(cookieRefresh, pair.RefreshToken, int(s.tokens.RefreshTTL().Seconds()), "/", "", secure, true)
}

func (s *Server) clearSession(c *gin.Context) {
	c.SetCookie(cookieAccess, "", -1, "/", "", false, true)
	c.SetCookie(cookieRefresh, "", -1, "/", "", false, true)
}

func (s *Server) startSession(c *gin.Context, u *models.User) bool {
	pair, err := s.tokens.Issue(u)
	if err != nil {
		s.log.Error("issue session tokens", zap.Int64("user_id", u.ID), zap.Error(err))
		c.String(http.StatusInternalServerError, "internal server error")
		return false
	}
	s.setSession(c, pair)
	return true
}

// requireSession authenticates page requests from cookies. An expired access
// cookie is renewed from the refresh cookie.
func (s *Server) requireSession(c *gin.Context) {
	ctx := c.Request.Context()

	if token, err := c.Cookie(cookieAccess); err == nil {
		user, claims, err := s.authenticate(ctx, token, auth.TypeAccess)
		if err == nil {
			c.Set(ctxUser, user)
			c.Set(ctxClaims, claims)
			c.Next()
			return
		}
	}

	if token, err := c.Cookie(cookieRefresh); err == nil {
		user, claims, err := s.authenticate(ctx, token, auth.TypeRefresh)
		if err == nil {
			if err := s.tokens.Revoke(ctx, claims); err != nil {
				s.log.Warn("revoke rotated refresh token", zap.Error(err))
			}
			pair, err := s.tokens.Issue(user)
			if err == nil {
				s.setSession(c, pair)
				access, err := s.tokens.Parse(ctx, pair.AccessToken, auth.TypeAccess)
				if err == nil {
					c.Set(ctxUser, user)
					c.Set(ctxClaims, access)
					c.Next()
					return
				}
			}
		}
	}

	s.clearSession(c)
	c.Redirect(http.StatusFound, "/login")
	c.Abort()
}

func (s *Server) pageRegister(c *gin.Context) {
	c.HTML(http.StatusOK, "register.html", gin.H{})
}

func (s *Server) submitRegister(c *gin.Context) {
	var form registerForm
	if err := c.ShouldBind(&form); err != nil {
		c.HTML(http.StatusBadRequest, "register.html", gin.H{"Error": err.Error(), "Form": form})
		return
	}
	if form.Password1 != form.Password2 {
		c.HTML(http.StatusBadRequest, "register.html", gin.H{"Error": "The two password fields didn't match.", "Form": form})
		return
	}

	u, err := s.registerUser(c, registerRequest{
		Username:  form.Username,
		Password:  form.Password1,
		Email:     form.Email,
		FirstName: form.FirstName,
		LastName:  form.LastName,
	})
	switch {
	case errors.Is(err, auth.ErrWeakPassword), errors.Is(err, errUsernameTaken), errors.Is(err, errInvalidUsername):
		c.HTML(http.StatusBadRequest, "register.html", gin.H{"Error": err.Error(), "Form": form})
		return
	case err != nil:
		s.log.Error("register from page", zap.Error(err))
		c.String(http.StatusInternalServerError, "internal server error")
		return
	}

	if s.startSession(c, u) {
		c.Redirect(http.StatusFound, "/")
	}
}

func (s *Server) pageLogin(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{})
}

func (s *Server) submitLogin(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		c.HTML(http.StatusBadRequest, "login.html", gin.H{"Error": "Enter a username and password.", "Username": form.Username})
		return
	}

	u, err := s.login(c, form.Username, form.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.HTML(http.StatusUnauthorized, "login.html", gin.H{"Error": "Invalid username or password.", "Username": form.Username})
		return
	}
	if err != nil {
		s.log.Error("login from page", zap.Error(err))
		c.String(http.StatusInternalServerError, "internal server error")
		return
	}

	if s.startSession(c, u) {
		c.Redirect(http.StatusFound, "/")
	}
}

func (s *Server) submitLogout(c *gin.Context) {
	ctx := c.Request.Context()
	for name, typ := range map[string]string{cookieAccess: auth.TypeAccess, cookieRefresh: auth.TypeRefresh} {
		token, err := c.Cookie(name)
		if err != nil {
			continue
		}
		if claims, err := s.tokens.Parse(ctx, token, typ); err == nil {
			if err := s.tokens.Revoke(ctx, claims); err != nil {
				s.log.Warn("revoke session token", zap.Error(err))
			}
		}
	}
	s.clearSession(c)
	c.Redirect(http.StatusFound, "/login")
}

func (s *Server) pageDashboard(c *gin.Context) {
	u := currentUser(c)
	albums, err := s.db.ListOwnedAlbums(c.Request.Context(), u.ID)
	if err != nil {
		s.log.Error("dashboard albums", zap.Int64("user_id", u.ID), zap.Error(err))
		c.String(http.StatusInternalServerError, "internal server error")
		return
	}
	c.HTML(http.StatusOK, "dashboard.html", gin.H{"User": u, "Albums": albums})
}

func (s *Server) pageCreateAlbum(c *gin.Context) {
	c.HTML(http.StatusOK, "create_album.html", gin.H{"User": currentUser(c)})
}

func (s *Server) submitCreateAlbum(c *gin.Context) {
	ctx := c.Request.Context()
	u := currentUser(c)

	s.limitBody(c)
	title := strings.TrimSpace(c.PostForm("title"))
	description := c.PostForm("description")
	if title == "" || utf8.RuneCountInString(title) > 255 {
		c.HTML(http.StatusBadRequest, "create_album.html", gin.H{
			"User": u, "Error": "Title must be between 1 and 255 characters.", "Description": description,
		})
		return
	}

	var files []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil {
		files = form.File["photos"]
	}
	for _, fh := range files {
		if err := checkImage(fh); err != nil {
			c.HTML(http.StatusBadRequest, "create_album.html", gin.H{
				"User": u, "Error": err.Error(), "Title": title, "Description": description,
			})
			return
		}
	}

	album := &models.Album{UserID: u.ID, Title: title, Description: description}
	if err := s.db.CreateAlbum(ctx, album); err != nil {
		s.log.Error("create album from page", zap.Error(err))
		c.String(http.StatusInternalServerError, "internal server error")
		return
	}
	if len(files) > 0 {
		if _, err := s.storePhotos(ctx, album, files); err != nil {
			s.log.Error("store album photos", zap.Stringer("album_id", album.ID), zap.Error(err))
			if derr := s.deleteAlbum(ctx, album); derr != nil {
				s.log.Error("discard album", zap.Stringer("album_id", album.ID), zap.Error(derr))
			}
			c.HTML(http.StatusInternalServerError, "create_album.html", gin.H{
				"User": u, "Error": msgUploadFailed, "Title": title, "Description": description,
			})
			return
		}
	}
	c.Redirect(http.StatusFound, "/")
}

func (s *Server) pageProfile(c *gin.Context) {
	u := currentUser(c)
	p, err := s.db.GetProfile(c.Request.Context(), u.ID)
	if err != nil {
		s.log.Error("load profile", zap.Int64("user_id", u.ID), zap.Error(err))
		c.String(http.StatusInternalServerError, "internal server error")
		return
	}
	c.HTML(http.StatusOK, "profile.html", gin.H{
		"User":    newUserView(u, p),
		"Updated": c.Query("updated") != "",
	})
}

func (s *Server) pageEditProfile(c *gin.Context) {
	u := currentUser(c)
	p, err := s.db.GetProfile(c.Request.Context(), u.ID)
	if err != nil {
		s.log.Error("load profile", zap.Int64("user_id", u.ID), zap.Error(err))
		c.String(http.StatusInternalServerError, "internal server error")
		return
	}
	c.HTML(http.StatusOK, "profile_edit.html", gin.H{"User": newUserView(u, p)})
}

func (s *Server) submitEditProfile(c *gin.Context) {
	ctx := c.Request.Context()
	u := currentUser(c)

	p, err := s.db.GetProfile(ctx, u.ID)
	if err != nil {
		s.log.Error("load profile", zap.Int64("user_id", u.ID), zap.Error(err))
		c.String(http.StatusInternalServerError, "internal server error")
		return
	}
	invalid := func(msg string) {
		c.HTML(http.StatusBadRequest, "profile_edit.html", gin.H{
			"User":  newUserView(u, p),
			"Error": "Please correct the errors below: " + msg,
		})
	}

	s.limitBody(c)
	var form profileForm
	if err := c.ShouldBind(&form); err != nil {
		invalid(err.Error())
		return
	}
	if err := applyProfile(form.request(), u, p); err != nil {
		invalid(err.Error())
		return
	}

	if fh, err := c.FormFile("avatar"); err == nil {
		saved, err := s.saveAvatar(c, u, fh)
		if errors.Is(err, errInvalidImage) {
			invalid(err.Error())
			return
		}
		if err != nil {
			s.log.Error("save avatar", zap.Int64("user_id", u.ID), zap.Error(err))
			c.String(http.StatusInternalServerError, "internal server error")
			return
		}
		p.AvatarPath = saved.AvatarPath
	}

	if err := s.db.UpdateUser(ctx, u); err != nil {
		s.log.Error("update user", zap.Int64("user_id", u.ID), zap.Error(err))
		c.String(http.StatusInternalServerError, "internal server error")
		return
	}
	if err := s.db.UpdateProfile(ctx, p); err != nil {
		s.log.Error("update profile", zap.Int64("user_id", u.ID), zap.Error(err))
		c.String(http.StatusInternalServerError, "internal server error")
		return
	}
	c.Redirect(http.StatusFound, "/profile?updated=1")
}
