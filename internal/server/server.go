package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"photoalbum/internal/auth"
	"photoalbum/internal/collage"
	"photoalbum/internal/media"
	"photoalbum/internal/models"
	"photoalbum/internal/processor"
)

//go:embed templates/*.html
var templates embed.FS

type Deps struct {
	Store     Store
	Media     media.Store
	Tokens    *auth.Manager
	Publisher processor.Publisher
	Limiter   *RateLimiter
	Log       *zap.Logger
}

type Server struct {
	cfg       *models.Config
	router    *gin.Engine
	srv       *http.Server
	db        Store
	media     media.Store
	tokens    *auth.Manager
	publisher processor.Publisher
	limiter   *RateLimiter
	collage   collage.Options
	log       *zap.Logger
	now       func() time.Time
}

func NewServer(cfg *models.Config, deps Deps) (*Server, error) {
	const op = "server.NewServer"

	opts, err := collage.OptionsFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	tmpl, err := template.ParseFS(templates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	limiter := deps.Limiter
	if limiter == nil {
		limiter = NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst)
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(deps.Log), instrument())
	r.SetHTMLTemplate(tmpl)

	s := &Server{
		cfg:       cfg,
		router:    r,
		db:        deps.Store,
		media:     deps.Media,
		tokens:    deps.Tokens,
		publisher: deps.Publisher,
		limiter:   limiter,
		collage:   opts,
		log:       deps.Log,
		now:       time.Now,
	}
	s.routes()

	s.srv = &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() {
	r := s.router

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(metricsHandler()))
	r.GET("/shared/photos/:token", s.handleSharedPhoto)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", s.limiter.Middleware(), s.handleRegister)
	authGroup.POST("/login", s.limiter.Middleware(), s.handleLogin)
	authGroup.POST("/refresh", s.limiter.Middleware(), s.handleRefresh)

	protected := api.Group("/", s.requireAuth)
	protected.POST("/auth/logout", s.handleLogout)
	protected.GET("/auth/profile", s.handleGetProfile)
	protected.PATCH("/auth/profile", s.handleUpdateProfile)
	protected.GET("/auth/profile/avatar", s.handleGetAvatar)
	protected.PUT("/auth/profile/avatar", s.handleUploadAvatar)
	protected.POST("/auth/change-password", s.handleChangePassword)

	protected.GET("/albums", s.handleListAlbums)
	protected.POST("/albums", s.handleCreateAlbum)
	protected.GET("/albums/:id", s.handleGetAlbum)
	protected.PATCH("/albums/:id", s.handleUpdateAlbum)
	protected.DELETE("/albums/:id", s.handleDeleteAlbum)
	protected.POST("/albums/:id/upload-photos", s.handleUploadPhotos)
	protected.POST("/albums/:id/generate-collage", s.handleGenerateCollage)
	protected.GET("/albums/:id/photos", s.handleListAlbumPhotos)
	protected.GET("/albums/:id/collages", s.handleListAlbumCollages)
	protected.POST("/albums/:id/editors", s.handleAddEditor)
	protected.DELETE("/albums/:id/editors/:user_id", s.handleRemoveEditor)

	protected.GET("/photos", s.handleListPhotos)
	protected.GET("/photos/:id", s.handleGetPhoto)
	protected.PATCH("/photos/:id", s.handleUpdatePhoto)
	protected.DELETE("/photos/:id", s.handleDeletePhoto)
	protected.GET("/photos/:id/image", s.handlePhotoImage)
	protected.GET("/photos/:id/thumbnail", s.handlePhotoThumbnail)
	protected.POST("/photos/:id/share", s.handleSharePhoto)
	protected.DELETE("/photos/:id/share", s.handleUnsharePhoto)

	protected.GET("/collages/:id", s.handleGetCollage)
	protected.GET("/collages/:id/image", s.handleCollageImage)
	protected.DELETE("/collages/:id", s.handleDeleteCollage)

	protected.GET("/bug-reports", s.handleListBugReports)
	protected.POST("/bug-reports", s.handleCreateBugReport)
	protected.GET("/bug-reports/export-excel", s.requireStaff, s.handleExportBugReports)
	protected.GET("/bug-reports/:id", s.handleGetBugReport)
	protected.PATCH("/bug-reports/:id", s.handleUpdateBugReport)
	protected.DELETE("/bug-reports/:id", s.handleDeleteBugReport)

	r.GET("/register", s.pageRegister)
	r.POST("/register", s.limiter.Middleware(), s.submitRegister)
	r.GET("/login", s.pageLogin)
	r.POST("/login", s.limiter.Middleware(), s.submitLogin)
	r.POST("/logout", s.submitLogout)

	web := r.Group("/", s.requireSession)
	web.GET("/", s.pageDashboard)
	web.GET("/albums/new", s.pageCreateAlbum)
	web.POST("/albums/new", s.submitCreateAlbum)
	web.GET("/albums/:id", s.pageAlbum)
	web.POST("/albums/:id/photos", s.submitUploadPhotos)
	web.POST("/albums/:id/collage", s.submitGenerateCollage)
	web.POST("/albums/:id/delete", s.submitDeleteAlbum)
	web.POST("/albums/:id/photos/:photo_id/favorite", s.submitToggleFavorite)
	web.POST("/albums/:id/photos/:photo_id/share", s.submitSharePhoto)
	web.GET("/photos/:id/image", s.handlePhotoImage)
	web.GET("/photos/:id/thumbnail", s.handlePhotoThumbnail)
	web.GET("/collages/:id/image", s.handleCollageImage)
	web.GET("/profile", s.pageProfile)
	web.GET("/profile/edit", s.pageEditProfile)
	web.POST("/profile/edit", s.submitEditProfile)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.log.Info("http server listening", zap.String("addr", s.cfg.ServerAddr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.db.Ping(c.Request.Context()); err != nil {
		s.log.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
