package server

import (
	"context"

	"github.com/google/uuid"

	"photoalbum/internal/models"
)

// Store is the persistence the handlers need; *storage.Storage implements it.
type Store interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
	SetPassword(ctx context.Context, userID int64, hash string) (int, error)
	GetProfile(ctx context.Context, userID int64) (*models.UserProfile, error)
	UpdateProfile(ctx context.Context, p *models.UserProfile) error

	CreateAlbum(ctx context.Context, a *models.Album) error
	GetAlbum(ctx context.Context, id uuid.UUID) (*models.Album, error)
	ListAlbums(ctx context.Context, userID int64) ([]models.Album, error)
	ListOwnedAlbums(ctx context.Context, userID int64) ([]models.Album, error)
	ListPublicAlbums(ctx context.Context) ([]models.Album, error)
	ListAllAlbums(ctx context.Context) ([]models.Album, error)
	UpdateAlbum(ctx context.Context, a *models.Album) error
	DeleteAlbum(ctx context.Context, id uuid.UUID) error
	AddEditor(ctx context.Context, albumID uuid.UUID, userID int64) error
	RemoveEditor(ctx context.Context, albumID uuid.UUID, userID int64) error

	CreatePhoto(ctx context.Context, p *models.Photo) error
	GetPhoto(ctx context.Context, id int64) (*models.Photo, error)
	GetPhotoByShareToken(ctx context.Context, token uuid.UUID) (*models.Photo, error)
	ListPhotos(ctx context.Context, albumID uuid.UUID) ([]models.Photo, error)
	ListUserPhotos(ctx context.Context, userID int64) ([]models.Photo, error)
	SetPhotoFavorite(ctx context.Context, id int64, favorite bool) (*models.Photo, error)
	SharePhoto(ctx context.Context, id int64, token uuid.UUID) (uuid.UUID, error)
	UnsharePhoto(ctx context.Context, id int64) error
	DeletePhoto(ctx context.Context, id int64) error

	CreateCollage(ctx context.Context, c *models.Collage) error
	GetCollage(ctx context.Context, id int64) (*models.Collage, error)
	ListCollages(ctx context.Context, albumID uuid.UUID) ([]models.Collage, error)
	DeleteCollage(ctx context.Context, id int64) error

	CreateBugReport(ctx context.Context, b *models.BugReport) error
	GetBugReport(ctx context.Context, id int64) (*models.BugReport, error)
	ListBugReports(ctx context.Context, userID *int64) ([]models.BugReport, error)
	UpdateBugReport(ctx context.Context, b *models.BugReport) error
	DeleteBugReport(ctx context.Context, id int64) error
}
