package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	PhotoPending    = "pending"
	PhotoProcessing = "processing"
	PhotoDone       = "done"
	PhotoError      = "error"

	BugOpen   = "open"
	BugClosed = "closed"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PasswordHash string    `json:"-"`
	IsStaff      bool      `json:"is_staff"`
	TokenVersion int       `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type UserProfile struct {
	UserID     int64      `json:"user_id"`
	AvatarPath string     `json:"-"`
	Bio        string     `json:"bio"`
	Location   string     `json:"location"`
	BirthDate  *time.Time `json:"birth_date"`
}

type Album struct {
	ID          uuid.UUID `json:"id"`
	UserID      int64     `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	IsPublic    bool      `json:"is_public"`
	EditorIDs   []int64   `json:"editor_ids"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Photo struct {
	ID            int64      `json:"id"`
	AlbumID       uuid.UUID  `json:"album_id"`
	ImagePath     string     `json:"-"`
	ThumbnailPath string     `json:"-"`
	Status        string     `json:"status"` // pending, processing, done, error
	IsFavorite    bool       `json:"is_favorite"`
	ShareToken    *uuid.UUID `json:"share_token,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type Collage struct {
	ID        int64     `json:"id"`
	AlbumID   uuid.UUID `json:"album_id"`
	ImagePath string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

type BugReport struct {
	ID          int64     `json:"id"`
	UserID      *int64    `json:"user_id"`
	Username    string    `json:"username"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"` // open, closed
	CreatedAt   time.Time `json:"created_at"`
}

func ValidBugStatus(s string) bool {
	return s == BugOpen || s == BugClosed
}
