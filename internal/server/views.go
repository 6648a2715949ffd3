package server

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"photoalbum/internal/models"
)

const dateLayout = "2006-01-02"

type photoView struct {
	ID           int64     `json:"id"`
	AlbumID      uuid.UUID `json:"album_id"`
	ImageURL     string    `json:"image_url"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	Status       string    `json:"status"`
	IsFavorite   bool      `json:"is_favorite"`
	ShareURL     string    `json:"share_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func newPhotoView(p *models.Photo) photoView {
	v := photoView{
		ID:         p.ID,
		AlbumID:    p.AlbumID,
		ImageURL:   fmt.Sprintf("/api/photos/%d/image", p.ID),
		Status:     p.Status,
		IsFavorite: p.IsFavorite,
		CreatedAt:  p.CreatedAt,
	}
	if p.ThumbnailPath != "" {
		v.ThumbnailURL = fmt.Sprintf("/api/photos/%d/thumbnail", p.ID)
	}
	if p.ShareToken != nil {
		v.ShareURL = shareURL(*p.ShareToken)
	}
	return v
}

func photoViews(photos []models.Photo) []photoView {
	out := make([]photoView, len(photos))
	for i := range photos {
		out[i] = newPhotoView(&photos[i])
	}
	return out
}

func shareURL(token uuid.UUID) string {
	return "/shared/photos/" + token.String()
}

type collageView struct {
	ID        int64     `json:"id"`
	AlbumID   uuid.UUID `json:"album_id"`
	ImageURL  string    `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
}

func newCollageView(c *models.Collage) collageView {
	return collageView{
		ID:        c.ID,
		AlbumID:   c.AlbumID,
		ImageURL:  fmt.Sprintf("/api/collages/%d/image", c.ID),
		CreatedAt: c.CreatedAt,
	}
}

func collageViews(collages []models.Collage) []collageView {
	out := make([]collageView, len(collages))
	for i := range collages {
		out[i] = newCollageView(&collages[i])
	}
	return out
}

type profileFields struct {
	Bio       string `json:"bio"`
	Location  string `json:"location"`
	BirthDate string `json:"birth_date,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

type userView struct {
	*models.User
	Profile *profileFields `json:"profile,omitempty"`
}

func newUserView(u *models.User, p *models.UserProfile) userView {
	v := userView{User: u}
	if p != nil {
		f := &profileFields{Bio: p.Bio, Location: p.Location}
		if p.BirthDate != nil {
			f.BirthDate = p.BirthDate.Format(dateLayout)
		}
		if p.AvatarPath != "" {
			f.AvatarURL = "/api/auth/profile/avatar"
		}
		v.Profile = f
	}
	return v
}
