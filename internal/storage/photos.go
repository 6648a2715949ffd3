package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"photoalbum/internal/models"
)

const photoColumns = `p.id, p.album_id, p.image_path, p.thumbnail_path, p.status, p.is_favorite, p.share_token, p.created_at`

func scanPhoto(row pgx.Row) (*models.Photo, error) {
	var p models.Photo
	err := row.Scan(&p.ID, &p.AlbumID, &p.ImagePath, &p.ThumbnailPath, &p.Status,
		&p.IsFavorite, &p.ShareToken, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collectPhotos(rows pgx.Rows) ([]models.Photo, error) {
	defer rows.Close()
	photos := []models.Photo{}
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		photos = append(photos, *p)
	}
	return photos, rows.Err()
}

func (s *Storage) CreatePhoto(ctx context.Context, p *models.Photo) error {
	const op = "storage.CreatePhoto"
	if p.Status == "" {
		p.Status = models.PhotoPending
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO photos (album_id, image_path, status, is_favorite)
		 VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		p.AlbumID, p.ImagePath, p.Status, p.IsFavorite,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return wrap(op, err)
	}
	return nil
}

func (s *Storage) GetPhoto(ctx context.Context, id int64) (*models.Photo, error) {
	const op = "storage.GetPhoto"
	p, err := scanPhoto(s.pool.QueryRow(ctx, `SELECT `+photoColumns+` FROM photos p WHERE p.id = $1`, id))
	if err != nil {
		return nil, wrap(op, err)
	}
	return p, nil
}

func (s *Storage) GetPhotoByShareToken(ctx context.Context, token uuid.UUID) (*models.Photo, error) {
	const op = "storage.GetPhotoByShareToken"
	p, err := scanPhoto(s.pool.QueryRow(ctx, `SELECT `+photoColumns+` FROM photos p WHERE p.share_token = $1`, token))
	if err != nil {
		return nil, wrap(op, err)
	}
	return p, nil
}

// ListPhotos returns an album's photos in upload order.
func (s *Storage) ListPhotos(ctx context.Context, albumID uuid.UUID) ([]models.Photo, error) {
	const op = "storage.ListPhotos"
	rows, err := s.pool.Query(ctx,
		`SELECT `+photoColumns+` FROM photos p WHERE p.album_id = $1 ORDER BY p.created_at, p.id`, albumID)
	if err != nil {
		return nil, wrap(op, err)
	}
	photos, err := collectPhotos(rows)
	if err != nil {
		return nil, wrap(op, err)
	}
	return photos, nil
}

// ListUserPhotos returns photos from every album the user owns or edits.
func (s *Storage) ListUserPhotos(ctx context.Context, userID int64) ([]models.Photo, error) {
	const op = "storage.ListUserPhotos"
	rows, err := s.pool.Query(ctx,
		`SELECT `+photoColumns+` FROM photos p
		 JOIN albums a ON a.id = p.album_id
		 WHERE a.user_id = $1
		    OR EXISTS (SELECT 1 FROM album_editors e WHERE e.album_id = a.id AND e.user_id = $1)
		 ORDER BY p.created_at, p.id`, userID)
	if err != nil {
		return nil, wrap(op, err)
	}
	photos, err := collectPhotos(rows)
	if err != nil {
		return nil, wrap(op, err)
	}
	return photos, nil
}

// SetPhotoFavorite changes only the favorite flag and returns the row as
// stored afterwards.
func (s *Storage) SetPhotoFavorite(ctx context.Context, id int64, favorite bool) (*models.Photo, error) {
	const op = "storage.SetPhotoFavorite"
	p, err := scanPhoto(s.pool.QueryRow(ctx,
		`UPDATE photos p SET is_favorite = $2 WHERE p.id = $1 RETURNING `+photoColumns, id, favorite))
	if err != nil {
		return nil, wrap(op, err)
	}
	return p, nil
}

// SharePhoto sets the share token unless the photo already has one and
// returns whichever token is stored.
func (s *Storage) SharePhoto(ctx context.Context, id int64, token uuid.UUID) (uuid.UUID, error) {
	const op = "storage.SharePhoto"
	var stored uuid.UUID
	err := s.pool.QueryRow(ctx,
		`UPDATE photos SET share_token = COALESCE(share_token, $2) WHERE id = $1 RETURNING share_token`,
		id, token).Scan(&stored)
	if err != nil {
		return uuid.Nil, wrap(op, err)
	}
	return stored, nil
}

func (s *Storage) UnsharePhoto(ctx context.Context, id int64) error {
	const op = "storage.UnsharePhoto"
	tag, err := s.pool.Exec(ctx, `UPDATE photos SET share_token = NULL WHERE id = $1`, id)
	return expectOne(op, tag, err)
}

// ClaimPhoto moves a pending photo to processing. It reports false when the
// photo is missing or was already claimed.
func (s *Storage) ClaimPhoto(ctx context.Context, id int64) (bool, error) {
	const op = "storage.ClaimPhoto"
	tag, err := s.pool.Exec(ctx,
		`UPDATE photos SET status = $2 WHERE id = $1 AND status = $3`,
		id, models.PhotoProcessing, models.PhotoPending)
	if err != nil {
		return false, wrap(op, err)
	}
	return tag.RowsAffected() == 1, nil
}

// FinishPhoto records the processing outcome. Other columns are untouched.
func (s *Storage) FinishPhoto(ctx context.Context, id int64, status, thumbnailPath string) error {
	const op = "storage.FinishPhoto"
	tag, err := s.pool.Exec(ctx,
		`UPDATE photos SET status = $2, thumbnail_path = $3 WHERE id = $1`, id, status, thumbnailPath)
	return expectOne(op, tag, err)
}

func (s *Storage) DeletePhoto(ctx context.Context, id int64) error {
	const op = "storage.DeletePhoto"
	tag, err := s.pool.Exec(ctx, `DELETE FROM photos WHERE id = $1`, id)
	return expectOne(op, tag, err)
}
