package storage

import (
	"context"

	"github.com/google/uuid"

	"photoalbum/internal/models"
)

func (s *Storage) CreateCollage(ctx context.Context, c *models.Collage) error {
	const op = "storage.CreateCollage"
	err := s.pool.QueryRow(ctx,
		`INSERT INTO collages (album_id, image_path) VALUES ($1, $2) RETURNING id, created_at`,
		c.AlbumID, c.ImagePath).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return wrap(op, err)
	}
	return nil
}

func (s *Storage) GetCollage(ctx context.Context, id int64) (*models.Collage, error) {
	const op = "storage.GetCollage"
	var c models.Collage
	err := s.pool.QueryRow(ctx,
		`SELECT id, album_id, image_path, created_at FROM collages WHERE id = $1`, id,
	).Scan(&c.ID, &c.AlbumID, &c.ImagePath, &c.CreatedAt)
	if err != nil {
		return nil, wrap(op, err)
	}
	return &c, nil
}

// ListCollages returns an album's collages, newest first.
func (s *Storage) ListCollages(ctx context.Context, albumID uuid.UUID) ([]models.Collage, error) {
	const op = "storage.ListCollages"
	rows, err := s.pool.Query(ctx,
		`SELECT id, album_id, image_path, created_at FROM collages
		 WHERE album_id = $1 ORDER BY created_at DESC, id DESC`, albumID)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	collages := []models.Collage{}
	for rows.Next() {
		var c models.Collage
		if err := rows.Scan(&c.ID, &c.AlbumID, &c.ImagePath, &c.CreatedAt); err != nil {
			return nil, wrap(op, err)
		}
		collages = append(collages, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return collages, nil
}

func (s *Storage) DeleteCollage(ctx context.Context, id int64) error {
	const op = "storage.DeleteCollage"
	tag, err := s.pool.Exec(ctx, `DELETE FROM collages WHERE id = $1`, id)
	return expectOne(op, tag, err)
}
