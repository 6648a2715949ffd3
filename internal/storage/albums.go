package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"photoalbum/internal/models"
)

const albumColumns = `a.id, a.user_id, a.title, a.description, a.is_public, a.created_at, a.updated_at,
	COALESCE((SELECT array_agg(e.user_id ORDER BY e.user_id) FROM album_editors e WHERE e.album_id = a.id), '{}')`

func scanAlbum(row pgx.Row) (*models.Album, error) {
	var a models.Album
	err := row.Scan(&a.ID, &a.UserID, &a.Title, &a.Description, &a.IsPublic,
		&a.CreatedAt, &a.UpdatedAt, &a.EditorIDs)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func collectAlbums(rows pgx.Rows) ([]models.Album, error) {
	defer rows.Close()
	albums := []models.Album{}
	for rows.Next() {
		a, err := scanAlbum(rows)
		if err != nil {
			return nil, err
		}
		albums = append(albums, *a)
	}
	return albums, rows.Err()
}

func (s *Storage) CreateAlbum(ctx context.Context, a *models.Album) error {
	const op = "storage.CreateAlbum"

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO albums (id, user_id, title, description, is_public)
		 VALUES ($1, $2, $3, $4, $5) RETURNING created_at, updated_at`,
		a.ID, a.UserID, a.Title, a.Description, a.IsPublic,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return wrap(op, err)
	}
	a.EditorIDs = []int64{}
	return nil
}

func (s *Storage) GetAlbum(ctx context.Context, id uuid.UUID) (*models.Album, error) {
	const op = "storage.GetAlbum"
	a, err := scanAlbum(s.pool.QueryRow(ctx, `SELECT `+albumColumns+` FROM albums a WHERE a.id = $1`, id))
	if err != nil {
		return nil, wrap(op, err)
	}
	return a, nil
}

// ListAlbums returns albums the user owns or edits, newest first.
func (s *Storage) ListAlbums(ctx context.Context, userID int64) ([]models.Album, error) {
	const op = "storage.ListAlbums"
	rows, err := s.pool.Query(ctx,
		`SELECT `+albumColumns+` FROM albums a
		 WHERE a.user_id = $1
		    OR EXISTS (SELECT 1 FROM album_editors e WHERE e.album_id = a.id AND e.user_id = $1)
		 ORDER BY a.created_at DESC`, userID)
	if err != nil {
		return nil, wrap(op, err)
	}
	albums, err := collectAlbums(rows)
	if err != nil {
		return nil, wrap(op, err)
	}
	return albums, nil
}

// ListOwnedAlbums returns only the user's own albums, newest first.
func (s *Storage) ListOwnedAlbums(ctx context.Context, userID int64) ([]models.Album, error) {
	const op = "storage.ListOwnedAlbums"
	rows, err := s.pool.Query(ctx,
		`SELECT `+albumColumns+` FROM albums a WHERE a.user_id = $1 ORDER BY a.created_at DESC`, userID)
	if err != nil {
		return nil, wrap(op, err)
	}
	albums, err := collectAlbums(rows)
	if err != nil {
		return nil, wrap(op, err)
	}
	return albums, nil
}

// ListAllAlbums returns every album, newest first, for staff moderation.
func (s *Storage) ListAllAlbums(ctx context.Context) ([]models.Album, error) {
	const op = "storage.ListAllAlbums"
	rows, err := s.pool.Query(ctx, `SELECT `+albumColumns+` FROM albums a ORDER BY a.created_at DESC`)
	if err != nil {
		return nil, wrap(op, err)
	}
	albums, err := collectAlbums(rows)
	if err != nil {
		return nil, wrap(op, err)
	}
	return albums, nil
}

func (s *Storage) ListPublicAlbums(ctx context.Context) ([]models.Album, error) {
	const op = "storage.ListPublicAlbums"
	rows, err := s.pool.Query(ctx,
		`SELECT `+albumColumns+` FROM albums a WHERE a.is_public ORDER BY a.created_at DESC`)
	if err != nil {
		return nil, wrap(op, err)
	}
	albums, err := collectAlbums(rows)
	if err != nil {
		return nil, wrap(op, err)
	}
	return albums, nil
}

func (s *Storage) UpdateAlbum(ctx context.Context, a *models.Album) error {
	const op = "storage.UpdateAlbum"
	err := s.pool.QueryRow(ctx,
		`UPDATE albums SET title = $2, description = $3, is_public = $4, updated_at = NOW()
		 WHERE id = $1 RETURNING updated_at`,
		a.ID, a.Title, a.Description, a.IsPublic).Scan(&a.UpdatedAt)
	if err != nil {
		return wrap(op, err)
	}
	return nil
}

func (s *Storage) DeleteAlbum(ctx context.Context, id uuid.UUID) error {
	const op = "storage.DeleteAlbum"
	tag, err := s.pool.Exec(ctx, `DELETE FROM albums WHERE id = $1`, id)
	return expectOne(op, tag, err)
}

func (s *Storage) AddEditor(ctx context.Context, albumID uuid.UUID, userID int64) error {
	const op = "storage.AddEditor"
	_, err := s.pool.Exec(ctx,
		`INSERT INTO album_editors (album_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		albumID, userID)
	if err != nil {
		return wrap(op, err)
	}
	return nil
}

func (s *Storage) RemoveEditor(ctx context.Context, albumID uuid.UUID, userID int64) error {
	const op = "storage.RemoveEditor"
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM album_editors WHERE album_id = $1 AND user_id = $2`, albumID, userID)
	return expectOne(op, tag, err)
}
