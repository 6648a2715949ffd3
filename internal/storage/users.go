package storage

import (
	"context"

	"github.com/jackc/pgx/v5"

	"photoalbum/internal/models"
)

const userColumns = `id, username, email, first_name, last_name, password_hash, is_staff, token_version, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName,
		&u.PasswordHash, &u.IsStaff, &u.TokenVersion, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts the user together with an empty profile.
func (s *Storage) CreateUser(ctx context.Context, u *models.User) error {
	const op = "storage.CreateUser"

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return wrap(op, err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO users (username, email, first_name, last_name, password_hash, is_staff)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, token_version, created_at`,
		u.Username, u.Email, u.FirstName, u.LastName, u.PasswordHash, u.IsStaff,
	).Scan(&u.ID, &u.TokenVersion, &u.CreatedAt)
	if err != nil {
		return wrap(op, err)
	}

	if _, err := tx.Exec(ctx, `INSERT INTO user_profiles (user_id) VALUES ($1)`, u.ID); err != nil {
		return wrap(op, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return wrap(op, err)
	}
	return nil
}

func (s *Storage) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	const op = "storage.GetUserByID"
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, wrap(op, err)
	}
	return u, nil
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.GetUserByUsername"
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err != nil {
		return nil, wrap(op, err)
	}
	return u, nil
}

func (s *Storage) UpdateUser(ctx context.Context, u *models.User) error {
	const op = "storage.UpdateUser"
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET email = $2, first_name = $3, last_name = $4 WHERE id = $1`,
		u.ID, u.Email, u.FirstName, u.LastName)
	return expectOne(op, tag, err)
}

// SetPassword stores a new hash and bumps the token version, which
// invalidates every token issued before.
func (s *Storage) SetPassword(ctx context.Context, userID int64, hash string) (int, error) {
	const op = "storage.SetPassword"

	var version int
	err := s.pool.QueryRow(ctx,
		`UPDATE users SET password_hash = $2, token_version = token_version + 1
		 WHERE id = $1 RETURNING token_version`,
		userID, hash).Scan(&version)
	if err != nil {
		return 0, wrap(op, err)
	}
	return version, nil
}

// GetProfile returns the user's profile, creating an empty one if missing.
func (s *Storage) GetProfile(ctx context.Context, userID int64) (*models.UserProfile, error) {
	const op = "storage.GetProfile"

	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_profiles (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		return nil, wrap(op, err)
	}

	var p models.UserProfile
	err = s.pool.QueryRow(ctx,
		`SELECT user_id, avatar_path, bio, location, birth_date FROM user_profiles WHERE user_id = $1`,
		userID).Scan(&p.UserID, &p.AvatarPath, &p.Bio, &p.Location, &p.BirthDate)
	if err != nil {
		return nil, wrap(op, err)
	}
	return &p, nil
}

func (s *Storage) UpdateProfile(ctx context.Context, p *models.UserProfile) error {
	const op = "storage.UpdateProfile"
	tag, err := s.pool.Exec(ctx,
		`UPDATE user_profiles SET avatar_path = $2, bio = $3, location = $4, birth_date = $5 WHERE user_id = $1`,
		p.UserID, p.AvatarPath, p.Bio, p.Location, p.BirthDate)
	return expectOne(op, tag, err)
}
