package storage

import (
	"context"

	"github.com/jackc/pgx/v5"

	"photoalbum/internal/models"
)

const bugColumns = `b.id, b.user_id, COALESCE(u.username, ''), b.title, b.description, b.status, b.created_at`

func scanBugReport(row pgx.Row) (*models.BugReport, error) {
	var b models.BugReport
	err := row.Scan(&b.ID, &b.UserID, &b.Username, &b.Title, &b.Description, &b.Status, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Storage) CreateBugReport(ctx context.Context, b *models.BugReport) error {
	const op = "storage.CreateBugReport"
	if b.Status == "" {
		b.Status = models.BugOpen
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO bug_reports (user_id, title, description, status)
		 VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		b.UserID, b.Title, b.Description, b.Status).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return wrap(op, err)
	}
	return nil
}

func (s *Storage) GetBugReport(ctx context.Context, id int64) (*models.BugReport, error) {
	const op = "storage.GetBugReport"
	b, err := scanBugReport(s.pool.QueryRow(ctx,
		`SELECT `+bugColumns+` FROM bug_reports b LEFT JOIN users u ON u.id = b.user_id WHERE b.id = $1`, id))
	if err != nil {
		return nil, wrap(op, err)
	}
	return b, nil
}

// ListBugReports returns every report when userID is nil, otherwise only
// that user's reports. Oldest first.
func (s *Storage) ListBugReports(ctx context.Context, userID *int64) ([]models.BugReport, error) {
	const op = "storage.ListBugReports"
	rows, err := s.pool.Query(ctx,
		`SELECT `+bugColumns+` FROM bug_reports b LEFT JOIN users u ON u.id = b.user_id
		 WHERE $1::bigint IS NULL OR b.user_id = $1
		 ORDER BY b.created_at, b.id`, userID)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	reports := []models.BugReport{}
	for rows.Next() {
		b, err := scanBugReport(rows)
		if err != nil {
			return nil, wrap(op, err)
		}
		reports = append(reports, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return reports, nil
}

func (s *Storage) UpdateBugReport(ctx context.Context, b *models.BugReport) error {
	const op = "storage.UpdateBugReport"
	tag, err := s.pool.Exec(ctx,
		`UPDATE bug_reports SET title = $2, description = $3, status = $4 WHERE id = $1`,
		b.ID, b.Title, b.Description, b.Status)
	return expectOne(op, tag, err)
}

func (s *Storage) DeleteBugReport(ctx context.Context, id int64) error {
	const op = "storage.DeleteBugReport"
	tag, err := s.pool.Exec(ctx, `DELETE FROM bug_reports WHERE id = $1`, id)
	return expectOne(op, tag, err)
}
