package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/example/kingdom-assetgen/internal/model"
)

const jobColumns = `id, created_at, updated_at, status, category, asset, prompt_id, output_path, error_message`

type SQLite struct {
	db *sql.DB
}

func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer at a time; the batch driver is serial anyway.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS jobs (
  id TEXT PRIMARY KEY,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL,
  status TEXT NOT NULL,
  category TEXT NOT NULL,
  asset TEXT NOT NULL,
  prompt_id TEXT,
  output_path TEXT,
  error_message TEXT
);
CREATE INDEX IF NOT EXISTS jobs_category_updated ON jobs (category, updated_at);
`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create jobs table: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) CreateJob(ctx context.Context, job model.Job) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, created_at, updated_at, status, category, asset)
         VALUES (?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.CreatedAt.UnixMilli(),
		job.UpdatedAt.UnixMilli(),
		string(job.Status),
		job.Category,
		job.Asset,
	)
	return err
}

func (s *SQLite) GetJob(ctx context.Context, id string) (model.Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Job{}, model.ErrNotFound
	}
	return job, err
}

func (s *SQLite) ListJobs(ctx context.Context, filter model.JobFilter) ([]model.Job, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 25
	}

	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, filter.Category)
	}
	query := `SELECT ` + jobColumns + ` FROM jobs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY updated_at DESC, created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func (s *SQLite) UpdateJob(ctx context.Context, id string, patch model.JobPatch) error {
	now := time.Now().UnixMilli()
	var status *string
	if patch.Status != nil {
		v := string(*patch.Status)
		status = &v
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs
         SET updated_at = ?,
             status = COALESCE(?, status),
             prompt_id = COALESCE(?, prompt_id),
             output_path = COALESCE(?, output_path),
             error_message = COALESCE(?, error_message)
         WHERE id = ?`,
		now,
		nullableString(status),
		nullableString(patch.PromptID),
		nullableString(patch.OutputPath),
		nullableString(patch.Error),
		id,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (model.Job, error) {
	var (
		jid, statusStr, category, asset string
		createdMs, updatedMs            int64
		promptID, outputPath, errorMsg  sql.NullString
	)
	if err := row.Scan(&jid, &createdMs, &updatedMs, &statusStr, &category, &asset, &promptID, &outputPath, &errorMsg); err != nil {
		return model.Job{}, err
	}
	return model.Job{
		ID:         jid,
		CreatedAt:  time.UnixMilli(createdMs),
		UpdatedAt:  time.UnixMilli(updatedMs),
		Status:     model.JobStatus(statusStr),
		Category:   category,
		Asset:      asset,
		PromptID:   promptID.String,
		OutputPath: outputPath.String,
		Error:      errorMsg.String,
	}, nil
}

func nullableString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
