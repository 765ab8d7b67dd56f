package optimizations

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new optimization. There is no update path; history rows
// are immutable once written.
func (r *PGRepo) Create(ctx context.Context, opt Optimization) error {
	const query = `
INSERT INTO optimizations (
	id, job_url, job_posting_content, resume_source_text, optimized_resume, suggestions, match_score, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	suggestions, err := json.Marshal(opt.Suggestions)
	if err != nil {
		return fmt.Errorf("marshal suggestions: %w", err)
	}
	_, err = r.DB.ExecContext(ctx, query,
		opt.ID,
		opt.JobURL,
		opt.JobPostingContent,
		opt.ResumeSourceText,
		opt.OptimizedResume,
		suggestions,
		opt.MatchScore,
		opt.CreatedAt,
	)
	return err
}

// GetByID returns an optimization by ID.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Optimization, error) {
	const query = `
SELECT id, job_url, job_posting_content, resume_source_text, optimized_resume, suggestions, match_score, created_at
FROM optimizations
WHERE id = $1
LIMIT 1`
	var opt Optimization
	var suggestions []byte
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&opt.ID,
		&opt.JobURL,
		&opt.JobPostingContent,
		&opt.ResumeSourceText,
		&opt.OptimizedResume,
		&suggestions,
		&opt.MatchScore,
		&opt.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Optimization{}, ErrNotFound
	}
	if err != nil {
		return Optimization{}, err
	}
	if len(suggestions) > 0 {
		if err := json.Unmarshal(suggestions, &opt.Suggestions); err != nil {
			return Optimization{}, fmt.Errorf("unmarshal suggestions: %w", err)
		}
	}
	if opt.Suggestions == nil {
		opt.Suggestions = []string{}
	}
	return opt, nil
}

// List returns summaries, newest first.
func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]Summary, error) {
	const query = `
SELECT id, job_url, match_score, created_at
FROM optimizations
ORDER BY created_at DESC
LIMIT $1 OFFSET $2`
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := []Summary{}
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.JobURL, &s.MatchScore, &s.CreatedAt); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// Delete removes an optimization by ID.
func (r *PGRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM optimizations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Repo = (*PGRepo)(nil)
var _ Repo = (*MemoryRepo)(nil)
