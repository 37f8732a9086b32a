package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aseli4488/cyoa-stats/internal/model"
)

// ProjectRepository persists and reads registered projects.
type ProjectRepository struct {
	pool *pgxpool.Pool
}

// NewProjectRepository returns a ProjectRepository using the given pool.
func NewProjectRepository(pool *pgxpool.Pool) *ProjectRepository {
	return &ProjectRepository{pool: pool}
}

// Create inserts a new project and fills in CreatedAt.
func (r *ProjectRepository) Create(ctx context.Context, p *model.Project) error {
	query := `
		INSERT INTO projects (project_id, secret_key_hash, email, created_at)
		VALUES ($1, $2, $3, now())
		RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		p.ProjectID,
		p.SecretKeyHash,
		p.Email,
	).Scan(&p.CreatedAt)
}

// GetBySecretHash returns the project whose stored secret digest matches, or
// nil if no project matches.
func (r *ProjectRepository) GetBySecretHash(ctx context.Context, secretKeyHash string) (*model.Project, error) {
	var p model.Project
	err := r.pool.QueryRow(ctx, `
		SELECT project_id, secret_key_hash, email, created_at
		FROM projects WHERE secret_key_hash = $1`, secretKeyHash).Scan(
		&p.ProjectID,
		&p.SecretKeyHash,
		&p.Email,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// Count returns the number of registered projects.
func (r *ProjectRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM projects`).Scan(&n)
	return n, err
}

// ListSummaries returns every project with the current_url of its most recent
// log entry, for the admin listing.
func (r *ProjectRepository) ListSummaries(ctx context.Context) ([]model.ProjectSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.project_id,
			(SELECT current_url FROM logs
			 WHERE project_id = p.project_id
			 ORDER BY id DESC LIMIT 1) AS sample_url
		FROM projects p
		ORDER BY p.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.ProjectSummary
	for rows.Next() {
		var s model.ProjectSummary
		if err := rows.Scan(&s.ProjectID, &s.SampleURL); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}
