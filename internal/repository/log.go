package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aseli4488/cyoa-stats/internal/model"
)

// maxCountedTimeOnPage caps each row's contribution to the total-time
// aggregate, so a tab left open overnight does not dominate the statistic.
const maxCountedTimeOnPage = 10_800_000

// LogRepository persists and reads beacon rows.
type LogRepository struct {
	pool *pgxpool.Pool
}

// NewLogRepository returns a LogRepository using the given pool.
func NewLogRepository(pool *pgxpool.Pool) *LogRepository {
	return &LogRepository{pool: pool}
}

// InsertIgnoreDuplicate inserts a log entry, silently succeeding when a row
// with the same (project_id, data_hash) already exists. The uniqueness
// constraint serializes concurrent identical submissions.
func (r *LogRepository) InsertIgnoreDuplicate(ctx context.Context, e *model.LogEntry) error {
	query := `
		INSERT INTO logs (project_id, uid, event_type, current_url, referrer,
			time_on_page, event_timestamp, data, data_hash, log_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (project_id, data_hash) DO NOTHING`
	_, err := r.pool.Exec(ctx, query,
		e.ProjectID,
		e.UID,
		e.EventType,
		e.CurrentURL,
		e.Referrer,
		e.TimeOnPage,
		e.EventTimestamp,
		e.Data,
		e.DataHash,
		e.LogType,
		e.CreatedAt,
	)
	return err
}

// ListByProject returns all log entries for one project, oldest first.
func (r *LogRepository) ListByProject(ctx context.Context, projectID string) ([]model.LogEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, project_id, uid, event_type, current_url, referrer,
			time_on_page, event_timestamp, data, data_hash, log_type, created_at
		FROM logs WHERE project_id = $1
		ORDER BY id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.LogEntry
	for rows.Next() {
		var e model.LogEntry
		if err := rows.Scan(
			&e.ID,
			&e.ProjectID,
			&e.UID,
			&e.EventType,
			&e.CurrentURL,
			&e.Referrer,
			&e.TimeOnPage,
			&e.EventTimestamp,
			&e.Data,
			&e.DataHash,
			&e.LogType,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// AdjustedTotalTime sums time_on_page over all rows, capping each row at
// maxCountedTimeOnPage milliseconds.
func (r *LogRepository) AdjustedTotalTime(ctx context.Context) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(LEAST(time_on_page, $1)), 0) FROM logs`,
		maxCountedTimeOnPage).Scan(&total)
	return total, err
}

// DistinctVisitors counts distinct hashed visitor ids across all projects.
func (r *LogRepository) DistinctVisitors(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(DISTINCT uid) FROM logs`).Scan(&n)
	return n, err
}

// DistinctBuilds counts distinct beacon content hashes across all projects.
func (r *LogRepository) DistinctBuilds(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(DISTINCT data_hash) FROM logs`).Scan(&n)
	return n, err
}
