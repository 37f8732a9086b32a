package report

import "context"

// LogStats are the read-only aggregates over the logs table.
type LogStats interface {
	AdjustedTotalTime(ctx context.Context) (int64, error)
	DistinctVisitors(ctx context.Context) (int64, error)
	DistinctBuilds(ctx context.Context) (int64, error)
}

// ProjectStats are the read-only aggregates over the projects table.
type ProjectStats interface {
	Count(ctx context.Context) (int64, error)
}

// Reporter serves the public summary statistics. Stateless and read-only;
// it never writes through either source.
type Reporter struct {
	logs     LogStats
	projects ProjectStats
}

// New returns a Reporter over the given sources.
func New(logs LogStats, projects ProjectStats) *Reporter {
	return &Reporter{logs: logs, projects: projects}
}

// AdjustedTotalTime is the capped sum of time_on_page over all beacons.
func (r *Reporter) AdjustedTotalTime(ctx context.Context) (int64, error) {
	return r.logs.AdjustedTotalTime(ctx)
}

// Visitors is the distinct hashed visitor count.
func (r *Reporter) Visitors(ctx context.Context) (int64, error) {
	return r.logs.DistinctVisitors(ctx)
}

// Projects is the registered project count.
func (r *Reporter) Projects(ctx context.Context) (int64, error) {
	return r.projects.Count(ctx)
}

// Builds is the distinct beacon content-hash count.
func (r *Reporter) Builds(ctx context.Context) (int64, error) {
	return r.logs.DistinctBuilds(ctx)
}
