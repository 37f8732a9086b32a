package model

import "time"

// Log types recorded per beacon endpoint.
const (
	LogTypeBeacon = "beacon"
	LogTypeCSP    = "csp"
)

// LogEntry is one stored beacon. Rows are append-only; (ProjectID, DataHash)
// is unique and duplicate inserts are silently ignored.
type LogEntry struct {
	ID             int64     `db:"id" json:"id"`
	ProjectID      string    `db:"project_id" json:"project_id"`
	UID            string    `db:"uid" json:"uid"`
	EventType      string    `db:"event_type" json:"event_type"`
	CurrentURL     string    `db:"current_url" json:"current_url"`
	Referrer       *string   `db:"referrer" json:"referrer"`
	TimeOnPage     int64     `db:"time_on_page" json:"time_on_page"`
	EventTimestamp string    `db:"event_timestamp" json:"event_timestamp"`
	Data           string    `db:"data" json:"data"`
	DataHash       string    `db:"data_hash" json:"data_hash"`
	LogType        string    `db:"log_type" json:"log_type"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
