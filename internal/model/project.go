package model

import "time"

// Project is a registered CYOA widget. The raw secret key is handed to the
// registering client exactly once; only its digest is stored.
type Project struct {
	ProjectID     string    `db:"project_id"`
	SecretKeyHash string    `db:"secret_key_hash"`
	Email         *string   `db:"email"`
	CreatedAt     time.Time `db:"created_at"`
}

// ProjectSummary is the admin listing row: a project plus the URL of its most
// recently ingested beacon, if any.
type ProjectSummary struct {
	ProjectID string  `json:"project_id"`
	SampleURL *string `json:"sample_url"`
}
