package ingest

import (
	"context"
	"strings"
	"time"

	"github.com/aseli4488/cyoa-stats/internal/hashing"
	"github.com/aseli4488/cyoa-stats/internal/model"
)

// LogStore is the pipeline's single write path. InsertIgnoreDuplicate must be
// a no-op success when a row with the same (project_id, data_hash) already
// exists; concurrent identical submissions race safely at the store level.
type LogStore interface {
	InsertIgnoreDuplicate(ctx context.Context, entry *model.LogEntry) error
}

// Submission is one inbound beacon before any processing.
type Submission struct {
	ProjectID string
	VisitorIP string
	Data      Payload
	SizeLimit int
	LogType   string
}

// Pipeline validates, normalizes, hashes, and idempotently stores beacons.
// Stateless between calls; safe for concurrent use.
type Pipeline struct {
	hasher *hashing.Hasher
	store  LogStore
	now    func() time.Time
}

// NewPipeline returns a Pipeline writing through store.
func NewPipeline(h *hashing.Hasher, store LogStore) *Pipeline {
	return &Pipeline{hasher: h, store: store, now: time.Now}
}

// Ingest runs one beacon through the pipeline. Validation failures return a
// *RejectError; anything else is a store failure passed through verbatim.
// A duplicate of an already-stored beacon returns nil exactly like a fresh
// insert, so callers cannot distinguish a replay from a first delivery.
func (p *Pipeline) Ingest(ctx context.Context, sub Submission) error {
	if strings.TrimSpace(sub.VisitorIP) == "" {
		return &RejectError{
			Code:    RejectMissingVisitorIdentity,
			Message: "unable to determine visitor IP",
		}
	}
	uid := p.hasher.Sum(sub.VisitorIP)

	canonical, rej := Validate(sub.ProjectID, sub.Data, sub.SizeLimit)
	if rej != nil {
		return rej
	}

	entry := &model.LogEntry{
		ProjectID:      sub.ProjectID,
		UID:            uid,
		EventType:      canonical.EventType,
		CurrentURL:     canonical.CurrentURL,
		Referrer:       canonical.Referrer,
		TimeOnPage:     canonical.TimeOnPage,
		EventTimestamp: canonical.EventTimestamp,
		Data:           canonical.Data,
		DataHash:       p.hasher.Sum(canonical.Data),
		LogType:        sub.LogType,
		CreatedAt:      p.now().UTC(),
	}
	return p.store.InsertIgnoreDuplicate(ctx, entry)
}
