// Package audit records console decisions into local storage. Recording is
// best effort: a failed write is logged and the triggering request carries
// on.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/louisbranch/paydeck/internal/platform/id"
	"github.com/louisbranch/paydeck/internal/services/console/storage"
)

// Config injects the recorder's collaborators. Zero fields fall back to
// time.Now and the platform id generator.
type Config struct {
	Store storage.AuditStore
	Now   func() time.Time
	NewID func() (string, error)
}

// Recorder appends audit events. A nil Store turns recording off.
type Recorder struct {
	store storage.AuditStore
	now   func() time.Time
	newID func() (string, error)
}

// NewRecorder creates an audit recorder.
func NewRecorder(cfg Config) *Recorder {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	newID := cfg.NewID
	if newID == nil {
		newID = id.NewID
	}
	return &Recorder{
		store: cfg.Store,
		now:   now,
		newID: newID,
	}
}

// Record appends one audit event.
func (r *Recorder) Record(ctx context.Context, action, actor, detail string) {
	if r == nil || r.store == nil {
		return
	}

	eventID, err := r.newID()
	if err != nil {
		log.Printf("audit: generate event id: %v", err)
		return
	}

	event := storage.AuditEvent{
		ID:        eventID,
		Action:    action,
		Actor:     actor,
		Detail:    detail,
		CreatedAt: r.now(),
	}
	if err := r.store.AppendAuditEvent(ctx, event); err != nil {
		log.Printf("audit: append %s event: %v", action, err)
	}
}
