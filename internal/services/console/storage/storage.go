// Package storage defines persistence contracts for console audit state.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested audit record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates an audit event id was inserted twice.
	ErrAlreadyExists = errors.New("record already exists")
)

// AuditEvent records one authentication or proxy decision made by the
// console. Seq is assigned on insert and orders the trail.
type AuditEvent struct {
	Seq       int64
	ID        string
	Action    string
	Actor     string
	Detail    string
	CreatedAt time.Time
}

// AuditEventPage stores one page of audit events, newest first.
type AuditEventPage struct {
	Events        []AuditEvent
	NextPageToken string
}

// AuditStore persists console audit events.
type AuditStore interface {
	AppendAuditEvent(ctx context.Context, event AuditEvent) error
	GetAuditEvent(ctx context.Context, id string) (AuditEvent, error)
	ListAuditEvents(ctx context.Context, action string, pageSize int, pageToken string) (AuditEventPage, error)
}
