// Package sqlite provides a SQLite-backed console storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	sqlitemigrate "github.com/louisbranch/paydeck/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/paydeck/internal/services/console/storage"
	"github.com/louisbranch/paydeck/internal/services/console/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists console audit state in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite console store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// AppendAuditEvent inserts one audit event.
func (s *Store) AppendAuditEvent(ctx context.Context, event storage.AuditEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	eventID := strings.TrimSpace(event.ID)
	action := strings.TrimSpace(event.Action)
	if eventID == "" {
		return fmt.Errorf("event id is required")
	}
	if action == "" {
		return fmt.Errorf("action is required")
	}
	createdAt := event.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO audit_events (event_id, action, actor, detail, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		eventID,
		action,
		strings.TrimSpace(event.Actor),
		event.Detail,
		toMillis(createdAt),
	)
	if err != nil {
		if isAuditEventUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// GetAuditEvent returns one audit event by id.
func (s *Store) GetAuditEvent(ctx context.Context, id string) (storage.AuditEvent, error) {
	if err := ctx.Err(); err != nil {
		return storage.AuditEvent{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.AuditEvent{}, fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.AuditEvent{}, fmt.Errorf("event id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT seq, event_id, action, actor, detail, created_at
		   FROM audit_events
		  WHERE event_id = ?`,
		id,
	)

	var event storage.AuditEvent
	var createdAt int64
	if err := row.Scan(&event.Seq, &event.ID, &event.Action, &event.Actor, &event.Detail, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.AuditEvent{}, storage.ErrNotFound
		}
		return storage.AuditEvent{}, fmt.Errorf("get audit event: %w", err)
	}
	event.CreatedAt = fromMillis(createdAt)
	return event, nil
}

// ListAuditEvents returns one page of audit events, newest first. An empty
// action lists every event; a non-empty action filters the trail. The page
// token is the seq of the last returned row.
func (s *Store) ListAuditEvents(ctx context.Context, action string, pageSize int, pageToken string) (storage.AuditEventPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.AuditEventPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.AuditEventPage{}, fmt.Errorf("storage is not configured")
	}
	if pageSize <= 0 {
		return storage.AuditEventPage{}, fmt.Errorf("page size must be greater than zero")
	}
	action = strings.TrimSpace(action)
	pageToken = strings.TrimSpace(pageToken)

	before := int64(0)
	if pageToken != "" {
		parsed, err := strconv.ParseInt(pageToken, 10, 64)
		if err != nil || parsed <= 0 {
			return storage.AuditEventPage{}, fmt.Errorf("invalid page token")
		}
		before = parsed
	}

	query := `SELECT seq, event_id, action, actor, detail, created_at
	            FROM audit_events`
	clauses := make([]string, 0, 2)
	args := make([]any, 0, 3)
	if action != "" {
		clauses = append(clauses, "action = ?")
		args = append(args, action)
	}
	if before > 0 {
		clauses = append(clauses, "seq < ?")
		args = append(args, before)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY seq DESC LIMIT ?"
	args = append(args, pageSize+1)

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return storage.AuditEventPage{}, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	page := storage.AuditEventPage{
		Events: make([]storage.AuditEvent, 0, pageSize),
	}
	for rows.Next() {
		var event storage.AuditEvent
		var createdAt int64
		if err := rows.Scan(&event.Seq, &event.ID, &event.Action, &event.Actor, &event.Detail, &createdAt); err != nil {
			return storage.AuditEventPage{}, fmt.Errorf("list audit events: %w", err)
		}
		event.CreatedAt = fromMillis(createdAt)
		page.Events = append(page.Events, event)
	}
	if err := rows.Err(); err != nil {
		return storage.AuditEventPage{}, fmt.Errorf("list audit events: %w", err)
	}
	if len(page.Events) > pageSize {
		page.NextPageToken = strconv.FormatInt(page.Events[pageSize-1].Seq, 10)
		page.Events = page.Events[:pageSize]
	}

	return page, nil
}

func isAuditEventUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") &&
		strings.Contains(message, "audit_events.event_id")
}

var _ storage.AuditStore = (*Store)(nil)
