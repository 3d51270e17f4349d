// Package session keeps server-side token state for browser sessions. The
// browser only ever holds the opaque session id inside a signed cookie;
// bearer tokens never leave this store.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ErrNotFound reports a session id with no live record.
var ErrNotFound = errors.New("session not found")

// maxIDAttempts bounds regeneration when the id generator collides.
const maxIDAttempts = 5

// PendingKind says which MFA step a pending session is waiting on.
type PendingKind string

const (
	// PendingVerify waits for a code from an already-enrolled authenticator.
	PendingVerify PendingKind = "verify"
	// PendingSetup waits for first-time authenticator enrollment.
	PendingSetup PendingKind = "setup"
)

// Record holds the server-side state for one console session.
type Record struct {
	SessionID    string
	UserID       string
	Username     string
	AccessToken  string
	TempToken    string
	AccessExpiry time.Time
	TempExpiry   time.Time
	Pending      PendingKind
	CreatedAt    time.Time
}

// record pairs session state with a per-record lock. Token fields are only
// touched while holding mu, so a refresh racing an upgrade can interleave in
// any order but never leaves a torn token+expiry pair.
type record struct {
	mu   sync.Mutex
	data Record
}

// Config injects the store's clock and id generator. Zero fields fall back
// to time.Now and RandomID.
type Config struct {
	Now   func() time.Time
	NewID func() (string, error)
}

// Store is the process-wide session registry. One Store is constructed at
// startup and handed to route handlers; there is no package-level instance.
type Store struct {
	now   func() time.Time
	newID func() (string, error)

	mu      sync.RWMutex
	records map[string]*record
}

// NewStore creates an empty session store.
func NewStore(cfg Config) *Store {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	newID := cfg.NewID
	if newID == nil {
		newID = RandomID
	}
	return &Store{
		now:     now,
		newID:   newID,
		records: make(map[string]*record),
	}
}

// RandomID is the default session id generator: 32 cryptographically random
// bytes, hex encoded.
func RandomID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Create inserts a full session carrying an access token and returns the new
// session id. Existing sessions are never touched.
func (s *Store) Create(userID, username, accessToken string, expiry time.Time) (string, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return "", errors.New("access token is required")
	}
	return s.insert(Record{
		UserID:       strings.TrimSpace(userID),
		Username:     strings.TrimSpace(username),
		AccessToken:  accessToken,
		AccessExpiry: expiry,
	})
}

// CreatePending inserts an MFA-pending session carrying only a temp token
// and returns the new session id. kind records which MFA step the session
// waits on so later requests can resume the right flow.
func (s *Store) CreatePending(userID, username, tempToken string, expiry time.Time, kind PendingKind) (string, error) {
	tempToken = strings.TrimSpace(tempToken)
	if tempToken == "" {
		return "", errors.New("temp token is required")
	}
	if kind != PendingVerify && kind != PendingSetup {
		return "", fmt.Errorf("unknown pending kind %q", kind)
	}
	return s.insert(Record{
		UserID:     strings.TrimSpace(userID),
		Username:   strings.TrimSpace(username),
		TempToken:  tempToken,
		TempExpiry: expiry,
		Pending:    kind,
	})
}

func (s *Store) insert(data Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id, err := s.newID()
		if err != nil {
			return "", err
		}
		id = strings.TrimSpace(id)
		if id == "" {
			return "", errors.New("id generator returned empty id")
		}
		if _, exists := s.records[id]; exists {
			continue
		}
		data.SessionID = id
		data.CreatedAt = s.now()
		s.records[id] = &record{data: data}
		return id, nil
	}
	return "", errors.New("could not generate unique session id")
}

// Upgrade replaces the temp token with a full access token, completing an
// MFA flow. The temp token slot is cleared.
func (s *Store) Upgrade(sessionID, accessToken string, expiry time.Time) error {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return errors.New("access token is required")
	}
	return s.mutate(sessionID, func(data *Record) {
		data.AccessToken = accessToken
		data.AccessExpiry = expiry
		data.TempToken = ""
		data.TempExpiry = time.Time{}
		data.Pending = ""
	})
}

// Refresh overwrites the access token pair. Last writer wins when concurrent
// refreshes race.
func (s *Store) Refresh(sessionID, accessToken string, expiry time.Time) error {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return errors.New("access token is required")
	}
	return s.mutate(sessionID, func(data *Record) {
		data.AccessToken = accessToken
		data.AccessExpiry = expiry
	})
}

func (s *Store) mutate(sessionID string, apply func(*Record)) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[sessionID]
	if !ok {
		return ErrNotFound
	}
	rec.mu.Lock()
	apply(&rec.data)
	rec.mu.Unlock()
	return nil
}

// Token returns the access token for a session, or false when the session is
// missing or the token is expired. Reads never delete.
func (s *Store) Token(sessionID string) (string, bool) {
	rec, ok := s.snapshot(sessionID)
	if !ok {
		return "", false
	}
	if rec.AccessToken == "" || s.now().After(rec.AccessExpiry) {
		return "", false
	}
	return rec.AccessToken, true
}

// TempToken returns the MFA-pending token for a session under the same
// contract as Token.
func (s *Store) TempToken(sessionID string) (string, bool) {
	rec, ok := s.snapshot(sessionID)
	if !ok {
		return "", false
	}
	if rec.TempToken == "" || s.now().After(rec.TempExpiry) {
		return "", false
	}
	return rec.TempToken, true
}

// Get returns a snapshot copy of the session record.
func (s *Store) Get(sessionID string) (Record, bool) {
	return s.snapshot(sessionID)
}

func (s *Store) snapshot(sessionID string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[sessionID]
	if !ok {
		return Record{}, false
	}
	rec.mu.Lock()
	data := rec.data
	rec.mu.Unlock()
	return data, true
}

// Invalidate removes the session unconditionally. Invalidating an unknown id
// is a no-op.
func (s *Store) Invalidate(sessionID string) {
	s.mu.Lock()
	delete(s.records, sessionID)
	s.mu.Unlock()
}

// Len reports the number of stored sessions, live or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// SweepExpired removes every record whose access and temp tokens are both
// expired or absent, and reports how many were removed.
func (s *Store) SweepExpired() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, rec := range s.records {
		if liveToken(rec.data.AccessToken, rec.data.AccessExpiry, now) {
			continue
		}
		if liveToken(rec.data.TempToken, rec.data.TempExpiry, now) {
			continue
		}
		delete(s.records, id)
		removed++
	}
	return removed
}

func liveToken(token string, expiry time.Time, now time.Time) bool {
	return token != "" && !now.After(expiry)
}

// LiveAccess reports whether the record holds a usable access token at now.
func (r Record) LiveAccess(now time.Time) bool {
	return liveToken(r.AccessToken, r.AccessExpiry, now)
}

// LivePending reports whether the record holds a usable temp token at now.
func (r Record) LivePending(now time.Time) bool {
	return liveToken(r.TempToken, r.TempExpiry, now)
}
