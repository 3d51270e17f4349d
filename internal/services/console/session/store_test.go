package session

import (
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"
)

func newTestStore(now *time.Time) *Store {
	return NewStore(Config{
		Now: func() time.Time { return *now },
	})
}

func TestCreateReturnsUniqueIDs(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newTestStore(&now)
	expiry := now.Add(time.Hour)

	seen := make(map[string]bool, 500)
	for i := 0; i < 500; i++ {
		id, err := store.Create("user-1", "alice", "token", expiry)
		if err != nil {
			t.Fatalf("create session: %v", err)
		}
		if seen[id] {
			t.Fatalf("session id %q repeated after %d creates", id, i)
		}
		seen[id] = true
	}
}

func TestRandomIDIsHexOfThirtyTwoBytes(t *testing.T) {
	t.Parallel()

	id, err := RandomID()
	if err != nil {
		t.Fatalf("random id: %v", err)
	}
	if len(id) != 64 {
		t.Fatalf("id length = %d, want 64", len(id))
	}
	if !regexp.MustCompile(`^[0-9a-f]+$`).MatchString(id) {
		t.Fatalf("id %q is not lowercase hex", id)
	}
}

func TestTokenReturnsFalseForUnknownSession(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newTestStore(&now)

	if _, ok := store.Token("never-created"); ok {
		t.Fatal("expected no token for unknown session id")
	}
	if _, ok := store.TempToken("never-created"); ok {
		t.Fatal("expected no temp token for unknown session id")
	}
}

func TestTokenReturnsFalseAfterExpiryWithoutSweep(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newTestStore(&now)

	id, err := store.Create("user-1", "alice", "token-1", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	if _, ok := store.Token(id); !ok {
		t.Fatal("expected live token before expiry")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := store.Token(id); ok {
		t.Fatal("expected no token after expiry even without a sweep")
	}

	// Reads are read-only: the record itself must survive until swept.
	if _, ok := store.Get(id); !ok {
		t.Fatal("expected expired record to remain until swept")
	}
}

func TestUpgradeReplacesTempTokenWithAccessToken(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newTestStore(&now)

	id, err := store.CreatePending("user-2", "bob", "temp-1", now.Add(10*time.Minute), PendingVerify)
	if err != nil {
		t.Fatalf("create pending session: %v", err)
	}
	if _, ok := store.Token(id); ok {
		t.Fatal("pending session must not expose an access token")
	}
	if rec, ok := store.Get(id); !ok || rec.Pending != PendingVerify {
		t.Fatalf("Pending = %q, want %q", rec.Pending, PendingVerify)
	}

	if err := store.Upgrade(id, "access-1", now.Add(time.Hour)); err != nil {
		t.Fatalf("upgrade session: %v", err)
	}

	token, ok := store.Token(id)
	if !ok || token != "access-1" {
		t.Fatalf("Token = %q, %v, want %q, true", token, ok, "access-1")
	}
	if _, ok := store.TempToken(id); ok {
		t.Fatal("temp token must be cleared after upgrade")
	}
	if rec, _ := store.Get(id); rec.Pending != "" {
		t.Fatalf("Pending = %q after upgrade, want empty", rec.Pending)
	}
}

func TestCreatePendingRejectsUnknownKind(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newTestStore(&now)

	if _, err := store.CreatePending("user-2", "bob", "temp-1", now.Add(time.Minute), "later"); err == nil {
		t.Fatal("expected error for unknown pending kind")
	}
}

func TestUpgradeUnknownSessionReturnsNotFound(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newTestStore(&now)

	err := store.Upgrade("missing", "access-1", now.Add(time.Hour))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Upgrade error = %v, want ErrNotFound", err)
	}
}

func TestRefreshIsLastWriterWins(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newTestStore(&now)

	id, err := store.Create("user-1", "alice", "token-old", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	if err := store.Refresh(id, "token-a", now.Add(time.Hour)); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	if err := store.Refresh(id, "token-b", now.Add(2*time.Hour)); err != nil {
		t.Fatalf("second refresh: %v", err)
	}

	token, ok := store.Token(id)
	if !ok || token != "token-b" {
		t.Fatalf("Token = %q, %v, want %q, true", token, ok, "token-b")
	}

	rec, ok := store.Get(id)
	if !ok {
		t.Fatal("expected record after refresh")
	}
	if !rec.AccessExpiry.Equal(now.Add(2 * time.Hour)) {
		t.Fatalf("AccessExpiry = %v, want %v", rec.AccessExpiry, now.Add(2*time.Hour))
	}
}

func TestInvalidateIsIdempotent(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newTestStore(&now)

	id, err := store.Create("user-1", "alice", "token", now.Add(time.Hour))
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	store.Invalidate(id)
	if _, ok := store.Get(id); ok {
		t.Fatal("expected record removed after invalidate")
	}
	store.Invalidate(id)
	if _, ok := store.Get(id); ok {
		t.Fatal("expected second invalidate to stay removed")
	}
}

func TestSweepExpiredRemovesOnlyDeadRecords(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newTestStore(&now)

	liveID, err := store.Create("user-1", "alice", "token-live", now.Add(time.Hour))
	if err != nil {
		t.Fatalf("create live session: %v", err)
	}
	deadID, err := store.Create("user-2", "bob", "token-dead", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("create dead session: %v", err)
	}
	pendingID, err := store.CreatePending("user-3", "carol", "temp-live", now.Add(30*time.Minute), PendingSetup)
	if err != nil {
		t.Fatalf("create pending session: %v", err)
	}

	now = now.Add(10 * time.Minute)
	removed := store.SweepExpired()
	if removed != 1 {
		t.Fatalf("SweepExpired removed %d records, want 1", removed)
	}
	if _, ok := store.Get(deadID); ok {
		t.Fatal("expected dead session removed by sweep")
	}
	if _, ok := store.Get(liveID); !ok {
		t.Fatal("expected live session to survive sweep")
	}
	if _, ok := store.Get(pendingID); !ok {
		t.Fatal("expected live pending session to survive sweep")
	}
	if got := store.Len(); got != 2 {
		t.Fatalf("Len() = %d after sweep, want 2", got)
	}
}

func TestInjectedIDGeneratorRetriesOnCollision(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	ids := []string{"dup", "dup", "fresh"}
	store := NewStore(Config{
		Now: func() time.Time { return now },
		NewID: func() (string, error) {
			id := ids[calls%len(ids)]
			calls++
			return id, nil
		},
	})

	first, err := store.Create("user-1", "alice", "token-1", now.Add(time.Hour))
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	if first != "dup" {
		t.Fatalf("first id = %q, want %q", first, "dup")
	}

	second, err := store.Create("user-2", "bob", "token-2", now.Add(time.Hour))
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if second != "fresh" {
		t.Fatalf("second id = %q, want %q (collision retry)", second, "fresh")
	}
}

func TestCreateRejectsEmptyToken(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newTestStore(&now)

	if _, err := store.Create("user-1", "alice", "   ", now.Add(time.Hour)); err == nil {
		t.Fatal("expected error for blank access token")
	}
	if _, err := store.CreatePending("user-1", "alice", "", now.Add(time.Hour), PendingVerify); err == nil {
		t.Fatal("expected error for blank temp token")
	}
}

func TestConcurrentRefreshesKeepTokenPairConsistent(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newTestStore(&now)

	id, err := store.Create("user-1", "alice", "token-0", now.Add(time.Hour))
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	expiries := make(map[string]time.Time, 16)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		token := fmt.Sprintf("token-%d", i+1)
		expiry := now.Add(time.Duration(i+1) * time.Hour)
		expiries[token] = expiry
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.Refresh(id, token, expiry); err != nil {
				t.Errorf("refresh: %v", err)
			}
		}()
	}
	wg.Wait()

	rec, ok := store.Get(id)
	if !ok {
		t.Fatal("expected record after concurrent refreshes")
	}
	want, known := expiries[rec.AccessToken]
	if !known {
		t.Fatalf("unexpected token %q after races", rec.AccessToken)
	}
	if !rec.AccessExpiry.Equal(want) {
		t.Fatalf("token %q paired with expiry %v, want %v", rec.AccessToken, rec.AccessExpiry, want)
	}
}
