// Package guard gates console routes behind a live session. Page routes
// redirect anonymous visitors to the login page; API routes answer 401. A
// request whose access token has expired gets at most one refresh attempt
// before it is turned away.
package guard

import (
	"context"
	"errors"
	"net/http"
	"time"

	apperrors "github.com/louisbranch/paydeck/internal/services/console/platform/errors"
	"github.com/louisbranch/paydeck/internal/services/console/platform/httpx"
	"github.com/louisbranch/paydeck/internal/services/console/platform/i18n"
	"github.com/louisbranch/paydeck/internal/services/console/session"
	"github.com/louisbranch/paydeck/internal/services/console/upstream"
)

type ctxKey struct{}

// SessionFrom returns the session record a guard attached to the request
// context.
func SessionFrom(ctx context.Context) (session.Record, bool) {
	rec, ok := ctx.Value(ctxKey{}).(session.Record)
	return rec, ok
}

// Sessions is the slice of the session store the guard needs.
type Sessions interface {
	Get(sessionID string) (session.Record, bool)
	Refresh(sessionID, accessToken string, expiry time.Time) error
	Invalidate(sessionID string)
}

// Refresher renews an access token upstream.
type Refresher interface {
	Refresh(ctx context.Context, accessToken string) (upstream.RefreshResult, error)
}

// Cookies resolves and clears the session cookie.
type Cookies interface {
	SessionID(r *http.Request) (string, bool)
	Clear(w http.ResponseWriter)
}

// Config wires the guard's collaborators.
type Config struct {
	Sessions Sessions
	Upstream Refresher
	Cookies  Cookies
	// LoginPath is where page guards redirect anonymous visitors.
	LoginPath string
	// Now is injected for expiry checks in tests.
	Now func() time.Time
}

// Guard authenticates requests before they reach route handlers.
type Guard struct {
	sessions  Sessions
	upstream  Refresher
	cookies   Cookies
	loginPath string
	now       func() time.Time
}

// New creates a route guard.
func New(cfg Config) (*Guard, error) {
	if cfg.Sessions == nil {
		return nil, errors.New("session store is required")
	}
	if cfg.Upstream == nil {
		return nil, errors.New("upstream refresher is required")
	}
	if cfg.Cookies == nil {
		return nil, errors.New("cookie codec is required")
	}
	loginPath := cfg.LoginPath
	if loginPath == "" {
		loginPath = "/login"
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Guard{
		sessions:  cfg.Sessions,
		upstream:  cfg.Upstream,
		cookies:   cfg.Cookies,
		loginPath: loginPath,
		now:       now,
	}, nil
}

// RequirePage guards a page route. Requests without a fully authenticated
// session are redirected to the login page with 303 See Other and their
// stale cookie is cleared.
func (g *Guard) RequirePage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec, ok := g.resolve(r)
		if !ok {
			g.cookies.Clear(w)
			http.Redirect(w, r, g.loginPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, rec)))
	})
}

// RequireAPI guards a JSON route. Requests without a fully authenticated
// session get a 401 envelope.
func (g *Guard) RequireAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec, ok := g.resolve(r)
		if !ok {
			g.cookies.Clear(w)
			tag := i18n.MatchTag(r.Header.Get("Accept-Language"))
			err := apperrors.E(apperrors.KindSessionExpired, "authentication required")
			httpx.WriteJSONError(w, http.StatusUnauthorized, i18n.PublicMessage(tag, err))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, rec)))
	})
}

// resolve authenticates one request. An expired access token triggers at
// most one upstream refresh; pending sessions never count as authenticated
// here regardless of their temp token.
func (g *Guard) resolve(r *http.Request) (session.Record, bool) {
	sessionID, ok := g.cookies.SessionID(r)
	if !ok {
		return session.Record{}, false
	}
	rec, ok := g.sessions.Get(sessionID)
	if !ok {
		return session.Record{}, false
	}

	now := g.now()
	if rec.LiveAccess(now) {
		return rec, true
	}
	if rec.AccessToken == "" {
		return session.Record{}, false
	}

	result, err := g.upstream.Refresh(r.Context(), rec.AccessToken)
	if err != nil {
		// Transport trouble is not a verdict on the token; the record
		// stays for a retry once the upstream is reachable again.
		return session.Record{}, false
	}
	if !result.Success {
		g.sessions.Invalidate(sessionID)
		return session.Record{}, false
	}
	if err := g.sessions.Refresh(sessionID, result.AccessToken, result.AccessExpiresAt); err != nil {
		return session.Record{}, false
	}

	rec.AccessToken = result.AccessToken
	rec.AccessExpiry = result.AccessExpiresAt
	return rec, true
}
