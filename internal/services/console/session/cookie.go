package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the single browser-facing session cookie. Its value is a
// signed wrapper around the session id and nothing else.
const CookieName = "paydeck_session"

// MinSecretLen is the minimum cookie-signing secret length in bytes,
// enforced at startup by config loading and again here.
const MinSecretLen = 32

// Codec signs session ids into cookie values and verifies them back.
type Codec struct {
	secret []byte
	now    func() time.Time
}

// NewCodec creates a cookie codec. The secret must be at least MinSecretLen
// bytes; a nil clock falls back to time.Now.
func NewCodec(secret []byte, now func() time.Time) (*Codec, error) {
	if len(secret) < MinSecretLen {
		return nil, fmt.Errorf("cookie secret must be at least %d bytes", MinSecretLen)
	}
	if now == nil {
		now = time.Now
	}
	return &Codec{secret: secret, now: now}, nil
}

// Issue signs the session id and writes the session cookie to the response.
func (c *Codec) Issue(w http.ResponseWriter, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return errors.New("session id is required")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:  sessionID,
		IssuedAt: jwt.NewNumericDate(c.now()),
	})
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return fmt.Errorf("sign session cookie: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the session cookie.
func (c *Codec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionID reads the session cookie from the request and verifies its
// signature, returning the embedded session id.
func (c *Codec) SessionID(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", false
	}
	return c.Verify(cookie.Value)
}

// Verify checks a signed cookie value and extracts the session id. Tampered
// values and unexpected signing algorithms are rejected.
func (c *Codec) Verify(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(value, &claims, func(token *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return "", false
	}
	sessionID := strings.TrimSpace(claims.Subject)
	if sessionID == "" {
		return "", false
	}
	return sessionID, true
}
