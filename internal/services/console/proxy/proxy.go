// Package proxy dispatches browser-submitted API operations to the upstream
// service. The browser names an endpoint and method; the dispatcher checks
// the session, consults an ordered route table, and forwards the call with
// the server-held access token. The browser never sees that token.
package proxy

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	apperrors "github.com/louisbranch/paydeck/internal/services/console/platform/errors"
	"github.com/louisbranch/paydeck/internal/services/console/session"
	"github.com/louisbranch/paydeck/internal/services/console/upstream"
)

// Audit action names recorded for proxy decisions.
const (
	ActionDenied      = "proxy.denied"
	ActionUnsupported = "proxy.unsupported"
)

// Request is one proxied operation submitted by the browser.
type Request struct {
	Endpoint string
	Method   string
	Data     map[string]any
	Params   map[string]string
}

// SessionSource is the slice of the session store the dispatcher needs.
type SessionSource interface {
	Get(sessionID string) (session.Record, bool)
	Token(sessionID string) (string, bool)
}

// ResourceCaller performs the forwarded upstream call.
type ResourceCaller interface {
	Do(ctx context.Context, accessToken, method, path string, body map[string]any, query url.Values) (upstream.ResourceResult, error)
}

// Auditor records proxy denials. A nil auditor disables recording.
type Auditor interface {
	Record(ctx context.Context, action, actor, detail string)
}

// routeHandler forwards one matched operation upstream.
type routeHandler func(ctx context.Context, caller ResourceCaller, token string, req Request) (upstream.ResourceResult, error)

// route pairs an endpoint pattern and method with its handler. The table is
// consulted in order and the first match wins, so more specific patterns
// must come before broader ones.
type route struct {
	method  string
	pattern string
	handle  routeHandler
}

// Config wires the dispatcher's collaborators.
type Config struct {
	Sessions SessionSource
	Upstream ResourceCaller
	Auditor  Auditor
}

// Dispatcher routes proxied operations. Access tokens are looked up per
// dispatch and live only in the call frame; the dispatcher itself holds no
// token state.
type Dispatcher struct {
	sessions SessionSource
	upstream ResourceCaller
	auditor  Auditor
	routes   []route
}

// NewDispatcher creates a proxy dispatcher with the console route table.
func NewDispatcher(cfg Config) (*Dispatcher, error) {
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session source is required")
	}
	if cfg.Upstream == nil {
		return nil, fmt.Errorf("upstream caller is required")
	}
	return &Dispatcher{
		sessions: cfg.Sessions,
		upstream: cfg.Upstream,
		auditor:  cfg.Auditor,
		routes:   routeTable(),
	}, nil
}

// routeTable lists every operation the console exposes through the proxy.
func routeTable() []route {
	return []route{
		{http.MethodGet, "/users", forward},
		{http.MethodPost, "/users", forwardTo("/auth/register")},
		{http.MethodGet, "/users/{id}", forward},
		{http.MethodPut, "/users/{id}", forward},
		{http.MethodDelete, "/users/{id}", forward},
		{http.MethodPatch, "/users/{id}/toggle-status", forward},
		{http.MethodPost, "/users/{id}/reset-password", forward},
		{http.MethodGet, "/sites", forward},
		{http.MethodPost, "/sites", forward},
		{http.MethodPut, "/sites/{id}", forward},
		{http.MethodDelete, "/sites/{id}", forward},
		{http.MethodPatch, "/sites/{id}/toggle-status", forward},
		{http.MethodGet, "/orders/payment", forward},
		{http.MethodGet, "/orders/payment/{id}", forward},
		{http.MethodPatch, "/orders/payment/{id}/status", requireData(forward, "status")},
		{http.MethodGet, "/orders/withdraw", forward},
		{http.MethodPost, "/orders/withdraw/{id}/approve", forward},
		{http.MethodPost, "/orders/withdraw/{id}/reject", forward},
		{http.MethodGet, "/banks", forward},
		{http.MethodPost, "/banks", forward},
		{http.MethodPut, "/banks/{id}", forward},
		{http.MethodDelete, "/banks/{id}", forward},
	}
}

// allowedMethods bounds what the browser may ask the proxy to perform.
var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// scratch carries the access token borrowed for one dispatch. Release zeroes
// it so the token never outlives the call that needed it.
type scratch struct {
	token string
}

func (s *scratch) release() {
	s.token = ""
}

// Dispatch runs one proxied operation. The session check comes before any
// routing or validation: without a live access token nothing about the
// requested endpoint is interpreted and the upstream is never called.
func (d *Dispatcher) Dispatch(ctx context.Context, sessionID string, req Request) (upstream.ResourceResult, error) {
	rec, ok := d.sessions.Get(sessionID)
	if !ok {
		d.record(ctx, ActionDenied, "", req.Endpoint)
		return upstream.ResourceResult{}, apperrors.E(apperrors.KindSessionNotFound, "no session for proxy call")
	}
	token, live := d.sessions.Token(sessionID)
	if !live {
		d.record(ctx, ActionDenied, rec.Username, req.Endpoint)
		return upstream.ResourceResult{}, apperrors.E(apperrors.KindSessionExpired, "session has no live access token")
	}

	call := scratch{token: token}
	defer call.release()

	normalized, err := normalizeRequest(req)
	if err != nil {
		return upstream.ResourceResult{}, err
	}

	for _, r := range d.routes {
		if r.method != normalized.Method {
			continue
		}
		if !matchPattern(r.pattern, normalized.Endpoint) {
			continue
		}
		return r.handle(ctx, d.upstream, call.token, normalized)
	}

	d.record(ctx, ActionUnsupported, rec.Username, normalized.Method+" "+normalized.Endpoint)
	return upstream.ResourceResult{}, apperrors.E(
		apperrors.KindUnsupportedEndpoint,
		fmt.Sprintf("no route for %s %s", normalized.Method, normalized.Endpoint),
	)
}

// normalizeRequest validates and canonicalizes the browser's request. An
// empty method defaults to GET.
func normalizeRequest(req Request) (Request, error) {
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	if !allowedMethods[method] {
		return Request{}, apperrors.E(apperrors.KindValidation, fmt.Sprintf("unsupported method %q", method))
	}

	endpoint := strings.TrimSpace(req.Endpoint)
	if endpoint == "" {
		return Request{}, apperrors.E(apperrors.KindValidation, "endpoint is required")
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	if len(endpoint) > 1 {
		endpoint = strings.TrimRight(endpoint, "/")
	}
	if strings.ContainsAny(endpoint, "?#") {
		return Request{}, apperrors.E(apperrors.KindValidation, "endpoint must not carry a query or fragment")
	}

	req.Method = method
	req.Endpoint = endpoint
	return req, nil
}

// matchPattern reports whether an endpoint path matches a route pattern.
// Segments wrapped in braces match any single non-empty segment.
func matchPattern(pattern, endpoint string) bool {
	want := strings.Split(strings.Trim(pattern, "/"), "/")
	got := strings.Split(strings.Trim(endpoint, "/"), "/")
	if len(want) != len(got) {
		return false
	}
	for i, segment := range want {
		if strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}") {
			if got[i] == "" {
				return false
			}
			continue
		}
		if segment != got[i] {
			return false
		}
	}
	return true
}

// forward relays the operation verbatim: params become the query string and
// data becomes the JSON body on non-GET methods.
func forward(ctx context.Context, caller ResourceCaller, token string, req Request) (upstream.ResourceResult, error) {
	var query url.Values
	if len(req.Params) > 0 {
		query = url.Values{}
		for key, value := range req.Params {
			query.Set(key, value)
		}
	}
	return caller.Do(ctx, token, req.Method, req.Endpoint, req.Data, query)
}

// forwardTo relays the operation to a fixed upstream path. Used where the
// console endpoint and the upstream route differ.
func forwardTo(path string) routeHandler {
	return func(ctx context.Context, caller ResourceCaller, token string, req Request) (upstream.ResourceResult, error) {
		req.Endpoint = path
		return forward(ctx, caller, token, req)
	}
}

// requireData wraps a handler with a presence check on data fields.
func requireData(next routeHandler, fields ...string) routeHandler {
	return func(ctx context.Context, caller ResourceCaller, token string, req Request) (upstream.ResourceResult, error) {
		for _, field := range fields {
			if _, ok := req.Data[field]; !ok {
				return upstream.ResourceResult{}, apperrors.E(
					apperrors.KindValidation,
					fmt.Sprintf("field %q is required", field),
				)
			}
		}
		return next(ctx, caller, token, req)
	}
}

func (d *Dispatcher) record(ctx context.Context, action, actor, detail string) {
	if d.auditor == nil {
		return
	}
	d.auditor.Record(ctx, action, actor, detail)
}
