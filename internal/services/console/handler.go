package console

import (
	"errors"
	"net/http"

	"github.com/louisbranch/paydeck/internal/services/console/authflow"
	"github.com/louisbranch/paydeck/internal/services/console/guard"
	auditmodule "github.com/louisbranch/paydeck/internal/services/console/module/audit"
	"github.com/louisbranch/paydeck/internal/services/console/module/banks"
	"github.com/louisbranch/paydeck/internal/services/console/module/orders"
	"github.com/louisbranch/paydeck/internal/services/console/module/sites"
	"github.com/louisbranch/paydeck/internal/services/console/module/users"
	apperrors "github.com/louisbranch/paydeck/internal/services/console/platform/errors"
	"github.com/louisbranch/paydeck/internal/services/console/platform/httpx"
	"github.com/louisbranch/paydeck/internal/services/console/platform/i18n"
	"github.com/louisbranch/paydeck/internal/services/console/proxy"
	"github.com/louisbranch/paydeck/internal/services/console/routepath"
	"github.com/louisbranch/paydeck/internal/services/console/session"
	"github.com/louisbranch/paydeck/internal/services/console/storage"
)

// HandlerConfig wires the console's HTTP surface.
type HandlerConfig struct {
	Flow     *authflow.Flow
	Guard    *guard.Guard
	Dispatch *proxy.Dispatcher
	Codec    *session.Codec
	Audit    storage.AuditStore
}

// Handler routes console requests. It owns no state beyond its
// collaborators; all session and token state lives behind them.
type Handler struct {
	flow     *authflow.Flow
	guard    *guard.Guard
	dispatch *proxy.Dispatcher
	codec    *session.Codec
	audit    storage.AuditStore
}

// NewHandler builds the console's HTTP handler.
func NewHandler(cfg HandlerConfig) (http.Handler, error) {
	if cfg.Flow == nil {
		return nil, errors.New("auth flow is required")
	}
	if cfg.Guard == nil {
		return nil, errors.New("route guard is required")
	}
	if cfg.Dispatch == nil {
		return nil, errors.New("proxy dispatcher is required")
	}
	if cfg.Codec == nil {
		return nil, errors.New("cookie codec is required")
	}
	if cfg.Audit == nil {
		return nil, errors.New("audit store is required")
	}
	h := &Handler{
		flow:     cfg.Flow,
		guard:    cfg.Guard,
		dispatch: cfg.Dispatch,
		codec:    cfg.Codec,
		audit:    cfg.Audit,
	}

	mux := http.NewServeMux()
	mux.HandleFunc(routepath.Healthz, h.handleHealthz)
	mux.Handle(routepath.AuthLogin, httpx.Chain(http.HandlerFunc(h.handleLogin), httpx.RequireMethod(http.MethodPost)))
	mux.Handle(routepath.AuthMFA, httpx.Chain(http.HandlerFunc(h.handleMFA), httpx.RequireMethod(http.MethodPost)))
	mux.Handle(routepath.AuthLogout, httpx.Chain(http.HandlerFunc(h.handleLogout), httpx.RequireMethod(http.MethodPost)))
	mux.Handle(routepath.AuthRegister, httpx.Chain(http.HandlerFunc(h.handleRegister), httpx.RequireMethod(http.MethodPost)))
	mux.Handle(routepath.AuthCheckUser, httpx.Chain(http.HandlerFunc(h.handleCheckUser), httpx.RequireMethod(http.MethodPost)))
	mux.Handle(routepath.AuthSession, httpx.Chain(http.HandlerFunc(h.handleSessionInfo), httpx.RequireMethod(http.MethodGet)))
	mux.Handle(routepath.APIProxy, h.guard.RequireAPI(http.HandlerFunc(h.handleProxy)))

	// Page-data routes register through their modules onto a dedicated mux
	// so the whole surface sits behind one page guard.
	pages := http.NewServeMux()
	users.RegisterRoutes(pages, h)
	sites.RegisterRoutes(pages, h)
	orders.RegisterRoutes(pages, h)
	banks.RegisterRoutes(pages, h)
	auditmodule.RegisterRoutes(pages, h)
	pageData := h.guard.RequirePage(pages)
	for _, route := range []string{
		routepath.Users,
		routepath.Sites,
		routepath.OrdersPayment,
		routepath.OrdersWithdraw,
		routepath.Banks,
		routepath.Audit,
	} {
		mux.Handle(route, pageData)
	}

	return httpx.Chain(mux, httpx.RequestID(), httpx.RecoverPanic()), nil
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.MethodNotAllowed(http.MethodGet)(w, r)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeError localizes err for the requester and writes the standard error
// envelope with the status its kind maps to.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	tag := i18n.MatchTag(r.Header.Get("Accept-Language"))
	_ = httpx.WriteJSONError(w, apperrors.HTTPStatus(err), i18n.PublicMessage(tag, err))
}
