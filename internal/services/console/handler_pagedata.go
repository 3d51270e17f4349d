package console

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/louisbranch/paydeck/internal/services/console/guard"
	apperrors "github.com/louisbranch/paydeck/internal/services/console/platform/errors"
	"github.com/louisbranch/paydeck/internal/services/console/platform/httpx"
	"github.com/louisbranch/paydeck/internal/services/console/proxy"
	"github.com/louisbranch/paydeck/internal/services/console/routepath"
	"github.com/louisbranch/paydeck/internal/services/console/upstream"
)

// defaultAuditPageSize caps audit listings when the page asks for no size.
const defaultAuditPageSize = 50

type proxyResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (h *Handler) handleProxy(w http.ResponseWriter, r *http.Request) {
	req, err := proxy.ParseHTTPRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	rec, ok := guard.SessionFrom(r.Context())
	if !ok {
		h.writeError(w, r, apperrors.EK(apperrors.KindSessionNotFound, "console.auth.error_authentication", "proxy without session"))
		return
	}

	result, err := h.dispatch.Dispatch(r.Context(), rec.SessionID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeResourceResult(w, r, result)
}

// writeResourceResult relays an upstream resource outcome. Success passes
// the raw payload through untouched; rejection relays the upstream status
// and message so the page sees what the API said.
func (h *Handler) writeResourceResult(w http.ResponseWriter, r *http.Request, result upstream.ResourceResult) {
	if !result.Success {
		message := result.FailureMessage
		if message == "" {
			h.writeError(w, r, apperrors.E(result.FailureKind, "upstream rejected request"))
			return
		}
		_ = httpx.WriteJSONError(w, result.Status, message)
		return
	}
	status := result.Status
	if status == 0 {
		status = http.StatusOK
	}
	_ = httpx.WriteJSON(w, status, proxyResponse{Success: true, Data: result.Data})
}

// HandleUsersData serves the user listing rows.
func (h *Handler) HandleUsersData(w http.ResponseWriter, r *http.Request) {
	h.servePageData(w, r, routepath.Users)
}

// HandleSitesData serves the merchant site listing rows.
func (h *Handler) HandleSitesData(w http.ResponseWriter, r *http.Request) {
	h.servePageData(w, r, routepath.Sites)
}

// HandlePaymentOrdersData serves the payment order listing rows.
func (h *Handler) HandlePaymentOrdersData(w http.ResponseWriter, r *http.Request) {
	h.servePageData(w, r, routepath.OrdersPayment)
}

// HandleWithdrawOrdersData serves the withdraw order listing rows.
func (h *Handler) HandleWithdrawOrdersData(w http.ResponseWriter, r *http.Request) {
	h.servePageData(w, r, routepath.OrdersWithdraw)
}

// HandleBanksData serves the bank listing rows.
func (h *Handler) HandleBanksData(w http.ResponseWriter, r *http.Request) {
	h.servePageData(w, r, routepath.Banks)
}

// servePageData loads listing rows for a page through the same dispatch
// table the proxy uses, so page loads and proxy calls cannot diverge on
// endpoint mapping.
func (h *Handler) servePageData(w http.ResponseWriter, r *http.Request, endpoint string) {
	if r.Method != http.MethodGet {
		httpx.MethodNotAllowed(http.MethodGet)(w, r)
		return
	}

	rec, ok := guard.SessionFrom(r.Context())
	if !ok {
		h.writeError(w, r, apperrors.EK(apperrors.KindSessionNotFound, "console.auth.error_authentication", "page data without session"))
		return
	}

	result, err := h.dispatch.Dispatch(r.Context(), rec.SessionID, proxy.Request{
		Endpoint: endpoint,
		Method:   http.MethodGet,
		Params:   pageParams(r),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeResourceResult(w, r, result)
}

func pageParams(r *http.Request) map[string]string {
	query := r.URL.Query()
	if len(query) == 0 {
		return nil
	}
	params := make(map[string]string, len(query))
	for key := range query {
		params[key] = query.Get(key)
	}
	return params
}

type auditEventPayload struct {
	ID        string `json:"id"`
	Action    string `json:"action"`
	Actor     string `json:"actor,omitempty"`
	Detail    string `json:"detail,omitempty"`
	CreatedAt string `json:"createdAt"`
}

type auditPagePayload struct {
	Events        []auditEventPayload `json:"events"`
	NextPageToken string              `json:"nextPageToken,omitempty"`
}

type auditDataResponse struct {
	Success bool             `json:"success"`
	Data    auditPagePayload `json:"data"`
}

// HandleAuditData lists recent console audit events, newest first.
func (h *Handler) HandleAuditData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.MethodNotAllowed(http.MethodGet)(w, r)
		return
	}

	query := r.URL.Query()
	pageSize := defaultAuditPageSize
	if raw := query.Get("pageSize"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.writeError(w, r, apperrors.EK(apperrors.KindValidation, "console.request.error_validation", "page size must be a positive integer"))
			return
		}
		pageSize = parsed
	}
	pageToken := query.Get("pageToken")
	if pageToken != "" {
		if _, err := strconv.ParseInt(pageToken, 10, 64); err != nil {
			h.writeError(w, r, apperrors.EK(apperrors.KindValidation, "console.request.error_validation", "malformed page token"))
			return
		}
	}

	page, err := h.audit.ListAuditEvents(r.Context(), query.Get("action"), pageSize, pageToken)
	if err != nil {
		log.Printf("console: list audit events: %v", err)
		h.writeError(w, r, apperrors.E(apperrors.KindUnknown, "list audit events"))
		return
	}

	payload := auditPagePayload{Events: make([]auditEventPayload, 0, len(page.Events)), NextPageToken: page.NextPageToken}
	for _, event := range page.Events {
		payload.Events = append(payload.Events, auditEventPayload{
			ID:        event.ID,
			Action:    event.Action,
			Actor:     event.Actor,
			Detail:    event.Detail,
			CreatedAt: event.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	_ = httpx.WriteJSON(w, http.StatusOK, auditDataResponse{Success: true, Data: payload})
}
