package console

import (
	"log"
	"net/http"
	"strings"

	"github.com/louisbranch/paydeck/internal/services/console/authflow"
	apperrors "github.com/louisbranch/paydeck/internal/services/console/platform/errors"
	"github.com/louisbranch/paydeck/internal/services/console/platform/httpx"
	"github.com/louisbranch/paydeck/internal/services/console/upstream"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool   `json:"success"`
	State   string `json:"state"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		h.writeError(w, r, apperrors.EK(apperrors.KindValidation, "console.request.error_validation", "malformed request body"))
		return
	}

	outcome, err := h.flow.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.codec.Issue(w, outcome.SessionID); err != nil {
		log.Printf("console: issue session cookie: %v", err)
		h.writeError(w, r, apperrors.E(apperrors.KindUnknown, "issue session cookie"))
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, loginResponse{Success: true, State: string(outcome.State)})
}

type mfaRequest struct {
	Action string `json:"action"`
	Code   string `json:"code"`
}

type mfaResponse struct {
	Success       bool     `json:"success"`
	State         string   `json:"state"`
	Secret        string   `json:"secret,omitempty"`
	OTPAuthURL    string   `json:"otpauthUrl,omitempty"`
	RecoveryCodes []string `json:"recoveryCodes,omitempty"`
}

func (h *Handler) handleMFA(w http.ResponseWriter, r *http.Request) {
	var req mfaRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		h.writeError(w, r, apperrors.EK(apperrors.KindValidation, "console.request.error_validation", "malformed request body"))
		return
	}

	action, err := mfaActionFrom(req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	sessionID, ok := h.codec.SessionID(r)
	if !ok {
		h.writeError(w, r, apperrors.EK(apperrors.KindSessionNotFound, "console.auth.error_authentication", "mfa without session cookie"))
		return
	}

	outcome, err := h.flow.SubmitMFA(r.Context(), sessionID, action)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := mfaResponse{Success: true, State: string(outcome.State)}
	if outcome.Enrollment != nil {
		resp.Secret = outcome.Enrollment.Secret
		resp.OTPAuthURL = outcome.Enrollment.OTPAuthURL
		resp.RecoveryCodes = outcome.Enrollment.RecoveryCodes
	}
	_ = httpx.WriteJSON(w, http.StatusOK, resp)
}

func mfaActionFrom(req mfaRequest) (authflow.MFAAction, error) {
	code := strings.TrimSpace(req.Code)
	switch strings.TrimSpace(req.Action) {
	case "initiate":
		return authflow.Initiate{}, nil
	case "enable":
		return authflow.Enable{Code: code}, nil
	case "verify":
		return authflow.Verify{Code: code}, nil
	default:
		return nil, apperrors.EK(apperrors.KindValidation, "console.request.error_validation", "unknown mfa action")
	}
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sessionID, ok := h.codec.SessionID(r); ok {
		h.flow.Logout(r.Context(), sessionID)
	}
	h.codec.Clear(w)
	_ = httpx.WriteJSON(w, http.StatusOK, loginResponse{Success: true, State: string(authflow.StateUnauthenticated)})
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type registerResponse struct {
	Success bool                 `json:"success"`
	User    upstream.UserProfile `json:"user"`
}

// handleRegister relays operator sign-up. Registration never issues a
// session cookie; the new operator signs in through the login route.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		h.writeError(w, r, apperrors.EK(apperrors.KindValidation, "console.request.error_validation", "malformed request body"))
		return
	}

	profile, err := h.flow.Register(r.Context(), upstream.RegisterParams{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, registerResponse{Success: true, User: profile})
}

type checkUserRequest struct {
	Username string `json:"username"`
}

type checkUserResponse struct {
	Success   bool `json:"success"`
	Available bool `json:"available"`
}

func (h *Handler) handleCheckUser(w http.ResponseWriter, r *http.Request) {
	var req checkUserRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		h.writeError(w, r, apperrors.EK(apperrors.KindValidation, "console.request.error_validation", "malformed request body"))
		return
	}

	available, err := h.flow.CheckUser(r.Context(), req.Username)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, checkUserResponse{Success: true, Available: available})
}

type sessionInfoResponse struct {
	State    string `json:"state"`
	Username string `json:"username,omitempty"`
}

// handleSessionInfo reports the caller's authentication state for the page
// shell. Anonymous requests get "unauthenticated" rather than a redirect so
// the shell can decide where to send the visitor.
func (h *Handler) handleSessionInfo(w http.ResponseWriter, r *http.Request) {
	resp := sessionInfoResponse{State: string(authflow.StateUnauthenticated)}
	if sessionID, ok := h.codec.SessionID(r); ok {
		state, rec := h.flow.SessionState(sessionID)
		resp.State = string(state)
		if state != authflow.StateUnauthenticated {
			resp.Username = rec.Username
		}
	}
	_ = httpx.WriteJSON(w, http.StatusOK, resp)
}
