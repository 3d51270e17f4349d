// Package upstream wraps the console's calls to the upstream authentication
// and resource API. Normal failures (bad credentials, wrong MFA codes, 4xx
// rejections) come back as structured results callers pattern-match on;
// returned errors are reserved for transport-level problems.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/louisbranch/paydeck/internal/platform/timeouts"
	apperrors "github.com/louisbranch/paydeck/internal/services/console/platform/errors"
)

// maxResponseBytes caps upstream response bodies read into memory.
const maxResponseBytes = 4 << 20

// Upstream auth endpoints. Login doubles as the MFA verification endpoint
// when the payload carries an MFA code.
const (
	pathLogin          = "/auth/login"
	pathRegister       = "/auth/register"
	pathRefresh        = "/auth/refresh"
	pathLogout         = "/auth/logout"
	pathCheckUser      = "/auth/check-user"
	pathMFASetupInit   = "/mfa/setup/init"
	pathMFASetupVerify = "/mfa/setup/verify"
)

// UserProfile mirrors the upstream user record. The console never persists
// it; profiles live for the duration of one request.
type UserProfile struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	RecordStatus    string `json:"recordStatus"`
	SessionValidity int64  `json:"sessionValidity"`
	CreatedAt       int64  `json:"createdAt"`
	UpdatedAt       int64  `json:"updatedAt"`
}

// LoginResult is the structured outcome of a login or MFA verification call.
type LoginResult struct {
	Success          bool
	Status           int
	FailureKind      apperrors.Kind
	FailureMessage   string
	AccessToken      string
	TempToken        string
	AccessExpiresAt  time.Time
	TempExpiresAt    time.Time
	MFARequired      bool
	MFASetupRequired bool
	User             UserProfile
}

// RefreshResult is the structured outcome of a token refresh.
type RefreshResult struct {
	Success         bool
	Status          int
	FailureKind     apperrors.Kind
	FailureMessage  string
	AccessToken     string
	AccessExpiresAt time.Time
}

// MFASetupInitResult carries the enrollment secret issued by the upstream.
type MFASetupInitResult struct {
	Success        bool
	Status         int
	FailureKind    apperrors.Kind
	FailureMessage string
	Secret         string
	OTPAuthURL     string
	RecoveryCodes  []string
}

// MFASetupVerifyResult is the structured outcome of confirming enrollment.
type MFASetupVerifyResult struct {
	Success         bool
	Status          int
	FailureKind     apperrors.Kind
	FailureMessage  string
	AccessToken     string
	AccessExpiresAt time.Time
}

// CheckUserResult reports username availability.
type CheckUserResult struct {
	Success        bool
	Status         int
	FailureKind    apperrors.Kind
	FailureMessage string
	Available      bool
}

// RegisterResult is the structured outcome of creating an upstream user.
type RegisterResult struct {
	Success        bool
	Status         int
	FailureKind    apperrors.Kind
	FailureMessage string
	User           UserProfile
}

// RegisterParams carries the fields for creating an upstream user.
type RegisterParams struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
}

// Config holds upstream client configuration.
type Config struct {
	// BaseURL is the upstream API root, e.g. https://api.example.com.
	BaseURL string
	// Timeout is the fixed per-request upper bound. Zero falls back to
	// timeouts.UpstreamRequest.
	Timeout time.Duration
	// Now is injected for expiry computation in tests.
	Now func() time.Time
}

// Client performs upstream API calls with a fixed request timeout.
type Client struct {
	baseURL string
	client  *http.Client
	now     func() time.Time
}

// NewClient creates an upstream client.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("upstream base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = timeouts.UpstreamRequest
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Client{
		baseURL: base,
		client:  &http.Client{Timeout: timeout},
		now:     now,
	}, nil
}

// loginPayload is the wire shape shared by password login and MFA verify.
type loginPayload struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	MFACode  string `json:"mfaCode,omitempty"`
}

// authResponse is the upstream success body for login-family calls.
type authResponse struct {
	AccessToken      string      `json:"accessToken"`
	ExpiresIn        int64       `json:"expiresIn"`
	TempToken        string      `json:"tempToken"`
	TempExpiresIn    int64       `json:"tempExpiresIn"`
	MFARequired      bool        `json:"mfaRequired"`
	MFASetupRequired bool        `json:"mfaSetupRequired"`
	User             UserProfile `json:"user"`
}

// failureResponse is the upstream body for rejected calls.
type failureResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Login performs password authentication.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	return c.loginCall(ctx, "", loginPayload{Username: username, Password: password}, apperrors.KindInvalidCredentials)
}

// VerifyMFA confirms an MFA code for a pending login. The upstream reuses
// the login endpoint: the pending temp token rides as the bearer and the
// code travels in the payload.
func (c *Client) VerifyMFA(ctx context.Context, tempToken, code string) (LoginResult, error) {
	return c.loginCall(ctx, tempToken, loginPayload{MFACode: code}, apperrors.KindMFACodeInvalid)
}

func (c *Client) loginCall(ctx context.Context, bearer string, payload loginPayload, rejectKind apperrors.Kind) (LoginResult, error) {
	status, body, err := c.postJSON(ctx, pathLogin, bearer, payload)
	if err != nil {
		return LoginResult{}, fmt.Errorf("call upstream login: %w", err)
	}
	if status < 200 || status > 299 {
		kind, message := decodeFailure(status, body, rejectKind)
		return LoginResult{Status: status, FailureKind: kind, FailureMessage: message}, nil
	}

	var resp authResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return LoginResult{}, fmt.Errorf("decode upstream login response: %w", err)
	}

	result := LoginResult{
		Success:          true,
		Status:           status,
		AccessToken:      resp.AccessToken,
		TempToken:        resp.TempToken,
		MFARequired:      resp.MFARequired,
		MFASetupRequired: resp.MFASetupRequired,
		User:             resp.User,
	}
	if resp.AccessToken != "" {
		result.AccessExpiresAt = c.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	if resp.TempToken != "" {
		result.TempExpiresAt = c.now().Add(time.Duration(resp.TempExpiresIn) * time.Second)
	}
	return result, nil
}

// Refresh exchanges a still-valid access token for a fresh one.
func (c *Client) Refresh(ctx context.Context, accessToken string) (RefreshResult, error) {
	status, body, err := c.postJSON(ctx, pathRefresh, accessToken, nil)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("call upstream refresh: %w", err)
	}
	if status < 200 || status > 299 {
		kind, message := decodeFailure(status, body, apperrors.KindSessionExpired)
		return RefreshResult{Status: status, FailureKind: kind, FailureMessage: message}, nil
	}

	var resp authResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return RefreshResult{}, fmt.Errorf("decode upstream refresh response: %w", err)
	}
	return RefreshResult{
		Success:         true,
		Status:          status,
		AccessToken:     resp.AccessToken,
		AccessExpiresAt: c.now().Add(time.Duration(resp.ExpiresIn) * time.Second),
	}, nil
}

// Logout revokes the access token upstream. Revocation is best effort; the
// caller invalidates the local session regardless.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	status, body, err := c.postJSON(ctx, pathLogout, accessToken, nil)
	if err != nil {
		return fmt.Errorf("call upstream logout: %w", err)
	}
	if status < 200 || status > 299 {
		_, message := decodeFailure(status, body, apperrors.KindUnknown)
		return fmt.Errorf("upstream logout rejected: status %d: %s", status, message)
	}
	return nil
}

// CheckUser probes username availability.
func (c *Client) CheckUser(ctx context.Context, username string) (CheckUserResult, error) {
	status, body, err := c.postJSON(ctx, pathCheckUser, "", map[string]string{"username": username})
	if err != nil {
		return CheckUserResult{}, fmt.Errorf("call upstream check-user: %w", err)
	}
	if status < 200 || status > 299 {
		kind, message := decodeFailure(status, body, apperrors.KindValidation)
		return CheckUserResult{Status: status, FailureKind: kind, FailureMessage: message}, nil
	}

	var resp struct {
		Available bool `json:"available"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return CheckUserResult{}, fmt.Errorf("decode upstream check-user response: %w", err)
	}
	return CheckUserResult{Success: true, Status: status, Available: resp.Available}, nil
}

// Register creates an upstream user.
func (c *Client) Register(ctx context.Context, params RegisterParams) (RegisterResult, error) {
	status, body, err := c.postJSON(ctx, pathRegister, "", params)
	if err != nil {
		return RegisterResult{}, fmt.Errorf("call upstream register: %w", err)
	}
	if status < 200 || status > 299 {
		kind, message := decodeFailure(status, body, apperrors.KindValidation)
		return RegisterResult{Status: status, FailureKind: kind, FailureMessage: message}, nil
	}

	var resp struct {
		User UserProfile `json:"user"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return RegisterResult{}, fmt.Errorf("decode upstream register response: %w", err)
	}
	return RegisterResult{Success: true, Status: status, User: resp.User}, nil
}

// MFASetupInit begins MFA enrollment for a pending session.
func (c *Client) MFASetupInit(ctx context.Context, tempToken string) (MFASetupInitResult, error) {
	status, body, err := c.postJSON(ctx, pathMFASetupInit, tempToken, nil)
	if err != nil {
		return MFASetupInitResult{}, fmt.Errorf("call upstream mfa setup init: %w", err)
	}
	if status < 200 || status > 299 {
		kind, message := decodeFailure(status, body, apperrors.KindMFASetupRequired)
		return MFASetupInitResult{Status: status, FailureKind: kind, FailureMessage: message}, nil
	}

	var resp struct {
		Secret        string   `json:"secret"`
		OTPAuthURL    string   `json:"otpauthUrl"`
		RecoveryCodes []string `json:"recoveryCodes"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return MFASetupInitResult{}, fmt.Errorf("decode upstream mfa setup init response: %w", err)
	}
	return MFASetupInitResult{
		Success:       true,
		Status:        status,
		Secret:        resp.Secret,
		OTPAuthURL:    resp.OTPAuthURL,
		RecoveryCodes: resp.RecoveryCodes,
	}, nil
}

// MFASetupVerify confirms enrollment with a generated code and completes
// authentication.
func (c *Client) MFASetupVerify(ctx context.Context, tempToken, code string) (MFASetupVerifyResult, error) {
	status, body, err := c.postJSON(ctx, pathMFASetupVerify, tempToken, map[string]string{"mfaCode": code})
	if err != nil {
		return MFASetupVerifyResult{}, fmt.Errorf("call upstream mfa setup verify: %w", err)
	}
	if status < 200 || status > 299 {
		kind, message := decodeFailure(status, body, apperrors.KindMFACodeInvalid)
		return MFASetupVerifyResult{Status: status, FailureKind: kind, FailureMessage: message}, nil
	}

	var resp authResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return MFASetupVerifyResult{}, fmt.Errorf("decode upstream mfa setup verify response: %w", err)
	}
	return MFASetupVerifyResult{
		Success:         true,
		Status:          status,
		AccessToken:     resp.AccessToken,
		AccessExpiresAt: c.now().Add(time.Duration(resp.ExpiresIn) * time.Second),
	}, nil
}

// postJSON issues a POST with an optional bearer token and JSON payload and
// returns the status plus the (bounded) response body.
func (c *Client) postJSON(ctx context.Context, path, bearer string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request payload: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, apperrors.EK(
			apperrors.KindUpstreamUnavailable,
			"console.upstream.error_unavailable",
			fmt.Sprintf("upstream request failed: %v", err),
		)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, apperrors.EK(
			apperrors.KindUpstreamUnavailable,
			"console.upstream.error_unavailable",
			fmt.Sprintf("read upstream response: %v", err),
		)
	}
	return resp.StatusCode, data, nil
}

// decodeFailure maps a non-2xx upstream body onto the failure taxonomy. The
// upstream code string wins; the HTTP status decides the fallback.
func decodeFailure(status int, body []byte, fallback apperrors.Kind) (apperrors.Kind, string) {
	var failure failureResponse
	_ = json.Unmarshal(body, &failure)

	message := strings.TrimSpace(failure.Error)
	if message == "" {
		message = http.StatusText(status)
	}

	switch strings.TrimSpace(failure.Code) {
	case "invalid_credentials":
		return apperrors.KindInvalidCredentials, message
	case "mfa_code_invalid":
		return apperrors.KindMFACodeInvalid, message
	case "session_expired", "token_expired":
		return apperrors.KindSessionExpired, message
	case "validation":
		return apperrors.KindValidation, message
	}

	switch {
	case status == http.StatusBadRequest:
		return apperrors.KindValidation, message
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return fallback, message
	case status >= http.StatusInternalServerError:
		return apperrors.KindUpstreamUnavailable, message
	default:
		return fallback, message
	}
}
