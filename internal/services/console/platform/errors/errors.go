// Package errors defines console typed application errors.
package errors

import (
	stderrors "errors"
	"net/http"
	"strings"
)

// Kind classifies application failures for consistent HTTP mapping.
type Kind string

const (
	KindUnknown             Kind = "unknown"
	KindValidation          Kind = "validation"
	KindInvalidCredentials  Kind = "invalid_credentials"
	KindMFARequired         Kind = "mfa_required"
	KindMFASetupRequired    Kind = "mfa_setup_required"
	KindMFACodeInvalid      Kind = "mfa_code_invalid"
	KindSessionExpired      Kind = "session_expired"
	KindSessionNotFound     Kind = "session_not_found"
	KindUnsupportedEndpoint Kind = "unsupported_endpoint"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
)

// Error is a typed console application failure.
type Error struct {
	Kind    Kind
	Key     string
	Message string
}

// Error renders the human-readable message.
func (e Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

// E builds a typed Error.
func E(kind Kind, message string) error {
	return Error{Kind: kind, Message: message}
}

// EK builds a typed Error with a localization key.
func EK(kind Kind, key string, message string) error {
	return Error{Kind: kind, Key: strings.TrimSpace(key), Message: message}
}

// KindOf extracts the failure kind so callers can pattern-match on normal
// failure paths without unwrapping. Untyped errors report KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr Error
	if !stderrors.As(err, &appErr) {
		return KindUnknown
	}
	if appErr.Kind == "" {
		return KindUnknown
	}
	return appErr.Kind
}

// LocalizationKey returns the structured localization key when available.
func LocalizationKey(err error) string {
	if err == nil {
		return ""
	}
	var appErr Error
	if !stderrors.As(err, &appErr) {
		return ""
	}
	return strings.TrimSpace(appErr.Key)
}

// HTTPStatus maps an error to an HTTP status code.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindInvalidCredentials, KindMFARequired, KindMFASetupRequired,
		KindMFACodeInvalid, KindSessionExpired, KindSessionNotFound:
		return http.StatusUnauthorized
	case KindUnsupportedEndpoint:
		return http.StatusNotFound
	case KindUpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
