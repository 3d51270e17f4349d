// Package i18n provides localized, user-safe copy for console responses.
// Auth failure copy is deliberately generic: the same message covers unknown
// users and wrong passwords so responses never confirm account existence.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	apperrors "github.com/louisbranch/paydeck/internal/services/console/platform/errors"
)

var supportedTags = []language.Tag{
	language.MustParse("en-US"),
	language.MustParse("pt-BR"),
}

var matcher = language.NewMatcher(supportedTags)

func init() {
	registerLocale(language.MustParse("pt-BR"), map[string]string{
		"console.auth.error_invalid_credentials": "Usuário ou senha inválidos.",
		"console.auth.error_mfa_code_invalid":    "Código de verificação inválido.",
		"console.auth.error_session_expired":     "Sua sessão expirou. Faça login novamente.",
		"console.auth.error_authentication":      "Autenticação necessária.",
		"console.proxy.error_unsupported":        "Operação não suportada.",
		"console.upstream.error_unavailable":     "Serviço temporariamente indisponível. Tente novamente.",
		"console.request.error_validation":       "Requisição inválida.",
		"console.error_internal":                 "Algo deu errado. Tente novamente.",
	})
}

func registerLocale(tag language.Tag, messages map[string]string) {
	for key, value := range messages {
		_ = message.SetString(tag, key, value)
	}
}

// AuthCopy holds translatable copy for console auth and proxy responses.
type AuthCopy struct {
	InvalidCredentials  string
	MFACodeInvalid      string
	SessionExpired      string
	AuthRequired        string
	Unsupported         string
	UpstreamUnavailable string
	InvalidRequest      string
	Internal            string
}

// Auth returns localized response copy for the provided language tag.
func Auth(tag language.Tag) AuthCopy {
	loc := message.NewPrinter(normalizeTag(tag))

	return AuthCopy{
		InvalidCredentials:  localizeWithFallback(loc, "console.auth.error_invalid_credentials", "Invalid username or password."),
		MFACodeInvalid:      localizeWithFallback(loc, "console.auth.error_mfa_code_invalid", "Invalid verification code."),
		SessionExpired:      localizeWithFallback(loc, "console.auth.error_session_expired", "Your session has expired. Please sign in again."),
		AuthRequired:        localizeWithFallback(loc, "console.auth.error_authentication", "Authentication required."),
		Unsupported:         localizeWithFallback(loc, "console.proxy.error_unsupported", "Unsupported endpoint."),
		UpstreamUnavailable: localizeWithFallback(loc, "console.upstream.error_unavailable", "Service temporarily unavailable. Try again shortly."),
		InvalidRequest:      localizeWithFallback(loc, "console.request.error_validation", "Invalid request."),
		Internal:            localizeWithFallback(loc, "console.error_internal", "Something went wrong. Try again."),
	}
}

// MatchTag resolves the best supported tag for an Accept-Language header.
func MatchTag(acceptLanguage string) language.Tag {
	trimmed := strings.TrimSpace(acceptLanguage)
	if trimmed == "" {
		return supportedTags[0]
	}
	tag, _ := language.MatchStrings(matcher, trimmed)
	return normalizeTag(tag)
}

// PublicMessage resolves a user-safe localized message for an application error.
func PublicMessage(tag language.Tag, err error) string {
	copy := Auth(tag)
	switch apperrors.KindOf(err) {
	case apperrors.KindInvalidCredentials:
		return copy.InvalidCredentials
	case apperrors.KindMFACodeInvalid:
		return copy.MFACodeInvalid
	case apperrors.KindSessionExpired, apperrors.KindSessionNotFound:
		return copy.SessionExpired
	case apperrors.KindMFARequired, apperrors.KindMFASetupRequired:
		return copy.AuthRequired
	case apperrors.KindUnsupportedEndpoint:
		return copy.Unsupported
	case apperrors.KindUpstreamUnavailable:
		return copy.UpstreamUnavailable
	case apperrors.KindValidation:
		return copy.InvalidRequest
	default:
		return copy.Internal
	}
}

func normalizeTag(tag language.Tag) language.Tag {
	base, _ := tag.Base()
	portugueseBase, _ := language.Portuguese.Base()
	if base == portugueseBase {
		return language.MustParse("pt-BR")
	}
	return language.MustParse("en-US")
}

func localizeWithFallback(loc *message.Printer, key string, fallback string, args ...any) string {
	if loc != nil {
		value := strings.TrimSpace(loc.Sprintf(key, args...))
		if value != "" && value != key {
			return value
		}
	}
	return fallback
}
