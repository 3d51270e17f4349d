package i18n

import (
	"testing"

	"golang.org/x/text/language"

	apperrors "github.com/louisbranch/paydeck/internal/services/console/platform/errors"
)

func TestAuthReturnsPortugueseCopyForPTBR(t *testing.T) {
	t.Parallel()

	copy := Auth(language.MustParse("pt-BR"))
	if copy.InvalidCredentials != "Usuário ou senha inválidos." {
		t.Fatalf("InvalidCredentials = %q", copy.InvalidCredentials)
	}
	if copy.MFACodeInvalid != "Código de verificação inválido." {
		t.Fatalf("MFACodeInvalid = %q", copy.MFACodeInvalid)
	}
}

func TestAuthReturnsPortugueseCopyForPortugueseBaseLanguage(t *testing.T) {
	t.Parallel()

	copy := Auth(language.MustParse("pt-PT"))
	if copy.SessionExpired != "Sua sessão expirou. Faça login novamente." {
		t.Fatalf("SessionExpired = %q", copy.SessionExpired)
	}
}

func TestAuthFallsBackToEnglishForNonPortugueseLanguage(t *testing.T) {
	t.Parallel()

	copy := Auth(language.MustParse("fr"))
	if copy.InvalidCredentials != "Invalid username or password." {
		t.Fatalf("InvalidCredentials = %q", copy.InvalidCredentials)
	}
	if copy.AuthRequired != "Authentication required." {
		t.Fatalf("AuthRequired = %q", copy.AuthRequired)
	}
}

func TestMatchTagResolvesAcceptLanguageHeader(t *testing.T) {
	t.Parallel()

	if got := MatchTag("pt-BR,pt;q=0.9,en;q=0.8"); got != language.MustParse("pt-BR") {
		t.Fatalf("MatchTag(pt-BR) = %v", got)
	}
	if got := MatchTag(""); got != language.MustParse("en-US") {
		t.Fatalf("MatchTag(empty) = %v", got)
	}
	if got := MatchTag("de-DE"); got != language.MustParse("en-US") {
		t.Fatalf("MatchTag(de-DE) = %v", got)
	}
}

func TestPublicMessageIsGenericForCredentialFailures(t *testing.T) {
	t.Parallel()

	tag := language.MustParse("en-US")
	err := apperrors.E(apperrors.KindInvalidCredentials, "user bob not found")
	got := PublicMessage(tag, err)
	if got != "Invalid username or password." {
		t.Fatalf("PublicMessage = %q", got)
	}
	// The public copy must never echo upstream specifics.
	if got == err.Error() {
		t.Fatal("public message leaked internal error text")
	}
}

func TestPublicMessageMapsKinds(t *testing.T) {
	t.Parallel()

	tag := language.MustParse("en-US")
	tests := []struct {
		name string
		kind apperrors.Kind
		want string
	}{
		{name: "session expired", kind: apperrors.KindSessionExpired, want: "Your session has expired. Please sign in again."},
		{name: "session not found", kind: apperrors.KindSessionNotFound, want: "Your session has expired. Please sign in again."},
		{name: "unsupported endpoint", kind: apperrors.KindUnsupportedEndpoint, want: "Unsupported endpoint."},
		{name: "upstream unavailable", kind: apperrors.KindUpstreamUnavailable, want: "Service temporarily unavailable. Try again shortly."},
		{name: "validation", kind: apperrors.KindValidation, want: "Invalid request."},
		{name: "unknown", kind: apperrors.KindUnknown, want: "Something went wrong. Try again."},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := PublicMessage(tag, apperrors.E(tc.kind, "internal detail")); got != tc.want {
				t.Fatalf("PublicMessage(%s) = %q, want %q", tc.kind, got, tc.want)
			}
		})
	}
}
