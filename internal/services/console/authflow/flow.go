// Package authflow drives the console's authentication state machine. Every
// browser session is in exactly one of four states; transitions happen only
// on successful upstream calls, so a failed password or MFA code never
// mutates session state.
package authflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	apperrors "github.com/louisbranch/paydeck/internal/services/console/platform/errors"
	"github.com/louisbranch/paydeck/internal/services/console/session"
	"github.com/louisbranch/paydeck/internal/services/console/upstream"
)

// State is the authentication state of one browser session.
type State string

const (
	StateUnauthenticated  State = "unauthenticated"
	StateMFARequired      State = "mfa_required"
	StateMFASetupRequired State = "mfa_setup_required"
	StateAuthenticated    State = "authenticated"
)

// Audit action names recorded for authentication events.
const (
	ActionLogin       = "auth.login"
	ActionLoginDenied = "auth.login_denied"
	ActionMFAVerified = "auth.mfa_verified"
	ActionMFADenied   = "auth.mfa_denied"
	ActionMFAEnrolled = "auth.mfa_enrolled"
	ActionLogout      = "auth.logout"
	ActionRegister    = "auth.register"
)

// MFAAction is one step of the MFA flow. Handlers build the concrete action
// from the request and SubmitMFA dispatches on its type.
type MFAAction interface {
	mfaAction()
}

// Initiate begins authenticator enrollment for a setup-pending session.
type Initiate struct{}

// Enable confirms enrollment with a code from the new authenticator.
type Enable struct {
	Code string
}

// Verify checks a code from an already-enrolled authenticator.
type Verify struct {
	Code string
}

func (Initiate) mfaAction() {}
func (Enable) mfaAction()   {}
func (Verify) mfaAction()   {}

// SessionStore is the slice of the session store the flow needs.
type SessionStore interface {
	Create(userID, username, accessToken string, expiry time.Time) (string, error)
	CreatePending(userID, username, tempToken string, expiry time.Time, kind session.PendingKind) (string, error)
	Upgrade(sessionID, accessToken string, expiry time.Time) error
	Get(sessionID string) (session.Record, bool)
	Token(sessionID string) (string, bool)
	Invalidate(sessionID string)
}

// Upstream is the slice of the upstream client the flow needs.
type Upstream interface {
	Login(ctx context.Context, username, password string) (upstream.LoginResult, error)
	VerifyMFA(ctx context.Context, tempToken, code string) (upstream.LoginResult, error)
	MFASetupInit(ctx context.Context, tempToken string) (upstream.MFASetupInitResult, error)
	MFASetupVerify(ctx context.Context, tempToken, code string) (upstream.MFASetupVerifyResult, error)
	Logout(ctx context.Context, accessToken string) error
	Register(ctx context.Context, params upstream.RegisterParams) (upstream.RegisterResult, error)
	CheckUser(ctx context.Context, username string) (upstream.CheckUserResult, error)
}

// Auditor records authentication events. A nil auditor disables recording.
type Auditor interface {
	Record(ctx context.Context, action, actor, detail string)
}

// Config wires the flow's collaborators.
type Config struct {
	Store    SessionStore
	Upstream Upstream
	Auditor  Auditor
	// Now is injected for state derivation in tests.
	Now func() time.Time
}

// Flow owns the transitions between authentication states.
type Flow struct {
	store    SessionStore
	upstream Upstream
	auditor  Auditor
	now      func() time.Time
}

// NewFlow creates an authentication flow.
func NewFlow(cfg Config) (*Flow, error) {
	if cfg.Store == nil {
		return nil, errors.New("session store is required")
	}
	if cfg.Upstream == nil {
		return nil, errors.New("upstream client is required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Flow{
		store:    cfg.Store,
		upstream: cfg.Upstream,
		auditor:  cfg.Auditor,
		now:      now,
	}, nil
}

// LoginOutcome reports where a successful password check landed. SessionID
// identifies the new session; State says whether an MFA step still gates
// full authentication.
type LoginOutcome struct {
	SessionID string
	State     State
	User      upstream.UserProfile
}

// Login checks credentials upstream and creates the matching session. A
// rejected password returns a taxonomy error and leaves the store untouched.
func (f *Flow) Login(ctx context.Context, username, password string) (LoginOutcome, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return LoginOutcome{}, apperrors.E(apperrors.KindValidation, "username and password are required")
	}

	result, err := f.upstream.Login(ctx, username, password)
	if err != nil {
		return LoginOutcome{}, err
	}
	if !result.Success {
		f.record(ctx, ActionLoginDenied, username, result.FailureMessage)
		return LoginOutcome{}, apperrors.E(result.FailureKind, result.FailureMessage)
	}

	switch {
	case result.MFASetupRequired:
		id, err := f.store.CreatePending(result.User.ID, username, result.TempToken, result.TempExpiresAt, session.PendingSetup)
		if err != nil {
			return LoginOutcome{}, fmt.Errorf("create pending session: %w", err)
		}
		return LoginOutcome{SessionID: id, State: StateMFASetupRequired, User: result.User}, nil
	case result.MFARequired:
		id, err := f.store.CreatePending(result.User.ID, username, result.TempToken, result.TempExpiresAt, session.PendingVerify)
		if err != nil {
			return LoginOutcome{}, fmt.Errorf("create pending session: %w", err)
		}
		return LoginOutcome{SessionID: id, State: StateMFARequired, User: result.User}, nil
	default:
		id, err := f.store.Create(result.User.ID, username, result.AccessToken, result.AccessExpiresAt)
		if err != nil {
			return LoginOutcome{}, fmt.Errorf("create session: %w", err)
		}
		f.record(ctx, ActionLogin, username, "")
		return LoginOutcome{SessionID: id, State: StateAuthenticated, User: result.User}, nil
	}
}

// Enrollment carries the secret material issued when MFA setup starts. It is
// relayed to the browser once and never stored.
type Enrollment struct {
	Secret        string
	OTPAuthURL    string
	RecoveryCodes []string
}

// MFAOutcome reports the session state after an MFA action. Enrollment is
// set only for Initiate.
type MFAOutcome struct {
	State      State
	Enrollment *Enrollment
}

// SubmitMFA applies one MFA action to a pending session. Actions are only
// legal in their matching state: Verify needs a verify-pending session,
// Initiate and Enable need a setup-pending one. A wrong or expired code
// leaves the session pending.
func (f *Flow) SubmitMFA(ctx context.Context, sessionID string, action MFAAction) (MFAOutcome, error) {
	rec, ok := f.store.Get(sessionID)
	if !ok {
		return MFAOutcome{}, apperrors.E(apperrors.KindSessionNotFound, "session not found")
	}
	if !rec.LivePending(f.now()) {
		return MFAOutcome{}, apperrors.E(apperrors.KindSessionExpired, "pending session expired")
	}

	switch a := action.(type) {
	case Initiate:
		if rec.Pending != session.PendingSetup {
			return MFAOutcome{}, apperrors.E(apperrors.KindValidation, "no MFA enrollment pending")
		}
		result, err := f.upstream.MFASetupInit(ctx, rec.TempToken)
		if err != nil {
			return MFAOutcome{}, err
		}
		if !result.Success {
			return MFAOutcome{}, apperrors.E(result.FailureKind, result.FailureMessage)
		}
		return MFAOutcome{
			State: StateMFASetupRequired,
			Enrollment: &Enrollment{
				Secret:        result.Secret,
				OTPAuthURL:    result.OTPAuthURL,
				RecoveryCodes: result.RecoveryCodes,
			},
		}, nil

	case Enable:
		if rec.Pending != session.PendingSetup {
			return MFAOutcome{}, apperrors.E(apperrors.KindValidation, "no MFA enrollment pending")
		}
		code := strings.TrimSpace(a.Code)
		if code == "" {
			return MFAOutcome{}, apperrors.E(apperrors.KindValidation, "verification code is required")
		}
		result, err := f.upstream.MFASetupVerify(ctx, rec.TempToken, code)
		if err != nil {
			return MFAOutcome{}, err
		}
		if !result.Success {
			f.record(ctx, ActionMFADenied, rec.Username, result.FailureMessage)
			return MFAOutcome{}, apperrors.E(result.FailureKind, result.FailureMessage)
		}
		if err := f.store.Upgrade(sessionID, result.AccessToken, result.AccessExpiresAt); err != nil {
			return MFAOutcome{}, f.upgradeError(err)
		}
		f.record(ctx, ActionMFAEnrolled, rec.Username, "")
		return MFAOutcome{State: StateAuthenticated}, nil

	case Verify:
		if rec.Pending != session.PendingVerify {
			return MFAOutcome{}, apperrors.E(apperrors.KindValidation, "no MFA verification pending")
		}
		code := strings.TrimSpace(a.Code)
		if code == "" {
			return MFAOutcome{}, apperrors.E(apperrors.KindValidation, "verification code is required")
		}
		result, err := f.upstream.VerifyMFA(ctx, rec.TempToken, code)
		if err != nil {
			return MFAOutcome{}, err
		}
		if !result.Success {
			f.record(ctx, ActionMFADenied, rec.Username, result.FailureMessage)
			return MFAOutcome{}, apperrors.E(result.FailureKind, result.FailureMessage)
		}
		if err := f.store.Upgrade(sessionID, result.AccessToken, result.AccessExpiresAt); err != nil {
			return MFAOutcome{}, f.upgradeError(err)
		}
		f.record(ctx, ActionMFAVerified, rec.Username, "")
		return MFAOutcome{State: StateAuthenticated}, nil

	default:
		return MFAOutcome{}, apperrors.E(apperrors.KindValidation, "unsupported MFA action")
	}
}

// upgradeError maps a store upgrade failure onto the taxonomy. The session
// can vanish between the state check and the upgrade when a sweep or logout
// races the MFA submission.
func (f *Flow) upgradeError(err error) error {
	if errors.Is(err, session.ErrNotFound) {
		return apperrors.E(apperrors.KindSessionNotFound, "session not found")
	}
	return fmt.Errorf("upgrade session: %w", err)
}

// Logout invalidates the session and revokes the upstream token when one is
// still live. Revocation failures are logged, not returned; the local
// session dies either way.
func (f *Flow) Logout(ctx context.Context, sessionID string) {
	rec, ok := f.store.Get(sessionID)
	if !ok {
		return
	}
	if token, live := f.store.Token(sessionID); live {
		if err := f.upstream.Logout(ctx, token); err != nil {
			log.Printf("upstream logout for session of %q: %v", rec.Username, err)
		}
	}
	f.store.Invalidate(sessionID)
	f.record(ctx, ActionLogout, rec.Username, "")
}

// StateOf derives the authentication state from a record's token fields at
// now. State is never stored; it is always recomputed from the record.
func StateOf(rec session.Record, now time.Time) State {
	switch {
	case rec.LiveAccess(now):
		return StateAuthenticated
	case rec.LivePending(now) && rec.Pending == session.PendingSetup:
		return StateMFASetupRequired
	case rec.LivePending(now):
		return StateMFARequired
	default:
		return StateUnauthenticated
	}
}

// SessionState derives the authentication state for a session id. Missing
// and fully-expired sessions both read as unauthenticated.
func (f *Flow) SessionState(sessionID string) (State, session.Record) {
	rec, ok := f.store.Get(sessionID)
	if !ok {
		return StateUnauthenticated, session.Record{}
	}
	return StateOf(rec, f.now()), rec
}

// Register creates an upstream user. No session is created; the caller still
// signs in afterwards.
func (f *Flow) Register(ctx context.Context, params upstream.RegisterParams) (upstream.UserProfile, error) {
	params.Username = strings.TrimSpace(params.Username)
	if params.Username == "" || params.Password == "" {
		return upstream.UserProfile{}, apperrors.E(apperrors.KindValidation, "username and password are required")
	}

	result, err := f.upstream.Register(ctx, params)
	if err != nil {
		return upstream.UserProfile{}, err
	}
	if !result.Success {
		return upstream.UserProfile{}, apperrors.E(result.FailureKind, result.FailureMessage)
	}
	f.record(ctx, ActionRegister, params.Username, "")
	return result.User, nil
}

// CheckUser reports username availability.
func (f *Flow) CheckUser(ctx context.Context, username string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return false, apperrors.E(apperrors.KindValidation, "username is required")
	}

	result, err := f.upstream.CheckUser(ctx, username)
	if err != nil {
		return false, err
	}
	if !result.Success {
		return false, apperrors.E(result.FailureKind, result.FailureMessage)
	}
	return result.Available, nil
}

func (f *Flow) record(ctx context.Context, action, actor, detail string) {
	if f.auditor == nil {
		return
	}
	f.auditor.Record(ctx, action, actor, detail)
}
