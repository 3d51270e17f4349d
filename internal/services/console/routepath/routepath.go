// Package routepath centralizes console route constants so handlers,
// registration, and tests never drift on raw strings.
package routepath

const (
	Root    = "/"
	Login   = "/login"
	Healthz = "/healthz"
)

const (
	AuthLogin     = "/auth/login"
	AuthMFA       = "/auth/mfa"
	AuthLogout    = "/auth/logout"
	AuthRegister  = "/auth/register"
	AuthCheckUser = "/auth/check-user"
	AuthSession   = "/auth/session"
)

const (
	APIProxy = "/api/proxy"
)

const (
	Users          = "/users"
	Sites          = "/sites"
	OrdersPayment  = "/orders/payment"
	OrdersWithdraw = "/orders/withdraw"
	Banks          = "/banks"
	Audit          = "/audit"
)
