package routepath

import "testing"

func TestAuthRoutes(t *testing.T) {
	t.Parallel()

	if AuthLogin != "/auth/login" {
		t.Fatalf("AuthLogin = %q", AuthLogin)
	}
	if AuthMFA != "/auth/mfa" {
		t.Fatalf("AuthMFA = %q", AuthMFA)
	}
	if AuthLogout != "/auth/logout" {
		t.Fatalf("AuthLogout = %q", AuthLogout)
	}
	if AuthRegister != "/auth/register" {
		t.Fatalf("AuthRegister = %q", AuthRegister)
	}
	if AuthCheckUser != "/auth/check-user" {
		t.Fatalf("AuthCheckUser = %q", AuthCheckUser)
	}
	if AuthSession != "/auth/session" {
		t.Fatalf("AuthSession = %q", AuthSession)
	}
}

func TestDataRoutes(t *testing.T) {
	t.Parallel()

	if APIProxy != "/api/proxy" {
		t.Fatalf("APIProxy = %q", APIProxy)
	}
	if Users != "/users" {
		t.Fatalf("Users = %q", Users)
	}
	if Sites != "/sites" {
		t.Fatalf("Sites = %q", Sites)
	}
	if OrdersPayment != "/orders/payment" {
		t.Fatalf("OrdersPayment = %q", OrdersPayment)
	}
	if OrdersWithdraw != "/orders/withdraw" {
		t.Fatalf("OrdersWithdraw = %q", OrdersWithdraw)
	}
	if Banks != "/banks" {
		t.Fatalf("Banks = %q", Banks)
	}
	if Audit != "/audit" {
		t.Fatalf("Audit = %q", Audit)
	}
	if Login != "/login" {
		t.Fatalf("Login = %q", Login)
	}
	if Healthz != "/healthz" {
		t.Fatalf("Healthz = %q", Healthz)
	}
}
