package orders

import (
	"net/http"

	routepath "github.com/louisbranch/paydeck/internal/services/console/routepath"
)

// Service defines order route handlers consumed by this route module.
type Service interface {
	HandlePaymentOrdersData(w http.ResponseWriter, r *http.Request)
	HandleWithdrawOrdersData(w http.ResponseWriter, r *http.Request)
}

// RegisterRoutes wires order routes into the provided mux.
func RegisterRoutes(mux *http.ServeMux, service Service) {
	if mux == nil || service == nil {
		return
	}
	mux.HandleFunc(routepath.OrdersPayment, service.HandlePaymentOrdersData)
	mux.HandleFunc(routepath.OrdersWithdraw, service.HandleWithdrawOrdersData)
}
