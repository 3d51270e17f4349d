package banks

import (
	"net/http"

	routepath "github.com/louisbranch/paydeck/internal/services/console/routepath"
)

// Service defines bank route handlers consumed by this route module.
type Service interface {
	HandleBanksData(w http.ResponseWriter, r *http.Request)
}

// RegisterRoutes wires bank routes into the provided mux.
func RegisterRoutes(mux *http.ServeMux, service Service) {
	if mux == nil || service == nil {
		return
	}
	mux.HandleFunc(routepath.Banks, service.HandleBanksData)
}
