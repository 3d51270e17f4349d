package users

import (
	"net/http"

	routepath "github.com/louisbranch/paydeck/internal/services/console/routepath"
)

// Service defines user route handlers consumed by this route module.
type Service interface {
	HandleUsersData(w http.ResponseWriter, r *http.Request)
}

// RegisterRoutes wires user routes into the provided mux.
func RegisterRoutes(mux *http.ServeMux, service Service) {
	if mux == nil || service == nil {
		return
	}
	mux.HandleFunc(routepath.Users, service.HandleUsersData)
}
