package audit

import (
	"net/http"

	routepath "github.com/louisbranch/paydeck/internal/services/console/routepath"
)

// Service defines audit route handlers consumed by this route module.
type Service interface {
	HandleAuditData(w http.ResponseWriter, r *http.Request)
}

// RegisterRoutes wires audit routes into the provided mux.
func RegisterRoutes(mux *http.ServeMux, service Service) {
	if mux == nil || service == nil {
		return
	}
	mux.HandleFunc(routepath.Audit, service.HandleAuditData)
}
