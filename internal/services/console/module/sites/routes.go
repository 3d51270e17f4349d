package sites

import (
	"net/http"

	routepath "github.com/louisbranch/paydeck/internal/services/console/routepath"
)

// Service defines merchant site route handlers consumed by this route module.
type Service interface {
	HandleSitesData(w http.ResponseWriter, r *http.Request)
}

// RegisterRoutes wires site routes into the provided mux.
func RegisterRoutes(mux *http.ServeMux, service Service) {
	if mux == nil || service == nil {
		return
	}
	mux.HandleFunc(routepath.Sites, service.HandleSitesData)
}
