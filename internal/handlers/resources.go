package handlers

import (
	"net/http"

	"github.com/AnshRaj112/safeharbor-backend/internal/library"
)

type resourcesResponse struct {
	Success   bool               `json:"success"`
	Resources []library.Resource `json:"resources"`
}

// ListResources handles GET /api/resources?category=&type=. Public.
func (h *Handler) ListResources(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, resourcesResponse{
		Success:   true,
		Resources: h.Library.FilterResources(q.Get("category"), q.Get("type")),
	})
}
