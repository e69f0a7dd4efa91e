package api

import (
	"net/http"
)

type RefreshResponse struct {
	OK bool `json:"ok"`
}

// Refresh handles POST /api/admin/refresh. It forces a snapshot rebuild
// outside the periodic cadence; the route requires authentication.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.warmer.Warmup(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, "refresh failed: upstream unavailable")
		return
	}
	writeJSON(w, http.StatusOK, RefreshResponse{OK: true})
}
