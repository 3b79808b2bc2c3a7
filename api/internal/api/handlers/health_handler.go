package handlers

import (
	"io/fs"
	"net/http"
)

// StorageProbe is the slice of the report store the health check needs.
type StorageProbe interface {
	DirMode() (fs.FileMode, error)
}

type HealthHandler struct {
	store    StorageProbe
	wantMode fs.FileMode
}

func NewHealthHandler(store StorageProbe, wantMode fs.FileMode) *HealthHandler {
	return &HealthHandler{store: store, wantMode: wantMode}
}

type healthResponse struct {
	Status      string `json:"status"`
	Storage     string `json:"storage"`
	Permissions string `json:"permissions"`
}

// Check handles GET /health. It reports posture only, never paths or secrets.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	mode, err := h.store.DirMode()
	if err != nil {
		// 🚨 FAIL: the report store is unreachable
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unhealthy", Storage: "unreachable", Permissions: "unknown"})
		return
	}

	resp := healthResponse{Status: "healthy", Storage: "ok", Permissions: "ok"}
	if mode != h.wantMode {
		resp.Status = "degraded"
		resp.Permissions = "drifted"
	}
	writeJSON(w, http.StatusOK, resp)
}
