package handlers

import (
	"net/http"
	"time"

	"github.com/hashbeam/cidhub/pkg/store"
)

// HealthHandler serves liveness probes.
type HealthHandler struct {
	store *store.GORMStore
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(s *store.GORMStore) *HealthHandler {
	return &HealthHandler{store: s}
}

// HealthResponse is the liveness probe body.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Liveness handles GET /healthz. The database round-trip catches a wedged
// connection pool before the orchestrator does.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	db, err := h.store.DB().DB()
	if err == nil {
		err = db.PingContext(r.Context())
	}
	if err != nil {
		WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:    "unhealthy",
			Timestamp: time.Now().UTC(),
		})
		return
	}
	WriteJSONOK(w, HealthResponse{Status: "healthy", Timestamp: time.Now().UTC()})
}
