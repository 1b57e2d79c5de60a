package handler

import (
	"context"
	"net/http"
	"time"
)

type pinger interface {
	Health(ctx context.Context) error
}

type HealthHandler struct {
	store pinger
}

// NewHealthHandler reports on store when it is non-nil; the in-memory
// driver has nothing to ping.
func NewHealthHandler(store pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok", "storage": "memory"}

	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status["storage"] = "postgres"
		if err := h.store.Health(ctx); err != nil {
			status["status"] = "degraded"
			writeSuccess(w, http.StatusServiceUnavailable, status)
			return
		}
	}

	writeSuccess(w, http.StatusOK, status)
}
