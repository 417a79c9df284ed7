package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hongminglow/cabinet-be/internal/http/respond"
)

// HealthHandler returns uptime and basic status.
type HealthHandler struct {
	startedAt time.Time
	now       func() time.Time
}

// NewHealthHandler creates a health endpoint handler.
func NewHealthHandler(startedAt time.Time) *HealthHandler {
	return &HealthHandler{startedAt: startedAt, now: time.Now}
}

// Register wires the handler into a router.
func (h *HealthHandler) Register(r chi.Router) {
	r.Get("/health", h.handle)
}

func (h *HealthHandler) handle(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, "ok", map[string]string{
		"status": "ok",
		"uptime": h.now().Sub(h.startedAt).Truncate(time.Second).String(),
	})
}
