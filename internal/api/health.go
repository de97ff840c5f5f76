package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// CatalogStatus reports dataset cache state.
type CatalogStatus interface {
	Len() int
	IsReady() bool
}

// Pinger checks a backing database.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	catalog CatalogStatus
	db      Pinger
	timeout time.Duration
}

// NewHealthHandler creates a health handler. db may be nil.
func NewHealthHandler(catalog CatalogStatus, db Pinger) *HealthHandler {
	return &HealthHandler{catalog: catalog, db: db, timeout: 5 * time.Second}
}

// Health reports liveness and the number of cached datasets. It always
// answers 200; dependency problems show up as "degraded".
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"api": "ok"}
	status := "ok"

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			slog.Error("Health check failed", "error", err)
			status = "degraded"
			checks["database"] = "unreachable"
		} else {
			checks["database"] = "ok"
		}
	}

	JSON(w, http.StatusOK, map[string]any{
		"status":          status,
		"datasets_loaded": h.catalog.Len(),
		"catalog_ready":   h.catalog.IsReady(),
		"checks":          checks,
	})
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
}
