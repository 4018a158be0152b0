package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/listing-api/internal/logger"
)

type HealthDeps struct {
	Ping func(ctx context.Context) error
}

func RegisterHealth(r chi.Router, d HealthDeps) {
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if d.Ping != nil {
			if err := d.Ping(ctx); err != nil {
				logger.FromContext(ctx).Warn("health check failed", "err", err)
				writeError(w, req, http.StatusServiceUnavailable, "store_unavailable", err.Error())
				return
			}
		}
		render.JSON(w, req, map[string]any{"ok": true})
	})
}
