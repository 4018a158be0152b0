package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-chi/render"

	httpapi "github.com/yourorg/listing-api/http"
	"github.com/yourorg/listing-api/internal/listings"
	"github.com/yourorg/listing-api/internal/logger"
	"github.com/yourorg/listing-api/internal/metrics"
)

type RouterDeps struct {
	Service         *listings.Service
	Logger          *slog.Logger
	RateLimitPerMin int
	MaxUploadBytes  int64
}

func BuildRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(logger.Middleware(d.Logger))
	r.Use(metrics.Middleware)

	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		if d.RateLimitPerMin > 0 {
			r.Use(httprate.LimitByIP(d.RateLimitPerMin, 1*time.Minute))
		}
		r.Use(render.SetContentType(render.ContentTypeJSON))

		httpapi.RegisterHealth(r, httpapi.HealthDeps{Ping: d.Service.Ping})
		httpapi.RegisterSearch(r, httpapi.SearchDeps{Service: d.Service})
		httpapi.RegisterListings(r, httpapi.ListingsDeps{Service: d.Service, MaxUploadBytes: d.MaxUploadBytes})
		httpapi.RegisterPhotos(r, httpapi.PhotosDeps{Service: d.Service, MaxUploadBytes: d.MaxUploadBytes})
	})
	return r
}
