package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "listing_api_http_requests_total",
		Help: "HTTP requests by route pattern, method and status.",
	}, []string{"route", "method", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "listing_api_http_request_duration_seconds",
		Help:    "HTTP request latency by route pattern.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	storeOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "listing_api_store_operations_total",
		Help: "Property store operations by kind and outcome.",
	}, []string{"op", "outcome"})

	codecDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "listing_api_image_codec_duration_seconds",
		Help:    "Image encode/decode latency by format and outcome.",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"op", "format", "outcome"})

	searchResults = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "listing_api_search_results",
		Help:    "Unique listings returned per search.",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 1000},
	})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "listing_api_search_cache_lookups_total",
		Help: "Search cache lookups by result.",
	}, []string{"result"})
)

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// StoreOp counts one store operation. ok=false with a nil error is a miss.
func StoreOp(op string, ok bool, err error) {
	switch {
	case err != nil:
		storeOps.WithLabelValues(op, "error").Inc()
	case !ok:
		storeOps.WithLabelValues(op, "miss").Inc()
	default:
		storeOps.WithLabelValues(op, "ok").Inc()
	}
}

// Codec records one image codec call started at start.
func Codec(op, format string, start time.Time, err error) {
	codecDuration.WithLabelValues(op, format, outcome(err)).Observe(time.Since(start).Seconds())
}

func SearchResults(n int) { searchResults.Observe(float64(n)) }

func CacheLookup(hit bool) {
	if hit {
		cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	cacheLookups.WithLabelValues("miss").Inc()
}

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }

// Middleware records request counts and latency labelled by chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
