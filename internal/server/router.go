package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/telhawk-systems/keyhawk/internal/requestid"
)

// RouterConfig holds dependencies needed to configure routes.
type RouterConfig struct {
	DashboardHandler *DashboardHandler
	Proxy            *Proxy
	Gatherer         prometheus.Gatherer
	// AllowedOrigins may call the API cross-origin ("*.example.com" allowed).
	AllowedOrigins []string
}

// NewRouter constructs a ServeMux with dashboard routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	// Dashboard counts, cached
	mux.HandleFunc("GET /api/dashboard/stats", cfg.DashboardHandler.GetStats)

	// Licensing API passthrough
	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete} {
		mux.Handle(method+" /api/v1/{path...}", acceptsJSONAPI(cfg.Proxy))
	}

	// Health check
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "khawk"})
	})

	// Prometheus metrics
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	var handler http.Handler = mux
	handler = securityHeaders(handler)
	handler = cors(cfg.AllowedOrigins)(handler)
	return requestid.Middleware(handler)
}
