package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/genenetwork/gn-auth/pkg/httputil"
	"github.com/genenetwork/gn-auth/pkg/observability"
)

// HealthHandler serves the probe endpoints on the health port, kept apart
// from the API port so probes bypass the auth surface entirely.
func HealthHandler(registry *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if registry != nil {
		mux.Handle("/metrics", observability.MetricsHandler(registry))
	}
	return mux
}
