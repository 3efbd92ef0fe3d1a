// Package api exposes the authorisation service over HTTP.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/genenetwork/gn-auth/pkg/access"
	"github.com/genenetwork/gn-auth/pkg/auth"
	"github.com/genenetwork/gn-auth/pkg/config"
	"github.com/genenetwork/gn-auth/pkg/httputil"
	"github.com/genenetwork/gn-auth/pkg/migrate"
	"github.com/genenetwork/gn-auth/pkg/observability"
)

// maxRequestBody bounds request bodies; the largest legitimate payload is a
// list of trait names.
const maxRequestBody = 1 << 20

// Server represents the authorisation API server
type Server struct {
	router      *mux.Router
	cfg         *config.Config
	logger      *observability.Logger
	metrics     *observability.Metrics
	boundary    *auth.Boundary
	access      *access.Service
	coordinator *migrate.Coordinator
}

// Deps bundles the collaborators the server routes requests to. Boundary,
// Access and Coordinator may be nil when the authorisation store is not
// configured; the affected endpoints then report themselves unavailable.
type Deps struct {
	Config      *config.Config
	Logger      *observability.Logger
	Metrics     *observability.Metrics
	Boundary    *auth.Boundary
	Access      *access.Service
	Coordinator *migrate.Coordinator
}

// NewServer creates a new API server
func NewServer(deps Deps) *Server {
	s := &Server{
		router:      mux.NewRouter(),
		cfg:         deps.Config,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
		boundary:    deps.Boundary,
		access:      deps.Access,
		coordinator: deps.Coordinator,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/authorisation", s.traitAuthorisation).Methods("GET")
	s.router.HandleFunc("/user/migrate", s.migrateUserData).Methods("POST")
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFound(w, "no such endpoint: "+r.URL.Path)
	})
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler wraps the router in the ambient middleware stack.
func (s *Server) Handler() http.Handler {
	middlewares := []func(http.Handler) http.Handler{
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(s.logger),
		httputil.RecoveryMiddleware,
		httputil.MaxBytesMiddleware(maxRequestBody),
	}
	if s.metrics != nil {
		middlewares = append(middlewares, observability.HTTPMetricsMiddleware(s.metrics))
	}

	handler := httputil.Chain(middlewares...)(s.router)
	if s.cfg != nil && s.cfg.Observability.OTelEnabled {
		handler = otelhttp.NewHandler(handler, "gn-auth")
	}
	return handler
}
