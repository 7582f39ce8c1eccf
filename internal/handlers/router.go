package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/medirank/medirank-api/internal/buildinfo"
	"github.com/medirank/medirank-api/internal/metrics"
	"github.com/medirank/medirank-api/internal/middleware"
	"github.com/medirank/medirank-api/internal/services/audits"
	"github.com/medirank/medirank-api/internal/services/auth"
	"github.com/medirank/medirank-api/internal/services/inspection"
)

const (
	serviceName = "medirank-api"

	// DefaultMaxUploadBytes caps a multipart request body.
	DefaultMaxUploadBytes = 64 << 20
	// maxImages is the most files accepted in the images field.
	maxImages = 12
	// multipartMemory is kept in memory before spilling to temp files.
	multipartMemory = 8 << 20
)

// Pinger reports whether the document store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Deps are the services the router dispatches to.
type Deps struct {
	Auth           *auth.Service
	Inspections    *inspection.Service
	Audits         *audits.Service
	Database       Pinger
	Driver         string
	Metrics        *metrics.Metrics
	Logger         *zap.Logger
	// MaxUploadBytes defaults to DefaultMaxUploadBytes.
	MaxUploadBytes int64
}

// Router wraps the mux router and the services behind it
type Router struct {
	*mux.Router
	auth           *auth.Service
	inspections    *inspection.Service
	audits         *audits.Service
	db             Pinger
	driver         string
	metrics        *metrics.Metrics
	log            *zap.Logger
	maxUploadBytes int64
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(d Deps) *Router {
	r := &Router{
		Router:         mux.NewRouter(),
		auth:           d.Auth,
		inspections:    d.Inspections,
		audits:         d.Audits,
		db:             d.Database,
		driver:         d.Driver,
		metrics:        d.Metrics,
		log:            d.Logger,
		maxUploadBytes: d.MaxUploadBytes,
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	if r.maxUploadBytes <= 0 {
		r.maxUploadBytes = DefaultMaxUploadBytes
	}

	r.Use(middleware.Metrics(r.metrics))
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.HandleFunc("/", r.root).Methods("GET")
	r.HandleFunc("/health", r.healthCheck).Methods("GET")
	r.Handle("/metrics", r.metrics.Handler()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", r.getStatus).Methods("GET")
	api.HandleFunc("/audits", r.listAudits).Methods("GET")

	// Auth routes
	authRoutes := api.PathPrefix("/auth").Subrouter()
	authRoutes.HandleFunc("/register", r.register).Methods("POST")
	authRoutes.HandleFunc("/login", r.login).Methods("POST")
	me := authRoutes.PathPrefix("/me").Subrouter()
	me.Use(middleware.AuthMiddleware(r.auth))
	me.HandleFunc("", r.me).Methods("GET")

	// Inspection routes. Fixed paths come before /{id}.
	ins := api.PathPrefix("/inspections").Subrouter()
	ins.HandleFunc("", r.createInspectionMultipart).Methods("POST")
	ins.HandleFunc("", r.listInspections).Methods("GET")
	ins.HandleFunc("/json", r.createInspectionJSON).Methods("POST")
	ins.HandleFunc("/summary", r.inspectionSummary).Methods("GET")
	ins.HandleFunc("/upload-url", r.uploadURL).Methods("POST")
	ins.HandleFunc("/upload-server", r.uploadServer).Methods("POST")
	ins.HandleFunc("/presign-get", r.presignGet).Methods("POST")
	ins.HandleFunc("/{id}", r.getInspection).Methods("GET")
	ins.HandleFunc("/{id}", r.updateInspection).Methods("PUT")
	ins.HandleFunc("/{id}", r.deleteInspection).Methods("DELETE")
	ins.HandleFunc("/{id}/report.pdf", r.inspectionReport).Methods("GET")

	return r
}

// Handler returns the router wrapped in the request-level middleware chain.
func (r *Router) Handler() http.Handler {
	var h http.Handler = r
	h = middleware.Recover(r.log)(h)
	h = middleware.RequestLogger(r.log)(h)
	return middleware.NormalizePath(h)
}

// root is the liveness probe kept for existing clients.
func (r *Router) root(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":  true,
		"msg": "Medirank backend",
	})
}

// healthCheck returns the health status of the API and its store
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	if r.db != nil {
		ctx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
		defer cancel()
		if err := r.db.Ping(ctx); err != nil {
			r.log.Warn("health check: store ping failed", zap.Error(err))
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":   "degraded",
				"database": "unreachable",
				"driver":   r.driver,
			})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"database": "connected",
		"driver":   r.driver,
	})
}

// getStatus returns build information
func (r *Router) getStatus(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, buildinfo.Info(serviceName, time.Now().UTC()))
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
