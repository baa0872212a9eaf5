// Package api exposes the triage session over HTTP for the dashboard
// frontend: indicator management, collaborator-backed analysis and
// enrichment, facet and filter queries, and report export.
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"triage/config"
	"triage/report"
	"triage/session"
)

// rateLimiterEntry holds a rate limiter with last seen time
type rateLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ReportGenerator renders a narrative into a downloadable document.
type ReportGenerator interface {
	GenerateDocx(ctx context.Context, report string) ([]byte, error)
}

// API holds the API server
type API struct {
	router         *mux.Router
	server         *http.Server
	session        *session.Session
	reports        ReportGenerator
	config         *config.Config
	logger         *zap.SugaredLogger
	validate       *validator.Validate
	rateLimiters   map[string]*rateLimiterEntry
	rateLimitersMu sync.Mutex
	stopCh         chan struct{}
}

// NewAPI creates a new API server around an existing session
func NewAPI(sess *session.Session, reports ReportGenerator, config *config.Config, logger *zap.SugaredLogger) *API {
	api := &API{
		router:       mux.NewRouter(),
		session:      sess,
		reports:      reports,
		config:       config,
		logger:       logger,
		validate:     validator.New(),
		rateLimiters: make(map[string]*rateLimiterEntry),
		stopCh:       make(chan struct{}),
	}
	api.setupRoutes()
	go api.cleanupRateLimiters()
	return api
}

// setupRoutes sets up the API routes
func (a *API) setupRoutes() {
	a.router.Use(a.corsMiddleware)
	a.router.Use(a.requestIDMiddleware)
	a.router.Use(a.rateLimitMiddleware)

	a.router.HandleFunc("/api/analyze", a.analyzeURLs).Methods("POST")
	a.router.HandleFunc("/api/iocs", a.addIOCs).Methods("POST")
	a.router.HandleFunc("/api/iocs", a.getIOCs).Methods("GET")
	a.router.HandleFunc("/api/iocs", a.clearIOCs).Methods("DELETE")
	// IOC values include full URLs, so the path segment must swallow slashes.
	a.router.HandleFunc("/api/iocs/{value:.+}", a.removeIOC).Methods("DELETE")
	a.router.HandleFunc("/api/enrich", a.enrichIOCs).Methods("POST")
	a.router.HandleFunc("/api/facets", a.getFacets).Methods("GET")
	a.router.HandleFunc("/api/report", a.getReport).Methods("GET")
	a.router.HandleFunc("/api/report", a.putReport).Methods("PUT")
	a.router.HandleFunc("/api/export/csv", a.exportCSV).Methods("GET")
	a.router.HandleFunc("/api/export/report", a.exportReport).Methods("POST")
	a.router.HandleFunc("/health", a.healthCheck).Methods("GET")
	a.router.Handle("/metrics", promhttp.Handler())
}

// Handler exposes the configured router, mainly for tests.
func (a *API) Handler() http.Handler {
	return a.router
}

// Start starts the API server
func (a *API) Start(port string) error {
	a.server = &http.Server{
		Addr:    port,
		Handler: a.router,
	}
	return a.server.ListenAndServe()
}

// StartTLS starts the API server with TLS
func (a *API) StartTLS(port, certFile, keyFile string) error {
	a.server = &http.Server{
		Addr:    port,
		Handler: a.router,
	}
	return a.server.ListenAndServeTLS(certFile, keyFile)
}

// Stop stops the API server
func (a *API) Stop(ctx context.Context) error {
	close(a.stopCh)
	if a.server != nil {
		return a.server.Shutdown(ctx)
	}
	return nil
}

var _ ReportGenerator = (*report.Client)(nil)
