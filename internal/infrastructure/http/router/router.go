package router

import (
	"net/http"

	"payment-fraud-risk/internal/interfaces/http/handler"
)

// Router holds all HTTP handlers
type Router struct {
	mux            *http.ServeMux
	riskHandler    *handler.RiskHandler
	healthHandler  *handler.HealthHandler
	metricsHandler http.Handler
}

// NewRouter creates a new router with all routes configured
func NewRouter(
	riskHandler *handler.RiskHandler,
	healthHandler *handler.HealthHandler,
	metricsHandler http.Handler,
) *Router {
	r := &Router{
		mux:            http.NewServeMux(),
		riskHandler:    riskHandler,
		healthHandler:  healthHandler,
		metricsHandler: metricsHandler,
	}
	r.setupRoutes()
	return r
}

func (r *Router) setupRoutes() {
	// Health endpoints
	r.mux.HandleFunc("GET /health", r.healthHandler.Health)
	r.mux.HandleFunc("GET /ready", r.healthHandler.Ready)
	r.mux.HandleFunc("GET /live", r.healthHandler.Live)

	// Risk analysis endpoints
	r.mux.HandleFunc("POST /api/v1/risk/analyze", r.riskHandler.AnalyzePayment)
	r.mux.HandleFunc("POST /api/v1/risk/analyze/batch", r.riskHandler.BatchAnalyze)

	// Fraud alerts
	r.mux.HandleFunc("GET /api/v1/risk/alerts/{id}", r.riskHandler.GetAlert)
	r.mux.HandleFunc("POST /api/v1/risk/alerts/{id}/resolve", r.riskHandler.ResolveAlert)
	r.mux.HandleFunc("GET /api/v1/risk/users/{id}/alerts", r.riskHandler.ListUserAlerts)

	// Transaction patterns
	r.mux.HandleFunc("GET /api/v1/risk/users/{id}/pattern", r.riskHandler.GetUserPattern)

	// Metrics
	if r.metricsHandler != nil {
		r.mux.Handle("GET /metrics", r.metricsHandler)
	}
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	// Add CORS headers
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if req.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	r.mux.ServeHTTP(w, req)
}

// Handler returns the http.Handler
func (r *Router) Handler() http.Handler {
	return r
}
