package server

import (
	"net/http"

	"github.com/modelbay/modelbay/internal/metrics"
)

type Router struct {
	server      *Server
	mux         *http.ServeMux
	middlewares []Middleware
}

type Middleware func(http.Handler) http.Handler

func NewRouter(srv *Server) *Router {
	r := &Router{
		server: srv,
		mux:    http.NewServeMux(),
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

func (r *Router) setupMiddleware() {
	r.Use(RecoveryMiddleware)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	if r.server.cfg.Metrics.Enabled {
		r.Use(MetricsMiddleware)
	}
	if r.server.cfg.Server.CORS.Enabled {
		r.Use(CORSMiddleware(r.server.cfg.Server.CORS))
	}
	if r.server.cfg.Server.MaxBodySize > 0 {
		r.Use(MaxBodySizeMiddleware(r.server.cfg.Server.MaxBodySize))
	}
}

func (r *Router) Use(mw Middleware) {
	r.middlewares = append(r.middlewares, mw)
}

func (r *Router) setupRoutes() {
	h := r.server.handlers

	r.mux.HandleFunc("GET /health", h.HealthCheck)
	r.mux.HandleFunc("GET /", h.HealthCheck)

	r.mux.HandleFunc("POST /api/runs", h.SubmitRun)

	r.mux.HandleFunc("POST /api/jobs", h.SubmitJob)
	r.mux.HandleFunc("GET /api/jobs", h.ListJobs)
	r.mux.HandleFunc("GET /api/jobs/{id}", h.GetJob)
	r.mux.HandleFunc("GET /api/jobs/{id}/watch", h.WatchJob)

	r.mux.HandleFunc("GET /api/artifacts", h.ListArtifacts)
	r.mux.HandleFunc("GET /api/artifacts/{id}", h.GetArtifact)
	r.mux.HandleFunc("POST /api/artifacts/reload", h.ReloadArtifacts)

	r.mux.HandleFunc("GET /api/history", h.ListHistory)
	r.mux.HandleFunc("GET /api/history/{id}", h.GetHistoryRecord)
	r.mux.HandleFunc("GET /api/artifacts/{id}/history", h.ListArtifactHistory)

	if r.server.cfg.Metrics.Enabled {
		r.mux.Handle("GET /metrics", metrics.Handler())
	}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	handler := http.Handler(r.mux)

	for i := len(r.middlewares) - 1; i >= 0; i-- {
		handler = r.middlewares[i](handler)
	}

	handler.ServeHTTP(w, req)
}
