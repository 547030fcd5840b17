// Package api provides the HTTP server for the trackd timer engine.
// The surrounding project-management app (auth, task CRUD, dashboards)
// calls these endpoints; authentication happens upstream and the
// authenticated user id arrives in the X-User-ID header.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taskhive/trackd/internal/app/timer"
	"github.com/taskhive/trackd/internal/infra/metrics"
)

// HeaderUserID carries the authenticated user id, set by the upstream
// auth layer. Requests without it are rejected.
const HeaderUserID = "X-User-ID"

type ctxKey int

const userIDKey ctxKey = 0

// Server is the trackd HTTP API server.
type Server struct {
	timers         *timer.Service
	corsOrigins    []string
	metricsEnabled bool
	requestLog     bool
}

// NewServer creates a new API server allowing any origin.
func NewServer(timers *timer.Service) *Server {
	return &Server{timers: timers, corsOrigins: []string{"*"}}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// EnableRequestLog logs every request. Driven by logging.level = "debug".
func (s *Server) EnableRequestLog() { s.requestLog = true }

// SetCORSOrigins restricts browser access to the given origins.
// An empty list or a "*" entry allows any origin.
func (s *Server) SetCORSOrigins(origins []string) {
	if len(origins) > 0 {
		s.corsOrigins = origins
	}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if s.requestLog {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(s.corsMiddleware)
	r.Use(latencyMiddleware)

	// Health check for load balancers
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version": "0.1.0",
		})
	})

	// Timer engine endpoints
	r.Route("/api", func(r chi.Router) {
		r.Use(requireUser)

		r.Post("/timer/start", s.handleStart)
		r.Post("/timer/stop", s.handleStop)
		r.Post("/timer/entries/{entryID}/stop", s.handleStopByID)
		r.Get("/timer/active", s.handleGetActive)

		r.Get("/tasks/{taskID}/entries", s.handleListEntries)
		r.Get("/tasks/{taskID}/total", s.handleTaskTotal)
	})

	// Prometheus metrics endpoint
	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// requireUser extracts the authenticated user id and rejects requests
// without one. Authorization of task ids happened upstream already.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(HeaderUserID)
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "missing "+HeaderUserID+" header")
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// currentUser returns the user id stored by requireUser.
func currentUser(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

// latencyMiddleware records request duration against the matched route.
func latencyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		metrics.RequestLatency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// corsMiddleware adds CORS headers so browser tabs on the app origin can
// call the engine directly. Origins come from the api.cors_origins config.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := s.allowOrigin(r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+HeaderUserID)
			if origin != "*" {
				w.Header().Add("Vary", "Origin")
			}
		}
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// allowOrigin returns the Access-Control-Allow-Origin value for a request
// origin, or "" when the origin is not allowed.
func (s *Server) allowOrigin(origin string) string {
	for _, o := range s.corsOrigins {
		if o == "*" {
			return "*"
		}
		if o == origin && origin != "" {
			return origin
		}
	}
	return ""
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response with a machine-readable code.
func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"message": msg,
		},
	})
}
