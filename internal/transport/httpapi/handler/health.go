package handler

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker defines the interface for checking a dependency's connectivity
type HealthChecker interface {
	Health(ctx context.Context) error
}

// RemoteProber checks reachability of the upstream budget API.
type RemoteProber interface {
	TestConnection(ctx context.Context) bool
}

// HealthHandler handles health check requests
type HealthHandler struct {
	db     HealthChecker
	cache  HealthChecker
	remote RemoteProber
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db, cache HealthChecker, remote RemoteProber) *HealthHandler {
	return &HealthHandler{
		db:     db,
		cache:  cache,
		remote: remote,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
	Uptime  string            `json:"uptime,omitempty"`
}

var startTime = time.Now()

// GetHealth handles GET /health
// Basic health check - returns 200 OK if service is running
func GetHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:  "ok",
		Version: "1.0.0",
		Uptime:  time.Since(startTime).String(),
		Checks:  map[string]string{},
	}

	respondJSON(w, response, http.StatusOK)
}

// GetHealthDetailed handles GET /health/detailed
// Includes database, cache, and upstream API connectivity
func (h *HealthHandler) GetHealthDetailed(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	status := "ok"

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.db.Health(ctx); err != nil {
		checks["database"] = "unhealthy: " + err.Error()
		status = "degraded"
	} else {
		checks["database"] = "healthy"
	}

	if h.cache != nil {
		if err := h.cache.Health(ctx); err != nil {
			checks["cache"] = "unhealthy: " + err.Error()
			status = "degraded"
		} else {
			checks["cache"] = "healthy"
		}
	}

	if h.remote != nil {
		if h.remote.TestConnection(ctx) {
			checks["ynab"] = "healthy"
		} else {
			checks["ynab"] = "unreachable"
			status = "degraded"
		}
	}

	httpStatus := http.StatusOK
	if status == "degraded" {
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:  status,
		Version: "1.0.0",
		Uptime:  time.Since(startTime).String(),
		Checks:  checks,
	}

	respondJSON(w, response, httpStatus)
}

// GetReadiness handles GET /health/ready
// Readiness probe - the database is the only hard dependency for serving
func (h *HealthHandler) GetReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Health(ctx); err != nil {
		respondError(w, "database not ready", http.StatusServiceUnavailable)
		return
	}

	respondJSON(w, map[string]string{"status": "ready"}, http.StatusOK)
}

// GetLiveness handles GET /health/live
// Liveness probe - checks if service is alive
func GetLiveness(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "alive"}, http.StatusOK)
}
