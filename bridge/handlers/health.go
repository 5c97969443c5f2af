package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sonr-io/keybridge/engine"
)

const (
	probeTimeout  = 5 * time.Second
	probeUsername = "keybridge-health-probe"
)

// HealthStatus represents the health status of the service
type HealthStatus struct {
	Status       string            `json:"status"`
	Timestamp    string            `json:"timestamp"`
	Uptime       string            `json:"uptime"`
	Connections  int               `json:"connections"`
	Dependencies map[string]string `json:"dependencies"`
	LastError    string            `json:"last_error,omitempty"`
}

// HealthChecker probes the engine and reports liveness and readiness.
type HealthChecker struct {
	startTime   time.Time
	engine      engine.Engine
	connections *ConnectionManager

	mu            sync.RWMutex
	engineHealthy bool
	lastError     string
}

// NewHealthChecker creates a health checker. Call Check or Run to probe.
func NewHealthChecker(e engine.Engine, connections *ConnectionManager) *HealthChecker {
	return &HealthChecker{
		startTime:   time.Now(),
		engine:      e,
		connections: connections,
	}
}

// Run probes the engine every interval until ctx is done.
func (hc *HealthChecker) Run(ctx context.Context, interval time.Duration) {
	hc.Check(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hc.Check(ctx)
		}
	}
}

// Check runs one engine probe and records the result.
func (hc *HealthChecker) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	_, err := hc.engine.GenerateUsernameHash(ctx, probeUsername)

	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.engineHealthy = err == nil
	hc.lastError = ""
	if err != nil {
		hc.lastError = err.Error()
	}
	return hc.engineHealthy
}

// IsReady returns whether the last engine probe succeeded.
func (hc *HealthChecker) IsReady() bool {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.engineHealthy
}

// GetStatus returns the current health status
func (hc *HealthChecker) GetStatus() HealthStatus {
	hc.mu.RLock()
	healthy, lastError := hc.engineHealthy, hc.lastError
	hc.mu.RUnlock()

	deps := map[string]string{"engine": "unhealthy"}
	status := "unhealthy"
	if healthy {
		deps["engine"] = "healthy"
		status = "healthy"
	}

	connections := 0
	if hc.connections != nil {
		connections = hc.connections.Count()
	}

	return HealthStatus{
		Status:       status,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Uptime:       time.Since(hc.startTime).String(),
		Connections:  connections,
		Dependencies: deps,
		LastError:    lastError,
	}
}

// HealthCheckHandler returns health status (liveness probe)
func (hc *HealthChecker) HealthCheckHandler(c echo.Context) error {
	status := hc.GetStatus()
	if status.Status == "healthy" {
		return c.JSON(http.StatusOK, status)
	}
	return c.JSON(http.StatusServiceUnavailable, status)
}

// ReadinessHandler returns readiness status (readiness probe)
func (hc *HealthChecker) ReadinessHandler(c echo.Context) error {
	if !hc.IsReady() {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"ready":  "false",
			"reason": ErrEngineNotReady.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]string{"ready": "true"})
}
