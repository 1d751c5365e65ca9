package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// HealthStatus represents the health of a component.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
)

// ComponentHealth represents the health of a single component.
type ComponentHealth struct {
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
	Latency string       `json:"latency,omitempty"`
}

// HealthReport is the overall health report.
type HealthReport struct {
	Status     HealthStatus               `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Components map[string]ComponentHealth `json:"components"`
}

// HealthChecker runs health checks against service dependencies.
type HealthChecker struct {
	mu     sync.RWMutex
	db     *sql.DB
	checks map[string]func(context.Context) ComponentHealth
}

// NewHealthChecker creates a health checker for the given database.
func NewHealthChecker(db *sql.DB) *HealthChecker {
	hc := &HealthChecker{
		db:     db,
		checks: make(map[string]func(context.Context) ComponentHealth),
	}
	hc.checks["database"] = hc.checkDatabase
	return hc
}

// RegisterCheck adds a named health check.
func (hc *HealthChecker) RegisterCheck(name string, check func(context.Context) ComponentHealth) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[name] = check
}

func (hc *HealthChecker) checkDatabase(ctx context.Context) ComponentHealth {
	if hc.db == nil {
		return ComponentHealth{Status: HealthStatusUnhealthy, Message: "database not configured"}
	}
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := hc.db.PingContext(ctx); err != nil {
		return ComponentHealth{Status: HealthStatusUnhealthy, Message: err.Error()}
	}
	return ComponentHealth{Status: HealthStatusHealthy, Latency: time.Since(start).String()}
}

// Check runs all registered health checks.
func (hc *HealthChecker) Check(ctx context.Context) HealthReport {
	hc.mu.RLock()
	checks := make(map[string]func(context.Context) ComponentHealth, len(hc.checks))
	for name, check := range hc.checks {
		checks[name] = check
	}
	hc.mu.RUnlock()

	report := HealthReport{
		Status:     HealthStatusHealthy,
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]ComponentHealth, len(checks)),
	}

	for name, check := range checks {
		health := check(ctx)
		report.Components[name] = health
		if health.Status == HealthStatusUnhealthy {
			report.Status = HealthStatusUnhealthy
		} else if health.Status == HealthStatusDegraded && report.Status == HealthStatusHealthy {
			report.Status = HealthStatusDegraded
		}
	}

	return report
}

// LivenessHandler responds 200 as long as the process is running.
func (hc *HealthChecker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
	}
}

// ReadinessHandler responds 200 when all dependencies are reachable.
func (hc *HealthChecker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := hc.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if report.Status == HealthStatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		json.NewEncoder(w).Encode(report)
	}
}
