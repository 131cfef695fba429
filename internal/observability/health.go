package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const (
	serviceName    = "readaloud"
	serviceVersion = "1.0.0"
)

// HealthStatus represents the health status of the service
type HealthStatus struct {
	Status       string                      `json:"status"`
	Service      string                      `json:"service"`
	Version      string                      `json:"version"`
	Timestamp    string                      `json:"timestamp"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus represents the status of a dependency
type DependencyStatus struct {
	Status    string         `json:"status"`
	Message   string         `json:"message,omitempty"`
	LatencyMs int64          `json:"latency_ms,omitempty"`
	Breaker   *BreakerStatus `json:"breaker,omitempty"`
}

// BreakerStatus summarizes the circuit breaker guarding a dependency
type BreakerStatus struct {
	State       string  `json:"state"`
	Requests    int64   `json:"requests"`
	Failures    int64   `json:"failures"`
	FailureRate float64 `json:"failure_rate"`
}

// HealthCheckFunc reports whether a dependency is usable.
// Checks are passed in from main to avoid import cycles.
type HealthCheckFunc func(ctx context.Context) (bool, error)

// DependencyCheck names a HealthCheckFunc. Breaker, when set, adds the
// dependency's circuit breaker to the report; an open breaker alone does not
// make the service unready.
type DependencyCheck struct {
	Name    string
	Check   HealthCheckFunc
	Breaker func() BreakerStatus
}

// HealthCheckHandler handles health check requests
func HealthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := HealthStatus{
			Status:    "healthy",
			Service:   serviceName,
			Version:   serviceVersion,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}

		writeStatus(w, http.StatusOK, status)
	}
}

// ReadinessHandler runs every dependency check and answers 503 if any fails
func ReadinessHandler(checks ...DependencyCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dependencies := make(map[string]DependencyStatus, len(checks))
		allHealthy := true
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		for _, dc := range checks {
			if dc.Check == nil && dc.Breaker == nil {
				continue
			}

			dep := DependencyStatus{Status: "healthy"}
			if dc.Check != nil {
				start := time.Now()
				healthy, err := dc.Check(ctx)
				dep.LatencyMs = time.Since(start).Milliseconds()

				if err != nil || !healthy {
					dep.Status = "unhealthy"
					allHealthy = false
					if err != nil {
						dep.Message = err.Error()
					}
				}
			}
			if dc.Breaker != nil {
				stats := dc.Breaker()
				dep.Breaker = &stats
			}
			dependencies[dc.Name] = dep
		}

		status := HealthStatus{
			Status:       "ready",
			Service:      serviceName,
			Version:      serviceVersion,
			Timestamp:    time.Now().UTC().Format(time.RFC3339),
			Dependencies: dependencies,
		}

		code := http.StatusOK
		if !allHealthy {
			status.Status = "not_ready"
			code = http.StatusServiceUnavailable
		}

		writeStatus(w, code, status)
	}
}

func writeStatus(w http.ResponseWriter, code int, status HealthStatus) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}
