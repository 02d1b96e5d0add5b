package metrics

import (
	"strconv"
	"time"

	"github.com/labelens/labelens/internal/observability"
)

// Application-level metrics following Prometheus conventions
var (
	// Extraction pipeline metrics
	ExtractionsTotal   = "app_extractions_total"
	ExtractionDuration = "app_extraction_duration_ms"

	// Client admission metrics
	RateLimitDecisionsTotal = "app_rate_limit_decisions_total"

	// Upstream provider metrics
	UpstreamRequestsTotal = "app_upstream_requests_total"

	// Health check metrics
	HealthCheckTotal    = "app_health_check_total"
	HealthCheckDuration = "app_health_check_duration_ms"

	// Server lifecycle metrics
	ServerStartTime = "app_server_start_time_seconds"
	ServerUptime    = "app_server_uptime_seconds"
)

// RecordExtraction records one pipeline run with its outcome. For failures,
// outcome carries the failure kind; successes use "success".
func RecordExtraction(outcome string, duration time.Duration) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			ExtractionsTotal,
			1,
			map[string]string{
				"outcome": outcome,
			},
		)

		_ = observability.TelemetrySystem.Histogram(
			ExtractionDuration,
			duration,
			map[string]string{
				"outcome": outcome,
			},
		)
	}
}

// RecordRateLimitDecision records a client admission decision.
func RecordRateLimitDecision(allowed bool) {
	decision := "allowed"
	if !allowed {
		decision = "rejected"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			RateLimitDecisionsTotal,
			1,
			map[string]string{
				"decision": decision,
			},
		)
	}
}

// RecordUpstreamRequest records an outbound provider call and its status.
func RecordUpstreamRequest(provider string, statusCode int) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			UpstreamRequestsTotal,
			1,
			map[string]string{
				"provider":    provider,
				"http_status": strconv.Itoa(statusCode),
			},
		)
	}
}

// RecordHealthCheck records a health check execution
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			HealthCheckTotal,
			1,
			map[string]string{
				"check":  checkName,
				"status": status,
			},
		)

		_ = observability.TelemetrySystem.Histogram(
			HealthCheckDuration,
			duration,
			map[string]string{
				"check": checkName,
			},
		)
	}
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerStartTime,
			float64(timestamp),
			nil,
		)
	}
}

// SetServerUptime records the server uptime in seconds
func SetServerUptime(seconds int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerUptime,
			float64(seconds),
			nil,
		)
	}
}
