package metrics

import (
	"net/http"
	"time"
)

// Metrics interface for dependency injection
type Metrics interface {
	RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration)
	RecordTriage(category, outcome string)
	RecordDedupe(verdict string)
	RecordSweepRun(duration time.Duration, collapsed int)
	SetDBConnectionsActive(count float64)
	RecordDBQuery(operation, status string)
	Handler() http.Handler
}

// NoOpMetrics provides a no-op implementation
type NoOpMetrics struct{}

func (m *NoOpMetrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
}
func (m *NoOpMetrics) RecordTriage(category, outcome string)               {}
func (m *NoOpMetrics) RecordDedupe(verdict string)                         {}
func (m *NoOpMetrics) RecordSweepRun(duration time.Duration, collapsed int) {}
func (m *NoOpMetrics) SetDBConnectionsActive(count float64)                {}
func (m *NoOpMetrics) RecordDBQuery(operation, status string)              {}
func (m *NoOpMetrics) Handler() http.Handler                               { return http.NotFoundHandler() }

// Global metrics instance
var globalMetrics Metrics = &NoOpMetrics{}

// Init initializes metrics (no-op for now, can be extended with Prometheus)
func Init() {
	// For now, keep using no-op metrics
	// In a full implementation, this would initialize Prometheus metrics
}

// Handler returns the metrics handler
func Handler() http.Handler {
	return globalMetrics.Handler()
}

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	globalMetrics.RecordHTTPRequest(method, endpoint, statusCode, duration)
}

// RecordTriage records a triage outcome per category
func RecordTriage(category, outcome string) {
	globalMetrics.RecordTriage(category, outcome)
}

// RecordDedupe records a dedupe verdict (merge, link, distinct)
func RecordDedupe(verdict string) {
	globalMetrics.RecordDedupe(verdict)
}

// RecordSweepRun records a background sweep run
func RecordSweepRun(duration time.Duration, collapsed int) {
	globalMetrics.RecordSweepRun(duration, collapsed)
}

// SetDBConnectionsActive sets the number of active database connections
func SetDBConnectionsActive(count float64) {
	globalMetrics.SetDBConnectionsActive(count)
}

// RecordDBQuery records database query metrics
func RecordDBQuery(operation, status string) {
	globalMetrics.RecordDBQuery(operation, status)
}
