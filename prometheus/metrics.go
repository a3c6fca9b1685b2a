package prometheus

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// Authorization decisions by resource, operation and outcome
	AuthzDecisionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenant_authz_decisions_total",
			Help: "Total number of authorization decisions",
		},
		[]string{"resource", "operation", "decision", "reason"},
	)

	// Tenant resolution outcomes by path ("principal" or "destination")
	ResolutionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenant_resolutions_total",
			Help: "Total number of tenant context resolutions",
		},
		[]string{"path", "outcome"},
	)

	// Tenant operation counter
	TenantOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenant_operations_total",
			Help: "Total number of tenant operations",
		},
		[]string{"operation"}, // operation can be "onboard", "profile_update", "invite_user", etc.
	)

	// Vault operation counter
	VaultOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenant_vault_operations_total",
			Help: "Total number of credential vault seal/unseal operations",
		},
		[]string{"operation", "outcome"},
	)

	// Onboarding outcome counter
	OnboardingCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenant_onboarding_total",
			Help: "Total number of tenant onboarding attempts",
		},
		[]string{"outcome"}, // "provisioned", "duplicate", "failed"
	)

	// Error counters
	CoreErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenant_errors_total",
			Help: "Total number of tenant core errors",
		},
		[]string{"type"},
	)
)

// Histogram metrics
var (
	// Database operation duration
	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tenant_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // operation can be "query", "insert", "update", "delete"
	)
)

// Gauge metrics
var (
	// Active tenants
	ActiveTenantsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tenant_active_total",
			Help: "Number of currently active tenants",
		},
	)

	// System info
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tenant_service_info",
			Help: "Information about the tenant service",
		},
		[]string{"version"},
	)
)

func init() {
	// Register counters
	prometheus.MustRegister(AuthzDecisionCounter)
	prometheus.MustRegister(ResolutionCounter)
	prometheus.MustRegister(TenantOperationCounter)
	prometheus.MustRegister(VaultOperationCounter)
	prometheus.MustRegister(OnboardingCounter)
	prometheus.MustRegister(CoreErrorCounter)

	// Register histograms
	prometheus.MustRegister(DBOperationDuration)

	// Register gauges
	prometheus.MustRegister(ActiveTenantsGauge)
	prometheus.MustRegister(InfoGauge)

	// Set initial service info
	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// RecordAuthzDecision increments the decision counter for an authorize call
func RecordAuthzDecision(resource, operation, decision, reason string) {
	AuthzDecisionCounter.With(prometheus.Labels{
		"resource":  resource,
		"operation": operation,
		"decision":  decision,
		"reason":    reason,
	}).Inc()
}

// RecordResolution increments the resolution counter for a resolver call
func RecordResolution(path, outcome string) {
	ResolutionCounter.With(prometheus.Labels{
		"path":    path,
		"outcome": outcome,
	}).Inc()
}

// RecordTenantOperation increments the tenant operation counter
func RecordTenantOperation(operation string) {
	TenantOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordVaultOperation increments the vault operation counter
func RecordVaultOperation(operation, outcome string) {
	VaultOperationCounter.With(prometheus.Labels{
		"operation": operation,
		"outcome":   outcome,
	}).Inc()
}

// RecordOnboarding increments the onboarding outcome counter
func RecordOnboarding(outcome string) {
	OnboardingCounter.With(prometheus.Labels{"outcome": outcome}).Inc()
}

// RecordCoreError increments the core error counter
func RecordCoreError(errorType string) {
	CoreErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// TrackDBOperation measures database operation durations
func TrackDBOperation(operation string) func(time.Time) {
	startTime := time.Now()
	return func(endTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(duration)
	}
}
