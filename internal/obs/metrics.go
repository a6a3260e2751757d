package obs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for a registration service
// process: BnB search progress, ICP refinement, and (when the REST
// service is running) request/tenant accounting.
type Metrics struct {
	OuterNodesPopped  prometheus.Counter
	InnerNodesPopped  prometheus.Counter
	IncumbentUpdates  prometheus.Counter
	ICPCallsTotal     prometheus.Counter
	ICPCallDuration   prometheus.Histogram
	RegistrationRuns  prometheus.Counter
	RegistrationError prometheus.Histogram
	RegistrationTime  prometheus.Histogram

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestErrors   *prometheus.CounterVec

	TenantsTotal     prometheus.Gauge
	TenantQuotaUsage *prometheus.GaugeVec
}

// NewMetrics creates and registers all registration-service metrics
// against the default Prometheus registry.
func NewMetrics() *Metrics {
	return &Metrics{
		OuterNodesPopped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "goicp_outer_nodes_popped_total",
			Help: "Total rotation cubes popped from the outer BnB queue.",
		}),
		InnerNodesPopped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "goicp_inner_nodes_popped_total",
			Help: "Total translation cubes popped from the inner BnB queue.",
		}),
		IncumbentUpdates: promauto.NewCounter(prometheus.CounterOpts{
			Name: "goicp_incumbent_updates_total",
			Help: "Total times the BnB incumbent error improved.",
		}),
		ICPCallsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "goicp_icp_calls_total",
			Help: "Total local ICP refinement calls made by the BnB search.",
		}),
		ICPCallDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "goicp_icp_call_duration_seconds",
			Help:    "Duration of individual ICP refinement calls.",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		}),
		RegistrationRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "goicp_registration_runs_total",
			Help: "Total completed registration runs.",
		}),
		RegistrationError: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "goicp_registration_final_error",
			Help:    "Final optError (sum of squared trimmed residuals) per run.",
			Buckets: []float64{1e-6, 1e-5, 1e-4, 1e-3, 1e-2, 1e-1, 1, 10},
		}),
		RegistrationTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "goicp_registration_duration_seconds",
			Help:    "Wall-clock duration of full registration runs.",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 300},
		}),

		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "goicp_http_requests_total",
			Help: "Total HTTP requests by method and status.",
		}, []string{"method", "status"}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "goicp_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"method"}),
		RequestErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "goicp_http_request_errors_total",
			Help: "Total HTTP request errors by method and error type.",
		}, []string{"method", "error_type"}),

		TenantsTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "goicp_tenants_total",
			Help: "Total number of active tenants.",
		}),
		TenantQuotaUsage: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "goicp_tenant_quota_usage",
			Help: "Tenant quota usage fraction by tenant and resource.",
		}, []string{"tenant", "resource"}),
	}
}

// IncOuterPop records one rotation cube popped from the outer BnB queue.
func (m *Metrics) IncOuterPop() {
	if m != nil {
		m.OuterNodesPopped.Inc()
	}
}

// IncInnerPop records one translation cube popped from the inner BnB queue.
func (m *Metrics) IncInnerPop() {
	if m != nil {
		m.InnerNodesPopped.Inc()
	}
}

// IncIncumbentUpdate records an improvement of the BnB incumbent error.
func (m *Metrics) IncIncumbentUpdate() {
	if m != nil {
		m.IncumbentUpdates.Inc()
	}
}

// ObserveICPCall records one local ICP refinement call and its duration.
func (m *Metrics) ObserveICPCall(d time.Duration) {
	if m != nil {
		m.ICPCallsTotal.Inc()
		m.ICPCallDuration.Observe(d.Seconds())
	}
}

// RecordRun records a completed registration run's duration and final error.
func (m *Metrics) RecordRun(duration time.Duration, finalErr float64) {
	if m != nil {
		m.RegistrationRuns.Inc()
		m.RegistrationTime.Observe(duration.Seconds())
		m.RegistrationError.Observe(finalErr)
	}
}

// RecordRequest records an HTTP request's outcome.
func (m *Metrics) RecordRequest(method, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, status).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(d.Seconds())
}

// RecordError records a labeled HTTP error.
func (m *Metrics) RecordError(method, errType string) {
	if m == nil {
		return
	}
	m.RequestErrors.WithLabelValues(method, errType).Inc()
}

// UpdateTenantCount sets the active tenant gauge.
func (m *Metrics) UpdateTenantCount(n int) {
	if m == nil {
		return
	}
	m.TenantsTotal.Set(float64(n))
}

// UpdateTenantQuota sets a tenant's quota usage fraction for a resource.
func (m *Metrics) UpdateTenantQuota(tenant, resource string, usage float64) {
	if m == nil {
		return
	}
	m.TenantQuotaUsage.WithLabelValues(tenant, resource).Set(usage)
}
