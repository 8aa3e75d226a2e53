package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cuentas"

// Collector groups the counters emitted by the account lifecycle and HTTP layer.
type Collector struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	AccountsCreatedTotal  prometheus.Counter
	AccountsUpdatedTotal  prometheus.Counter
	AccountsDeletedTotal  prometheus.Counter
	CascadeRowsDeleted    *prometheus.CounterVec
	CascadeRollbacksTotal prometheus.Counter
	ConflictsTotal        *prometheus.CounterVec
	CredentialChecksTotal *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewCollector registers every collector on reg. Pass prometheus.NewRegistry()
// in tests to keep registrations isolated.
func NewCollector(reg *prometheus.Registry) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path, and status code.",
		}, []string{"method", "path", "status"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "path"}),

		AccountsCreatedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "accounts",
			Name:      "created_total",
			Help:      "Total number of accounts created.",
		}),

		AccountsUpdatedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "accounts",
			Name:      "updated_total",
			Help:      "Total number of accounts updated.",
		}),

		AccountsDeletedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "accounts",
			Name:      "deleted_total",
			Help:      "Total number of accounts removed by cascade deletion.",
		}),

		CascadeRowsDeleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cascade",
			Name:      "rows_deleted_total",
			Help:      "Dependent rows removed during cascade deletion, by table.",
		}, []string{"table"}),

		CascadeRollbacksTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cascade",
			Name:      "rollbacks_total",
			Help:      "Cascade deletions rolled back. Alert if non-zero.",
		}),

		ConflictsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "accounts",
			Name:      "conflicts_total",
			Help:      "Uniqueness and dependent-record conflicts by field.",
		}, []string{"field"}),

		CredentialChecksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "credential_checks_total",
			Help:      "Credential validations by result.",
		}, []string{"result"}),

		gatherer: reg,
	}
}

// Handler exposes the registry in the prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
