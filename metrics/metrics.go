package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_requests_latency_seconds",
			Help:    "Latency of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// Record writes
	RecordWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "record_writes_total",
			Help: "Record writes by kind.",
		},
		[]string{"kind"}, // create|update|comment
	)
	SchemaColumnsAdded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "schema_columns_added_total",
			Help: "Columns added to the records table on demand.",
		},
	)

	// Audit and revert
	AuditEntries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_entries_total",
			Help: "Audit entries appended by action.",
		},
		[]string{"action"},
	)
	RevertRestorations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "revert_restorations_total",
			Help: "Audit entries replayed by reverts.",
		},
	)
	RevertSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "revert_skipped_total",
			Help: "Audit entries skipped by reverts because their snapshot was unusable.",
		},
	)

	// Imports
	Imports = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imports_total",
			Help: "Bulk imports by result.",
		},
		[]string{"result"}, // ok|failed
	)

	initOnce sync.Once
)

// Handler serves the /metrics endpoint
var Handler = promhttp.Handler

// Init registers all collectors with the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestLatency,
			RecordWrites,
			SchemaColumnsAdded,
			AuditEntries,
			RevertRestorations,
			RevertSkipped,
			Imports,
		)
	})
}
