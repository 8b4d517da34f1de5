package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PayloadsSubmitted tracks signing requests sent to the wallet API
	PayloadsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vanity_payloads_submitted_total",
			Help: "Total number of payloads submitted to the wallet API",
		},
		[]string{"tx_type"},
	)

	// WebhooksProcessed tracks webhook settlement outcomes
	WebhooksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vanity_webhooks_processed_total",
			Help: "Total number of processed webhook events",
		},
		[]string{"outcome"},
	)

	// OracleLookups tracks ledger oracle queries per network and result
	OracleLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vanity_oracle_lookups_total",
			Help: "Total number of ledger oracle lookups",
		},
		[]string{"network", "result"},
	)

	// Settlements tracks vanity settlement attempts per branch
	Settlements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vanity_settlements_total",
			Help: "Total number of vanity settlement attempts",
		},
		[]string{"branch", "result"},
	)

	// LedgerSubmits tracks ledger-mutating submissions
	LedgerSubmits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vanity_ledger_submits_total",
			Help: "Total number of ledger transaction submissions",
		},
		[]string{"operation", "result"},
	)

	// SweptRecords tracks correlation records removed by the cleanup sweep
	SweptRecords = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vanity_swept_records_total",
			Help: "Total number of expired correlation records swept",
		},
	)

	// ExternalCallDuration tracks latency of upstream calls
	ExternalCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vanity_external_call_seconds",
			Help:    "Upstream call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	// DBConnectionPoolUsage tracks database connection pool utilization
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vanity_db_pool_usage_percent",
			Help: "Database connection pool usage percentage",
		},
	)
)
