// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Campaign metrics
	CampaignsCreated prometheus.Counter
	GroupsRegistered prometheus.Counter
	AllowListUpdates prometheus.Counter

	// Mint metrics
	MintsTotal            *prometheus.CounterVec
	EligibilityRejections *prometheus.CounterVec

	// Item loading metrics
	ItemBatchesTotal *prometheus.CounterVec
	ItemsLoaded      prometheus.Counter

	// Lifecycle metrics
	ThawsTotal       prometheus.Counter
	FundsUnlocked    prometheus.Counter
	FrozenAssetGauge prometheus.Gauge

	// Ledger metrics
	LedgerSubmissions *prometheus.CounterVec
	RPCCallLatency    *prometheus.HistogramVec
	ConfirmLatency    prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulMint prometheus.Gauge
	UptimeSeconds      prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "mint_campaign"
	}

	return &Metrics{
		// Campaign metrics
		CampaignsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "campaign",
			Name:      "created_total",
			Help:      "Total number of campaigns created",
		}),
		GroupsRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "campaign",
			Name:      "groups_registered_total",
			Help:      "Total number of guard groups registered",
		}),
		AllowListUpdates: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "campaign",
			Name:      "allow_list_updates_total",
			Help:      "Total number of allow-list replacements",
		}),

		// Mint metrics
		MintsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mint",
			Name:      "mints_total",
			Help:      "Total number of completed mints by group label",
		}, []string{"label"}),
		EligibilityRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mint",
			Name:      "eligibility_rejections_total",
			Help:      "Total number of mints rejected at the eligibility pre-check",
		}, []string{"label", "reason"}),

		// Item loading metrics
		ItemBatchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "items",
			Name:      "batches_total",
			Help:      "Total number of item insertion batches by status",
		}, []string{"status"}),
		ItemsLoaded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "items",
			Name:      "loaded_total",
			Help:      "Total number of items confirmed loaded",
		}),

		// Lifecycle metrics
		ThawsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "thaws_total",
			Help:      "Total number of assets thawed",
		}),
		FundsUnlocked: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "funds_unlocked_total",
			Help:      "Total number of fund-unlock operations",
		}),
		FrozenAssetGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "frozen_assets",
			Help:      "Current number of assets in frozen state",
		}),

		// Ledger metrics
		LedgerSubmissions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "submissions_total",
			Help:      "Total number of transaction submissions by status",
		}, []string{"status"}),
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "rpc_call_latency_seconds",
			Help:      "Ledger RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		ConfirmLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "confirm_latency_seconds",
			Help:      "Transaction confirmation latency in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60},
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulMint: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_mint_timestamp",
			Help:      "Unix timestamp of last successful mint",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordCampaignCreated increments campaign creation counters.
func RecordCampaignCreated(groupCount int) {
	DefaultMetrics.CampaignsCreated.Inc()
	DefaultMetrics.GroupsRegistered.Add(float64(groupCount))
}

// RecordGroupRegistered increments the group registration counter.
func RecordGroupRegistered() {
	DefaultMetrics.GroupsRegistered.Inc()
}

// RecordAllowListUpdate increments the allow-list replacement counter.
func RecordAllowListUpdate() {
	DefaultMetrics.AllowListUpdates.Inc()
}

// RecordMint records a completed mint.
func RecordMint(label string, timestamp float64) {
	DefaultMetrics.MintsTotal.WithLabelValues(label).Inc()
	DefaultMetrics.LastSuccessfulMint.Set(timestamp)
}

// RecordEligibilityRejection records a mint rejected before submission.
func RecordEligibilityRejection(label, reason string) {
	DefaultMetrics.EligibilityRejections.WithLabelValues(label, reason).Inc()
}

// RecordItemBatch records one item insertion batch outcome.
func RecordItemBatch(status string, itemCount int) {
	DefaultMetrics.ItemBatchesTotal.WithLabelValues(status).Inc()
	if status == "success" {
		DefaultMetrics.ItemsLoaded.Add(float64(itemCount))
	}
}

// RecordThaw increments the thaw counter.
func RecordThaw() {
	DefaultMetrics.ThawsTotal.Inc()
	DefaultMetrics.FrozenAssetGauge.Dec()
}

// RecordFreeze bumps the frozen asset gauge on mint under a freeze group.
func RecordFreeze() {
	DefaultMetrics.FrozenAssetGauge.Inc()
}

// RecordFundsUnlocked increments the fund-unlock counter.
func RecordFundsUnlocked() {
	DefaultMetrics.FundsUnlocked.Inc()
}

// RecordLedgerSubmission records a transaction submission outcome.
func RecordLedgerSubmission(status string) {
	DefaultMetrics.LedgerSubmissions.WithLabelValues(status).Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordConfirmLatency records confirmation latency.
func RecordConfirmLatency(seconds float64) {
	DefaultMetrics.ConfirmLatency.Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
