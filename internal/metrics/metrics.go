package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameHTTPRequestsTotal,
			Help: HelpTextHTTPRequestsTotal,
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricNameHTTPRequestDuration,
			Help:    HelpTextHTTPRequestDuration,
			Buckets: HTTPLatencyBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameHTTPRequestsInFlight,
			Help: HelpTextHTTPRequestsInFlight,
		},
	)
)

// Loot Metrics
var (
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameUploadsTotal,
			Help: HelpTextUploadsTotal,
		},
		[]string{LabelResult},
	)

	ParsedEntriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNameParsedEntriesTotal,
			Help: HelpTextParsedEntriesTotal,
		},
	)

	PatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNamePatchesTotal,
			Help: HelpTextPatchesTotal,
		},
		[]string{LabelResult},
	)

	HistoryErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNameHistoryErrorsTotal,
			Help: HelpTextHistoryErrorsTotal,
		},
	)
)

// Sync Metrics
var (
	WSClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameWSClients,
			Help: HelpTextWSClients,
		},
	)

	BroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameBroadcastsTotal,
			Help: HelpTextBroadcastsTotal,
		},
		[]string{LabelType},
	)

	DroppedMessagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNameDroppedTotal,
			Help: HelpTextDroppedTotal,
		},
	)
)
