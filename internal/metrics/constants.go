package metrics

// Metric names
const (
	MetricNameHTTPRequestsTotal    = "lootsync_http_requests_total"
	MetricNameHTTPRequestDuration  = "lootsync_http_request_duration_seconds"
	MetricNameHTTPRequestsInFlight = "lootsync_http_requests_in_flight"

	MetricNameUploadsTotal       = "lootsync_uploads_total"
	MetricNameParsedEntriesTotal = "lootsync_parsed_entries_total"
	MetricNameWSClients          = "lootsync_ws_clients"
	MetricNameBroadcastsTotal    = "lootsync_broadcasts_total"
	MetricNameDroppedTotal       = "lootsync_ws_dropped_messages_total"
	MetricNamePatchesTotal       = "lootsync_patches_total"
	MetricNameHistoryErrorsTotal = "lootsync_history_errors_total"
)

// Help texts
const (
	HelpTextHTTPRequestsTotal    = "Total number of HTTP requests"
	HelpTextHTTPRequestDuration  = "HTTP request latency in seconds"
	HelpTextHTTPRequestsInFlight = "Number of HTTP requests currently being served"

	HelpTextUploadsTotal       = "Log uploads by outcome"
	HelpTextParsedEntriesTotal = "Loot entries extracted from uploaded logs"
	HelpTextWSClients          = "Connected WebSocket clients"
	HelpTextBroadcastsTotal    = "Messages broadcast to WebSocket clients by type"
	HelpTextDroppedTotal       = "Outbound messages dropped for slow or closed clients"
	HelpTextPatchesTotal       = "Item updates by result"
	HelpTextHistoryErrorsTotal = "Failed history appends"
)

// Labels
const (
	LabelMethod = "method"
	LabelPath   = "path"
	LabelStatus = "status"
	LabelType   = "type"
	LabelResult = "result"
)

// Label values
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultNoop     = "noop"
	ResultFinal    = "finalized"
)

// HTTPLatencyBuckets covers fast API reads up to large uploads.
var HTTPLatencyBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5}
