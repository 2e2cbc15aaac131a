package ports

type Observability interface {
	LogInfo(msg string, fields ...Field)
	LogWarn(msg string, fields ...Field)
	LogError(msg string, err error, fields ...Field)

	IncCounter(name string, v float64)
	ObserveLatency(name string, seconds float64)

	SetGauge(name string, v float64)
}

type Field struct {
	Key   string
	Value any
}

// Metric names understood by the Prometheus adapter.
const (
	MetricSamplesReceived   = "trackgate_samples_received_total"
	MetricSamplesForwarded  = "trackgate_samples_forwarded_total"
	MetricSamplesGated      = "trackgate_samples_gated_total"
	MetricCadenceAnomalies  = "trackgate_cadence_anomalies_total"
	MetricMalformedWindows  = "trackgate_malformed_windows_total"
	MetricUploadsSucceeded  = "trackgate_uploads_succeeded_total"
	MetricUploadsFailed     = "trackgate_uploads_failed_total"
	MetricHistoryDropped    = "trackgate_history_dropped_total"
	MetricUploadLatency     = "trackgate_upload_latency_seconds"
	MetricSampleInterval    = "trackgate_sample_interval_seconds"
	MetricUploadsInFlight   = "trackgate_uploads_in_flight"
	MetricTrackingActive    = "trackgate_tracking_active"
	MetricLivenessHeld      = "trackgate_liveness_held"
	MetricHistoryQueueDepth = "trackgate_history_queue_length"
	MetricHistoryQueueAge   = "trackgate_history_queue_age_seconds"
	MetricReadoutsDropped   = "trackgate_readouts_dropped_total"
)
