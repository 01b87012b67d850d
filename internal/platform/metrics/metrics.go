package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus instruments for the media pipeline. A nil
// *Metrics is valid and drops every observation, so library callers can
// leave instrumentation off.
type Metrics struct {
	registry             *prometheus.Registry
	uploadsTotal         *prometheus.CounterVec
	uploadBytesTotal     prometheus.Counter
	uploadDuration       prometheus.Histogram
	resolutionsTotal     *prometheus.CounterVec
	playbackRetriesTotal prometheus.Counter
	playbackStallsTotal  prometheus.Counter
	accessDeniedTotal    *prometheus.CounterVec
}

// New creates and registers Prometheus metrics for the pipeline.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	uploadsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "media_uploads_total",
		Help: "Total upload jobs by terminal result",
	}, []string{"result"})
	uploadBytesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "media_upload_bytes_total",
		Help: "Total bytes confirmed written to object storage",
	})
	uploadDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "media_upload_duration_seconds",
		Help:    "Wall time of single upload jobs",
		Buckets: prometheus.DefBuckets,
	})
	resolutionsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "media_resolutions_total",
		Help: "Total reference resolutions by outcome",
	}, []string{"outcome"})
	playbackRetriesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "media_playback_retries_total",
		Help: "Total automatic playback retries",
	})
	playbackStallsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "media_playback_stalls_total",
		Help: "Total playback attempts that hit the stall timeout",
	})
	accessDeniedTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "media_access_denied_total",
		Help: "Total negative access decisions by reason",
	}, []string{"reason"})

	registry.MustRegister(
		uploadsTotal,
		uploadBytesTotal,
		uploadDuration,
		resolutionsTotal,
		playbackRetriesTotal,
		playbackStallsTotal,
		accessDeniedTotal,
	)

	return &Metrics{
		registry:             registry,
		uploadsTotal:         uploadsTotal,
		uploadBytesTotal:     uploadBytesTotal,
		uploadDuration:       uploadDuration,
		resolutionsTotal:     resolutionsTotal,
		playbackRetriesTotal: playbackRetriesTotal,
		playbackStallsTotal:  playbackStallsTotal,
		accessDeniedTotal:    accessDeniedTotal,
	}
}

func (m *Metrics) ObserveUpload(result string, bytes int64, seconds float64) {
	if m == nil {
		return
	}
	m.uploadsTotal.WithLabelValues(result).Inc()
	if result == "succeeded" {
		m.uploadBytesTotal.Add(float64(bytes))
	}
	m.uploadDuration.Observe(seconds)
}

func (m *Metrics) IncResolution(outcome string) {
	if m == nil {
		return
	}
	m.resolutionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncPlaybackRetry() {
	if m == nil {
		return
	}
	m.playbackRetriesTotal.Inc()
}

func (m *Metrics) IncPlaybackStall() {
	if m == nil {
		return
	}
	m.playbackStallsTotal.Inc()
}

func (m *Metrics) IncAccessDenied(reason string) {
	if m == nil {
		return
	}
	m.accessDeniedTotal.WithLabelValues(reason).Inc()
}

// Handler returns an http.Handler that serves the pipeline metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
