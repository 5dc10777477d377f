// Package metrics holds the Prometheus collectors for the conversion pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline outcomes used as the "outcome" label.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Conversion metrics
var (
	ConversionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gifgrab_conversions_total",
			Help: "Total number of post to GIF conversions.",
		},
		[]string{"provider", "outcome"},
	)

	ConversionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gifgrab_conversion_duration_seconds",
			Help:    "Duration of post to GIF conversions.",
			Buckets: []float64{1, 2.5, 5, 10, 20, 40, 80, 160, 320},
		},
		[]string{"provider", "outcome"},
	)

	StrategyAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gifgrab_strategy_attempts_total",
			Help: "Total number of media acquisition attempts by strategy.",
		},
		[]string{"strategy", "outcome"},
	)

	EncodesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gifgrab_encodes_total",
			Help: "Total number of GIF encodes by media kind and method.",
		},
		[]string{"kind", "method"},
	)

	GIFSizeBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gifgrab_gif_size_bytes",
			Help:    "Size of produced GIFs.",
			Buckets: prometheus.ExponentialBuckets(64*1024, 2, 10),
		},
	)

	VideoDownloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gifgrab_video_downloads_total",
			Help: "Total number of video downloads.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		ConversionsTotal,
		ConversionDuration,
		StrategyAttemptsTotal,
		EncodesTotal,
		GIFSizeBytes,
		VideoDownloadsTotal,
	)
}

// Outcome maps an error to an outcome label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

// ObserveConversion records one finished conversion.
func ObserveConversion(provider string, err error, elapsed time.Duration) {
	outcome := Outcome(err)
	ConversionsTotal.WithLabelValues(provider, outcome).Inc()
	ConversionDuration.WithLabelValues(provider, outcome).Observe(elapsed.Seconds())
}
