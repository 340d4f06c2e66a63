package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "whisper_messages_processed_total",
		Help: "Total number of queue messages handled, by outcome",
	}, []string{"outcome"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "whisper_stage_duration_seconds",
		Help:    "Duration of each transcription pipeline stage",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600},
	}, []string{"stage"})

	LeaseGrantedSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "whisper_lease_granted_seconds",
		Help:    "Visibility timeout requested before transcription",
		Buckets: prometheus.ExponentialBuckets(30, 2, 11),
	})

	ArtifactsPersistedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "whisper_artifacts_persisted_total",
		Help: "Total number of artifacts written to the object store, by kind",
	}, []string{"kind"})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "whisper_active_workers",
		Help: "Number of workers currently processing a message",
	})

	ReceiveErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "whisper_receive_errors_total",
		Help: "Total number of failed queue receive calls",
	})
)
