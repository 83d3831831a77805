package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DispatchTotal — завершённые dispatch по виду, действию и результату.
	DispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dockflow_dispatch_total",
		Help: "Total dispatched node messages by kind, action and outcome",
	}, []string{"kind", "action", "outcome"})

	// DispatchDuration — длительность удалённого вызова.
	DispatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dockflow_dispatch_duration_seconds",
		Help:    "Duration of Docker Engine calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind", "action"})

	// StreamFramesTotal — кадры потоковых операций.
	StreamFramesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dockflow_stream_frames_total",
		Help: "Total frames emitted by streaming actions",
	}, []string{"action"})

	// StreamParseErrorsTotal — отброшенные кадры.
	StreamParseErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dockflow_stream_parse_errors_total",
		Help: "Total stream frames dropped because they could not be parsed",
	})

	// StreamsActive — открытые потоки.
	StreamsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dockflow_streams_active",
		Help: "Number of streaming actions currently delivering frames",
	})
)
