package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	StatementsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minipar_statements_executed_total",
		Help: "Total number of statements executed by the interpreter, by statement kind.",
	}, []string{"kind"})

	ParChildren = promauto.NewCounter(prometheus.CounterOpts{
		Name: "minipar_par_children_total",
		Help: "Total number of PAR children started.",
	})

	ChannelMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minipar_channel_messages_total",
		Help: "Total number of channel messages, by direction.",
	}, []string{"direction"})

	ChannelBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minipar_channel_bytes_total",
		Help: "Total number of channel payload bytes, by direction.",
	}, []string{"direction"})

	SemanticErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "minipar_semantic_errors_total",
		Help: "Total number of semantic errors reported.",
	})

	RuntimeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "minipar_runtime_errors_total",
		Help: "Total number of execution errors raised by statements.",
	})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "minipar_run_duration_seconds",
		Help:    "Wall time of a full program run, front end included.",
		Buckets: prometheus.DefBuckets,
	})
)

// Channel traffic directions.
const (
	DirectionSend    = "send"
	DirectionReceive = "receive"
)
