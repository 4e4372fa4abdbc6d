package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var ingestMessages = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "geyserd_ingest_messages_total",
	Help: "Total number of messages dispatched, by kind",
}, []string{"kind"})

var ingestQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "geyserd_ingest_queue_depth",
	Help: "Messages waiting in the ingest queue",
})

var ingestOverflows = promauto.NewCounter(prometheus.CounterOpts{
	Name: "geyserd_ingest_overflows_total",
	Help: "Number of times the ingest queue was full",
})

var dispatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "geyserd_dispatch_duration_seconds",
	Help:    "Time spent fanning one message out to every session",
	Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
})

var sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "geyserd_sessions_active",
	Help: "Number of open subscriber sessions",
})

var sessionEvictions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "geyserd_session_evictions_total",
	Help: "Sessions terminated by the dispatcher, by reason",
}, []string{"reason"})

var messagesDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "geyserd_messages_delivered_total",
	Help: "Messages written to subscriber sinks, by kind",
}, []string{"kind"})

var updatesApplied = promauto.NewCounter(prometheus.CounterOpts{
	Name: "geyserd_subscription_updates_total",
	Help: "Subscription updates applied",
})

var replayedMessages = promauto.NewCounter(prometheus.CounterOpts{
	Name: "geyserd_replayed_messages_total",
	Help: "Messages delivered from the replay window",
})

var replayRejected = promauto.NewCounter(prometheus.CounterOpts{
	Name: "geyserd_replay_rejected_total",
	Help: "Replay requests rejected because history was unavailable",
})

var replayAppendErrors = promauto.NewCounter(prometheus.CounterOpts{
	Name: "geyserd_replay_append_errors_total",
	Help: "Failed appends to the replay window",
})
