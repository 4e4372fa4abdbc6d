package replay

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var storeWriteBytes = promauto.NewCounter(prometheus.CounterOpts{
	Name: "geyserd_replay_store_write_bytes_total",
	Help: "Total bytes written to the replay store",
})

var storeReadBytes = promauto.NewCounter(prometheus.CounterOpts{
	Name: "geyserd_replay_store_read_bytes_total",
	Help: "Total bytes read from the replay store by point lookups",
})

var storeWriteDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "geyserd_replay_store_write_duration_seconds",
	Help:    "Latency of replay store writes",
	Buckets: prometheus.ExponentialBuckets(0.00005, 4, 8),
}, []string{"op"})

// storeMetrics feeds pebblestore observations into Prometheus.
type storeMetrics struct{}

func (storeMetrics) ObserveWrite(d time.Duration, bytes int) {
	storeWriteBytes.Add(float64(bytes))
	storeWriteDuration.WithLabelValues("set").Observe(d.Seconds())
}

func (storeMetrics) ObserveRead(_ time.Duration, bytes int) {
	storeReadBytes.Add(float64(bytes))
}

func (storeMetrics) ObserveBatchCommit(d time.Duration, _ int, bytes int) {
	storeWriteBytes.Add(float64(bytes))
	storeWriteDuration.WithLabelValues("batch").Observe(d.Seconds())
}
