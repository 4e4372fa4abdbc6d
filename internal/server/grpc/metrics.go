package grpcserver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var grpcRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "geyserd_grpc_requests_total",
	Help: "gRPC calls by method and final status code.",
}, []string{"method", "code"})

var grpcStreamsActive = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "geyserd_grpc_streams_active",
	Help: "Open Subscribe streams.",
})

var grpcUpdatesSent = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "geyserd_grpc_updates_sent_total",
	Help: "Subscribe frames written, by payload.",
}, []string{"payload"})
