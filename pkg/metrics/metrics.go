package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TileRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tile_requests_total",
		Help: "Total number of tile requests against the manager",
	})

	RAMHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tile_ram_hits_total",
		Help: "Total number of tile requests served from the in-memory tier",
	})

	DiskHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tile_disk_hits_total",
		Help: "Total number of tile fetches resolved from the disk tier",
	})

	UpstreamRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tile_upstream_requests_total",
		Help: "Total number of upstream tile fetches",
	})

	UpstreamLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tile_upstream_latency_seconds",
		Help:    "Latency of upstream tile fetches in seconds",
		Buckets: prometheus.DefBuckets,
	})

	FetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tile_fetch_failures_total",
		Help: "Total number of failed tile fetches",
	}, []string{"reason"})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tile_queue_depth",
		Help: "Number of tile addresses waiting in the fetch queue",
	})
)
