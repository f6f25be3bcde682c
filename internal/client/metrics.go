package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xupdate_fetch_total",
		Help: "Total number of API fetches by endpoint and outcome",
	}, []string{"endpoint", "outcome"})

	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "xupdate_fetch_duration_seconds",
		Help:    "Duration of API fetches",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms up to ~20s
	}, []string{"endpoint"})
)
