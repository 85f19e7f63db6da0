package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "distance_request_duration_seconds",
		Help:    "Time spent serving a distance calculation.",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "distance_cache_lookups_total",
		Help: "Distance cache lookups grouped by outcome.",
	}, []string{"result"})

	airportFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "airport_fetch_duration_seconds",
		Help:    "Latency of airport data provider calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})
)
