package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Database Metrics
var DBQueryDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "db_query_duration_seconds",
	Help:    "Duration of database queries in seconds.",
	Buckets: prometheus.DefBuckets,
}, []string{"query_type", "repository", "status"})

var DBQueryErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "db_query_errors_total",
	Help: "Total number of failed database queries.",
}, []string{"query_type", "repository"})

// Object Store Metrics
var ImageUploadDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "image_upload_duration_seconds",
	Help:    "Duration of image uploads to the object store in seconds.",
	Buckets: prometheus.DefBuckets,
}, []string{"status"})

var ImageCleanupFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "image_cleanup_failures_total",
	Help: "Total number of best-effort image deletions that failed.",
})
