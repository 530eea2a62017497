package metrics

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	initOnce    sync.Once
	serverMutex sync.Mutex
	currentSrv  *http.Server

	// CandidatesTotal counts URLs recognized as local upload candidates
	CandidatesTotal prometheus.Counter

	// FilesRemovedTotal counts files actually deleted
	FilesRemovedTotal prometheus.Counter

	// DeleteErrorsTotal counts per-file delete failures
	DeleteErrorsTotal prometheus.Counter

	// RunDuration tracks how long GC runs take
	RunDuration prometheus.Histogram

	// LastRunTimestamp records Unix timestamp of the last GC run
	LastRunTimestamp prometheus.Gauge
)

// Init initializes and registers all metrics with Prometheus
// Safe to call multiple times (uses sync.Once)
func Init() {
	initOnce.Do(func() {
		CandidatesTotal = NewCounter(
			"uploadsgc_candidates_total",
			"Total number of URLs recognized as local upload candidates.",
		)
		FilesRemovedTotal = NewCounter(
			"uploadsgc_files_removed_total",
			"Total number of upload files removed.",
		)
		DeleteErrorsTotal = NewCounter(
			"uploadsgc_delete_errors_total",
			"Total number of per-file delete failures.",
		)
		RunDuration = NewDurationHistogram(
			"uploadsgc_run_duration_seconds",
			"Duration of GC runs in seconds.",
		)
		LastRunTimestamp = NewGauge(
			"uploadsgc_last_run_timestamp",
			"Timestamp of the last GC run (Unix epoch seconds).",
		)

		prometheus.MustRegister(CandidatesTotal)
		prometheus.MustRegister(FilesRemovedTotal)
		prometheus.MustRegister(DeleteErrorsTotal)
		prometheus.MustRegister(RunDuration)
		prometheus.MustRegister(LastRunTimestamp)

		// Default values so the series appear in /metrics before the
		// first run completes
		LastRunTimestamp.Set(0)
	})
}

// RecordRun updates the last run timestamp and observes the run duration
func RecordRun(duration time.Duration) {
	LastRunTimestamp.Set(float64(time.Now().Unix()))
	RunDuration.Observe(duration.Seconds())
}

// StartServer starts the metrics HTTP server on the specified address
// Exposes /metrics (Prometheus) and /health
func StartServer(addr string, logger *log.Logger) {
	serverMutex.Lock()
	defer serverMutex.Unlock()

	if currentSrv != nil {
		logger.Printf("metrics server already running on %s", currentSrv.Addr)
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","healthy":true}`))
	})

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	currentSrv = srv

	go func() {
		logger.Printf("metrics server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("metrics server error: %v", err)
		}
	}()
}

// Shutdown gracefully shuts down the metrics server
func Shutdown(ctx context.Context, logger *log.Logger) {
	serverMutex.Lock()
	defer serverMutex.Unlock()

	if currentSrv == nil {
		return
	}

	if err := currentSrv.Shutdown(ctx); err != nil {
		logger.Printf("metrics server shutdown error: %v", err)
	}
	currentSrv = nil
}
