package main

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/deusflow/newscurator/internal/logger"
	"github.com/deusflow/newscurator/internal/metrics"
)

func startMonitoringServer() {
	port := os.Getenv("MONITORING_PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           monitoringMux(metrics.Global),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting monitoring server", "port", port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("monitoring server error", "error", err)
	}
}

func monitoringMux(m *metrics.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler(m))
	mux.HandleFunc("/metrics", metricsHandler(m))
	return mux
}

func healthHandler(m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		stats := m.GetStats()

		status := "ok"
		code := http.StatusOK
		if healthy, _ := stats["is_healthy"].(bool); !healthy {
			status = "error"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":     status,
			"last_run":   stats["last_run_time"],
			"last_error": stats["last_error"],
		})
	}
}

func metricsHandler(m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(m.GetStats())
	}
}
