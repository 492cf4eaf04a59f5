// Package healthserver provides a shared health/metrics server for Kubernetes probes.
package healthserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handler builds the probe mux:
//   - /healthz - liveness probe (always returns 200 if process is alive)
//   - /readyz  - readiness probe (calls readyChecker to verify readiness)
//   - /metrics - Prometheus metrics endpoint
func Handler(logger *zap.Logger, readyChecker func() bool) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
		}
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if readyChecker != nil && readyChecker() {
			w.WriteHeader(http.StatusOK)
			if _, err := w.Write([]byte("ready")); err != nil {
				logger.Error("failed to write ready response", zap.Error(err))
			}
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
			if _, err := w.Write([]byte("not ready")); err != nil {
				logger.Error("failed to write not ready response", zap.Error(err))
			}
		}
	})
	return mux
}

// Start starts a health/metrics server on the specified port.
// The server runs in a goroutine and does not block.
func Start(logger *zap.Logger, port int, readyChecker func() bool) {
	go func() {
		addr := fmt.Sprintf("0.0.0.0:%d", port)
		server := &http.Server{
			Addr:              addr,
			Handler:           Handler(logger, readyChecker),
			ReadHeaderTimeout: 40 * time.Second,
		}
		logger.Info("Starting health/metrics server", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil {
			logger.Error("Health server error", zap.Error(err))
		}
	}()
}
