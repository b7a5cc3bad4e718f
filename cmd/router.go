package main

import (
	"log/slog"
	"net/http"

	"github.com/angeloszaimis/rpc-proxy/internal/handler"
	"github.com/angeloszaimis/rpc-proxy/internal/metrics"
)

func setupRouter(log *slog.Logger, proxyHandler *handler.ProxyHandler, healthHandler *handler.HealthHandler, metricsCollector *metrics.Collector) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/", handler.RequestLogging(log, proxyHandler))
	mux.Handle("/health", healthHandler)
	mux.HandleFunc("/metrics", metricsCollector.Handler())

	return mux
}
