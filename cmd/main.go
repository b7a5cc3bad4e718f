package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/angeloszaimis/rpc-proxy/config"
	"github.com/angeloszaimis/rpc-proxy/internal/endpoint"
	"github.com/angeloszaimis/rpc-proxy/internal/forwarder"
	"github.com/angeloszaimis/rpc-proxy/internal/handler"
	"github.com/angeloszaimis/rpc-proxy/internal/httpserver"
	"github.com/angeloszaimis/rpc-proxy/internal/metrics"
	"github.com/angeloszaimis/rpc-proxy/internal/pool"
	"github.com/angeloszaimis/rpc-proxy/internal/ratelimit"
	"github.com/angeloszaimis/rpc-proxy/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	endpoints, err := initializeEndpoints(cfg, log)
	if err != nil {
		log.Error("Failed to initialize endpoints", slog.Any("err", err))
		os.Exit(1)
	}

	endpointPool, err := pool.New(endpoints, cfg.RecoveryWindow())
	if err != nil {
		log.Error("Failed to create endpoint pool", slog.Any("err", err))
		os.Exit(1)
	}

	collector := metrics.NewCollector(cfg.Metrics.BufferSize, log)
	collector.Start(ctx)

	proxyHandler := handler.NewProxyHandler(
		log,
		endpointPool,
		forwarder.New(cfg.UpstreamTimeout()),
		ratelimit.New(cfg.Proxy.RateLimitMarkers),
		collector,
		cfg.Proxy.MaxBodyBytes,
	)

	mux := setupRouter(log, proxyHandler, handler.NewHealthHandler(endpointPool), collector)

	srv, err := httpserver.New(cfg.Server.Address, mux)
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("Proxy listening",
		slog.String("address", cfg.Server.Address),
		slog.Int("endpoints", len(endpoints)),
		slog.String("recovery_window", cfg.Proxy.RecoveryWindow))

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting proxy", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

func initializeEndpoints(cfg *config.Config, log *slog.Logger) ([]*endpoint.Endpoint, error) {
	var endpoints []*endpoint.Endpoint

	for _, ec := range cfg.Endpoints {
		u, err := url.Parse(ec.URL)

		if err != nil {
			log.Error("Failed to parse URL",
				slog.String("url", ec.URL),
				slog.String("error", err.Error()))
			continue
		}

		endpoints = append(endpoints, endpoint.New(u))
	}

	if len(endpoints) == 0 {
		return nil, fmt.Errorf("no valid endpoints configured")
	}

	return endpoints, nil
}
