// cmd/server runs the hedge fund engine: REST + SSE control surface, a
// WebSocket monitoring hub, and a Prometheus metrics/health server.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hedgefund-systemv1/config"
	"hedgefund-systemv1/internal/fund"
	"hedgefund-systemv1/internal/gateway"
	"hedgefund-systemv1/internal/journal"
	"hedgefund-systemv1/internal/logger"
	"hedgefund-systemv1/internal/marketdata"
	"hedgefund-systemv1/internal/metrics"
	"hedgefund-systemv1/internal/notify"
)

func main() {
	cfg := config.Load()
	log := logger.Init("hedgefund-server", cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Market data: HTTP client behind a circuit breaker, optionally fronted
	// by the Redis cache.
	client := marketdata.NewClient(marketdata.ClientConfig{
		BaseURL: cfg.MarketDataBaseURL,
		APIKey:  cfg.MarketDataAPIKey,
	})
	var source marketdata.Source = marketdata.NewBreakerSource(client, 5, 30*time.Second)
	var cache *marketdata.Cache
	if cfg.RedisAddr != "" {
		var err error
		cache, err = marketdata.NewCache(marketdata.CacheConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			log.Warn("redis unavailable, cache disabled", slog.String("error", err.Error()))
		} else {
			source = &marketdata.CachedSource{Source: source, Cache: cache}
			defer cache.Close()
		}
	}

	jnl, err := journal.Open(cfg.JournalPath)
	if err != nil {
		log.Error("journal open failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer jnl.Close()

	var notifier notify.Notifier = notify.NewLogNotifier()
	if cfg.AlertWebhook != "" {
		notifier = notify.NewWebhookNotifier(cfg.AlertWebhook)
	}

	prom := metrics.NewMetrics()
	collector := metrics.NewCollector(10000)
	health := metrics.NewHealthStatus()
	health.StartLivenessChecker(ctx, cache.Client(), jnl.DB(), 10*time.Second)

	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	svc := fund.NewService(fund.Deps{
		Source:          source,
		Journal:         jnl,
		Prom:            prom,
		Collector:       collector,
		Notifier:        notifier,
		Health:          health,
		Logger:          log,
		DefaultInterval: time.Duration(cfg.CycleIntervalS) * time.Second,
	})

	hub := gateway.NewHub(svc, collector, prom, log)
	go hub.Run(ctx)

	api := gateway.NewServer(svc, hub, prom, collector, health, log)
	mux := http.NewServeMux()
	api.RegisterRoutes(mux)

	httpSrv := &http.Server{Addr: cfg.ServerAddr, Handler: mux}
	go func() {
		log.Info("http server listening", slog.String("addr", cfg.ServerAddr))
		if err := httpSrv.ListenAndServe(); err != http.ErrServerClosed {
			log.Error("http server failed", slog.String("error", err.Error()))
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		log.Info("shutdown signal received", slog.String("signal", s.String()))
	case <-ctx.Done():
	}

	svc.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpSrv.Shutdown(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)
	log.Info("shutdown complete")
}
