package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"shipnotify/internal/config"
	"shipnotify/internal/dispatch"
	"shipnotify/internal/httpapi"
	"shipnotify/internal/logging"
	"shipnotify/internal/observability"
	"shipnotify/internal/providers"
	"shipnotify/internal/settings"
	"shipnotify/internal/store/pg"
	"shipnotify/internal/util"
)

func main() {
	cfg := config.LoadAPI()
	logging.Init("api", cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := pg.NewPool(ctx, cfg.DBDSN, pg.PoolOptions{
		MaxConns:        cfg.DBPoolMaxConns,
		MinConns:        cfg.DBPoolMinConns,
		MaxConnLifetime: cfg.DBPoolMaxConnLifetime,
		MaxConnIdleTime: cfg.DBPoolMaxConnIdleTime,
	})
	if err != nil {
		slog.Error("api db connect failed", "err", err)
		os.Exit(1)
	}

	observability.Register(prometheus.DefaultRegisterer)

	store := pg.New(db)
	cache := settings.NewCache(store, mustDuration(cfg.ConfigCacheTTL, "CONFIG_CACHE_TTL"))

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "provider-send",
		Timeout: mustDuration(cfg.BreakerOpenPeriod, "BREAKER_OPEN_PERIOD"),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerMaxFails
		},
	})

	providerTimeout := mustDuration(cfg.ProviderTimeout, "PROVIDER_TIMEOUT")
	dispatcher := &dispatch.Dispatcher{
		Configs:         cache,
		Templates:       store,
		Log:             store,
		Adapters:        providers.NewFactory(&http.Client{Timeout: providerTimeout}),
		Limiter:         rate.NewLimiter(rate.Limit(cfg.SendRPS), cfg.SendBurst),
		Breaker:         breaker,
		TrackingBaseURL: cfg.TrackingBaseURL,
		ProviderTimeout: providerTimeout,
		IDGen:           util.NewEntryID,
		Now:             util.NowUTC,
	}

	s := httpapi.New()
	api := &httpapi.API{Dispatcher: dispatcher}
	api.Register(s.Mux)

	admin := &httpapi.Admin{
		Configs:    store,
		Templates:  store,
		Logs:       store,
		Cache:      cache,
		Adapters:   dispatcher.Adapters,
		Dispatcher: dispatcher,
		IDGen:      util.NewConfigID,
		Now:        util.NowUTC,
	}
	admin.Register(s.Mux)

	s.Mux.HandleFunc("/healthz", httpapi.Healthz())
	s.Mux.HandleFunc("/readyz", httpapi.Readyz(2*time.Second, func(ctx context.Context) error {
		return db.Ping(ctx)
	}))

	handler := httpapi.Logging(httpapi.Metrics(observability.APIRequests)(s.Mux))
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("api shutdown", "signal", sig.String())
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("api listening", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("api server failed", "err", err)
		os.Exit(1)
	}

	db.Close()
}

func mustDuration(raw, name string) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil {
		slog.Error("invalid duration", "env", name, "value", raw)
		os.Exit(1)
	}
	return d
}
