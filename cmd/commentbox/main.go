package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/MochaChoco/my-site/internal/auth"
	"github.com/MochaChoco/my-site/internal/backend"
	"github.com/MochaChoco/my-site/internal/backend/httpapi"
	"github.com/MochaChoco/my-site/internal/backend/memory"
	cbmongo "github.com/MochaChoco/my-site/internal/backend/mongo"
	"github.com/MochaChoco/my-site/internal/config"
	"github.com/MochaChoco/my-site/internal/host"
	"github.com/MochaChoco/my-site/internal/service"
	transporthttp "github.com/MochaChoco/my-site/internal/transport/http"
	"github.com/MochaChoco/my-site/internal/transport/http/handlers"
)

// Константы окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file (overrides CONFIG_PATH env)")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting commentbox", "env", cfg.Env, "backend", cfg.Backend.Kind)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	be, closeBackend, ready, err := newBackend(rootCtx, cfg, log)
	if err != nil {
		log.Error("backend_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer closeBackend()
	log.Info("backend_initialized", slog.String("kind", cfg.Backend.Kind))

	svc := service.New(be, cfg.Limits)

	tokens, err := auth.NewManager(cfg.Auth.Secret, auth.WithTTL(cfg.Auth.TTL), auth.WithIssuer(cfg.Auth.Issuer))
	if err != nil {
		log.Error("auth_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	widgets := host.New(svc, cfg.Widget, cfg.Timeouts.Backend, host.WithTokens(tokens), host.WithLogger(log))
	defer widgets.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	router := transporthttp.NewRouter(handlers.New(svc, widgets, ready), transporthttp.Options{
		Logger:    log,
		Timeout:   cfg.Timeouts.Service,
		RateRPM:   cfg.Rate.RPM,
		RateBurst: cfg.Rate.Burst,
		Tokens:    tokens,
		Registry:  reg,
	})

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErrCh := make(chan error, 1)
	go func() {
		log.Info("http_listen_start", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_force_stop", slog.String("err", err.Error()))
		_ = httpSrv.Close()
	}

	log.Info("service_stopped")
}

// newBackend собирает источник данных по cfg.Backend.Kind.
// Возвращает функцию освобождения ресурсов и проверку готовности (nil: всегда готов).
func newBackend(ctx context.Context, cfg *config.Config, log *slog.Logger) (backend.Backend, func(), handlers.Pinger, error) {
	switch cfg.Backend.Kind {
	case config.BackendMemory:
		return memory.New(memory.WithDelay(cfg.Backend.Delay), memory.WithLogger(log)), func() {}, nil, nil

	case config.BackendHTTP:
		hc := &http.Client{Timeout: cfg.Timeouts.Backend}
		return httpapi.New(cfg.Backend.APIURL, httpapi.WithHTTPClient(hc), httpapi.WithLogger(log)), func() {}, nil, nil

	case config.BackendMongo:
		dbCtx, dbCancel := context.WithTimeout(ctx, 10*time.Second)
		defer dbCancel()

		store, err := cbmongo.New(dbCtx, cfg.DB.URL, cfg.DB.Name, cbmongo.WithLogger(log))
		if err != nil {
			return nil, nil, nil, err
		}

		closeStore := func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = store.Close(closeCtx)
		}
		return store, closeStore, store, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown backend kind %q", cfg.Backend.Kind)
	}
}

// setupLogger: text для local, JSON для dev/prod.
func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
