package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"clinicboard/internal/config"
	"clinicboard/internal/emr"
	"clinicboard/internal/observability/metrics"
	"clinicboard/internal/session"
	"clinicboard/internal/transport/rest"
)

func main() {
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", "clinicboard-server"),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", "clinicboard-server"),
	)
	slog.SetDefault(log)

	log.Info("starting",
		slog.String("http_addr", cfg.HTTPAddr),
		slog.String("log_level", cfg.LogLevel),
	)
	log.Info("clinic api configured", emrLogArgs(cfg.EMRBaseURL)...)

	backend := emr.NewClient(cfg.EMRBaseURL, cfg.EMRAPIKey, log, emr.WithTimeout(cfg.EMRTimeout))
	m := metrics.NewSchedulingMetrics(nil)
	sess := session.New(backend, log, m, session.Config{
		PersistTimeout:  cfg.PersistTimeout,
		SlotGranularity: cfg.SlotGranularity,
	})

	if cfg.LocationID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.EMRTimeout)
		if err := sess.SwitchLocation(ctx, cfg.LocationID, time.Now().UTC()); err != nil {
			log.Error("initial location load failed",
				slog.String("location_id", cfg.LocationID),
				slog.Any("err", err),
			)
			cancel()
			os.Exit(1)
		}
		cancel()
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           rest.NewRouter(rest.NewHandler(sess, log)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Info("http server started", slog.String("http_addr", cfg.HTTPAddr))

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
		shutdown(log, srv, cfg.ShutdownTimeout)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped with error", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

func shutdown(log *slog.Logger, srv *http.Server, timeout time.Duration) {
	log.Info("shutting down http server", slog.Duration("timeout", timeout))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("graceful shutdown timed out; forcing close", slog.Any("err", err))
		_ = srv.Close()
		return
	}
	log.Info("http server stopped")
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func emrLogArgs(baseURL string) []any {
	u, err := url.Parse(baseURL)
	if err != nil {
		return []any{slog.String("emr_url", "invalid")}
	}
	host := u.Hostname()
	if host == "" {
		host = "unknown"
	}
	port := u.Port()
	if port == "" {
		port = "default"
	}
	return []any{
		slog.String("emr_host", host),
		slog.String("emr_port", port),
	}
}
