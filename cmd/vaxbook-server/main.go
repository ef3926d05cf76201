package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"
	"google.golang.org/grpc"

	"vaxbook/internal/config"
	"vaxbook/internal/ingest"
	"vaxbook/internal/metrics"
	"vaxbook/internal/service/scheduling"
	"vaxbook/internal/store"
	"vaxbook/internal/store/memory"
	"vaxbook/internal/store/postgres"
	grpcTransport "vaxbook/internal/transport/grpc"
	httpTransport "vaxbook/internal/transport/http"
	"vaxbook/migrations"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", "vaxbook-server"),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", "vaxbook-server"),
	)
	slog.SetDefault(log)

	log.Info(
		"starting",
		slog.String("grpc_addr", cfg.GRPCAddr),
		slog.String("http_addr", cfg.HTTPAddr),
		slog.String("log_level", cfg.LogLevel),
		slog.Int("horizon_days", cfg.HorizonDays),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, db, err := openRepository(ctx, log, cfg)
	if err != nil {
		os.Exit(1)
	}
	defer func() {
		if err := postgres.Close(db); err != nil {
			log.Warn("database close failed", slog.Any("err", err))
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder, err := metrics.NewRecorder(reg)
	if err != nil {
		log.Error("metrics setup failed", slog.Any("err", err))
		os.Exit(1)
	}

	svc := scheduling.NewService(repo, scheduling.Options{
		HorizonDays: cfg.HorizonDays,
		Metrics:     recorder,
		Log:         log,
	})
	if err := svc.Restore(ctx); err != nil {
		log.Error("restore failed", slog.Any("err", err))
		os.Exit(1)
	}
	if cfg.DataFile != "" {
		if stats := svc.Stats(ctx); !stats.Empty() {
			log.Info(
				"data file skipped; store already holds data",
				slog.String("file", cfg.DataFile),
				slog.Int("persons", stats.Persons),
				slog.Int("lots", stats.Lots),
			)
		} else if err := importDataFile(ctx, log, svc, cfg.DataFile); err != nil {
			os.Exit(1)
		}
	}

	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(grpcTransport.RequestTimeoutInterceptor(cfg.GRPCRequestTimeout)),
	)
	grpcTransport.RegisterSchedulingServiceServer(grpcServer, grpcTransport.NewSchedulingServer(svc, log))

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Error("grpc listen failed", slog.Any("err", err), slog.String("grpc_addr", cfg.GRPCAddr))
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpTransport.NewRouter(httpTransport.Options{
			Service: svc,
			Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			Log:     log,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- grpcServer.Serve(lis)
	}()
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	log.Info("servers started", slog.String("grpc_addr", cfg.GRPCAddr), slog.String("http_addr", cfg.HTTPAddr))

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
		shutdown(log, grpcServer, httpServer, cfg.ShutdownTimeout)
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Error("server stopped with error", slog.Any("err", err))
			shutdown(log, grpcServer, httpServer, cfg.ShutdownTimeout)
			os.Exit(1)
		}
	}
}

// openRepository returns the postgres repository when a database URL is configured and
// the in-memory one otherwise. db is nil for the in-memory store.
func openRepository(ctx context.Context, log *slog.Logger, cfg config.Config) (store.Repository, *bun.DB, error) {
	if cfg.DatabaseURL == "" {
		log.Warn("no database configured; using in-memory store")
		return memory.NewRepository(), nil, nil
	}

	log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
	db, err := postgres.Open(ctx, cfg.DatabaseURL, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		args := append([]any{slog.Any("err", err)}, databaseLogArgs(cfg.DatabaseURL)...)
		log.Error("database connection failed", args...)
		return nil, nil, err
	}

	if cfg.DatabaseMigrate {
		applied, err := postgres.Migrate(ctx, db, migrations.FS)
		if err != nil {
			log.Error("database migration failed", slog.Any("err", err))
			_ = postgres.Close(db)
			return nil, nil, err
		}
		log.Info("database migrated", slog.Any("applied", applied))
	}

	return postgres.NewRepository(db), db, nil
}

func importDataFile(ctx context.Context, log *slog.Logger, svc *scheduling.Service, path string) error {
	entries, err := ingest.LoadFile(path)
	if err != nil {
		log.Error("data file parse failed", slog.Any("err", err), slog.String("file", path))
		return err
	}
	res, err := svc.Import(ctx, entries)
	if err != nil {
		log.Error("data file import failed", slog.Any("err", err), slog.String("file", path))
		return err
	}
	log.Info(
		"data file imported",
		slog.String("file", path),
		slog.Int("persons", res.Persons),
		slog.Int("lots", res.Lots),
		slog.Int("skipped", res.Skipped),
	)
	return nil
}

func shutdown(log *slog.Logger, s *grpc.Server, hs *http.Server, timeout time.Duration) {
	log.Info("shutting down servers", slog.Duration("timeout", timeout))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := hs.Shutdown(ctx); err != nil {
		log.Warn("http shutdown failed", slog.Any("err", err))
	}

	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		log.Info("grpc server stopped")
	case <-ctx.Done():
		log.Warn("grpc graceful shutdown timed out; forcing stop")
		s.Stop()
	}
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

func databaseLogArgs(databaseURL string) []any {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
