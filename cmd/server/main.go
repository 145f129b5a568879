package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"checkpoint-route-service/internal/adapters/locks"
	"checkpoint-route-service/internal/adapters/repositories"
	"checkpoint-route-service/internal/api"
	"checkpoint-route-service/internal/config"
	"checkpoint-route-service/internal/platform/db"
	"checkpoint-route-service/internal/platform/logger"
	"checkpoint-route-service/internal/platform/metrics"
	"checkpoint-route-service/internal/platform/redisclient"
	"checkpoint-route-service/internal/ports"
	"checkpoint-route-service/internal/services"
)

// main is the application composition root.
// It wires concrete adapters (SQL storage, Redis or in-process locks) behind
// ports and starts the HTTP server.
func main() {
	foundEnv := config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		os.Stderr.WriteString("build logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	if !foundEnv {
		log.Info("no .env file found (using environment variables)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, cfg.DBDriver, dsn(cfg))
	if err != nil {
		log.Fatal("open database", "driver", cfg.DBDriver, "err", err)
	}
	defer conn.Close()

	dialect, err := repositories.ParseDialect(cfg.DBDriver)
	if err != nil {
		log.Fatal("resolve sql dialect", "err", err)
	}

	checkpoints := repositories.NewSQLCheckpointRepository(conn, dialect, log)
	directions := repositories.NewSQLShipmentDirectionRepository(conn, dialect)

	// Initialize schema and seed demo data on startup for local runs.
	if err := initAndSeed(ctx, conn, checkpoints, directions, cfg.SeedPath, log); err != nil {
		log.Fatal("init database", "err", err)
	}

	locker, closeLocker, err := newLocker(ctx, cfg, log)
	if err != nil {
		log.Fatal("build sequence locker", "err", err)
	}
	defer closeLocker()

	m := metrics.New(prometheus.DefaultRegisterer)

	svc, err := services.NewRoutingService(services.RoutingDeps{
		Checkpoints: checkpoints,
		Directions:  directions,
		Sequences:   repositories.NewSQLSequenceStore(conn, dialect, log),
		Ledger:      repositories.NewSQLInspectionLedger(conn, dialect, log),
		Locker:      locker,
		Options:     services.RouteOptions{MaxDepth: cfg.RouteMaxDepth},
		Metrics:     m,
		Log:         log,
	})
	if err != nil {
		log.Fatal("build routing service", "err", err)
	}

	router := api.NewRouter(api.RouterDeps{Service: svc, Log: log, Metrics: m})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server listening", "addr", srv.Addr, "driver", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
	}
}

func dsn(cfg config.Config) string {
	if cfg.DBDriver == config.DriverPostgres {
		return cfg.DatabaseURL
	}
	return cfg.DBPath
}

func initAndSeed(
	ctx context.Context,
	conn *sql.DB,
	checkpoints *repositories.SQLCheckpointRepository,
	directions *repositories.SQLShipmentDirectionRepository,
	seedPath string,
	log *logger.Logger,
) error {
	if err := repositories.InitSchema(ctx, conn); err != nil {
		return err
	}
	if seedPath == "" {
		return nil
	}

	res, err := repositories.SeedFromJSON(ctx, checkpoints, directions, seedPath)
	if err != nil {
		return err
	}
	log.Info("seeded checkpoint network",
		"path", seedPath,
		"checkpoints", res.Checkpoints,
		"links", res.Links,
		"directions", res.Directions,
	)
	return nil
}

// newLocker uses Redis when REDIS_URL is set so several server instances
// share sequence locks; a single instance falls back to in-process locks.
func newLocker(ctx context.Context, cfg config.Config, log *logger.Logger) (ports.SequenceLocker, func(), error) {
	client, err := redisclient.New(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		log.Info("sequence locks are process-local")
		return locks.NewLocalLocker(), func() {}, nil
	}

	log.Info("sequence locks use redis", "ttl", cfg.SequenceLockTTL.String())
	locker := locks.NewRedisLocker(client,
		locks.WithTTL(cfg.SequenceLockTTL),
		locks.WithLogger(log),
	)
	return locker, func() { _ = client.Close() }, nil
}
