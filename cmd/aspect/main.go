package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/aspect-console/aspect/pkg/api"
	"github.com/aspect-console/aspect/pkg/auth"
	"github.com/aspect-console/aspect/pkg/config"
	"github.com/aspect-console/aspect/pkg/observability"
	"github.com/aspect-console/aspect/pkg/storage"
)

func main() {
	migrateOnly := flag.Bool("migrate", false, "apply pending migrations and exit")
	seedFile := flag.String("seed", "", "load the YAML fixture file and exit")
	flag.Parse()

	if err := run(*migrateOnly, *seedFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(migrateOnly bool, seedFile string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.LogLevel, os.Stdout)

	db, err := sql.Open("sqlite3", cfg.Database.File)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := storage.Migrate(ctx, db, logger); err != nil {
		return err
	}
	if migrateOnly {
		logger.Info("migrations applied")
		return nil
	}

	if seedFile != "" {
		data, err := storage.LoadSeedFile(seedFile)
		if err != nil {
			return err
		}
		return storage.Seed(ctx, db, data, logger)
	}

	return serve(ctx, cfg, db, logger)
}

func serve(ctx context.Context, cfg *config.Config, db *sql.DB, logger *observability.Logger) error {
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	verifier, err := auth.NewVerifier(ctx, cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to build token verifier: %w", err)
	}

	server := api.NewServer(cfg, db, verifier, logger, metrics)

	health := observability.NewHealthChecker(db)
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", health.Liveness)
	healthMux.HandleFunc("/readyz", health.Readiness)
	healthMux.Handle("/metrics", metrics.Handler())
	healthServer := &http.Server{
		Addr:    cfg.Server.HealthAddr(),
		Handler: healthMux,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(server.Start)

	g.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("starting health server")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("API server shutdown failed")
		}
		return healthServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
