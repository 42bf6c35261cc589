// hh-scout ingests employer and vacancy listings from the HeadHunter API
// into a relational store and prints analytic reports over the result.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/mpetrenko/hh-scout/internal/config"
	"github.com/mpetrenko/hh-scout/internal/hh"
	"github.com/mpetrenko/hh-scout/internal/ingest"
	"github.com/mpetrenko/hh-scout/internal/observability"
	"github.com/mpetrenko/hh-scout/internal/repo"
	"github.com/mpetrenko/hh-scout/internal/sysutil"
)

const version = "0.1.0"

func main() {
	_ = godotenv.Load(sysutil.FirstNonEmpty(os.Getenv("ENV_FILE"), ".env"))

	cfg := config.MustLoad()
	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("setup tracing")
	}
	defer func() { _ = shutdownOTel(context.Background()) }()

	db, err := openDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	if err := repo.Provision(db); err != nil {
		log.Fatal().Err(err).Msg("provision schema")
	}

	go serveOps(cfg.MetricsPort)

	client := hh.NewClient(cfg.FetchTimeout, cfg.RateRPS, cfg.RateBurst)
	svc := &ingest.Service{
		Fetcher:           &hh.Fetcher{Pages: client, MaxRetries: uint64(cfg.FetchRetries)},
		Writer:            &repo.Writer{DB: db, Timeout: cfg.DBTimeout},
		EmployersEndpoint: cfg.BaseURL + "/employers",
		PageSize:          cfg.PageSize,
		EmployerPages:     cfg.EmployerPages,
		VacancyPages:      cfg.VacancyPages,
		TopEmployers:      cfg.TopEmployers,
	}

	runOnce := func() {
		if err := svc.Run(ctx); err != nil {
			log.Error().Err(err).Msg("ingestion run failed")
			return
		}
		if err := printReports(ctx, db, cfg.ReportKeyword); err != nil {
			log.Error().Err(err).Msg("report queries failed")
		}
	}

	if cfg.ScrapeIntervalHours == 0 {
		runOnce()
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %dh", cfg.ScrapeIntervalHours), runOnce); err != nil {
		log.Fatal().Err(err).Msg("schedule ingestion")
	}
	c.Start()
	log.Info().Int("interval_hours", cfg.ScrapeIntervalHours).Msg("scheduler started")

	// Populate the store without waiting for the first tick.
	runOnce()

	<-ctx.Done()
	c.Stop()
	log.Info().Msg("shutting down")
}

func openDB(cfg config.Config) (*gorm.DB, error) {
	if cfg.DBDriver == "sqlite" {
		return repo.OpenSQLite(cfg.DBPath)
	}
	return repo.OpenPostgres(cfg.DatabaseURL, cfg.OTEL.Enabled)
}

// serveOps exposes the health check and Prometheus metrics.
func serveOps(port string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":  "ok",
			"service": "hh-scout",
			"version": version,
		})
	})
	mux.Handle("/metrics", promhttp.Handler())

	addr := ":" + port
	log.Info().Str("addr", addr).Msg("ops endpoint listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("ops endpoint stopped")
	}
}
