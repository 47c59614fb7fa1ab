package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jask/jangbu/internal/api"
	"github.com/jask/jangbu/internal/config"
	"github.com/jask/jangbu/internal/database"
	"github.com/jask/jangbu/internal/database/repository"
	"github.com/jask/jangbu/internal/ingest"
	"github.com/jask/jangbu/internal/logger"
	"github.com/jask/jangbu/internal/metrics"
	"github.com/jask/jangbu/internal/service"
)

// app holds the wired services for one command invocation.
type app struct {
	cfg config.Config
	db  *sql.DB
	log zerolog.Logger
	svc api.Services
}

var (
	dbPath   string
	logLevel string
)

func main() {
	root := &cobra.Command{
		Use:           "jangbu",
		Short:         "Ingest, search and correct an accounting ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dbPath, "db", "", "ledger database path (overrides config)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides config)")

	root.AddCommand(
		ingestCmd(),
		searchCmd(),
		facetsCmd(),
		dupesCmd(),
		updateCmd(),
		deleteCmd(),
		clearCmd(),
		listCmd(),
		serveCmd(),
		seedCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
}

// setup loads config, migrates and opens the store, and wires services. The
// returned context carries the logger.
func setup(cmd *cobra.Command) (context.Context, *app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	layout, err := ingest.LayoutFromPositions(cfg.Ingest.Columns)
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("mkdir db dir: %w", err)
	}
	if err := database.RunMigrations(cfg.Database.Path); err != nil {
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}

	lr := repository.NewLedgerRepo(db)
	br := repository.NewBatchRepo(db)
	m := metrics.New()
	a := &app{
		cfg: cfg,
		db:  db,
		log: log,
		svc: api.Services{
			Ingest: &service.IngestService{
				DB: db, Ledger: lr, Batches: br,
				Layout: layout, Sheet: cfg.Ingest.Sheet, HeaderRows: cfg.Ingest.HeaderRows,
				Metrics: m,
			},
			Search:      &service.SearchService{Ledger: lr, Metrics: m},
			Reconciler:  &service.Reconciler{Ledger: lr, Metrics: m},
			Maintenance: &service.MaintenanceService{DB: db, Ledger: lr, Batches: br, Metrics: m},
			Metrics:     m,
		},
	}
	ctx := logger.WithContext(cmd.Context(), log)
	return ctx, a, nil
}

func (a *app) Close() {
	if a != nil && a.db != nil {
		_ = a.db.Close()
	}
}
