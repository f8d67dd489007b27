// Package main provides the daily station estimator: it backfills missing
// climate station records from the daily analysis grids.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"

	"go.ngs.io/climate-grid/internal/adapter/store"
	"go.ngs.io/climate-grid/internal/adapter/store/csv"
	"go.ngs.io/climate-grid/internal/adapter/store/overrides"
	"go.ngs.io/climate-grid/internal/adapter/store/postgres"
	"go.ngs.io/climate-grid/internal/config"
	"go.ngs.io/climate-grid/internal/domain"
	"go.ngs.io/climate-grid/internal/observability"
	"go.ngs.io/climate-grid/internal/usecase"
)

func main() {
	dateFlag := flag.String("date", "", "Date to estimate (YYYY-MM-DD); default today and yesterday")
	statesFlag := flag.String("states", "", "Comma separated states to process; default all")
	flag.Usage = printUsage
	flag.Parse()

	dates, err := parseDates(*dateFlag, flag.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}
	states, err := parseStates(*statesFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	runID := uuid.New().String()
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat).With("run_id", runID, "job", "estimator")
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, cfg, logger, metrics, dates, states)
	stop()

	if err := metrics.Push(cfg.PushgatewayURL, "climate_estimator", runID); err != nil {
		logger.Error("metrics push failed", "error", err)
	}
	os.Exit(code)
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, dates []time.Time, states []string) int {
	table, err := overrides.Load(cfg.StationOverridesPath)
	if err != nil {
		logger.Error("failed to load station overrides", "error", err)
		return 1
	}
	logger.Info("station overrides loaded", "path", cfg.StationOverridesPath, "targets", table.Len())

	coop, err := postgres.Open(ctx, postgres.Config{DSN: cfg.CoopDSN, MaxOpenConns: cfg.EstimatorWorkers + 1}, logger.With("db", "coop"))
	if err != nil {
		logger.Error("coop database unavailable", "error", err)
		return 1
	}
	defer closeDB(logger, "coop", coop)

	iem, err := postgres.Open(ctx, postgres.Config{DSN: cfg.IEMDSN, MaxOpenConns: cfg.EstimatorWorkers + 1}, logger.With("db", "iem"))
	if err != nil {
		logger.Error("iem database unavailable", "error", err)
		return 1
	}
	defer closeDB(logger, "iem", iem)

	var stations store.StationLoader
	if cfg.StationCSVPath != "" {
		stations = csv.NewStationStore(cfg.StationCSVPath)
		logger.Info("using station registry file", "path", cfg.StationCSVPath)
	} else {
		mesosite, err := postgres.Open(ctx, postgres.Config{DSN: cfg.MesositeDSN}, logger.With("db", "mesosite"))
		if err != nil {
			logger.Error("mesosite database unavailable", "error", err)
			return 1
		}
		defer closeDB(logger, "mesosite", mesosite)
		stations = postgres.NewStationRegistry(mesosite)
	}

	backfill := usecase.NewBackfill(postgres.NewReferenceStore(iem, logger.With("db", "iem")), table, logger, metrics)
	backfill.OverwriteObserved = cfg.OverwriteObserved

	grids := &usecase.StoreGridLoader{Dir: cfg.GridDataDir, Geo: domain.IEMRE(), Timeout: cfg.StoreAcquireTimeout}
	orch := usecase.NewOrchestrator(
		stations,
		postgres.NewDailyRecordStore(coop),
		grids,
		backfill,
		table,
		clockwork.NewRealClock(),
		cfg.Location,
		logger,
		metrics,
	)
	orch.Workers = cfg.EstimatorWorkers
	orch.Regions = states

	report := orch.Run(ctx, dates)
	for _, d := range report.Dates {
		logger.Info("date processed", "day", d.Format(time.DateOnly))
	}
	logger.Info("estimator finished",
		"regions", len(report.Regions),
		"written", report.Written(),
		"failed_regions", report.Failed(),
		"skipped_dates", len(report.DateErrors),
	)
	if len(report.Failed()) > 0 || len(report.DateErrors) > 0 {
		return 1
	}
	return 0
}

func closeDB(logger *slog.Logger, name string, db *sqlx.DB) {
	if err := db.Close(); err != nil {
		logger.Error("database close error", "db", name, "error", err)
	}
}

// printUsage prints usage information.
func printUsage() {
	fmt.Println("Climate station estimator")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  estimator [-date YYYY-MM-DD] [-states IA,IL]")
	fmt.Println("  estimator [-states IA,IL] YEAR MONTH DAY")
	fmt.Println()
	fmt.Println("Without a date, today and yesterday (TIMEZONE) are estimated.")
	fmt.Println()
	fmt.Println("FLAGS:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("ENVIRONMENT VARIABLES:")
	fmt.Println("  COOP_DSN                       Destination daily records database")
	fmt.Println("  IEM_DSN                        Reference site summaries database")
	fmt.Println("  MESOSITE_DSN                   Station registry database")
	fmt.Println("  STATION_CSV_PATH               Station registry CSV (replaces MESOSITE_DSN)")
	fmt.Println("  GRID_DATA_DIR                  Directory of iemre_<year>_daily.nc stores (default: ./data/iemre)")
	fmt.Println("  STORE_ACQUIRE_TIMEOUT          Grid store lock wait (default: 5m)")
	fmt.Println("  STATION_OVERRIDES_PATH         Target to reference site table (default: data/station_overrides.json)")
	fmt.Println("  ESTIMATOR_WORKERS              Regions processed concurrently (default: 1)")
	fmt.Println("  ESTIMATOR_OVERWRITE_OBSERVED   Replace quality-controlled rows (default: false)")
	fmt.Println("  TIMEZONE                       Calendar used for default dates (default: America/Chicago)")
	fmt.Println("  LOG_LEVEL, LOG_FORMAT          Logging (default: info, json)")
	fmt.Println("  PUSHGATEWAY_URL                Push run metrics when set")
}
