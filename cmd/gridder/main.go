// Package main grids one day of station observations into a grid store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"go.ngs.io/climate-grid/internal/adapter/store"
	"go.ngs.io/climate-grid/internal/adapter/store/csv"
	"go.ngs.io/climate-grid/internal/adapter/store/gridnc"
	"go.ngs.io/climate-grid/internal/adapter/store/postgres"
	"go.ngs.io/climate-grid/internal/config"
	"go.ngs.io/climate-grid/internal/observability"
	"go.ngs.io/climate-grid/internal/usecase"
)

func main() {
	presetName := flag.String("preset", usecase.Daily12ZPreset.Name, "Gridding preset: daily12z or climatology")
	dateFlag := flag.String("date", "", "Day to grid (YYYY-MM-DD); default yesterday")
	dir := flag.String("dir", "", "Grid store directory (default: GRID_DATA_DIR)")
	flag.Parse()

	preset, err := usecase.PresetByName(*presetName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *dir == "" {
		*dir = cfg.GridDataDir
	}

	day := time.Now().In(cfg.Location).AddDate(0, 0, -1)
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	if *dateFlag != "" {
		if day, err = time.Parse(time.DateOnly, *dateFlag); err != nil {
			fmt.Fprintf(os.Stderr, "invalid -date %q: expected YYYY-MM-DD\n", *dateFlag)
			os.Exit(2)
		}
	}

	runID := uuid.New().String()
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat).With("run_id", runID, "job", "gridder", "preset", preset.Name)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	start := time.Now()
	err = run(ctx, cfg, logger, metrics, preset, day, *dir)
	stop()
	metrics.RunDuration.Observe(time.Since(start).Seconds())
	if perr := metrics.Push(cfg.PushgatewayURL, "climate_gridder", runID); perr != nil {
		logger.Error("metrics push failed", "error", perr)
	}
	if err != nil {
		logger.Error("gridder failed", "day", day.Format(time.DateOnly), "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, preset usecase.Preset, day time.Time, dir string) (err error) {
	coop, err := postgres.Open(ctx, postgres.Config{DSN: cfg.CoopDSN}, logger.With("db", "coop"))
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, coop.Close()) }()

	var stations store.StationLoader
	if cfg.StationCSVPath != "" {
		stations = csv.NewStationStore(cfg.StationCSVPath)
	} else {
		mesosite, openErr := postgres.Open(ctx, postgres.Config{DSN: cfg.MesositeDSN}, logger.With("db", "mesosite"))
		if openErr != nil {
			return openErr
		}
		defer func() { err = errors.Join(err, mesosite.Close()) }()
		stations = postgres.NewStationRegistry(mesosite)
	}

	path := gridnc.Path(dir, preset.Cadence, day.Year())
	st, err := gridnc.Open(ctx, path, preset.Cadence, day.Year(), gridnc.ReadWrite, cfg.StoreAcquireTimeout)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, st.Close()) }()

	gridder := usecase.NewGridder(stations, postgres.NewObservationSource(coop), logger, metrics)
	report, err := gridder.Run(ctx, preset, day, st)
	if err != nil {
		return err
	}
	logger.Info("gridder finished",
		"day", day.Format(time.DateOnly),
		"store", path,
		"written", strings.Join(report.Written, ","),
		"insufficient", strings.Join(report.Insufficient, ","),
	)
	return nil
}
