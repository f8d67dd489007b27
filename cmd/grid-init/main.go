// Package main creates empty grid stores and maintains their coverage flag.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.ngs.io/climate-grid/internal/adapter/coverage"
	"go.ngs.io/climate-grid/internal/adapter/store/gridnc"
	"go.ngs.io/climate-grid/internal/config"
	"go.ngs.io/climate-grid/internal/domain"
	"go.ngs.io/climate-grid/internal/observability"
)

func main() {
	cadenceFlag := flag.String("cadence", "daily", "Store cadence: daily, hourly or climatology")
	year := flag.Int("year", time.Now().Year(), "Calendar year of the store")
	dir := flag.String("dir", "", "Output directory (default: GRID_DATA_DIR)")
	shapefile := flag.String("shapefile", "", "State polygons for the coverage flag (default: STATES_SHAPEFILE)")
	nameField := flag.String("name-field", "STUSPS", "Shapefile attribute holding the state code")
	force := flag.Bool("force", false, "Replace an existing store")
	flag.Parse()

	cadence, err := gridnc.ParseCadence(*cadenceFlag)
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
	if *shapefile == "" {
		*shapefile = cfg.StatesShapefile
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat).With("job", "grid-init")

	path := gridnc.Path(*dir, cadence, *year)
	if err := create(path, cadence, *year, *force, logger); err != nil {
		logger.Error("create failed", "path", path, "error", err)
		os.Exit(1)
	}

	if *shapefile == "" {
		logger.Info("no shapefile configured, coverage left empty", "path", path)
		return
	}
	n, err := updateCoverage(path, cadence, *year, *shapefile, *nameField, cfg.StoreAcquireTimeout)
	if err != nil {
		logger.Error("coverage update failed", "path", path, "error", err)
		os.Exit(1)
	}
	logger.Info("coverage updated", "path", path, "covered_cells", n)
}

func create(path string, cadence gridnc.Cadence, year int, force bool, logger *slog.Logger) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if force {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	err := gridnc.Create(path, cadence, year, domain.IEMRE(), gridnc.VarsFor(cadence))
	var exists *domain.AlreadyExistsError
	if errors.As(err, &exists) {
		logger.Info("store exists, keeping it", "path", path)
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info("store created", "path", path, "cadence", cadence.String(), "times", cadence.NumTimes(year))
	return nil
}

func updateCoverage(path string, cadence gridnc.Cadence, year int, shapefile, nameField string, timeout time.Duration) (n int, err error) {
	regions, err := coverage.LoadShapefile(shapefile, nameField, domain.ExcludedStates)
	if err != nil {
		return 0, err
	}
	st, err := gridnc.Open(context.Background(), path, cadence, year, gridnc.ReadWrite, timeout)
	if err != nil {
		return 0, err
	}
	defer func() { err = errors.Join(err, st.Close()) }()
	return coverage.UpdateCoverage(st, domain.IEMRE(), regions)
}
