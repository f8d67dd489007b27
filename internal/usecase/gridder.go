package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.ngs.io/climate-grid/internal/adapter/interp"
	"go.ngs.io/climate-grid/internal/adapter/store"
	"go.ngs.io/climate-grid/internal/adapter/store/gridnc"
	"go.ngs.io/climate-grid/internal/domain"
	"go.ngs.io/climate-grid/internal/observability"
)

// SliceWriter is the part of a grid store the gridder writes to.
type SliceWriter interface {
	Spec(name string) (gridnc.VarSpec, error)
	WriteSlice(name string, idx int, g *interp.Grid2D) (gridnc.ClampReport, error)
	TimeIndex(t time.Time) (int, error)
	Axes() (x, y []float64)
}

// FieldMapping maps an observation field onto a store variable.
type FieldMapping struct {
	Field    string      // observation field: high, low, precip, snow, snowd
	Variable string      // store variable
	From     domain.Unit // unit of the observation
}

// Source selects which observations feed a preset.
type Source int

const (
	// SourceDaily reads quality-controlled daily observations.
	SourceDaily Source = iota
	// SourceNormals reads daily climate normals.
	SourceNormals
)

// Preset is a named gridding job.
type Preset struct {
	Name    string
	Cadence gridnc.Cadence
	Source  Source
	Fields  []FieldMapping
}

// Presets known to the gridder.
var (
	ClimatologyPreset = Preset{
		Name:    "climatology",
		Cadence: gridnc.Climatology,
		Source:  SourceNormals,
		Fields: []FieldMapping{
			{Field: "high", Variable: "tmax", From: domain.Fahrenheit},
			{Field: "low", Variable: "tmin", From: domain.Fahrenheit},
			{Field: "precip", Variable: "ppt", From: domain.Inch},
		},
	}
	Daily12ZPreset = Preset{
		Name:    "daily12z",
		Cadence: gridnc.Daily,
		Source:  SourceDaily,
		Fields: []FieldMapping{
			{Field: "high", Variable: VarHigh12, From: domain.Fahrenheit},
			{Field: "low", Variable: VarLow12, From: domain.Fahrenheit},
			{Field: "precip", Variable: VarPrecip12, From: domain.Inch},
			{Field: "snow", Variable: VarSnow12, From: domain.Inch},
			{Field: "snowd", Variable: VarSnowd12, From: domain.Inch},
		},
	}
)

// PresetByName looks up a preset.
func PresetByName(name string) (Preset, error) {
	switch name {
	case ClimatologyPreset.Name:
		return ClimatologyPreset, nil
	case Daily12ZPreset.Name:
		return Daily12ZPreset, nil
	}
	return Preset{}, fmt.Errorf("unknown preset %q (use %s or %s)", name, ClimatologyPreset.Name, Daily12ZPreset.Name)
}

// GridReport lists which variables a gridder run wrote.
type GridReport struct {
	Written      []string
	Insufficient []string
	Clamped      map[string]int
}

// Gridder interpolates station observations onto the analysis grid.
type Gridder struct {
	stations store.StationLoader
	obs      store.ObservationLoader
	logger   *slog.Logger
	metrics  *observability.Metrics

	// Regions whose station networks supply coordinates.
	Regions []string
}

// NewGridder creates a gridder.
func NewGridder(stations store.StationLoader, obs store.ObservationLoader, logger *slog.Logger, metrics *observability.Metrics) *Gridder {
	return &Gridder{
		stations: stations,
		obs:      obs,
		logger:   logger,
		metrics:  metrics,
	}
}

// Run grids one day of a preset into w. A variable with too few samples
// is skipped and reported; store failures abort the run.
func (g *Gridder) Run(ctx context.Context, p Preset, day time.Time, w SliceWriter) (*GridReport, error) {
	idx, err := w.TimeIndex(day)
	if err != nil {
		return nil, err
	}
	locations, err := g.locations(ctx)
	if err != nil {
		return nil, err
	}
	observations, err := g.observations(ctx, p, day)
	if err != nil {
		return nil, err
	}

	x, y := w.Axes()
	report := &GridReport{Clamped: make(map[string]int)}
	for _, f := range p.Fields {
		sp, err := w.Spec(f.Variable)
		if err != nil {
			return nil, err
		}
		samples, err := buildSamples(observations, locations, f, sp.Units)
		if err != nil {
			return nil, err
		}

		grid, err := interp.NearestNeighbor(x, y, samples, interp.MinSamples)
		if err != nil {
			var insufficient *domain.InsufficientDataError
			if errors.As(err, &insufficient) {
				insufficient.Variable = f.Variable
				g.logger.Warn("variable skipped", "preset", p.Name, "error", insufficient)
				g.metrics.InsufficientData.WithLabelValues(f.Variable).Inc()
				report.Insufficient = append(report.Insufficient, f.Variable)
				continue
			}
			return nil, err
		}

		clamp, err := w.WriteSlice(f.Variable, idx, grid)
		if err != nil {
			return nil, fmt.Errorf("write %s: %w", f.Variable, err)
		}
		if n := clamp.Clamped(); n > 0 {
			report.Clamped[f.Variable] = n
			g.metrics.ClampedCells.WithLabelValues(f.Variable).Add(float64(n))
			g.logger.Warn("values clamped", "variable", f.Variable, "below", clamp.Below, "above", clamp.Above)
		}
		g.metrics.SlicesWritten.WithLabelValues(f.Variable).Inc()
		report.Written = append(report.Written, f.Variable)

		stats := grid.Stats()
		g.logger.Info("gridded",
			"preset", p.Name,
			"variable", f.Variable,
			"day", day.Format(time.DateOnly),
			"samples", len(samples),
			"min", stats.Min,
			"max", stats.Max,
			"mean", stats.Mean,
		)
	}
	return report, nil
}

func (g *Gridder) observations(ctx context.Context, p Preset, day time.Time) ([]store.Observation, error) {
	switch p.Source {
	case SourceNormals:
		return g.obs.ClimateNormals(ctx, gridnc.ClimatologyDate(day))
	default:
		return g.obs.DailyObservations(ctx, day)
	}
}

// locations indexes station coordinates by id.
func (g *Gridder) locations(ctx context.Context) (map[string]domain.Station, error) {
	regions := g.Regions
	if len(regions) == 0 {
		regions = domain.EstimationRegions()
	}
	out := make(map[string]domain.Station)
	for _, state := range regions {
		stations, err := g.stations.Stations(ctx, domain.ClimateNetwork(state))
		if err != nil {
			return nil, fmt.Errorf("stations of %s: %w", state, err)
		}
		for _, st := range stations {
			out[st.ID] = st
		}
	}
	return out, nil
}

// buildSamples keeps observations of real sites with a known location and
// a value, converted to the store's unit.
func buildSamples(obs []store.Observation, locations map[string]domain.Station, f FieldMapping, to domain.Unit) ([]interp.Sample, error) {
	samples := make([]interp.Sample, 0, len(obs))
	for _, o := range obs {
		if domain.IsAggregateSite(o.Station) {
			continue
		}
		st, ok := locations[o.Station]
		if !ok {
			continue
		}
		v := o.Field(f.Field)
		if v == nil {
			continue
		}
		c, err := domain.Convert(*v, f.From, to)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Variable, err)
		}
		samples = append(samples, interp.Sample{Lat: st.Lat, Lon: st.Lon, Value: c})
	}
	return samples, nil
}
