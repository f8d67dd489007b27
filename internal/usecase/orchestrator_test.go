package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.ngs.io/climate-grid/internal/adapter/store"
	"go.ngs.io/climate-grid/internal/adapter/store/overrides"
	"go.ngs.io/climate-grid/internal/domain"
	"go.ngs.io/climate-grid/internal/observability"
)

var chicago = mustLocation("America/Chicago")

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

var ohare = domain.Station{
	ID: "IL1549", Name: "CHICAGO OHARE", Network: "ILCLIMATE", State: "IL",
	Lat: 41.99, Lon: -87.91, Temp24Hour: iptr(24), Precip24Hour: iptr(24),
}

type orchestratorFixture struct {
	db      *fakeDB
	refs    *fakeRefs
	metrics *observability.Metrics
	orch    *Orchestrator
}

func newOrchestratorFixture(t *testing.T, now time.Time, grids map[string]*DailyGrids) *orchestratorFixture {
	t.Helper()
	db := newFakeDB()
	refs := &fakeRefs{summaries: map[refKey]*store.ReferenceSummary{}}
	table := overrides.New(map[string]string{"IA2203": "DSM", "IA1063": "BRL"})
	metrics := observability.NewMetricsForTesting()
	logger := observability.Discard()

	stations := &fakeStations{byNetwork: map[string][]domain.Station{
		"IACLIMATE": {ames, desMoines, {ID: "IA0000", State: "IA", Lat: 42, Lon: -93.5}},
		"ILCLIMATE": {ohare},
	}}
	b := NewBackfill(refs, table, logger, metrics)
	orch := NewOrchestrator(stations, db, &fakeGridLoader{grids: grids}, b, table,
		clockwork.NewFakeClockAt(now), chicago, logger, metrics)
	orch.Regions = []string{"IA", "IL"}
	return &orchestratorFixture{db: db, refs: refs, metrics: metrics, orch: orch}
}

func summerGrids(day time.Time) *DailyGrids {
	return uniformGrids(day, map[string]float64{
		VarHigh00: 86, VarLow00: 66, VarHigh12: 85, VarLow12: 65,
		VarPrecip00: 0.1, VarPrecip12: 0.2,
	})
}

func TestDefaultDatesUseLocalCalendar(t *testing.T) {
	// 03:00 UTC on July 5 is still July 4 in Chicago.
	clock := clockwork.NewFakeClockAt(time.Date(2024, 7, 5, 3, 0, 0, 0, time.UTC))
	dates := DefaultDates(clock, chicago)
	assert.Equal(t, []time.Time{july4, july3}, dates)
}

func TestRunDefaultDatesSkipsReferenceForToday(t *testing.T) {
	now := time.Date(2024, 7, 4, 15, 0, 0, 0, time.UTC)
	f := newOrchestratorFixture(t, now, map[string]*DailyGrids{
		"2024-07-04": summerGrids(july4),
		"2024-07-03": summerGrids(july3),
	})
	f.refs.summaries[refKey{"DSM", "2024-07-03", "IA_ASOS"}] = &store.ReferenceSummary{MaxTmpf: fptr(91), MinTmpf: fptr(68)}

	report := f.orch.Run(context.Background(), nil)
	require.Empty(t, report.Failed())
	assert.Empty(t, report.DateErrors)

	// Only yesterday consulted the reference site, for the one configured
	// Iowa target present in the registry.
	assert.Equal(t, []refKey{{"DSM", "2024-07-03", "IA_ASOS"}}, f.refs.calls)

	rec, ok := f.db.get("IA", "IA2203", july3)
	require.True(t, ok)
	assert.Equal(t, 91.0, *rec.High)
	assert.Equal(t, 68.0, *rec.Low)

	rec, ok = f.db.get("IA", "IA2203", july4)
	require.True(t, ok)
	assert.Equal(t, 85.0, *rec.High, "today keeps the grid estimate")

	_, ok = f.db.get("IA", "IA0000", july4)
	assert.False(t, ok, "aggregate sites are never estimated")

	// Two stations, two dates in IA; one station, two dates in IL.
	assert.Equal(t, 6, report.Written())
	assert.Equal(t, 4.0, testutil.ToFloat64(f.metrics.StationsEstimated.WithLabelValues("IA")))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.StationsSkipped.WithLabelValues("aggregate")))
}

func TestRunUsesRegionStateForReferenceNetwork(t *testing.T) {
	now := time.Date(2024, 7, 10, 15, 0, 0, 0, time.UTC)
	f := newOrchestratorFixture(t, now, map[string]*DailyGrids{"2024-07-03": summerGrids(july3)})
	stateless := desMoines
	stateless.State = ""
	f.orch.stations = &fakeStations{byNetwork: map[string][]domain.Station{
		"IACLIMATE": {ames, stateless},
	}}
	f.orch.Regions = []string{"IA"}
	f.refs.summaries[refKey{"DSM", "2024-07-03", "IA_ASOS"}] = &store.ReferenceSummary{MaxTmpf: fptr(91)}

	report := f.orch.Run(context.Background(), []time.Time{july3})
	require.Empty(t, report.Failed())
	assert.Equal(t, []refKey{{"DSM", "2024-07-03", "IA_ASOS"}}, f.refs.calls)

	rec, ok := f.db.get("IA", "IA2203", july3)
	require.True(t, ok)
	assert.Equal(t, 91.0, *rec.High)
}

func TestRunRegionFailureRollsBackOnlyThatRegion(t *testing.T) {
	now := time.Date(2024, 7, 10, 15, 0, 0, 0, time.UTC)
	f := newOrchestratorFixture(t, now, map[string]*DailyGrids{"2024-07-04": summerGrids(july4)})
	f.db.updates["IL1549"] = errors.New("connection reset")

	report := f.orch.Run(context.Background(), []time.Time{july4})
	assert.Equal(t, []string{"IL"}, report.Failed())

	il := f.db.txs["IL"][0]
	assert.True(t, il.rolledBack)
	assert.False(t, il.committed)
	_, ok := f.db.get("IL", "IL1549", july4)
	assert.False(t, ok)

	ia := f.db.txs["IA"][0]
	assert.True(t, ia.committed)
	_, ok = f.db.get("IA", "IA0200", july4)
	assert.True(t, ok)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RegionFailures.WithLabelValues("IL")))
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.StationsEstimated.WithLabelValues("IL")))
}

func TestRunRegionSetupFailures(t *testing.T) {
	now := time.Date(2024, 7, 10, 15, 0, 0, 0, time.UTC)
	f := newOrchestratorFixture(t, now, map[string]*DailyGrids{"2024-07-04": summerGrids(july4)})
	f.db.begins["IA"] = errors.New("too many connections")

	report := f.orch.Run(context.Background(), []time.Time{july4})
	assert.Equal(t, []string{"IA"}, report.Failed())
	assert.True(t, f.db.txs["IL"][0].committed)
}

func TestRunParallelWorkers(t *testing.T) {
	now := time.Date(2024, 7, 10, 15, 0, 0, 0, time.UTC)
	f := newOrchestratorFixture(t, now, map[string]*DailyGrids{"2024-07-04": summerGrids(july4)})
	f.orch.Workers = 4

	report := f.orch.Run(context.Background(), []time.Time{july4})
	require.Len(t, report.Regions, 2)
	assert.Equal(t, "IA", report.Regions[0].State, "results keep region order")
	assert.Equal(t, "IL", report.Regions[1].State)
	assert.Equal(t, 3, report.Written())
}

func TestRunSkipsDatesWithoutGrids(t *testing.T) {
	now := time.Date(2024, 7, 10, 15, 0, 0, 0, time.UTC)
	f := newOrchestratorFixture(t, now, map[string]*DailyGrids{"2024-07-04": summerGrids(july4)})

	report := f.orch.Run(context.Background(), []time.Time{july3, july4})
	assert.Contains(t, report.DateErrors, "2024-07-03")
	assert.Empty(t, report.Failed())
	_, ok := f.db.get("IA", "IA0200", july3)
	assert.False(t, ok)
	_, ok = f.db.get("IA", "IA0200", july4)
	assert.True(t, ok)

	f2 := newOrchestratorFixture(t, now, nil)
	report = f2.orch.Run(context.Background(), []time.Time{july4})
	assert.Empty(t, report.Regions)
	assert.Empty(t, f2.db.txs)
}

func TestRunIsIdempotent(t *testing.T) {
	now := time.Date(2024, 7, 10, 15, 0, 0, 0, time.UTC)
	f := newOrchestratorFixture(t, now, map[string]*DailyGrids{"2024-07-04": summerGrids(july4)})

	f.orch.Run(context.Background(), []time.Time{july4})
	first, _ := f.db.get("IA", "IA0200", july4)
	f.orch.Run(context.Background(), []time.Time{july4})
	second, _ := f.db.get("IA", "IA0200", july4)

	assert.Equal(t, first, second)
	assert.Len(t, f.db.tables["IA"], 2)
}

func TestRunCancelledContext(t *testing.T) {
	now := time.Date(2024, 7, 10, 15, 0, 0, 0, time.UTC)
	f := newOrchestratorFixture(t, now, map[string]*DailyGrids{"2024-07-04": summerGrids(july4)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := f.orch.Run(ctx, []time.Time{july4})
	assert.ElementsMatch(t, []string{"IA", "IL"}, report.Failed())
	for _, tx := range f.db.txs["IA"] {
		assert.False(t, tx.committed)
	}
}
