package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.ngs.io/climate-grid/internal/adapter/interp"
	"go.ngs.io/climate-grid/internal/adapter/store"
	"go.ngs.io/climate-grid/internal/domain"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int          { return &v }

func recordKey(id string, day time.Time) string {
	return id + "|" + day.Format(time.DateOnly)
}

// fakeDB is an in-memory set of per-state daily record tables. Each Begin
// stages a copy that Commit publishes.
type fakeDB struct {
	mu      sync.Mutex
	tables  map[string]map[string]domain.DailyRecord
	txs     map[string][]*fakeTx
	begins  map[string]error
	updates map[string]error // station id -> error on UpdateEstimate
	rows    map[string]int64 // station id -> rows affected override
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		tables:  make(map[string]map[string]domain.DailyRecord),
		txs:     make(map[string][]*fakeTx),
		begins:  make(map[string]error),
		updates: make(map[string]error),
		rows:    make(map[string]int64),
	}
}

func (db *fakeDB) put(state string, rec domain.DailyRecord) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.tables[state] == nil {
		db.tables[state] = make(map[string]domain.DailyRecord)
	}
	db.tables[state][recordKey(rec.Station, rec.Day)] = rec
}

func (db *fakeDB) get(state, id string, day time.Time) (domain.DailyRecord, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	rec, ok := db.tables[state][recordKey(id, day)]
	return rec, ok
}

func (db *fakeDB) Begin(_ context.Context, state string) (store.DailyRecordTx, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.begins[state]; err != nil {
		return nil, err
	}
	staged := make(map[string]domain.DailyRecord)
	for k, v := range db.tables[state] {
		staged[k] = v
	}
	tx := &fakeTx{db: db, state: state, staged: staged}
	db.txs[state] = append(db.txs[state], tx)
	return tx, nil
}

type fakeTx struct {
	db         *fakeDB
	state      string
	staged     map[string]domain.DailyRecord
	inserts    int
	committed  bool
	rolledBack bool
}

func (tx *fakeTx) Table() string { return "alldata_" + tx.state }

func (tx *fakeTx) Lookup(_ context.Context, id string, day time.Time) (*domain.DailyRecord, error) {
	rec, ok := tx.staged[recordKey(id, day)]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (tx *fakeTx) InsertSkeleton(_ context.Context, id string, day time.Time) error {
	k := recordKey(id, day)
	if _, ok := tx.staged[k]; ok {
		return fmt.Errorf("duplicate key %s", k)
	}
	tx.staged[k] = domain.DailyRecord{Station: id, Day: day}
	tx.inserts++
	return nil
}

func (tx *fakeTx) UpdateEstimate(_ context.Context, id string, day time.Time, est domain.DailyEstimate) (int64, error) {
	tx.db.mu.Lock()
	failure, rows := tx.db.updates[id], tx.db.rows[id]
	tx.db.mu.Unlock()
	if failure != nil {
		return 0, failure
	}
	k := recordKey(id, day)
	rec, ok := tx.staged[k]
	if !ok {
		return 0, nil
	}
	estimated := true
	rec.High, rec.Low, rec.Precip, rec.Snow, rec.Snowd = est.High, est.Low, est.Precip, est.Snow, est.Snowd
	rec.Estimated = &estimated
	tx.staged[k] = rec
	if rows != 0 {
		return rows, nil
	}
	return 1, nil
}

func (tx *fakeTx) Commit() error {
	if tx.committed || tx.rolledBack {
		return errors.New("transaction already finished")
	}
	tx.committed = true
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	tx.db.tables[tx.state] = tx.staged
	return nil
}

func (tx *fakeTx) Rollback() error {
	if tx.committed {
		return nil
	}
	tx.rolledBack = true
	return nil
}

type fakeStations struct {
	byNetwork map[string][]domain.Station
	errs      map[string]error
}

func (f *fakeStations) Stations(_ context.Context, network string) ([]domain.Station, error) {
	if err := f.errs[network]; err != nil {
		return nil, err
	}
	return f.byNetwork[network], nil
}

type refKey struct {
	id, day, network string
}

type fakeRefs struct {
	mu        sync.Mutex
	summaries map[refKey]*store.ReferenceSummary
	err       error
	calls     []refKey
}

func (f *fakeRefs) Summary(_ context.Context, id string, day time.Time, network string) (*store.ReferenceSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := refKey{id, day.Format(time.DateOnly), network}
	f.calls = append(f.calls, k)
	if f.err != nil {
		return nil, f.err
	}
	return f.summaries[k], nil
}

type fakeGridLoader struct {
	grids map[string]*DailyGrids
}

func (f *fakeGridLoader) Load(_ context.Context, day time.Time) (*DailyGrids, error) {
	g, ok := f.grids[day.Format(time.DateOnly)]
	if !ok {
		return nil, fmt.Errorf("no grids for %s", day.Format(time.DateOnly))
	}
	return g, nil
}

// uniformGrids builds IEMRE-sized grids with one constant value per
// variable; unset variables are missing.
func uniformGrids(day time.Time, values map[string]float64) *DailyGrids {
	geo := domain.IEMRE()
	grids := make(map[string]*interp.Grid2D, len(values))
	for name, v := range values {
		grids[name] = interp.NewGrid2D(geo.XAxis(), geo.YAxis(), v)
	}
	return NewDailyGrids(day, geo, grids)
}

type fakeObservations struct {
	daily   []store.Observation
	normals []store.Observation
	days    []time.Time
}

func (f *fakeObservations) DailyObservations(_ context.Context, day time.Time) ([]store.Observation, error) {
	f.days = append(f.days, day)
	return f.daily, nil
}

func (f *fakeObservations) ClimateNormals(_ context.Context, day time.Time) ([]store.Observation, error) {
	f.days = append(f.days, day)
	return f.normals, nil
}
