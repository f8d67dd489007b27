package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for errors.Is matching across package boundaries.
var (
	ErrOutOfDomain             = errors.New("coordinate outside grid domain")
	ErrInsufficientData        = errors.New("insufficient data")
	ErrRangeViolation          = errors.New("value outside plausible range")
	ErrStoreAcquisitionTimeout = errors.New("grid store acquisition timed out")
	ErrUpdateCardinality       = errors.New("update affected unexpected row count")
	ErrAlreadyExists           = errors.New("already exists")
)

// OutOfDomainError reports a coordinate too far outside the grid to clamp.
type OutOfDomainError struct {
	Lat, Lon float64
}

func (e *OutOfDomainError) Error() string {
	return fmt.Sprintf("coordinate (%.4f, %.4f) outside grid domain", e.Lat, e.Lon)
}

func (e *OutOfDomainError) Unwrap() error { return ErrOutOfDomain }

// InsufficientDataError is returned when too few valid samples remain to
// build a grid.
type InsufficientDataError struct {
	Variable string
	Got      int
	Need     int
}

func (e *InsufficientDataError) Error() string {
	if e.Variable == "" {
		return fmt.Sprintf("insufficient data: %d valid samples, need %d", e.Got, e.Need)
	}
	return fmt.Sprintf("insufficient data for %s: %d valid samples, need %d", e.Variable, e.Got, e.Need)
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

// RangeViolation marks a value that failed a plausibility bound. The field
// it belongs to is left missing.
type RangeViolation struct {
	Field string
	Value float64
	Min   float64
	Max   float64
}

func (e *RangeViolation) Error() string {
	return fmt.Sprintf("%s value %v outside plausible range (%v, %v)", e.Field, e.Value, e.Min, e.Max)
}

func (e *RangeViolation) Unwrap() error { return ErrRangeViolation }

// StoreAcquisitionTimeoutError reports that a grid store lock could not be
// taken within the configured ceiling.
type StoreAcquisitionTimeoutError struct {
	Path    string
	Timeout time.Duration
}

func (e *StoreAcquisitionTimeoutError) Error() string {
	return fmt.Sprintf("could not acquire grid store %s within %s", e.Path, e.Timeout)
}

func (e *StoreAcquisitionTimeoutError) Unwrap() error { return ErrStoreAcquisitionTimeout }

// UpdateCardinalityAnomaly records an estimate update that touched other
// than exactly one row.
type UpdateCardinalityAnomaly struct {
	Table     string
	StationID string
	Day       time.Time
	Rows      int64
}

func (e *UpdateCardinalityAnomaly) Error() string {
	return fmt.Sprintf("%s update of %s %s resulted in %d rows",
		e.Table, e.StationID, e.Day.Format(time.DateOnly), e.Rows)
}

func (e *UpdateCardinalityAnomaly) Unwrap() error { return ErrUpdateCardinality }

// AlreadyExistsError is returned when creating a resource that is already
// present on disk.
type AlreadyExistsError struct {
	Path string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s already exists", e.Path)
}

func (e *AlreadyExistsError) Unwrap() error { return ErrAlreadyExists }
