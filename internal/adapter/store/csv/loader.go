// Package csv provides CSV-based station registry loading.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.ngs.io/climate-grid/internal/domain"
)

var expectedHeaders = []string{"id", "name", "network", "lat", "lon", "temp24_hour", "precip24_hour"}

// StationStore reads a station registry export from a CSV file.
type StationStore struct {
	path string
}

// NewStationStore creates a new CSV-based station store.
func NewStationStore(path string) *StationStore {
	return &StationStore{
		path: path,
	}
}

// Stations returns the stations of one network, in file order.
func (s *StationStore) Stations(_ context.Context, network string) ([]domain.Station, error) {
	all, err := s.LoadAll()
	if err != nil {
		return nil, err
	}
	stations := make([]domain.Station, 0)
	for _, st := range all {
		if st.Network == network {
			stations = append(stations, st)
		}
	}
	return stations, nil
}

// LoadAll reads every station in the file.
func (s *StationStore) LoadAll() ([]domain.Station, error) {
	//nolint:gosec // G304: File path comes from configuration.
	file, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open station CSV %s: %w", s.path, err)
	}
	defer func() { _ = file.Close() }()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	// Read header.
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	// Validate header.
	if len(header) != len(expectedHeaders) {
		return nil, fmt.Errorf("invalid CSV header: expected %v, got %v", expectedHeaders, header)
	}
	for i, h := range header {
		if strings.TrimSpace(h) != expectedHeaders[i] {
			return nil, fmt.Errorf("invalid CSV header: expected column %d to be %s, got %s", i, expectedHeaders[i], h)
		}
	}

	stations := make([]domain.Station, 0)
	seen := make(map[string]bool)

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}

		if len(record) != len(expectedHeaders) {
			return nil, fmt.Errorf("invalid CSV record: expected %d columns, got %d", len(expectedHeaders), len(record))
		}

		id := strings.TrimSpace(record[0])
		network := strings.TrimSpace(record[2])
		if id == "" || network == "" {
			return nil, fmt.Errorf("invalid CSV record: id and network are required (%v)", record)
		}
		key := network + "/" + id
		if seen[key] {
			return nil, fmt.Errorf("duplicate station %s in %s", id, network)
		}
		seen[key] = true

		lat, err := strconv.ParseFloat(strings.TrimSpace(record[3]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid latitude for station %s: %w", id, err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(record[4]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid longitude for station %s: %w", id, err)
		}
		temp24, err := parseHour(record[5])
		if err != nil {
			return nil, fmt.Errorf("invalid temp24_hour for station %s: %w", id, err)
		}
		precip24, err := parseHour(record[6])
		if err != nil {
			return nil, fmt.Errorf("invalid precip24_hour for station %s: %w", id, err)
		}

		stations = append(stations, domain.Station{
			ID:           id,
			Name:         strings.TrimSpace(record[1]),
			Network:      network,
			State:        stateOf(network),
			Lat:          lat,
			Lon:          lon,
			Temp24Hour:   temp24,
			Precip24Hour: precip24,
		})
	}

	if len(stations) == 0 {
		return nil, fmt.Errorf("no stations found in %s", s.path)
	}

	return stations, nil
}

// parseHour parses an optional observation hour; blank means unknown.
func parseHour(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	h, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	if h < 0 || h > 24 {
		return nil, fmt.Errorf("hour %d out of range", h)
	}
	return &h, nil
}

func stateOf(network string) string {
	if len(network) >= 2 && strings.HasSuffix(network, "CLIMATE") {
		return network[:2]
	}
	return ""
}
