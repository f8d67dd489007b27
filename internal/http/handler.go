package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"go.ngs.io/climate-grid/internal/adapter/store/gridnc"
	"go.ngs.io/climate-grid/internal/domain"
	"go.ngs.io/climate-grid/internal/usecase"
)

// Handler handles HTTP requests for grid lookups.
type Handler struct {
	query *usecase.GridQuery
	now   func() time.Time
}

// NewHandler creates a new HTTP handler.
func NewHandler(query *usecase.GridQuery) *Handler {
	return &Handler{
		query: query,
		now:   time.Now,
	}
}

// GetCell handles GET /v1/grid/cell.
func (h *Handler) GetCell(c *gin.Context) {
	lat, lon, ok := parseLatLon(c)
	if !ok {
		return
	}

	cell, err := h.query.Cell(lat, lon)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cell)
}

// GetValue handles GET /v1/grid/value.
func (h *Handler) GetValue(c *gin.Context) {
	lat, lon, ok := parseLatLon(c)
	if !ok {
		return
	}

	variable := c.Query("var")
	if variable == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "var parameter is required"})
		return
	}

	cadence := gridnc.Daily
	if s := c.Query("cadence"); s != "" {
		var err error
		if cadence, err = gridnc.ParseCadence(s); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	// Parse time: a date for daily and climatology, RFC3339 for hourly.
	timeStr := c.Query("time")
	if timeStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "time parameter is required"})
		return
	}
	t, err := parseTime(timeStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.query.Value(c.Request.Context(), usecase.ValueRequest{
		Lat:      lat,
		Lon:      lon,
		Time:     t,
		Variable: variable,
		Cadence:  cadence,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetCoverage handles GET /v1/grid/coverage.
func (h *Handler) GetCoverage(c *gin.Context) {
	lat, lon, ok := parseLatLon(c)
	if !ok {
		return
	}

	year := h.now().Year()
	if s := c.Query("year"); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil || y < 1850 || y > 2200 {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid year %q", s)})
			return
		}
		year = y
	}

	resp, err := h.query.Coverage(c.Request.Context(), lat, lon, year)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   h.now().UTC().Format(time.RFC3339),
	})
}

func parseLatLon(c *gin.Context) (lat, lon float64, ok bool) {
	latStr := c.Query("lat")
	lonStr := c.Query("lon")
	if latStr == "" || lonStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lon parameters are required"})
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil || lat < -90 || lat > 90 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid latitude: %q", latStr)})
		return 0, 0, false
	}
	lon, err = strconv.ParseFloat(lonStr, 64)
	if err != nil || lon < -180 || lon > 180 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid longitude: %q", lonStr)})
		return 0, 0, false
	}
	return lat, lon, true
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q (expected YYYY-MM-DD or RFC3339)", s)
	}
	return t.UTC(), nil
}

// writeError maps domain errors onto status codes.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrOutOfDomain):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, usecase.ErrNoStore):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrStoreAcquisitionTimeout):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
