package coverage

import (
	"fmt"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
)

// LoadShapefile reads polygon regions from a shapefile in geographic
// coordinates. nameField selects the attribute used as the region name;
// names in exclude (e.g. AK, HI) are skipped.
func LoadShapefile(path, nameField string, exclude map[string]bool) ([]Region, error) {
	dec, err := shp.NewDecoder(path)
	if err != nil {
		return nil, fmt.Errorf("open shapefile %s: %w", path, err)
	}
	defer dec.Close()

	var regions []Region
	for {
		g, fields, more := dec.DecodeRowFields(nameField)
		if !more {
			break
		}
		name := strings.TrimSpace(fields[nameField])
		if exclude[name] {
			continue
		}
		poly, ok := g.(geom.Polygonal)
		if !ok {
			continue
		}
		regions = append(regions, Region{Name: name, Shape: poly})
	}
	if err := dec.Error(); err != nil {
		return nil, fmt.Errorf("decode shapefile %s: %w", path, err)
	}
	if len(regions) == 0 {
		return nil, fmt.Errorf("shapefile %s has no polygon regions", path)
	}
	return regions, nil
}
