// Package geomsource implements GeomSource: loading a zoning layer from disk
// into the in-memory geomtypes.Zone representation the rest of the pipeline
// operates on, independent of the underlying file format.
package geomsource

import (
	"context"
	"fmt"

	"github.com/zonetrans/engine/internal/geomtypes"
)

// Source abstracts the on-disk representation of a zoning layer. The engine
// never imports a file-format package directly; it depends only on this
// interface, so format-specific types never leak past this boundary.
// GeoJSON is the only adapter shipped; shapefile I/O is out of scope.
type Source interface {
	// Load reads every feature from the underlying file and returns one
	// Zone per feature, keyed by idField. Weights are not read here; see
	// LoadWeights.
	Load(ctx context.Context, path string, idField string) ([]geomtypes.Zone, error)

	// LoadWeights reads weightField's numeric value per feature, keyed by
	// idField, without constructing full Zone geometry. Used for the
	// lower zoning's separate weighting table when it arrives as its own
	// file rather than an attribute column.
	LoadWeights(ctx context.Context, path string, idField, weightField string) (map[string]float64, error)
}

// Config controls how a single layer is loaded.
type Config struct {
	Path        string
	IDField     string
	WeightField string // optional; empty means "no exogenous weight column"
}

// Load is the GeomSource entry point used by the orchestrator: it validates
// Config and delegates to src, failing fast on a missing id column or
// non-unique id values.
func Load(ctx context.Context, src Source, cfg Config) ([]geomtypes.Zone, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("geomsource: empty path")
	}
	if cfg.IDField == "" {
		return nil, fmt.Errorf("geomsource: empty id field for %s", cfg.Path)
	}

	zones, err := src.Load(ctx, cfg.Path, cfg.IDField)
	if err != nil {
		return nil, fmt.Errorf("geomsource: load %s: %w", cfg.Path, err)
	}

	seen := make(map[string]bool, len(zones))
	for _, z := range zones {
		if seen[z.ID] {
			return nil, fmt.Errorf("geomsource: duplicate id %q in %s", z.ID, cfg.Path)
		}
		seen[z.ID] = true
	}
	return zones, nil
}
