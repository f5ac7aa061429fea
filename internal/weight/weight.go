// Package weight implements WeightedLower construction and the
// WeightDistributor step: converting overlay tile geometry into a
// distributed exogenous weight.
package weight

import (
	"fmt"

	"github.com/zonetrans/engine/internal/geomtypes"
	"github.com/zonetrans/engine/internal/overlay"
)

// Record is a single row of the lower weighting table: a lower-zone id and
// its nonnegative exogenous weight (population, employment, ...).
type Record struct {
	LowerID string
	Weight  float64
}

// Lower is a lower zone joined with its exogenous weight. Area comes from
// the lower zoning geometry; Weight comes from the join to Record, and is
// zero (with Missing set) when no record matched.
type Lower struct {
	geomtypes.Zone
	Weight  float64
	Missing bool
}

// JoinResult is an explicit result value in place of exception-driven
// control flow on missing joins: it always carries a structured miss count
// alongside the joined rows.
type JoinResult struct {
	Joined      map[string]Lower
	MissCount   int
	MissingIDs  []string
}

// Join attaches weighting records to lower zones by id. Lower zones with no
// matching record are retained with Weight 0 and Missing true, and counted
// rather than dropped: missing joins are allowed but counted and warned.
func Join(zones []geomtypes.Zone, records []Record) JoinResult {
	byID := make(map[string]float64, len(records))
	for _, r := range records {
		byID[r.LowerID] = r.Weight
	}

	result := JoinResult{Joined: make(map[string]Lower, len(zones))}
	for _, z := range zones {
		w, ok := byID[z.ID]
		lower := Lower{Zone: z, Weight: w, Missing: !ok}
		if !ok {
			result.MissCount++
			result.MissingIDs = append(result.MissingIDs, z.ID)
		}
		result.Joined[z.ID] = lower
	}
	return result
}

// DistributedTile is an overlay tile with its distributed weight attached.
type DistributedTile struct {
	A, B, L string
	Area    float64
	Weight  float64
	// ZeroWeightLower records that the owning lower zone had area 0 (a
	// degenerate input already rejected at GeomSource), so no weight was
	// distributed and Weight stays 0. A missing or zero weight join does
	// not set it; such tiles simply carry Weight 0. FactorBuilder does not
	// read this flag: it detects zero-weight zones from zero sums.
	ZeroWeightLower bool
}

// Distribute computes tile.weight = lower.weight * (tile.area /
// lower.area). It is purely local (one tile at a time) and introduces no
// global state.
func Distribute(tiles []overlay.Tile, lowers map[string]Lower) ([]DistributedTile, error) {
	out := make([]DistributedTile, 0, len(tiles))
	for _, t := range tiles {
		if len(t.Provenance) != 3 {
			return nil, fmt.Errorf("weighted overlay tile must carry (a,b,l) provenance, got %d ids", len(t.Provenance))
		}
		a, b, l := t.Provenance[0], t.Provenance[1], t.Provenance[2]
		lower, ok := lowers[l]
		if !ok {
			return nil, fmt.Errorf("tile references unknown lower zone %q", l)
		}
		dt := DistributedTile{A: a, B: b, L: l, Area: t.Area}
		if lower.Area <= 0 {
			dt.ZeroWeightLower = true
		} else {
			dt.Weight = lower.Weight * (t.Area / lower.Area)
		}
		out = append(out, dt)
	}
	return out, nil
}

// SpatialAsWeighted treats each spatial-overlay tile's area as its own
// weight, letting the factor builder share one aggregation path between
// spatial and weighted translations: spatial translations bypass weight
// distribution and treat each tile's area as its weight directly.
func SpatialAsWeighted(tiles []overlay.Tile) ([]DistributedTile, error) {
	out := make([]DistributedTile, 0, len(tiles))
	for _, t := range tiles {
		if len(t.Provenance) != 2 {
			return nil, fmt.Errorf("spatial overlay tile must carry (a,b) provenance, got %d ids", len(t.Provenance))
		}
		out = append(out, DistributedTile{
			A:      t.Provenance[0],
			B:      t.Provenance[1],
			Area:   t.Area,
			Weight: t.Area,
		})
	}
	return out, nil
}
