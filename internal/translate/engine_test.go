package translate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zonetrans/engine/internal/db"
	"github.com/zonetrans/engine/internal/factor"
	"github.com/zonetrans/engine/internal/geomsource"
)

func rectFeature(id string, minX, minY, maxX, maxY float64) string {
	return `{"type":"Feature","properties":{"zone_id":"` + id + `"},"geometry":{"type":"Polygon","coordinates":[[[` +
		coord(minX, minY) + `],[` + coord(maxX, minY) + `],[` + coord(maxX, maxY) + `],[` + coord(minX, maxY) + `],[` + coord(minX, minY) + `]]]}}`
}

func coord(x, y float64) string {
	return intToStr(int(x)) + "," + intToStr(int(y))
}

func intToStr(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

func weightedRectFeature(id string, minX, minY, maxX, maxY, weight float64) string {
	return `{"type":"Feature","properties":{"zone_id":"` + id + `","weight":` + floatToStr(weight) + `},"geometry":{"type":"Polygon","coordinates":[[[` +
		coord(minX, minY) + `],[` + coord(maxX, minY) + `],[` + coord(maxX, maxY) + `],[` + coord(minX, maxY) + `],[` + coord(minX, minY) + `]]]}}`
}

func pointFeature(id string, x, y float64) string {
	return `{"type":"Feature","properties":{"zone_id":"` + id + `"},"geometry":{"type":"Point","coordinates":[` + coord(x, y) + `]}}`
}

func floatToStr(f float64) string {
	return intToStr(int(f))
}

func writeFC(t *testing.T, features []string) string {
	t.Helper()
	body := `{"type":"FeatureCollection","features":[` + joinComma(features) + `]}`
	dir := t.TempDir()
	p := filepath.Join(dir, "zones.geojson")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func joinComma(items []string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += ","
		}
		out += s
	}
	return out
}

// TestEngineRunSpatialScenarioS1 exercises the engine end to end against
// the seven-zone spatial partition scenario: layer A = {A,B,C}, layer B =
// {W,X,Y,Z}, tiling an 8x8 square, with a known expected factor table.
func TestEngineRunSpatialScenarioS1(t *testing.T) {
	db.Reset()
	t.Cleanup(db.Reset)

	aPath := writeFC(t, []string{
		rectFeature("A", 0, 3, 4, 8),
		rectFeature("B", 4, 3, 8, 8),
		rectFeature("C", 0, 0, 8, 3),
	})
	bPath := writeFC(t, []string{
		rectFeature("W", 0, 4, 3, 8),
		rectFeature("X", 3, 4, 8, 8),
		rectFeature("Y", 0, 0, 3, 4),
		rectFeature("Z", 3, 0, 8, 4),
	})

	engine := New(geomsource.NewGeoJSONSource(), nil)
	result, err := engine.Run(context.Background(), Options{
		Method:          MethodSpatial,
		ZoneA:           geomsource.Config{Path: aPath, IDField: "zone_id"},
		ZoneB:           geomsource.Config{Path: bPath, IDField: "zone_id"},
		SliverTolerance: 0.98,
		FilterSlivers:   true,
		Workers:         2,
	})
	require.NoError(t, err)

	byPair := make(map[[2]string]float64)
	byPairBA := make(map[[2]string]float64)
	for _, r := range result.Rows {
		byPair[[2]string{r.AID, r.BID}] = r.AToB
		byPairBA[[2]string{r.AID, r.BID}] = r.BToA
	}

	expected := map[[2]string][2]float64{
		{"A", "W"}: {0.600, 1.000},
		{"A", "X"}: {0.200, 0.200},
		{"A", "Y"}: {0.150, 0.250},
		{"A", "Z"}: {0.050, 0.050},
		{"B", "X"}: {0.800, 0.800},
		{"B", "Z"}: {0.200, 0.200},
		{"C", "Y"}: {0.375, 0.750},
		{"C", "Z"}: {0.625, 0.750},
	}
	for pair, want := range expected {
		assert.InDelta(t, want[0], byPair[pair], 1e-3, "a_to_b for %v", pair)
		assert.InDelta(t, want[1], byPairBA[pair], 1e-3, "b_to_a for %v", pair)
	}

	perASum := make(map[string]float64)
	for _, r := range result.Rows {
		perASum[r.AID] += r.AToB
	}
	for a, sum := range perASum {
		assert.InDelta(t, 1.0, sum, 1e-6, "per-A sum for %s", a)
	}
}

// TestEngineRunWeightedScenarioS2 exercises the weighted method against the
// same A/B partition as S1, with a lower zoning of sixteen 2x2 cells
// tiling [0,8]x[0,8] carrying a nonuniform population weight, row-major
// from the top row down and left to right within a row.
func TestEngineRunWeightedScenarioS2(t *testing.T) {
	db.Reset()
	t.Cleanup(db.Reset)

	aPath := writeFC(t, []string{
		rectFeature("A", 0, 3, 4, 8),
		rectFeature("B", 4, 3, 8, 8),
		rectFeature("C", 0, 0, 8, 3),
	})
	bPath := writeFC(t, []string{
		rectFeature("W", 0, 4, 3, 8),
		rectFeature("X", 3, 4, 8, 8),
		rectFeature("Y", 0, 0, 3, 4),
		rectFeature("Z", 3, 0, 8, 4),
	})

	weights := []float64{
		10, 20, 20, 30,
		20, 10, 10, 10,
		30, 20, 20, 30,
		30, 30, 10, 10,
	}
	var lowerCells []string
	for row := 0; row < 4; row++ {
		yMax := 8 - 2*row
		yMin := yMax - 2
		for col := 0; col < 4; col++ {
			xMin := 2 * col
			xMax := xMin + 2
			id := fmt.Sprintf("l%d", row*4+col+1)
			lowerCells = append(lowerCells, weightedRectFeature(id, float64(xMin), float64(yMin), float64(xMax), float64(yMax), weights[row*4+col]))
		}
	}
	lowerPath := writeFC(t, lowerCells)

	engine := New(geomsource.NewGeoJSONSource(), nil)
	result, err := engine.Run(context.Background(), Options{
		Method:          MethodWeighted,
		ZoneA:           geomsource.Config{Path: aPath, IDField: "zone_id"},
		ZoneB:           geomsource.Config{Path: bPath, IDField: "zone_id"},
		Lower:           geomsource.Config{Path: lowerPath, IDField: "zone_id", WeightField: "weight"},
		SliverTolerance: 0.98,
		FilterSlivers:   true,
		Workers:         2,
	})
	require.NoError(t, err)

	byPair := make(map[[2]string]float64)
	byPairBA := make(map[[2]string]float64)
	for _, r := range result.Rows {
		byPair[[2]string{r.AID, r.BID}] = r.AToB
		byPairBA[[2]string{r.AID, r.BID}] = r.BToA
	}

	expected := map[[2]string][2]float64{
		{"A", "W"}: {0.529, 1.000},
		{"A", "X"}: {0.176, 0.176},
		{"A", "Y"}: {0.235, 0.235},
		{"A", "Z"}: {0.059, 0.053},
		{"B", "X"}: {0.737, 0.824},
		{"B", "Z"}: {0.263, 0.263},
		{"C", "Y"}: {0.500, 0.765},
		{"C", "Z"}: {0.500, 0.684},
	}
	for pair, want := range expected {
		assert.InDelta(t, want[0], byPair[pair], 2e-3, "a_to_b for %v", pair)
		assert.InDelta(t, want[1], byPairBA[pair], 2e-3, "b_to_a for %v", pair)
	}
}

// TestEngineRunPointToPointPreMatch exercises the direct point-to-point
// resolution path: A carries a point within tolerance of a point on B, so
// the pair is resolved to a (1,1) factor row without either point
// participating in overlay, leaving the surrounding polygon partition
// (reused from S1) unaffected.
func TestEngineRunPointToPointPreMatch(t *testing.T) {
	db.Reset()
	t.Cleanup(db.Reset)

	aPath := writeFC(t, []string{
		rectFeature("A", 0, 3, 4, 8),
		rectFeature("B", 4, 3, 8, 8),
		rectFeature("C", 0, 0, 8, 3),
	})
	bPath := writeFC(t, []string{
		rectFeature("W", 0, 4, 3, 8),
		rectFeature("X", 3, 4, 8, 8),
		rectFeature("Y", 0, 0, 3, 4),
		rectFeature("Z", 3, 0, 8, 4),
	})
	aPointsPath := writeFC(t, []string{pointFeature("true_point_1", 6, 8)})
	bPointsPath := writeFC(t, []string{pointFeature("true_point_2", 5, 7)})

	engine := New(geomsource.NewGeoJSONSource(), nil)
	result, err := engine.Run(context.Background(), Options{
		Method:          MethodSpatial,
		ZoneA:           geomsource.Config{Path: aPath, IDField: "zone_id"},
		ZoneB:           geomsource.Config{Path: bPath, IDField: "zone_id"},
		PointHandling:   true,
		PointTolerance:  1000,
		ZoneAPoints:     &geomsource.Config{Path: aPointsPath, IDField: "zone_id"},
		ZoneBPoints:     &geomsource.Config{Path: bPointsPath, IDField: "zone_id"},
		SliverTolerance: 0.98,
		FilterSlivers:   true,
		Workers:         2,
	})
	require.NoError(t, err)

	var matchRow *factor.Row
	for i := range result.Rows {
		if result.Rows[i].AID == "true_point_1" {
			matchRow = &result.Rows[i]
			break
		}
	}
	require.NotNil(t, matchRow, "expected a direct-match row for true_point_1")
	assert.Equal(t, "true_point_2", matchRow.BID)
	assert.Equal(t, 1.0, matchRow.AToB)
	assert.Equal(t, 1.0, matchRow.BToA)

	// Neither point fed the overlay: the polygon partition's own factor
	// table is unaffected by the pre-match and still reproduces S1.
	byPair := make(map[[2]string]float64)
	for _, r := range result.Rows {
		byPair[[2]string{r.AID, r.BID}] = r.AToB
	}
	assert.InDelta(t, 0.600, byPair[[2]string{"A", "W"}], 1e-3)
	assert.InDelta(t, 0.375, byPair[[2]string{"C", "Y"}], 1e-3)
}
