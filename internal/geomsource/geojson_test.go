package geomsource

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFC = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"zone_id": "A", "pop": 100},
      "geometry": {"type": "Polygon", "coordinates": [[[0,0],[2,0],[2,2],[0,2],[0,0]]]}
    },
    {
      "type": "Feature",
      "properties": {"zone_id": "B", "pop": 50},
      "geometry": {"type": "Polygon", "coordinates": [[[2,0],[4,0],[4,2],[2,2],[2,0]]]}
    }
  ]
}`

func writeSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "zones.geojson")
	require.NoError(t, os.WriteFile(p, []byte(sampleFC), 0o644))
	return p
}

func TestGeoJSONSourceLoad(t *testing.T) {
	path := writeSample(t)
	src := NewGeoJSONSource()

	zones, err := Load(context.Background(), src, Config{Path: path, IDField: "zone_id"})
	require.NoError(t, err)
	require.Len(t, zones, 2)
	assert.Equal(t, "A", zones[0].ID)
	assert.InDelta(t, 4.0, zones[0].Area, 1e-9)
}

func TestGeoJSONSourceLoadWeights(t *testing.T) {
	path := writeSample(t)
	src := NewGeoJSONSource()

	weights, err := src.LoadWeights(context.Background(), path, "zone_id", "pop")
	require.NoError(t, err)
	assert.Equal(t, 100.0, weights["A"])
	assert.Equal(t, 50.0, weights["B"])
}

func TestLoadRejectsMissingIDField(t *testing.T) {
	path := writeSample(t)
	src := NewGeoJSONSource()

	_, err := Load(context.Background(), src, Config{Path: path, IDField: ""})
	assert.Error(t, err)
}

func TestLoadDropsZeroAreaFeature(t *testing.T) {
	withDegenerate := `{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{"zone_id":"A"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[2,0],[2,2],[0,2],[0,0]]]}},
		{"type":"Feature","properties":{"zone_id":"Z"},"geometry":{"type":"Polygon","coordinates":[[[5,5],[5,5],[5,5],[5,5]]]}}
	]}`
	dir := t.TempDir()
	p := filepath.Join(dir, "degenerate.geojson")
	require.NoError(t, os.WriteFile(p, []byte(withDegenerate), 0o644))

	src := NewGeoJSONSource()
	zones, err := Load(context.Background(), src, Config{Path: p, IDField: "zone_id"})
	require.NoError(t, err)
	require.Len(t, zones, 1)
	assert.Equal(t, "A", zones[0].ID)
}

func TestLoadRejectsDuplicateIDs(t *testing.T) {
	dup := `{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{"zone_id":"A"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}},
		{"type":"Feature","properties":{"zone_id":"A"},"geometry":{"type":"Polygon","coordinates":[[[2,0],[3,0],[3,1],[2,1],[2,0]]]}}
	]}`
	dir := t.TempDir()
	p := filepath.Join(dir, "dup.geojson")
	require.NoError(t, os.WriteFile(p, []byte(dup), 0o644))

	src := NewGeoJSONSource()
	_, err := Load(context.Background(), src, Config{Path: p, IDField: "zone_id"})
	assert.Error(t, err)
}
