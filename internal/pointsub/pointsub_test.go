package pointsub

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zonetrans/engine/internal/geomtypes"
)

func poly(id string, minX, minY, maxX, maxY float64) geomtypes.Zone {
	ring := orb.Ring{
		{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY},
	}
	z, err := geomtypes.NewZone(id, orb.Polygon{ring})
	if err != nil {
		panic(err)
	}
	return z
}

func TestSubstituteReplacesPointZoneWithContainingLower(t *testing.T) {
	tiny := poly("airport", 1.0, 1.0, 1.0001, 1.0001)
	normal := poly("suburb", 10, 10, 20, 20)
	layer := []geomtypes.Zone{tiny, normal}
	lower := []geomtypes.Zone{poly("lowerA", 0, 0, 5, 5), poly("lowerB", 5, 5, 15, 15)}

	out, err := Substitute(layer, lower, 1.0)
	require.NoError(t, err)
	require.Len(t, out, 2)

	var airport geomtypes.Zone
	for _, z := range out {
		if z.ID == "airport" {
			airport = z
		}
	}
	assert.InDelta(t, 25.0, airport.Area, 1e-9) // replaced by lowerA's 5x5 geometry
}

func TestSubstituteNoZoneBelowThresholdReturnsUnchanged(t *testing.T) {
	layer := []geomtypes.Zone{poly("a", 0, 0, 10, 10)}
	lower := []geomtypes.Zone{poly("l", 0, 0, 10, 10)}

	out, err := Substitute(layer, lower, 1.0)
	require.NoError(t, err)
	assert.Equal(t, layer, out)
}

func TestSubstituteFatalOnAmbiguousContainment(t *testing.T) {
	tiny := poly("p", 5.0, 5.0, 5.0001, 5.0001)
	layer := []geomtypes.Zone{tiny}
	lower := []geomtypes.Zone{poly("l1", 0, 0, 10, 10), poly("l2", 0, 0, 10, 10)}

	_, err := Substitute(layer, lower, 1.0)
	assert.Error(t, err)
}

func TestSubstituteBuffersTruePoints(t *testing.T) {
	// A raw point has zero area, which would never admit an area query;
	// pointsub buffers true points into a tiny square before treating
	// them as zones.
	layer := []geomtypes.Zone{{ID: "pt", Geometry: orb.Point{2, 2}, Area: 0}}
	buffered := bufferTruePoints(layer)
	require.Len(t, buffered, 1)
	assert.Greater(t, buffered[0].Area, 0.0)
}

func TestMatchPointLayersFindsNearestWithinTolerance(t *testing.T) {
	a := []geomtypes.Zone{
		{ID: "a1", Geometry: orb.Point{0, 0}},
		{ID: "a2", Geometry: orb.Point{100, 100}},
	}
	b := []geomtypes.Zone{
		{ID: "b1", Geometry: orb.Point{1, 1}},
		{ID: "b2", Geometry: orb.Point{200, 200}},
	}

	matches := MatchPointLayers(a, b, 10)
	require.Len(t, matches, 1)
	assert.Equal(t, "a1", matches[0].AID)
	assert.Equal(t, "b1", matches[0].BID)
}

func TestMatchPointLayersRespectsToleranceCap(t *testing.T) {
	a := []geomtypes.Zone{{ID: "a1", Geometry: orb.Point{0, 0}}}
	b := []geomtypes.Zone{{ID: "b1", Geometry: orb.Point{5000, 5000}}}

	matches := MatchPointLayers(a, b, 10)
	assert.Empty(t, matches)
}
