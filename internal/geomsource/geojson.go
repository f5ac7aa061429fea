package geomsource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/paulmach/orb/geojson"
	"github.com/zonetrans/engine/internal/geomtypes"
)

// GeoJSONSource implements Source by reading an RFC 7946 FeatureCollection
// file.
type GeoJSONSource struct{}

func NewGeoJSONSource() GeoJSONSource { return GeoJSONSource{} }

func (GeoJSONSource) Load(ctx context.Context, path, idField string) ([]geomtypes.Zone, error) {
	fc, err := readFeatureCollection(path)
	if err != nil {
		return nil, err
	}

	zones := make([]geomtypes.Zone, 0, len(fc.Features))
	for i, f := range fc.Features {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if f.Geometry == nil {
			return nil, fmt.Errorf("feature %d has no geometry", i)
		}
		id, err := propertyID(f, idField, i)
		if err != nil {
			return nil, err
		}

		z, err := geomtypes.NewZone(id, f.Geometry)
		if err != nil {
			if errors.Is(err, geomtypes.ErrNonPositiveArea) {
				slog.Default().Warn("dropped zero-area feature", "path", path, "id", id)
				continue
			}
			return nil, fmt.Errorf("feature %q: %w", id, err)
		}
		zones = append(zones, z)
	}
	return zones, nil
}

func (GeoJSONSource) LoadWeights(ctx context.Context, path, idField, weightField string) (map[string]float64, error) {
	fc, err := readFeatureCollection(path)
	if err != nil {
		return nil, err
	}

	out := make(map[string]float64, len(fc.Features))
	for i, f := range fc.Features {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		id, err := propertyID(f, idField, i)
		if err != nil {
			return nil, err
		}
		raw, ok := f.Properties[weightField]
		if !ok {
			return nil, fmt.Errorf("feature %q missing weight field %q", id, weightField)
		}
		w, ok := asFloat(raw)
		if !ok {
			return nil, fmt.Errorf("feature %q weight field %q is not numeric", id, weightField)
		}
		out[id] = w
	}
	return out, nil
}

func readFeatureCollection(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return fc, nil
}

func propertyID(f *geojson.Feature, idField string, index int) (string, error) {
	raw, ok := f.Properties[idField]
	if !ok {
		return "", fmt.Errorf("feature %d missing id field %q", index, idField)
	}
	switch v := raw.(type) {
	case string:
		if v == "" {
			return "", fmt.Errorf("feature %d has empty id field %q", index, idField)
		}
		return v, nil
	case float64:
		return fmt.Sprintf("%v", v), nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

func asFloat(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
