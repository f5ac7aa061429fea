// Package config defines the run configuration document, loaded with viper
// and checked with go-playground/validator/v10 struct tags.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Layer names one zoning layer's source file and the attribute columns
// GeomSource reads from it.
type Layer struct {
	Name        string `mapstructure:"name" yaml:"name" validate:"required"`
	Path        string `mapstructure:"path" yaml:"path" validate:"required"`
	IDField     string `mapstructure:"id_field" yaml:"id_field" validate:"required"`
	WeightField string `mapstructure:"weight_field" yaml:"weight_field"`

	// WeightYear labels the calendar-year vintage of WeightField, meaningful
	// only on the lower_zoning layer of a weighted run. It is part of the
	// cache key and the output filename, since re-weighting the same lower
	// zoning path for a different year produces a different factor table.
	WeightYear string `mapstructure:"weight_year" yaml:"weight_year"`
}

// Run is the full configuration for one translation run.
type Run struct {
	Zone1 Layer `mapstructure:"zone_1" yaml:"zone_1" validate:"required"`
	Zone2 Layer `mapstructure:"zone_2" yaml:"zone_2" validate:"required"`

	// LowerZoning is required for method "weighted" and ignored for
	// "spatial".
	LowerZoning Layer `mapstructure:"lower_zoning" yaml:"lower_zoning"`

	Method string `mapstructure:"method" yaml:"method" validate:"required,oneof=spatial weighted"`

	SliverTolerance float64 `mapstructure:"sliver_tolerance" yaml:"sliver_tolerance" validate:"gte=0,lte=1"`
	FilterSlivers   bool    `mapstructure:"filter_slivers" yaml:"filter_slivers"`

	PointHandling  bool    `mapstructure:"point_handling" yaml:"point_handling"`
	PointTolerance float64 `mapstructure:"point_tolerance" yaml:"point_tolerance" validate:"gte=0"`

	CachePath string `mapstructure:"cache_path" yaml:"cache_path" validate:"required"`
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir" validate:"required"`

	// ZoneAPointPath/ZoneBPointPath are optional auxiliary point layers
	// for the point-to-point pre-match.
	ZoneAPointPath string `mapstructure:"zone_a_point_path" yaml:"zone_a_point_path"`
	ZoneBPointPath string `mapstructure:"zone_b_point_path" yaml:"zone_b_point_path"`

	Workers int `mapstructure:"workers" yaml:"workers" validate:"gte=0"`
}

// Default returns a Run populated with the standard defaults: sliver
// tolerance 0.98 and point tolerance 1000 CRS units.
func Default() Run {
	return Run{
		Method:          "spatial",
		SliverTolerance: 0.98,
		FilterSlivers:   true,
		PointTolerance:  1000,
		Workers:         0,
	}
}

var validate = validator.New()

// Load reads a run configuration document from path using viper, so YAML,
// JSON, and TOML are all accepted transparently, and validates it.
func Load(path string) (Run, error) {
	v := viper.New()
	v.SetConfigFile(path)

	cfg := Default()
	if err := v.ReadInConfig(); err != nil {
		return Run{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return Run{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return Run{}, err
	}
	return cfg, nil
}

// Validate checks cfg's struct tags plus one cross-field rule: a weighted
// method run needs a lower zoning layer.
func Validate(cfg Run) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Method == "weighted" && cfg.LowerZoning.Path == "" {
		return fmt.Errorf("invalid configuration: method \"weighted\" requires lower_zoning")
	}
	return nil
}

// WriteExample writes a fully-populated example configuration document to
// path, grounded on the original Python tool's
// ZoningTranslationInputs.write_example scaffolding helper (see
// DESIGN.md), so a new user of the CLI has a concrete starting point.
func WriteExample(path string) error {
	example := Run{
		Zone1: Layer{Name: "zone1", Path: "./zone1.geojson", IDField: "zone1_id"},
		Zone2: Layer{Name: "zone2", Path: "./zone2.geojson", IDField: "zone2_id"},
		LowerZoning: Layer{
			Name: "lower", Path: "./lower.geojson", IDField: "lower_id", WeightField: "population", WeightYear: "2024",
		},
		Method:          "spatial",
		SliverTolerance: 0.98,
		FilterSlivers:   true,
		PointHandling:   false,
		PointTolerance:  1000,
		CachePath:       "./cache",
		OutputDir:       "./output",
		Workers:         0,
	}

	data, err := yaml.Marshal(example)
	if err != nil {
		return fmt.Errorf("marshal example config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write example config %s: %w", path, err)
	}
	return nil
}
