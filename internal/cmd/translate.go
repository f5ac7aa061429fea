package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/zonetrans/engine/internal/audit"
	"github.com/zonetrans/engine/internal/cache"
	"github.com/zonetrans/engine/internal/config"
	"github.com/zonetrans/engine/internal/factor"
	"github.com/zonetrans/engine/internal/geomsource"
	"github.com/zonetrans/engine/internal/translate"
	"github.com/zonetrans/engine/internal/worker"
)

// runTranslation is shared by the spatial and weighted subcommands: load
// and validate the run configuration, consult the content-addressed cache,
// execute the Engine on a miss, and write the factor table, config copy,
// and audit workbook atomically.
func runTranslation(configPath string, method translate.Method) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if string(method) != cfg.Method {
		return fmt.Errorf("config method %q does not match %q subcommand", cfg.Method, method)
	}

	key := cache.Key{
		ZoneAPath:       cfg.Zone1.Path,
		ZoneBPath:       cfg.Zone2.Path,
		LowerZoningPath: cfg.LowerZoning.Path,
		LowerYear:       cfg.LowerZoning.WeightYear,
		Method:          cfg.Method,
		SliverTolerance: cfg.SliverTolerance,
		FilterSlivers:   cfg.FilterSlivers,
		PointHandling:   cfg.PointHandling,
		PointTolerance:  cfg.PointTolerance,
	}

	store, err := cache.Open(cfg.CachePath)
	if err != nil {
		return err
	}
	defer store.Close()

	if dir, found, err := store.Lookup(key); err != nil {
		return err
	} else if found {
		log().Info("cache hit, reusing prior run", "artifact_dir", dir)
		return nil
	}

	engine := translate.New(geomsource.NewGeoJSONSource(), log())
	progress := worker.NewProgress(0, true)
	opts := translate.Options{
		Method:          method,
		ZoneA:           geomsource.Config{Path: cfg.Zone1.Path, IDField: cfg.Zone1.IDField, WeightField: cfg.Zone1.WeightField},
		ZoneB:           geomsource.Config{Path: cfg.Zone2.Path, IDField: cfg.Zone2.IDField, WeightField: cfg.Zone2.WeightField},
		Lower:           geomsource.Config{Path: cfg.LowerZoning.Path, IDField: cfg.LowerZoning.IDField, WeightField: cfg.LowerZoning.WeightField},
		PointHandling:   cfg.PointHandling,
		PointTolerance:  cfg.PointTolerance,
		SliverTolerance: cfg.SliverTolerance,
		FilterSlivers:   cfg.FilterSlivers,
		Workers:         cfg.Workers,
		OnProgress:      progress.Callback(),
	}
	if cfg.ZoneAPointPath != "" && cfg.ZoneBPointPath != "" {
		opts.ZoneAPoints = &geomsource.Config{Path: cfg.ZoneAPointPath, IDField: cfg.Zone1.IDField}
		opts.ZoneBPoints = &geomsource.Config{Path: cfg.ZoneBPointPath, IDField: cfg.Zone2.IDField}
	}

	result, err := engine.Run(context.Background(), opts)
	progress.Done()
	if err != nil {
		return err
	}
	log().Info(progress.Summary())

	artifactDir := store.ArtifactDir(key)
	if err := writeOutputs(artifactDir, cfg, result); err != nil {
		return err
	}
	if err := store.Record(key, artifactDir, time.Now().Format(time.RFC3339)); err != nil {
		return err
	}
	log().Info("translation complete", "rows", len(result.Rows), "artifact_dir", artifactDir)
	return nil
}

func writeOutputs(dir string, cfg config.Run, result translate.Result) error {
	name1, name2 := sortedNames(cfg.Zone1.Name, cfg.Zone2.Name)
	suffix := "spatial"
	if cfg.Method == "weighted" {
		suffix = "weighted"
		if cfg.LowerZoning.WeightYear != "" {
			suffix = "weighted_" + cfg.LowerZoning.WeightYear
		}
	}
	base := fmt.Sprintf("%s_to_%s_%s", name1, name2, suffix)

	factorPath := filepath.Join(dir, base+".csv")
	if err := writeFactorCSV(factorPath, cfg.Zone1.Name, cfg.Zone2.Name, result.Rows); err != nil {
		return err
	}

	configPath := filepath.Join(dir, base+".config.json")
	if err := cache.WriteJSONAtomic(configPath, cfg); err != nil {
		return err
	}

	return audit.WriteWorkbook(cfg.OutputDir, cfg.Zone1.Name, cfg.Zone2.Name, result.Audit)
}

func sortedNames(a, b string) (string, string) {
	names := []string{a, b}
	sort.Strings(names)
	return names[0], names[1]
}

func writeFactorCSV(path, nameA, nameB string, rows []factor.Row) error {
	header := fmt.Sprintf("%s_id,%s_id,%s_to_%s,%s_to_%s\n", nameA, nameB, nameA, nameB, nameB, nameA)
	body := header
	for _, r := range rows {
		body += fmt.Sprintf("%s,%s,%s,%s\n", r.AID, r.BID, formatFactor(r.AToB), formatFactor(r.BToA))
	}
	return cache.WriteAtomic(path, []byte(body))
}

func formatFactor(f float64) string {
	if f != f { // NaN sentinel for a zero-weight zone
		return "NaN"
	}
	return fmt.Sprintf("%.6f", f)
}
