// Package translate wires geomsource loading, point substitution, overlay,
// weight distribution, factor aggregation, sliver filtering, rounding
// correction, and conservation auditing into a single straight-line
// pipeline, following the same constructor shape used elsewhere
// (constructor validation, a threaded *slog.Logger, one top-level Run
// entry point).
package translate

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/zonetrans/engine/internal/audit"
	"github.com/zonetrans/engine/internal/db"
	"github.com/zonetrans/engine/internal/factor"
	"github.com/zonetrans/engine/internal/geomsource"
	"github.com/zonetrans/engine/internal/geomtypes"
	"github.com/zonetrans/engine/internal/overlay"
	"github.com/zonetrans/engine/internal/pointsub"
	"github.com/zonetrans/engine/internal/weight"
	"github.com/zonetrans/engine/internal/worker"
)

// Method selects which translation the Engine performs.
type Method string

const (
	MethodSpatial  Method = "spatial"
	MethodWeighted Method = "weighted"
)

// Options controls one translation run. It is the in-memory counterpart of
// config.Run, kept independent of the config package so the engine has no
// dependency on how its configuration was loaded.
type Options struct {
	Method Method

	ZoneA geomsource.Config
	ZoneB geomsource.Config
	Lower geomsource.Config // required for MethodWeighted

	PointHandling  bool
	PointTolerance float64
	ZoneAPoints    *geomsource.Config
	ZoneBPoints    *geomsource.Config

	SliverTolerance float64
	FilterSlivers   bool

	Workers int

	// OnProgress, if set, receives the same overlay progress callbacks the
	// engine logs at debug level, so a caller (the CLI) can drive a
	// worker.Progress bar without duplicating the overlay wiring.
	OnProgress worker.ProgressFunc
}

// Result is the full output of a translation run: the final factor rows
// and the conservation audit computed against them.
type Result struct {
	Rows   []factor.Row
	Audit  audit.Report
	Before struct {
		AToB factor.ResidualStats
		BToA factor.ResidualStats
	}
}

// Engine executes translation runs. Source adapts GeomSource to a concrete
// file format; Logger receives structured progress and warnings throughout
// the pipeline.
type Engine struct {
	Source geomsource.Source
	Logger *slog.Logger
	conn   *sql.DB
}

// New constructs an Engine. A nil logger falls back to slog.Default(),
// matching the log() fallback idiom used throughout the codebase.
func New(source geomsource.Source, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{Source: source, Logger: logger}
}

// Run executes the full pipeline for opts and returns the resulting factor
// table and conservation audit.
func (e *Engine) Run(ctx context.Context, opts Options) (Result, error) {
	aZones, err := geomsource.Load(ctx, e.Source, opts.ZoneA)
	if err != nil {
		return Result{}, fmt.Errorf("load zone A: %w", err)
	}
	bZones, err := geomsource.Load(ctx, e.Source, opts.ZoneB)
	if err != nil {
		return Result{}, fmt.Errorf("load zone B: %w", err)
	}

	var lowerZones []geomtypes.Zone
	var lowerWeights map[string]float64
	if opts.Method == MethodWeighted {
		lowerZones, err = geomsource.Load(ctx, e.Source, opts.Lower)
		if err != nil {
			return Result{}, fmt.Errorf("load lower zoning: %w", err)
		}
		if opts.Lower.WeightField != "" {
			lowerWeights, err = e.Source.LoadWeights(ctx, opts.Lower.Path, opts.Lower.IDField, opts.Lower.WeightField)
			if err != nil {
				return Result{}, fmt.Errorf("load lower weights: %w", err)
			}
		}
	}

	aIDs := ids(aZones)
	bIDs := ids(bZones)

	var directMatches []pointsub.Match
	if opts.PointHandling && opts.ZoneAPoints != nil && opts.ZoneBPoints != nil {
		aPts, err := geomsource.Load(ctx, e.Source, *opts.ZoneAPoints)
		if err != nil {
			return Result{}, fmt.Errorf("load zone A points: %w", err)
		}
		bPts, err := geomsource.Load(ctx, e.Source, *opts.ZoneBPoints)
		if err != nil {
			return Result{}, fmt.Errorf("load zone B points: %w", err)
		}
		directMatches = pointsub.MatchPointLayers(aPts, bPts, opts.PointTolerance)
		aZones = excludeIDs(aZones, matchedAIDs(directMatches))
		bZones = excludeIDs(bZones, matchedBIDs(directMatches))
		e.Logger.Info("point-to-point pre-match resolved pairs directly", "count", len(directMatches))
	}

	if opts.PointHandling && opts.Method == MethodWeighted {
		aZones, err = pointsub.Substitute(aZones, lowerZones, opts.PointTolerance)
		if err != nil {
			return Result{}, fmt.Errorf("point substitution on zone A: %w", err)
		}
		bZones, err = pointsub.Substitute(bZones, lowerZones, opts.PointTolerance)
		if err != nil {
			return Result{}, fmt.Errorf("point substitution on zone B: %w", err)
		}
	}

	layers := []overlay.Layer{{Zones: aZones}, {Zones: bZones}}
	if opts.Method == MethodWeighted {
		layers = append(layers, overlay.Layer{Zones: lowerZones})
	}

	onProgress := func(completed, total, failed int) {
		e.Logger.Debug("overlay progress", "completed", completed, "total", total, "failed", failed)
		if opts.OnProgress != nil {
			opts.OnProgress(completed, total, failed)
		}
	}
	tiles, err := overlay.Run(ctx, layers, opts.Workers, onProgress)
	if err != nil {
		return Result{}, fmt.Errorf("overlay: %w", err)
	}
	e.Logger.Info("overlay produced tiles", "count", len(tiles))

	var distributed []weight.DistributedTile
	if opts.Method == MethodWeighted {
		join := weight.Join(lowerZones, recordsFrom(lowerWeights))
		if join.MissCount > 0 {
			e.Logger.Warn("lower weight join misses", "count", join.MissCount)
		}
		distributed, err = weight.Distribute(tiles, join.Joined)
		if err != nil {
			return Result{}, fmt.Errorf("weight distribution: %w", err)
		}
	} else {
		distributed, err = weight.SpatialAsWeighted(tiles)
		if err != nil {
			return Result{}, fmt.Errorf("spatial weight assignment: %w", err)
		}
	}

	conn, err := e.dbConn()
	if err != nil {
		return Result{}, fmt.Errorf("acquire duckdb connection: %w", err)
	}
	rows, err := factor.Build(ctx, conn, distributed)
	if err != nil {
		return Result{}, fmt.Errorf("factor aggregation: %w", err)
	}

	for _, m := range directMatches {
		rows = append(rows, factor.Row{AID: m.AID, BID: m.BID, AToB: 1, BToA: 1})
	}

	tolerance := opts.SliverTolerance
	if tolerance == 0 {
		tolerance = factor.DefaultSliverTolerance
	}
	if opts.FilterSlivers {
		before := len(rows)
		rows = factor.FilterSlivers(rows, tolerance)
		e.Logger.Info("sliver filter", "dropped", before-len(rows))
	}

	aToB, err := factor.CorrectAToB(rows)
	if err != nil {
		return Result{}, fmt.Errorf("rounding correction (a_to_b): %w", err)
	}
	bToA, err := factor.CorrectBToA(aToB.Rows)
	if err != nil {
		return Result{}, fmt.Errorf("rounding correction (b_to_a): %w", err)
	}
	e.Logger.Info("rounding correction residuals before normalization",
		"direction", "a_to_b", "max", aToB.Before.Max, "min", aToB.Before.Min,
		"mean", aToB.Before.Mean, "median", aToB.Before.Median)
	e.Logger.Info("rounding correction residuals before normalization",
		"direction", "b_to_a", "max", bToA.Before.Max, "min", bToA.Before.Min,
		"mean", bToA.Before.Mean, "median", bToA.Before.Median)
	if aToB.OverOneCount+bToA.OverOneCount > 0 {
		e.Logger.Warn("rounding correction produced factors over 1", "count", aToB.OverOneCount+bToA.OverOneCount)
	}

	report := audit.Audit(bToA.Rows, aIDs, bIDs, e.Logger)

	result := Result{Rows: bToA.Rows, Audit: report}
	result.Before.AToB = aToB.Before
	result.Before.BToA = bToA.Before
	return result, nil
}

func (e *Engine) dbConn() (*sql.DB, error) {
	if e.conn != nil {
		return e.conn, nil
	}
	conn, err := db.Get()
	if err != nil {
		return nil, err
	}
	e.conn = conn
	return conn, nil
}

func ids(zones []geomtypes.Zone) []string {
	out := make([]string, len(zones))
	for i, z := range zones {
		out[i] = z.ID
	}
	return out
}

func excludeIDs(zones []geomtypes.Zone, excluded map[string]bool) []geomtypes.Zone {
	if len(excluded) == 0 {
		return zones
	}
	out := make([]geomtypes.Zone, 0, len(zones))
	for _, z := range zones {
		if !excluded[z.ID] {
			out = append(out, z)
		}
	}
	return out
}

func matchedAIDs(matches []pointsub.Match) map[string]bool {
	out := make(map[string]bool, len(matches))
	for _, m := range matches {
		out[m.AID] = true
	}
	return out
}

func matchedBIDs(matches []pointsub.Match) map[string]bool {
	out := make(map[string]bool, len(matches))
	for _, m := range matches {
		out[m.BID] = true
	}
	return out
}

func recordsFrom(weights map[string]float64) []weight.Record {
	out := make([]weight.Record, 0, len(weights))
	for id, w := range weights {
		out = append(out, weight.Record{LowerID: id, Weight: w})
	}
	return out
}
