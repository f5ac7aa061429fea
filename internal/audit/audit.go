// Package audit implements ConservationAuditor: the post-rounding checks
// that detect missing zones, off-sum per-zone totals, and over-one
// factors, and serialize them as a side-channel report.
package audit

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/zonetrans/engine/internal/factor"
)

// MissingZone is a zone present in a primary layer but absent from the
// final factor table.
type MissingZone struct {
	Layer string
	ID    string
}

// ZoneSum is a per-source total of one directional factor that is not
// numerically equal to 1.
type ZoneSum struct {
	Layer string
	ID    string
	Sum   float64
}

// OverOneRow is a factor row where a directional factor, rounded to three
// decimals, exceeds 1.
type OverOneRow struct {
	AID, BID string
	Factor   float64
	Which    string // "a_to_b" or "b_to_a"
}

// Report is the full conservation audit output.
type Report struct {
	Missing     []MissingZone
	ZeroWeight  []MissingZone
	ZoneSums    []ZoneSum
	OverOne     []OverOneRow
	HasFatal    bool
	FatalReason string
}

// Audit runs the three ConservationAuditor checks against the final factor
// table. aIDs and bIDs are every zone id present in the primary A and B
// layers respectively, used for the missing-zones check; logger receives a
// structured warning per finding and falls back to slog.Default() when nil.
func Audit(rows []factor.Row, aIDs, bIDs []string, logger *slog.Logger) Report {
	if logger == nil {
		logger = slog.Default()
	}

	report := Report{}

	seenA := make(map[string]bool, len(rows))
	seenB := make(map[string]bool, len(rows))
	zeroA := make(map[string]bool)
	zeroB := make(map[string]bool)
	aTotals := make(map[string]float64)
	bTotals := make(map[string]float64)

	for _, r := range rows {
		seenA[r.AID] = true
		seenB[r.BID] = true
		if !r.ZeroWeightA {
			aTotals[r.AID] += r.AToB
		} else {
			zeroA[r.AID] = true
		}
		if !r.ZeroWeightB {
			bTotals[r.BID] += r.BToA
		} else {
			zeroB[r.BID] = true
		}

		if round3(r.AToB) > 1 {
			report.OverOne = append(report.OverOne, OverOneRow{AID: r.AID, BID: r.BID, Factor: r.AToB, Which: "a_to_b"})
		}
		if round3(r.BToA) > 1 {
			report.OverOne = append(report.OverOne, OverOneRow{AID: r.AID, BID: r.BID, Factor: r.BToA, Which: "b_to_a"})
		}
	}

	for _, id := range aIDs {
		if !seenA[id] {
			report.Missing = append(report.Missing, MissingZone{Layer: "a", ID: id})
		}
	}
	for _, id := range bIDs {
		if !seenB[id] {
			report.Missing = append(report.Missing, MissingZone{Layer: "b", ID: id})
		}
	}

	for id, sum := range aTotals {
		if sum != 1 {
			report.ZoneSums = append(report.ZoneSums, ZoneSum{Layer: "a", ID: id, Sum: sum})
		}
	}
	for id, sum := range bTotals {
		if sum != 1 {
			report.ZoneSums = append(report.ZoneSums, ZoneSum{Layer: "b", ID: id, Sum: sum})
		}
	}

	for id := range zeroA {
		report.ZeroWeight = append(report.ZeroWeight, MissingZone{Layer: "a", ID: id})
	}
	for id := range zeroB {
		report.ZeroWeight = append(report.ZeroWeight, MissingZone{Layer: "b", ID: id})
	}

	sortMissing(report.Missing)
	sortMissing(report.ZeroWeight)
	sortZoneSums(report.ZoneSums)

	logReport(logger, report)
	return report
}

func round3(v float64) float64 {
	return float64(int(v*1000+0.5)) / 1000
}

func sortMissing(m []MissingZone) {
	sort.Slice(m, func(i, j int) bool {
		if m[i].Layer != m[j].Layer {
			return m[i].Layer < m[j].Layer
		}
		return m[i].ID < m[j].ID
	})
}

func sortZoneSums(z []ZoneSum) {
	sort.Slice(z, func(i, j int) bool {
		if z[i].Layer != z[j].Layer {
			return z[i].Layer < z[j].Layer
		}
		return z[i].ID < z[j].ID
	})
}

func logReport(logger *slog.Logger, report Report) {
	if len(report.Missing) > 0 {
		logger.Warn("conservation audit: missing zones", "count", len(report.Missing))
	}
	if len(report.ZeroWeight) > 0 {
		logger.Warn("conservation audit: zero-weight zones", "count", len(report.ZeroWeight))
	}
	if len(report.ZoneSums) > 0 {
		logger.Warn("conservation audit: per-zone sums not equal to 1", "count", len(report.ZoneSums))
	}
	if len(report.OverOne) > 0 {
		logger.Warn("conservation audit: factors exceed 1 after rounding", "count", len(report.OverOne))
	}
}

// Validate reports a fatal error when the rounding corrector has already
// surfaced negative factors upstream; Audit itself never fails, since every
// one of its three checks is advisory (warning severity). A fatal result
// reaching this package would mean rounding correction failed to abort
// first, which should never happen.
func Validate(report Report) error {
	if report.HasFatal {
		return fmt.Errorf("conservation audit: %s", report.FatalReason)
	}
	return nil
}
