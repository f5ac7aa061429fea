package factor

import (
	"fmt"
	"math"
	"sort"
)

// ResidualStats summarizes (1 - C_a) across all source zones before
// normalization.
type ResidualStats struct {
	Max, Min, Mean, Median float64
	OffCount               int
}

// CorrectionResult is the outcome of one direction's rounding pass: the
// corrected rows, the pre-correction residual statistics, and the count of
// factors that exceed 1 beyond tolerance after correction (a warning
// condition, not an error).
type CorrectionResult struct {
	Rows         []Row
	Before       ResidualStats
	OverOneCount int
}

// overOneTolerance bounds how far a corrected factor may exceed 1 before
// it counts as "over one"; a factor computed as exactly 1.0 by the
// one-to-one shortcut must never itself trip this check.
const overOneTolerance = 1e-9

// CorrectAToB applies rounding correction to the a_to_b direction: per
// fixed a, if a has exactly one row its factor is set to 1; otherwise every
// row in a's group is scaled by 1 + diff/C_a where C_a = sum of a_to_b over
// a's rows and diff = 1 - C_a (see DESIGN.md): one-to-one shortcut, then
// group-scale, never an iterative fixed point.
func CorrectAToB(rows []Row) (CorrectionResult, error) {
	out := make([]Row, len(rows))
	copy(out, rows)

	before := correctDirection(out, func(r *Row) *float64 { return &r.AToB }, func(r Row) bool { return r.ZeroWeightA }, func(r Row) string { return r.AID })

	negatives := 0
	overOne := 0
	for _, r := range out {
		if r.AToB < 0 {
			negatives++
		}
		if r.AToB > 1+overOneTolerance {
			overOne++
		}
	}
	if negatives > 0 {
		return CorrectionResult{}, fmt.Errorf("rounding correction produced %d negative a_to_b factors", negatives)
	}

	return CorrectionResult{Rows: out, Before: before, OverOneCount: overOne}, nil
}

// CorrectBToA is the symmetric counterpart of CorrectAToB for the b_to_a
// direction.
func CorrectBToA(rows []Row) (CorrectionResult, error) {
	out := make([]Row, len(rows))
	copy(out, rows)

	before := correctDirection(out, func(r *Row) *float64 { return &r.BToA }, func(r Row) bool { return r.ZeroWeightB }, func(r Row) string { return r.BID })

	negatives := 0
	overOne := 0
	for _, r := range out {
		if r.BToA < 0 {
			negatives++
		}
		if r.BToA > 1+overOneTolerance {
			overOne++
		}
	}
	if negatives > 0 {
		return CorrectionResult{}, fmt.Errorf("rounding correction produced %d negative b_to_a factors", negatives)
	}

	return CorrectionResult{Rows: out, Before: before, OverOneCount: overOne}, nil
}

// correctDirection does the actual group-by-key rounding pass, generalized
// over which factor field and which grouping key (a_id or b_id) it
// operates on so CorrectAToB/CorrectBToA share one implementation.
func correctDirection(rows []Row, factorOf func(*Row) *float64, zeroWeight func(Row) bool, keyOf func(Row) string) ResidualStats {
	groups := make(map[string][]int)
	for i, r := range rows {
		k := keyOf(r)
		groups[k] = append(groups[k], i)
	}

	totals := make(map[string]float64, len(groups))
	for k, idxs := range groups {
		sum := 0.0
		for _, i := range idxs {
			if zeroWeight(rows[i]) {
				continue
			}
			sum += *factorOf(&rows[i])
		}
		totals[k] = sum
	}
	before := residualStats(totals)

	for k, idxs := range groups {
		if len(idxs) == 1 {
			i := idxs[0]
			if !zeroWeight(rows[i]) {
				*factorOf(&rows[i]) = 1.0
			}
			continue
		}

		total := totals[k]
		if total == 0 {
			continue // every row in this group is zero-weight; nothing to scale.
		}
		diff := 1 - total
		correction := 1 + diff/total
		for _, i := range idxs {
			if zeroWeight(rows[i]) {
				continue
			}
			f := factorOf(&rows[i])
			*f = *f * correction
		}
	}
	return before
}

// residualStats computes max/min/mean/median of (1 - total) across groups,
// and the count of groups whose total is not exactly 1.
func residualStats(totals map[string]float64) ResidualStats {
	if len(totals) == 0 {
		return ResidualStats{}
	}

	diffs := make([]float64, 0, len(totals))
	offCount := 0
	for _, total := range totals {
		if total != 1 {
			offCount++
		}
		diffs = append(diffs, 1-total)
	}
	sort.Float64s(diffs)

	sum := 0.0
	max, min := diffs[0], diffs[0]
	for _, d := range diffs {
		sum += d
		if d > max {
			max = d
		}
		if d < min {
			min = d
		}
	}
	mean := sum / float64(len(diffs))

	var median float64
	n := len(diffs)
	if n%2 == 1 {
		median = diffs[n/2]
	} else {
		median = (diffs[n/2-1] + diffs[n/2]) / 2
	}

	return ResidualStats{Max: max, Min: min, Mean: mean, Median: median, OffCount: offCount}
}

// isFinite reports whether v is neither NaN nor infinite, i.e. not the
// zero-weight sentinel. Nothing in this package calls it at present.
func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
