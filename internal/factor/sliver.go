package factor

// DefaultSliverTolerance is τ, the sliver tolerance: a directional factor
// below 1 - τ counts as a sliver in that direction.
const DefaultSliverTolerance = 0.98

// FilterSlivers drops any row for which both directional factors fall
// below (1 - tolerance): a joint test, not a per-direction filter, so a row
// survives if either direction is meaningful.
func FilterSlivers(rows []Row, tolerance float64) []Row {
	threshold := 1 - tolerance

	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		aBelow := !r.ZeroWeightA && r.AToB < threshold
		bBelow := !r.ZeroWeightB && r.BToA < threshold
		if aBelow && bBelow {
			continue
		}
		out = append(out, r)
	}
	return out
}
