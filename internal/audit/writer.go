package audit

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// WriteWorkbook serializes a Report as a directory of per-report CSV
// files, one per sheet of what a multi-sheet workbook would otherwise
// hold. No xlsx library is available (see DESIGN.md), so a directory of
// CSVs stands in for the workbook's sheets, keyed the same way: by the two
// layer names. Missing zones, zero-weight zones, and off-sum totals are
// split into one file per side (nameA, nameB) since each check is a
// property of a single layer; over-one factors span both sides of a row
// and stay in one combined file.
func WriteWorkbook(dir, nameA, nameB string, report Report) error {
	base := filepath.Join(dir, fmt.Sprintf("%s_%s_audit", nameA, nameB))
	if err := os.MkdirAll(base, 0o755); err != nil {
		return fmt.Errorf("create audit workbook dir: %w", err)
	}

	sides := []struct {
		layer string
		name  string
	}{{"a", nameA}, {"b", nameB}}

	for _, side := range sides {
		if err := writeMissing(filepath.Join(base, fmt.Sprintf("missing_%s.csv", side.name)), filterMissing(report.Missing, side.layer)); err != nil {
			return err
		}
		if err := writeMissing(filepath.Join(base, fmt.Sprintf("zero_weight_%s.csv", side.name)), filterMissing(report.ZeroWeight, side.layer)); err != nil {
			return err
		}
	}

	direction := map[string]string{"a": "a_to_b", "b": "b_to_a"}
	for _, side := range sides {
		path := filepath.Join(base, fmt.Sprintf("sum_mismatch_%s_%s.csv", side.name, direction[side.layer]))
		if err := writeZoneSums(path, filterZoneSums(report.ZoneSums, side.layer)); err != nil {
			return err
		}
	}

	if err := writeOverOne(filepath.Join(base, "over_one.csv"), report.OverOne); err != nil {
		return err
	}
	return nil
}

func filterMissing(rows []MissingZone, layer string) []MissingZone {
	out := make([]MissingZone, 0, len(rows))
	for _, r := range rows {
		if r.Layer == layer {
			out = append(out, r)
		}
	}
	return out
}

func filterZoneSums(rows []ZoneSum, layer string) []ZoneSum {
	out := make([]ZoneSum, 0, len(rows))
	for _, r := range rows {
		if r.Layer == layer {
			out = append(out, r)
		}
	}
	return out
}

func writeMissing(path string, rows []MissingZone) error {
	return writeCSV(path, []string{"layer", "id"}, len(rows), func(i int) []string {
		return []string{rows[i].Layer, rows[i].ID}
	})
}

func writeZoneSums(path string, rows []ZoneSum) error {
	return writeCSV(path, []string{"layer", "id", "sum"}, len(rows), func(i int) []string {
		return []string{rows[i].Layer, rows[i].ID, strconv.FormatFloat(rows[i].Sum, 'g', -1, 64)}
	})
}

func writeOverOne(path string, rows []OverOneRow) error {
	return writeCSV(path, []string{"a_id", "b_id", "which", "factor"}, len(rows), func(i int) []string {
		return []string{rows[i].AID, rows[i].BID, rows[i].Which, strconv.FormatFloat(rows[i].Factor, 'g', -1, 64)}
	})
}

func writeCSV(path string, header []string, n int, row func(int) []string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("write header to %s: %w", tmp, err)
	}
	for i := 0; i < n; i++ {
		if err := w.Write(row(i)); err != nil {
			f.Close()
			return fmt.Errorf("write row to %s: %w", tmp, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	// Atomic temp-then-rename write, matching the cache package's pattern
	// for never leaving readers an opportunity to observe a partial file.
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s to %s: %w", tmp, path, err)
	}
	return nil
}
