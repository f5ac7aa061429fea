package audit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zonetrans/engine/internal/factor"
)

func TestAuditFindsMissingZones(t *testing.T) {
	rows := []factor.Row{{AID: "a1", BID: "b1", AToB: 1, BToA: 1}}
	report := Audit(rows, []string{"a1", "a2"}, []string{"b1"}, nil)

	require.Len(t, report.Missing, 1)
	assert.Equal(t, "a2", report.Missing[0].ID)
}

func TestAuditFindsOffSumZones(t *testing.T) {
	rows := []factor.Row{
		{AID: "a1", BID: "b1", AToB: 0.5, BToA: 1},
		{AID: "a1", BID: "b2", AToB: 0.3, BToA: 1},
	}
	report := Audit(rows, []string{"a1"}, []string{"b1", "b2"}, nil)

	require.Len(t, report.ZoneSums, 1)
	assert.Equal(t, "a1", report.ZoneSums[0].ID)
	assert.InDelta(t, 0.8, report.ZoneSums[0].Sum, 1e-9)
}

func TestAuditFindsOverOneFactors(t *testing.T) {
	rows := []factor.Row{{AID: "a1", BID: "b1", AToB: 1.01, BToA: 1}}
	report := Audit(rows, []string{"a1"}, []string{"b1"}, nil)
	require.Len(t, report.OverOne, 1)
	assert.Equal(t, "a_to_b", report.OverOne[0].Which)
}

func TestAuditIgnoresZeroWeightRowsInSums(t *testing.T) {
	rows := []factor.Row{{AID: "a1", BID: "b1", ZeroWeightA: true, ZeroWeightB: true}}
	report := Audit(rows, []string{"a1"}, []string{"b1"}, nil)
	assert.Empty(t, report.ZoneSums)
}

func TestWriteWorkbookWritesCSVFiles(t *testing.T) {
	dir := t.TempDir()
	report := Report{
		Missing:    []MissingZone{{Layer: "a", ID: "a9"}},
		ZeroWeight: []MissingZone{{Layer: "a", ID: "a3"}},
		ZoneSums:   []ZoneSum{{Layer: "b", ID: "b9", Sum: 0.5}},
		OverOne:    []OverOneRow{{AID: "a1", BID: "b1", Factor: 1.02, Which: "a_to_b"}},
	}
	require.NoError(t, WriteWorkbook(dir, "zoneA", "zoneB", report))

	base := filepath.Join(dir, "zoneA_zoneB_audit")
	for _, name := range []string{
		"missing_zoneA.csv", "missing_zoneB.csv",
		"zero_weight_zoneA.csv", "zero_weight_zoneB.csv",
		"sum_mismatch_zoneA_a_to_b.csv", "sum_mismatch_zoneB_b_to_a.csv",
		"over_one.csv",
	} {
		_, err := os.Stat(filepath.Join(base, name))
		assert.NoError(t, err)
	}
}

func TestAuditFindsZeroWeightZones(t *testing.T) {
	rows := []factor.Row{{AID: "a1", BID: "b1", ZeroWeightA: true}}
	report := Audit(rows, []string{"a1"}, []string{"b1"}, nil)
	require.Len(t, report.ZeroWeight, 1)
	assert.Equal(t, "a1", report.ZeroWeight[0].ID)
}
