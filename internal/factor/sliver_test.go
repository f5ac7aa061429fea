package factor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterSliversDropsJointlyBelowThreshold(t *testing.T) {
	rows := []Row{
		{AID: "a1", BID: "b1", AToB: 0.01, BToA: 0.01},
		{AID: "a2", BID: "b2", AToB: 0.5, BToA: 0.01},
		{AID: "a3", BID: "b3", AToB: 0.99, BToA: 0.99},
	}
	out := FilterSlivers(rows, DefaultSliverTolerance)

	require := func(cond bool, msg string) {
		if !cond {
			t.Fatal(msg)
		}
	}
	require(len(out) == 2, "expected 2 surviving rows")
	assert.Equal(t, "a2", out[0].AID)
	assert.Equal(t, "a3", out[1].AID)
}

func TestFilterSliversKeepsZeroWeightRows(t *testing.T) {
	rows := []Row{
		{AID: "a1", BID: "b1", ZeroWeightA: true, BToA: 0.01},
	}
	out := FilterSlivers(rows, DefaultSliverTolerance)
	assert.Len(t, out, 1)
}
