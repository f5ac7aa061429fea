package factor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrectAToBOneToOneSetsFactorToOne(t *testing.T) {
	rows := []Row{{AID: "a1", BID: "b1", AToB: 0.87}}
	result, err := CorrectAToB(rows)
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.Rows[0].AToB)
}

func TestCorrectAToBScalesGroupToSumOne(t *testing.T) {
	rows := []Row{
		{AID: "a1", BID: "b1", AToB: 0.4},
		{AID: "a1", BID: "b2", AToB: 0.4},
	}
	result, err := CorrectAToB(rows)
	require.NoError(t, err)

	sum := result.Rows[0].AToB + result.Rows[1].AToB
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.InDelta(t, 0.2, result.Before.Max, 1e-9) // 1 - 0.8
}

func TestCorrectAToBRejectsNegativeFactors(t *testing.T) {
	rows := []Row{
		{AID: "a1", BID: "b1", AToB: -0.5},
		{AID: "a1", BID: "b2", AToB: 0.1},
	}
	_, err := CorrectAToB(rows)
	assert.Error(t, err)
}

func TestCorrectAToBSkipsZeroWeightRows(t *testing.T) {
	rows := []Row{{AID: "a1", BID: "b1", ZeroWeightA: true}}
	result, err := CorrectAToB(rows)
	require.NoError(t, err)
	assert.True(t, result.Rows[0].ZeroWeightA)
}

func TestCorrectBToASymmetricToCorrectAToB(t *testing.T) {
	rows := []Row{
		{AID: "a1", BID: "b1", BToA: 0.3},
		{AID: "a2", BID: "b1", BToA: 0.3},
	}
	result, err := CorrectBToA(rows)
	require.NoError(t, err)
	sum := result.Rows[0].BToA + result.Rows[1].BToA
	assert.InDelta(t, 1.0, sum, 1e-9)
}
