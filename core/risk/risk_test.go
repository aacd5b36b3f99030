package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evload/core/model"
)

func TestDemandBoundaries(t *testing.T) {
	cases := []struct {
		peak float64
		want model.DemandRisk
	}{
		{100, model.DemandHigh},
		{120, model.DemandHigh},
		{61, model.DemandModerate},
		{60, model.DemandModerate},
		{59, model.DemandLow},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Demand(tc.peak, 50, 10, 100), "peak %.3f", tc.peak)
	}
}

func TestDemandHighTakesPrecedence(t *testing.T) {
	// historical peak below mean+std: the peak check must still win.
	assert.Equal(t, model.DemandHigh, Demand(55, 50, 10, 55))
}

func TestInfraBoundaries(t *testing.T) {
	th := DefaultInfraThresholds()
	cases := []struct {
		peak float64
		want model.InfraRisk
	}{
		{69, model.InfraStable},
		{70, model.InfraNearCapacity},
		{89.999, model.InfraNearCapacity},
		{90, model.InfraOverload},
		{150, model.InfraOverload},
	}
	for _, tc := range cases {
		u, err := th.Classify(tc.peak, 100)
		require.NoError(t, err)
		assert.Equal(t, tc.want, u.Risk, "peak %.3f", tc.peak)
	}
}

func TestInfraZeroCapacity(t *testing.T) {
	_, err := DefaultInfraThresholds().Classify(10, 0)
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestInfraThresholdsValidate(t *testing.T) {
	var th InfraThresholds
	th.SetDefaults()
	require.NoError(t, th.Validate())
	assert.Error(t, InfraThresholds{NearCapacityPct: 90, OverloadPct: 70}.Validate())
}

func TestDecide(t *testing.T) {
	rules := DefaultDecisionRules()

	d, err := rules.Decide(75, 100)
	require.NoError(t, err)
	assert.Equal(t, 0.75, d.UtilizationRatio)
	assert.Equal(t, model.DecisionMedium, d.RiskLevel)
	assert.Equal(t, ActionMonitor, d.Action)

	d, err = rules.Decide(10, 100)
	require.NoError(t, err)
	assert.Equal(t, model.DecisionLow, d.RiskLevel)
	assert.Equal(t, ActionNormal, d.Action)

	d, err = rules.Decide(100, 100)
	require.NoError(t, err)
	assert.Equal(t, model.DecisionHigh, d.RiskLevel)
	assert.Equal(t, ActionMitigate, d.Action)

	d, err = rules.Decide(33.3333, 100)
	require.NoError(t, err)
	assert.Equal(t, 33.33, d.PredictedDemand)
	assert.Equal(t, 0.33, d.UtilizationRatio)

	_, err = rules.Decide(75, 0)
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestNonFiniteInputs(t *testing.T) {
	rules := DefaultDecisionRules()
	th := DefaultInfraThresholds()
	for _, pair := range [][2]float64{
		{math.NaN(), 100},
		{75, math.NaN()},
		{math.Inf(1), 100},
		{75, math.Inf(-1)},
	} {
		_, err := rules.Decide(pair[0], pair[1])
		assert.ErrorIs(t, err, ErrNonFinite, "decide %v", pair)
		_, err = th.Classify(pair[0], pair[1])
		assert.ErrorIs(t, err, ErrNonFinite, "classify %v", pair)
	}
}

func TestDecisionAndInfraStayIndependent(t *testing.T) {
	// 75% is NEAR_CAPACITY for the infra rules and MEDIUM for decisions,
	// while 95% is OVERLOAD for infra but still MEDIUM for decisions.
	u, err := DefaultInfraThresholds().Classify(95, 100)
	require.NoError(t, err)
	assert.Equal(t, model.InfraOverload, u.Risk)

	d, err := DefaultDecisionRules().Decide(95, 100)
	require.NoError(t, err)
	assert.Equal(t, model.DecisionMedium, d.RiskLevel)
}
