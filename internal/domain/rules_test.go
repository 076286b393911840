package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultThresholdRules_Valid(t *testing.T) {
	assert.NoError(t, DefaultThresholdRules().Validate())
}

func TestThresholdRules_ApplyPartial(t *testing.T) {
	base := DefaultThresholdRules()
	minDTE := 10

	got, err := base.Apply(RulesUpdate{MinDTE: &minDTE, MinPremium: Float(1.25)})
	require.NoError(t, err)

	assert.Equal(t, 10, got.MinDTE)
	assert.Equal(t, 1.25, got.MinPremium)
	assert.Equal(t, base.MaxDTE, got.MaxDTE)
	// el original no cambia
	assert.Equal(t, 7, base.MinDTE)
}

func TestThresholdRules_ApplyRejectsInconsistent(t *testing.T) {
	base := DefaultThresholdRules()

	got, err := base.Apply(RulesUpdate{MinDelta: Float(0.6)}) // > max_delta 0.40
	assert.ErrorIs(t, err, ErrInvalidRule)
	assert.Equal(t, base, got)
}

func TestThresholdRules_ApplyRejectsNonFinite(t *testing.T) {
	base := DefaultThresholdRules()
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		got, err := base.Apply(RulesUpdate{MinDelta: Float(v)})
		assert.ErrorIs(t, err, ErrInvalidRule)
		assert.Equal(t, base, got)
	}

	r := base
	r.MinPremium = math.NaN()
	assert.ErrorIs(t, r.Validate(), ErrInvalidRule)
}

func TestParseRulesUpdate_FractionalDTE(t *testing.T) {
	_, err := ParseRulesUpdate(map[string]float64{"min_dte": 7.9})
	assert.ErrorIs(t, err, ErrInvalidRule)

	_, err = ParseRulesUpdate(map[string]float64{"MAX_DTE": 30.5})
	assert.ErrorIs(t, err, ErrInvalidRule)

	u, err := ParseRulesUpdate(map[string]float64{"min_dte": 14.0})
	require.NoError(t, err)
	assert.Equal(t, 14, *u.MinDTE)
}

func TestParseRulesUpdate_UnknownKey(t *testing.T) {
	_, err := ParseRulesUpdate(map[string]float64{"min_dte": 5, "max_gamma": 1})
	assert.ErrorIs(t, err, ErrUnknownRule)
}

func TestParseRulesUpdate_Known(t *testing.T) {
	u, err := ParseRulesUpdate(map[string]float64{"max_dte": 30, "min_iv_hv_ratio": 1.1})
	require.NoError(t, err)
	require.NotNil(t, u.MaxDTE)
	require.NotNil(t, u.MinIVHVRatio)
	assert.Equal(t, 30, *u.MaxDTE)
	assert.Equal(t, 1.1, *u.MinIVHVRatio)
	assert.Nil(t, u.MinDelta)
}

func TestScoringWeights_DefaultNormalized(t *testing.T) {
	w := DefaultScoringWeights()
	assert.True(t, w.Normalized())
	assert.True(t, w.OptimalDelta.Contains(0.25))
	assert.False(t, w.OptimalDTE.Contains(40))
}
