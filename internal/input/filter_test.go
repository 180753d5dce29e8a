package input

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyDeadZone(t *testing.T) {
	for _, v := range []float64{0.09, -0.09, 0.0001, -0.05} {
		assert.Equal(t, 0.0, ApplyDeadZone(v, 0.1), "value %v", v)
	}
	assert.Equal(t, 0.1, ApplyDeadZone(0.1, 0.1))
	assert.Equal(t, -0.5, ApplyDeadZone(-0.5, 0.1))
	assert.Equal(t, 0.01, ApplyDeadZone(0.01, 0))
}

func TestApplySmoothing(t *testing.T) {
	assert.InDelta(t, 0.75, ApplySmoothing(1, 0.5, 0.5), 1e-9)
	assert.InDelta(t, 0.2, ApplySmoothing(0.2, 10, 0), 1e-9)
	assert.InDelta(t, 10, ApplySmoothing(0.2, 10, 1), 1e-9)
}

func TestBuiltinCurves(t *testing.T) {
	curves := builtinCurves()
	assert.Equal(t, 0.5, curves[CurveLinear](0.5))
	assert.Equal(t, 0.25, curves[CurveQuadratic](0.5))
	assert.Equal(t, -0.25, curves[CurveQuadratic](-0.5))
	assert.Equal(t, -0.125, curves[CurveCubic](-0.5))
}

func TestFilterSpecValidate(t *testing.T) {
	assert.NoError(t, FilterSpec{}.Validate())
	assert.NoError(t, FilterSpec{DeadZone: 0.2, Smoothing: 0.9, Curve: "cubic"}.Validate())
	assert.Error(t, FilterSpec{Smoothing: -0.1}.Validate())
	assert.Error(t, FilterSpec{DeadZone: math.NaN()}.Validate())
	assert.True(t, FilterSpec{}.IsZero())
	assert.False(t, FilterSpec{Curve: "linear"}.IsZero())
}
