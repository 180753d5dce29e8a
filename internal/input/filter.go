package input

import (
	"fmt"
	"math"
)

// FilterSpec configures the value pipeline for one binding. The router
// applies dead zone, then smoothing, then the response curve.
type FilterSpec struct {
	// DeadZone zeroes values whose magnitude is below it.
	DeadZone float64

	// Smoothing is the exponential smoothing factor in [0, 1). Zero
	// disables smoothing; larger values weight the previous value more.
	Smoothing float64

	// Curve names a response curve registered on the router.
	Curve string
}

// IsZero reports whether the spec leaves values untouched.
func (f FilterSpec) IsZero() bool {
	return f.DeadZone == 0 && f.Smoothing == 0 && f.Curve == ""
}

// Validate checks parameter ranges.
func (f FilterSpec) Validate() error {
	if f.DeadZone < 0 || math.IsNaN(f.DeadZone) {
		return fmt.Errorf("dead zone must be >= 0, got %v", f.DeadZone)
	}
	if f.Smoothing < 0 || f.Smoothing >= 1 || math.IsNaN(f.Smoothing) {
		return fmt.Errorf("smoothing must be in [0, 1), got %v", f.Smoothing)
	}
	return nil
}

// Curve maps a filtered value to a response value.
type Curve func(v float64) float64

// Built-in curve names.
const (
	CurveLinear    = "linear"
	CurveQuadratic = "quadratic"
	CurveCubic     = "cubic"
)

// builtinCurves are registered on every router.
func builtinCurves() map[string]Curve {
	return map[string]Curve{
		CurveLinear: func(v float64) float64 { return v },
		// Sign-preserving so that axes keep their direction.
		CurveQuadratic: func(v float64) float64 { return v * math.Abs(v) },
		CurveCubic:     func(v float64) float64 { return v * v * v },
	}
}

// ApplyDeadZone returns exactly 0 when |v| < deadZone.
func ApplyDeadZone(v, deadZone float64) float64 {
	if deadZone > 0 && math.Abs(v) < deadZone {
		return 0
	}
	return v
}

// ApplySmoothing blends v toward prev. factor is the weight of prev.
func ApplySmoothing(v, prev, factor float64) float64 {
	if factor <= 0 {
		return v
	}
	if factor >= 1 {
		return prev
	}
	return prev*factor + v*(1-factor)
}
