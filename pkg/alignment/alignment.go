// Package alignment compares the user's heading with the waypoint target.
package alignment

import (
	"math"

	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/geometry"
)

// Result is the outcome of one alignment evaluation.
// Measured is false when no signed error exists (no target, or no compass fix).
type Result struct {
	Kind     domain.OrientationKind
	Error    float64
	AbsError float64
	Measured bool
	Aligned  bool
}

// Evaluate applies the alignment rules to a classified orientation:
// direction-only waypoints are always aligned, a missing compass fix is
// never aligned, otherwise the absolute error must not exceed threshold.
func Evaluate(o domain.Orientation, threshold float64) Result {
	switch o.Kind {
	case domain.NoTarget:
		return Result{Kind: o.Kind, Aligned: true}
	case domain.NotYetSampled:
		return Result{Kind: o.Kind, Aligned: false}
	}

	e := geometry.NormalizeAngleDiff(o.Current.Degrees, o.Target)
	abs := math.Abs(e)
	return Result{
		Kind:     o.Kind,
		Error:    e,
		AbsError: abs,
		Measured: true,
		Aligned:  abs <= threshold,
	}
}

// EvaluateHeadings classifies the pair and evaluates it.
func EvaluateHeadings(current, target domain.Heading, threshold float64) Result {
	return Evaluate(domain.Orient(current, target), threshold)
}

// ErrorPtr returns the signed error for JSON views, nil when not measured.
func (r Result) ErrorPtr() *float64 {
	if !r.Measured {
		return nil
	}
	v := r.Error
	return &v
}

// AbsErrorPtr returns the absolute error for JSON views, nil when not measured.
func (r Result) AbsErrorPtr() *float64 {
	if !r.Measured {
		return nil
	}
	v := r.AbsError
	return &v
}
