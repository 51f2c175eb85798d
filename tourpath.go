/*
Package tourpath animates a marker along an authored path on top of a still
image. This root package holds the value types shared by all sub-packages:
points in image pixel space and affine transforms between pixel spaces.

The engine is split leaf-first into

	catmull   smoothing and arc-length parametrization of a waypoint path
	timing    segment timing maps (time ↔ normalized progress)
	playback  a deterministic fixed-step clock consuming a timing map

and the adapters project (project files), export (frame rendering and sinks)
and remote (embed/remote-control surface).

# BSD License

# Copyright (c) Norbert Pillmayer

All rights reserved.

Please refer to the license file for more information.
*/
package tourpath

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'tourpath'
func tracer() tracing.Trace {
	return tracing.Select("tourpath")
}

// === Numeric Data Type =====================================================

// Epsilon : numbers below ε are considered 0
var Epsilon float64 = 0.0000001

// Is0 is a predicate: is n = 0 ?
func Is0(n float64) bool {
	return math.Abs(n) <= Epsilon
}

// Clamp restricts n to [lo, hi]. NaN is mapped to lo.
func Clamp(n, lo, hi float64) float64 {
	if math.IsNaN(n) || n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// IsFinite is a predicate: is n neither NaN nor ±Inf?
func IsFinite(n float64) bool {
	return !math.IsNaN(n) && !math.IsInf(n, 0)
}

// === Pair Data Type ========================================================

// Pair is a 2D point in image pixel space. Pairs are immutable values.
type Pair complex128

// Origin represents the frequently used constant (0,0).
var Origin = P(0, 0)

// Pretty Stringer for simple pairs.
func (p Pair) String() string {
	return fmt.Sprintf("(%g,%g)", real(p), imag(p))
}

// C returns a Pair as a complex number.
func (p Pair) C() complex128 {
	return complex128(p)
}

// C2P returns a Pair from a complex number.
func C2P(c complex128) Pair {
	if cmplx.IsNaN(c) || cmplx.IsInf(c) {
		tracer().Errorf("created pair for complex.NaN")
		return P(0, 0)
	}
	return P(real(c), imag(c))
}

// P is a quick notation for contructing a pair from floats.
func P(x, y float64) Pair {
	return Pair(complex(x, y))
}

// X is the x-part of a pair.
func (p Pair) X() float64 {
	return real(p)
}

// Y is the y-part of a pair.
func (p Pair) Y() float64 {
	return imag(p)
}

// IsValid is a predicate: are both coordinates finite?
func (p Pair) IsValid() bool {
	return IsFinite(p.X()) && IsFinite(p.Y())
}

// Equal compares two pairs within ε.
func (p Pair) Equal(p2 Pair) bool {
	return Is0(p.X()-p2.X()) && Is0(p.Y()-p2.Y())
}

// Dist returns the Euclidean distance between p and p2.
func (p Pair) Dist(p2 Pair) float64 {
	return math.Hypot(p2.X()-p.X(), p2.Y()-p.Y())
}

// Blend returns the weighted sum wp·p + wq·q, evaluated per component in a
// fixed order. Callers in the animation path rely on this for bit-identical
// results between preview and export.
func Blend(p Pair, wp float64, q Pair, wq float64) Pair {
	x := wp*p.X() + wq*q.X()
	y := wp*p.Y() + wq*q.Y()
	return P(x, y)
}

// Lerp interpolates linearly between p (t=0) and q (t=1).
func Lerp(p, q Pair, t float64) Pair {
	return Blend(p, 1-t, q, t)
}

// === Affine Transformations ================================================

// AT is an affine transform, a matrix type used for transforming vectors.
type AT []float64 // a 3x3 matrix, flattened by rows

// Internal constructor. Clients implicitely use this as a starting point for
// transform combinations.
func newAT() AT {
	m := make([]float64, 9)
	return m
}

func (m AT) set(row, col int, value float64) {
	m[row*3+col] = value
}

func (m AT) row(row int) []float64 {
	return m[row*3 : (row+1)*3]
}

func (m AT) col(col int) []float64 {
	c := make([]float64, 3)
	c[0] = m[col]
	c[1] = m[3+col]
	c[2] = m[6+col]
	return c
}

// Identity transform. Will transform a point onto itself.
func Identity() AT {
	m := newAT()
	m.set(0, 0, 1.0)
	m.set(1, 1, 1.0)
	m.set(2, 2, 1.0)
	return m
}

// Translation transform. Translate a point by (dx,dy).
func Translation(p Pair) AT {
	m := Identity()
	m.set(0, 2, p.X())
	m.set(1, 2, p.Y())
	return m
}

// Scaling transform. Scale a point by sx horizontally and sy vertically.
func Scaling(sx, sy float64) AT {
	m := Identity()
	m.set(0, 0, sx)
	m.set(1, 1, sy)
	return m
}

// FitInto returns the transform which scales a w×h image uniformly into a
// W×H frame and centers it (letterboxing). It also returns the scale factor.
func FitInto(w, h, W, H float64) (AT, float64) {
	if w <= 0 || h <= 0 {
		return Identity(), 1
	}
	scale := math.Min(W/w, H/h)
	off := P((W-w*scale)/2, (H-h*scale)/2)
	return Scaling(scale, scale).Combine(Translation(off)), scale
}

// Debug Stringer for an affine transform.
func (m AT) String() string {
	s := fmt.Sprintf("[%g,%g,%g|%g,%g,%g|%g,%g,%g]",
		m[0], m[1], m[2], m[3], m[4], m[5], m[6], m[7], m[8])
	return s
}

// v1 × v2, v.n = [a,b,c]
func dotProd(vec1, vec2 []float64) float64 {
	p1 := vec1[0] * vec2[0]
	p2 := vec1[1] * vec2[1]
	p3 := vec1[2] * vec2[2]
	return p1 + p2 + p3
}

// Combine 2 affine transformation to a new one: m is applied first, then n.
// Returns a new transformation without changing the argument(s).
func (m AT) Combine(n AT) AT {
	o := newAT()
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			o.set(row, col, dotProd(n.row(row), m.col(col)))
		}
	}
	return o
}

func (m AT) multiplyVector(v []float64) []float64 {
	c := make([]float64, 3)
	c[0] = dotProd(m.row(0), v)
	c[1] = dotProd(m.row(1), v)
	c[2] = dotProd(m.row(2), v)
	return c
}

// Transform a 2D-point. The argument is unchanged and a new pair is returned.
func (m AT) Transform(p Pair) Pair {
	c := []float64{p.X(), p.Y(), 1.0}
	c = m.multiplyVector(c)
	return P(c[0], c[1])
}
