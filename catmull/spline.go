package catmull

import (
	"fmt"
	"math"

	"github.com/npillmayer/tourpath"
)

// piece is one curve piece between control points p1 and p2, bounded by the
// neighbours p0 and p3, together with its centripetal knot values.
type piece struct {
	p0, p1, p2, p3 tourpath.Pair
	t0, t1, t2, t3 float64
}

// knotInterval is |b-a|^α for α = 1/2.
func knotInterval(a, b tourpath.Pair) float64 {
	d := math.Sqrt(a.Dist(b))
	if d < minKnotInterval {
		return 1.0
	}
	return d
}

func newPiece(p0, p1, p2, p3 tourpath.Pair) piece {
	pc := piece{p0: p0, p1: p1, p2: p2, p3: p3}
	pc.t0 = 0
	pc.t1 = pc.t0 + knotInterval(p0, p1)
	pc.t2 = pc.t1 + knotInterval(p1, p2)
	pc.t3 = pc.t2 + knotInterval(p2, p3)
	return pc
}

// pieceAt builds the piece between points[i] and points[i+1], clamping the
// neighbours to the first and last point.
func pieceAt(points []tourpath.Pair, i int) piece {
	last := len(points) - 1
	p0 := points[max(i-1, 0)]
	p3 := points[min(i+2, last)]
	return newPiece(p0, points[i], points[i+1], p3)
}

// eval evaluates the full centripetal interpolant at local parameter
// u ∈ [0,1]. The control points themselves are returned for u = 0 and u = 1.
func (pc piece) eval(u float64) tourpath.Pair {
	if u <= 0 {
		return pc.p1
	}
	if u >= 1 {
		return pc.p2
	}
	t := pc.t1 + u*(pc.t2-pc.t1)
	a1 := tourpath.Blend(pc.p0, (pc.t1-t)/(pc.t1-pc.t0), pc.p1, (t-pc.t0)/(pc.t1-pc.t0))
	a2 := tourpath.Blend(pc.p1, (pc.t2-t)/(pc.t2-pc.t1), pc.p2, (t-pc.t1)/(pc.t2-pc.t1))
	a3 := tourpath.Blend(pc.p2, (pc.t3-t)/(pc.t3-pc.t2), pc.p3, (t-pc.t2)/(pc.t3-pc.t2))
	b1 := tourpath.Blend(a1, (pc.t2-t)/(pc.t2-pc.t0), a2, (t-pc.t0)/(pc.t2-pc.t0))
	b2 := tourpath.Blend(a2, (pc.t3-t)/(pc.t3-pc.t1), a3, (t-pc.t1)/(pc.t3-pc.t1))
	return tourpath.Blend(b1, (pc.t2-t)/(pc.t2-pc.t1), b2, (t-pc.t1)/(pc.t2-pc.t1))
}

// evalTense blends the curve point at u with the chord point at u.
func (pc piece) evalTense(u, tension float64) tourpath.Pair {
	if u <= 0 {
		return pc.p1
	}
	if u >= 1 {
		return pc.p2
	}
	chord := tourpath.Lerp(pc.p1, pc.p2, u)
	return tourpath.Blend(chord, 1-tension, pc.eval(u), tension)
}

// SmoothCurve densifies an ordered point sequence. For every consecutive
// pair of points it emits the first point followed by density interior
// samples; the last input point closes the sequence. Original points appear
// unchanged in the result, at index i*(density+1) (see KnotIndex).
//
// Tension blends between the straight chord (0) and the full centripetal
// Catmull-Rom curve (1). It is clamped to [0,1]; NaN selects DefaultTension.
// A negative density is treated as 0. Fewer than 2 points are returned
// unchanged (as a copy).
func SmoothCurve(points []tourpath.Pair, density int, tension float64) []tourpath.Pair {
	if len(points) < 2 {
		return append([]tourpath.Pair(nil), points...)
	}
	if density < 0 {
		tracer().Debugf("negative curve density %d clamped to 0", density)
		density = 0
	}
	tension = clampTension(tension)
	n := len(points)
	curve := make([]tourpath.Pair, 0, (n-1)*(density+1)+1)
	step := 1.0 / float64(density+1)
	for i := 0; i < n-1; i++ {
		pc := pieceAt(points, i)
		curve = append(curve, points[i])
		for k := 1; k <= density; k++ {
			curve = append(curve, pc.evalTense(float64(k)*step, tension))
		}
	}
	curve = append(curve, points[n-1])
	tracer().Debugf("smoothed %d points into %d (density %d, tension %.3g)",
		n, len(curve), density, tension)
	return curve
}

// KnotIndex returns the position of original point i within the output of
// SmoothCurve for the given density.
func KnotIndex(i, density int) int {
	if density < 0 {
		density = 0
	}
	return i * (density + 1)
}

func clampTension(tension float64) float64 {
	if math.IsNaN(tension) {
		return DefaultTension
	}
	return tourpath.Clamp(tension, 0, 1)
}

// ValidatePoints checks that every point has finite coordinates.
func ValidatePoints(points []tourpath.Pair) error {
	for i, p := range points {
		if !p.IsValid() {
			return fmt.Errorf("%w at point %d: %v", ErrInvalidPoint, i, p)
		}
	}
	return nil
}
