package catmull

import (
	"fmt"
	"sort"

	"github.com/npillmayer/tourpath"
)

// BuildArcLengthTable returns the cumulative Euclidean distance for each
// point, starting at 0. Repeated points contribute 0.
func BuildArcLengthTable(points []tourpath.Pair) ArcLengthTable {
	table := make(ArcLengthTable, len(points))
	for i := 1; i < len(points); i++ {
		table[i] = table[i-1] + points[i-1].Dist(points[i])
	}
	return table
}

// PositionAtArcLength returns the point at arc length target along points.
// Target is clamped to [0, total length]; both ends return the first and
// last point exactly. Between two table entries the position is evaluated on
// the centripetal Catmull-Rom curve through the four local control points,
// i.e. on the same kind of curve used for display, not by linear blending.
//
// A table not aligned with points is a programming error and panics.
func PositionAtArcLength(points []tourpath.Pair, table ArcLengthTable, target float64) tourpath.Pair {
	n := len(points)
	if len(table) != n {
		panic(fmt.Errorf("%w: %d points, %d table entries", ErrTableMismatch, n, len(table)))
	}
	if n == 0 {
		return tourpath.Origin
	}
	if !(target > 0) { // also catches NaN
		return points[0]
	}
	if target >= table[n-1] {
		return points[n-1]
	}
	j := sort.SearchFloat64s(table, target) // table[j-1] < target <= table[j]
	i := j - 1
	u := (target - table[i]) / (table[j] - table[i])
	return pieceAt(points, i).eval(u)
}

// NewCurve densifies waypoints and builds the arc-length table.
// Waypoints with NaN/Inf coordinates are rejected with ErrInvalidPoint.
// Fewer than 2 waypoints are not an error: the curve simply consists of the
// waypoints themselves and has length 0.
func NewCurve(waypoints []tourpath.Pair, density int, tension float64) (*Curve, error) {
	if err := ValidatePoints(waypoints); err != nil {
		return nil, err
	}
	if density < 0 {
		density = 0
	}
	tension = clampTension(tension)
	c := &Curve{
		Density: density,
		Tension: tension,
	}
	c.Points = SmoothCurve(waypoints, density, tension)
	c.Table = BuildArcLengthTable(c.Points)
	c.Knots = make([]int, len(waypoints))
	for i := range waypoints {
		c.Knots[i] = KnotIndex(i, density)
	}
	tracer().Infof("curve with %d waypoints, %d points, length %.2f",
		len(waypoints), len(c.Points), c.Length())
	return c, nil
}

// MustNewCurve is a helper which panics on invalid waypoints.
func MustNewCurve(waypoints []tourpath.Pair, density int, tension float64) *Curve {
	c, err := NewCurve(waypoints, density, tension)
	if err != nil {
		panic(err)
	}
	return c
}

// Length returns the total arc length of the curve.
func (c *Curve) Length() float64 {
	return c.Table.Total()
}

// LengthAtKnot returns the arc length at which waypoint i sits.
func (c *Curve) LengthAtKnot(i int) float64 {
	return c.Table[c.Knots[i]]
}

// PositionAtArcLength is PositionAtArcLength for this curve.
func (c *Curve) PositionAtArcLength(s float64) tourpath.Pair {
	return PositionAtArcLength(c.Points, c.Table, s)
}

// PositionAt returns the point at fraction f ∈ [0,1] of the total arc length.
func (c *Curve) PositionAt(f float64) tourpath.Pair {
	return c.PositionAtArcLength(tourpath.Clamp(f, 0, 1) * c.Length())
}
