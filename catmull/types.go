package catmull

import (
	"errors"

	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/tourpath"
)

// tracer writes to trace with key 'catmull'
func tracer() tracing.Trace {
	return tracing.Select("catmull")
}

// Alpha is the exponent applied to chord lengths for knot spacing
// (0 = uniform, 1/2 = centripetal, 1 = chordal).
const Alpha float64 = 0.5

// DefaultTension is the chord/curve blend used when none is configured.
const DefaultTension float64 = 0.5

// DefaultDensity is the number of interior samples per waypoint pair used
// when none is configured.
const DefaultDensity int = 16

// Knot intervals below this value are treated as coincident control points.
const minKnotInterval = 1e-4

var (
	// ErrInvalidPoint indicates a point coordinate contains NaN/Inf.
	ErrInvalidPoint = errors.New("point has invalid coordinate")
	// ErrTableMismatch indicates an arc-length table not aligned with its points.
	ErrTableMismatch = errors.New("arc-length table does not match point sequence")
)

// ArcLengthTable holds cumulative Euclidean distances, aligned 1:1 with a
// densified point sequence. The first entry is 0 and entries never decrease.
type ArcLengthTable []float64

// Total returns the length of the whole point sequence.
func (t ArcLengthTable) Total() float64 {
	if len(t) == 0 {
		return 0
	}
	return t[len(t)-1]
}

// Curve bundles a densified point sequence with its arc-length table.
// A Curve is an immutable snapshot; rebuild it whenever waypoints change.
type Curve struct {
	Points  []tourpath.Pair // densified points, original waypoints included
	Table   ArcLengthTable  // cumulative arc length per point
	Knots   []int           // index of waypoint i within Points
	Density int             // interior samples per waypoint pair
	Tension float64         // chord/curve blend used for Points
}
