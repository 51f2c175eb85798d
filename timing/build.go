package timing

import (
	"fmt"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/npillmayer/tourpath"
	"github.com/npillmayer/tourpath/catmull"
)

// BuildTimingMap creates a segment timing map for waypoints.
//
// Curve is the densified curve through the waypoints (see catmull.NewCurve).
// It is needed for arc lengths; if it is nil, the straight polyline through
// the waypoints is measured instead.
//
// With fewer than two major waypoints the result is an empty map with zero
// duration. This is a normal authoring state, not an error. Errors are
// returned for inconsistent input only: a curve which does not belong to the
// waypoints, duplicate waypoint IDs, unknown modes, or invalid coordinates.
func BuildTimingMap(waypoints []Waypoint, cfg Config, curve *catmull.Curve) (*SegmentTimingMap, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := checkIDs(waypoints); err != nil {
		return nil, err
	}
	lengths, err := knotLengths(waypoints, curve)
	if err != nil {
		return nil, err
	}
	cfg = cfg.normalized()
	m := &SegmentTimingMap{
		Mode:      cfg.Mode,
		BaseSpeed: cfg.BaseSpeed,
		PauseMode: cfg.PauseMode,
		EaseInOut: cfg.EaseInOut,
		index:     treemap.NewWith(utils.Float64Comparator),
	}
	majors := majorIndices(waypoints)
	if len(majors) < 2 {
		tracer().Infof("%d major waypoint(s), path is not animatable", len(majors))
		return m, nil
	}
	n := len(majors) - 1
	m.Segments = make([]Segment, n)
	t := 0.0
	for k := 0; k < n; k++ {
		a, b := majors[k], majors[k+1]
		seg := Segment{
			StartWaypointIndex: a,
			EndWaypointIndex:   b,
			StartLength:        lengths[a],
			EndLength:          lengths[b],
			StartProgress:      float64(k) / float64(n),
			EndProgress:        float64(k+1) / float64(n),
		}
		switch cfg.Mode {
		case ConstantTime:
			seg.Duration = cfg.SegmentSeconds
		case ConstantSpeed:
			seg.Duration = (seg.EndLength - seg.StartLength) / cfg.BaseSpeed
		}
		seg.StartTime = t
		seg.EndTime = seg.StartTime + seg.Duration
		if cfg.PauseMode != PauseNone && k < n-1 {
			seg.HasPause = true
			if cfg.PauseMode == PauseSeconds {
				seg.PauseDuration = cfg.PauseSeconds
			}
		}
		t = seg.WindowEnd()
		m.Segments[k] = seg
		// a zero-length segment is overwritten by its successor
		m.index.Put(seg.StartTime, k)
	}
	m.TotalDuration = t
	m.TotalPathLength = m.Segments[n-1].EndLength - m.Segments[0].StartLength
	tracer().Infof("timing map: %d segments, %.3fs, %.1fpx, mode %s, pause %s",
		n, m.TotalDuration, m.TotalPathLength, m.Mode, m.PauseMode)
	return m, nil
}

// MustBuildTimingMap is a helper which panics on inconsistent input.
func MustBuildTimingMap(waypoints []Waypoint, cfg Config, curve *catmull.Curve) *SegmentTimingMap {
	m, err := BuildTimingMap(waypoints, cfg, curve)
	if err != nil {
		panic(err)
	}
	return m
}

// Positions extracts the waypoint coordinates, in order.
func Positions(waypoints []Waypoint) []tourpath.Pair {
	pts := make([]tourpath.Pair, len(waypoints))
	for i, wp := range waypoints {
		pts[i] = wp.Pos
	}
	return pts
}

func majorIndices(waypoints []Waypoint) []int {
	var majors []int
	for i, wp := range waypoints {
		if wp.Major {
			majors = append(majors, i)
		}
	}
	return majors
}

func checkIDs(waypoints []Waypoint) error {
	seen := make(map[string]int, len(waypoints))
	for i, wp := range waypoints {
		if wp.ID == "" {
			continue
		}
		if j, ok := seen[wp.ID]; ok {
			return fmt.Errorf("%w: %q at %d and %d", ErrDuplicateWaypoint, wp.ID, j, i)
		}
		seen[wp.ID] = i
	}
	return nil
}

// knotLengths returns the arc length at every waypoint.
func knotLengths(waypoints []Waypoint, curve *catmull.Curve) ([]float64, error) {
	if curve == nil {
		pts := Positions(waypoints)
		if err := catmull.ValidatePoints(pts); err != nil {
			return nil, err
		}
		return catmull.BuildArcLengthTable(pts), nil
	}
	if len(curve.Knots) != len(waypoints) {
		return nil, fmt.Errorf("%w: %d knots for %d waypoints", ErrKnotMismatch, len(curve.Knots), len(waypoints))
	}
	if len(curve.Table) != len(curve.Points) {
		return nil, fmt.Errorf("%w: %d points, %d table entries", catmull.ErrTableMismatch,
			len(curve.Points), len(curve.Table))
	}
	lengths := make([]float64, len(waypoints))
	prev := 0
	for i, k := range curve.Knots {
		if k < prev || k >= len(curve.Table) {
			return nil, fmt.Errorf("%w: waypoint %d at curve index %d of %d", ErrKnotOutOfRange,
				i, k, len(curve.Table))
		}
		lengths[i] = curve.Table[k]
		prev = k
	}
	return lengths, nil
}
