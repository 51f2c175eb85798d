package timing

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/npillmayer/tourpath"
)

// QuadraticEaseInOut is the symmetric quadratic easing
//
//	2t²          for t < 1/2
//	1 - 2(1-t)²  otherwise
//
// t is clamped to [0,1].
func QuadraticEaseInOut(t float64) float64 {
	t = tourpath.Clamp(t, 0, 1)
	if t < 0.5 {
		return 2 * t * t
	}
	s := 1 - t
	return 1 - 2*s*s
}

// InverseQuadraticEaseInOut inverts QuadraticEaseInOut on [0,1].
func InverseQuadraticEaseInOut(v float64) float64 {
	v = tourpath.Clamp(v, 0, 1)
	if v < 0.5 {
		return math.Sqrt(v / 2)
	}
	return 1 - math.Sqrt((1-v)/2)
}

// eased reports whether segment k is eased. The first and the last segment of
// a path are never eased, to avoid easing twice at the path's absolute start
// and end.
func (m *SegmentTimingMap) eased(k int) bool {
	return m.EaseInOut && k > 0 && k < len(m.Segments)-1
}

// SegmentIndexAt returns the index of the segment whose time window
// (motion plus trailing pause) contains t. Times at or beyond the total
// duration select the last segment. Returns -1 for a map without segments.
//
// Windows are half-open, [StartTime, WindowEnd), so a segment of zero
// duration without a pause is never selected by time.
func SegmentIndexAt(m *SegmentTimingMap, t float64) int {
	if !m.IsAnimatable() {
		return -1
	}
	last := len(m.Segments) - 1
	if !(t > 0) {
		return m.firstIndexAt(0)
	}
	if t >= m.TotalDuration {
		return last
	}
	return m.firstIndexAt(t)
}

func (m *SegmentTimingMap) firstIndexAt(t float64) int {
	if m.index != nil {
		if _, v := m.index.Floor(t); v != nil {
			return v.(int)
		}
		return 0
	}
	// maps assembled by hand carry no index
	k := sort.Search(len(m.Segments), func(i int) bool {
		return m.Segments[i].StartTime > t
	})
	return max(k-1, 0)
}

// ActiveSegment returns a copy of the segment active at time t, or nil for a
// map without segments.
func ActiveSegment(m *SegmentTimingMap, t float64) *Segment {
	k := SegmentIndexAt(m, t)
	if k < 0 {
		return nil
	}
	seg := m.Segments[k]
	return &seg
}

// ProgressAtTime returns the normalized progress ∈ [0,1] at time t.
// t is clamped to [0, TotalDuration]. Within a pause window progress stays at
// the segment's end progress. A map without segments yields 0.
func ProgressAtTime(m *SegmentTimingMap, t float64) float64 {
	if !m.IsAnimatable() || !(t > 0) {
		return 0
	}
	if t >= m.TotalDuration {
		return 1
	}
	k := SegmentIndexAt(m, t)
	seg := m.Segments[k]
	if t >= seg.EndTime {
		return seg.EndProgress
	}
	u := tourpath.Clamp((t-seg.StartTime)/seg.Duration, 0, 1)
	if m.eased(k) {
		u = QuadraticEaseInOut(u)
	}
	p := seg.StartProgress + u*(seg.EndProgress-seg.StartProgress)
	return math.Min(p, seg.EndProgress)
}

// TimeAtProgress is the inverse of ProgressAtTime. p is clamped to [0,1].
// Where progress is constant over an interval (pauses), the earliest time is
// returned.
func TimeAtProgress(m *SegmentTimingMap, p float64) float64 {
	if !m.IsAnimatable() || !(p > 0) {
		return 0
	}
	if p >= 1 {
		return m.TotalDuration
	}
	k := m.segmentIndexForProgress(p)
	seg := m.Segments[k]
	u := tourpath.Clamp((p-seg.StartProgress)/(seg.EndProgress-seg.StartProgress), 0, 1)
	if m.eased(k) {
		u = InverseQuadraticEaseInOut(u)
	}
	t := seg.StartTime + u*seg.Duration
	return math.Min(t, seg.EndTime)
}

func (m *SegmentTimingMap) segmentIndexForProgress(p float64) int {
	k := sort.Search(len(m.Segments), func(i int) bool {
		return m.Segments[i].EndProgress >= p
	})
	return min(k, len(m.Segments)-1)
}

// LengthAtProgress returns the arc length the marker has travelled at
// progress p. Inside a segment, arc length grows linearly with progress, so
// the marker moves at constant visual speed between two major waypoints.
func LengthAtProgress(m *SegmentTimingMap, p float64) float64 {
	if !m.IsAnimatable() {
		return 0
	}
	p = tourpath.Clamp(p, 0, 1)
	seg := m.Segments[m.segmentIndexForProgress(p)]
	if p >= seg.EndProgress {
		return seg.EndLength
	}
	u := tourpath.Clamp((p-seg.StartProgress)/(seg.EndProgress-seg.StartProgress), 0, 1)
	return seg.StartLength + u*(seg.EndLength-seg.StartLength)
}

// Describe returns a table of the map's segments, for diagnostics.
func Describe(m *SegmentTimingMap) string {
	if !m.IsAnimatable() {
		return "(not animatable: fewer than 2 major waypoints)\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "mode %s, pause %s, ease %v, total %.3fs, length %.1fpx\n",
		m.Mode, m.PauseMode, m.EaseInOut, m.TotalDuration, m.TotalPathLength)
	fmt.Fprintf(&b, "%4s %9s %9s %7s %7s %7s %8s %9s\n",
		"seg", "waypoints", "start", "end", "pause", "p0", "p1", "length")
	for k, seg := range m.Segments {
		fmt.Fprintf(&b, "%4d %4d→%-4d %9.3f %7.3f %7.3f %7.4f %8.4f %9.1f\n",
			k, seg.StartWaypointIndex, seg.EndWaypointIndex, seg.StartTime, seg.EndTime,
			seg.PauseDuration, seg.StartProgress, seg.EndProgress, seg.EndLength-seg.StartLength)
	}
	return b.String()
}
