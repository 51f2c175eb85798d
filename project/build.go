package project

import (
	"github.com/npillmayer/tourpath/catmull"
	"github.com/npillmayer/tourpath/playback"
	"github.com/npillmayer/tourpath/timing"
)

// Scene is the result of building a project: the smoothed curve through the
// waypoints and the timing map over it. Scenes are immutable; rebuild after
// every change to the project.
type Scene struct {
	Waypoints []timing.Waypoint
	Curve     *catmull.Curve
	Timing    *timing.SegmentTimingMap
}

// Build smooths the waypoints and builds the timing map.
func (p *Project) Build() (*Scene, error) {
	wps := p.TimingWaypoints()
	curve, err := catmull.NewCurve(timing.Positions(wps), p.Density(), p.Tension())
	if err != nil {
		return nil, err
	}
	m, err := timing.BuildTimingMap(wps, p.TimingConfig(), curve)
	if err != nil {
		return nil, err
	}
	return &Scene{Waypoints: wps, Curve: curve, Timing: m}, nil
}

// NewRuntime creates a runtime at the project's frame rate with the scene's
// timing map installed.
func (s *Scene) NewRuntime(fps float64) *playback.Runtime {
	rt := playback.New(fps)
	rt.SetTimingMap(s.Timing)
	return rt
}
