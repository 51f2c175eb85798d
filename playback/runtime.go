package playback

import (
	"fmt"
	"math"
	"time"

	"github.com/npillmayer/tourpath"
	"github.com/npillmayer/tourpath/timing"
)

// Runtime is a fixed-step clock over one timing map.
//
// Range errors (times, progress values, frames, speeds out of bounds) are
// clamped. Calling Step, Update or any Seek operation before a timing map is
// installed is a programming error and panics with ErrNoTimingMap.
type Runtime struct {
	fps       float64
	tmap      *timing.SegmentTimingMap
	state     State
	base      float64       // clock time of the last seek, speed change or halt
	steps     int           // steps taken since base
	pending   float64       // wall-clock seconds not yet consumed by steps
	last      time.Duration // timestamp of the previous Update
	hasLast   bool
	observers []subscription
	nextID    int
}

// Step-accumulated times closer than this to the end are snapped to it.
const endSnap = 1e-9

type subscription struct {
	id int
	o  Observer
}

// New creates an idle runtime with a fixed frame rate. A non-positive fps
// selects DefaultFPS.
func New(fps float64) *Runtime {
	if !(fps > 0) || !tourpath.IsFinite(fps) {
		fps = DefaultFPS
	}
	return &Runtime{
		fps: fps,
		state: State{
			Segment: -1,
			Speed:   DefaultSpeed,
			FPS:     fps,
			Status:  Idle,
		},
	}
}

// FPS returns the fixed frame rate.
func (rt *Runtime) FPS() float64 {
	return rt.fps
}

// TimingMap returns the installed timing map, or nil.
func (rt *Runtime) TimingMap() *timing.SegmentTimingMap {
	return rt.tmap
}

// State returns a snapshot of the current state.
func (rt *Runtime) State() State {
	return rt.state
}

// Subscribe registers an observer. The returned function removes it again.
func (rt *Runtime) Subscribe(o Observer) (cancel func()) {
	rt.nextID++
	id := rt.nextID
	rt.observers = append(rt.observers, subscription{id: id, o: o})
	return func() {
		for i, sub := range rt.observers {
			if sub.id == id {
				rt.observers = append(rt.observers[:i:i], rt.observers[i+1:]...)
				return
			}
		}
	}
}

func (rt *Runtime) emit(kind EventKind) {
	tracer().Debugf("event %s %s", kind, rt.state)
	ev := Event{Kind: kind, State: rt.state}
	for _, sub := range rt.observers {
		sub.o(ev)
	}
}

// emitChanges emits a state event if segment, play flag or speed differ from
// the state before a transition.
func (rt *Runtime) emitChanges(before State) {
	if before.Segment != rt.state.Segment || before.Playing != rt.state.Playing ||
		before.Speed != rt.state.Speed {
		rt.emit(EventState)
	}
}

func (rt *Runtime) mustHaveMap(op string) {
	if rt.tmap == nil {
		panic(fmt.Errorf("%w: %s", ErrNoTimingMap, op))
	}
}

// SetTimingMap installs a timing map and resets the clock to Ready at time 0.
// The speed multiplier is kept. Installing nil returns the runtime to Idle.
func (rt *Runtime) SetTimingMap(m *timing.SegmentTimingMap) State {
	rt.tmap = m
	rt.pending, rt.hasLast = 0, false
	rt.state = State{
		Segment: -1,
		Speed:   rt.state.Speed,
		FPS:     rt.fps,
		Status:  Idle,
	}
	if m == nil {
		return rt.state
	}
	rt.state.Status = Ready
	rt.setTime(0)
	tracer().Infof("timing map installed: %.3fs, %d frames at %g fps",
		m.TotalDuration, rt.TotalFrames(), rt.fps)
	rt.emit(EventReady)
	return rt.state
}

// TotalFrames is the number of frames of a complete rendition, including the
// frame at time 0 and the frame showing the end of the path. It is 0 for an
// idle runtime.
func (rt *Runtime) TotalFrames() int {
	if rt.tmap == nil {
		return 0
	}
	return int(math.Ceil(rt.tmap.TotalDuration*rt.fps-1e-9)) + 1
}

// setTime clamps t and derives progress, segment and frame from it. The
// step count restarts at t.
func (rt *Runtime) setTime(t float64) {
	t = tourpath.Clamp(t, 0, rt.tmap.TotalDuration)
	rt.base, rt.steps = t, 0
	rt.state.Time = t
	rt.state.Progress = timing.ProgressAtTime(rt.tmap, t)
	rt.state.Segment = timing.SegmentIndexAt(rt.tmap, t)
	rt.state.Frame = int(math.Round(t * rt.fps))
}

// Play starts or resumes the clock. Playing an ended runtime restarts it at
// time 0. No-op for an idle runtime.
func (rt *Runtime) Play() State {
	if rt.tmap == nil || rt.state.Status == Playing {
		return rt.state
	}
	before := rt.state
	if rt.state.Status == Ended {
		rt.setTime(0)
	}
	rt.state.Playing = true
	rt.state.Status = Playing
	rt.pending, rt.hasLast = 0, false
	rt.emitChanges(before)
	return rt.state
}

// Pause freezes the clock. No-op unless playing.
func (rt *Runtime) Pause() State {
	if rt.tmap == nil || rt.state.Status != Playing {
		return rt.state
	}
	before := rt.state
	rt.state.Playing = false
	rt.state.Status = Paused
	rt.emitChanges(before)
	return rt.state
}

// TogglePlayPause pauses a playing runtime and plays any other.
func (rt *Runtime) TogglePlayPause() State {
	if rt.state.Playing {
		return rt.Pause()
	}
	return rt.Play()
}

// Step advances the clock by exactly speed/fps seconds if playing. Reaching
// the total duration ends playback. With click pauses, the clock halts at the
// end of a segment carrying a pause and leaves Playing; Play resumes it.
//
// The k-th step after a seek or speed change lands on base + k·speed/fps, so
// rounding does not accumulate over long paths.
func (rt *Runtime) Step() State {
	rt.mustHaveMap("step")
	if !rt.state.Playing {
		return rt.state
	}
	before := rt.state
	base, k := rt.base, rt.steps+1
	t := base + float64(k)*rt.state.Speed/rt.fps
	halt := false
	if rt.tmap.PauseMode == timing.PauseClick {
		t, halt = rt.clickHalt(rt.state.Time, t)
	}
	if rt.tmap.TotalDuration-t < endSnap {
		t = rt.tmap.TotalDuration
	}
	rt.setTime(t)
	if !halt {
		rt.base, rt.steps = base, k
	}
	if rt.state.Time >= rt.tmap.TotalDuration {
		rt.state.Playing = false
		rt.state.Status = Ended
		rt.emitChanges(before)
		rt.emit(EventEnded)
		return rt.state
	}
	if halt {
		tracer().Debugf("halting for click at t=%.4f", rt.state.Time)
		rt.state.Playing = false
		rt.state.Status = Paused
	}
	rt.emitChanges(before)
	return rt.state
}

// clickHalt returns the end of the first click-paused segment ending in
// (from, to], or to.
func (rt *Runtime) clickHalt(from, to float64) (float64, bool) {
	for _, seg := range rt.tmap.Segments {
		if seg.HasPause && seg.EndTime > from && seg.EndTime <= to {
			return seg.EndTime, true
		}
	}
	return to, false
}

// Update converts a wall-clock timestamp into whole clock steps. Elapsed real
// time since the previous call is accumulated and consumed in units of 1/fps,
// each unit being one Step; the remainder is carried forward. The first call
// after Play only records the timestamp. Timestamps going backwards count as
// no elapsed time.
func (rt *Runtime) Update(ts time.Duration) State {
	rt.mustHaveMap("update")
	if !rt.state.Playing {
		rt.pending, rt.hasLast = 0, false
		return rt.state
	}
	if !rt.hasLast {
		rt.last, rt.hasLast = ts, true
		return rt.state
	}
	if elapsed := ts - rt.last; elapsed > 0 {
		rt.pending += elapsed.Seconds()
	}
	rt.last = ts
	n := int(math.Floor(rt.pending*rt.fps + 1e-9))
	for i := 0; i < n && rt.state.Playing; i++ {
		rt.Step()
	}
	if rt.state.Playing {
		rt.pending = math.Max(0, rt.pending-float64(n)/rt.fps)
	} else {
		rt.pending = 0
	}
	return rt.state
}

// SeekToTime sets the clock to t, clamped to [0, total duration]. The play
// flag is unchanged; an ended runtime seeked before the end is paused.
func (rt *Runtime) SeekToTime(t float64) State {
	rt.mustHaveMap("seek")
	return rt.seek(t, -1)
}

// seek sets the clock to t. A non-negative segment overrides the segment
// derived from t.
func (rt *Runtime) seek(t float64, segment int) State {
	before := rt.state
	rt.setTime(t)
	if segment >= 0 {
		rt.state.Segment = segment
	}
	if rt.state.Status == Ended && rt.state.Time < rt.tmap.TotalDuration {
		rt.state.Status = Paused
	}
	rt.emitChanges(before)
	return rt.state
}

// SeekToNormalizedProgress seeks to the earliest time showing progress p.
func (rt *Runtime) SeekToNormalizedProgress(p float64) State {
	rt.mustHaveMap("seek")
	return rt.SeekToTime(timing.TimeAtProgress(rt.tmap, p))
}

// SeekToFrame seeks to frame f, clamped to [0, TotalFrames()-1].
func (rt *Runtime) SeekToFrame(f int) State {
	rt.mustHaveMap("seek")
	f = min(max(f, 0), rt.TotalFrames()-1)
	rt.SeekToTime(float64(f) / rt.fps)
	rt.state.Frame = f
	return rt.state
}

// SeekToStep seeks to the start of segment n. n equal to (or beyond) the
// number of segments seeks to the end of the path.
//
// The resulting state reports segment n even if n has zero length and so
// shares its start time with the following segment.
func (rt *Runtime) SeekToStep(n int) State {
	rt.mustHaveMap("seek")
	segs := rt.tmap.Segments
	switch {
	case n >= len(segs):
		return rt.seek(rt.tmap.TotalDuration, -1)
	case n <= 0:
		return rt.seek(0, 0)
	}
	return rt.seek(segs[n].StartTime, n)
}

// SetSpeed sets the speed multiplier, clamped to [MinSpeed, MaxSpeed]. NaN
// selects DefaultSpeed. Speed scales the amount of time per step, never the
// step granularity.
func (rt *Runtime) SetSpeed(s float64) State {
	if math.IsNaN(s) {
		s = DefaultSpeed
	}
	before := rt.state
	rt.state.Speed = tourpath.Clamp(s, MinSpeed, MaxSpeed)
	rt.base, rt.steps = rt.state.Time, 0
	if rt.tmap != nil {
		rt.emitChanges(before)
	}
	return rt.state
}
