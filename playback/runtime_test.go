package playback

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/npillmayer/tourpath"
	"github.com/npillmayer/tourpath/timing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustPanicWith(t *testing.T, target error, f func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic, got none")
		}
		err, ok := r.(error)
		if !ok || !errors.Is(err, target) {
			t.Fatalf("expected panic with %v, got %v", target, r)
		}
	}()
	f()
}

// one segment of 3 seconds
func singleSegment() *timing.SegmentTimingMap {
	return timing.MustBuildTimingMap([]timing.Waypoint{
		{ID: "a", Pos: tourpath.P(0, 0), Major: true},
		{ID: "b", Pos: tourpath.P(50, 0)},
		{ID: "c", Pos: tourpath.P(100, 0), Major: true},
	}, timing.DefaultConfig(), nil)
}

// two segments of 3 seconds each
func twoSegments(pm timing.PauseMode) *timing.SegmentTimingMap {
	cfg := timing.DefaultConfig()
	cfg.PauseMode = pm
	cfg.PauseSeconds = 1
	cfg.EaseInOut = true
	return timing.MustBuildTimingMap([]timing.Waypoint{
		{ID: "a", Pos: tourpath.P(0, 0), Major: true},
		{ID: "b", Pos: tourpath.P(100, 0), Major: true},
		{ID: "c", Pos: tourpath.P(100, 80), Major: true},
	}, cfg, nil)
}

func playThrough(rt *Runtime) []State {
	var states []State
	rt.Play()
	for rt.State().Playing {
		states = append(states, rt.Step())
	}
	return states
}

func TestIdleRuntime(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	rt := New(0)
	assert.Equal(t, DefaultFPS, rt.FPS())
	assert.Equal(t, Idle, rt.State().Status)
	assert.Equal(t, 0, rt.TotalFrames())
	assert.Equal(t, Idle, rt.Play().Status)
	assert.Equal(t, Idle, rt.Pause().Status)
	assert.Equal(t, Idle, rt.TogglePlayPause().Status)
	assert.Equal(t, 2.0, rt.SetSpeed(2).Speed)
	mustPanicWith(t, ErrNoTimingMap, func() { rt.Step() })
	mustPanicWith(t, ErrNoTimingMap, func() { rt.Update(time.Second) })
	mustPanicWith(t, ErrNoTimingMap, func() { rt.SeekToTime(1) })
	mustPanicWith(t, ErrNoTimingMap, func() { rt.SeekToNormalizedProgress(0.5) })
	mustPanicWith(t, ErrNoTimingMap, func() { rt.SeekToFrame(3) })
	mustPanicWith(t, ErrNoTimingMap, func() { rt.SeekToStep(1) })
}

func TestSetTimingMapResets(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	rt := New(30)
	var events []Event
	rt.Subscribe(func(ev Event) { events = append(events, ev) })
	rt.SetSpeed(2)
	st := rt.SetTimingMap(singleSegment())
	assert.Equal(t, Ready, st.Status)
	assert.Equal(t, 0.0, st.Time)
	assert.Equal(t, 0, st.Segment)
	assert.Equal(t, 2.0, st.Speed)
	require.Len(t, events, 1)
	assert.Equal(t, EventReady, events[0].Kind)

	rt.Play()
	rt.Step()
	st = rt.SetTimingMap(twoSegments(timing.PauseNone))
	assert.Equal(t, Ready, st.Status)
	assert.False(t, st.Playing)
	assert.Equal(t, 0.0, st.Time)
	assert.Equal(t, 0, st.Frame)

	st = rt.SetTimingMap(nil)
	assert.Equal(t, Idle, st.Status)
	assert.Equal(t, -1, st.Segment)
}

func TestStepIsFixed(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	rt := New(30)
	rt.SetTimingMap(singleSegment())
	assert.Equal(t, 0.0, rt.Step().Time, "not playing")
	rt.Play()
	st := rt.Step()
	assert.Equal(t, 1.0/30, st.Time)
	assert.Equal(t, 1, st.Frame)
	rt.SetSpeed(2)
	st = rt.Step()
	assert.Equal(t, 1.0/30+2.0/30, st.Time)
	assert.Equal(t, 3, st.Frame)
	assert.InDelta(t, st.Time/3, st.Progress, 1e-12)
}

func TestDeterministicPlaythrough(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	m := twoSegments(timing.PauseSeconds)
	a, b := New(30), New(30)
	a.SetTimingMap(m)
	b.SetTimingMap(m)
	sa, sb := playThrough(a), playThrough(b)
	require.Equal(t, len(sa), len(sb))
	for i := range sa {
		assert.Equal(t, sa[i].Time, sb[i].Time, "step %d", i)
		assert.Equal(t, sa[i].Progress, sb[i].Progress, "step %d", i)
	}
	last := sa[len(sa)-1]
	assert.Equal(t, Ended, last.Status)
	assert.Equal(t, m.TotalDuration, last.Time)
	assert.Equal(t, 1.0, last.Progress)
	assert.Equal(t, a.TotalFrames()-1, last.Frame)
}

func TestStepMatchesSeekToFrame(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	m := twoSegments(timing.PauseSeconds)
	stepper, seeker := New(24), New(24)
	stepper.SetTimingMap(m)
	seeker.SetTimingMap(m)
	states := playThrough(stepper)
	for i, st := range states {
		sk := seeker.SeekToFrame(i + 1)
		assert.LessOrEqual(t, math.Abs(float64(st.Frame-sk.Frame)), 1.0, "frame %d", i+1)
		assert.InDelta(t, sk.Time, st.Time, 1e-9, "frame %d", i+1)
		assert.InDelta(t, sk.Progress, st.Progress, 1e-6, "frame %d", i+1)
	}
	assert.Equal(t, seeker.TotalFrames()-1, len(states), "one step per frame")
}

// n constant-time segments of 3 seconds each
func longPath(n int) *timing.SegmentTimingMap {
	wps := make([]timing.Waypoint, n+1)
	for i := range wps {
		wps[i] = timing.Waypoint{ID: fmt.Sprintf("w%d", i), Pos: tourpath.P(float64(i)*10, 0), Major: true}
	}
	return timing.MustBuildTimingMap(wps, timing.DefaultConfig(), nil)
}

func TestLongPathStepCount(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	m := longPath(800) // 2400s
	rt := New(30)
	rt.SetTimingMap(m)
	require.Equal(t, 72001, rt.TotalFrames())
	rt.Play()
	steps := 0
	var prev, last State
	for rt.State().Playing {
		prev = rt.State()
		last = rt.Step()
		steps++
	}
	assert.Equal(t, rt.TotalFrames()-1, steps)
	assert.Equal(t, 71999, prev.Frame)
	assert.Equal(t, 72000, last.Frame)
	assert.Equal(t, m.TotalDuration, last.Time)
	assert.Equal(t, Ended, last.Status)
}

func TestUpdateVisitsStepStates(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	m := twoSegments(timing.PauseNone)
	visited := map[float64]bool{0: true}
	ref := New(30)
	ref.SetTimingMap(m)
	for _, st := range playThrough(ref) {
		visited[st.Time] = true
	}
	rt := New(30)
	rt.SetTimingMap(m)
	rt.Play()
	ts := 5 * time.Second
	assert.Equal(t, 0.0, rt.Update(ts).Time, "first update sets the baseline")
	jitter := []time.Duration{16 * time.Millisecond, 17 * time.Millisecond, 5 * time.Millisecond,
		40 * time.Millisecond, 0, 33 * time.Millisecond, 101 * time.Millisecond}
	for i := 0; rt.State().Playing && i < 1000; i++ {
		ts += jitter[i%len(jitter)]
		st := rt.Update(ts)
		assert.True(t, visited[st.Time], "time %v not visited by Step", st.Time)
	}
	assert.Equal(t, Ended, rt.State().Status)
	assert.Equal(t, m.TotalDuration, rt.State().Time)
}

func TestUpdateCarriesRemainder(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	rt := New(10)
	rt.SetTimingMap(singleSegment())
	rt.Play()
	rt.Update(0)
	assert.Equal(t, 0.0, rt.Update(60*time.Millisecond).Time)
	assert.Equal(t, 0.1, rt.Update(120*time.Millisecond).Time)
	assert.Equal(t, 0.1, rt.Update(100*time.Millisecond).Time, "backwards")
	assert.Equal(t, 0.1, rt.Update(150*time.Millisecond).Time)
	assert.Equal(t, 0.2, rt.Update(190*time.Millisecond).Time)
	rt.Pause()
	assert.Equal(t, 0.2, rt.Update(10*time.Second).Time)
	rt.Play()
	assert.Equal(t, 0.2, rt.Update(20*time.Second).Time, "baseline after resume")
}

func TestSpeedClamp(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	rt := New(30)
	rt.SetTimingMap(singleSegment())
	assert.Equal(t, MaxSpeed, rt.SetSpeed(100).Speed)
	assert.Equal(t, MinSpeed, rt.SetSpeed(0.01).Speed)
	assert.Equal(t, MinSpeed, rt.SetSpeed(-3).Speed)
	assert.Equal(t, DefaultSpeed, rt.SetSpeed(math.NaN()).Speed)
	assert.Equal(t, MaxSpeed, rt.SetSpeed(math.Inf(1)).Speed)
}

func TestEndedAndRestart(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	rt := New(30)
	rt.SetTimingMap(singleSegment())
	var kinds []EventKind
	rt.Subscribe(func(ev Event) { kinds = append(kinds, ev.Kind) })
	rt.SetSpeed(8)
	states := playThrough(rt)
	st := states[len(states)-1]
	assert.Equal(t, Ended, st.Status)
	assert.False(t, st.Playing)
	assert.Equal(t, 3.0, st.Time)
	// speed change, play, stop, end
	assert.Equal(t, []EventKind{EventState, EventState, EventState, EventEnded}, kinds)
	assert.Equal(t, st, rt.Step(), "stepping an ended runtime is a no-op")

	st = rt.Play()
	assert.Equal(t, Playing, st.Status)
	assert.Equal(t, 0.0, st.Time)
}

func TestSeeks(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	m := twoSegments(timing.PauseSeconds) // 3s, pause 1s, 3s
	rt := New(30)
	rt.SetTimingMap(m)
	assert.Equal(t, 0.0, rt.SeekToTime(-1).Time)
	assert.Equal(t, 0.0, rt.SeekToTime(math.NaN()).Time)
	st := rt.SeekToTime(99)
	assert.Equal(t, 7.0, st.Time)
	assert.Equal(t, 1.0, st.Progress)
	assert.Equal(t, Ready, st.Status)

	st = rt.SeekToNormalizedProgress(0.5)
	assert.Equal(t, 3.0, st.Time)
	assert.Equal(t, 0.5, st.Progress)
	st = rt.SeekToTime(3.5)
	assert.Equal(t, 0.5, st.Progress, "inside pause window")
	assert.Equal(t, 0, st.Segment)

	assert.Equal(t, 4.0, rt.SeekToStep(1).Time)
	assert.Equal(t, 1, rt.State().Segment)
	assert.Equal(t, 7.0, rt.SeekToStep(2).Time)
	assert.Equal(t, 7.0, rt.SeekToStep(9).Time)
	assert.Equal(t, 0.0, rt.SeekToStep(-2).Time)

	assert.Equal(t, 211, rt.TotalFrames())
	assert.Equal(t, 0, rt.SeekToFrame(-5).Frame)
	st = rt.SeekToFrame(10000)
	assert.Equal(t, 210, st.Frame)
	assert.Equal(t, 7.0, st.Time)
	st = rt.SeekToFrame(45)
	assert.Equal(t, 1.5, st.Time)
	assert.Equal(t, 45, st.Frame)

	rt.Play()
	assert.True(t, rt.SeekToStep(1).Playing, "seeking keeps the play flag")
}

func TestSeekToZeroLengthStep(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	m := timing.MustBuildTimingMap([]timing.Waypoint{
		{ID: "a", Pos: tourpath.P(0, 0), Major: true},
		{ID: "b", Pos: tourpath.P(100, 0), Major: true},
		{ID: "c", Pos: tourpath.P(100, 0), Major: true},
		{ID: "d", Pos: tourpath.P(200, 0), Major: true},
	}, timing.Config{Mode: timing.ConstantSpeed, BaseSpeed: 200}, nil)
	require.Equal(t, 0.0, m.Segments[1].Duration)
	rt := New(30)
	rt.SetTimingMap(m)
	var events []Event
	rt.Subscribe(func(ev Event) { events = append(events, ev) })

	st := rt.SeekToStep(1)
	assert.Equal(t, 1, st.Segment)
	assert.Equal(t, 0.5, st.Time)
	require.Len(t, events, 1)
	assert.Equal(t, 1, events[0].State.Segment)

	st = rt.SeekToStep(2)
	assert.Equal(t, 2, st.Segment)
	assert.Equal(t, 0.5, st.Time)
	require.Len(t, events, 2)

	rt.SeekToStep(1)
	rt.Play()
	st = rt.Step()
	assert.Equal(t, 2, st.Segment, "leaves the empty segment on the next step")
	assert.InDelta(t, 0.5+1.0/30, st.Time, 1e-12)
}

func TestSeekAfterEnd(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	rt := New(30)
	rt.SetTimingMap(singleSegment())
	rt.SetSpeed(MaxSpeed)
	playThrough(rt)
	require.Equal(t, Ended, rt.State().Status)
	st := rt.SeekToTime(1)
	assert.Equal(t, Paused, st.Status)
	assert.False(t, st.Playing)
	st = rt.Play()
	assert.Equal(t, 1.0, st.Time, "resume from the seek position")
}

func TestTotalFrames(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	rt := New(30)
	rt.SetTimingMap(singleSegment())
	assert.Equal(t, 91, rt.TotalFrames())
	half := timing.MustBuildTimingMap([]timing.Waypoint{
		{ID: "a", Pos: tourpath.P(0, 0), Major: true},
		{ID: "b", Pos: tourpath.P(100, 0), Major: true},
	}, timing.Config{Mode: timing.ConstantSpeed, BaseSpeed: 200}, nil)
	rt.SetTimingMap(half)
	assert.Equal(t, 16, rt.TotalFrames())
}

func TestClickPauseHalts(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	rt := New(30)
	rt.SetTimingMap(twoSegments(timing.PauseClick)) // 3s + 3s
	first := playThrough(rt)
	st := first[len(first)-1]
	assert.Equal(t, Paused, st.Status)
	assert.Equal(t, 3.0, st.Time)
	assert.Equal(t, 0.5, st.Progress)
	second := playThrough(rt)
	st = second[len(second)-1]
	assert.Equal(t, Ended, st.Status)
	assert.Equal(t, 6.0, st.Time)
	assert.Greater(t, second[0].Time, 3.0)
}

func TestEventsAreSynchronous(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	rt := New(30)
	rt.SetTimingMap(twoSegments(timing.PauseNone))
	var events []Event
	cancel := rt.Subscribe(func(ev Event) { events = append(events, ev) })
	rt.Play()
	require.Len(t, events, 1)
	assert.Equal(t, EventState, events[0].Kind)
	assert.True(t, events[0].State.Playing)

	rt.Step()
	assert.Len(t, events, 1, "same segment, no event")
	rt.SeekToStep(1)
	require.Len(t, events, 2)
	assert.Equal(t, 1, events[1].State.Segment)
	rt.SetSpeed(1)
	assert.Len(t, events, 2, "unchanged speed")
	rt.SetSpeed(3)
	require.Len(t, events, 3)
	assert.Equal(t, 3.0, events[2].State.Speed)
	rt.TogglePlayPause()
	require.Len(t, events, 4)
	assert.False(t, events[3].State.Playing)

	cancel()
	rt.Play()
	assert.Len(t, events, 4)
}

func TestEmptyMap(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	empty := timing.MustBuildTimingMap(nil, timing.DefaultConfig(), nil)
	rt := New(30)
	st := rt.SetTimingMap(empty)
	assert.Equal(t, Ready, st.Status)
	assert.Equal(t, -1, st.Segment)
	assert.Equal(t, 1, rt.TotalFrames())
	rt.Play()
	st = rt.Step()
	assert.Equal(t, Ended, st.Status)
	assert.Equal(t, 0.0, st.Progress)
	assert.Equal(t, 0.0, rt.SeekToStep(3).Time)
}
