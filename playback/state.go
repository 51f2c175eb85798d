/*
Package playback drives a timing map with a deterministic fixed-step clock.

A Runtime holds exactly one timing map and a fixed output frame rate. Time
advances only in whole steps of speed/fps seconds, either by calling Step
directly (export) or through Update, which converts wall-clock timestamps into
whole steps (interactive preview). Both paths visit the same sequence of
states.

A Runtime is owned by a single goroutine. It never blocks, sleeps or starts
goroutines; the caller supplies the cadence.

# BSD License

# Copyright (c) Norbert Pillmayer

All rights reserved.

Please refer to the license file for more information.
*/
package playback

import (
	"errors"
	"fmt"

	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'playback'
func tracer() tracing.Trace {
	return tracing.Select("playback")
}

// Runtime defaults.
const (
	DefaultFPS   float64 = 30
	MinSpeed     float64 = 0.25
	MaxSpeed     float64 = 8.0
	DefaultSpeed float64 = 1.0
)

// ErrNoTimingMap is raised (as a panic) when a clock operation is invoked on
// a runtime without a timing map.
var ErrNoTimingMap = errors.New("no timing map installed")

// Status is the lifecycle state of a runtime.
type Status int

// Runtime states.
const (
	Idle    Status = iota // no timing map installed
	Ready                 // map installed, not started
	Playing               // clock advancing
	Paused                // clock frozen
	Ended                 // clock reached the total duration while playing
)

var statusNames = []string{"idle", "ready", "playing", "paused", "ended"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

// State is a read-only snapshot of a runtime. Every transition returns one.
type State struct {
	Time     float64 // seconds, in [0, total duration]
	Progress float64 // normalized path progress, in [0,1]
	Segment  int     // index of the active segment, -1 if there is none
	Playing  bool
	Speed    float64
	Frame    int
	FPS      float64
	Status   Status
}

func (st State) String() string {
	return fmt.Sprintf("[%s t=%.4f p=%.4f seg=%d frame=%d speed=%g]",
		st.Status, st.Time, st.Progress, st.Segment, st.Frame, st.Speed)
}

// EventKind discriminates runtime notifications.
type EventKind int

// Runtime notifications.
const (
	EventReady EventKind = iota // a timing map has been installed
	EventState                  // segment, play flag or speed changed
	EventEnded                  // the clock reached the end while playing
)

var eventNames = []string{"ready", "state", "ended"}

func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventNames) {
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
	return eventNames[k]
}

// Event is a notification carrying the state right after the transition
// which caused it.
type Event struct {
	Kind  EventKind
	State State
}

// Observer receives events synchronously, from inside the transition which
// caused them. Observers must not call back into the runtime.
type Observer func(Event)
