/*
Package timing maps animation time to normalized path progress.

Waypoints flagged as major partition a path into segments, one per pair of
consecutive major waypoints; minor waypoints only shape the curve. A
SegmentTimingMap assigns each segment a motion duration, either a fixed
nominal duration (ConstantTime) or its arc length divided by a base speed
(ConstantSpeed), plus an optional trailing pause. Progress runs from 0 at the
first major waypoint to 1 at the last one and is split evenly between
segments, so progress k/n is always reached at major waypoint k.

A timing map is an immutable snapshot. Whenever waypoints or configuration
change, build a new one.
*/
package timing

import (
	"errors"
	"fmt"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/tourpath"
)

// tracer writes to trace with key 'timing'
func tracer() tracing.Trace {
	return tracing.Select("timing")
}

// Defaults for a timing configuration.
const (
	DefaultSegmentSeconds float64 = 3.0   // nominal segment duration in ConstantTime mode
	DefaultBaseSpeed      float64 = 200.0 // pixels per second in ConstantSpeed mode
	MinBaseSpeed          float64 = 1.0   // base speeds below are clamped to this
)

var (
	// ErrKnotMismatch indicates a curve whose knots do not correspond to the waypoints.
	ErrKnotMismatch = errors.New("curve knots do not match waypoints")
	// ErrKnotOutOfRange indicates a waypoint knot outside of the densified curve.
	ErrKnotOutOfRange = errors.New("waypoint knot out of range")
	// ErrDuplicateWaypoint indicates two waypoints sharing an ID.
	ErrDuplicateWaypoint = errors.New("duplicate waypoint id")
	// ErrUnknownMode indicates an undefined timing or pause mode.
	ErrUnknownMode = errors.New("unknown mode")
)

// Waypoint is an authored point of a path. Major waypoints are timing
// anchors; minor ones only affect the shape of the curve. Waypoint order is
// authoring order and is significant.
type Waypoint struct {
	ID      string
	Pos     tourpath.Pair
	Major   bool
	LabelID string // optional label shown at this waypoint
}

// Mode selects how segment durations are derived.
type Mode int

// Timing modes.
const (
	ConstantTime  Mode = iota // every segment takes the same time
	ConstantSpeed             // the marker moves at a constant pixel speed
)

var modeNames = []string{"constantTime", "constantSpeed"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// MarshalText encodes a mode by its name.
func (m Mode) MarshalText() ([]byte, error) {
	if m < 0 || int(m) >= len(modeNames) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, int(m))
	}
	return []byte(modeNames[m]), nil
}

// UnmarshalText decodes a mode name. The empty string selects ConstantTime.
func (m *Mode) UnmarshalText(text []byte) error {
	s := string(text)
	if s == "" {
		*m = ConstantTime
		return nil
	}
	for i, name := range modeNames {
		if name == s {
			*m = Mode(i)
			return nil
		}
	}
	return fmt.Errorf("%w: timing mode %q", ErrUnknownMode, s)
}

// PauseMode selects whether and how the marker dwells at major waypoints.
type PauseMode int

// Pause modes.
const (
	PauseNone    PauseMode = iota // no dwell
	PauseSeconds                  // dwell for a fixed number of seconds
	PauseClick                    // halt playback until resumed
)

var pauseModeNames = []string{"none", "seconds", "click"}

func (pm PauseMode) String() string {
	if pm < 0 || int(pm) >= len(pauseModeNames) {
		return fmt.Sprintf("PauseMode(%d)", int(pm))
	}
	return pauseModeNames[pm]
}

// MarshalText encodes a pause mode by its name.
func (pm PauseMode) MarshalText() ([]byte, error) {
	if pm < 0 || int(pm) >= len(pauseModeNames) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, int(pm))
	}
	return []byte(pauseModeNames[pm]), nil
}

// UnmarshalText decodes a pause mode name. The empty string selects PauseNone.
func (pm *PauseMode) UnmarshalText(text []byte) error {
	s := string(text)
	if s == "" {
		*pm = PauseNone
		return nil
	}
	for i, name := range pauseModeNames {
		if name == s {
			*pm = PauseMode(i)
			return nil
		}
	}
	return fmt.Errorf("%w: pause mode %q", ErrUnknownMode, s)
}

// Config is a timing configuration. It is treated as immutable per build.
type Config struct {
	Mode           Mode
	BaseSpeed      float64 // pixels per second, ConstantSpeed only
	PauseMode      PauseMode
	PauseSeconds   float64 // dwell time, PauseSeconds only
	EaseInOut      bool
	SegmentSeconds float64 // nominal segment duration, ConstantTime only
}

// DefaultConfig returns the engine defaults: constant time, 3 seconds per
// segment, no pauses, no easing.
func DefaultConfig() Config {
	return Config{
		Mode:           ConstantTime,
		BaseSpeed:      DefaultBaseSpeed,
		PauseMode:      PauseNone,
		SegmentSeconds: DefaultSegmentSeconds,
	}
}

// Validate checks the mode enums. Numeric fields are never rejected; they are
// clamped when a map is built.
func (cfg Config) Validate() error {
	if cfg.Mode < ConstantTime || cfg.Mode > ConstantSpeed {
		return fmt.Errorf("%w: timing mode %d", ErrUnknownMode, int(cfg.Mode))
	}
	if cfg.PauseMode < PauseNone || cfg.PauseMode > PauseClick {
		return fmt.Errorf("%w: pause mode %d", ErrUnknownMode, int(cfg.PauseMode))
	}
	return nil
}

// normalized clamps numeric fields to their valid ranges.
func (cfg Config) normalized() Config {
	if !(cfg.BaseSpeed >= MinBaseSpeed) || !tourpath.IsFinite(cfg.BaseSpeed) {
		if cfg.Mode == ConstantSpeed {
			tracer().Debugf("base speed %g clamped to %g", cfg.BaseSpeed, MinBaseSpeed)
		}
		cfg.BaseSpeed = MinBaseSpeed
	}
	if !(cfg.SegmentSeconds > 0) || !tourpath.IsFinite(cfg.SegmentSeconds) {
		cfg.SegmentSeconds = DefaultSegmentSeconds
	}
	if !(cfg.PauseSeconds > 0) || !tourpath.IsFinite(cfg.PauseSeconds) {
		cfg.PauseSeconds = 0
	}
	return cfg
}

// Segment is the stretch between two consecutive major waypoints.
// EndTime = StartTime + Duration; a pause of PauseDuration follows EndTime,
// during which progress stays at EndProgress.
type Segment struct {
	StartTime, EndTime, Duration float64
	StartProgress, EndProgress   float64
	StartWaypointIndex           int
	EndWaypointIndex             int
	StartLength, EndLength       float64 // arc length at the two major waypoints
	HasPause                     bool
	PauseDuration                float64
}

// WindowEnd is the end of the segment's motion plus its trailing pause.
func (s Segment) WindowEnd() float64 {
	return s.EndTime + s.PauseDuration
}

// SegmentTimingMap is an ordered sequence of contiguous segments.
// Maps with no segments are valid and mean "not animatable".
type SegmentTimingMap struct {
	Segments        []Segment
	TotalDuration   float64
	TotalPathLength float64 // arc length from first to last major waypoint
	Mode            Mode
	BaseSpeed       float64
	PauseMode       PauseMode
	EaseInOut       bool
	index           *treemap.Map // segment start time → segment index
}

// IsAnimatable is a predicate: does the map contain at least one segment?
func (m *SegmentTimingMap) IsAnimatable() bool {
	return m != nil && len(m.Segments) > 0
}
