/*
Package project reads and writes tourpath project files.

A project file describes one animation: the background image, the authored
waypoints, timing and smoothing settings, and export settings. Project files
are YAML (.yaml, .yml) or TOML (.toml) and carry a schema version.

	version: 1
	background: harbour.jpg
	waypoints:
	  - {id: start, x: 120, y: 340, major: true}
	  - {id: bend, x: 260, y: 300}
	  - {id: pier, x: 410, y: 380, major: true, label: "The pier"}
	timing:
	  mode: constantSpeed
	  baseSpeed: 180
	  pauseMode: seconds
	  pauseSeconds: 1.5
	smoothing:
	  tension: 0.5

Build runs the whole pipeline from waypoints to a timing map.
*/
package project

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/tourpath"
	"github.com/npillmayer/tourpath/catmull"
	"github.com/npillmayer/tourpath/timing"
	"gopkg.in/yaml.v3"
)

// tracer writes to trace with key 'project'
func tracer() tracing.Trace {
	return tracing.Select("project")
}

// SchemaVersion is the current project schema version.
const SchemaVersion = 1

var (
	// ErrUnsupportedVersion indicates a project file written by a newer schema.
	ErrUnsupportedVersion = errors.New("unsupported project version")
	// ErrUnknownFormat indicates a file extension without a decoder.
	ErrUnknownFormat = errors.New("unknown project file format")
	// ErrInvalidWaypoint indicates a waypoint with invalid coordinates.
	ErrInvalidWaypoint = errors.New("invalid waypoint")
)

// Format is a project file encoding.
type Format int

// Supported encodings.
const (
	YAML Format = iota
	TOML
)

// FormatOf selects the encoding by file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML, nil
	case ".toml":
		return TOML, nil
	}
	return YAML, fmt.Errorf("%w: %q", ErrUnknownFormat, path)
}

// Project is the content of a project file.
type Project struct {
	Version    int        `yaml:"version" toml:"version"`
	Background string     `yaml:"background,omitempty" toml:"background,omitempty"`
	Waypoints  []Waypoint `yaml:"waypoints" toml:"waypoints"`
	Timing     Timing     `yaml:"timing" toml:"timing"`
	Smoothing  Smoothing  `yaml:"smoothing" toml:"smoothing"`
	Export     Export     `yaml:"export" toml:"export"`

	dir string // directory of the file the project was loaded from
}

// Waypoint is the file form of timing.Waypoint.
type Waypoint struct {
	ID    string  `yaml:"id" toml:"id"`
	X     float64 `yaml:"x" toml:"x"`
	Y     float64 `yaml:"y" toml:"y"`
	Major bool    `yaml:"major,omitempty" toml:"major,omitempty"`
	Label string  `yaml:"label,omitempty" toml:"label,omitempty"`
}

// Timing is the file form of timing.Config. Zero speeds and durations select
// the engine defaults.
type Timing struct {
	Mode           timing.Mode      `yaml:"mode" toml:"mode"`
	BaseSpeed      float64          `yaml:"baseSpeed,omitempty" toml:"baseSpeed,omitempty"`
	PauseMode      timing.PauseMode `yaml:"pauseMode" toml:"pauseMode"`
	PauseSeconds   float64          `yaml:"pauseSeconds,omitempty" toml:"pauseSeconds,omitempty"`
	EaseInOut      bool             `yaml:"easeInOut,omitempty" toml:"easeInOut,omitempty"`
	SegmentSeconds float64          `yaml:"segmentSeconds,omitempty" toml:"segmentSeconds,omitempty"`
}

// Smoothing holds the curve settings. Unset values select the defaults of
// package catmull; a tension of 0 is a valid setting (straight lines).
type Smoothing struct {
	Tension *float64 `yaml:"tension,omitempty" toml:"tension,omitempty"`
	Density *int     `yaml:"density,omitempty" toml:"density,omitempty"`
}

// Export holds the settings for rendering frames. Zero values select the
// defaults below.
type Export struct {
	FPS          float64 `yaml:"fps,omitempty" toml:"fps,omitempty"`
	Width        int     `yaml:"width,omitempty" toml:"width,omitempty"`
	Height       int     `yaml:"height,omitempty" toml:"height,omitempty"`
	MarkerRadius float64 `yaml:"markerRadius,omitempty" toml:"markerRadius,omitempty"`
	MarkerColor  string  `yaml:"markerColor,omitempty" toml:"markerColor,omitempty"`
	Trail        bool    `yaml:"trail,omitempty" toml:"trail,omitempty"`
}

// Export defaults.
const (
	DefaultFPS          = 30.0
	DefaultWidth        = 1280
	DefaultHeight       = 720
	DefaultMarkerRadius = 8.0
	DefaultMarkerColor  = "#e63946"
)

// New creates an empty project of the current schema version.
func New() *Project {
	return &Project{Version: SchemaVersion, Timing: Timing{BaseSpeed: timing.DefaultBaseSpeed}}
}

// Load reads a project file. The decoder is selected by file extension.
func Load(path string) (*Project, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project: %w", err)
	}
	p, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.dir = filepath.Dir(path)
	tracer().Infof("loaded project %s: %d waypoints", path, len(p.Waypoints))
	return p, nil
}

// Parse decodes and validates project data.
func Parse(data []byte, format Format) (*Project, error) {
	p := &Project{}
	switch format {
	case YAML:
		if err := yaml.Unmarshal(data, p); err != nil {
			return nil, fmt.Errorf("failed to decode yaml: %w", err)
		}
	case TOML:
		if _, err := toml.Decode(string(data), p); err != nil {
			return nil, fmt.Errorf("failed to decode toml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownFormat, int(format))
	}
	if p.Version == 0 {
		p.Version = SchemaVersion
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Save writes a project file. The encoder is selected by file extension.
func Save(p *Project, path string) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	data, err := p.Encode(format)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Encode serializes a project.
func (p *Project) Encode(format Format) ([]byte, error) {
	switch format {
	case YAML:
		return yaml.Marshal(p)
	case TOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(p); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownFormat, int(format))
}

// Validate checks the schema version and the waypoint coordinates.
// Duplicate IDs and mode values are checked when the project is built.
func (p *Project) Validate() error {
	if p.Version < 0 || p.Version > SchemaVersion {
		return fmt.Errorf("%w: %d (supported: %d)", ErrUnsupportedVersion, p.Version, SchemaVersion)
	}
	for i, wp := range p.Waypoints {
		if !tourpath.P(wp.X, wp.Y).IsValid() {
			return fmt.Errorf("%w: #%d %q at (%g,%g)", ErrInvalidWaypoint, i, wp.ID, wp.X, wp.Y)
		}
	}
	return nil
}

// BackgroundPath returns the background image path, resolved against the
// directory of the project file.
func (p *Project) BackgroundPath() string {
	if p.Background == "" || filepath.IsAbs(p.Background) || p.dir == "" {
		return p.Background
	}
	return filepath.Join(p.dir, p.Background)
}

// TimingWaypoints converts the file waypoints into timing waypoints.
func (p *Project) TimingWaypoints() []timing.Waypoint {
	wps := make([]timing.Waypoint, len(p.Waypoints))
	for i, wp := range p.Waypoints {
		wps[i] = timing.Waypoint{
			ID:      wp.ID,
			Pos:     tourpath.P(wp.X, wp.Y),
			Major:   wp.Major,
			LabelID: wp.Label,
		}
	}
	return wps
}

// TimingConfig returns the timing configuration with defaults applied.
func (p *Project) TimingConfig() timing.Config {
	cfg := timing.Config{
		Mode:           p.Timing.Mode,
		BaseSpeed:      p.Timing.BaseSpeed,
		PauseMode:      p.Timing.PauseMode,
		PauseSeconds:   p.Timing.PauseSeconds,
		EaseInOut:      p.Timing.EaseInOut,
		SegmentSeconds: p.Timing.SegmentSeconds,
	}
	if cfg.BaseSpeed == 0 {
		cfg.BaseSpeed = timing.DefaultBaseSpeed
	}
	if cfg.SegmentSeconds == 0 {
		cfg.SegmentSeconds = timing.DefaultSegmentSeconds
	}
	return cfg
}

// Tension returns the smoothing tension, or catmull.DefaultTension.
func (p *Project) Tension() float64 {
	if p.Smoothing.Tension == nil {
		return catmull.DefaultTension
	}
	return *p.Smoothing.Tension
}

// Density returns the smoothing density, or catmull.DefaultDensity.
func (p *Project) Density() int {
	if p.Smoothing.Density == nil {
		return catmull.DefaultDensity
	}
	return *p.Smoothing.Density
}

// ExportSettings returns the export settings with defaults applied.
func (p *Project) ExportSettings() Export {
	e := p.Export
	if !(e.FPS > 0) {
		e.FPS = DefaultFPS
	}
	if e.Width <= 0 {
		e.Width = DefaultWidth
	}
	if e.Height <= 0 {
		e.Height = DefaultHeight
	}
	if !(e.MarkerRadius > 0) {
		e.MarkerRadius = DefaultMarkerRadius
	}
	if e.MarkerColor == "" {
		e.MarkerColor = DefaultMarkerColor
	}
	return e
}
