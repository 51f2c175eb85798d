/*
Package export turns a playback runtime into a sequence of rendered frames.

Frames are pulled from the runtime by seeking to every frame index in turn,
rendered in parallel, and handed to a Sink in frame order. Sinks write PNG
sequences or pipe raw RGBA frames into an ffmpeg process.

The runtime itself is touched by one goroutine only; rendering a state is a
pure function of the state, the curve and the timing map.
*/
package export

import (
	"errors"

	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'export'
func tracer() tracing.Trace {
	return tracing.Select("export")
}

var (
	// ErrFrameOrder indicates a sink receiving frames out of order.
	ErrFrameOrder = errors.New("frame out of order")
	// ErrFrameSize indicates a frame not matching the sink's dimensions.
	ErrFrameSize = errors.New("frame size mismatch")
	// ErrBadColor indicates a color string which is not #rgb or #rrggbb.
	ErrBadColor = errors.New("malformed color")
)
