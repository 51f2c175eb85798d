package export

import (
	"context"
	"fmt"
	"image"
	"runtime"

	"github.com/npillmayer/tourpath/playback"
	"golang.org/x/sync/errgroup"
)

// Exporter renders all frames of a runtime into a sink.
type Exporter struct {
	Runtime  *playback.Runtime
	Renderer *Renderer
	Sink     Sink
	Workers  int                   // parallel renderers, default GOMAXPROCS
	Progress func(done, total int) // optional, called after every batch
}

// Run renders frames in batches. Within a batch frames are rendered in
// parallel; the batch is then written to the sink in frame order. Run does
// not close the sink.
func (e *Exporter) Run(ctx context.Context) error {
	workers := e.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	total := e.Runtime.TotalFrames()
	tracer().Infof("exporting %d frames with %d workers", total, workers)
	batch := make([]playback.State, 0, 2*workers)
	done := 0
	flush := func() error {
		imgs := make([]*image.RGBA, len(batch))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for j, st := range batch {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				imgs[j] = e.Renderer.Render(st)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		for j, st := range batch {
			if err := e.Sink.WriteFrame(st.Frame, imgs[j]); err != nil {
				return fmt.Errorf("frame %d: %w", st.Frame, err)
			}
		}
		done += len(batch)
		batch = batch[:0]
		if e.Progress != nil {
			e.Progress(done, total)
		}
		return nil
	}
	for _, st := range Frames(e.Runtime) {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch = append(batch, st)
		if len(batch) == cap(batch) {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if len(batch) > 0 {
		if err := flush(); err != nil {
			return err
		}
	}
	tracer().Infof("exported %d frames", done)
	return nil
}
