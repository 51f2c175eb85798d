package export

import (
	"iter"

	"github.com/npillmayer/tourpath/playback"
)

// Frames iterates over all frames of rt, seeking to each frame index in
// turn. The runtime's play flag is left untouched. An idle runtime yields no
// frames.
func Frames(rt *playback.Runtime) iter.Seq2[int, playback.State] {
	return func(yield func(int, playback.State) bool) {
		n := rt.TotalFrames()
		for i := 0; i < n; i++ {
			if !yield(i, rt.SeekToFrame(i)) {
				return
			}
		}
	}
}
