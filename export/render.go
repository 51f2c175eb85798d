package export

import (
	"image"
	"image/color"
	"math"

	"github.com/npillmayer/tourpath"
	"github.com/npillmayer/tourpath/catmull"
	"github.com/npillmayer/tourpath/playback"
	"github.com/npillmayer/tourpath/timing"
	"golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// Style holds the drawing parameters of a Renderer. Sizes are in frame
// pixels.
type Style struct {
	Width, Height int
	MarkerRadius  float64
	MarkerColor   color.RGBA
	Trail         bool
	TrailWidth    float64
	TrailColor    color.RGBA
	Backdrop      color.RGBA // fills the frame outside the background image
}

// DefaultStyle is a 1280×720 frame with a red marker and no trail.
func DefaultStyle() Style {
	return Style{
		Width:        1280,
		Height:       720,
		MarkerRadius: 8,
		MarkerColor:  color.RGBA{0xe6, 0x39, 0x46, 0xff},
		TrailWidth:   4,
		TrailColor:   color.RGBA{0x1d, 0x35, 0x57, 0xff},
		Backdrop:     color.RGBA{0xff, 0xff, 0xff, 0xff},
	}
}

func (s Style) withDefaults() Style {
	d := DefaultStyle()
	if s.Width <= 0 || s.Height <= 0 {
		s.Width, s.Height = d.Width, d.Height
	}
	if !(s.MarkerRadius > 0) {
		s.MarkerRadius = d.MarkerRadius
	}
	if !(s.TrailWidth > 0) {
		s.TrailWidth = d.TrailWidth
	}
	if s.MarkerColor.A == 0 {
		s.MarkerColor = d.MarkerColor
	}
	if s.TrailColor.A == 0 {
		s.TrailColor = d.TrailColor
	}
	if s.Backdrop.A == 0 {
		s.Backdrop = d.Backdrop
	}
	return s
}

// Renderer draws runtime states into frames: the background image, scaled
// and letterboxed into the frame, the travelled part of the path, and the
// marker. Render may be called concurrently.
type Renderer struct {
	style   Style
	curve   *catmull.Curve
	tmap    *timing.SegmentTimingMap
	base    *image.RGBA // backdrop plus scaled background
	toFrame tourpath.AT // image pixel space → frame pixel space
}

// NewRenderer prepares a renderer. Without a background image, image pixel
// space and frame pixel space coincide.
func NewRenderer(curve *catmull.Curve, tmap *timing.SegmentTimingMap, bg image.Image, style Style) *Renderer {
	style = style.withDefaults()
	r := &Renderer{
		style:   style,
		curve:   curve,
		tmap:    tmap,
		toFrame: tourpath.Identity(),
	}
	frame := image.Rect(0, 0, style.Width, style.Height)
	r.base = image.NewRGBA(frame)
	draw.Draw(r.base, frame, image.NewUniform(style.Backdrop), image.Point{}, draw.Src)
	if bg != nil {
		b := bg.Bounds()
		fit, scale := tourpath.FitInto(float64(b.Dx()), float64(b.Dy()), float64(style.Width), float64(style.Height))
		r.toFrame = tourpath.Translation(tourpath.P(-float64(b.Min.X), -float64(b.Min.Y))).Combine(fit)
		lo := r.toFrame.Transform(tourpath.P(float64(b.Min.X), float64(b.Min.Y)))
		hi := r.toFrame.Transform(tourpath.P(float64(b.Max.X), float64(b.Max.Y)))
		target := image.Rect(roundInt(lo.X()), roundInt(lo.Y()), roundInt(hi.X()), roundInt(hi.Y()))
		draw.CatmullRom.Scale(r.base, target, bg, b, draw.Over, nil)
		tracer().Debugf("background %v scaled by %.3f into %v", b, scale, target)
	}
	return r
}

// Bounds is the frame rectangle.
func (r *Renderer) Bounds() image.Rectangle {
	return r.base.Bounds()
}

// ToFrame maps a point in image pixel space into frame pixel space.
func (r *Renderer) ToFrame(p tourpath.Pair) tourpath.Pair {
	return r.toFrame.Transform(p)
}

// MarkerPosition returns the marker's position in image pixel space for a
// runtime state.
func (r *Renderer) MarkerPosition(st playback.State) tourpath.Pair {
	s := timing.LengthAtProgress(r.tmap, st.Progress)
	return r.curve.PositionAtArcLength(s)
}

// Render draws one frame.
func (r *Renderer) Render(st playback.State) *image.RGBA {
	dst := image.NewRGBA(r.base.Bounds())
	copy(dst.Pix, r.base.Pix)
	if r.curve == nil || len(r.curve.Points) == 0 {
		return dst
	}
	s := timing.LengthAtProgress(r.tmap, st.Progress)
	pos := r.curve.PositionAtArcLength(s)
	if r.style.Trail {
		r.drawTrail(dst, s, pos)
	}
	r.drawMarker(dst, r.toFrame.Transform(pos))
	return dst
}

func (r *Renderer) drawTrail(dst *image.RGBA, s float64, pos tourpath.Pair) {
	pts := []tourpath.Pair{}
	for i, p := range r.curve.Points {
		if r.curve.Table[i] >= s {
			break
		}
		pts = append(pts, r.toFrame.Transform(p))
	}
	pts = append(pts, r.toFrame.Transform(pos))
	if len(pts) < 2 {
		return
	}
	b := dst.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	z.DrawOp = draw.Over
	half := r.style.TrailWidth / 2
	for i := 1; i < len(pts); i++ {
		strokeQuad(z, pts[i-1], pts[i], half)
	}
	z.Draw(dst, b, image.NewUniform(r.style.TrailColor), image.Point{})
}

// strokeQuad adds the rectangle of half-width w around line a→b. All quads
// share one orientation, so overlaps accumulate instead of cancelling.
func strokeQuad(z *vector.Rasterizer, a, b tourpath.Pair, w float64) {
	d := a.Dist(b)
	if tourpath.Is0(d) {
		return
	}
	n := tourpath.P(-(b.Y()-a.Y())/d*w, (b.X()-a.X())/d*w)
	moveTo(z, a+n)
	lineTo(z, b+n)
	lineTo(z, b-n)
	lineTo(z, a-n)
	z.ClosePath()
}

// kappa places cubic Bézier control points for a quarter circle.
const kappa = 0.5522847498

func (r *Renderer) drawMarker(dst *image.RGBA, c tourpath.Pair) {
	b := dst.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	z.DrawOp = draw.Over
	rad := r.style.MarkerRadius
	k := rad * kappa
	x, y := c.X(), c.Y()
	moveTo(z, tourpath.P(x+rad, y))
	z.CubeTo(f32(x+rad), f32(y+k), f32(x+k), f32(y+rad), f32(x), f32(y+rad))
	z.CubeTo(f32(x-k), f32(y+rad), f32(x-rad), f32(y+k), f32(x-rad), f32(y))
	z.CubeTo(f32(x-rad), f32(y-k), f32(x-k), f32(y-rad), f32(x), f32(y-rad))
	z.CubeTo(f32(x+k), f32(y-rad), f32(x+rad), f32(y-k), f32(x+rad), f32(y))
	z.ClosePath()
	z.Draw(dst, b, image.NewUniform(r.style.MarkerColor), image.Point{})
}

func moveTo(z *vector.Rasterizer, p tourpath.Pair) {
	z.MoveTo(f32(p.X()), f32(p.Y()))
}

func lineTo(z *vector.Rasterizer, p tourpath.Pair) {
	z.LineTo(f32(p.X()), f32(p.Y()))
}

func f32(x float64) float32 {
	return float32(x)
}

func roundInt(x float64) int {
	return int(math.Round(x))
}
