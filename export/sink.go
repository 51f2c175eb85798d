package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// Sink consumes rendered frames. Frames arrive in increasing frame order,
// starting at 0.
type Sink interface {
	WriteFrame(i int, img image.Image) error
	Close() error
}

// --- PNG sequence ----------------------------------------------------------

// PNGSequence writes every frame as a numbered PNG file into a directory.
type PNGSequence struct {
	Dir    string
	Prefix string // file name prefix, default "frame_"
	enc    png.Encoder
}

// NewPNGSequence creates the output directory if necessary.
func NewPNGSequence(dir string) (*PNGSequence, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &PNGSequence{
		Dir:    dir,
		Prefix: "frame_",
		enc:    png.Encoder{CompressionLevel: png.BestSpeed},
	}, nil
}

// Path is the file path of frame i.
func (s *PNGSequence) Path(i int) string {
	return filepath.Join(s.Dir, fmt.Sprintf("%s%05d.png", s.Prefix, i))
}

// WriteFrame writes frame i.
func (s *PNGSequence) WriteFrame(i int, img image.Image) error {
	f, err := os.Create(s.Path(i))
	if err != nil {
		return err
	}
	if err := s.enc.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Close is a no-op.
func (s *PNGSequence) Close() error {
	return nil
}

// --- ffmpeg ----------------------------------------------------------------

// FFmpegOptions configures an ffmpeg encoding process.
type FFmpegOptions struct {
	Width, Height int
	FPS           float64
	Encoder       string // video codec, default libx264
	Quality       int    // crf for libx264, cq for h264_nvenc, 100 kbit/s units for h264_videotoolbox
}

// FFmpegPipe streams raw RGBA frames into the stdin of an ffmpeg process.
type FFmpegPipe struct {
	opts   FFmpegOptions
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
	next   int
}

// StartFFmpeg starts ffmpeg writing to the video file out.
func StartFFmpeg(ctx context.Context, out string, opts FFmpegOptions) (*FFmpegPipe, error) {
	if opts.Encoder == "" {
		opts.Encoder = "libx264"
	}
	if opts.Quality <= 0 {
		opts.Quality = 23
	}
	p := &FFmpegPipe{opts: opts}
	p.cmd = exec.CommandContext(ctx, "ffmpeg", ffmpegArgs(out, opts)...)
	p.cmd.Stderr = &p.stderr
	stdin, err := p.cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe error: %w", err)
	}
	p.stdin = stdin
	if err := p.cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start error: %w", err)
	}
	tracer().Infof("ffmpeg started: %dx%d @ %g fps → %s", opts.Width, opts.Height, opts.FPS, out)
	return p, nil
}

func ffmpegArgs(out string, opts FFmpegOptions) []string {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"-framerate", strconv.FormatFloat(opts.FPS, 'f', -1, 64),
		"-i", "-",
		"-pix_fmt", "yuv420p",
		"-c:v", opts.Encoder,
	}
	switch opts.Encoder {
	case "h264_videotoolbox":
		args = append(args, "-b:v", fmt.Sprintf("%dk", opts.Quality*100))
	case "h264_nvenc":
		args = append(args, "-cq", strconv.Itoa(opts.Quality))
	default:
		args = append(args, "-crf", strconv.Itoa(opts.Quality), "-preset", "medium")
	}
	return append(args, out)
}

// WriteFrame writes frame i. Frames must arrive without gaps.
func (p *FFmpegPipe) WriteFrame(i int, img image.Image) error {
	if i != p.next {
		return fmt.Errorf("%w: got %d, expected %d", ErrFrameOrder, i, p.next)
	}
	if b := img.Bounds(); b.Dx() != p.opts.Width || b.Dy() != p.opts.Height {
		return fmt.Errorf("%w: %v, expected %dx%d", ErrFrameSize, b, p.opts.Width, p.opts.Height)
	}
	if err := writeRawRGBA(p.stdin, img); err != nil {
		return fmt.Errorf("write raw error: %w", err)
	}
	p.next++
	return nil
}

// Close ends the input stream and waits for ffmpeg to finish.
func (p *FFmpegPipe) Close() error {
	p.stdin.Close()
	if err := p.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg wait error: %w, output: %s", err, p.stderr.String())
	}
	tracer().Infof("ffmpeg finished after %d frames", p.next)
	return nil
}

// writeRawRGBA writes the pixels of img, tightly packed, row by row.
func writeRawRGBA(w io.Writer, img image.Image) error {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 || rgba.Rect.Min.X != 0 || rgba.Rect.Min.Y != 0 {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}
	_, err := w.Write(rgba.Pix)
	return err
}
