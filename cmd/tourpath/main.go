// Package main provides the CLI entrypoint for tourpath.
package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/npillmayer/schuko/tracing"
	"github.com/spf13/cobra"

	"github.com/npillmayer/tourpath/export"
	"github.com/npillmayer/tourpath/playback"
	"github.com/npillmayer/tourpath/project"
	"github.com/npillmayer/tourpath/remote"
	"github.com/npillmayer/tourpath/timing"
)

var traceKeys = []string{"tourpath", "catmull", "timing", "playback", "project", "export", "remote"}

var (
	traceLevel string

	exportOut     string
	exportWorkers int
	exportFPS     float64
	exportEncoder string
	exportQuality int

	serveAddr string
	serveFPS  float64
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tourpath",
		Short:         "Animate a marker along a path over an image",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setTraceLevel(traceLevel)
		},
	}
	rootCmd.PersistentFlags().StringVar(&traceLevel, "trace", "error", "trace level (error, info, debug)")

	rootCmd.AddCommand(newInspectCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newServeCmd())
	return rootCmd
}

func setTraceLevel(level string) error {
	var set func(tracing.Trace)
	switch strings.ToLower(level) {
	case "error":
		set = func(t tracing.Trace) { t.SetTraceLevel(tracing.LevelError) }
	case "info":
		set = func(t tracing.Trace) { t.SetTraceLevel(tracing.LevelInfo) }
	case "debug":
		set = func(t tracing.Trace) { t.SetTraceLevel(tracing.LevelDebug) }
	default:
		return fmt.Errorf("unknown trace level %q", level)
	}
	for _, key := range traceKeys {
		set(tracing.Select(key))
	}
	return nil
}

func loadScene(path string) (*project.Project, *project.Scene, error) {
	p, err := project.Load(path)
	if err != nil {
		return nil, nil, err
	}
	scene, err := p.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build %s: %w", path, err)
	}
	return p, scene, nil
}

// --- inspect ---------------------------------------------------------------

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <project>",
		Short: "Print the timing table of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, scene, err := loadScene(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d waypoints, curve length %.1fpx\n", len(scene.Waypoints), scene.Curve.Length())
			fmt.Fprint(out, timing.Describe(scene.Timing))
			fps := p.ExportSettings().FPS
			fmt.Fprintf(out, "%d frames at %g fps\n", scene.NewRuntime(fps).TotalFrames(), fps)
			return nil
		},
	}
}

// --- export ----------------------------------------------------------------

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <project>",
		Short: "Render all frames into a PNG sequence or a video file",
		Args:  cobra.ExactArgs(1),
		RunE:  runExportCmd,
	}
	cmd.Flags().StringVarP(&exportOut, "out", "o", "frames", "output directory, or a .mp4/.mov/.mkv/.webm file")
	cmd.Flags().IntVar(&exportWorkers, "workers", 0, "parallel renderers (default: all CPUs)")
	cmd.Flags().Float64Var(&exportFPS, "fps", 0, "frame rate (default: from project)")
	cmd.Flags().StringVar(&exportEncoder, "encoder", "libx264", "ffmpeg video codec")
	cmd.Flags().IntVar(&exportQuality, "quality", 23, "ffmpeg quality setting")
	return cmd
}

func isVideoFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4", ".mov", ".mkv", ".webm":
		return true
	}
	return false
}

func runExportCmd(cmd *cobra.Command, args []string) error {
	p, scene, err := loadScene(args[0])
	if err != nil {
		return err
	}
	if !scene.Timing.IsAnimatable() {
		return errors.New("project is not animatable: it needs at least two major waypoints")
	}
	settings := p.ExportSettings()
	if exportFPS > 0 {
		settings.FPS = exportFPS
	}
	style := export.DefaultStyle()
	style.Width, style.Height = settings.Width, settings.Height
	style.MarkerRadius = settings.MarkerRadius
	style.Trail = settings.Trail
	if style.MarkerColor, err = export.ParseHexColor(settings.MarkerColor); err != nil {
		return err
	}
	var bg image.Image
	if path := p.BackgroundPath(); path != "" {
		if bg, err = export.LoadBackground(path); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var sink export.Sink
	if isVideoFile(exportOut) {
		sink, err = export.StartFFmpeg(ctx, exportOut, export.FFmpegOptions{
			Width:   style.Width,
			Height:  style.Height,
			FPS:     settings.FPS,
			Encoder: exportEncoder,
			Quality: exportQuality,
		})
	} else {
		sink, err = export.NewPNGSequence(exportOut)
	}
	if err != nil {
		return err
	}
	start := time.Now()
	e := &export.Exporter{
		Runtime:  scene.NewRuntime(settings.FPS),
		Renderer: export.NewRenderer(scene.Curve, scene.Timing, bg, style),
		Sink:     sink,
		Workers:  exportWorkers,
		Progress: func(done, total int) {
			fmt.Fprintf(cmd.ErrOrStderr(), "\r%d/%d frames", done, total)
		},
	}
	runErr := e.Run(ctx)
	closeErr := sink.Close()
	fmt.Fprintln(cmd.ErrOrStderr())
	if runErr != nil {
		return runErr
	}
	if closeErr != nil {
		return closeErr
	}
	fmt.Fprintf(cmd.OutOrStdout(), "exported to %s in %s\n", exportOut, time.Since(start).Round(time.Millisecond))
	return nil
}

// --- serve -----------------------------------------------------------------

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve <project>",
		Short: "Serve the remote-control protocol for a project over websockets",
		Args:  cobra.ExactArgs(1),
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().Float64Var(&serveFPS, "fps", playback.DefaultFPS, "runtime frame rate")
	return cmd
}

func runServeCmd(cmd *cobra.Command, args []string) error {
	_, scene, err := loadScene(args[0])
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rs := remote.NewServer(scene.NewRuntime(serveFPS), remote.DefaultTick)
	mux := http.NewServeMux()
	mux.Handle("/ws", rs)
	srv := &http.Server{Addr: serveAddr, Handler: mux}

	errc := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errc <- err
		stop()
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	fmt.Fprintf(cmd.OutOrStdout(), "serving ws://%s/ws\n", serveAddr)
	if err := rs.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return <-errc
}
