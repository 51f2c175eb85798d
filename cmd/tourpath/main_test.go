package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tourYAML = `
version: 1
waypoints:
  - {id: a, x: 10, y: 10, major: true}
  - {id: b, x: 60, y: 30}
  - {id: c, x: 110, y: 10, major: true}
timing:
  segmentSeconds: 0.5
export:
  fps: 6
  width: 120
  height: 40
`

func writeProject(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tour.yaml")
	require.NoError(t, os.WriteFile(path, []byte(tourYAML), 0644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestInspect(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	out, err := run(t, "inspect", writeProject(t))
	require.NoError(t, err)
	assert.Contains(t, out, "3 waypoints")
	assert.Contains(t, out, "total 0.500s")
	assert.Contains(t, out, "4 frames at 6 fps")
}

func TestExportPNG(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	dir := filepath.Join(t.TempDir(), "frames")
	_, err := run(t, "export", writeProject(t), "--out", dir, "--workers", "2")
	require.NoError(t, err)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestArgumentErrors(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	_, err := run(t, "inspect")
	assert.Error(t, err)
	_, err = run(t, "inspect", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	_, err = run(t, "--trace", "loud", "inspect", writeProject(t))
	assert.Error(t, err)
}
