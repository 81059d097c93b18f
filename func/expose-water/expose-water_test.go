package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demclean/internal/dem"
	"demclean/internal/mesh"
	"demclean/internal/objio"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	// keep a config file in the working directory out of the way
	root.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "none.yaml"), "--log-level", "error"))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestGridInspectRun(t *testing.T) {
	dir := t.TempDir()
	tile := filepath.Join(dir, "tiles", "533925_dem_6697.obj")

	out, err := execute(t, "grid", "--synthetic", "5x5", "--spacing", "5", "--lake", "1,1,3,3", "-o", tile)
	require.NoError(t, err)
	assert.Contains(t, out, "Dimensions: 5x5 pixels")
	assert.Contains(t, out, "Cells: 16 (0 skipped for nodata, 4 under 1 lakes)")

	out, err = execute(t, "inspect", tile, "--edge-length", "8", "-n", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "533925_dem_6697\n")
	assert.Contains(t, out, "Vertices: 24, edges: 53, faces: 26")
	assert.Contains(t, out, "At threshold 8.000000: 5 edges and 2 faces would be removed")
	assert.Contains(t, out, "Top 3 longest edges")

	clean := filepath.Join(dir, "clean")
	out, err = execute(t, "run", filepath.Dir(tile), "-o", clean, "--edge-length", "8", "--workers", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Found 1 OBJ files to process")
	assert.Contains(t, out, "Edges removed: 5\n")
	assert.Contains(t, out, "Failed files: 0\n")

	s, _, err := objio.ReadFile(filepath.Join(clean, "533925_dem_6697.obj"))
	require.NoError(t, err)
	obj, ok := s.Get("533925_dem_6697")
	require.True(t, ok)
	assert.Equal(t, mesh.Counts{Vertices: 24, Edges: 48, Faces: 24}, obj.Mesh.Counts())
}

func TestRun_DefaultThresholdKeepsSmallLakes(t *testing.T) {
	dir := t.TempDir()
	tile := filepath.Join(dir, "1_dem_1.obj")
	_, err := execute(t, "grid", "--synthetic", "5x5", "--lake", "1,1,3,3", "-o", tile)
	require.NoError(t, err)

	// lake edges are 10 m and 14 m, below the 20 m default
	out, err := execute(t, "filter", tile, "--in-place")
	require.NoError(t, err)
	assert.Contains(t, out, "Edges removed: 0\n")
	assert.NotContains(t, out, "Topology repair:")
}

func TestProcess_FlagErrors(t *testing.T) {
	tile := filepath.Join(t.TempDir(), "1_dem_1.obj")
	_, err := execute(t, "grid", "--synthetic", "3x3", "-o", tile)
	require.NoError(t, err)

	_, err = execute(t, "run", tile)
	assert.ErrorContains(t, err, "--output or --in-place")

	_, err = execute(t, "run", tile, "--in-place", "-o", t.TempDir())
	assert.ErrorContains(t, err, "mutually exclusive")

	_, err = execute(t, "run", filepath.Join(t.TempDir(), "missing.obj"), "--in-place")
	assert.Error(t, err)

	_, err = execute(t, "run", tile, "--in-place", "--pattern", "(")
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestConfigInitShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demclean.yaml")

	out, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	_, err = execute(t, "config", "init", path)
	assert.ErrorContains(t, err, "already exists")

	out, err = execute(t, "config", "show", "--edge-length", "6")
	require.NoError(t, err)
	assert.Contains(t, out, "edge_length: 6\n")
	assert.Contains(t, out, "target_pattern:")
	assert.Contains(t, out, "converge: false\n")
}

func TestCollectInputs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.obj", "a.obj", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}

	inputs, err := collectInputs([]string{dir})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.obj"), filepath.Join(dir, "b.obj")}, inputs)

	_, err = collectInputs([]string{t.TempDir()})
	assert.ErrorContains(t, err, "no OBJ files")
}

func TestParseLake(t *testing.T) {
	lake, err := parseLake("1, 2,3,4")
	require.NoError(t, err)
	assert.Equal(t, dem.Lake{Col0: 1, Row0: 2, Col1: 3, Row1: 4}, lake)

	_, err = parseLake("1,2,3")
	assert.Error(t, err)
	_, err = parseLake("1,2,x,4")
	assert.Error(t, err)

	w, h, err := parseSize("40X30")
	require.NoError(t, err)
	assert.Equal(t, 40, w)
	assert.Equal(t, 30, h)
	_, _, err = parseSize("40")
	assert.Error(t, err)
}
