package objio

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"demclean/internal/mesh"
	"demclean/internal/scene"
)

const tile = `# exported tile
mtllib 533925_dem_6697.mtl
o 533925_dem_6697
v 0 0 1
v 5 0 1.5
v 5 5 2
v 0 5 1
vt 0 0
vn 0 0 1
usemtl ground
f 1/1/1 2/1/1 3/1/1
f -4//1 -2//1 -1//1
o bldg_1
v 100 100 0
v 101 100 0
v 101 101 0
f 5 6 7
l 5 7
`

func TestRead_Objects(t *testing.T) {
	s, stats, err := Read(strings.NewReader(tile), "fallback")
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Objects)
	assert.Equal(t, 7, stats.Vertices)
	assert.Equal(t, 3, stats.Faces)
	assert.Equal(t, 1, stats.Edges)
	assert.Zero(t, stats.SkippedLines)

	dem, ok := s.Get("533925_dem_6697")
	require.True(t, ok)
	assert.Equal(t, mesh.Counts{Vertices: 4, Edges: 5, Faces: 2}, dem.Mesh.Counts())

	bldg, ok := s.Get("bldg_1")
	require.True(t, ok)
	assert.Equal(t, mesh.Counts{Vertices: 3, Edges: 3, Faces: 1}, bldg.Mesh.Counts())
}

func TestRead_DefaultObjectAndGroups(t *testing.T) {
	src := "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"
	s, _, err := Read(strings.NewReader(src), "12_dem_3")
	require.NoError(t, err)
	_, ok := s.Get("12_dem_3")
	assert.True(t, ok)

	src = "g 1_dem_1\nv 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\ng 1_dem_2\nv 5 5 0\nv 6 5 0\nv 5 6 0\nf 4 5 6\n"
	s, _, err = Read(strings.NewReader(src), "")
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())

	// Once an `o` is present, groups are just groups.
	src = "o 1_dem_1\ng roof\nv 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"
	s, _, err = Read(strings.NewReader(src), "")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
}

func TestRead_SharedVerticesAcrossObjects(t *testing.T) {
	src := "o a\nv 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\no b\nv 1 1 0\nf 2 4 3\n"
	s, _, err := Read(strings.NewReader(src), "")
	require.NoError(t, err)

	b, ok := s.Get("b")
	require.True(t, ok)
	assert.Equal(t, mesh.Counts{Vertices: 3, Edges: 3, Faces: 1}, b.Mesh.Counts())
	a, _ := s.Get("a")
	assert.Equal(t, 3, a.Mesh.Counts().Vertices, "copies do not leak back into the owning object")
}

func TestRead_VerticesBeforeGroups(t *testing.T) {
	src := "v 0 0 0\nv 5 0 0\nv 5 5 0\nv 0 5 0\nv 9 9 9\n" +
		"g 1_dem_2\nf 1 2 3\n" +
		"g 1_dem_3\nf 1 3 4\nv 7 7 7\n"
	s, stats, err := Read(strings.NewReader(src), "tile")
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Vertices)

	first, ok := s.Get("1_dem_2")
	require.True(t, ok)
	assert.Equal(t, mesh.Counts{Vertices: 3, Edges: 3, Faces: 1}, first.Mesh.Counts())

	second, ok := s.Get("1_dem_3")
	require.True(t, ok)
	// the trailing unreferenced vertex stays with the group it was declared in
	assert.Equal(t, mesh.Counts{Vertices: 4, Edges: 3, Faces: 1}, second.Mesh.Counts())

	// only the unreferenced vertex declared up front lands in the file object
	stray, ok := s.Get("tile")
	require.True(t, ok)
	assert.Equal(t, mesh.Counts{Vertices: 1}, stray.Mesh.Counts())
	assert.Equal(t, []string{"1_dem_2", "1_dem_3", "tile"}, objectNames(s))

	var buf bytes.Buffer
	ws, err := Write(&buf, s)
	require.NoError(t, err)
	assert.Equal(t, 8, ws.Vertices)
	assert.Equal(t, 8, strings.Count(buf.String(), "\nv "))
}

func TestRead_VerticesBeforeGroupsAllUsed(t *testing.T) {
	src := "v 0 0 0\nv 5 0 0\nv 5 5 0\ng 1_dem_2\nf 1 2 3\n"
	s, _, err := Read(strings.NewReader(src), "tile")
	require.NoError(t, err)
	assert.Equal(t, []string{"1_dem_2"}, objectNames(s))

	var buf bytes.Buffer
	ws, err := Write(&buf, s)
	require.NoError(t, err)
	assert.Equal(t, WriteStats{Objects: 1, Vertices: 3, Faces: 1}, ws)
}

func objectNames(s *scene.Scene) []string {
	var out []string
	for _, obj := range s.Objects() {
		out = append(out, obj.Name)
	}
	return out
}

func TestRead_SkipsBadInput(t *testing.T) {
	src := strings.Join([]string{
		"o 1_dem_1",
		"v 0 0 0",
		"v 1 0 0",
		"v 0 1 0",
		"v 1 nope 0",
		"v 1 2",
		"f 1 2 3",
		"f 3 2 1",   // duplicate vertex set
		"f 1 1 2",   // fewer than three distinct vertices
		"f 1 2 9",   // out of range
		"f 1 2 0",   // zero is not an index
		"f 1 2",     // too short
		"l 1",       // too short
		"s off",     // ignored statement
		"f 1 2 x/1", // not a number
	}, "\n")
	s, stats, err := Read(strings.NewReader(src), "")
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Vertices)
	assert.Equal(t, 1, stats.Faces)
	assert.Equal(t, 2, stats.SkippedFaces)
	assert.Equal(t, 7, stats.SkippedLines)
	assert.Len(t, stats.Warnings, 9)

	obj, _ := s.Get("1_dem_1")
	require.NoError(t, obj.Mesh.Verify())
}

func TestWrite_ReadBack(t *testing.T) {
	s, _, err := Read(strings.NewReader(tile), "")
	require.NoError(t, err)

	// Dropping the first face leaves two edges that bound nothing.
	dem, _ := s.Get("533925_dem_6697")
	dem.Mesh.RemoveFace(dem.Mesh.FaceIDs()[0])

	var buf bytes.Buffer
	ws, err := Write(&buf, s, "Processed by test", "Objects: 2")
	require.NoError(t, err)
	assert.Equal(t, WriteStats{Objects: 2, Vertices: 7, Faces: 2, Lines: 2}, ws)
	assert.True(t, strings.HasPrefix(buf.String(), "# Processed by test\n# Objects: 2\n\no 533925_dem_6697\n"))

	back, stats, err := Read(&buf, "")
	require.NoError(t, err)
	assert.Zero(t, stats.SkippedLines)
	assert.Zero(t, stats.SkippedFaces)
	for _, obj := range s.Objects() {
		got, ok := back.Get(obj.Name)
		require.True(t, ok, obj.Name)
		assert.Equal(t, obj.Mesh.Counts(), got.Mesh.Counts(), obj.Name)
		assert.ElementsMatch(t, positions(obj.Mesh), positions(got.Mesh), obj.Name)
	}
}

func positions(m *mesh.Mesh) []r3.Vec {
	var out []r3.Vec
	for _, id := range m.VertexIDs() {
		v, _ := m.Vertex(id)
		out = append(out, v.Pos)
	}
	return out
}

func TestWriteFile_ReadFile(t *testing.T) {
	dir := t.TempDir()
	s := scene.New()
	m := mesh.New()
	a := m.AddVertex(r3.Vec{X: 1})
	b := m.AddVertex(r3.Vec{X: 2})
	c := m.AddVertex(r3.Vec{X: 2, Y: 1})
	_, err := m.AddFace(a, b, c)
	require.NoError(t, err)
	_, err = s.Add("7_dem_7", m)
	require.NoError(t, err)

	path := filepath.Join(dir, "out", "tile.obj")
	_, err = WriteFile(path, s)
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")

	back, _, err := ReadFile(path)
	require.NoError(t, err)
	obj, ok := back.Get("7_dem_7")
	require.True(t, ok)
	assert.Equal(t, mesh.Counts{Vertices: 3, Edges: 3, Faces: 1}, obj.Mesh.Counts())

	_, _, err = ReadFile(filepath.Join(dir, "missing.obj"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
