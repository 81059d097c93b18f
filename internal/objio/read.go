// Package objio reads and writes multi-object Wavefront OBJ scenes.
//
// Only geometry survives a round trip: vertices, faces and line elements.
// Texture coordinates, normals and material assignments are skipped.
package objio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"demclean/internal/mesh"
	"demclean/internal/scene"
)

const maxWarnings = 50

// ReadStats summarizes what was read and what had to be skipped
type ReadStats struct {
	Lines        int
	Objects      int
	Vertices     int
	Faces        int
	Edges        int
	SkippedLines int
	SkippedFaces int
	Warnings     []string
}

func (rs *ReadStats) warn(format string, args ...any) {
	if len(rs.Warnings) < maxWarnings {
		rs.Warnings = append(rs.Warnings, fmt.Sprintf(format, args...))
	}
}

type objectState struct {
	obj   *scene.Object
	local map[int]mesh.VertexID
}

type reader struct {
	scene       *scene.Scene
	defaultName string
	positions   []r3.Vec
	// owners[i] is the object current when positions[i] was declared
	owners    []*objectState
	used      []bool
	objects   map[string]*objectState
	current   *objectState
	sawObject bool
	stats     ReadStats
}

// ReadFile reads an OBJ file. Geometry that appears before the first object
// statement is put in an object named after the file.
func ReadFile(path string) (*scene.Scene, ReadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ReadStats{}, err
	}
	defer f.Close()

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	s, stats, err := Read(f, stem)
	if err != nil {
		return nil, stats, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return s, stats, nil
}

// Read parses an OBJ stream into a scene with one object per `o` statement.
// `g` statements start objects only in files that contain no `o` at all.
// Malformed statements are skipped and reported in ReadStats.
func Read(r io.Reader, defaultName string) (*scene.Scene, ReadStats, error) {
	if defaultName == "" {
		defaultName = "default"
	}
	rd := &reader{
		scene:       scene.New(),
		defaultName: defaultName,
		objects:     make(map[string]*objectState),
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		rd.stats.Lines++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if err := rd.statement(fields); err != nil {
			rd.stats.SkippedLines++
			rd.stats.warn("line %d: %v", rd.stats.Lines, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, rd.stats, fmt.Errorf("error reading OBJ: %w", err)
	}
	if err := rd.attachUnused(); err != nil {
		return nil, rd.stats, err
	}

	rd.stats.Objects = rd.scene.Len()
	return rd.scene, rd.stats, nil
}

func (rd *reader) statement(fields []string) error {
	switch fields[0] {
	case "o":
		rd.sawObject = true
		return rd.begin(objectName(fields, rd.defaultName))
	case "g":
		if !rd.sawObject && len(fields) > 1 {
			return rd.begin(objectName(fields, rd.defaultName))
		}
	case "v":
		return rd.vertex(fields)
	case "f":
		return rd.face(fields)
	case "l":
		return rd.line(fields)
	}
	return nil
}

func objectName(fields []string, fallback string) string {
	if len(fields) < 2 {
		return fallback
	}
	return strings.Join(fields[1:], " ")
}

// begin switches to the named object. A name seen earlier in the file
// continues that object.
func (rd *reader) begin(name string) error {
	st, err := rd.object(name)
	if err != nil {
		return err
	}
	rd.current = st
	return nil
}

func (rd *reader) object(name string) (*objectState, error) {
	if st, ok := rd.objects[name]; ok {
		return st, nil
	}
	obj, err := rd.scene.Add(name, mesh.New())
	if err != nil {
		return nil, err
	}
	st := &objectState{obj: obj, local: make(map[int]mesh.VertexID)}
	rd.objects[name] = st
	return st, nil
}

func (rd *reader) target() (*objectState, error) {
	if rd.current == nil {
		if err := rd.begin(rd.defaultName); err != nil {
			return nil, err
		}
	}
	return rd.current, nil
}

func (rd *reader) vertex(fields []string) error {
	if len(fields) < 4 {
		return errors.New("vertex needs three coordinates")
	}
	var p [3]float64
	for i := range p {
		v, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return fmt.Errorf("invalid vertex coordinate %q", fields[i+1])
		}
		p[i] = v
	}
	rd.positions = append(rd.positions, r3.Vec{X: p[0], Y: p[1], Z: p[2]})
	rd.owners = append(rd.owners, rd.current)
	rd.used = append(rd.used, false)
	rd.stats.Vertices++
	return nil
}

// attachUnused puts vertices that no face or line referenced into the object
// they were declared under, or the default object when declared before any
func (rd *reader) attachUnused() error {
	for idx, used := range rd.used {
		if used {
			continue
		}
		st := rd.owners[idx]
		if st == nil {
			var err error
			if st, err = rd.object(rd.defaultName); err != nil {
				return err
			}
		}
		st.local[idx] = st.obj.Mesh.AddVertex(rd.positions[idx])
	}
	return nil
}

// resolve maps an OBJ index reference (1-based, or negative relative to the
// end) to a vertex in the current object's mesh. Mesh vertices are created
// on first reference, so an object holds only the vertices it uses wherever
// they were declared.
func (rd *reader) resolve(ref string) (mesh.VertexID, error) {
	if i := strings.IndexByte(ref, '/'); i >= 0 {
		ref = ref[:i]
	}
	n, err := strconv.Atoi(ref)
	if err != nil {
		return 0, fmt.Errorf("invalid vertex index %q", ref)
	}
	idx := n - 1
	if n < 0 {
		idx = len(rd.positions) + n
	}
	if n == 0 || idx < 0 || idx >= len(rd.positions) {
		return 0, fmt.Errorf("vertex index %d out of range", n)
	}
	st, err := rd.target()
	if err != nil {
		return 0, err
	}
	rd.used[idx] = true
	if id, ok := st.local[idx]; ok {
		return id, nil
	}
	id := st.obj.Mesh.AddVertex(rd.positions[idx])
	st.local[idx] = id
	return id, nil
}

func (rd *reader) face(fields []string) error {
	if len(fields) < 4 {
		return errors.New("face needs at least three vertices")
	}
	verts := make([]mesh.VertexID, 0, len(fields)-1)
	for _, ref := range fields[1:] {
		id, err := rd.resolve(ref)
		if err != nil {
			return err
		}
		verts = append(verts, id)
	}
	st, err := rd.target()
	if err != nil {
		return err
	}
	if _, err := st.obj.Mesh.AddFace(verts...); err != nil {
		// degenerate or duplicate: skip the face, keep the file
		rd.stats.SkippedFaces++
		rd.stats.warn("line %d: %v", rd.stats.Lines, err)
		return nil
	}
	rd.stats.Faces++
	return nil
}

func (rd *reader) line(fields []string) error {
	if len(fields) < 3 {
		return errors.New("line needs at least two vertices")
	}
	verts := make([]mesh.VertexID, 0, len(fields)-1)
	for _, ref := range fields[1:] {
		id, err := rd.resolve(ref)
		if err != nil {
			return err
		}
		verts = append(verts, id)
	}
	st, err := rd.target()
	if err != nil {
		return err
	}
	m := st.obj.Mesh
	for i := 0; i+1 < len(verts); i++ {
		if verts[i] == verts[i+1] {
			continue
		}
		if _, err := m.AddEdge(verts[i], verts[i+1]); err != nil {
			return err
		}
		rd.stats.Edges++
	}
	return nil
}
