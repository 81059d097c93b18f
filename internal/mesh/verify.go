package mesh

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

const maxVerifyProblems = 20

// Verify checks the structural invariants of the mesh and reports every
// violation it finds, up to a limit
func (m *Mesh) Verify() error {
	var problems []error
	report := func(format string, args ...any) bool {
		problems = append(problems, fmt.Errorf(format, args...))
		return len(problems) < maxVerifyProblems
	}

	for _, id := range m.VertexIDs() {
		for e := range m.verts[id].edges {
			edge, ok := m.edges[e]
			if !ok {
				if !report("vertex %d: references missing edge %d", id, e) {
					return errors.Join(problems...)
				}
				continue
			}
			if edge.V[0] != id && edge.V[1] != id {
				if !report("vertex %d: edge %d does not touch it", id, e) {
					return errors.Join(problems...)
				}
			}
		}
	}

	for _, id := range m.EdgeIDs() {
		e := m.edges[id]
		if e.V[0] == e.V[1] {
			if !report("edge %d: both endpoints are vertex %d", id, e.V[0]) {
				return errors.Join(problems...)
			}
		}
		for _, v := range e.V {
			vert, ok := m.verts[v]
			if !ok {
				if !report("edge %d: references missing vertex %d", id, v) {
					return errors.Join(problems...)
				}
				continue
			}
			if _, ok := vert.edges[id]; !ok {
				if !report("edge %d: vertex %d does not list it", id, v) {
					return errors.Join(problems...)
				}
			}
		}
		if m.edgeIndex[keyOf(e.V[0], e.V[1])] != id {
			if !report("edge %d: not indexed under its vertex pair", id) {
				return errors.Join(problems...)
			}
		}
		for f := range e.faces {
			if _, ok := m.faces[f]; !ok {
				if !report("edge %d: references missing face %d", id, f) {
					return errors.Join(problems...)
				}
			}
		}
	}

	for _, id := range m.FaceIDs() {
		f := m.faces[id]
		if len(f.Verts) < 3 || hasRepeat(f.Verts) {
			if !report("face %d: loop %v is degenerate", id, f.Verts) {
				return errors.Join(problems...)
			}
		}
		if len(f.Edges) != len(f.Verts) {
			if !report("face %d: %d edges for %d vertices", id, len(f.Edges), len(f.Verts)) {
				return errors.Join(problems...)
			}
			continue
		}
		for i, e := range f.Edges {
			edge, ok := m.edges[e]
			if !ok {
				if !report("face %d: boundary edge %d is missing", id, e) {
					return errors.Join(problems...)
				}
				continue
			}
			if keyOf(edge.V[0], edge.V[1]) != keyOf(f.Verts[i], f.Verts[(i+1)%len(f.Verts)]) {
				if !report("face %d: edge %d does not close the loop", id, e) {
					return errors.Join(problems...)
				}
			}
			if _, ok := edge.faces[id]; !ok {
				if !report("face %d: edge %d does not list it", id, e) {
					return errors.Join(problems...)
				}
			}
		}
	}

	return errors.Join(problems...)
}

// Snapshot is a plain-value view of a mesh, convenient for comparisons
type Snapshot struct {
	Vertices map[VertexID]r3.Vec
	Edges    map[EdgeID][2]VertexID
	Faces    map[FaceID][]VertexID
}

// Snapshot copies the current contents of the mesh
func (m *Mesh) Snapshot() Snapshot {
	s := Snapshot{
		Vertices: make(map[VertexID]r3.Vec, len(m.verts)),
		Edges:    make(map[EdgeID][2]VertexID, len(m.edges)),
		Faces:    make(map[FaceID][]VertexID, len(m.faces)),
	}
	for id, v := range m.verts {
		s.Vertices[id] = v.Pos
	}
	for id, e := range m.edges {
		s.Edges[id] = e.V
	}
	for id, f := range m.faces {
		s.Faces[id] = append([]VertexID(nil), f.Verts...)
	}
	return s
}
