package mesh

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

type edgeKey struct {
	a, b VertexID
}

func keyOf(a, b VertexID) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

// Edge joins two distinct vertices and tracks the faces it bounds
type Edge struct {
	ID EdgeID
	V  [2]VertexID

	faces map[FaceID]struct{}
}

// Other returns the endpoint opposite v
func (e *Edge) Other(v VertexID) VertexID {
	if e.V[0] == v {
		return e.V[1]
	}
	return e.V[0]
}

// FaceCount returns the number of faces bounded by the edge
func (e *Edge) FaceCount() int {
	return len(e.faces)
}

// AddEdge connects a and b. If the pair is already connected the existing
// edge is returned.
func (m *Mesh) AddEdge(a, b VertexID) (EdgeID, error) {
	if a == b {
		return 0, fmt.Errorf("edge %d-%d: %w", a, b, ErrDegenerateEdge)
	}
	va, ok := m.verts[a]
	if !ok {
		return 0, fmt.Errorf("edge %d-%d: vertex %d: %w", a, b, a, ErrUnknownVertex)
	}
	vb, ok := m.verts[b]
	if !ok {
		return 0, fmt.Errorf("edge %d-%d: vertex %d: %w", a, b, b, ErrUnknownVertex)
	}
	if id, ok := m.edgeIndex[keyOf(a, b)]; ok {
		return id, nil
	}

	id := m.nextEdge
	m.nextEdge++
	m.edges[id] = &Edge{ID: id, V: [2]VertexID{a, b}, faces: make(map[FaceID]struct{})}
	m.edgeIndex[keyOf(a, b)] = id
	va.edges[id] = struct{}{}
	vb.edges[id] = struct{}{}
	return id, nil
}

// Edge looks up a live edge
func (m *Mesh) Edge(id EdgeID) (*Edge, bool) {
	e, ok := m.edges[id]
	return e, ok
}

// HasEdge reports whether the edge is live
func (m *Mesh) HasEdge(id EdgeID) bool {
	_, ok := m.edges[id]
	return ok
}

// FindEdge returns the edge connecting a and b, if any
func (m *Mesh) FindEdge(a, b VertexID) (EdgeID, bool) {
	id, ok := m.edgeIndex[keyOf(a, b)]
	return id, ok
}

// EdgeIDs returns a sorted snapshot of live edge IDs
func (m *Mesh) EdgeIDs() []EdgeID {
	return sortedKeys(m.edges)
}

// EdgeFaces returns the sorted IDs of faces bounded by the edge
func (m *Mesh) EdgeFaces(id EdgeID) []FaceID {
	e, ok := m.edges[id]
	if !ok {
		return nil
	}
	return sortedKeys(e.faces)
}

// EdgeLength returns the Euclidean distance between the edge's endpoints
func (m *Mesh) EdgeLength(id EdgeID) (float64, bool) {
	e, ok := m.edges[id]
	if !ok {
		return 0, false
	}
	return r3.Norm(r3.Sub(m.verts[e.V[0]].Pos, m.verts[e.V[1]].Pos)), true
}

// RemoveEdge deletes an edge and every face it bounds. Its endpoints are
// kept even when they become isolated.
func (m *Mesh) RemoveEdge(id EdgeID) bool {
	e, ok := m.edges[id]
	if !ok {
		return false
	}
	for _, f := range sortedKeys(e.faces) {
		m.RemoveFace(f)
	}
	for _, v := range e.V {
		if vert, ok := m.verts[v]; ok {
			delete(vert.edges, id)
		}
	}
	delete(m.edgeIndex, keyOf(e.V[0], e.V[1]))
	delete(m.edges, id)
	return true
}
