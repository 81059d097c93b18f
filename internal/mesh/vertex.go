package mesh

import "gonum.org/v1/gonum/spatial/r3"

// Vertex is a point in space together with its incident edges
type Vertex struct {
	ID  VertexID
	Pos r3.Vec

	edges map[EdgeID]struct{}
}

// Degree returns the number of edges incident to the vertex
func (v *Vertex) Degree() int {
	return len(v.edges)
}

// AddVertex adds a vertex at pos and returns its ID
func (m *Mesh) AddVertex(pos r3.Vec) VertexID {
	id := m.nextVertex
	m.nextVertex++
	m.verts[id] = &Vertex{ID: id, Pos: pos, edges: make(map[EdgeID]struct{})}
	return id
}

// Vertex looks up a live vertex
func (m *Mesh) Vertex(id VertexID) (*Vertex, bool) {
	v, ok := m.verts[id]
	return v, ok
}

// HasVertex reports whether the vertex is live
func (m *Mesh) HasVertex(id VertexID) bool {
	_, ok := m.verts[id]
	return ok
}

// VertexIDs returns a sorted snapshot of live vertex IDs
func (m *Mesh) VertexIDs() []VertexID {
	return sortedKeys(m.verts)
}

// VertexEdges returns the sorted IDs of edges incident to the vertex
func (m *Mesh) VertexEdges(id VertexID) []EdgeID {
	v, ok := m.verts[id]
	if !ok {
		return nil
	}
	return sortedKeys(v.edges)
}

// RemoveVertex deletes a vertex together with its incident edges and the
// faces bounded by them
func (m *Mesh) RemoveVertex(id VertexID) bool {
	v, ok := m.verts[id]
	if !ok {
		return false
	}
	for _, e := range sortedKeys(v.edges) {
		m.RemoveEdge(e)
	}
	delete(m.verts, id)
	return true
}
