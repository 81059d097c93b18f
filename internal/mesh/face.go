package mesh

import (
	"fmt"
	"strconv"
	"strings"
)

// Face is a closed loop of vertices. Edges[i] joins Verts[i] and
// Verts[(i+1)%len(Verts)].
type Face struct {
	ID    FaceID
	Verts []VertexID
	Edges []EdgeID
}

// AddFace adds a face over the vertex loop, creating any missing boundary
// edges. Consecutive repeats of a vertex are collapsed first.
func (m *Mesh) AddFace(verts ...VertexID) (FaceID, error) {
	id := m.nextFace
	if err := m.attachFace(id, verts); err != nil {
		return 0, err
	}
	m.nextFace++
	return id, nil
}

// attachFace registers a face under a caller-chosen ID. MergeVertices uses
// it to put rewritten faces back without changing their identity.
func (m *Mesh) attachFace(id FaceID, verts []VertexID) error {
	for _, v := range verts {
		if _, ok := m.verts[v]; !ok {
			return fmt.Errorf("face %d: vertex %d: %w", id, v, ErrUnknownVertex)
		}
	}
	loop := collapseLoop(verts)
	if len(loop) < 3 || hasRepeat(loop) {
		return fmt.Errorf("face %d: %w", id, ErrDegenerateFace)
	}
	key := faceKey(loop)
	if other, ok := m.faceIndex[key]; ok {
		return fmt.Errorf("face %d matches face %d: %w", id, other, ErrDuplicateFace)
	}

	edges := make([]EdgeID, len(loop))
	for i := range loop {
		e, err := m.AddEdge(loop[i], loop[(i+1)%len(loop)])
		if err != nil {
			return fmt.Errorf("face %d: %w", id, err)
		}
		edges[i] = e
	}
	for _, e := range edges {
		m.edges[e].faces[id] = struct{}{}
	}
	m.faces[id] = &Face{ID: id, Verts: loop, Edges: edges}
	m.faceIndex[key] = id
	return nil
}

// Face looks up a live face
func (m *Mesh) Face(id FaceID) (*Face, bool) {
	f, ok := m.faces[id]
	return f, ok
}

// HasFace reports whether the face is live
func (m *Mesh) HasFace(id FaceID) bool {
	_, ok := m.faces[id]
	return ok
}

// FaceIDs returns a sorted snapshot of live face IDs
func (m *Mesh) FaceIDs() []FaceID {
	return sortedKeys(m.faces)
}

// RemoveFace deletes a face. Its boundary edges stay in the mesh.
func (m *Mesh) RemoveFace(id FaceID) bool {
	f, ok := m.faces[id]
	if !ok {
		return false
	}
	for _, e := range f.Edges {
		if edge, ok := m.edges[e]; ok {
			delete(edge.faces, id)
		}
	}
	delete(m.faceIndex, faceKey(f.Verts))
	delete(m.faces, id)
	return true
}

// collapseLoop drops cyclically consecutive duplicates
func collapseLoop(verts []VertexID) []VertexID {
	loop := make([]VertexID, 0, len(verts))
	for _, v := range verts {
		if len(loop) > 0 && loop[len(loop)-1] == v {
			continue
		}
		loop = append(loop, v)
	}
	for len(loop) > 1 && loop[0] == loop[len(loop)-1] {
		loop = loop[:len(loop)-1]
	}
	return loop
}

func hasRepeat(loop []VertexID) bool {
	seen := make(map[VertexID]struct{}, len(loop))
	for _, v := range loop {
		if _, ok := seen[v]; ok {
			return true
		}
		seen[v] = struct{}{}
	}
	return false
}

// faceKey identifies a face by its vertex cycle regardless of winding or
// starting vertex. The loop is read from its lowest vertex toward the lower
// of that vertex's two neighbours.
func faceKey(loop []VertexID) string {
	n := len(loop)
	start := 0
	for i, v := range loop {
		if v < loop[start] {
			start = i
		}
	}
	step := 1
	if n > 2 && loop[(start+n-1)%n] < loop[(start+1)%n] {
		step = n - 1
	}
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(int(loop[(start+i*step)%n])))
	}
	return b.String()
}
