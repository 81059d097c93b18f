// Package mesh holds an editable polygon mesh with stable element identities.
//
// Vertices, edges and faces live in separate containers keyed by ID. Edges are
// unique per unordered vertex pair and faces are unique per vertex set.
// Removing an edge removes every face bounded by it; removing a vertex removes
// every edge incident to it. Removing an element that is already gone is a
// no-op that reports false.
//
// A Mesh is not safe for concurrent use.
package mesh

import (
	"errors"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// VertexID identifies a vertex within one mesh
type VertexID int

// EdgeID identifies an edge within one mesh
type EdgeID int

// FaceID identifies a face within one mesh
type FaceID int

var (
	// ErrUnknownVertex is returned when an element references a missing vertex
	ErrUnknownVertex = errors.New("unknown vertex")
	// ErrDegenerateEdge is returned for an edge joining a vertex to itself
	ErrDegenerateEdge = errors.New("edge joins a vertex to itself")
	// ErrDegenerateFace is returned for a face with fewer than 3 distinct
	// vertices or a vertex repeated in its loop
	ErrDegenerateFace = errors.New("degenerate face")
	// ErrDuplicateFace is returned when a face with the same vertex set exists
	ErrDuplicateFace = errors.New("duplicate face")
)

// Mesh is an editable vertex/edge/face container
type Mesh struct {
	verts map[VertexID]*Vertex
	edges map[EdgeID]*Edge
	faces map[FaceID]*Face

	edgeIndex map[edgeKey]EdgeID
	faceIndex map[string]FaceID

	nextVertex VertexID
	nextEdge   EdgeID
	nextFace   FaceID
}

// Counts reports container sizes
type Counts struct {
	Vertices int
	Edges    int
	Faces    int
}

// Bounds is an axis-aligned bounding box
type Bounds struct {
	Min, Max r3.Vec
}

// New creates an empty mesh
func New() *Mesh {
	return &Mesh{
		verts:     make(map[VertexID]*Vertex),
		edges:     make(map[EdgeID]*Edge),
		faces:     make(map[FaceID]*Face),
		edgeIndex: make(map[edgeKey]EdgeID),
		faceIndex: make(map[string]FaceID),
	}
}

// Counts returns the number of live vertices, edges and faces
func (m *Mesh) Counts() Counts {
	return Counts{Vertices: len(m.verts), Edges: len(m.edges), Faces: len(m.faces)}
}

// Empty reports whether the mesh has no elements at all
func (m *Mesh) Empty() bool {
	return len(m.verts) == 0 && len(m.edges) == 0 && len(m.faces) == 0
}

// Bounds returns the bounding box of all vertices. ok is false for a mesh
// without vertices.
func (m *Mesh) Bounds() (b Bounds, ok bool) {
	for _, v := range m.verts {
		if !ok {
			b = Bounds{Min: v.Pos, Max: v.Pos}
			ok = true
			continue
		}
		b.Min = r3.Vec{X: min(b.Min.X, v.Pos.X), Y: min(b.Min.Y, v.Pos.Y), Z: min(b.Min.Z, v.Pos.Z)}
		b.Max = r3.Vec{X: max(b.Max.X, v.Pos.X), Y: max(b.Max.Y, v.Pos.Y), Z: max(b.Max.Z, v.Pos.Z)}
	}
	return b, ok
}

// Clone returns a deep copy that preserves every element ID
func (m *Mesh) Clone() *Mesh {
	c := New()
	c.nextVertex, c.nextEdge, c.nextFace = m.nextVertex, m.nextEdge, m.nextFace
	for id, v := range m.verts {
		nv := &Vertex{ID: id, Pos: v.Pos, edges: make(map[EdgeID]struct{}, len(v.edges))}
		for e := range v.edges {
			nv.edges[e] = struct{}{}
		}
		c.verts[id] = nv
	}
	for id, e := range m.edges {
		ne := &Edge{ID: id, V: e.V, faces: make(map[FaceID]struct{}, len(e.faces))}
		for f := range e.faces {
			ne.faces[f] = struct{}{}
		}
		c.edges[id] = ne
	}
	for id, f := range m.faces {
		c.faces[id] = &Face{
			ID:    id,
			Verts: append([]VertexID(nil), f.Verts...),
			Edges: append([]EdgeID(nil), f.Edges...),
		}
	}
	for k, v := range m.edgeIndex {
		c.edgeIndex[k] = v
	}
	for k, v := range m.faceIndex {
		c.faceIndex[k] = v
	}
	return c
}

func sortedKeys[K ~int, V any](set map[K]V) []K {
	keys := make([]K, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
