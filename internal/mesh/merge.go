package mesh

import "errors"

// MergeResult reports what a vertex merge removed
type MergeResult struct {
	// EdgesRemoved counts edges that collapsed to a point or folded into an
	// edge already connecting the same pair
	EdgesRemoved int
	// FacesRemoved counts faces left with fewer than 3 distinct vertices
	FacesRemoved int
	// DuplicateFaces counts faces that ended up with the vertex set of
	// another face
	DuplicateFaces int
}

// MergeVertices folds drop into keep. Every edge and face that referenced
// drop is rewritten to reference keep, and drop is deleted. keep stays at
// its own position. ok is false when the merge is impossible, e.g. one of
// the vertices is already gone.
func (m *Mesh) MergeVertices(keep, drop VertexID) (res MergeResult, ok bool) {
	if keep == drop {
		return res, false
	}
	kv, ok := m.verts[keep]
	if !ok {
		return res, false
	}
	dv, ok := m.verts[drop]
	if !ok {
		return res, false
	}

	// Detach every face touching drop. They are rebuilt once the edges are
	// settled.
	touched := make(map[FaceID]struct{})
	for e := range dv.edges {
		for f := range m.edges[e].faces {
			touched[f] = struct{}{}
		}
	}
	faceIDs := sortedKeys(touched)
	loops := make(map[FaceID][]VertexID, len(faceIDs))
	for _, f := range faceIDs {
		loops[f] = m.faces[f].Verts
		m.RemoveFace(f)
	}

	for _, id := range sortedKeys(dv.edges) {
		e := m.edges[id]
		other := e.Other(drop)
		if _, exists := m.edgeIndex[keyOf(other, keep)]; other == keep || exists {
			m.RemoveEdge(id)
			res.EdgesRemoved++
			continue
		}
		delete(m.edgeIndex, keyOf(other, drop))
		delete(dv.edges, id)
		if e.V[0] == drop {
			e.V[0] = keep
		} else {
			e.V[1] = keep
		}
		kv.edges[id] = struct{}{}
		m.edgeIndex[keyOf(other, keep)] = id
	}
	delete(m.verts, drop)

	for _, f := range faceIDs {
		loop := make([]VertexID, len(loops[f]))
		for i, v := range loops[f] {
			if v == drop {
				v = keep
			}
			loop[i] = v
		}
		if err := m.attachFace(f, loop); err != nil {
			if errors.Is(err, ErrDuplicateFace) {
				res.DuplicateFaces++
			} else {
				res.FacesRemoved++
			}
		}
	}
	return res, true
}
