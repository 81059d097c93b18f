// Package cleanup implements the water-surface removal stages for DEM
// meshes: the long-edge filter and the topology repair that follows it.
package cleanup

import (
	"go.uber.org/zap/zapcore"

	"demclean/internal/mesh"
)

// FilterResult reports what FilterLongEdges removed
type FilterResult struct {
	Examined     int
	Removed      int
	FacesRemoved int
}

// FilterLongEdges removes every edge whose length is at or above threshold,
// along with the faces bounded by those edges. Endpoint vertices are left in
// place even when they become isolated; RepairTopology deals with them.
//
// Edges are visited from a snapshot taken before the first removal.
func FilterLongEdges(m *mesh.Mesh, threshold float64) FilterResult {
	var res FilterResult
	facesBefore := m.Counts().Faces

	for _, id := range m.EdgeIDs() {
		length, ok := m.EdgeLength(id)
		if !ok {
			continue
		}
		res.Examined++
		if length >= threshold && m.RemoveEdge(id) {
			res.Removed++
		}
	}

	res.FacesRemoved = facesBefore - m.Counts().Faces
	return res
}

// MarshalLogObject implements zapcore.ObjectMarshaler
func (r FilterResult) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("examined", r.Examined)
	enc.AddInt("removed", r.Removed)
	enc.AddInt("faces_removed", r.FacesRemoved)
	return nil
}
