package cleanup

import (
	"go.uber.org/zap/zapcore"

	"demclean/internal/mesh"
)

const (
	// DefaultTolerance is the dissolve and weld distance used by the
	// PLATEAU pipeline
	DefaultTolerance = 0.0001

	defaultMaxPasses = 8
)

// RepairOptions configures RepairTopology
type RepairOptions struct {
	DegenerateTol float64
	WeldTol       float64
	// Converge repeats the dissolve/loose/weld pass until a pass changes
	// nothing or MaxPasses is reached.
	Converge  bool
	MaxPasses int
}

// DefaultRepairOptions returns the single-pass repair settings
func DefaultRepairOptions() RepairOptions {
	return RepairOptions{
		DegenerateTol: DefaultTolerance,
		WeldTol:       DefaultTolerance,
		MaxPasses:     defaultMaxPasses,
	}
}

// DissolveResult reports the degenerate-edge step
type DissolveResult struct {
	Collapsed      int
	EdgesRemoved   int
	FacesRemoved   int
	DuplicateFaces int
}

// LooseResult reports the loose-geometry step
type LooseResult struct {
	Edges    int
	Vertices int
}

// WeldResult reports the duplicate-vertex step
type WeldResult struct {
	Merged         int
	EdgesRemoved   int
	FacesRemoved   int
	DuplicateFaces int
}

// RepairSummary accumulates the step results over every pass
type RepairSummary struct {
	Dissolve DissolveResult
	Loose    LooseResult
	Weld     WeldResult
	Passes   int
}

// Changed reports whether any step modified the mesh
func (s RepairSummary) Changed() bool {
	return s.Dissolve.Collapsed > 0 || s.Loose.Edges > 0 || s.Loose.Vertices > 0 || s.Weld.Merged > 0
}

// Plus returns the field-wise sum of two summaries
func (s RepairSummary) Plus(o RepairSummary) RepairSummary {
	s.Dissolve.Collapsed += o.Dissolve.Collapsed
	s.Dissolve.EdgesRemoved += o.Dissolve.EdgesRemoved
	s.Dissolve.FacesRemoved += o.Dissolve.FacesRemoved
	s.Dissolve.DuplicateFaces += o.Dissolve.DuplicateFaces
	s.Loose.Edges += o.Loose.Edges
	s.Loose.Vertices += o.Loose.Vertices
	s.Weld.Merged += o.Weld.Merged
	s.Weld.EdgesRemoved += o.Weld.EdgesRemoved
	s.Weld.FacesRemoved += o.Weld.FacesRemoved
	s.Weld.DuplicateFaces += o.Weld.DuplicateFaces
	s.Passes += o.Passes
	return s
}

// MarshalLogObject implements zapcore.ObjectMarshaler
func (s RepairSummary) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("dissolved", s.Dissolve.Collapsed)
	enc.AddInt("degenerate_faces", s.Dissolve.FacesRemoved)
	enc.AddInt("loose_edges", s.Loose.Edges)
	enc.AddInt("loose_verts", s.Loose.Vertices)
	enc.AddInt("welded", s.Weld.Merged)
	enc.AddInt("duplicate_faces", s.Dissolve.DuplicateFaces+s.Weld.DuplicateFaces)
	enc.AddInt("passes", s.Passes)
	return nil
}

// RepairTopology dissolves degenerate edges, deletes loose geometry and welds
// coincident vertices, in that order, over the whole mesh
func RepairTopology(m *mesh.Mesh, opts RepairOptions) RepairSummary {
	passes := 1
	if opts.Converge {
		passes = opts.MaxPasses
		if passes <= 0 {
			passes = defaultMaxPasses
		}
	}

	var sum RepairSummary
	for i := 0; i < passes; i++ {
		pass := RepairSummary{
			Dissolve: DissolveDegenerate(m, opts.DegenerateTol),
			Loose:    DeleteLoose(m),
			Weld:     WeldDuplicates(m, opts.WeldTol),
			Passes:   1,
		}
		sum = sum.Plus(pass)
		if !pass.Changed() {
			break
		}
	}
	return sum
}

// DissolveDegenerate collapses every edge shorter than tol into its
// lower-numbered endpoint. Faces that fall below three distinct vertices
// are removed. Edges touching a collapsed vertex are checked again, so no
// surviving edge is shorter than tol.
func DissolveDegenerate(m *mesh.Mesh, tol float64) DissolveResult {
	var res DissolveResult
	queue := m.EdgeIDs()
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		e, ok := m.Edge(id)
		if !ok {
			continue
		}
		if length, _ := m.EdgeLength(id); length >= tol {
			continue
		}
		keep, drop := e.V[0], e.V[1]
		if drop < keep {
			keep, drop = drop, keep
		}
		mr, ok := m.MergeVertices(keep, drop)
		if !ok {
			continue
		}
		res.Collapsed++
		res.EdgesRemoved += mr.EdgesRemoved
		res.FacesRemoved += mr.FacesRemoved
		res.DuplicateFaces += mr.DuplicateFaces
		queue = append(queue, m.VertexEdges(keep)...)
	}
	return res
}

// DeleteLoose removes edges that bound no face and then vertices that have
// no edge. Faces are never touched.
func DeleteLoose(m *mesh.Mesh) LooseResult {
	var res LooseResult
	for _, id := range m.EdgeIDs() {
		if e, ok := m.Edge(id); ok && e.FaceCount() == 0 && m.RemoveEdge(id) {
			res.Edges++
		}
	}
	for _, id := range m.VertexIDs() {
		if v, ok := m.Vertex(id); ok && v.Degree() == 0 && m.RemoveVertex(id) {
			res.Vertices++
		}
	}
	return res
}

// WeldDuplicates merges every vertex into the lowest-numbered earlier vertex
// lying within tol of it. Surviving vertices keep their positions, so after
// the step no two vertices are within tol of each other. A negative tol
// disables welding.
func WeldDuplicates(m *mesh.Mesh, tol float64) WeldResult {
	var res WeldResult
	if tol < 0 {
		return res
	}

	idx := newWeldIndex(tol)
	for _, id := range m.VertexIDs() {
		v, ok := m.Vertex(id)
		if !ok {
			continue
		}
		if target, found := idx.find(v.Pos); found {
			if mr, ok := m.MergeVertices(target, id); ok {
				res.Merged++
				res.EdgesRemoved += mr.EdgesRemoved
				res.FacesRemoved += mr.FacesRemoved
				res.DuplicateFaces += mr.DuplicateFaces
				continue
			}
		}
		idx.insert(id, v.Pos)
	}
	return res
}
