package cleanup

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"demclean/internal/mesh"
)

// EdgeInfo describes a single edge for reporting
type EdgeInfo struct {
	ID     mesh.EdgeID
	V      [2]mesh.VertexID
	Length float64
	Faces  int
}

// Bin is one histogram bucket covering [Lower, Upper)
type Bin struct {
	Lower float64
	Upper float64
	Count int
}

// LengthStats summarizes the edge lengths of a mesh
type LengthStats struct {
	Count     int
	Min       float64
	Max       float64
	Mean      float64
	Median    float64
	Histogram []Bin
}

func edgeInfos(m *mesh.Mesh) []EdgeInfo {
	ids := m.EdgeIDs()
	infos := make([]EdgeInfo, 0, len(ids))
	for _, id := range ids {
		e, _ := m.Edge(id)
		length, _ := m.EdgeLength(id)
		infos = append(infos, EdgeInfo{ID: id, V: e.V, Length: length, Faces: e.FaceCount()})
	}
	return infos
}

// EdgeLengthStats computes summary statistics and an evenly spaced histogram
// of edge lengths. Useful for choosing a filter threshold relative to the
// terrain grid spacing.
func EdgeLengthStats(m *mesh.Mesh, bins int) LengthStats {
	infos := edgeInfos(m)
	if len(infos) == 0 {
		return LengthStats{}
	}
	lengths := make([]float64, len(infos))
	for i, e := range infos {
		lengths[i] = e.Length
	}
	sort.Float64s(lengths)

	s := LengthStats{
		Count:  len(lengths),
		Min:    lengths[0],
		Max:    lengths[len(lengths)-1],
		Mean:   stat.Mean(lengths, nil),
		Median: stat.Quantile(0.5, stat.Empirical, lengths, nil),
	}

	if bins < 1 {
		bins = 1
	}
	if s.Min == s.Max {
		s.Histogram = []Bin{{Lower: s.Min, Upper: s.Max, Count: s.Count}}
		return s
	}
	dividers := floats.Span(make([]float64, bins+1), s.Min, s.Max)
	dividers[bins] = math.Nextafter(s.Max, math.Inf(1))
	counts := stat.Histogram(nil, dividers, lengths, nil)
	s.Histogram = make([]Bin, bins)
	for i := range s.Histogram {
		s.Histogram[i] = Bin{Lower: dividers[i], Upper: dividers[i+1], Count: int(counts[i])}
	}
	return s
}

// LongestEdges returns up to n edges ordered from longest to shortest
func LongestEdges(m *mesh.Mesh, n int) []EdgeInfo {
	infos := edgeInfos(m)
	sort.SliceStable(infos, func(i, j int) bool { return infos[i].Length > infos[j].Length })
	if n >= 0 && n < len(infos) {
		infos = infos[:n]
	}
	return infos
}

// EdgesAtLeast returns the edges FilterLongEdges would remove for threshold,
// in ID order, without modifying the mesh
func EdgesAtLeast(m *mesh.Mesh, threshold float64) []EdgeInfo {
	var out []EdgeInfo
	for _, e := range edgeInfos(m) {
		if e.Length >= threshold {
			out = append(out, e)
		}
	}
	return out
}
