package objio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"demclean/internal/mesh"
	"demclean/internal/scene"
)

// WriteStats reports what was written
type WriteStats struct {
	Objects  int
	Vertices int
	Faces    int
	Lines    int
}

// Write serializes every object of the scene in insertion order. Each comment
// becomes a `#` header line. Vertices are written in ID order and faces
// reference them with global 1-based indices; edges that bound no face are
// written as `l` elements.
func Write(w io.Writer, s *scene.Scene, comments ...string) (WriteStats, error) {
	var stats WriteStats
	bw := bufio.NewWriter(w)

	for _, c := range comments {
		fmt.Fprintf(bw, "# %s\n", c)
	}
	if len(comments) > 0 {
		fmt.Fprintln(bw)
	}

	base := 0
	for _, obj := range s.Objects() {
		base += writeObject(bw, obj, base, &stats)
		stats.Objects++
	}
	// bufio.Writer holds on to the first write error until Flush
	if err := bw.Flush(); err != nil {
		return stats, fmt.Errorf("error writing OBJ: %w", err)
	}
	return stats, nil
}

func writeObject(w *bufio.Writer, obj *scene.Object, base int, stats *WriteStats) int {
	m := obj.Mesh
	fmt.Fprintf(w, "o %s\n", obj.Name)

	index := make(map[mesh.VertexID]int)
	for i, id := range m.VertexIDs() {
		v, _ := m.Vertex(id)
		index[id] = base + i + 1
		fmt.Fprintf(w, "v %.6f %.6f %.6f\n", v.Pos.X, v.Pos.Y, v.Pos.Z)
		stats.Vertices++
	}

	for _, id := range m.FaceIDs() {
		f, _ := m.Face(id)
		w.WriteString("f")
		for _, v := range f.Verts {
			fmt.Fprintf(w, " %d", index[v])
		}
		w.WriteString("\n")
		stats.Faces++
	}

	for _, id := range m.EdgeIDs() {
		e, _ := m.Edge(id)
		if e.FaceCount() > 0 {
			continue
		}
		fmt.Fprintf(w, "l %d %d\n", index[e.V[0]], index[e.V[1]])
		stats.Lines++
	}
	return len(index)
}

// WriteFile writes the scene to path, creating parent directories as needed.
// The file is written to a temporary name first and renamed into place.
func WriteFile(path string, s *scene.Scene, comments ...string) (WriteStats, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return WriteStats{}, fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return WriteStats{}, err
	}
	defer os.Remove(tmp.Name())

	stats, err := Write(tmp, s, comments...)
	if err != nil {
		tmp.Close()
		return stats, err
	}
	if err := tmp.Close(); err != nil {
		return stats, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return stats, err
	}
	return stats, nil
}
