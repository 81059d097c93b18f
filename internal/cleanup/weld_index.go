package cleanup

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"demclean/internal/mesh"
)

type cellKey [3]int64

type weldEntry struct {
	id  mesh.VertexID
	pos r3.Vec
}

// weldIndex buckets kept vertices into cubic cells at least tol wide so that
// any vertex within tol of a query lies in one of the 27 surrounding cells
type weldIndex struct {
	tol   float64
	size  float64
	cells map[cellKey][]weldEntry
}

func newWeldIndex(tol float64) *weldIndex {
	size := tol
	if size <= 0 {
		size = 1
	}
	return &weldIndex{tol: tol, size: size, cells: make(map[cellKey][]weldEntry)}
}

func (w *weldIndex) key(p r3.Vec) cellKey {
	return cellKey{
		int64(math.Floor(p.X / w.size)),
		int64(math.Floor(p.Y / w.size)),
		int64(math.Floor(p.Z / w.size)),
	}
}

func (w *weldIndex) insert(id mesh.VertexID, p r3.Vec) {
	k := w.key(p)
	w.cells[k] = append(w.cells[k], weldEntry{id: id, pos: p})
}

// find returns the lowest-numbered indexed vertex within tol of p
func (w *weldIndex) find(p r3.Vec) (mesh.VertexID, bool) {
	k := w.key(p)
	var best mesh.VertexID
	found := false
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for dz := int64(-1); dz <= 1; dz++ {
				for _, e := range w.cells[cellKey{k[0] + dx, k[1] + dy, k[2] + dz}] {
					if r3.Norm(r3.Sub(e.pos, p)) > w.tol {
						continue
					}
					if !found || e.id < best {
						best, found = e.id, true
					}
				}
			}
		}
	}
	return best, found
}
