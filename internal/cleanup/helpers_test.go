package cleanup

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"demclean/internal/mesh"
)

// grid builds an n×n vertex lattice with the given spacing. Cells become
// quads, or two triangles split along the rising diagonal when tri is set.
func grid(t *testing.T, n int, spacing float64, tri bool) (*mesh.Mesh, [][]mesh.VertexID) {
	t.Helper()
	m := mesh.New()
	ids := make([][]mesh.VertexID, n)
	for row := 0; row < n; row++ {
		ids[row] = make([]mesh.VertexID, n)
		for col := 0; col < n; col++ {
			ids[row][col] = m.AddVertex(r3.Vec{X: float64(col) * spacing, Y: float64(row) * spacing})
		}
	}
	for row := 0; row+1 < n; row++ {
		for col := 0; col+1 < n; col++ {
			a, b := ids[row][col], ids[row][col+1]
			c, d := ids[row+1][col+1], ids[row+1][col]
			if tri {
				_, err := m.AddFace(a, b, c)
				require.NoError(t, err)
				_, err = m.AddFace(a, c, d)
				require.NoError(t, err)
				continue
			}
			_, err := m.AddFace(a, b, c, d)
			require.NoError(t, err)
		}
	}
	require.NoError(t, m.Verify())
	return m, ids
}

// jitteredTerrain builds a triangulated lattice with small random height
// noise plus a handful of long "water" triangles bridging distant vertices
func jitteredTerrain(t *testing.T, seed uint64) *mesh.Mesh {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	const n = 8
	m := mesh.New()
	ids := make([][]mesh.VertexID, n)
	for row := 0; row < n; row++ {
		ids[row] = make([]mesh.VertexID, n)
		for col := 0; col < n; col++ {
			ids[row][col] = m.AddVertex(r3.Vec{
				X: float64(col)*5 + rng.Float64()*0.5,
				Y: float64(row)*5 + rng.Float64()*0.5,
				Z: rng.Float64() * 2,
			})
		}
	}
	for row := 0; row+1 < n; row++ {
		for col := 0; col+1 < n; col++ {
			_, err := m.AddFace(ids[row][col], ids[row][col+1], ids[row+1][col+1])
			require.NoError(t, err)
			_, err = m.AddFace(ids[row][col], ids[row+1][col+1], ids[row+1][col])
			require.NoError(t, err)
		}
	}
	for i := 0; i < 6; i++ {
		a := ids[rng.IntN(n)][rng.IntN(n)]
		b := ids[rng.IntN(n)][rng.IntN(n)]
		c := ids[rng.IntN(n)][rng.IntN(n)]
		// Collisions with existing faces or repeated picks are fine to skip.
		_, _ = m.AddFace(a, b, c)
	}
	require.NoError(t, m.Verify())
	return m
}

func assertNoCloseVertices(t *testing.T, m *mesh.Mesh, tol float64) {
	t.Helper()
	ids := m.VertexIDs()
	for i := range ids {
		vi, _ := m.Vertex(ids[i])
		for j := i + 1; j < len(ids); j++ {
			vj, _ := m.Vertex(ids[j])
			if d := r3.Norm(r3.Sub(vi.Pos, vj.Pos)); d <= tol {
				t.Errorf("vertices %d and %d are %g apart, want > %g", ids[i], ids[j], d, tol)
			}
		}
	}
}

func assertNoShortEdges(t *testing.T, m *mesh.Mesh, tol float64) {
	t.Helper()
	for _, id := range m.EdgeIDs() {
		if l, _ := m.EdgeLength(id); l < tol {
			t.Errorf("edge %d has length %g, want >= %g", id, l, tol)
		}
	}
}
