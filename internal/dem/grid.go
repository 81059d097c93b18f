// Package dem turns elevation rasters into terrain meshes.
package dem

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"demclean/internal/mesh"
)

// Grid is a row-major elevation raster. Heights holds Height rows of Width
// samples, north row first.
type Grid struct {
	Width        int
	Height       int
	Heights      []float64
	GeoTransform [6]float64
	NoData       float64
	HasNoData    bool
}

// Validate checks that the raster is usable
func (g Grid) Validate() error {
	if g.Width < 2 || g.Height < 2 {
		return fmt.Errorf("grid is %dx%d, need at least 2x2", g.Width, g.Height)
	}
	if len(g.Heights) != g.Width*g.Height {
		return fmt.Errorf("grid is %dx%d but has %d samples", g.Width, g.Height, len(g.Heights))
	}
	if g.GeoTransform[1]*g.GeoTransform[5]-g.GeoTransform[2]*g.GeoTransform[4] == 0 {
		return errors.New("invalid geotransform matrix")
	}
	return nil
}

// At returns the sample at col, row and whether it holds data
func (g Grid) At(col, row int) (float64, bool) {
	if col < 0 || col >= g.Width || row < 0 || row >= g.Height {
		return 0, false
	}
	z := g.Heights[row*g.Width+col]
	if math.IsNaN(z) || (g.HasNoData && z == g.NoData) {
		return 0, false
	}
	return z, true
}

// World maps the centre of pixel col, row to map coordinates
func (g Grid) World(col, row int) (x, y float64) {
	gt := g.GeoTransform
	px, py := float64(col)+0.5, float64(row)+0.5
	return gt[0] + px*gt[1] + py*gt[2], gt[3] + px*gt[4] + py*gt[5]
}

// Pixel maps map coordinates back to the pixel containing them using the
// inverse geotransform
func (g Grid) Pixel(x, y float64) (col, row int, ok bool) {
	gt := g.GeoTransform
	det := gt[1]*gt[5] - gt[2]*gt[4]
	if det == 0 {
		return 0, 0, false
	}
	px := ((x-gt[0])*gt[5] - (y-gt[3])*gt[2]) / det
	py := ((y-gt[3])*gt[1] - (x-gt[0])*gt[4]) / det
	col, row = int(math.Floor(px)), int(math.Floor(py))
	if col < 0 || col >= g.Width || row < 0 || row >= g.Height {
		return col, row, false
	}
	return col, row, true
}

// Spacing returns the ground distance between neighbouring samples along
// a row and along a column
func (g Grid) Spacing() (dx, dy float64) {
	gt := g.GeoTransform
	return math.Hypot(gt[1], gt[4]), math.Hypot(gt[2], gt[5])
}

// Synthetic builds a north-up test raster of gently rolling terrain with the
// given sample spacing. The surface is deterministic.
func Synthetic(width, height int, spacing float64) Grid {
	g := Grid{
		Width:        width,
		Height:       height,
		Heights:      make([]float64, width*height),
		GeoTransform: [6]float64{0, spacing, 0, float64(height) * spacing, 0, -spacing},
	}
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			x, y := g.World(col, row)
			g.Heights[row*width+col] = 10 + 2*math.Sin(x/37) + 1.5*math.Cos(y/23) + 0.25*math.Sin((x+y)/7)
		}
	}
	return g
}

// Lake is a block of cells covered by one flat polygon spanning its corner
// samples instead of per-cell triangles. Col1 and Row1 are exclusive cell
// bounds, so the corners are the samples at Col0/Col1 and Row0/Row1.
type Lake struct {
	Col0, Row0 int
	Col1, Row1 int
}

func (l Lake) contains(col, row int) bool {
	return col >= l.Col0 && col < l.Col1 && row >= l.Row0 && row < l.Row1
}

// Options controls mesh generation
type Options struct {
	Lakes []Lake
}

// BuildStats reports how a raster was meshed
type BuildStats struct {
	Cells        int
	SkippedCells int
	LakeCells    int
	Lakes        int
}

type builder struct {
	g    Grid
	m    *mesh.Mesh
	ids  []mesh.VertexID
	seen []bool
}

func (b *builder) vertex(col, row int) mesh.VertexID {
	i := row*b.g.Width + col
	if !b.seen[i] {
		x, y := b.g.World(col, row)
		z, _ := b.g.At(col, row)
		b.ids[i] = b.m.AddVertex(r3.Vec{X: x, Y: y, Z: z})
		b.seen[i] = true
	}
	return b.ids[i]
}

func (b *builder) triangle(c [3][2]int) error {
	_, err := b.m.AddFace(b.vertex(c[0][0], c[0][1]), b.vertex(c[1][0], c[1][1]), b.vertex(c[2][0], c[2][1]))
	return err
}

// BuildMesh triangulates the raster. Every cell whose four corner samples
// hold data becomes two triangles split along the same diagonal. Cells
// touching nodata are left open and samples used by no face get no vertex.
// Each lake is emitted as two large triangles over its corner samples, the
// way water bodies appear in published terrain tiles.
func BuildMesh(g Grid, opts Options) (*mesh.Mesh, BuildStats, error) {
	var stats BuildStats
	if err := g.Validate(); err != nil {
		return nil, stats, err
	}
	for i, l := range opts.Lakes {
		if l.Col0 < 0 || l.Row0 < 0 || l.Col1 <= l.Col0 || l.Row1 <= l.Row0 || l.Col1 >= g.Width || l.Row1 >= g.Height {
			return nil, stats, fmt.Errorf("lake %d: cells [%d,%d)x[%d,%d) outside %dx%d grid",
				i, l.Col0, l.Col1, l.Row0, l.Row1, g.Width, g.Height)
		}
		for _, c := range [][2]int{{l.Col0, l.Row0}, {l.Col1, l.Row0}, {l.Col1, l.Row1}, {l.Col0, l.Row1}} {
			if _, ok := g.At(c[0], c[1]); !ok {
				return nil, stats, fmt.Errorf("lake %d: corner sample %d,%d holds no data", i, c[0], c[1])
			}
		}
	}

	b := &builder{
		g:    g,
		m:    mesh.New(),
		ids:  make([]mesh.VertexID, g.Width*g.Height),
		seen: make([]bool, g.Width*g.Height),
	}

	for row := 0; row+1 < g.Height; row++ {
		for col := 0; col+1 < g.Width; col++ {
			stats.Cells++
			if inLake(opts.Lakes, col, row) {
				stats.LakeCells++
				continue
			}
			if !b.cellValid(col, row) {
				stats.SkippedCells++
				continue
			}
			nw, ne, se, sw := [2]int{col, row}, [2]int{col + 1, row}, [2]int{col + 1, row + 1}, [2]int{col, row + 1}
			if err := b.triangle([3][2]int{nw, ne, se}); err != nil {
				return nil, stats, fmt.Errorf("cell %d,%d: %w", col, row, err)
			}
			if err := b.triangle([3][2]int{nw, se, sw}); err != nil {
				return nil, stats, fmt.Errorf("cell %d,%d: %w", col, row, err)
			}
		}
	}

	for i, l := range opts.Lakes {
		nw, ne, se, sw := [2]int{l.Col0, l.Row0}, [2]int{l.Col1, l.Row0}, [2]int{l.Col1, l.Row1}, [2]int{l.Col0, l.Row1}
		if err := b.triangle([3][2]int{nw, ne, se}); err != nil {
			return nil, stats, fmt.Errorf("lake %d: %w", i, err)
		}
		if err := b.triangle([3][2]int{nw, se, sw}); err != nil {
			return nil, stats, fmt.Errorf("lake %d: %w", i, err)
		}
		stats.Lakes++
	}
	return b.m, stats, nil
}

func (b *builder) cellValid(col, row int) bool {
	for _, c := range [][2]int{{col, row}, {col + 1, row}, {col + 1, row + 1}, {col, row + 1}} {
		if _, ok := b.g.At(c[0], c[1]); !ok {
			return false
		}
	}
	return true
}

func inLake(lakes []Lake, col, row int) bool {
	for _, l := range lakes {
		if l.contains(col, row) {
			return true
		}
	}
	return false
}
