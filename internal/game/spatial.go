package game

import "math"

// SpatialIndex is the range-query collaborator: entities whose footprint
// touches the disc of the given radius around center.
type SpatialIndex interface {
	Query(center Vec3, radius float64, mask LayerMask) []Entity
}

// SpatialGrid buckets entities into uniform ground-plane cells so range
// queries only visit nearby cells. It is rebuilt from scratch once positions
// have settled each tick; it holds no references between rebuilds.
type SpatialGrid struct {
	cols, rows int
	cell       float64
	cells      [][]Entity
	maxRadius  float64
}

// NewSpatialGrid covers width×depth world units with cells of the given size.
func NewSpatialGrid(width, depth, cellSize float64) *SpatialGrid {
	if cellSize <= 0 {
		cellSize = 4
	}
	cols := max(1, int(math.Ceil(width/cellSize)))
	rows := max(1, int(math.Ceil(depth/cellSize)))
	return &SpatialGrid{
		cols:  cols,
		rows:  rows,
		cell:  cellSize,
		cells: make([][]Entity, cols*rows),
	}
}

func (g *SpatialGrid) cellOf(p Vec3) (int, int) {
	cx := int(math.Floor(p.X / g.cell))
	cy := int(math.Floor(p.Z / g.cell))
	return min(max(cx, 0), g.cols-1), min(max(cy, 0), g.rows-1)
}

// Clear empties every cell while keeping the backing slices.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
	g.maxRadius = 0
}

// Add inserts an entity at its current position. Positions outside the grid
// are clamped into the border cells.
func (g *SpatialGrid) Add(e Entity) {
	cx, cy := g.cellOf(e.Position())
	idx := cy*g.cols + cx
	g.cells[idx] = append(g.cells[idx], e)
	if r := e.Radius(); r > g.maxRadius {
		g.maxRadius = r
	}
}

// Query returns live entities on the masked layers whose footprint touches
// the query disc, in cell-scan then insertion order.
func (g *SpatialGrid) Query(center Vec3, radius float64, mask LayerMask) []Entity {
	reach := radius + g.maxRadius
	minX, minY := g.cellOf(Vec3{X: center.X - reach, Z: center.Z - reach})
	maxX, maxY := g.cellOf(Vec3{X: center.X + reach, Z: center.Z + reach})

	var out []Entity
	for cy := minY; cy <= maxY; cy++ {
		for cx := minX; cx <= maxX; cx++ {
			for _, e := range g.cells[cy*g.cols+cx] {
				if e.Kind().Layer()&mask == 0 || !e.IsAlive() {
					continue
				}
				if e.Position().PlanarDist(center) <= radius+e.Radius() {
					out = append(out, e)
				}
			}
		}
	}
	return out
}
