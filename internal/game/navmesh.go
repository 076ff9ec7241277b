package game

import (
	"container/heap"
	"math"
)

// AreaMask marks which terrain area types a cell belongs to or an agent may enter.
type AreaMask uint8

const (
	AreaGround AreaMask = 1 << iota
	AreaShallows
	AreaDeep

	AreaAny AreaMask = 0xFF
)

// Terrain is the pathfinding/terrain collaborator consumed by slot allocation
// and movement.
type Terrain interface {
	SampleHeight(p Vec3) float64
	// IsPositionReachable reports whether an agent of the given radius can stand
	// at p, and the terrain-resolved point it would stand on.
	IsPositionReachable(p Vec3, radius float64, mask AreaMask) (bool, Vec3)
	// FindPath returns waypoints from one point to another, nil if unreachable.
	FindPath(from, to Vec3, mask AreaMask) []Vec3
}

// Rect is an axis-aligned ground-plane obstacle footprint.
type Rect struct {
	X, Z float64
	W, D float64
}

// Contains reports whether the ground-plane point lies within the rect.
func (r Rect) Contains(x, z float64) bool {
	return x >= r.X && x < r.X+r.W && z >= r.Z && z < r.Z+r.D
}

// NavGrid is a walkability grid with per-cell area bits. A zero area value
// means the cell is blocked for every agent.
type NavGrid struct {
	cols   int
	rows   int
	cell   float64
	area   []AreaMask
	height func(x, z float64) float64
}

// NewNavGrid builds a ground grid of width×depth world units. Each cell that
// overlaps an obstacle is blocked.
func NewNavGrid(width, depth, cellSize float64, obstacles []Rect) *NavGrid {
	if cellSize <= 0 {
		cellSize = 1
	}
	cols := int(math.Ceil(width / cellSize))
	rows := int(math.Ceil(depth / cellSize))
	ng := &NavGrid{
		cols: cols,
		rows: rows,
		cell: cellSize,
		area: make([]AreaMask, cols*rows),
	}
	for i := range ng.area {
		ng.area[i] = AreaGround
	}
	for _, o := range obstacles {
		ng.Block(o)
	}
	return ng
}

// Block marks every cell overlapping r as unwalkable.
func (ng *NavGrid) Block(r Rect) {
	ng.SetArea(r, 0)
}

// SetArea assigns an area type to every cell overlapping r.
func (ng *NavGrid) SetArea(r Rect, a AreaMask) {
	cMinX := max(0, int(math.Floor(r.X/ng.cell)))
	cMinY := max(0, int(math.Floor(r.Z/ng.cell)))
	cMaxX := min(ng.cols-1, int(math.Ceil((r.X+r.W)/ng.cell))-1)
	cMaxY := min(ng.rows-1, int(math.Ceil((r.Z+r.D)/ng.cell))-1)
	for cy := cMinY; cy <= cMaxY; cy++ {
		for cx := cMinX; cx <= cMaxX; cx++ {
			ng.area[cy*ng.cols+cx] = a
		}
	}
}

// SetHeightFunc installs a height sampler. The default terrain is flat at 0.
func (ng *NavGrid) SetHeightFunc(fn func(x, z float64) float64) {
	ng.height = fn
}

// Size returns the world extent covered by the grid.
func (ng *NavGrid) Size() (width, depth float64) {
	return float64(ng.cols) * ng.cell, float64(ng.rows) * ng.cell
}

// CellSize returns the edge length of one cell in world units.
func (ng *NavGrid) CellSize() float64 { return ng.cell }

// IsBlocked returns true if the cell at (cx, cy) is not walkable for mask.
func (ng *NavGrid) IsBlocked(cx, cy int, mask AreaMask) bool {
	if cx < 0 || cy < 0 || cx >= ng.cols || cy >= ng.rows {
		return true
	}
	return ng.area[cy*ng.cols+cx]&mask == 0
}

// WorldToCell converts a world position to grid cell coordinates.
func (ng *NavGrid) WorldToCell(p Vec3) (int, int) {
	return int(math.Floor(p.X / ng.cell)), int(math.Floor(p.Z / ng.cell))
}

// CellToWorld converts grid cell coordinates to the world cell centre.
func (ng *NavGrid) CellToWorld(cx, cy int) Vec3 {
	p := Vec3{X: (float64(cx) + 0.5) * ng.cell, Z: (float64(cy) + 0.5) * ng.cell}
	p.Y = ng.SampleHeight(p)
	return p
}

// SampleHeight returns the terrain height under p.
func (ng *NavGrid) SampleHeight(p Vec3) float64 {
	if ng.height == nil {
		return 0
	}
	return ng.height(p.X, p.Z)
}

// clear reports whether a disc of radius r centred on p touches only walkable cells.
func (ng *NavGrid) clear(p Vec3, r float64, mask AreaMask) bool {
	samples := [5][2]float64{{0, 0}, {r, 0}, {-r, 0}, {0, r}, {0, -r}}
	for _, o := range samples {
		cx, cy := ng.WorldToCell(Vec3{X: p.X + o[0], Z: p.Z + o[1]})
		if ng.IsBlocked(cx, cy, mask) {
			return false
		}
	}
	return true
}

// IsPositionReachable resolves p onto walkable terrain. If p itself is not
// clear, the nearest clear neighbouring cell centre is used instead.
func (ng *NavGrid) IsPositionReachable(p Vec3, radius float64, mask AreaMask) (bool, Vec3) {
	if ng.clear(p, radius, mask) {
		p.Y = ng.SampleHeight(p)
		return true, p
	}
	cx, cy := ng.WorldToCell(p)
	best := Vec3{}
	bestD := math.MaxFloat64
	found := false
	for _, d := range dirs {
		c := ng.CellToWorld(cx+d[0], cy+d[1])
		if !ng.clear(c, radius, mask) {
			continue
		}
		if dd := c.PlanarDist(p); dd < bestD {
			best, bestD, found = c, dd, true
		}
	}
	return found, best
}

// --- A* pathfinding ---

type pathNode struct {
	cx, cy int
	g, h   float64
	parent *pathNode
	index  int // heap index
}

type openList []*pathNode

func (ol openList) Len() int           { return len(ol) }
func (ol openList) Less(i, j int) bool { return (ol[i].g + ol[i].h) < (ol[j].g + ol[j].h) }
func (ol openList) Swap(i, j int)      { ol[i], ol[j] = ol[j], ol[i]; ol[i].index = i; ol[j].index = j }
func (ol *openList) Push(x interface{}) {
	n := x.(*pathNode)
	n.index = len(*ol)
	*ol = append(*ol, n)
}
func (ol *openList) Pop() interface{} {
	old := *ol
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*ol = old[:len(old)-1]
	return n
}

var dirs = [8][2]int{
	{1, 0}, {-1, 0}, {0, 1}, {0, -1},
	{1, 1}, {1, -1}, {-1, 1}, {-1, -1},
}

// FindPath returns world waypoints from one point to another, ending exactly at
// the goal. The start cell may be blocked (an agent brushing a wall); the goal
// cell may not. Returns nil if no path exists.
func (ng *NavGrid) FindPath(from, to Vec3, mask AreaMask) []Vec3 {
	scx, scy := ng.WorldToCell(from)
	gcx, gcy := ng.WorldToCell(to)

	if ng.IsBlocked(gcx, gcy, mask) {
		return nil
	}
	if scx == gcx && scy == gcy {
		return []Vec3{to}
	}

	key := func(cx, cy int) int { return cy*ng.cols + cx }
	heuristic := func(ax, ay, bx, by int) float64 {
		dx := math.Abs(float64(ax - bx))
		dy := math.Abs(float64(ay - by))
		return dx + dy + (math.Sqrt2-2)*math.Min(dx, dy)
	}

	start := &pathNode{cx: scx, cy: scy, g: 0, h: heuristic(scx, scy, gcx, gcy)}
	ol := &openList{start}
	heap.Init(ol)

	closed := make(map[int]bool)
	best := make(map[int]*pathNode)
	best[key(scx, scy)] = start

	for ol.Len() > 0 {
		cur := heap.Pop(ol).(*pathNode)
		if cur.cx == gcx && cur.cy == gcy {
			path := ng.buildPath(cur)
			path[len(path)-1] = to
			return path
		}
		k := key(cur.cx, cur.cy)
		if closed[k] {
			continue
		}
		closed[k] = true

		for _, d := range dirs {
			nx, ny := cur.cx+d[0], cur.cy+d[1]
			if ng.IsBlocked(nx, ny, mask) {
				continue
			}
			// Prevent diagonal corner-cutting through blocked cells.
			if d[0] != 0 && d[1] != 0 {
				if ng.IsBlocked(cur.cx+d[0], cur.cy, mask) || ng.IsBlocked(cur.cx, cur.cy+d[1], mask) {
					continue
				}
			}
			nk := key(nx, ny)
			if closed[nk] {
				continue
			}
			cost := 1.0
			if d[0] != 0 && d[1] != 0 {
				cost = math.Sqrt2
			}
			g := cur.g + cost
			if prev, ok := best[nk]; ok && g >= prev.g {
				continue
			}
			node := &pathNode{cx: nx, cy: ny, g: g, h: heuristic(nx, ny, gcx, gcy), parent: cur}
			best[nk] = node
			heap.Push(ol, node)
		}
	}
	return nil
}

// buildPath walks parents back to the start; the start cell itself is dropped
// since the agent is already standing in it.
func (ng *NavGrid) buildPath(end *pathNode) []Vec3 {
	var cells [][2]int
	for n := end; n != nil && n.parent != nil; n = n.parent {
		cells = append(cells, [2]int{n.cx, n.cy})
	}
	path := make([]Vec3, len(cells))
	for i, c := range cells {
		path[len(cells)-1-i] = ng.CellToWorld(c[0], c[1])
	}
	return path
}
