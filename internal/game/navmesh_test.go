package game

import (
	"math"
	"testing"
)

func TestNavGrid_UnblockedByDefault(t *testing.T) {
	ng := NewNavGrid(40, 30, 1, nil)
	if ng.IsBlocked(0, 0, AreaGround) {
		t.Fatal("empty grid should have no blocked cells")
	}
	if ng.IsBlocked(ng.cols-1, ng.rows-1, AreaGround) {
		t.Fatal("corner cell should not be blocked")
	}
}

func TestNavGrid_ObstacleBlocksCells(t *testing.T) {
	ng := NewNavGrid(40, 30, 1, []Rect{{X: 4, Z: 4, W: 4, D: 4}})
	if !ng.IsBlocked(4, 4, AreaGround) || !ng.IsBlocked(7, 7, AreaGround) {
		t.Fatal("cells inside the obstacle should be blocked")
	}
	if ng.IsBlocked(8, 8, AreaGround) {
		t.Fatal("cell just past the obstacle should be free")
	}
}

func TestNavGrid_OOB_IsBlocked(t *testing.T) {
	ng := NewNavGrid(40, 30, 1, nil)
	for _, c := range [][2]int{{-1, 0}, {0, -1}, {ng.cols, 0}, {0, ng.rows}} {
		if !ng.IsBlocked(c[0], c[1], AreaAny) {
			t.Fatalf("out-of-bounds cell %v should be blocked", c)
		}
	}
}

func TestNavGrid_AreaMask(t *testing.T) {
	ng := NewNavGrid(20, 20, 1, nil)
	ng.SetArea(Rect{X: 5, Z: 0, W: 2, D: 20}, AreaDeep)
	if !ng.IsBlocked(5, 3, AreaGround) {
		t.Fatal("deep water should block ground-only agents")
	}
	if ng.IsBlocked(5, 3, AreaGround|AreaDeep) {
		t.Fatal("deep water should be open to amphibious agents")
	}
	if path := ng.FindPath(V3(2.5, 10.5), V3(10.5, 10.5), AreaGround); path != nil {
		t.Fatal("a ground agent should not cross a full-height river")
	}
	if path := ng.FindPath(V3(2.5, 10.5), V3(10.5, 10.5), AreaGround|AreaDeep); path == nil {
		t.Fatal("an amphibious agent should find a path across")
	}
}

func TestWorldToCell(t *testing.T) {
	ng := NewNavGrid(40, 40, 2, nil)
	cx, cy := ng.WorldToCell(V3(5, 9))
	if cx != 2 || cy != 4 {
		t.Fatalf("expected (2,4) got (%d,%d)", cx, cy)
	}
	c := ng.CellToWorld(2, 4)
	if c.X != 5 || c.Z != 9 {
		t.Fatalf("expected cell centre (5,9), got (%.1f,%.1f)", c.X, c.Z)
	}
}

func TestFindPath_EndsExactlyAtGoal(t *testing.T) {
	ng := NewNavGrid(40, 40, 1, nil)
	goal := V3(30.3, 12.7)
	path := ng.FindPath(V3(2.5, 2.5), goal, AreaGround)
	if len(path) == 0 {
		t.Fatal("expected a path")
	}
	if path[len(path)-1] != goal {
		t.Fatalf("path should end at the goal, ended at %+v", path[len(path)-1])
	}
}

func TestFindPath_SameCell(t *testing.T) {
	ng := NewNavGrid(10, 10, 1, nil)
	path := ng.FindPath(V3(3.2, 3.2), V3(3.8, 3.6), AreaGround)
	if len(path) != 1 || path[0] != V3(3.8, 3.6) {
		t.Fatalf("same-cell path should be the goal alone, got %v", path)
	}
}

func TestFindPath_RoutesAroundWall(t *testing.T) {
	// Wall across the middle with a gap at the top.
	ng := NewNavGrid(20, 20, 1, []Rect{{X: 10, Z: 2, W: 1, D: 18}})
	path := ng.FindPath(V3(5.5, 10.5), V3(15.5, 10.5), AreaGround)
	if path == nil {
		t.Fatal("expected a path through the gap")
	}
	for _, p := range path {
		cx, cy := ng.WorldToCell(p)
		if ng.IsBlocked(cx, cy, AreaGround) {
			t.Fatalf("waypoint (%.1f,%.1f) is inside the wall", p.X, p.Z)
		}
	}
}

func TestFindPath_BlockedGoal(t *testing.T) {
	ng := NewNavGrid(20, 20, 1, []Rect{{X: 10, Z: 10, W: 2, D: 2}})
	if path := ng.FindPath(V3(2, 2), V3(10.5, 10.5), AreaGround); path != nil {
		t.Fatal("a blocked goal should have no path")
	}
}

func TestIsPositionReachable_SnapsOffObstacle(t *testing.T) {
	ng := NewNavGrid(20, 20, 1, []Rect{{X: 10, Z: 10, W: 1, D: 1}})
	ok, p := ng.IsPositionReachable(V3(10.5, 10.5), 0.3, AreaGround)
	if !ok {
		t.Fatal("a neighbour cell should be usable")
	}
	if math.Hypot(p.X-10.5, p.Z-10.5) > 1.5 {
		t.Fatalf("snapped point (%.2f,%.2f) too far from request", p.X, p.Z)
	}
	cx, cy := ng.WorldToCell(p)
	if ng.IsBlocked(cx, cy, AreaGround) {
		t.Fatal("snapped point is still blocked")
	}
}

func TestSampleHeight_UsesHeightFunc(t *testing.T) {
	ng := NewNavGrid(10, 10, 1, nil)
	ng.SetHeightFunc(func(x, z float64) float64 { return x * 0.5 })
	ok, p := ng.IsPositionReachable(V3(4, 4), 0.3, AreaGround)
	if !ok || p.Y != 2 {
		t.Fatalf("expected height 2 at x=4, got ok=%v y=%.2f", ok, p.Y)
	}
}
