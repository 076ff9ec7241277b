package game

import (
	"errors"
	"math"
)

// ErrNoRingSlot is returned when ring growth reaches its cap without
// producing a free position.
var ErrNoRingSlot = errors.New("no free ring slot")

// DefaultMaxRingGrowth bounds the radius-growth retries of a ring request.
const DefaultMaxRingGrowth = 12

// SlotAllocator computes rings of approach positions around a point.
// Rings are never cached: every call samples terrain and occupancy afresh.
type SlotAllocator struct {
	terrain   Terrain
	space     SpatialIndex
	claims    func() []*Agent
	MaxGrowth int
}

// NewSlotAllocator wires the allocator to its terrain and range-query collaborators.
func NewSlotAllocator(terrain Terrain, space SpatialIndex) *SlotAllocator {
	return &SlotAllocator{terrain: terrain, space: space, MaxGrowth: DefaultMaxRingGrowth}
}

// SetClaimants installs the source of agents whose destinations count as
// occupied while they walk there.
func (sa *SlotAllocator) SetClaimants(fn func() []*Agent) { sa.claims = fn }

// ringCount returns how many slots of footprint rho fit on a circle of radius r.
// It starts from floor(2πr / 2ρ) and drops slots while the chord between
// neighbours would be shorter than 2ρ, so neighbouring slots never overlap.
func ringCount(r, rho float64) int {
	if r <= 0 || rho <= 0 {
		return 0
	}
	count := int(math.Floor(2 * math.Pi * r / (2 * rho)))
	for count > 1 && 2*r*math.Sin(math.Pi/float64(count)) < 2*rho-1e-9 {
		count--
	}
	return count
}

// RingPoint returns the ground-plane point at angle degrees on a circle of radius r.
func RingPoint(origin Vec3, r, deg float64) Vec3 {
	rad := deg * math.Pi / 180
	return Vec3{
		X: origin.X + math.Cos(rad)*r,
		Y: origin.Y,
		Z: origin.Z + math.Sin(rad)*r,
	}
}

// ComputeRing returns the valid, unoccupied positions on a circle of radius r
// around origin, spaced for the requester's footprint. The result may be empty.
func (sa *SlotAllocator) ComputeRing(origin Vec3, r float64, requester *Agent) []Vec3 {
	rho := requester.Radius()
	count := ringCount(r, rho)
	if count == 0 {
		return nil
	}
	step := 360.0 / float64(count)
	slots := make([]Vec3, 0, count)
	for i := 0; i < count; i++ {
		p := RingPoint(origin, r, float64(i)*step)
		ok, resolved := sa.terrain.IsPositionReachable(p, rho, requester.AreaMask())
		if !ok {
			continue
		}
		if sa.occupied(resolved, rho, requester) {
			continue
		}
		// Terrain snapping may pull a point toward a neighbour.
		if tooClose(slots, resolved, 2*rho) {
			continue
		}
		slots = append(slots, resolved)
	}
	return slots
}

// occupied reports whether an agent stands at p or is on its way there.
func (sa *SlotAllocator) occupied(p Vec3, rho float64, requester *Agent) bool {
	for _, e := range sa.space.Query(p, rho, LayerAgents) {
		if e.ID() != requester.ID() {
			return true
		}
	}
	if sa.claims == nil {
		return false
	}
	for _, b := range sa.claims() {
		if b == requester || !b.moving || !b.Ready() {
			continue
		}
		if b.dest.PlanarDist(p) < rho+b.radius-1e-9 {
			return true
		}
	}
	return false
}

func tooClose(slots []Vec3, p Vec3, minGap float64) bool {
	for _, s := range slots {
		if s.PlanarDist(p) < minGap-1e-9 {
			return true
		}
	}
	return false
}

// GrowRing retries ComputeRing, growing the radius by step after every empty
// ring, until a ring has at least one slot or MaxGrowth retries have been spent.
// It returns the slots and the radius that produced them.
func (sa *SlotAllocator) GrowRing(origin Vec3, r, step float64, requester *Agent) ([]Vec3, float64, error) {
	if step <= 0 {
		step = requester.Radius()
	}
	for attempt := 0; attempt <= sa.MaxGrowth; attempt++ {
		if slots := sa.ComputeRing(origin, r, requester); len(slots) > 0 {
			return slots, r, nil
		}
		r += step
	}
	return nil, r, ErrNoRingSlot
}

// NearestSlot returns the index of the slot closest to from, first seen wins
// ties. It returns -1 for an empty list.
func NearestSlot(slots []Vec3, from Vec3) int {
	best := -1
	bestD := math.MaxFloat64
	for i, s := range slots {
		if d := s.Dist(from); d < bestD {
			best, bestD = i, d
		}
	}
	return best
}
