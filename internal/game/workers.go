package game

import "math"

// WorkerSlot is one interaction point on a stationary host. A nil Anchor means
// the host's own position is used.
type WorkerSlot struct {
	Anchor   *Vec3
	Occupant *Agent
}

// WorkerSlotManager is the fixed-capacity slot registry of a structure that
// agents reserve to build on or collect from it. Occupant fields and the
// worker counter are only changed together inside Reserve and Release.
type WorkerSlotManager struct {
	host           Entity
	slots          []WorkerSlot
	currentWorkers int
}

// NewWorkerSlotManager creates a registry on host. Each anchor becomes one
// slot; pass nil entries for unanchored slots. With no anchors at all the
// host has no slot geometry and every reservation resolves to its position.
func NewWorkerSlotManager(host Entity, anchors ...*Vec3) *WorkerSlotManager {
	m := &WorkerSlotManager{host: host, slots: make([]WorkerSlot, len(anchors))}
	for i, a := range anchors {
		if a != nil {
			p := *a
			m.slots[i].Anchor = &p
		}
	}
	return m
}

// Capacity returns the number of declared slots.
func (m *WorkerSlotManager) Capacity() int { return len(m.slots) }

// CurrentWorkers returns the number of occupied slots.
func (m *WorkerSlotManager) CurrentWorkers() int { return m.currentWorkers }

// Slots returns a copy of the slot table.
func (m *WorkerSlotManager) Slots() []WorkerSlot {
	out := make([]WorkerSlot, len(m.slots))
	copy(out, m.slots)
	return out
}

// HasFreeSlot reports whether a Reserve call would succeed for a new agent.
func (m *WorkerSlotManager) HasFreeSlot() bool {
	return len(m.slots) == 0 || m.currentWorkers < len(m.slots)
}

// SlotOf returns the slot index held by a, or -1.
func (m *WorkerSlotManager) SlotOf(a *Agent) int {
	for i := range m.slots {
		if m.slots[i].Occupant == a {
			return i
		}
	}
	return -1
}

// Reserve assigns a free slot to a and returns its position. Slots are scanned
// in declaration order: a free unanchored slot is taken at once, otherwise the
// nearest free anchored slot wins. An agent already holding a slot gets it back.
//
// When every slot is taken, a's movement and build/collect interaction are
// cancelled and the zero position is returned with ok=false.
func (m *WorkerSlotManager) Reserve(a *Agent) (Vec3, bool) {
	if len(m.slots) == 0 {
		return m.host.Position(), true
	}
	if held := m.SlotOf(a); held >= 0 {
		return m.SlotPosition(held), true
	}

	chosen := -1
	bestD := math.MaxFloat64
	for i := range m.slots {
		s := &m.slots[i]
		if s.Occupant != nil {
			continue
		}
		if s.Anchor == nil {
			chosen = i
			break
		}
		if d := s.Anchor.Dist(a.Position()); d < bestD {
			chosen, bestD = i, d
		}
	}

	if chosen < 0 {
		a.CancelOrders()
		return Vec3{}, false
	}
	m.slots[chosen].Occupant = a
	m.currentWorkers++
	a.slotHost = m
	return m.SlotPosition(chosen), true
}

// Release frees every slot held by a.
func (m *WorkerSlotManager) Release(a *Agent) {
	for i := range m.slots {
		if m.slots[i].Occupant == a {
			m.slots[i].Occupant = nil
			m.currentWorkers--
		}
	}
	if a.slotHost == m {
		a.slotHost = nil
	}
}

// ReleaseAll frees every slot, e.g. when the host is destroyed.
func (m *WorkerSlotManager) ReleaseAll() {
	for i := range m.slots {
		if occ := m.slots[i].Occupant; occ != nil {
			m.Release(occ)
		}
	}
}

// SlotPosition returns the anchor of slot id, or the host position when the id
// is out of range or the slot is unanchored.
func (m *WorkerSlotManager) SlotPosition(id int) Vec3 {
	if id < 0 || id >= len(m.slots) || m.slots[id].Anchor == nil {
		return m.host.Position()
	}
	return *m.slots[id].Anchor
}
