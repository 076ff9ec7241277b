package game

import (
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"
)

var (
	// ErrImmobile is returned for agents that cannot move right now.
	ErrImmobile = errors.New("agent cannot move")
	// ErrUnreachable is returned when no path leads to the chosen position.
	ErrUnreachable = errors.New("destination unreachable")
	// ErrNoTarget is returned when an attack order has no valid target or no
	// agent able to act on it.
	ErrNoTarget = errors.New("no valid target")
	// ErrNoWorkerSlot is returned when every worker slot of the host is taken.
	ErrNoWorkerSlot = errors.New("no free worker slot")
	// ErrGroupPartial is returned when some agents of a group order could
	// not be placed.
	ErrGroupPartial = errors.New("some agents could not be moved")
)

// MoveMode is what an agent does when it arrives.
type MoveMode int

const (
	ModeNone MoveMode = iota
	ModeAttack
	ModeBuild
	ModeCollect
	ModeBoard
	ModeTeleport
)

func (m MoveMode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeAttack:
		return "attack"
	case ModeBuild:
		return "build"
	case ModeCollect:
		return "collect"
	case ModeBoard:
		return "board"
	case ModeTeleport:
		return "teleport"
	default:
		return "unknown"
	}
}

// capability returns the agent capability a mode needs, if any.
func (m MoveMode) capability() Capability {
	switch m {
	case ModeBuild:
		return CapBuild
	case ModeCollect:
		return CapCollect
	case ModeBoard:
		return CapBoard
	case ModeTeleport:
		return CapTeleport
	}
	return 0
}

// AttackOrder controls who joins an attack order and whether it replaces an
// existing target.
type AttackOrder int

const (
	OrderChange   AttackOrder = iota // replace existing targets
	OrderAssigned                    // only attack-on-assign agents, keep existing targets
	OrderFull                        // only attack-on-assign agents, replace existing targets
	OrderNone                        // automatic order, no feedback
)

func (o AttackOrder) overrides() bool    { return o == OrderChange || o == OrderFull }
func (o AttackOrder) assignedOnly() bool { return o == OrderAssigned || o == OrderFull }

// Messenger receives player-facing messages for the local faction.
type Messenger interface {
	Post(tick int, label string, faction int, msg string)
}

// Coordinator decides where agents go and what they do on arrival. It is the
// single entry point for movement and attack orders.
type Coordinator struct {
	slots   *SlotAllocator
	terrain Terrain
	ranges  RangeTable
	msg     Messenger
	notify  Notifier
	log     zerolog.Logger

	// LocalFaction is the player-controlled faction; only its failures are
	// reported through the Messenger.
	LocalFaction int
	clock        func() int
}

// NewCoordinator wires a coordinator to its collaborators. msg and notify
// may be nil.
func NewCoordinator(slots *SlotAllocator, terrain Terrain, ranges RangeTable, msg Messenger, notify Notifier, log zerolog.Logger) *Coordinator {
	if notify == nil {
		notify = NopNotifier{}
	}
	return &Coordinator{
		slots:   slots,
		terrain: terrain,
		ranges:  ranges,
		msg:     msg,
		notify:  notify,
		log:     log,
		clock:   func() int { return 0 },
	}
}

// SetClock installs the tick source used to stamp messages.
func (c *Coordinator) SetClock(fn func() int) { c.clock = fn }

func (c *Coordinator) report(e Entity, msg string) {
	c.log.Debug().Str("entity", e.Label()).Int("faction", e.Faction()).Msg(msg)
	if c.msg != nil && e.Faction() == c.LocalFaction {
		c.msg.Post(c.clock(), e.Label(), e.Faction(), msg)
	}
}

// Move sends one agent toward dest. With a zero ring radius and no target the
// agent goes straight to dest when that spot is clear. Build and collect
// orders on a structure reserve one of its worker slots. Everything else
// is placed on the nearest free ring slot around dest.
func (c *Coordinator) Move(a *Agent, dest Vec3, ringRadius float64, target Entity, mode MoveMode) error {
	if !a.CanMove() || !a.Ready() {
		return ErrImmobile
	}
	if mode == ModeAttack && target != nil {
		_, err := c.LaunchAttack([]*Agent{a}, target, OrderChange)
		return err
	}
	c.prepare(a, mode)

	if ringRadius == 0 && target == nil {
		if ok, p := c.terrain.IsPositionReachable(dest, a.radius, a.areaMask); ok && !c.slots.occupied(p, a.radius, a) {
			return c.send(a, p, nil, ModeNone)
		}
	}
	if s, ok := target.(*Structure); ok && (mode == ModeBuild || mode == ModeCollect) {
		return c.reserveWorker(a, s, mode)
	}

	slots, _, err := c.slots.GrowRing(dest, ringRadius, a.radius, a)
	if err != nil {
		a.CancelOrders()
		c.report(a, "no room at destination")
		return fmt.Errorf("move %s: %w", a.label, err)
	}
	return c.send(a, slots[NearestSlot(slots, a.pos)], target, mode)
}

// prepare drops whatever the agent was doing before a new order. The agent
// stops so its old destination no longer holds a slot.
func (c *Coordinator) prepare(a *Agent, mode MoveMode) {
	a.Stop()
	if a.slotHost != nil {
		a.slotHost.Release(a)
	}
	a.interaction = Interaction{}
	if mode != ModeAttack && a.attack != nil && a.attack.target != nil {
		a.attack.ClearTarget()
	}
}

func (c *Coordinator) reserveWorker(a *Agent, s *Structure, mode MoveMode) error {
	pos, ok := s.workers.Reserve(a)
	if !ok {
		c.report(a, fmt.Sprintf("%s has no free worker slot", s.label))
		return fmt.Errorf("%s %s: %w", mode, s.label, ErrNoWorkerSlot)
	}
	if ok, p := c.terrain.IsPositionReachable(pos, a.radius, a.areaMask); ok {
		pos = p
	}
	if err := c.send(a, pos, s, mode); err != nil {
		s.workers.Release(a)
		return err
	}
	return nil
}

// send paths a to p and records the arrival interaction.
func (c *Coordinator) send(a *Agent, p Vec3, target Entity, mode MoveMode) error {
	if !a.moveTo(c.terrain, p) {
		a.CancelOrders()
		c.report(a, "destination unreachable")
		return fmt.Errorf("move %s: %w", a.label, ErrUnreachable)
	}
	a.interaction = Interaction{Target: target, Mode: mode}
	return nil
}

type moveGroup struct {
	key     string
	radius  float64
	members []*Agent
}

// partition splits agents into groups keyed by class code, or by range class
// for attacks, keeping only agents that pass keep. Groups come back in
// ascending footprint order.
func partition(agents []*Agent, byRangeClass bool, keep func(*Agent) bool) []*moveGroup {
	var groups []*moveGroup
	index := map[string]*moveGroup{}
	for _, a := range agents {
		if !keep(a) {
			continue
		}
		key := a.code
		if byRangeClass {
			key = a.attack.Profile().RangeClass
		}
		g, ok := index[key]
		if !ok {
			g = &moveGroup{key: key}
			index[key] = g
			groups = append(groups, g)
		}
		g.members = append(g.members, a)
		g.radius = max(g.radius, a.radius)
	}
	slices.SortStableFunc(groups, func(x, y *moveGroup) int {
		switch {
		case x.radius < y.radius:
			return -1
		case x.radius > y.radius:
			return 1
		}
		return 0
	})
	return groups
}

// sortByDistance orders agents by ascending distance to dest using a
// selection sort; groups are small.
func sortByDistance(agents []*Agent, dest Vec3) {
	for i := 0; i < len(agents)-1; i++ {
		best := i
		bestD := agents[i].pos.Dist(dest)
		for j := i + 1; j < len(agents); j++ {
			if d := agents[j].pos.Dist(dest); d < bestD {
				best, bestD = j, d
			}
		}
		agents[i], agents[best] = agents[best], agents[i]
	}
}

// MoveGroup sends several agents toward dest, each onto its own slot. Agents
// lacking the capability mode needs are ignored. It returns how many agents
// were given an order; if some could not be placed the local faction gets a
// message and ErrGroupPartial is returned.
func (c *Coordinator) MoveGroup(agents []*Agent, dest Vec3, ringRadius float64, target Entity, mode MoveMode) (int, error) {
	if mode == ModeAttack && target != nil {
		return c.LaunchAttack(agents, target, OrderChange)
	}
	need := mode.capability()
	groups := partition(agents, false, func(a *Agent) bool {
		return a.CanMove() && a.Ready() && a.Can(need)
	})

	for _, g := range groups {
		for _, a := range g.members {
			c.prepare(a, mode)
		}
	}

	moved, failed := 0, 0
	for _, g := range groups {
		sortByDistance(g.members, dest)

		if s, ok := target.(*Structure); ok && (mode == ModeBuild || mode == ModeCollect) {
			for _, a := range g.members {
				if err := c.reserveWorker(a, s, mode); err != nil {
					failed++
					continue
				}
				moved++
			}
			continue
		}

		radius := ringRadius
		if target != nil && radius == 0 {
			radius = target.Radius() + g.radius
		}
		n, f := c.assignRing(g.members, dest, radius, g.radius, func(a *Agent, p Vec3, _ float64) error {
			return c.send(a, p, target, mode)
		})
		moved += n
		failed += f
	}
	return moved, c.groupResult(agents, failed)
}

func (c *Coordinator) groupResult(agents []*Agent, failed int) error {
	if failed == 0 {
		return nil
	}
	for _, a := range agents {
		if a.faction == c.LocalFaction {
			c.report(a, fmt.Sprintf("%d units could not be moved", failed))
			break
		}
	}
	return ErrGroupPartial
}

// assignRing places distance-sorted members on a shared ring around origin.
// Members consume slots from one computed list; when it runs dry the ring is
// regrown one full footprint further out so new slots cannot overlap the
// ones already handed out.
func (c *Coordinator) assignRing(members []*Agent, origin Vec3, radius, step float64, place func(a *Agent, p Vec3, r float64) error) (moved, failed int) {
	if len(members) == 0 {
		return 0, 0
	}
	rep := members[0]
	slots, r, err := c.slots.GrowRing(origin, radius, step, rep)
	for _, a := range members {
		if err == nil && len(slots) == 0 {
			slots, r, err = c.slots.GrowRing(origin, r+2*rep.radius, step, rep)
		}
		if err != nil {
			a.CancelOrders()
			c.log.Debug().Str("agent", a.label).Err(err).Msg("ring exhausted")
			failed++
			continue
		}
		i := NearestSlot(slots, a.pos)
		p := slots[i]
		slots = slices.Delete(slots, i, i+1)
		if err := place(a, p, r); err != nil {
			failed++
			continue
		}
		moved++
	}
	return moved, failed
}

// LaunchAttack orders agents to attack target. Order decides whether existing
// targets are replaced and whether only attack-on-assign agents join.
// Attackers are grouped by range class; each group fans out on a ring at its
// stopping distance plus the target's radius, growing by two footprints.
func (c *Coordinator) LaunchAttack(agents []*Agent, target Entity, order AttackOrder) (int, error) {
	if target == nil || !target.IsAlive() {
		return 0, ErrNoTarget
	}
	groups := partition(agents, true, func(a *Agent) bool {
		return c.mayAttack(a, target, order)
	})
	if len(groups) == 0 {
		return 0, ErrNoTarget
	}

	for _, g := range groups {
		for _, a := range g.members {
			c.prepare(a, ModeAttack)
		}
	}

	moved, failed := 0, 0
	for _, g := range groups {
		rc, _ := c.ranges.Get(g.key)
		radius := rc.StoppingDistance(target.Kind()) + target.Radius()

		var approach []*Agent
		for _, a := range g.members {
			if a.pos.PlanarDist(target.Position()) <= radius+rc.MoveOnAttackOffset+rangeEpsilon {
				a.attack.setTarget(target)
				c.holdPosition(a, target, radius)
				moved++
				continue
			}
			if !a.CanMove() {
				failed++
				continue
			}
			approach = append(approach, a)
		}

		sortByDistance(approach, target.Position())
		n, f := c.assignRing(approach, target.Position(), radius, 2*g.radius, func(a *Agent, p Vec3, r float64) error {
			if err := c.send(a, p, target, ModeAttack); err != nil {
				return err
			}
			a.attack.setTarget(target)
			a.attack.engageRadius = max(r, p.PlanarDist(target.Position()))
			return nil
		})
		moved += n
		failed += f
		for _, a := range approach {
			if a.attack.target != target && a.attack.target != nil && order.overrides() {
				a.attack.ClearTarget()
			}
		}
	}

	if order != OrderNone {
		for _, a := range agents {
			if a.attack != nil && a.attack.target == target {
				c.notify.Notify(CombatEvent{Kind: EventAttackOrdered, Attacker: a, Target: target})
			}
		}
	}
	if moved == 0 {
		for _, a := range agents {
			if a.faction == c.LocalFaction {
				c.report(a, "no unit could attack "+target.Label())
				break
			}
		}
		return 0, ErrNoTarget
	}
	return moved, c.groupResult(agents, failed)
}

func (c *Coordinator) mayAttack(a *Agent, target Entity, order AttackOrder) bool {
	st := a.attack
	if st == nil || !a.Ready() || Entity(a) == target {
		return false
	}
	p := st.Profile()
	if !p.Active || !p.CanTarget(a.faction, target) {
		return false
	}
	if order.assignedOnly() && !p.AttackOnAssign {
		return false
	}
	if !order.overrides() && st.target != nil && st.target.IsAlive() {
		return false
	}
	return true
}

func (c *Coordinator) holdPosition(a *Agent, target Entity, radius float64) {
	a.Stop()
	a.arrived = true
	a.interaction = Interaction{Target: target, Mode: ModeAttack}
	a.attack.engageRadius = radius
}

// Engage locks a single attacker onto target. Mobile agents approach through
// LaunchAttack; structures and rooted agents only lock targets they can
// already reach.
func (c *Coordinator) Engage(a Attacker, target Entity, order AttackOrder) error {
	if agent, ok := a.(*Agent); ok && agent.CanMove() {
		_, err := c.LaunchAttack([]*Agent{agent}, target, order)
		return err
	}
	st := a.Attack()
	if st == nil || target == nil || !a.Ready() || !st.Profile().CanTarget(a.Faction(), target) {
		return ErrNoTarget
	}
	if !order.overrides() && st.target != nil && st.target.IsAlive() {
		return ErrNoTarget
	}
	rc, _ := c.ranges.Get(st.Profile().RangeClass)
	if a.Position().PlanarDist(target.Position()) > rc.StoppingDistance(target.Kind())+target.Radius()+rangeEpsilon {
		return ErrNoTarget
	}
	st.setTarget(target)
	if agent, ok := a.(*Agent); ok {
		agent.interaction = Interaction{Target: target, Mode: ModeAttack}
	}
	if order != OrderNone {
		c.notify.Notify(CombatEvent{Kind: EventAttackOrdered, Attacker: a, Target: target})
	}
	return nil
}

// approach re-plans a mobile attacker's route to its current target.
func (c *Coordinator) approach(a *Agent, target Entity, rc RangeClass) error {
	radius := rc.StoppingDistance(target.Kind()) + target.Radius()
	if a.pos.PlanarDist(target.Position()) <= radius+rc.MoveOnAttackOffset+rangeEpsilon {
		c.holdPosition(a, target, radius)
		return nil
	}
	slots, r, err := c.slots.GrowRing(target.Position(), radius, 2*a.radius, a)
	if err != nil {
		c.report(a, "no room around target")
		return fmt.Errorf("approach %s: %w", target.Label(), err)
	}
	p := slots[NearestSlot(slots, a.pos)]
	if err := c.send(a, p, target, ModeAttack); err != nil {
		return err
	}
	// Terrain snapping can push a slot slightly past the ring.
	a.attack.engageRadius = max(r, p.PlanarDist(target.Position()))
	return nil
}

// onArrival runs the interaction recorded for a when it reaches its slot.
func (c *Coordinator) onArrival(a *Agent) {
	it := a.interaction
	s, _ := it.Target.(*Structure)
	switch it.Mode {
	case ModeBuild, ModeCollect:
		if s == nil || !s.IsAlive() {
			a.CancelOrders()
			return
		}
		a.interaction.Engaged = true
	case ModeBoard:
		a.interaction = Interaction{}
		if s == nil || !s.IsAlive() || !s.board(a) {
			c.report(a, "cannot board")
		}
	case ModeTeleport:
		a.interaction = Interaction{}
		if s == nil || !s.IsAlive() {
			return
		}
		if exit, ok := s.Exit(); ok {
			a.warp(exit)
		}
	}
}
