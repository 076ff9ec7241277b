package game

import (
	"fmt"

	"github.com/rs/zerolog"
)

// WorldConfig sizes a world and injects its collaborators.
type WorldConfig struct {
	Width, Depth float64
	CellSize     float64
	Obstacles    []Rect
	Ranges       RangeTable
	LocalFaction int
	// MaxRingGrowth caps ring radius retries; zero uses DefaultMaxRingGrowth.
	MaxRingGrowth int
	Verbose       bool
	Log           zerolog.Logger
	// Notify receives combat events after the world has recorded them.
	Notify Notifier
}

// World owns every entity and runs the fixed per-tick order: movement and
// arrivals, spatial reindex, combat, projectiles, damage-over-time, deaths.
type World struct {
	Nav         *NavGrid
	Space       *SpatialGrid
	Slots       *SlotAllocator
	Coord       *Coordinator
	Combat      *CombatManager
	Damage      *DamageResolver
	Projectiles *ProjectileSystem
	Messages    *MessageLog
	SimLog      *SimLog

	agents     []*Agent
	structures []*Structure
	dead       map[EntityID]bool
	nextID     EntityID
	tick       int
	log        zerolog.Logger
	notify     Notifier
}

// NewWorld builds a world from cfg.
func NewWorld(cfg WorldConfig) *World {
	if cfg.Width <= 0 {
		cfg.Width = 64
	}
	if cfg.Depth <= 0 {
		cfg.Depth = 64
	}
	if cfg.CellSize <= 0 {
		cfg.CellSize = 1
	}
	if cfg.Ranges == nil {
		cfg.Ranges = RangeTable{}
	}
	if cfg.Notify == nil {
		cfg.Notify = NopNotifier{}
	}

	w := &World{
		Nav:      NewNavGrid(cfg.Width, cfg.Depth, cfg.CellSize, cfg.Obstacles),
		Space:    NewSpatialGrid(cfg.Width, cfg.Depth, 4*cfg.CellSize),
		Messages: NewMessageLog(),
		SimLog:   NewSimLog(cfg.Verbose),
		dead:     make(map[EntityID]bool),
		log:      cfg.Log,
		notify:   cfg.Notify,
	}
	w.Slots = NewSlotAllocator(w.Nav, w.Space)
	w.Slots.SetClaimants(w.Agents)
	if cfg.MaxRingGrowth > 0 {
		w.Slots.MaxGrowth = cfg.MaxRingGrowth
	}
	w.Damage = NewDamageResolver(w.Space)
	w.Projectiles = NewProjectileSystem(w.Space, w.Damage)
	w.Projectiles.OnHit = w.recordProjectileHit
	w.Coord = NewCoordinator(w.Slots, w.Nav, cfg.Ranges, w.Messages, w, cfg.Log)
	w.Coord.LocalFaction = cfg.LocalFaction
	w.Coord.SetClock(func() int { return w.tick })
	w.Combat = NewCombatManager(w.Space, w.Coord, w.Damage, w.Projectiles, cfg.Ranges, w)
	return w
}

// CurrentTick returns the number of completed ticks.
func (w *World) CurrentTick() int { return w.tick }

// Agents returns every agent, dead ones included.
func (w *World) Agents() []*Agent { return w.agents }

// Structures returns every structure, destroyed ones included.
func (w *World) Structures() []*Structure { return w.structures }

// AddAgent spawns an agent. Its height is taken from the terrain.
func (w *World) AddAgent(spec AgentSpec) *Agent {
	spec.Pos.Y = w.Nav.SampleHeight(spec.Pos)
	a := NewAgent(w.nextID, spec)
	w.nextID++
	if spec.Label == "" {
		a.label = fmt.Sprintf("%s-%d", spec.Code, a.id)
	}
	w.agents = append(w.agents, a)
	w.Space.Add(a)
	return a
}

// AddStructure spawns a structure and blocks its footprint for pathing.
func (w *World) AddStructure(spec StructureSpec) *Structure {
	spec.Pos.Y = w.Nav.SampleHeight(spec.Pos)
	s := NewStructure(w.nextID, spec)
	w.nextID++
	if spec.Label == "" {
		s.label = fmt.Sprintf("%s-%d", spec.Code, s.id)
	}
	w.structures = append(w.structures, s)
	w.Nav.Block(Rect{
		X: s.pos.X - s.radius*0.7,
		Z: s.pos.Z - s.radius*0.7,
		W: s.radius * 1.4,
		D: s.radius * 1.4,
	})
	w.Space.Add(s)
	return s
}

// Entity looks up an agent or structure by id.
func (w *World) Entity(id EntityID) Entity {
	for _, a := range w.agents {
		if a.id == id {
			return a
		}
	}
	for _, s := range w.structures {
		if s.id == id {
			return s
		}
	}
	return nil
}

// AgentsOf returns the agents of faction f.
func (w *World) AgentsOf(f int) []*Agent {
	var out []*Agent
	for _, a := range w.agents {
		if a.faction == f {
			out = append(out, a)
		}
	}
	return out
}

// Tick advances the world by one step.
func (w *World) Tick() {
	w.tick++

	// 1. MOVE
	for _, a := range w.agents {
		if !a.IsAlive() || a.boardedOn != nil {
			continue
		}
		if a.stepMove() {
			w.SimLog.Add(w.tick, a.label, a.faction, "move", "arrived",
				fmt.Sprintf("(%.1f,%.1f) %s", a.pos.X, a.pos.Z, a.interaction.Mode), 0)
			w.Coord.onArrival(a)
		}
		w.SimLog.AddVerbose(w.tick, a.label, a.faction, "move", "position",
			fmt.Sprintf("(%.2f,%.2f)", a.pos.X, a.pos.Z), 0)
	}

	// 2. INDEX
	w.reindex()

	// 3. COMBAT
	for _, a := range w.agents {
		if a.attack != nil && a.IsAlive() {
			w.Combat.Step(a)
		}
	}
	for _, s := range w.structures {
		if s.attack != nil && s.IsAlive() {
			w.Combat.Step(s)
		}
	}

	// 4. PROJECTILES
	w.Projectiles.Step()

	// 5. DAMAGE OVER TIME
	w.forEachEntity(func(e Entity) {
		if applied, _ := e.Health().tickDoT(); applied > 0 {
			w.SimLog.Add(w.tick, e.Label(), e.Faction(), "dot", "tick",
				fmt.Sprintf("-%.1f hp=%.1f", applied, e.Health().Current()), applied)
		}
	})

	// 6. DEATHS
	w.reap()
}

func (w *World) forEachEntity(fn func(e Entity)) {
	for _, a := range w.agents {
		fn(a)
	}
	for _, s := range w.structures {
		fn(s)
	}
}

func (w *World) reindex() {
	w.Space.Clear()
	w.forEachEntity(func(e Entity) {
		if !e.IsAlive() {
			return
		}
		if a, ok := e.(*Agent); ok && a.boardedOn != nil {
			return
		}
		w.Space.Add(e)
	})
}

// reap detaches every entity that died this tick from slots, targets and
// interactions.
func (w *World) reap() {
	var fallen []Entity
	w.forEachEntity(func(e Entity) {
		if !e.IsAlive() && !w.dead[e.ID()] {
			w.dead[e.ID()] = true
			fallen = append(fallen, e)
		}
	})
	for _, e := range fallen {
		killer := "--"
		if src := e.Health().LastSource(); src != nil {
			killer = src.Label()
		}
		w.SimLog.Add(w.tick, e.Label(), e.Faction(), "death", e.Kind().String(), "by "+killer, 0)
		w.log.Debug().Str("entity", e.Label()).Str("by", killer).Msg("entity died")
		e.Health().ClearDoT()

		switch v := e.(type) {
		case *Agent:
			v.CancelOrders()
			v.interaction = Interaction{}
			if v.attack != nil {
				v.attack.ClearTarget()
			}
		case *Structure:
			v.workers.ReleaseAll()
			for _, p := range v.Unload() {
				w.SimLog.Add(w.tick, p.label, p.faction, "move", "unloaded", v.label, 0)
			}
			if v.attack != nil {
				v.attack.ClearTarget()
			}
		}

		for _, a := range w.agents {
			if a.interaction.Target != nil && a.interaction.Target.ID() == e.ID() {
				a.CancelOrders()
				a.interaction = Interaction{}
			}
		}
		w.forEachEntity(func(o Entity) {
			at, ok := o.(Attacker)
			if !ok || at.Attack() == nil {
				return
			}
			if t := at.Attack().Target(); t != nil && t.ID() == e.ID() {
				w.Combat.cancel(at, at.Attack())
			}
		})
	}
}

// Notify records combat events in the SimLog before forwarding them.
func (w *World) Notify(ev CombatEvent) {
	label, faction := "--", -1
	if ev.Attacker != nil {
		label, faction = ev.Attacker.Label(), ev.Attacker.Faction()
	}
	target := "--"
	if ev.Target != nil {
		target = ev.Target.Label()
	}
	w.SimLog.Add(w.tick, label, faction, "combat", ev.Kind.String(), target, 0)
	for _, h := range ev.Hits {
		w.recordHit(label, faction, h)
	}
	w.notify.Notify(ev)
}

func (w *World) recordHit(label string, faction int, h Hit) {
	key := "hit"
	if h.DoT {
		key = "dot_applied"
	}
	w.SimLog.Add(w.tick, label, faction, "damage", key,
		fmt.Sprintf("%s -%.1f hp=%.1f", h.Victim.Label(), h.Damage, h.Victim.Health().Current()), h.Damage)
}

func (w *World) recordProjectileHit(pr *Projectile, hits []Hit) {
	for _, h := range hits {
		w.recordHit(pr.Source.Label(), pr.Source.Faction(), h)
	}
}

// Order helpers for players and scripts.

// MoveGroup forwards to the coordinator.
func (w *World) MoveGroup(agents []*Agent, dest Vec3, ringRadius float64, target Entity, mode MoveMode) (int, error) {
	n, err := w.Coord.MoveGroup(agents, dest, ringRadius, target, mode)
	w.SimLog.Add(w.tick, "--", -1, "move", "order_"+mode.String(),
		fmt.Sprintf("%d/%d to (%.1f,%.1f)", n, len(agents), dest.X, dest.Z), float64(n))
	return n, err
}

// Attack forwards an attack order to the coordinator.
func (w *World) Attack(agents []*Agent, target Entity, order AttackOrder) (int, error) {
	n, err := w.Coord.LaunchAttack(agents, target, order)
	if target != nil {
		w.SimLog.Add(w.tick, "--", -1, "move", "order_attack",
			fmt.Sprintf("%d/%d on %s", n, len(agents), target.Label()), float64(n))
	}
	return n, err
}
