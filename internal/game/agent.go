package game

import "math"

const (
	defaultAgentRadius = 0.5
	defaultAgentSpeed  = 0.25 // world units per tick
	defaultTurnRate    = 0.35 // radians per tick
)

// Capability flags what an agent can do on arrival.
type Capability uint8

const (
	CapBuild Capability = 1 << iota
	CapCollect
	CapBoard
	CapTeleport
)

// Interaction is what an agent does once it reaches its destination.
type Interaction struct {
	Target Entity
	Mode   MoveMode
	// Engaged is set once the agent has arrived and started the interaction.
	Engaged bool
}

// AgentSpec describes an agent to spawn.
type AgentSpec struct {
	Code     string
	Label    string
	Faction  int
	Pos      Vec3
	Heading  float64
	Radius   float64
	HP       float64
	Speed    float64
	TurnRate float64
	Immobile bool
	AreaMask AreaMask
	Caps     Capability
	// Attacks lists the agent's attack profiles; Basic indexes the default one.
	Attacks []AttackProfile
	Basic   int
}

// Agent is a mobile unit.
type Agent struct {
	id      EntityID
	code    string
	label   string
	pos     Vec3
	heading float64
	radius  float64
	faction int
	health  Health

	invisible bool
	canMove   bool
	speed     float64
	turnRate  float64
	areaMask  AreaMask
	caps      Capability

	// Navigation
	path      []Vec3
	pathIndex int
	dest      Vec3
	moving    bool
	arrived   bool

	interaction Interaction
	slotHost    *WorkerSlotManager
	boardedOn   *Structure
	attack      *AttackState
}

// NewAgent creates an agent from spec. Zero spec values get defaults.
func NewAgent(id EntityID, spec AgentSpec) *Agent {
	a := &Agent{
		id:       id,
		code:     spec.Code,
		label:    spec.Label,
		pos:      spec.Pos,
		heading:  spec.Heading,
		radius:   spec.Radius,
		faction:  spec.Faction,
		health:   NewHealth(spec.HP),
		canMove:  !spec.Immobile,
		speed:    spec.Speed,
		turnRate: spec.TurnRate,
		areaMask: spec.AreaMask,
		caps:     spec.Caps,
	}
	if a.radius <= 0 {
		a.radius = defaultAgentRadius
	}
	if a.speed <= 0 {
		a.speed = defaultAgentSpeed
	}
	if a.turnRate <= 0 {
		a.turnRate = defaultTurnRate
	}
	if a.areaMask == 0 {
		a.areaMask = AreaGround
	}
	if spec.HP <= 0 {
		a.health = NewHealth(100)
	}
	if a.label == "" {
		a.label = spec.Code
	}
	if len(spec.Attacks) > 0 {
		a.attack = NewAttackState(a, spec.Basic, spec.Attacks...)
	}
	return a
}

func (a *Agent) ID() EntityID         { return a.id }
func (a *Agent) Kind() EntityKind     { return KindAgent }
func (a *Agent) Code() string         { return a.code }
func (a *Agent) Label() string        { return a.label }
func (a *Agent) Position() Vec3       { return a.pos }
func (a *Agent) Radius() float64      { return a.radius }
func (a *Agent) Faction() int         { return a.faction }
func (a *Agent) Health() *Health      { return &a.health }
func (a *Agent) IsAlive() bool        { return !a.health.Depleted() }
func (a *Agent) Attack() *AttackState { return a.attack }

// IsInvisible is true while cloaked or carried inside a transport.
func (a *Agent) IsInvisible() bool { return a.invisible || a.boardedOn != nil }

// SetInvisible toggles cloaking.
func (a *Agent) SetInvisible(v bool) { a.invisible = v }

// SetFaction converts the agent. Attackers targeting it re-check eligibility
// on their next step.
func (a *Agent) SetFaction(f int) { a.faction = f }

func (a *Agent) Ready() bool   { return a.IsAlive() && a.boardedOn == nil }
func (a *Agent) CanMove() bool { return a.canMove }

func (a *Agent) Heading() float64 { return a.heading }
func (a *Agent) Forward() Vec3    { return HeadingVec(a.heading) }

// FaceTowards turns the agent toward p by at most one tick of turning.
func (a *Agent) FaceTowards(p Vec3) {
	if a.pos.PlanarDist(p) < 1e-9 {
		return
	}
	a.turn(HeadingTo(a.pos, p))
}

func (a *Agent) turn(target float64) {
	diff := normalizeAngle(target - a.heading)
	if math.Abs(diff) <= a.turnRate {
		a.heading = normalizeAngle(target)
		return
	}
	a.heading = normalizeAngle(a.heading + math.Copysign(a.turnRate, diff))
}

func (a *Agent) AreaMask() AreaMask { return a.areaMask }

// Can reports whether the agent has all capability bits in c.
func (a *Agent) Can(c Capability) bool { return a.caps&c == c }

func (a *Agent) Destination() Vec3        { return a.dest }
func (a *Agent) Moving() bool             { return a.moving }
func (a *Agent) Arrived() bool            { return a.arrived }
func (a *Agent) Interaction() Interaction { return a.interaction }
func (a *Agent) BoardedOn() *Structure    { return a.boardedOn }

// Path returns the remaining waypoints.
func (a *Agent) Path() []Vec3 {
	if a.pathIndex >= len(a.path) {
		return nil
	}
	return a.path[a.pathIndex:]
}

// moveTo plans a path to dest. It returns false when the agent cannot move or
// no path exists; the agent's previous movement is left untouched then.
func (a *Agent) moveTo(terrain Terrain, dest Vec3) bool {
	if !a.canMove {
		return false
	}
	path := terrain.FindPath(a.pos, dest, a.areaMask)
	if path == nil {
		return false
	}
	a.path = path
	a.pathIndex = 0
	a.dest = dest
	a.moving = true
	a.arrived = false
	return true
}

// stepMove advances one tick along the path. It returns true on the tick the
// agent reaches the end of its path.
func (a *Agent) stepMove() bool {
	if !a.moving {
		return false
	}
	remaining := a.speed
	for remaining > 0 && a.pathIndex < len(a.path) {
		wp := a.path[a.pathIndex]
		dx := wp.X - a.pos.X
		dz := wp.Z - a.pos.Z
		dist := math.Hypot(dx, dz)

		if dist > 1e-6 {
			a.turn(math.Atan2(dz, dx))
		}

		if dist <= remaining {
			a.pos = wp
			remaining -= dist
			a.pathIndex++
		} else {
			a.pos.X += (dx / dist) * remaining
			a.pos.Z += (dz / dist) * remaining
			a.pos.Y += (wp.Y - a.pos.Y) * (remaining / dist)
			remaining = 0
		}
	}
	if a.pathIndex >= len(a.path) {
		a.moving = false
		a.arrived = true
		a.path = nil
		a.pathIndex = 0
		return true
	}
	return false
}

// Stop halts movement in place.
func (a *Agent) Stop() {
	a.path = nil
	a.pathIndex = 0
	a.moving = false
}

// CancelOrders stops the agent, drops a build or collect interaction and
// releases any worker slot it holds.
func (a *Agent) CancelOrders() {
	a.Stop()
	a.arrived = false
	if a.slotHost != nil {
		a.slotHost.Release(a)
	}
	switch a.interaction.Mode {
	case ModeBuild, ModeCollect, ModeBoard, ModeTeleport:
		a.interaction = Interaction{}
	}
}

// warp places the agent at p without pathing.
func (a *Agent) warp(p Vec3) {
	a.Stop()
	a.pos = p
}
