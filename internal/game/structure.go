package game

import "math"

// StructureSpec describes a stationary entity to spawn: a building, resource
// node, transport, portal or turret.
type StructureSpec struct {
	Code    string
	Label   string
	Faction int
	Pos     Vec3
	Radius  float64
	// BorderRadius is the area a defending structure watches. Defaults to Radius.
	BorderRadius float64
	HP           float64
	Unbuilt      bool
	// WorkerAnchors declares worker slots; nil entries are unanchored.
	WorkerAnchors []*Vec3
	// Exit is where teleporting agents reappear.
	Exit *Vec3
	// Capacity is how many agents can board; zero means none.
	Capacity int
	Attacks  []AttackProfile
	Basic    int
}

// Structure is a stationary entity.
type Structure struct {
	id           EntityID
	code         string
	label        string
	pos          Vec3
	heading      float64
	radius       float64
	borderRadius float64
	faction      int
	health       Health
	built        bool
	invisible    bool

	workers    *WorkerSlotManager
	exit       *Vec3
	capacity   int
	passengers []*Agent
	attack     *AttackState
}

// NewStructure creates a structure from spec.
func NewStructure(id EntityID, spec StructureSpec) *Structure {
	s := &Structure{
		id:           id,
		code:         spec.Code,
		label:        spec.Label,
		pos:          spec.Pos,
		radius:       spec.Radius,
		borderRadius: spec.BorderRadius,
		faction:      spec.Faction,
		health:       NewHealth(spec.HP),
		built:        !spec.Unbuilt,
		capacity:     spec.Capacity,
	}
	if s.radius <= 0 {
		s.radius = 1
	}
	if s.borderRadius <= 0 {
		s.borderRadius = s.radius
	}
	if spec.HP <= 0 {
		s.health = NewHealth(500)
	}
	if s.label == "" {
		s.label = spec.Code
	}
	if spec.Exit != nil {
		e := *spec.Exit
		s.exit = &e
	}
	s.workers = NewWorkerSlotManager(s, spec.WorkerAnchors...)
	if len(spec.Attacks) > 0 {
		s.attack = NewAttackState(s, spec.Basic, spec.Attacks...)
	}
	return s
}

func (s *Structure) ID() EntityID         { return s.id }
func (s *Structure) Kind() EntityKind     { return KindStructure }
func (s *Structure) Code() string         { return s.code }
func (s *Structure) Label() string        { return s.label }
func (s *Structure) Position() Vec3       { return s.pos }
func (s *Structure) Radius() float64      { return s.radius }
func (s *Structure) Faction() int         { return s.faction }
func (s *Structure) Health() *Health      { return &s.health }
func (s *Structure) IsAlive() bool        { return !s.health.Depleted() }
func (s *Structure) IsInvisible() bool    { return s.invisible }
func (s *Structure) Attack() *AttackState { return s.attack }
func (s *Structure) CanMove() bool        { return false }

// BorderRadius is the defended area around the structure.
func (s *Structure) BorderRadius() float64 { return s.borderRadius }

// Built reports whether construction has completed.
func (s *Structure) Built() bool { return s.built }

// SetBuilt marks construction complete, or not.
func (s *Structure) SetBuilt(v bool) { s.built = v }

// SetFaction converts the structure.
func (s *Structure) SetFaction(f int) { s.faction = f }

// Ready is true for a live, built structure.
func (s *Structure) Ready() bool { return s.IsAlive() && s.built }

func (s *Structure) Forward() Vec3 { return HeadingVec(s.heading) }

// FaceTowards snaps a turret's heading toward p.
func (s *Structure) FaceTowards(p Vec3) {
	if s.pos.PlanarDist(p) < 1e-9 {
		return
	}
	s.heading = HeadingTo(s.pos, p)
}

// Workers returns the worker slot registry.
func (s *Structure) Workers() *WorkerSlotManager { return s.workers }

// Exit returns the teleport destination, if any.
func (s *Structure) Exit() (Vec3, bool) {
	if s.exit == nil {
		return Vec3{}, false
	}
	return *s.exit, true
}

// Passengers returns the boarded agents.
func (s *Structure) Passengers() []*Agent { return s.passengers }

// Capacity returns how many agents can board at once.
func (s *Structure) Capacity() int { return s.capacity }

// board loads a. It fails when the structure is full or cannot carry agents.
func (s *Structure) board(a *Agent) bool {
	if len(s.passengers) >= s.capacity || a.boardedOn != nil {
		return false
	}
	a.Stop()
	a.boardedOn = s
	s.passengers = append(s.passengers, a)
	return true
}

// Unload places every passenger evenly around the structure's edge and
// returns them.
func (s *Structure) Unload() []*Agent {
	out := s.passengers
	s.passengers = nil
	for i, a := range out {
		deg := 360 * float64(i) / math.Max(1, float64(len(out)))
		a.boardedOn = nil
		a.warp(RingPoint(s.pos, s.radius+a.radius, deg))
		a.interaction = Interaction{}
	}
	return out
}
