package game

// EntityID identifies an agent or structure within a World.
type EntityID int

// EntityKind tags which of the two entity variants a handle refers to.
type EntityKind int

const (
	KindAgent     EntityKind = iota // mobile unit
	KindStructure                   // building, resource node, turret
)

func (k EntityKind) String() string {
	switch k {
	case KindAgent:
		return "agent"
	case KindStructure:
		return "structure"
	default:
		return "unknown"
	}
}

// Layer returns the spatial-query layer the kind lives on.
func (k EntityKind) Layer() LayerMask {
	if k == KindStructure {
		return LayerStructures
	}
	return LayerAgents
}

// LayerMask filters spatial queries by entity kind.
type LayerMask uint8

const (
	LayerAgents LayerMask = 1 << iota
	LayerStructures

	LayerAll = LayerAgents | LayerStructures
)

// Entity is the view of an agent or structure shared by targeting, slot
// allocation and damage. Range and damage logic is written once against it.
type Entity interface {
	ID() EntityID
	Kind() EntityKind
	Code() string
	Label() string
	Position() Vec3
	Radius() float64
	Faction() int
	IsAlive() bool
	IsInvisible() bool
	Health() *Health
}

// Attacker is an Entity able to carry an AttackState.
type Attacker interface {
	Entity
	// Forward is the unit facing vector used for line-of-sight checks.
	Forward() Vec3
	// FaceTowards rotates the facing toward p by at most one tick of turning.
	FaceTowards(p Vec3)
	// Ready reports whether the attacker may progress past Idle (alive and built).
	Ready() bool
	// CanMove is false for turrets and rooted units; they never approach.
	CanMove() bool
	// Attack returns the attacker's combat state, or nil.
	Attack() *AttackState
}

// Health is the hit-point pool and victim-side damage-over-time state of an entity.
type Health struct {
	current float64
	max     float64
	dot     *DoTState
	// lastSource is the entity that most recently changed this pool.
	lastSource Entity
}

// NewHealth returns a full pool of the given size.
func NewHealth(hp float64) Health {
	return Health{current: hp, max: hp}
}

func (h *Health) Current() float64 { return h.current }
func (h *Health) Max() float64     { return h.max }

// Depleted reports whether the pool has reached zero.
func (h *Health) Depleted() bool { return h.current <= 0 }

// LastSource returns the entity that last modified the pool.
func (h *Health) LastSource() Entity { return h.lastSource }

// AddHealth applies a signed change: negative values damage, positive values heal.
// The pool is clamped to [0, max]. A depleted pool ignores further changes.
// It returns true when this call depleted the pool.
func (h *Health) AddHealth(delta float64, source Entity) bool {
	if h.current <= 0 {
		return false
	}
	h.current += delta
	h.lastSource = source
	if h.current > h.max {
		h.current = h.max
	}
	if h.current <= 0 {
		h.current = 0
		h.dot = nil
		return true
	}
	return false
}

// DoT returns the active damage-over-time state, or nil.
func (h *Health) DoT() *DoTState { return h.dot }

// SetDoT attaches or overwrites the damage-over-time state.
func (h *Health) SetDoT(d *DoTState) {
	if h.current <= 0 {
		return
	}
	h.dot = d
}

// ClearDoT removes any damage-over-time state.
func (h *Health) ClearDoT() { h.dot = nil }

// DoTState is held on the victim. Cycle and Remaining count ticks.
type DoTState struct {
	Damage    float64 // per cycle
	Cycle     int     // ticks between applications
	Remaining int     // ticks left, ignored when Infinite
	Infinite  bool
	Source    Entity

	countdown int
}

// NewDoTState builds a victim-side DoT from a profile descriptor.
func NewDoTState(cfg DoTConfig, damage float64, source Entity) *DoTState {
	cycle := cfg.Cycle
	if cycle <= 0 {
		cycle = 1
	}
	return &DoTState{
		Damage:    damage,
		Cycle:     cycle,
		Remaining: cfg.Duration,
		Infinite:  cfg.Infinite,
		Source:    source,
		countdown: cycle,
	}
}

// tickDoT advances the victim's DoT by one tick. It returns the damage applied
// this tick (0 if none) and whether the victim was depleted by it.
func (h *Health) tickDoT() (float64, bool) {
	d := h.dot
	if d == nil || h.current <= 0 {
		return 0, false
	}
	applied := 0.0
	died := false
	d.countdown--
	if d.countdown <= 0 {
		d.countdown = d.Cycle
		applied = d.Damage
		died = h.AddHealth(-d.Damage, d.Source)
	}
	if !d.Infinite && h.dot != nil {
		d.Remaining--
		if d.Remaining <= 0 {
			h.dot = nil
		}
	}
	return applied, died
}
