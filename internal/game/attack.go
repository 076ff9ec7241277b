package game

import "slices"

// CustomDamage overrides an attack's default damage against one victim code.
type CustomDamage struct {
	Code   string
	Damage float64
}

// AreaTier is one ring of an area attack. Tiers are expected in ascending
// Range order; the first tier whose Range exceeds a victim's distance applies.
type AreaTier struct {
	Range          float64
	UnitDamage     float64
	BuildingDamage float64
}

// DoTConfig describes the damage-over-time an attack attaches to its victim.
// The per-cycle damage is the resolved hit damage.
type DoTConfig struct {
	Enabled  bool
	Duration int // ticks, ignored when Infinite
	Infinite bool
	Cycle    int // ticks between applications
}

// LineOfSight gates execution on the attacker facing its target.
type LineOfSight struct {
	Enabled  bool
	MaxAngle float64 // degrees between forward and the target direction
	IgnoreX  bool
	IgnoreY  bool
	IgnoreZ  bool
}

// Within reports whether target, seen from an attacker at from with the given
// forward vector, lies inside the allowed angle. Ignored axes are zeroed on
// both vectors before comparing.
func (los LineOfSight) Within(from, forward, target Vec3) bool {
	if !los.Enabled {
		return true
	}
	dir := target.Sub(from)
	if los.IgnoreX {
		dir.X, forward.X = 0, 0
	}
	if los.IgnoreY {
		dir.Y, forward.Y = 0, 0
	}
	if los.IgnoreZ {
		dir.Z, forward.Z = 0, 0
	}
	if dir.Len() < 1e-9 {
		return true
	}
	return AngleBetween(forward, dir) <= los.MaxAngle
}

// FilterMode selects how TargetFilter.Codes is interpreted.
type FilterMode int

const (
	FilterNone  FilterMode = iota // codes ignored
	FilterAllow                   // only listed codes
	FilterDeny                    // everything except listed codes
)

// TargetFilter restricts which entities an attack may target or damage.
type TargetFilter struct {
	SkipUnits     bool
	SkipBuildings bool
	Mode          FilterMode
	Codes         []string
}

// Matches reports whether e passes the filter.
func (f TargetFilter) Matches(e Entity) bool {
	switch e.Kind() {
	case KindAgent:
		if f.SkipUnits {
			return false
		}
	case KindStructure:
		if f.SkipBuildings {
			return false
		}
	}
	switch f.Mode {
	case FilterAllow:
		return slices.Contains(f.Codes, e.Code())
	case FilterDeny:
		return !slices.Contains(f.Codes, e.Code())
	}
	return true
}

// ProjectileConfig turns an attack into a launched projectile.
type ProjectileConfig struct {
	Enabled    bool
	Speed      float64 // world units per tick
	Delay      int     // ticks before departure
	DamageOnce bool    // despawn on first hit
	HitRadius  float64
	Lifetime   int // ticks of flight before expiry
}

// AttackProfile is one attack source of an attacker. Reload, cooldown, delay
// and search values are in ticks.
type AttackProfile struct {
	Code       string
	Active     bool
	RangeClass string

	UnitDamage     float64
	BuildingDamage float64
	CustomDamage   []CustomDamage

	Reload          int
	UseCooldown     bool
	Cooldown        int
	Delay           int
	UseTriggerDelay bool

	AreaEnabled bool
	Area        []AreaTier
	DoT         DoTConfig
	Projectile  ProjectileConfig

	AttackInRange bool
	SearchRange   float64
	SearchReload  int
	TargetAllies  bool
	Filter        TargetFilter
	// FollowRange cancels an attack on a unit target once the distance between
	// attacker and target grows past it, after having been within it. A long
	// approach toward a distant target is never cut short. Zero disables the
	// leash.
	FollowRange float64
	LineOfSight LineOfSight

	AttackOnce     bool
	AttackOnAssign bool
	RevertToBasic  bool
}

// DefaultDamage returns the unit or building damage for a victim of kind k.
func (p *AttackProfile) DefaultDamage(k EntityKind) float64 {
	if k == KindStructure {
		return p.BuildingDamage
	}
	return p.UnitDamage
}

// DamageAgainst resolves the hit damage against victim.
func (p *AttackProfile) DamageAgainst(victim Entity) float64 {
	return DamageFor(victim, p.CustomDamage, p.DefaultDamage(victim.Kind()))
}

// MaxAreaRange returns the largest tier range, or 0 without tiers.
func (p *AttackProfile) MaxAreaRange() float64 {
	r := 0.0
	for _, t := range p.Area {
		r = max(r, t.Range)
	}
	return r
}

// HasDamageSource reports whether the profile can hurt anything at all.
func (p *AttackProfile) HasDamageSource() bool {
	if p.UnitDamage > 0 || p.BuildingDamage > 0 || len(p.CustomDamage) > 0 {
		return true
	}
	return p.AreaEnabled && len(p.Area) > 0
}

// CanTarget reports whether e is an eligible target for an owner of the given
// faction: alive, visible, faction-eligible and accepted by the filter.
func (p *AttackProfile) CanTarget(ownerFaction int, e Entity) bool {
	if e == nil || !e.IsAlive() || e.IsInvisible() {
		return false
	}
	if (e.Faction() == ownerFaction) != p.TargetAllies {
		return false
	}
	return p.Filter.Matches(e)
}
