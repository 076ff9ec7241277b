package game

import "math"

const defaultProjectileHitRadius = 0.3

// Projectile is an attack in flight. It carries its own copy of the profile so
// later changes on the attacker do not alter it.
type Projectile struct {
	ID            int
	Source        Entity
	Profile       AttackProfile
	TargetFaction int
	Pos           Vec3
	Vel           Vec3

	delay int
	ttl   int
	hit   map[EntityID]bool
	done  bool
}

// Done reports whether the projectile has expired or spent itself.
func (pr *Projectile) Done() bool { return pr.done }

// ProjectileSystem owns every projectile in flight.
type ProjectileSystem struct {
	space   SpatialIndex
	damage  *DamageResolver
	active  []*Projectile
	nextID  int
	OnHit   func(pr *Projectile, hits []Hit)
	OnSpent func(pr *Projectile)
}

// NewProjectileSystem creates an empty system.
func NewProjectileSystem(space SpatialIndex, damage *DamageResolver) *ProjectileSystem {
	return &ProjectileSystem{space: space, damage: damage}
}

// Active returns the projectiles still in flight.
func (ps *ProjectileSystem) Active() []*Projectile { return ps.active }

// Launch fires a projectile from source in a straight line toward the
// target's current position.
func (ps *ProjectileSystem) Launch(source Entity, p *AttackProfile, target Entity) *Projectile {
	cfg := p.Projectile
	speed := cfg.Speed
	if speed <= 0 {
		speed = 1
	}
	from := source.Position()
	to := target.Position()
	dir := to.Sub(from)
	dist := dir.Len()

	ttl := cfg.Lifetime
	if ttl <= 0 {
		ttl = int(math.Ceil(dist/speed)) + 2
	}
	ps.nextID++
	pr := &Projectile{
		ID:            ps.nextID,
		Source:        source,
		Profile:       *p,
		TargetFaction: target.Faction(),
		Pos:           from,
		Vel:           dir.Normalized().Scale(speed),
		delay:         cfg.Delay,
		ttl:           ttl,
		hit:           make(map[EntityID]bool),
	}
	ps.active = append(ps.active, pr)
	return pr
}

// Step advances every projectile by one tick and drops spent ones.
func (ps *ProjectileSystem) Step() {
	live := ps.active[:0]
	for _, pr := range ps.active {
		ps.stepOne(pr)
		if pr.done {
			if ps.OnSpent != nil {
				ps.OnSpent(pr)
			}
			continue
		}
		live = append(live, pr)
	}
	for i := len(live); i < len(ps.active); i++ {
		ps.active[i] = nil
	}
	ps.active = live
}

func (ps *ProjectileSystem) stepOne(pr *Projectile) {
	if pr.delay > 0 {
		pr.delay--
		return
	}
	pr.Pos = pr.Pos.Add(pr.Vel)
	pr.ttl--

	radius := pr.Profile.Projectile.HitRadius
	if radius <= 0 {
		radius = defaultProjectileHitRadius
	}
	for _, e := range ps.space.Query(pr.Pos, radius, LayerAll) {
		if e.ID() == pr.Source.ID() || pr.hit[e.ID()] {
			continue
		}
		if e.Faction() != pr.TargetFaction || e.IsInvisible() || !pr.Profile.Filter.Matches(e) {
			continue
		}
		pr.hit[e.ID()] = true
		hits := ps.damage.Strike(pr.Source, &pr.Profile, e)
		if ps.OnHit != nil {
			ps.OnHit(pr, hits)
		}
		if pr.Profile.Projectile.DamageOnce {
			pr.done = true
			return
		}
	}
	if pr.ttl <= 0 {
		pr.done = true
	}
}
