package game

// DamageFor returns the override in table whose code exactly matches the
// victim's code, or def when none does.
func DamageFor(victim Entity, table []CustomDamage, def float64) float64 {
	code := victim.Code()
	for _, cd := range table {
		if cd.Code == code {
			return cd.Damage
		}
	}
	return def
}

// Hit records one damage application.
type Hit struct {
	Victim Entity
	Damage float64
	// DoT is true when the damage was attached as damage-over-time instead of
	// being applied at once.
	DoT bool
	// Killed is true when this hit depleted the victim.
	Killed bool
}

// DamageResolver applies attack damage to victims.
type DamageResolver struct {
	space SpatialIndex
}

// NewDamageResolver wires a resolver to the range-query collaborator used by
// area attacks.
func NewDamageResolver(space SpatialIndex) *DamageResolver {
	return &DamageResolver{space: space}
}

// Strike applies one execution of profile p from source against victim:
// area damage centred on the victim when enabled, otherwise a single hit that
// is either attached as DoT or applied instantly.
func (r *DamageResolver) Strike(source Entity, p *AttackProfile, victim Entity) []Hit {
	if p.AreaEnabled && len(p.Area) > 0 {
		return r.AreaDamage(victim.Position(), p, source)
	}
	return []Hit{r.apply(source, p, victim, p.DamageAgainst(victim))}
}

// AreaDamage queries around center with the largest tier range and applies
// the first tier whose range exceeds each eligible entity's distance. Entities
// beyond every tier are untouched.
func (r *DamageResolver) AreaDamage(center Vec3, p *AttackProfile, source Entity) []Hit {
	var hits []Hit
	for _, e := range r.space.Query(center, p.MaxAreaRange(), LayerAll) {
		if e.ID() == source.ID() || !p.CanTarget(source.Faction(), e) {
			continue
		}
		d := e.Position().PlanarDist(center)
		for _, tier := range p.Area {
			if tier.Range <= d {
				continue
			}
			dmg := tier.UnitDamage
			if e.Kind() == KindStructure {
				dmg = tier.BuildingDamage
			}
			hits = append(hits, r.apply(source, p, e, dmg))
			break
		}
	}
	return hits
}

func (r *DamageResolver) apply(source Entity, p *AttackProfile, victim Entity, dmg float64) Hit {
	h := Hit{Victim: victim, Damage: dmg}
	if p.DoT.Enabled {
		victim.Health().SetDoT(NewDoTState(p.DoT, dmg, source))
		h.DoT = true
		return h
	}
	h.Killed = victim.Health().AddHealth(-dmg, source)
	return h
}
