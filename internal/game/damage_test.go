package game

import "testing"

func TestDamageFor_Precedence(t *testing.T) {
	tank := NewAgent(1, AgentSpec{Code: "tank"})
	rifle := NewAgent(2, AgentSpec{Code: "rifle"})
	table := []CustomDamage{{Code: "tank", Damage: 2}, {Code: "tank", Damage: 50}}

	if got := DamageFor(tank, table, 10); got != 2 {
		t.Fatalf("first exact match should win, got %.1f", got)
	}
	if got := DamageFor(rifle, table, 10); got != 10 {
		t.Fatalf("no match should fall back to the default, got %.1f", got)
	}
	if got := DamageFor(NewAgent(3, AgentSpec{Code: "tank_mk2"}), table, 10); got != 10 {
		t.Fatalf("codes must match exactly, got %.1f", got)
	}
}

func TestDamageAgainst_UnitAndBuilding(t *testing.T) {
	p := &AttackProfile{UnitDamage: 10, BuildingDamage: 25}
	if got := p.DamageAgainst(NewAgent(1, AgentSpec{Code: "rifle"})); got != 10 {
		t.Fatalf("expected unit damage 10, got %.1f", got)
	}
	if got := p.DamageAgainst(NewStructure(2, StructureSpec{Code: "hq"})); got != 25 {
		t.Fatalf("expected building damage 25, got %.1f", got)
	}
}

func newAreaFixture() (*SpatialGrid, *DamageResolver, *Agent) {
	sg := NewSpatialGrid(64, 64, 4)
	src := NewAgent(100, AgentSpec{Code: "mortar", Faction: 0, Pos: V3(2, 2)})
	sg.Add(src)
	return sg, NewDamageResolver(sg), src
}

// Scenario: tiers [{5,8},{10,3}] around (20,20). Victims at 4, 7 and 12.
func TestAreaDamage_Tiers(t *testing.T) {
	sg, r, src := newAreaFixture()
	near := NewAgent(1, AgentSpec{Code: "rifle", Faction: 1, Pos: V3(24, 20)})
	mid := NewAgent(2, AgentSpec{Code: "rifle", Faction: 1, Pos: V3(20, 27)})
	far := NewAgent(3, AgentSpec{Code: "rifle", Faction: 1, Pos: V3(32, 20)})
	for _, a := range []*Agent{near, mid, far} {
		sg.Add(a)
	}
	p := &AttackProfile{AreaEnabled: true, Area: []AreaTier{
		{Range: 5, UnitDamage: 8},
		{Range: 10, UnitDamage: 3},
	}}

	hits := r.AreaDamage(V3(20, 20), p, src)
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hp := near.Health().Current(); hp != 92 {
		t.Fatalf("victim at 4 should take the inner tier, hp=%.1f", hp)
	}
	if hp := mid.Health().Current(); hp != 97 {
		t.Fatalf("victim at 7 should take the outer tier, hp=%.1f", hp)
	}
	if hp := far.Health().Current(); hp != 100 {
		t.Fatalf("victim at 12 should be untouched, hp=%.1f", hp)
	}
}

func TestAreaDamage_BuildingTierAndFactions(t *testing.T) {
	sg, r, src := newAreaFixture()
	ally := NewAgent(1, AgentSpec{Code: "rifle", Faction: 0, Pos: V3(21, 20)})
	depot := NewStructure(2, StructureSpec{Code: "depot", Faction: 1, Pos: V3(20, 22), HP: 200})
	sg.Add(ally)
	sg.Add(depot)
	p := &AttackProfile{AreaEnabled: true, Area: []AreaTier{{Range: 5, UnitDamage: 8, BuildingDamage: 40}}}

	r.AreaDamage(V3(20, 20), p, src)
	if ally.Health().Current() != 100 {
		t.Fatal("same-faction entities should be skipped")
	}
	if hp := depot.Health().Current(); hp != 160 {
		t.Fatalf("building should take the tier's building damage, hp=%.1f", hp)
	}
}

func TestAreaDamage_SkipsSource(t *testing.T) {
	sg := NewSpatialGrid(64, 64, 4)
	src := NewAgent(1, AgentSpec{Code: "sapper", Faction: 0, Pos: V3(20, 20)})
	sg.Add(src)
	p := &AttackProfile{AreaEnabled: true, TargetAllies: true, Area: []AreaTier{{Range: 5, UnitDamage: 30}}}

	NewDamageResolver(sg).AreaDamage(V3(20, 20), p, src)
	if src.Health().Current() != 100 {
		t.Fatal("the attacker should never damage itself")
	}
}

func TestStrike_CustomDamageOverride(t *testing.T) {
	sg, r, src := newAreaFixture()
	tank := NewAgent(1, AgentSpec{Code: "tank", Faction: 1, Pos: V3(10, 10)})
	sg.Add(tank)
	p := &AttackProfile{UnitDamage: 10, CustomDamage: []CustomDamage{{Code: "tank", Damage: 2}}}

	hits := r.Strike(src, p, tank)
	if len(hits) != 1 || hits[0].Damage != 2 {
		t.Fatalf("expected a single hit of 2, got %+v", hits)
	}
	if tank.Health().Current() != 98 {
		t.Fatalf("expected hp 98, got %.1f", tank.Health().Current())
	}
}

func TestStrike_AttachesDoT(t *testing.T) {
	_, r, src := newAreaFixture()
	victim := NewAgent(1, AgentSpec{Code: "rifle", Faction: 1, Pos: V3(10, 10)})
	p := &AttackProfile{UnitDamage: 5, DoT: DoTConfig{Enabled: true, Duration: 6, Cycle: 2}}

	hits := r.Strike(src, p, victim)
	if len(hits) != 1 || !hits[0].DoT {
		t.Fatalf("expected one DoT hit, got %+v", hits)
	}
	if victim.Health().Current() != 100 {
		t.Fatal("DoT must not deal damage on application")
	}
	d := victim.Health().DoT()
	if d == nil || d.Damage != 5 || d.Cycle != 2 || d.Remaining != 6 {
		t.Fatalf("unexpected DoT state %+v", d)
	}

	// Cycles land on ticks 2, 4 and 6.
	for i := 0; i < 6; i++ {
		victim.Health().tickDoT()
	}
	if hp := victim.Health().Current(); hp != 85 {
		t.Fatalf("expected 3 cycles of 5, hp=%.1f", hp)
	}
	if victim.Health().DoT() != nil {
		t.Fatal("DoT should expire after its duration")
	}
}

func TestAreaDamage_WithDoT(t *testing.T) {
	sg, r, src := newAreaFixture()
	victim := NewAgent(1, AgentSpec{Code: "rifle", Faction: 1, Pos: V3(20, 21)})
	sg.Add(victim)
	p := &AttackProfile{
		AreaEnabled: true,
		Area:        []AreaTier{{Range: 5, UnitDamage: 4}},
		DoT:         DoTConfig{Enabled: true, Infinite: true, Cycle: 1},
	}

	hits := r.AreaDamage(V3(20, 20), p, src)
	if len(hits) != 1 || !hits[0].DoT {
		t.Fatalf("area hit should attach DoT, got %+v", hits)
	}
	for i := 0; i < 10; i++ {
		victim.Health().tickDoT()
	}
	if hp := victim.Health().Current(); hp != 60 {
		t.Fatalf("infinite DoT of 4/tick for 10 ticks, expected 60, got %.1f", hp)
	}
}

func TestHealth_KilledOnceAndClamped(t *testing.T) {
	h := NewHealth(50)
	if h.AddHealth(30, nil); h.Current() != 50 {
		t.Fatalf("heal should clamp at max, got %.1f", h.Current())
	}
	if killed := h.AddHealth(-60, nil); !killed || h.Current() != 0 {
		t.Fatalf("expected kill at 0, got killed=%v hp=%.1f", killed, h.Current())
	}
	if killed := h.AddHealth(-10, nil); killed {
		t.Fatal("a depleted pool cannot be killed twice")
	}
	if h.AddHealth(20, nil); h.Current() != 0 {
		t.Fatal("a depleted pool ignores healing")
	}
}
