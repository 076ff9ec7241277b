package game

import (
	"math"
	"testing"
)

var (
	meleeClass  = RangeClass{Code: "melee", UnitStoppingDistance: 1, BuildingStoppingDistance: 1}
	rangedClass = RangeClass{Code: "ranged", UnitStoppingDistance: 6, BuildingStoppingDistance: 6}
	turretClass = RangeClass{Code: "turret", UnitStoppingDistance: 5, BuildingStoppingDistance: 5}
)

func meleeProfile() AttackProfile {
	return AttackProfile{Code: "slash", Active: true, RangeClass: "melee", UnitDamage: 10, BuildingDamage: 10, Reload: 5}
}

// duelSim places an attacker at (10,10) and a victim exactly at melee reach,
// then orders the attack.
func duelSim(profiles []AttackProfile, extra ...SimOption) *TestSim {
	opts := []SimOption{
		WithRangeClass(meleeClass),
		WithRangeClass(rangedClass),
		WithAgent(AgentSpec{Code: "rifle", Label: "atk", Faction: 0, Pos: V3(10, 10), Attacks: profiles}),
		WithAgent(AgentSpec{Code: "rifle", Label: "vic", Faction: 1, Pos: V3(11.5, 10), Radius: 0.5}),
		WithAttackOrder("vic", OrderChange, "atk"),
	}
	return NewTestSim(append(opts, extra...)...)
}

func TestAttackState_CooldownGating(t *testing.T) {
	p := meleeProfile()
	p.UseCooldown = true
	p.Cooldown = 5
	a := NewAgent(1, AgentSpec{Code: "rifle", Attacks: []AttackProfile{p}})
	st := a.Attack()

	if !st.CanAttack() {
		t.Fatal("fresh profile should be able to attack")
	}
	if !st.StartCoolDown() {
		t.Fatal("cooldown should start")
	}
	for i := 0; i < 4; i++ {
		st.advanceTimers()
	}
	if st.CanAttack() {
		t.Fatalf("still cooling down after 4 ticks, remaining %d", st.CooldownRemaining())
	}
	events := st.advanceTimers()
	if !st.CanAttack() {
		t.Fatal("cooldown should expire after 5 ticks")
	}
	if len(events) != 1 || events[0].Kind != EventCooldownExpired {
		t.Fatalf("expected a cooldown_expired event, got %v", events)
	}
}

func TestAttackState_NoCooldownWhenDisabled(t *testing.T) {
	p := meleeProfile()
	p.Cooldown = 5
	a := NewAgent(1, AgentSpec{Code: "rifle", Attacks: []AttackProfile{p}})
	if a.Attack().StartCoolDown() {
		t.Fatal("UseCooldown=false must not start a cooldown")
	}
	if !a.Attack().CanAttack() {
		t.Fatal("attacker should still be able to attack")
	}
}

// Scenario: a melee attacker already at reach executes on the first tick.
func TestCombat_DirectAttack(t *testing.T) {
	ts := duelSim([]AttackProfile{meleeProfile()})
	atk, vic := ts.Agent("atk"), ts.Agent("vic")
	if atk.Attack().Target() != vic {
		t.Fatal("order should lock the target")
	}

	ts.RunTicks(1)
	if hp := vic.Health().Current(); hp != 90 {
		t.Fatalf("expected hp 90 after one tick, got %.1f\n%s", hp, ts.SimLog.Format())
	}
	if got := atk.Attack().ReloadRemaining(); got != 5 {
		t.Fatalf("reload should restart at 5, got %d", got)
	}
	if !ts.SimLog.HasEntry("combat", "attack_executed", "vic") {
		t.Fatal("execution should be logged")
	}

	// Reload counts down before the next blow.
	ts.RunTicks(4)
	if hp := vic.Health().Current(); hp != 90 {
		t.Fatalf("no hit while reloading, got hp %.1f", hp)
	}
	ts.RunTicks(1)
	if hp := vic.Health().Current(); hp != 80 {
		t.Fatalf("second hit after reload, got hp %.1f", hp)
	}
}

func TestCombat_TriggerHandshake(t *testing.T) {
	p := meleeProfile()
	p.Delay = 2
	p.UseTriggerDelay = true
	ts := duelSim([]AttackProfile{p})
	atk, vic := ts.Agent("atk"), ts.Agent("vic")

	ts.RunTicks(3)
	if st := atk.Attack().State(); st != CombatWaitingForTrigger {
		t.Fatalf("expected waiting_trigger after the delay, got %s", st)
	}
	ts.RunTicks(5)
	if vic.Health().Current() != 100 || atk.Attack().State() != CombatWaitingForTrigger {
		t.Fatal("attack must not execute without a trigger")
	}

	atk.Attack().Trigger()
	ts.RunTicks(1)
	if hp := vic.Health().Current(); hp != 90 {
		t.Fatalf("trigger should release the attack, hp %.1f", hp)
	}
}

func TestCombat_LineOfSightWaitsForTurn(t *testing.T) {
	p := meleeProfile()
	p.LineOfSight = LineOfSight{Enabled: true, MaxAngle: 10}
	ts := duelSim([]AttackProfile{p})
	atk, vic := ts.Agent("atk"), ts.Agent("vic")
	atk.heading = math.Pi

	ts.RunTicks(1)
	if atk.Attack().LineOfSightOK() || vic.Health().Current() != 100 {
		t.Fatal("facing away should block the first attack")
	}
	if atk.Attack().State() != CombatDelaying {
		t.Fatalf("expected delaying while turning, got %s", atk.Attack().State())
	}

	hit := ts.RunUntil(func(*TestSim) bool { return vic.Health().Current() < 100 }, 20)
	if hit < 0 {
		t.Fatal("attacker never turned to fire")
	}
	if AngleBetween(atk.Forward(), vic.Position().Sub(atk.Position())) > 10 {
		t.Fatal("attack executed outside the allowed angle")
	}
}

func TestCombat_InvisibleTargetCancels(t *testing.T) {
	ts := duelSim([]AttackProfile{meleeProfile()})
	atk, vic := ts.Agent("atk"), ts.Agent("vic")
	ts.RunTicks(1)

	vic.SetInvisible(true)
	ts.RunTicks(1)
	if atk.Attack().Target() != nil {
		t.Fatal("invisible target should be dropped")
	}
	if atk.Attack().State() != CombatIdle {
		t.Fatalf("expected idle, got %s", atk.Attack().State())
	}
	if !ts.SimLog.HasEntry("combat", "target_lost", "vic") {
		t.Fatal("target loss should be logged")
	}
}

func TestCombat_FactionChangeCancels(t *testing.T) {
	ts := duelSim([]AttackProfile{meleeProfile()})
	atk, vic := ts.Agent("atk"), ts.Agent("vic")
	ts.RunTicks(1)

	vic.SetFaction(0)
	ts.RunTicks(6)
	if atk.Attack().Target() != nil {
		t.Fatal("converted target should be dropped")
	}
	if hp := vic.Health().Current(); hp != 90 {
		t.Fatalf("no further hits after conversion, hp %.1f", hp)
	}
}

func TestCombat_AttackOnce(t *testing.T) {
	p := meleeProfile()
	p.AttackOnce = true
	ts := duelSim([]AttackProfile{p})
	atk, vic := ts.Agent("atk"), ts.Agent("vic")

	ts.RunTicks(10)
	if hp := vic.Health().Current(); hp != 90 {
		t.Fatalf("attack-once should hit exactly once, hp %.1f", hp)
	}
	if atk.Attack().Target() != nil {
		t.Fatal("target should be cleared after the single attack")
	}
}

func TestCombat_CooldownBetweenAttacks(t *testing.T) {
	p := meleeProfile()
	p.Reload = 0
	p.UseCooldown = true
	p.Cooldown = 3
	ts := duelSim([]AttackProfile{p})
	atk, vic := ts.Agent("atk"), ts.Agent("vic")

	ts.RunTicks(1)
	if atk.Attack().State() != CombatCooldown || atk.Attack().CooldownRemaining() != 3 {
		t.Fatalf("expected cooldown 3 after the first hit, got %s %d",
			atk.Attack().State(), atk.Attack().CooldownRemaining())
	}
	ts.RunTicks(2)
	if hp := vic.Health().Current(); hp != 90 {
		t.Fatalf("no hit during cooldown, hp %.1f", hp)
	}
	ts.RunTicks(1)
	if hp := vic.Health().Current(); hp != 80 {
		t.Fatalf("second hit once the cooldown expires, hp %.1f", hp)
	}
}

func TestCombat_AutoSearchAcquiresAndApproaches(t *testing.T) {
	p := meleeProfile()
	p.AttackInRange = true
	p.SearchRange = 8
	ts := NewTestSim(
		WithRangeClass(meleeClass),
		WithAgent(AgentSpec{Code: "rifle", Label: "guard", Faction: 0, Pos: V3(10, 10), Attacks: []AttackProfile{p}}),
		WithAgent(AgentSpec{Code: "rifle", Label: "intruder", Faction: 1, Pos: V3(15, 10)}),
	)
	guard, intruder := ts.Agent("guard"), ts.Agent("intruder")

	ts.RunTicks(1)
	if guard.Attack().Target() != intruder {
		t.Fatal("enemy within search range should be acquired")
	}
	if !guard.Moving() {
		t.Fatal("guard should approach its new target")
	}
	if !ts.SimLog.HasEntry("combat", "target_acquired", "intruder") {
		t.Fatal("acquisition should be logged")
	}
	if ts.SimLog.HasEntry("combat", "attack_ordered", "") {
		t.Fatal("automatic acquisition must not emit order feedback")
	}

	if ts.RunUntil(func(*TestSim) bool { return intruder.Health().Current() < 100 }, 60) < 0 {
		t.Fatalf("guard never struck\n%s", ts.SimLog.Format())
	}
}

func TestCombat_AutoSearchIgnoresDistantEnemies(t *testing.T) {
	p := meleeProfile()
	p.AttackInRange = true
	p.SearchRange = 3
	ts := NewTestSim(
		WithRangeClass(meleeClass),
		WithAgent(AgentSpec{Code: "rifle", Label: "guard", Faction: 0, Pos: V3(10, 10), Attacks: []AttackProfile{p}}),
		WithAgent(AgentSpec{Code: "rifle", Label: "far", Faction: 1, Pos: V3(20, 10)}),
	)
	ts.RunTicks(5)
	if ts.Agent("guard").Attack().Target() != nil {
		t.Fatal("enemy beyond search range should be ignored")
	}
	if ts.Agent("guard").Attack().State() != CombatSeeking {
		t.Fatalf("expected seeking, got %s", ts.Agent("guard").Attack().State())
	}
}

func TestCombat_RevertToBasicProfile(t *testing.T) {
	special := meleeProfile()
	special.Code = "charge"
	special.UnitDamage = 30
	special.RevertToBasic = true
	ts := duelSim([]AttackProfile{meleeProfile(), special})
	atk, vic := ts.Agent("atk"), ts.Agent("vic")

	if !atk.Attack().SwitchProfile(1) {
		t.Fatal("switch to the special profile should succeed")
	}
	ts.RunTicks(1)
	if hp := vic.Health().Current(); hp != 70 {
		t.Fatalf("special profile should deal 30, hp %.1f", hp)
	}
	if atk.Attack().ProfileIndex() != 0 {
		t.Fatalf("expected revert to basic profile, got %d", atk.Attack().ProfileIndex())
	}
	// The basic profile has its own reload timer and fires at once.
	ts.RunTicks(1)
	if hp := vic.Health().Current(); hp != 60 {
		t.Fatalf("basic profile should fire next tick, hp %.1f", hp)
	}
}

func TestCombat_FollowRangeLeash(t *testing.T) {
	p := meleeProfile()
	p.FollowRange = 3
	ts := duelSim([]AttackProfile{p})
	atk, vic := ts.Agent("atk"), ts.Agent("vic")

	ts.RunTicks(1)
	if hp := vic.Health().Current(); hp != 90 {
		t.Fatalf("expected the first hit at reach, hp %.1f", hp)
	}

	vic.pos = V3(30, 10)
	ts.RunTicks(1)
	if atk.Attack().Target() != nil {
		t.Fatal("a target escaping the follow range should be dropped")
	}
	if atk.Moving() {
		t.Fatal("attacker should stop once the chase is abandoned")
	}
	if !ts.SimLog.HasEntry("combat", "target_lost", "") {
		t.Fatal("losing the target should be logged")
	}
}

// Scenario: the target starts twice the follow range away; the approach
// itself must not trip the leash.
func TestCombat_LongApproachKeepsTarget(t *testing.T) {
	p := AttackProfile{Code: "shot", Active: true, RangeClass: "ranged", UnitDamage: 10, Reload: 5, FollowRange: 20}
	ts := NewTestSim(
		WithRangeClass(rangedClass),
		WithAgent(AgentSpec{Code: "rifle", Label: "atk", Faction: 0, Pos: V3(5, 30), Attacks: []AttackProfile{p}}),
		WithAgent(AgentSpec{Code: "rifle", Label: "vic", Faction: 1, Pos: V3(45, 30), Radius: 0.5}),
		WithAttackOrder("vic", OrderChange, "atk"),
	)
	atk, vic := ts.Agent("atk"), ts.Agent("vic")

	if ts.RunUntil(func(*TestSim) bool { return vic.Health().Current() < 100 }, 400) < 0 {
		pos := atk.Position()
		t.Fatalf("victim never hit: atk at (%.1f,%.1f) state %s target %v",
			pos.X, pos.Z, atk.Attack().State(), atk.Attack().Target())
	}
	if atk.Attack().Target() != vic {
		t.Fatal("attacker should still hold its target after the first hit")
	}
	if ts.SimLog.CountCategory("combat", "target_lost") != 0 {
		t.Fatal("the approach should never lose the target")
	}
}

func TestCombat_TargetDriftReplansApproach(t *testing.T) {
	ts := NewTestSim(
		WithRangeClass(skirmishClass),
		WithAgent(AgentSpec{Code: "rifle", Label: "atk", Faction: 0, Pos: V3(10, 30), Attacks: []AttackProfile{meleeProfile()}}),
		WithAgent(AgentSpec{Code: "rifle", Label: "vic", Faction: 1, Pos: V3(30, 30)}),
		WithAttackOrder("vic", OrderChange, "atk"),
	)
	atk, vic := ts.Agent("atk"), ts.Agent("vic")
	if d := atk.Destination().PlanarDist(vic.Position()); d > 3 {
		t.Fatalf("initial approach should end next to the target, %.2f away", d)
	}

	ts.RunTicks(4)
	old := atk.Destination()
	vic.pos = V3(30, 40)
	ts.RunTicks(1)

	if atk.Destination() == old {
		t.Fatal("a target drifting past the update distance should re-plan the approach")
	}
	if d := atk.Destination().PlanarDist(vic.Position()); d > 3 {
		t.Fatalf("re-planned slot should surround the moved target, %.2f away", d)
	}
	if atk.Attack().Target() != vic {
		t.Fatal("re-planning must keep the target")
	}
	if ts.RunUntil(func(*TestSim) bool { return vic.Health().Current() < 100 }, 300) < 0 {
		t.Fatal("attacker should reach the moved target and strike")
	}
}

// Scenario: stopping distance 1 + target radius 0.5 with 0.5 approach slack.
// An attacker 1.9 away holds position; one 2.2 away walks in.
func TestCombat_MoveOnAttackOffsetSlack(t *testing.T) {
	ts := NewTestSim(
		WithRangeClass(skirmishClass),
		WithAgent(AgentSpec{Code: "rifle", Label: "near", Faction: 0, Pos: V3(10, 10), Attacks: []AttackProfile{meleeProfile()}}),
		WithAgent(AgentSpec{Code: "rifle", Label: "vic", Faction: 1, Pos: V3(11.9, 10), Radius: 0.5}),
		WithAgent(AgentSpec{Code: "rifle", Label: "far", Faction: 0, Pos: V3(10, 20), Attacks: []AttackProfile{meleeProfile()}}),
		WithAgent(AgentSpec{Code: "rifle", Label: "vic2", Faction: 1, Pos: V3(12.2, 20), Radius: 0.5}),
		WithAttackOrder("vic", OrderChange, "near"),
		WithAttackOrder("vic2", OrderChange, "far"),
	)
	near, far := ts.Agent("near"), ts.Agent("far")
	if near.Moving() {
		t.Fatal("attacker within the approach slack should hold position")
	}
	if !far.Moving() {
		t.Fatal("attacker beyond the approach slack should close in")
	}

	ts.RunTicks(1)
	if hp := ts.Agent("vic").Health().Current(); hp != 90 {
		t.Fatalf("holding attacker should strike at once, hp %.1f", hp)
	}
	if hp := ts.Agent("vic2").Health().Current(); hp != 100 {
		t.Fatalf("approaching attacker cannot strike yet, hp %.1f", hp)
	}
}

func TestCombat_ProjectileFlight(t *testing.T) {
	p := AttackProfile{
		Code: "rocket", Active: true, RangeClass: "ranged", UnitDamage: 10, Reload: 100,
		Projectile: ProjectileConfig{Enabled: true, Speed: 2, DamageOnce: true},
	}
	ts := NewTestSim(
		WithRangeClass(rangedClass),
		WithAgent(AgentSpec{Code: "launcher", Label: "atk", Faction: 0, Pos: V3(10, 10), Attacks: []AttackProfile{p}}),
		WithAgent(AgentSpec{Code: "rifle", Label: "vic", Faction: 1, Pos: V3(16.5, 10), Radius: 0.5}),
		WithAttackOrder("vic", OrderChange, "atk"),
	)
	vic := ts.Agent("vic")

	ts.RunTicks(2)
	if hp := vic.Health().Current(); hp != 100 {
		t.Fatalf("projectile still in flight, hp %.1f", hp)
	}
	if len(ts.World.Projectiles.Active()) != 1 {
		t.Fatalf("expected one projectile in flight, got %d", len(ts.World.Projectiles.Active()))
	}
	ts.RunTicks(1)
	if hp := vic.Health().Current(); hp != 90 {
		t.Fatalf("projectile should land on tick 3, hp %.1f", hp)
	}
	if len(ts.World.Projectiles.Active()) != 0 {
		t.Fatal("damage-once projectile should be spent")
	}
}

func TestCombat_ProjectileExpires(t *testing.T) {
	p := AttackProfile{
		Code: "rocket", Active: true, RangeClass: "ranged", UnitDamage: 10, Reload: 100,
		Projectile: ProjectileConfig{Enabled: true, Speed: 1, Lifetime: 2},
	}
	ts := NewTestSim(
		WithRangeClass(rangedClass),
		WithAgent(AgentSpec{Code: "launcher", Label: "atk", Faction: 0, Pos: V3(10, 10), Attacks: []AttackProfile{p}}),
		WithAgent(AgentSpec{Code: "rifle", Label: "vic", Faction: 1, Pos: V3(16.5, 10), Radius: 0.5}),
		WithAttackOrder("vic", OrderChange, "atk"),
	)
	ts.RunTicks(10)
	if ts.Agent("vic").Health().Current() != 100 {
		t.Fatal("a projectile that expires short of the target must not hit")
	}
	if len(ts.World.Projectiles.Active()) != 0 {
		t.Fatal("expired projectile should be removed")
	}
}

func TestCombat_DamageOverTime(t *testing.T) {
	p := meleeProfile()
	p.UnitDamage = 5
	p.Reload = 100
	p.DoT = DoTConfig{Enabled: true, Duration: 6, Cycle: 2}
	ts := duelSim([]AttackProfile{p})
	vic := ts.Agent("vic")

	ts.RunTicks(10)
	if hp := vic.Health().Current(); hp != 85 {
		t.Fatalf("expected three DoT cycles of 5, hp %.1f", hp)
	}
	if vic.Health().DoT() != nil {
		t.Fatal("DoT should have expired")
	}
	if n := ts.SimLog.CountCategory("dot", "tick"); n != 3 {
		t.Fatalf("expected 3 dot ticks logged, got %d", n)
	}
}

func TestCombat_TurretOnlyEngagesInReach(t *testing.T) {
	p := AttackProfile{
		Code: "cannon", Active: true, RangeClass: "turret", UnitDamage: 20, Reload: 3,
		AttackInRange: true, SearchRange: 12,
	}
	ts := NewTestSim(
		WithRangeClass(turretClass),
		WithStructure(StructureSpec{Code: "tower", Label: "tower", Faction: 0, Pos: V3(30, 30), Attacks: []AttackProfile{p}}),
		WithAgent(AgentSpec{Code: "rifle", Label: "scout", Faction: 1, Pos: V3(38, 30)}),
	)
	tower, scout := ts.Structure("tower"), ts.Agent("scout")

	ts.RunTicks(3)
	if tower.Attack().Target() != nil {
		t.Fatal("turret must not lock a target it cannot reach")
	}

	scout.pos = V3(34, 30)
	if ts.RunUntil(func(*TestSim) bool { return scout.Health().Current() < 100 }, 5) < 0 {
		t.Fatalf("turret should fire on a target in reach\n%s", ts.SimLog.Format())
	}

	scout.pos = V3(45, 30)
	ts.RunTicks(1)
	if tower.Attack().Target() != nil {
		t.Fatal("turret should drop a target that left its reach")
	}
}

func TestCombat_UnbuiltStructureStaysIdle(t *testing.T) {
	p := AttackProfile{Code: "cannon", Active: true, RangeClass: "turret", UnitDamage: 20, AttackInRange: true, SearchRange: 12}
	ts := NewTestSim(
		WithRangeClass(turretClass),
		WithStructure(StructureSpec{Code: "tower", Label: "tower", Faction: 0, Pos: V3(30, 30), Unbuilt: true, Attacks: []AttackProfile{p}}),
		WithAgent(AgentSpec{Code: "rifle", Label: "scout", Faction: 1, Pos: V3(33, 30)}),
	)
	ts.RunTicks(5)
	if ts.Structure("tower").Attack().State() != CombatIdle || ts.Agent("scout").Health().Current() != 100 {
		t.Fatal("an unbuilt turret must stay idle")
	}

	ts.Structure("tower").SetBuilt(true)
	if ts.RunUntil(func(*TestSim) bool { return ts.Agent("scout").Health().Current() < 100 }, 5) < 0 {
		t.Fatal("built turret should engage")
	}
}

func TestCombat_DefenseAnchorSearchesBorder(t *testing.T) {
	p := meleeProfile()
	p.AttackInRange = true
	p.SearchRange = 2
	ts := NewTestSim(
		WithRangeClass(meleeClass),
		WithStructure(StructureSpec{Code: "hq", Label: "hq", Faction: 0, Pos: V3(30, 30), Radius: 2, BorderRadius: 12}),
		WithAgent(AgentSpec{Code: "rifle", Label: "guard", Faction: 0, Pos: V3(26, 30), Attacks: []AttackProfile{p}}),
		WithAgent(AgentSpec{Code: "rifle", Label: "raider", Faction: 1, Pos: V3(39, 30)}),
	)
	guard := ts.Agent("guard")
	guard.Attack().SetDefenseAnchor(ts.Structure("hq"))

	ts.RunTicks(1)
	if guard.Attack().Target() != ts.Agent("raider") {
		t.Fatal("defender should pick up enemies inside the anchor border")
	}
}
