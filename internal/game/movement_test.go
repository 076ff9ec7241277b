package game

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
)

func TestMove_DirectToClearDestination(t *testing.T) {
	ts := NewTestSim(WithAgent(AgentSpec{Code: "rifle", Label: "a", Pos: V3(10, 10)}))
	a := ts.Agent("a")

	if err := ts.World.Coord.Move(a, V3(20, 20), 0, nil, ModeNone); err != nil {
		t.Fatalf("move: %v", err)
	}
	if !a.Moving() || a.Destination() != V3(20, 20) {
		t.Fatalf("expected to head straight for (20,20), dest %+v", a.Destination())
	}
	if ts.RunUntil(func(*TestSim) bool { return a.Arrived() }, 200) < 0 {
		t.Fatal("agent never arrived")
	}
	if a.Position() != V3(20, 20) {
		t.Fatalf("expected to stop exactly on the destination, at %+v", a.Position())
	}
	if !ts.SimLog.HasEntry("move", "arrived", "(20.0,20.0)") {
		t.Fatal("arrival should be logged")
	}
}

func TestMove_OccupiedDestinationUsesRing(t *testing.T) {
	ts := NewTestSim(
		WithAgent(AgentSpec{Code: "rifle", Label: "a", Pos: V3(10, 10)}),
		WithAgent(AgentSpec{Code: "rifle", Label: "b", Pos: V3(20, 20)}),
	)
	a := ts.Agent("a")

	if err := ts.World.Coord.Move(a, V3(20, 20), 0, nil, ModeNone); err != nil {
		t.Fatalf("move: %v", err)
	}
	if d := a.Destination().PlanarDist(V3(20, 20)); d <= 1 {
		t.Fatalf("destination %.2f from an occupied spot overlaps its occupant", d)
	}
}

func TestMove_ImmobileAgent(t *testing.T) {
	ts := NewTestSim(WithAgent(AgentSpec{Code: "bunker", Label: "a", Pos: V3(10, 10), Immobile: true}))
	if err := ts.World.Coord.Move(ts.Agent("a"), V3(20, 20), 0, nil, ModeNone); !errors.Is(err, ErrImmobile) {
		t.Fatalf("expected ErrImmobile, got %v", err)
	}
}

func TestMove_Unreachable(t *testing.T) {
	ts := NewTestSim(
		// Walled box around (40,40).
		WithObstacle(35, 35, 10, 1),
		WithObstacle(35, 44, 10, 1),
		WithObstacle(35, 35, 1, 10),
		WithObstacle(44, 35, 1, 10),
		WithAgent(AgentSpec{Code: "rifle", Label: "a", Pos: V3(10, 10)}),
	)
	a := ts.Agent("a")

	err := ts.World.Coord.Move(a, V3(40, 40), 0, nil, ModeNone)
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
	if a.Moving() {
		t.Fatal("agent should not move toward an unreachable spot")
	}
	if ts.World.Messages.Len() == 0 {
		t.Fatal("local faction should be told")
	}

	n, err := ts.World.MoveGroup([]*Agent{a}, V3(40, 40), 0, nil, ModeNone)
	if n != 0 || !errors.Is(err, ErrGroupPartial) {
		t.Fatalf("expected 0 moved with ErrGroupPartial, got %d %v", n, err)
	}
}

func TestMove_RingExhaustedReportsError(t *testing.T) {
	ts := NewTestSim(
		WithAgent(AgentSpec{Code: "rifle", Label: "a", Pos: V3(10, 10)}),
		WithAgent(AgentSpec{Code: "rifle", Label: "b", Pos: V3(20, 20)}),
	)
	ts.World.Slots.MaxGrowth = 0

	err := ts.World.Coord.Move(ts.Agent("a"), V3(20, 20), 0, nil, ModeNone)
	if !errors.Is(err, ErrNoRingSlot) {
		t.Fatalf("expected ErrNoRingSlot, got %v", err)
	}
	msgs := ts.World.Messages.Recent()
	if len(msgs) != 1 || msgs[0].Label != "a" {
		t.Fatalf("expected one message about a, got %+v", msgs)
	}
}

// Scenario: fourteen agents sent to one point. The first ring holds twelve;
// the two farthest agents land on a ring regrown one footprint further out.
func TestMoveGroup_DistanceOrderedRingAssignment(t *testing.T) {
	var opts []SimOption
	var labels []string
	for i := 0; i < 14; i++ {
		l := fmt.Sprintf("r%02d", i)
		labels = append(labels, l)
		opts = append(opts, WithAgent(AgentSpec{Code: "rifle", Label: l, Pos: V3(2+float64(i)*1.5, 5)}))
	}
	ts := NewTestSim(opts...)
	dest := V3(32, 32)

	n, err := ts.World.MoveGroup(ts.Agents(labels...), dest, 2, nil, ModeNone)
	if err != nil || n != 14 {
		t.Fatalf("expected 14 moved, got %d %v", n, err)
	}

	agents := ts.Agents(labels...)
	for i, a := range agents {
		if !a.Moving() {
			t.Fatalf("%s was not given a move", a.Label())
		}
		want := 2.0
		if i < 2 {
			want = 3.0
		}
		if d := a.Destination().PlanarDist(dest); math.Abs(d-want) > 1e-6 {
			t.Fatalf("%s: expected ring radius %.0f, got %.3f", a.Label(), want, d)
		}
		for _, b := range agents[i+1:] {
			if d := a.Destination().PlanarDist(b.Destination()); d < 1-1e-9 {
				t.Fatalf("%s and %s share a slot (%.3f apart)", a.Label(), b.Label(), d)
			}
		}
	}
}

// Scenario: two class groups share one order; the second group must not
// reuse slots handed to the first while it is still walking.
func TestMoveGroup_MixedClassesGetDistinctSlots(t *testing.T) {
	ts := NewTestSim(
		WithAgent(AgentSpec{Code: "rifle", Label: "r1", Pos: V3(10, 28)}),
		WithAgent(AgentSpec{Code: "rifle", Label: "r2", Pos: V3(10, 32)}),
		WithAgent(AgentSpec{Code: "grenadier", Label: "g1", Pos: V3(12, 28)}),
		WithAgent(AgentSpec{Code: "grenadier", Label: "g2", Pos: V3(12, 32)}),
	)
	labels := []string{"r1", "r2", "g1", "g2"}
	agents := ts.Agents(labels...)

	n, err := ts.World.MoveGroup(agents, V3(40, 30), 2, nil, ModeNone)
	if err != nil || n != 4 {
		t.Fatalf("expected 4 moved, got %d %v", n, err)
	}
	for i, a := range agents {
		for _, b := range agents[i+1:] {
			if d := a.Destination().PlanarDist(b.Destination()); d < 1-1e-9 {
				t.Fatalf("%s and %s sent to overlapping slots (%.2f apart)", a.Label(), b.Label(), d)
			}
		}
	}
}

func TestMove_SequentialOrdersToSamePoint(t *testing.T) {
	ts := NewTestSim(
		WithAgent(AgentSpec{Code: "rifle", Label: "a", Pos: V3(10, 30)}),
		WithAgent(AgentSpec{Code: "rifle", Label: "b", Pos: V3(10, 34)}),
	)
	a, b := ts.Agent("a"), ts.Agent("b")
	dest := V3(40, 30)

	if err := ts.World.Coord.Move(a, dest, 0, nil, ModeNone); err != nil {
		t.Fatalf("move a: %v", err)
	}
	if err := ts.World.Coord.Move(b, dest, 0, nil, ModeNone); err != nil {
		t.Fatalf("move b: %v", err)
	}
	if a.Destination() != dest {
		t.Fatalf("first agent should go straight to the clear spot, dest %+v", a.Destination())
	}
	if d := b.Destination().PlanarDist(dest); d < 1-1e-9 {
		t.Fatalf("second agent claims a spot already taken, %.2f apart", d)
	}

	ts.RunTicks(300)
	if d := a.Position().PlanarDist(b.Position()); d < 1-1e-9 {
		t.Fatalf("agents ended up overlapping: a=%+v b=%+v", a.Position(), b.Position())
	}
}

func TestMoveGroup_ReissuedOrderKeepsInnerRing(t *testing.T) {
	var opts []SimOption
	var labels []string
	for i := 0; i < 4; i++ {
		l := fmt.Sprintf("r%d", i)
		labels = append(labels, l)
		opts = append(opts, WithAgent(AgentSpec{Code: "rifle", Label: l, Pos: V3(5, 10+float64(i)*2)}))
	}
	ts := NewTestSim(opts...)
	agents := ts.Agents(labels...)
	dest := V3(40, 30)

	for round := 0; round < 2; round++ {
		if _, err := ts.World.MoveGroup(agents, dest, 2, nil, ModeNone); err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
		ts.RunTicks(3)
	}
	for _, a := range agents {
		if d := a.Destination().PlanarDist(dest); math.Abs(d-2) > 1e-6 {
			t.Fatalf("%s pushed off the inner ring by its own old slot, radius %.3f", a.Label(), d)
		}
	}
}

func TestMoveGroup_CapabilityFilter(t *testing.T) {
	ts := NewTestSim(
		WithStructure(StructureSpec{Code: "depot", Label: "depot", Pos: V3(30, 30), Radius: 2,
			WorkerAnchors: []*Vec3{vp(27, 30), vp(33, 30)}}),
		WithAgent(AgentSpec{Code: "worker", Label: "w", Pos: V3(20, 30), Caps: CapBuild}),
		WithAgent(AgentSpec{Code: "rifle", Label: "r", Pos: V3(20, 32)}),
	)
	n, err := ts.World.MoveGroup(ts.Agents("w", "r"), V3(30, 30), 0, ts.Structure("depot"), ModeBuild)
	if err != nil || n != 1 {
		t.Fatalf("only the builder should move, got %d %v", n, err)
	}
	if ts.Agent("r").Moving() {
		t.Fatal("agent without the build capability should be ignored")
	}
}

// Scenario: a host with two worker slots receives three builders. The two
// nearest get slots; the third is refused and the player is told.
func TestMoveGroup_WorkerSlotsExhausted(t *testing.T) {
	ts := NewTestSim(
		WithStructure(StructureSpec{Code: "depot", Label: "depot", Pos: V3(30, 30), Radius: 2,
			WorkerAnchors: []*Vec3{vp(27, 30), vp(33, 30)}}),
		WithAgent(AgentSpec{Code: "worker", Label: "w1", Pos: V3(20, 30), Caps: CapBuild}),
		WithAgent(AgentSpec{Code: "worker", Label: "w2", Pos: V3(19, 30), Caps: CapBuild}),
		WithAgent(AgentSpec{Code: "worker", Label: "w3", Pos: V3(18, 30), Caps: CapBuild}),
	)
	depot := ts.Structure("depot")

	n, err := ts.World.MoveGroup(ts.Agents("w1", "w2", "w3"), depot.Position(), 0, depot, ModeBuild)
	if n != 2 || !errors.Is(err, ErrGroupPartial) {
		t.Fatalf("expected 2 moved and ErrGroupPartial, got %d %v", n, err)
	}
	if depot.Workers().CurrentWorkers() != 2 {
		t.Fatalf("expected 2 workers, got %d", depot.Workers().CurrentWorkers())
	}
	if w3 := ts.Agent("w3"); w3.Moving() || depot.Workers().SlotOf(w3) != -1 {
		t.Fatal("the farthest builder should be refused")
	}

	found := false
	for _, m := range ts.World.Messages.Recent() {
		if strings.Contains(m.Message, "no free worker slot") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a worker-slot message, got %+v", ts.World.Messages.Recent())
	}

	if ts.RunUntil(func(*TestSim) bool {
		return ts.Agent("w1").Interaction().Engaged && ts.Agent("w2").Interaction().Engaged
	}, 200) < 0 {
		t.Fatal("builders should start work on arrival")
	}
}

func TestMoveGroup_NewOrderReleasesWorkerSlot(t *testing.T) {
	ts := NewTestSim(
		WithStructure(StructureSpec{Code: "depot", Label: "depot", Pos: V3(30, 30), Radius: 2,
			WorkerAnchors: []*Vec3{vp(27, 30)}}),
		WithAgent(AgentSpec{Code: "worker", Label: "w", Pos: V3(20, 30), Caps: CapCollect}),
	)
	depot, w := ts.Structure("depot"), ts.Agent("w")

	if _, err := ts.World.MoveGroup([]*Agent{w}, depot.Position(), 0, depot, ModeCollect); err != nil {
		t.Fatalf("collect order: %v", err)
	}
	if depot.Workers().CurrentWorkers() != 1 {
		t.Fatal("collector should hold the slot")
	}
	if _, err := ts.World.MoveGroup([]*Agent{w}, V3(10, 10), 0, nil, ModeNone); err != nil {
		t.Fatalf("move order: %v", err)
	}
	if depot.Workers().CurrentWorkers() != 0 {
		t.Fatal("a new order should release the worker slot")
	}
}

func TestMoveGroup_BoardAndUnload(t *testing.T) {
	ts := NewTestSim(
		WithStructure(StructureSpec{Code: "apc", Label: "apc", Pos: V3(30, 30), Radius: 2, Capacity: 2}),
		WithAgent(AgentSpec{Code: "rifle", Label: "a", Pos: V3(20, 30), Caps: CapBoard}),
	)
	apc, a := ts.Structure("apc"), ts.Agent("a")

	if _, err := ts.World.MoveGroup([]*Agent{a}, apc.Position(), 0, apc, ModeBoard); err != nil {
		t.Fatalf("board order: %v", err)
	}
	if ts.RunUntil(func(*TestSim) bool { return a.BoardedOn() == apc }, 200) < 0 {
		t.Fatal("agent never boarded")
	}
	if !a.IsInvisible() || a.Ready() {
		t.Fatal("a boarded agent is hidden and cannot act")
	}

	out := apc.Unload()
	if len(out) != 1 || a.BoardedOn() != nil {
		t.Fatal("unload should release the passenger")
	}
	if d := a.Position().PlanarDist(apc.Position()); math.Abs(d-2.5) > 1e-6 {
		t.Fatalf("passenger should be placed at the edge, %.2f from centre", d)
	}
}

func TestMoveGroup_Teleport(t *testing.T) {
	exit := V3(55, 55)
	ts := NewTestSim(
		WithStructure(StructureSpec{Code: "gate", Label: "gate", Pos: V3(30, 30), Radius: 1, Exit: &exit}),
		WithAgent(AgentSpec{Code: "rifle", Label: "a", Pos: V3(20, 30), Caps: CapTeleport}),
	)
	a := ts.Agent("a")

	if _, err := ts.World.MoveGroup([]*Agent{a}, V3(30, 30), 0, ts.Structure("gate"), ModeTeleport); err != nil {
		t.Fatalf("teleport order: %v", err)
	}
	if ts.RunUntil(func(*TestSim) bool { return a.Position() == exit }, 200) < 0 {
		t.Fatalf("agent never reached the exit, at %+v", a.Position())
	}
}

func TestLaunchAttack_FansOutAroundTarget(t *testing.T) {
	opts := []SimOption{
		WithRangeClass(meleeClass),
		WithAgent(AgentSpec{Code: "rifle", Label: "target", Faction: 1, Pos: V3(30, 30)}),
	}
	var labels []string
	for i := 0; i < 6; i++ {
		l := fmt.Sprintf("m%d", i)
		labels = append(labels, l)
		opts = append(opts, WithAgent(AgentSpec{Code: "rifle", Label: l, Pos: V3(10+float64(i)*1.5, 10),
			Attacks: []AttackProfile{meleeProfile()}}))
	}
	ts := NewTestSim(opts...)
	target := ts.Agent("target")

	n, err := ts.World.Attack(ts.Agents(labels...), target, OrderChange)
	if err != nil || n != 6 {
		t.Fatalf("expected 6 attackers, got %d %v", n, err)
	}
	agents := ts.Agents(labels...)
	for i, a := range agents {
		if a.Attack().Target() != target {
			t.Fatalf("%s has no target", a.Label())
		}
		if d := a.Destination().PlanarDist(target.Position()); math.Abs(d-1.5) > 1e-6 {
			t.Fatalf("%s should stop at 1.5, slot at %.3f", a.Label(), d)
		}
		for _, b := range agents[i+1:] {
			if a.Destination().PlanarDist(b.Destination()) < 1-1e-9 {
				t.Fatalf("%s and %s share a slot", a.Label(), b.Label())
			}
		}
	}
	if got := ts.SimLog.CountCategory("combat", "attack_ordered"); got != 6 {
		t.Fatalf("expected 6 attack_ordered events, got %d", got)
	}
}

func TestLaunchAttack_AssignedOnly(t *testing.T) {
	eager := meleeProfile()
	eager.AttackOnAssign = true
	ts := NewTestSim(
		WithRangeClass(meleeClass),
		WithAgent(AgentSpec{Code: "rifle", Label: "x", Faction: 1, Pos: V3(40, 10)}),
		WithAgent(AgentSpec{Code: "rifle", Label: "y", Faction: 1, Pos: V3(40, 40)}),
		WithAgent(AgentSpec{Code: "rifle", Label: "eager", Pos: V3(10, 10), Attacks: []AttackProfile{eager}}),
		WithAgent(AgentSpec{Code: "rifle", Label: "lazy", Pos: V3(10, 12), Attacks: []AttackProfile{meleeProfile()}}),
	)
	x, y := ts.Agent("x"), ts.Agent("y")
	eagerA, lazy := ts.Agent("eager"), ts.Agent("lazy")

	if n, _ := ts.World.Attack(ts.Agents("eager", "lazy"), x, OrderAssigned); n != 1 {
		t.Fatalf("only the attack-on-assign agent should join, got %d", n)
	}
	if eagerA.Attack().Target() != x || lazy.Attack().Target() != nil {
		t.Fatal("wrong agents were assigned")
	}

	// OrderAssigned keeps an existing live target.
	if _, err := ts.World.Attack([]*Agent{eagerA}, y, OrderAssigned); !errors.Is(err, ErrNoTarget) {
		t.Fatalf("expected ErrNoTarget, got %v", err)
	}
	if eagerA.Attack().Target() != x {
		t.Fatal("existing target should be kept")
	}

	// OrderFull replaces it.
	if _, err := ts.World.Attack([]*Agent{eagerA}, y, OrderFull); err != nil {
		t.Fatalf("full order: %v", err)
	}
	if eagerA.Attack().Target() != y {
		t.Fatal("full order should replace the target")
	}
}

func TestLaunchAttack_RejectsAlliesAndDead(t *testing.T) {
	ts := NewTestSim(
		WithRangeClass(meleeClass),
		WithAgent(AgentSpec{Code: "rifle", Label: "friend", Faction: 0, Pos: V3(20, 10)}),
		WithAgent(AgentSpec{Code: "rifle", Label: "a", Faction: 0, Pos: V3(10, 10), Attacks: []AttackProfile{meleeProfile()}}),
	)
	if _, err := ts.World.Attack(ts.Agents("a"), ts.Agent("friend"), OrderChange); !errors.Is(err, ErrNoTarget) {
		t.Fatalf("allies are not valid targets, got %v", err)
	}
	ts.Agent("friend").Health().AddHealth(-1000, nil)
	ts.Agent("friend").SetFaction(1)
	if _, err := ts.World.Attack(ts.Agents("a"), ts.Agent("friend"), OrderChange); !errors.Is(err, ErrNoTarget) {
		t.Fatalf("dead entities are not valid targets, got %v", err)
	}
}

func TestMoveGroup_PlainMoveClearsTarget(t *testing.T) {
	ts := duelSim([]AttackProfile{meleeProfile()})
	atk := ts.Agent("atk")
	if atk.Attack().Target() == nil {
		t.Fatal("setup: expected a target")
	}
	if _, err := ts.World.MoveGroup([]*Agent{atk}, V3(40, 40), 0, nil, ModeNone); err != nil {
		t.Fatalf("move: %v", err)
	}
	if atk.Attack().Target() != nil {
		t.Fatal("a plain move should drop the attack target")
	}
	ts.RunTicks(3)
	if ts.Agent("vic").Health().Current() != 100 {
		t.Fatal("attacker should not strike after being moved away")
	}
}
