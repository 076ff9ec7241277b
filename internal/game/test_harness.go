package game

import (
	"fmt"
	"math/rand"

	"github.com/rs/zerolog"
)

// TestSim is a headless world harness used by tests and the batch report.
// It has no Ebiten dependency and supports deterministic seeding.
type TestSim struct {
	World  *World
	SimLog *SimLog

	cfg        WorldConfig
	rng        *rand.Rand
	ranges     []RangeClass
	agents     map[string]*Agent
	structures map[string]*Structure
}

// simOptionKind controls the pass in which an option is applied.
type simOptionKind int

const (
	simOptInfra  simOptionKind = iota // map size, obstacles, seed, verbose, ranges, applied first
	simOptEntity                      // add entities, applied after the world is built
	simOptOrder                       // issue orders, applied after entities exist
)

// SimOption is a builder function applied to a TestSim during construction.
type SimOption struct {
	kind simOptionKind
	fn   func(*TestSim)
}

// WithMapSize sets the playfield dimensions in world units.
func WithMapSize(w, d float64) SimOption {
	return SimOption{simOptInfra, func(ts *TestSim) {
		ts.cfg.Width = w
		ts.cfg.Depth = d
	}}
}

// WithObstacle adds a blocked rectangle.
func WithObstacle(x, z, w, d float64) SimOption {
	return SimOption{simOptInfra, func(ts *TestSim) {
		ts.cfg.Obstacles = append(ts.cfg.Obstacles, Rect{X: x, Z: z, W: w, D: d})
	}}
}

// WithSeed sets the RNG seed for deterministic runs.
func WithSeed(seed int64) SimOption {
	return SimOption{simOptInfra, func(ts *TestSim) {
		ts.rng = rand.New(rand.NewSource(seed)) // #nosec G404 -- test harness
	}}
}

// WithVerbose enables per-tick verbose logging.
func WithVerbose(v bool) SimOption {
	return SimOption{simOptInfra, func(ts *TestSim) {
		ts.cfg.Verbose = v
	}}
}

// WithLogger routes diagnostic logging.
func WithLogger(l zerolog.Logger) SimOption {
	return SimOption{simOptInfra, func(ts *TestSim) {
		ts.cfg.Log = l
	}}
}

// WithLocalFaction sets the player faction that receives messages.
func WithLocalFaction(f int) SimOption {
	return SimOption{simOptInfra, func(ts *TestSim) {
		ts.cfg.LocalFaction = f
	}}
}

// WithMaxRingGrowth caps ring radius retries.
func WithMaxRingGrowth(n int) SimOption {
	return SimOption{simOptInfra, func(ts *TestSim) {
		ts.cfg.MaxRingGrowth = n
	}}
}

// WithRangeClass registers a range class.
func WithRangeClass(rc RangeClass) SimOption {
	return SimOption{simOptInfra, func(ts *TestSim) {
		ts.ranges = append(ts.ranges, rc)
	}}
}

// WithAgent spawns an agent; it is retrievable by its label.
func WithAgent(spec AgentSpec) SimOption {
	return SimOption{simOptEntity, func(ts *TestSim) {
		a := ts.World.AddAgent(spec)
		ts.agents[a.Label()] = a
	}}
}

// WithStructure spawns a structure; it is retrievable by its label.
func WithStructure(spec StructureSpec) SimOption {
	return SimOption{simOptEntity, func(ts *TestSim) {
		s := ts.World.AddStructure(spec)
		ts.structures[s.Label()] = s
	}}
}

// WithAttackOrder orders the labelled agents to attack the labelled target.
func WithAttackOrder(target string, order AttackOrder, labels ...string) SimOption {
	return SimOption{simOptOrder, func(ts *TestSim) {
		_, _ = ts.World.Attack(ts.Agents(labels...), ts.Entity(target), order)
	}}
}

// WithMoveOrder sends the labelled agents to (x, z).
func WithMoveOrder(x, z float64, labels ...string) SimOption {
	return SimOption{simOptOrder, func(ts *TestSim) {
		_, _ = ts.World.MoveGroup(ts.Agents(labels...), V3(x, z), 0, nil, ModeNone)
	}}
}

// WithInteractOrder sends the labelled agents to interact with the labelled
// structure in the given mode (build, collect, board, teleport).
func WithInteractOrder(target string, mode MoveMode, labels ...string) SimOption {
	return SimOption{simOptOrder, func(ts *TestSim) {
		if s := ts.Structure(target); s != nil {
			_, _ = ts.World.MoveGroup(ts.Agents(labels...), s.Position(), 0, s, mode)
		}
	}}
}

// NewTestSim constructs a TestSim from the given options in ordered passes:
//  1. Infrastructure (map size, obstacles, seed, ranges)
//  2. Build the world
//  3. Entities
//  4. Orders
func NewTestSim(opts ...SimOption) *TestSim {
	ts := &TestSim{
		cfg: WorldConfig{
			Width:    64,
			Depth:    64,
			CellSize: 1,
			Log:      zerolog.Nop(),
		},
		rng:        rand.New(rand.NewSource(1)), // #nosec G404 -- test harness default
		agents:     map[string]*Agent{},
		structures: map[string]*Structure{},
	}
	for _, o := range opts {
		if o.kind == simOptInfra {
			o.fn(ts)
		}
	}
	ts.cfg.Ranges = NewRangeTable(ts.ranges...)
	ts.World = NewWorld(ts.cfg)
	ts.SimLog = ts.World.SimLog
	for _, kind := range []simOptionKind{simOptEntity, simOptOrder} {
		for _, o := range opts {
			if o.kind == kind {
				o.fn(ts)
			}
		}
	}
	return ts
}

// Rand exposes the harness RNG for scenario builders.
func (ts *TestSim) Rand() *rand.Rand { return ts.rng }

// Agent returns the agent spawned with label, or nil.
func (ts *TestSim) Agent(label string) *Agent { return ts.agents[label] }

// Structure returns the structure spawned with label, or nil.
func (ts *TestSim) Structure(label string) *Structure { return ts.structures[label] }

// Entity returns the agent or structure with label, or nil.
func (ts *TestSim) Entity(label string) Entity {
	if a, ok := ts.agents[label]; ok {
		return a
	}
	if s, ok := ts.structures[label]; ok {
		return s
	}
	return nil
}

// Agents returns the labelled agents, skipping unknown labels.
func (ts *TestSim) Agents(labels ...string) []*Agent {
	var out []*Agent
	for _, l := range labels {
		if a, ok := ts.agents[l]; ok {
			out = append(out, a)
		}
	}
	return out
}

// RunTicks advances the simulation n ticks.
func (ts *TestSim) RunTicks(n int) {
	for i := 0; i < n; i++ {
		ts.World.Tick()
	}
}

// RunUntil advances the simulation up to maxTicks, stopping early if predicate
// returns true. Returns the tick at which the predicate was satisfied, or -1.
func (ts *TestSim) RunUntil(predicate func(*TestSim) bool, maxTicks int) int {
	for i := 0; i < maxTicks; i++ {
		ts.World.Tick()
		if predicate(ts) {
			return ts.World.CurrentTick()
		}
	}
	return -1
}

// CurrentTick returns the current simulation tick.
func (ts *TestSim) CurrentTick() int {
	return ts.World.CurrentTick()
}

// SimSnapshot captures a lightweight state summary.
type SimSnapshot struct {
	Tick   int
	Agents []AgentSnapshot
}

// AgentSnapshot is a lightweight copy of an agent's state at a tick.
type AgentSnapshot struct {
	ID      EntityID
	Label   string
	Faction int
	Pos     Vec3
	HP      float64
	Combat  CombatState
	Target  string
}

// Snapshot returns the current state of all agents.
func (ts *TestSim) Snapshot() SimSnapshot {
	snap := SimSnapshot{Tick: ts.World.CurrentTick()}
	for _, a := range ts.World.Agents() {
		as := AgentSnapshot{
			ID:      a.id,
			Label:   a.label,
			Faction: a.faction,
			Pos:     a.pos,
			HP:      a.health.Current(),
		}
		if st := a.attack; st != nil {
			as.Combat = st.State()
			if st.Target() != nil {
				as.Target = st.Target().Label()
			}
		}
		snap.Agents = append(snap.Agents, as)
	}
	return snap
}

// String renders the snapshot one agent per line.
func (s SimSnapshot) String() string {
	out := fmt.Sprintf("T=%03d\n", s.Tick)
	for _, a := range s.Agents {
		out += fmt.Sprintf("  %-10s f%d (%.1f,%.1f) hp=%.0f %s %s\n",
			a.Label, a.Faction, a.Pos.X, a.Pos.Z, a.HP, a.Combat, a.Target)
	}
	return out
}
