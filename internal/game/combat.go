package game

// rangeEpsilon absorbs float error for attackers parked exactly on a ring.
const rangeEpsilon = 1e-6

// CombatState is the phase of an attacker's state machine.
type CombatState int

const (
	CombatIdle              CombatState = iota // no target, not searching
	CombatSeeking                              // scanning for a target
	CombatMoving                               // approaching a target
	CombatDelaying                             // in range, waiting on facing, reload or delay
	CombatWaitingForTrigger                    // delay elapsed, waiting on Trigger
	CombatExecuting                            // fired this tick
	CombatCooldown                             // profile cooling down
)

func (cs CombatState) String() string {
	switch cs {
	case CombatIdle:
		return "idle"
	case CombatSeeking:
		return "seeking"
	case CombatMoving:
		return "moving"
	case CombatDelaying:
		return "delaying"
	case CombatWaitingForTrigger:
		return "waiting_trigger"
	case CombatExecuting:
		return "executing"
	case CombatCooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// CombatEventKind classifies transitions reported by the combat step.
type CombatEventKind int

const (
	EventAttackOrdered CombatEventKind = iota
	EventTargetAcquired
	EventTargetLost
	EventInRange
	EventAttackStarted // play the attack animation
	EventAttackExecuted
	EventProjectileLaunched
	EventCooldownStarted
	EventCooldownExpired
)

func (k CombatEventKind) String() string {
	switch k {
	case EventAttackOrdered:
		return "attack_ordered"
	case EventTargetAcquired:
		return "target_acquired"
	case EventTargetLost:
		return "target_lost"
	case EventInRange:
		return "in_range"
	case EventAttackStarted:
		return "attack_started"
	case EventAttackExecuted:
		return "attack_executed"
	case EventProjectileLaunched:
		return "projectile_launched"
	case EventCooldownStarted:
		return "cooldown_started"
	case EventCooldownExpired:
		return "cooldown_expired"
	default:
		return "unknown"
	}
}

// CombatEvent is one transition of an attacker.
type CombatEvent struct {
	Kind       CombatEventKind
	Attacker   Attacker
	Target     Entity
	Hits       []Hit
	Projectile *Projectile
}

// Notifier receives combat events for UI and audio feedback. Calls are fire
// and forget.
type Notifier interface {
	Notify(ev CombatEvent)
}

// NopNotifier discards every event.
type NopNotifier struct{}

func (NopNotifier) Notify(CombatEvent) {}

type profileTimers struct {
	reload      int
	cooldown    int
	coolingDown bool
}

// AttackState is the per-attacker combat state. All of its countdowns are
// advanced by advanceTimers, once per tick.
type AttackState struct {
	owner    Attacker
	profiles []AttackProfile
	timers   []profileTimers
	basic    int
	current  int
	state    CombatState

	target Entity
	anchor *Structure

	search     int
	delay      int
	delayArmed bool
	triggered  bool
	wasInRange bool
	losOK      bool

	lastTargetPos Vec3
	// leashed is set once the attacker has been within follow range of its
	// unit target; leaving that range afterwards drops the target.
	leashed bool
	// engageRadius is the ring radius the approach actually used, which may
	// exceed the stopping distance after ring growth.
	engageRadius float64
}

// NewAttackState creates the combat state of owner with its attack profiles.
// basic indexes the default profile.
func NewAttackState(owner Attacker, basic int, profiles ...AttackProfile) *AttackState {
	if basic < 0 || basic >= len(profiles) {
		basic = 0
	}
	st := &AttackState{
		owner:    owner,
		profiles: append([]AttackProfile(nil), profiles...),
		timers:   make([]profileTimers, len(profiles)),
		basic:    basic,
		current:  basic,
	}
	st.triggered = !st.Profile().UseTriggerDelay
	return st
}

// Profile returns the active attack profile.
func (st *AttackState) Profile() *AttackProfile { return &st.profiles[st.current] }

// ProfileIndex returns the index of the active profile.
func (st *AttackState) ProfileIndex() int { return st.current }

func (st *AttackState) State() CombatState   { return st.state }
func (st *AttackState) Target() Entity       { return st.target }
func (st *AttackState) WasInRange() bool     { return st.wasInRange }
func (st *AttackState) LineOfSightOK() bool  { return st.losOK }
func (st *AttackState) Anchor() *Structure   { return st.anchor }
func (st *AttackState) ReloadRemaining() int { return st.timers[st.current].reload }

// CooldownRemaining returns the ticks left on the active profile's cooldown.
func (st *AttackState) CooldownRemaining() int {
	if !st.timers[st.current].coolingDown {
		return 0
	}
	return st.timers[st.current].cooldown
}

// TargetAgent returns the target when it is an agent.
func (st *AttackState) TargetAgent() *Agent {
	a, _ := st.target.(*Agent)
	return a
}

// TargetStructure returns the target when it is a structure.
func (st *AttackState) TargetStructure() *Structure {
	s, _ := st.target.(*Structure)
	return s
}

// CanAttack reports whether the active profile may execute now: active,
// owner ready, reloaded and not cooling down.
func (st *AttackState) CanAttack() bool {
	p := st.Profile()
	t := st.timers[st.current]
	return p.Active && st.owner.Ready() && t.reload <= 0 && !t.coolingDown
}

// StartCoolDown starts the active profile's cooldown if it uses one. It
// reports whether a cooldown was started.
func (st *AttackState) StartCoolDown() bool {
	p := st.Profile()
	if !p.UseCooldown || p.Cooldown <= 0 {
		return false
	}
	t := &st.timers[st.current]
	t.cooldown = p.Cooldown
	t.coolingDown = true
	return true
}

// Trigger is called by the animation collaborator when the attack's release
// frame is reached.
func (st *AttackState) Trigger() { st.triggered = true }

// SetDefenseAnchor makes the attacker search around s instead of itself.
// Pass nil to clear it.
func (st *AttackState) SetDefenseAnchor(s *Structure) { st.anchor = s }

// SwitchProfile activates profile i. Timers of each profile are kept.
func (st *AttackState) SwitchProfile(i int) bool {
	if i < 0 || i >= len(st.profiles) || i == st.current {
		return false
	}
	st.current = i
	st.resetEngagement()
	return true
}

// setTarget locks e as the current target and resets per-target flags.
func (st *AttackState) setTarget(e Entity) {
	st.target = e
	st.resetEngagement()
	st.lastTargetPos = e.Position()
	st.leashed = false
	st.engageRadius = 0
}

func (st *AttackState) resetEngagement() {
	st.wasInRange = false
	st.losOK = false
	st.delayArmed = false
	st.delay = 0
	st.triggered = !st.Profile().UseTriggerDelay
}

// ClearTarget drops the target and returns to Idle, or Cooldown when the
// active profile is still cooling down.
func (st *AttackState) ClearTarget() {
	st.target = nil
	st.resetEngagement()
	st.engageRadius = 0
	st.state = st.restState()
}

func (st *AttackState) restState() CombatState {
	if st.timers[st.current].coolingDown {
		return CombatCooldown
	}
	return CombatIdle
}

// advanceTimers counts every timer down by one tick.
func (st *AttackState) advanceTimers() []CombatEvent {
	var events []CombatEvent
	for i := range st.timers {
		t := &st.timers[i]
		if t.reload > 0 {
			t.reload--
		}
		if t.coolingDown {
			t.cooldown--
			if t.cooldown <= 0 {
				t.cooldown = 0
				t.coolingDown = false
				events = append(events, CombatEvent{Kind: EventCooldownExpired, Attacker: st.owner})
			}
		}
	}
	if st.search > 0 {
		st.search--
	}
	if st.delayArmed && st.delay > 0 {
		st.delay--
	}
	return events
}

// CombatManager drives every attacker's state machine.
type CombatManager struct {
	space       SpatialIndex
	coord       *Coordinator
	damage      *DamageResolver
	projectiles *ProjectileSystem
	ranges      RangeTable
	notify      Notifier
}

// NewCombatManager wires the combat step to its collaborators.
func NewCombatManager(space SpatialIndex, coord *Coordinator, damage *DamageResolver, projectiles *ProjectileSystem, ranges RangeTable, notify Notifier) *CombatManager {
	if notify == nil {
		notify = NopNotifier{}
	}
	return &CombatManager{
		space:       space,
		coord:       coord,
		damage:      damage,
		projectiles: projectiles,
		ranges:      ranges,
		notify:      notify,
	}
}

// Step advances a's combat state by one tick and returns the transitions it
// produced. Positions must already be updated for this tick.
func (cm *CombatManager) Step(a Attacker) []CombatEvent {
	st := a.Attack()
	if st == nil {
		return nil
	}
	events := st.advanceTimers()
	events = append(events, cm.transition(a, st)...)
	for _, ev := range events {
		cm.notify.Notify(ev)
	}
	return events
}

func (cm *CombatManager) transition(a Attacker, st *AttackState) []CombatEvent {
	p := st.Profile()
	if !p.Active || !a.Ready() {
		if st.target != nil {
			cm.cancel(a, st)
		}
		st.state = CombatIdle
		return nil
	}

	if st.target != nil && !p.CanTarget(a.Faction(), st.target) {
		lost := st.target
		cm.cancel(a, st)
		return []CombatEvent{{Kind: EventTargetLost, Attacker: a, Target: lost}}
	}

	if st.target == nil {
		if !p.AttackInRange {
			st.state = st.restState()
			return nil
		}
		st.state = CombatSeeking
		if st.search > 0 {
			return nil
		}
		st.search = p.SearchReload
		tgt := cm.search(a, st)
		if tgt == nil {
			return nil
		}
		if err := cm.coord.Engage(a, tgt, OrderNone); err != nil {
			return nil
		}
		return []CombatEvent{{Kind: EventTargetAcquired, Attacker: a, Target: tgt}}
	}

	tgt := st.target
	rc, _ := cm.ranges.Get(p.RangeClass)

	if p.FollowRange > 0 && tgt.Kind() == KindAgent && st.anchor == nil {
		if a.Position().PlanarDist(tgt.Position()) <= p.FollowRange {
			st.leashed = true
		} else if st.leashed {
			cm.cancel(a, st)
			return []CombatEvent{{Kind: EventTargetLost, Attacker: a, Target: tgt}}
		}
	}

	agent, mobile := a.(*Agent)
	mobile = mobile && agent.CanMove()

	if mobile && rc.UpdateMoveDistance > 0 &&
		tgt.Position().PlanarDist(st.lastTargetPos) > rc.UpdateMoveDistance {
		st.lastTargetPos = tgt.Position()
		st.wasInRange = false
		if err := cm.coord.approach(agent, tgt, rc); err != nil {
			cm.cancel(a, st)
			return []CombatEvent{{Kind: EventTargetLost, Attacker: a, Target: tgt}}
		}
	}

	if !cm.inRange(a, st, rc, tgt) {
		st.wasInRange = false
		if !mobile {
			cm.cancel(a, st)
			return []CombatEvent{{Kind: EventTargetLost, Attacker: a, Target: tgt}}
		}
		st.state = CombatMoving
		if !agent.Moving() {
			st.lastTargetPos = tgt.Position()
			if err := cm.coord.approach(agent, tgt, rc); err != nil {
				cm.cancel(a, st)
				return []CombatEvent{{Kind: EventTargetLost, Attacker: a, Target: tgt}}
			}
		}
		return nil
	}

	var events []CombatEvent
	if !st.wasInRange {
		st.wasInRange = true
		events = append(events, CombatEvent{Kind: EventInRange, Attacker: a, Target: tgt})
	}

	a.FaceTowards(tgt.Position())
	if !st.losOK {
		if !p.LineOfSight.Within(a.Position(), a.Forward(), tgt.Position()) {
			st.state = CombatDelaying
			return events
		}
		st.losOK = true
	}

	if !st.CanAttack() {
		st.state = CombatDelaying
		if st.timers[st.current].coolingDown {
			st.state = CombatCooldown
		}
		return events
	}

	if !st.delayArmed {
		st.delayArmed = true
		st.delay = p.Delay
		events = append(events, CombatEvent{Kind: EventAttackStarted, Attacker: a, Target: tgt})
	}
	if st.delay > 0 {
		st.state = CombatDelaying
		return events
	}
	if !st.triggered {
		st.state = CombatWaitingForTrigger
		return events
	}

	st.state = CombatExecuting
	events = append(events, cm.execute(a, p, tgt))
	events = append(events, cm.afterExecute(a, st, p)...)
	return events
}

// execute applies one attack of p against tgt.
func (cm *CombatManager) execute(a Attacker, p *AttackProfile, tgt Entity) CombatEvent {
	if p.Projectile.Enabled {
		pr := cm.projectiles.Launch(a, p, tgt)
		return CombatEvent{Kind: EventProjectileLaunched, Attacker: a, Target: tgt, Projectile: pr}
	}
	hits := cm.damage.Strike(a, p, tgt)
	return CombatEvent{Kind: EventAttackExecuted, Attacker: a, Target: tgt, Hits: hits}
}

func (cm *CombatManager) afterExecute(a Attacker, st *AttackState, p *AttackProfile) []CombatEvent {
	var events []CombatEvent
	st.timers[st.current].reload = p.Reload
	st.delayArmed = false
	st.delay = 0
	st.triggered = !p.UseTriggerDelay

	if st.StartCoolDown() {
		st.state = CombatCooldown
		events = append(events, CombatEvent{Kind: EventCooldownStarted, Attacker: a, Target: st.target})
	}
	if p.RevertToBasic && st.current != st.basic {
		st.current = st.basic
		st.triggered = !st.Profile().UseTriggerDelay
	}
	if p.AttackOnce {
		cm.cancel(a, st)
	}
	return events
}

// search returns the nearest eligible enemy around the attacker, or around
// its defense anchor's border.
func (cm *CombatManager) search(a Attacker, st *AttackState) Entity {
	p := st.Profile()
	center, radius := a.Position(), p.SearchRange
	if st.anchor != nil {
		center, radius = st.anchor.Position(), st.anchor.BorderRadius()
	}
	rc, _ := cm.ranges.Get(p.RangeClass)

	var best Entity
	bestD := 0.0
	for _, e := range cm.space.Query(center, radius, LayerAll) {
		if e.ID() == a.ID() || !p.CanTarget(a.Faction(), e) {
			continue
		}
		d := a.Position().PlanarDist(e.Position())
		if !a.CanMove() && d > rc.StoppingDistance(e.Kind())+e.Radius()+rangeEpsilon {
			continue
		}
		if best == nil || d < bestD {
			best, bestD = e, d
		}
	}
	return best
}

// inRange reports whether the attacker may strike tgt from where it stands.
// Mobile attackers must have stopped; they are allowed the ring radius they
// were actually sent to plus the class's move-on-attack slack.
func (cm *CombatManager) inRange(a Attacker, st *AttackState, rc RangeClass, tgt Entity) bool {
	d := a.Position().PlanarDist(tgt.Position())
	stop := rc.StoppingDistance(tgt.Kind()) + tgt.Radius()
	agent, ok := a.(*Agent)
	if !ok || !agent.CanMove() {
		return d <= stop+rangeEpsilon
	}
	if agent.Moving() {
		return false
	}
	return d <= max(stop, st.engageRadius)+rc.MoveOnAttackOffset+rangeEpsilon
}

// cancel drops the target and halts an approaching agent.
func (cm *CombatManager) cancel(a Attacker, st *AttackState) {
	st.ClearTarget()
	if agent, ok := a.(*Agent); ok {
		if agent.interaction.Mode == ModeAttack {
			agent.interaction = Interaction{}
			agent.Stop()
		}
	}
}
