// Package catalog loads unit, structure, attack and range-class definitions
// from YAML and turns them into game spawn specs.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Garsondee/Rally-Point/internal/game"
)

type Point struct {
	X float64 `yaml:"x"`
	Z float64 `yaml:"z"`
}

type RangeClass struct {
	Code                     string  `yaml:"code"`
	UnitStoppingDistance     float64 `yaml:"unit_stopping_distance"`
	BuildingStoppingDistance float64 `yaml:"building_stopping_distance"`
	MoveOnAttackOffset       float64 `yaml:"move_on_attack_offset"`
	UpdateMoveDistance       float64 `yaml:"update_move_distance"`
}

type AreaTier struct {
	Range          float64 `yaml:"range"`
	UnitDamage     float64 `yaml:"unit_damage"`
	BuildingDamage float64 `yaml:"building_damage"`
}

type DoT struct {
	Duration int  `yaml:"duration"`
	Infinite bool `yaml:"infinite"`
	Cycle    int  `yaml:"cycle"`
}

type Projectile struct {
	Speed      float64 `yaml:"speed"`
	Delay      int     `yaml:"delay"`
	DamageOnce bool    `yaml:"damage_once"`
	HitRadius  float64 `yaml:"hit_radius"`
	Lifetime   int     `yaml:"lifetime"`
}

type LineOfSight struct {
	MaxAngle float64 `yaml:"max_angle"`
	IgnoreX  bool    `yaml:"ignore_x"`
	IgnoreY  bool    `yaml:"ignore_y"`
	IgnoreZ  bool    `yaml:"ignore_z"`
}

type Filter struct {
	SkipUnits     bool     `yaml:"skip_units"`
	SkipBuildings bool     `yaml:"skip_buildings"`
	Allow         []string `yaml:"allow"`
	Deny          []string `yaml:"deny"`
}

// Attack is one attack profile. Optional blocks enable their feature by
// being present.
type Attack struct {
	Code           string             `yaml:"code"`
	Inactive       bool               `yaml:"inactive"`
	RangeClass     string             `yaml:"range_class"`
	UnitDamage     float64            `yaml:"unit_damage"`
	BuildingDamage float64            `yaml:"building_damage"`
	CustomDamage   map[string]float64 `yaml:"custom_damage"`

	Reload       int  `yaml:"reload"`
	Cooldown     int  `yaml:"cooldown"`
	Delay        int  `yaml:"delay"`
	TriggerDelay bool `yaml:"trigger_delay"`

	Area       []AreaTier   `yaml:"area"`
	DoT        *DoT         `yaml:"dot"`
	Projectile *Projectile  `yaml:"projectile"`
	LOS        *LineOfSight `yaml:"line_of_sight"`
	Filter     Filter       `yaml:"filter"`

	AttackInRange  bool    `yaml:"attack_in_range"`
	SearchRange    float64 `yaml:"search_range"`
	SearchReload   int     `yaml:"search_reload"`
	TargetAllies   bool    `yaml:"target_allies"`
	FollowRange    float64 `yaml:"follow_range"`
	AttackOnce     bool    `yaml:"attack_once"`
	AttackOnAssign bool    `yaml:"attack_on_assign"`
	RevertToBasic  bool    `yaml:"revert_to_basic"`
}

type Unit struct {
	Code     string   `yaml:"code"`
	HP       float64  `yaml:"hp"`
	Radius   float64  `yaml:"radius"`
	Speed    float64  `yaml:"speed"`
	TurnRate float64  `yaml:"turn_rate"`
	Immobile bool     `yaml:"immobile"`
	Areas    []string `yaml:"areas"`
	Caps     []string `yaml:"caps"`
	Attacks  []string `yaml:"attacks"`
	Basic    int      `yaml:"basic"`
}

type Structure struct {
	Code         string  `yaml:"code"`
	HP           float64 `yaml:"hp"`
	Radius       float64 `yaml:"radius"`
	BorderRadius float64 `yaml:"border_radius"`
	Capacity     int     `yaml:"capacity"`
	// WorkerSlots are offsets from the structure; a null entry is unanchored.
	WorkerSlots []*Point `yaml:"worker_slots"`
	Exit        *Point   `yaml:"exit"`
	Attacks     []string `yaml:"attacks"`
	Basic       int      `yaml:"basic"`
}

// Catalog is a loaded definitions file.
type Catalog struct {
	RangeClasses []RangeClass `yaml:"range_classes"`
	Attacks      []Attack     `yaml:"attacks"`
	Units        []Unit       `yaml:"units"`
	Structures   []Structure  `yaml:"structures"`

	attacks map[string]Attack
}

var (
	ErrUnknownCode = errors.New("unknown code")
	ErrInvalid     = errors.New("invalid catalog")
)

var capNames = map[string]game.Capability{
	"build":    game.CapBuild,
	"collect":  game.CapCollect,
	"board":    game.CapBoard,
	"teleport": game.CapTeleport,
}

var areaNames = map[string]game.AreaMask{
	"ground":   game.AreaGround,
	"shallows": game.AreaShallows,
	"deep":     game.AreaDeep,
	"any":      game.AreaAny,
}

//go:embed default_catalog.yaml
var defaultCatalog []byte

// Default returns the built-in catalog.
func Default() (*Catalog, []string, error) {
	return Parse(defaultCatalog)
}

// Load reads and validates a catalog file. Warnings are returned for
// suspicious but usable definitions.
func Load(path string) (*Catalog, []string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	c, warnings, err := Parse(raw)
	if err != nil {
		return nil, warnings, fmt.Errorf("%s: %w", path, err)
	}
	return c, warnings, nil
}

// Parse decodes and validates catalog YAML.
func Parse(raw []byte) (*Catalog, []string, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, nil, err
	}
	warnings, err := c.validate()
	if err != nil {
		return nil, warnings, err
	}
	return &c, warnings, nil
}

func (c *Catalog) validate() ([]string, error) {
	var warnings []string
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	ranges := map[string]bool{}
	for _, rc := range c.RangeClasses {
		if rc.Code == "" {
			bad("range class without code")
		}
		ranges[rc.Code] = true
	}

	c.attacks = make(map[string]Attack, len(c.Attacks))
	for _, a := range c.Attacks {
		if _, dup := c.attacks[a.Code]; dup {
			bad("attack %q defined twice", a.Code)
		}
		c.attacks[a.Code] = a
		if !ranges[a.RangeClass] {
			bad("attack %q: range class %q is not defined", a.Code, a.RangeClass)
		}
		p := a.profile()
		if !p.HasDamageSource() {
			bad("attack %q has no damage source", a.Code)
		}
		for i := 1; i < len(a.Area); i++ {
			if a.Area[i].Range <= a.Area[i-1].Range {
				warnings = append(warnings, fmt.Sprintf("attack %q: area tiers are not in ascending range order", a.Code))
				break
			}
		}
		if a.Projectile != nil && a.Projectile.Speed <= 0 {
			bad("attack %q: projectile speed must be positive", a.Code)
		}
		if len(a.Filter.Allow) > 0 && len(a.Filter.Deny) > 0 {
			bad("attack %q: filter cannot both allow and deny", a.Code)
		}
	}

	checkAttacks := func(owner string, codes []string, basic int) {
		for _, code := range codes {
			if _, ok := c.attacks[code]; !ok {
				bad("%s: attack %q is not defined", owner, code)
			}
		}
		if len(codes) > 0 && (basic < 0 || basic >= len(codes)) {
			bad("%s: basic attack index %d out of range", owner, basic)
		}
	}
	for _, u := range c.Units {
		checkAttacks("unit "+u.Code, u.Attacks, u.Basic)
		for _, name := range u.Caps {
			if _, ok := capNames[name]; !ok {
				bad("unit %q: unknown capability %q", u.Code, name)
			}
		}
		for _, name := range u.Areas {
			if _, ok := areaNames[name]; !ok {
				bad("unit %q: unknown area %q", u.Code, name)
			}
		}
	}
	for _, s := range c.Structures {
		checkAttacks("structure "+s.Code, s.Attacks, s.Basic)
	}
	return warnings, errors.Join(errs...)
}

func (a Attack) profile() game.AttackProfile {
	p := game.AttackProfile{
		Code:            a.Code,
		Active:          !a.Inactive,
		RangeClass:      a.RangeClass,
		UnitDamage:      a.UnitDamage,
		BuildingDamage:  a.BuildingDamage,
		Reload:          a.Reload,
		UseCooldown:     a.Cooldown > 0,
		Cooldown:        a.Cooldown,
		Delay:           a.Delay,
		UseTriggerDelay: a.TriggerDelay,
		AreaEnabled:     len(a.Area) > 0,
		AttackInRange:   a.AttackInRange,
		SearchRange:     a.SearchRange,
		SearchReload:    a.SearchReload,
		TargetAllies:    a.TargetAllies,
		FollowRange:     a.FollowRange,
		AttackOnce:      a.AttackOnce,
		AttackOnAssign:  a.AttackOnAssign,
		RevertToBasic:   a.RevertToBasic,
		Filter: game.TargetFilter{
			SkipUnits:     a.Filter.SkipUnits,
			SkipBuildings: a.Filter.SkipBuildings,
		},
	}
	for code, dmg := range a.CustomDamage {
		p.CustomDamage = append(p.CustomDamage, game.CustomDamage{Code: code, Damage: dmg})
	}
	for _, t := range a.Area {
		p.Area = append(p.Area, game.AreaTier{Range: t.Range, UnitDamage: t.UnitDamage, BuildingDamage: t.BuildingDamage})
	}
	if a.DoT != nil {
		p.DoT = game.DoTConfig{Enabled: true, Duration: a.DoT.Duration, Infinite: a.DoT.Infinite, Cycle: a.DoT.Cycle}
	}
	if pr := a.Projectile; pr != nil {
		p.Projectile = game.ProjectileConfig{
			Enabled:    true,
			Speed:      pr.Speed,
			Delay:      pr.Delay,
			DamageOnce: pr.DamageOnce,
			HitRadius:  pr.HitRadius,
			Lifetime:   pr.Lifetime,
		}
	}
	if l := a.LOS; l != nil {
		p.LineOfSight = game.LineOfSight{Enabled: true, MaxAngle: l.MaxAngle, IgnoreX: l.IgnoreX, IgnoreY: l.IgnoreY, IgnoreZ: l.IgnoreZ}
	}
	switch {
	case len(a.Filter.Allow) > 0:
		p.Filter.Mode, p.Filter.Codes = game.FilterAllow, a.Filter.Allow
	case len(a.Filter.Deny) > 0:
		p.Filter.Mode, p.Filter.Codes = game.FilterDeny, a.Filter.Deny
	}
	return p
}

func (c *Catalog) profiles(codes []string) []game.AttackProfile {
	out := make([]game.AttackProfile, 0, len(codes))
	for _, code := range codes {
		out = append(out, c.attacks[code].profile())
	}
	return out
}

// Ranges returns the range table shared by every attack.
func (c *Catalog) Ranges() game.RangeTable {
	classes := make([]game.RangeClass, 0, len(c.RangeClasses))
	for _, rc := range c.RangeClasses {
		classes = append(classes, game.RangeClass{
			Code:                     rc.Code,
			UnitStoppingDistance:     rc.UnitStoppingDistance,
			BuildingStoppingDistance: rc.BuildingStoppingDistance,
			MoveOnAttackOffset:       rc.MoveOnAttackOffset,
			UpdateMoveDistance:       rc.UpdateMoveDistance,
		})
	}
	return game.NewRangeTable(classes...)
}

// Unit returns a spawn spec for the unit code at pos.
func (c *Catalog) Unit(code string, faction int, pos game.Vec3) (game.AgentSpec, error) {
	for _, u := range c.Units {
		if u.Code != code {
			continue
		}
		spec := game.AgentSpec{
			Code:     u.Code,
			Faction:  faction,
			Pos:      pos,
			Radius:   u.Radius,
			HP:       u.HP,
			Speed:    u.Speed,
			TurnRate: u.TurnRate,
			Immobile: u.Immobile,
			Attacks:  c.profiles(u.Attacks),
			Basic:    u.Basic,
		}
		for _, name := range u.Caps {
			spec.Caps |= capNames[name]
		}
		for _, name := range u.Areas {
			spec.AreaMask |= areaNames[name]
		}
		return spec, nil
	}
	return game.AgentSpec{}, fmt.Errorf("unit %q: %w", code, ErrUnknownCode)
}

// Structure returns a spawn spec for the structure code at pos. Worker slot
// and exit offsets are resolved against pos.
func (c *Catalog) Structure(code string, faction int, pos game.Vec3) (game.StructureSpec, error) {
	for _, s := range c.Structures {
		if s.Code != code {
			continue
		}
		spec := game.StructureSpec{
			Code:         s.Code,
			Faction:      faction,
			Pos:          pos,
			Radius:       s.Radius,
			BorderRadius: s.BorderRadius,
			HP:           s.HP,
			Capacity:     s.Capacity,
			Attacks:      c.profiles(s.Attacks),
			Basic:        s.Basic,
		}
		for _, off := range s.WorkerSlots {
			spec.WorkerAnchors = append(spec.WorkerAnchors, offset(pos, off))
		}
		spec.Exit = offset(pos, s.Exit)
		return spec, nil
	}
	return game.StructureSpec{}, fmt.Errorf("structure %q: %w", code, ErrUnknownCode)
}

func offset(origin game.Vec3, p *Point) *game.Vec3 {
	if p == nil {
		return nil
	}
	v := game.V3(origin.X+p.X, origin.Z+p.Z)
	return &v
}
