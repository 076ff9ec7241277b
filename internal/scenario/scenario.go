// Package scenario builds the named starting layouts shared by the viewer and
// the headless report.
package scenario

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/Garsondee/Rally-Point/internal/catalog"
	"github.com/Garsondee/Rally-Point/internal/game"
)

// Builder returns the options that set up one run.
type Builder func(cat *catalog.Catalog, rng *rand.Rand) ([]game.SimOption, error)

var builders = map[string]Builder{
	"skirmish": buildSkirmish,
	"defense":  buildDefense,
	"harvest":  buildHarvest,
}

// ErrUnknown is returned for a scenario name with no builder.
var ErrUnknown = errors.New("unknown scenario")

// Names lists the registered scenarios in sorted order.
func Names() []string {
	names := make([]string, 0, len(builders))
	for n := range builders {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the builder registered under name.
func Lookup(name string) (Builder, error) {
	b, ok := builders[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (supported: %s)", ErrUnknown, name, strings.Join(Names(), ", "))
	}
	return b, nil
}

// Options builds the named scenario with layout jitter drawn from seed.
func Options(name string, cat *catalog.Catalog, seed int64) ([]game.SimOption, error) {
	b, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(seed)) // #nosec G404 -- deterministic scenario layout
	opts, err := b(cat, rng)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", name, err)
	}
	return append(opts, game.WithSeed(seed)), nil
}

func rangeOptions(cat *catalog.Catalog) []game.SimOption {
	var opts []game.SimOption
	for _, rc := range cat.Ranges() {
		opts = append(opts, game.WithRangeClass(rc))
	}
	return opts
}

func jitter(rng *rand.Rand, x, z, spread float64) game.Vec3 {
	return game.V3(x+(rng.Float64()-0.5)*spread, z+(rng.Float64()-0.5)*spread)
}

func agentOpt(cat *catalog.Catalog, code, label string, faction int, pos game.Vec3) (game.SimOption, error) {
	spec, err := cat.Unit(code, faction, pos)
	if err != nil {
		return game.SimOption{}, err
	}
	spec.Label = label
	return game.WithAgent(spec), nil
}

func structureOpt(cat *catalog.Catalog, code, label string, faction int, pos game.Vec3) (game.SimOption, error) {
	spec, err := cat.Structure(code, faction, pos)
	if err != nil {
		return game.SimOption{}, err
	}
	spec.Label = label
	return game.WithStructure(spec), nil
}

// buildSkirmish: two mixed squads march on the map centre and fight whatever
// they meet on the way.
func buildSkirmish(cat *catalog.Catalog, rng *rand.Rand) ([]game.SimOption, error) {
	opts := append([]game.SimOption{game.WithMapSize(96, 64)}, rangeOptions(cat)...)
	var red, blue []string
	for i := 0; i < 6; i++ {
		code := "rifle"
		if i%3 == 2 {
			code = "grenadier"
		}
		r := fmt.Sprintf("red-%d", i)
		b := fmt.Sprintf("blue-%d", i)
		ro, err := agentOpt(cat, code, r, 0, jitter(rng, 8, 20+float64(i)*4, 2))
		if err != nil {
			return nil, err
		}
		bo, err := agentOpt(cat, code, b, 1, jitter(rng, 88, 20+float64(i)*4, 2))
		if err != nil {
			return nil, err
		}
		opts = append(opts, ro, bo)
		red, blue = append(red, r), append(blue, b)
	}
	opts = append(opts,
		game.WithMoveOrder(48, 32, red...),
		game.WithMoveOrder(48, 32, blue...),
	)
	return opts, nil
}

// buildDefense: a tower guards its HQ against a raiding party ordered onto
// the HQ.
func buildDefense(cat *catalog.Catalog, rng *rand.Rand) ([]game.SimOption, error) {
	opts := append([]game.SimOption{game.WithMapSize(64, 64)}, rangeOptions(cat)...)
	hq, err := structureOpt(cat, "hq", "hq", 0, game.V3(32, 32))
	if err != nil {
		return nil, err
	}
	tower, err := structureOpt(cat, "tower", "tower", 0, game.V3(26, 32))
	if err != nil {
		return nil, err
	}
	opts = append(opts, hq, tower)
	var raiders []string
	for i := 0; i < 5; i++ {
		label := fmt.Sprintf("raider-%d", i)
		o, err := agentOpt(cat, "rifle", label, 1, jitter(rng, 6, 24+float64(i)*4, 3))
		if err != nil {
			return nil, err
		}
		opts = append(opts, o)
		raiders = append(raiders, label)
	}
	opts = append(opts, game.WithAttackOrder("hq", game.OrderChange, raiders...))
	return opts, nil
}

// buildHarvest: more workers than the mine has slots, with a raider arriving
// later. Exercises worker slot exhaustion and release on death.
func buildHarvest(cat *catalog.Catalog, rng *rand.Rand) ([]game.SimOption, error) {
	opts := append([]game.SimOption{game.WithMapSize(64, 64)}, rangeOptions(cat)...)
	mine, err := structureOpt(cat, "mine", "mine", 0, game.V3(40, 32))
	if err != nil {
		return nil, err
	}
	opts = append(opts, mine)
	var workers []string
	for i := 0; i < 5; i++ {
		label := fmt.Sprintf("worker-%d", i)
		o, err := agentOpt(cat, "worker", label, 0, jitter(rng, 12, 24+float64(i)*4, 2))
		if err != nil {
			return nil, err
		}
		opts = append(opts, o)
		workers = append(workers, label)
	}
	raider, err := agentOpt(cat, "rifle", "raider", 1, jitter(rng, 60, 60, 2))
	if err != nil {
		return nil, err
	}
	opts = append(opts, raider,
		game.WithInteractOrder("mine", game.ModeCollect, workers...),
		game.WithMoveOrder(40, 32, "raider"),
	)
	return opts, nil
}
