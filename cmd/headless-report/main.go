package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/rs/zerolog"

	"github.com/Garsondee/Rally-Point/internal/catalog"
	"github.com/Garsondee/Rally-Point/internal/config"
	"github.com/Garsondee/Rally-Point/internal/game"
	"github.com/Garsondee/Rally-Point/internal/logging"
	"github.com/Garsondee/Rally-Point/internal/scenario"
	"github.com/Garsondee/Rally-Point/internal/storage"
)

type runStats struct {
	runIndex int
	seed     int64

	resolvedTick int
	outcome      game.SkirmishOutcomeReason

	firstAcquireTick int
	firstHitTick     int
	firstDeathTick   int

	orders      int
	acquired    int
	lost        int
	executed    int
	projectiles int
	hits        int
	dotTicks    int
	deaths      int
	arrivals    int
	unloads     int
	messages    int
	damageDealt map[int]float64
}

type options struct {
	configDir string
	catalog   string
	scenario  string
	runs      int
	ticks     int
	seedBase  int64
	seedStep  int64
	archive   bool
	copy      bool
	logLevel  string
}

func main() {
	var o options
	flag.StringVar(&o.configDir, "config", ".", "directory holding skirmish.yaml")
	flag.StringVar(&o.catalog, "catalog", "", "unit catalog (default: built-in)")
	flag.StringVar(&o.scenario, "scenario", "skirmish", "scenario name ("+strings.Join(scenario.Names(), ", ")+")")
	flag.IntVar(&o.runs, "runs", 0, "number of headless runs (default from config)")
	flag.IntVar(&o.ticks, "ticks", 0, "max ticks per run (default from config)")
	flag.Int64Var(&o.seedBase, "seed-base", 0, "RNG seed for run 1 (default from config)")
	flag.Int64Var(&o.seedStep, "seed-step", 1, "seed increment between runs")
	flag.BoolVar(&o.archive, "archive", false, "store run summaries in the sqlite archive")
	flag.BoolVar(&o.copy, "copy", false, "copy the report to the clipboard")
	flag.StringVar(&o.logLevel, "log", "", "log level (default from config)")
	flag.Parse()

	if err := run(o, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(o options, stdout io.Writer) error {
	cfg, err := config.Load(o.configDir)
	if err != nil {
		return err
	}
	o = o.withDefaults(cfg)
	log := logging.New(o.logLevel, false, os.Stderr)

	if o.runs <= 0 {
		return fmt.Errorf("-runs must be > 0")
	}
	if o.ticks <= 0 {
		return fmt.Errorf("-ticks must be > 0")
	}
	if _, err := scenario.Lookup(o.scenario); err != nil {
		return err
	}

	cat, warnings, err := loadCatalog(o.catalog)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		log.Warn().Str("catalog", o.catalog).Msg(w)
	}

	var archive *storage.Archive
	if o.archive || cfg.Storage.Enabled {
		archive, err = storage.Open(cfg.Storage.Path, log)
		if err != nil {
			return err
		}
		defer archive.Close()
	}

	var report strings.Builder
	out := io.MultiWriter(stdout, &report)
	fmt.Fprintf(out, "=== Headless Skirmish Report ===\n")
	fmt.Fprintf(out, "scenario=%s runs=%d ticks=%d seed_base=%d seed_step=%d\n\n", o.scenario, o.runs, o.ticks, o.seedBase, o.seedStep)

	all := make([]runStats, 0, o.runs)
	for i := 0; i < o.runs; i++ {
		seed := o.seedBase + int64(i)*o.seedStep
		rs, err := runScenario(o.scenario, cat, cfg, log, i+1, seed, o.ticks)
		if err != nil {
			return fmt.Errorf("run %d: %w", i+1, err)
		}
		all = append(all, rs)
		printRun(out, rs)

		if archive != nil {
			summary := storage.NewRunSummary(o.scenario, seed, rs.ticksUsed(o.ticks), rs.outcome)
			if err := archive.Save(&summary); err != nil {
				log.Error().Err(err).Int("run", rs.runIndex).Msg("archive failed")
			}
		}
	}
	printAggregate(out, all)

	if archive != nil {
		counts, err := archive.OutcomeCounts(o.scenario)
		if err == nil {
			fmt.Fprintf(out, "archived_outcomes: %s\n", formatCounts(counts))
		}
	}

	if o.copy {
		if err := clipboard.WriteAll(report.String()); err != nil {
			log.Warn().Err(err).Msg("clipboard copy failed")
		} else {
			log.Info().Int("bytes", report.Len()).Msg("report copied to clipboard")
		}
	}
	return nil
}

func (o options) withDefaults(cfg config.Settings) options {
	if o.runs == 0 {
		o.runs = cfg.Scenario.Runs
	}
	if o.ticks == 0 {
		o.ticks = cfg.Scenario.Ticks
	}
	if o.seedBase == 0 {
		o.seedBase = cfg.Scenario.Seed
	}
	if o.catalog == "" {
		o.catalog = cfg.CatalogPath
	}
	if o.logLevel == "" {
		o.logLevel = cfg.LogLevel
	}
	return o
}

func loadCatalog(path string) (*catalog.Catalog, []string, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.Load(path)
}

func runScenario(name string, cat *catalog.Catalog, cfg config.Settings, log zerolog.Logger, runIndex int, seed int64, ticks int) (runStats, error) {
	opts, err := scenario.Options(name, cat, seed)
	if err != nil {
		return runStats{}, err
	}
	opts = append(opts,
		game.WithLocalFaction(cfg.LocalFaction),
		game.WithMaxRingGrowth(cfg.MaxRingGrowth),
		game.WithLogger(log.With().Int("run", runIndex).Logger()),
	)
	ts := game.NewTestSim(opts...)

	resolved := ts.RunUntil(func(ts *game.TestSim) bool {
		return game.DetermineOutcome(ts.World.Agents(), ts.World.Structures()).Outcome != game.OutcomeInconclusive
	}, ticks)

	rs := collectStats(ts.SimLog.Entries())
	rs.runIndex = runIndex
	rs.seed = seed
	rs.resolvedTick = resolved
	rs.outcome = game.DetermineOutcome(ts.World.Agents(), ts.World.Structures())
	rs.messages = ts.World.Messages.Len()
	return rs, nil
}

func collectStats(entries []game.SimLogEntry) runStats {
	rs := runStats{
		firstAcquireTick: firstTick(entries, "combat", "target_acquired", ""),
		firstHitTick:     firstTick(entries, "damage", "hit", ""),
		firstDeathTick:   firstTick(entries, "death", "", ""),
		damageDealt:      map[int]float64{},
	}
	for _, e := range entries {
		switch e.Category {
		case "move":
			switch {
			case strings.HasPrefix(e.Key, "order_"):
				rs.orders++
			case e.Key == "arrived":
				rs.arrivals++
			case e.Key == "unloaded":
				rs.unloads++
			}
		case "combat":
			switch e.Key {
			case "target_acquired":
				rs.acquired++
			case "target_lost":
				rs.lost++
			case "attack_executed":
				rs.executed++
			case "projectile_launched":
				rs.projectiles++
			}
		case "damage":
			rs.hits++
			rs.damageDealt[e.Faction] += e.NumVal
		case "dot":
			rs.dotTicks++
		case "death":
			rs.deaths++
		}
	}
	return rs
}

func (rs runStats) ticksUsed(limit int) int {
	if rs.resolvedTick < 0 {
		return limit
	}
	return rs.resolvedTick
}

func firstTick(entries []game.SimLogEntry, category, key, contains string) int {
	for _, e := range entries {
		if e.Category != category || (key != "" && e.Key != key) {
			continue
		}
		if contains == "" || strings.Contains(e.Value, contains) {
			return e.Tick
		}
	}
	return -1
}

func printRun(w io.Writer, rs runStats) {
	fmt.Fprintf(w, "--- Run %d (seed=%d) ---\n", rs.runIndex, rs.seed)
	fmt.Fprintf(w, "outcome: %s resolved_tick=%d\n", rs.outcome.Description, rs.resolvedTick)
	fmt.Fprintf(w, "phase_markers: first_acquire=%d first_hit=%d first_death=%d\n",
		rs.firstAcquireTick, rs.firstHitTick, rs.firstDeathTick)
	fmt.Fprintf(w, "movement: orders=%d arrivals=%d unloads=%d player_messages=%d\n",
		rs.orders, rs.arrivals, rs.unloads, rs.messages)
	fmt.Fprintf(w, "combat: acquired=%d lost=%d executed=%d projectiles=%d hits=%d dot_ticks=%d deaths=%d\n",
		rs.acquired, rs.lost, rs.executed, rs.projectiles, rs.hits, rs.dotTicks, rs.deaths)
	for _, t := range rs.outcome.Tallies {
		fmt.Fprintf(w, "  faction %d: agents %d/%d structures %d/%d damage_dealt=%.1f\n",
			t.Faction, t.AgentsAlive, t.AgentsTotal, t.StructuresStanding, t.StructuresTotal, rs.damageDealt[t.Faction])
	}
	fmt.Fprintln(w)
}

func printAggregate(w io.Writer, all []runStats) {
	outcomes := map[string]int{}
	wins := map[int]int{}
	var resolved []int
	totalHits, totalDeaths, totalLost := 0, 0, 0
	for _, rs := range all {
		outcomes[rs.outcome.Outcome.String()]++
		if rs.outcome.Outcome == game.OutcomeVictory {
			wins[rs.outcome.Winner]++
		}
		if rs.resolvedTick >= 0 {
			resolved = append(resolved, rs.resolvedTick)
		}
		totalHits += rs.hits
		totalDeaths += rs.deaths
		totalLost += rs.lost
	}

	fmt.Fprintln(w, "=== Aggregate ===")
	fmt.Fprintf(w, "runs=%d outcomes: %s\n", len(all), formatCounts(outcomes))
	factions := make([]int, 0, len(wins))
	for f := range wins {
		factions = append(factions, f)
	}
	sort.Ints(factions)
	for _, f := range factions {
		fmt.Fprintf(w, "  faction %d wins=%d (%.0f%%)\n", f, wins[f], float64(wins[f])/float64(len(all))*100)
	}
	fmt.Fprintf(w, "avg_per_run: hits=%.1f deaths=%.1f targets_lost=%.1f\n",
		avg(totalHits, len(all)), avg(totalDeaths, len(all)), avg(totalLost, len(all)))
	fmt.Fprintf(w, "avg_resolution_tick=%s\n", avgTickString(resolved))
}

func avg(sum int, n int) float64 {
	if n <= 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

func avgTickString(vals []int) string {
	if len(vals) == 0 {
		return "n/a"
	}
	sum := 0
	for _, v := range vals {
		sum += v
	}
	return fmt.Sprintf("%.1f", float64(sum)/float64(len(vals)))
}

func formatCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	return strings.Join(parts, " ")
}
