package main

import (
	"flag"
	"os"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/Garsondee/Rally-Point/internal/catalog"
	"github.com/Garsondee/Rally-Point/internal/config"
	"github.com/Garsondee/Rally-Point/internal/game"
	"github.com/Garsondee/Rally-Point/internal/logging"
	"github.com/Garsondee/Rally-Point/internal/scenario"
	"github.com/Garsondee/Rally-Point/internal/view"
)

func main() {
	configDir := flag.String("config", ".", "directory holding skirmish.yaml")
	name := flag.String("scenario", "skirmish", "scenario name ("+strings.Join(scenario.Names(), ", ")+")")
	seed := flag.Int64("seed", 0, "layout seed (default from config)")
	flag.Parse()

	cfg, err := config.Load(*configDir)
	log := logging.New(cfg.LogLevel, false, os.Stderr)
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	if *seed == 0 {
		*seed = cfg.Scenario.Seed
	}

	var (
		cat      *catalog.Catalog
		warnings []string
	)
	if cfg.CatalogPath == "" {
		cat, warnings, err = catalog.Default()
	} else {
		cat, warnings, err = catalog.Load(cfg.CatalogPath)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("catalog")
	}
	for _, w := range warnings {
		log.Warn().Msg(w)
	}

	opts, err := scenario.Options(*name, cat, *seed)
	if err != nil {
		log.Fatal().Err(err).Msg("scenario")
	}
	opts = append(opts,
		game.WithLocalFaction(cfg.LocalFaction),
		game.WithMaxRingGrowth(cfg.MaxRingGrowth),
		game.WithLogger(log),
	)
	world := game.NewTestSim(opts...).World

	g := view.New(world, cfg.LocalFaction, log)
	ebiten.SetWindowTitle("Rally Point")
	ebiten.SetWindowSize(g.Size())
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	if err := ebiten.RunGame(g); err != nil {
		log.Fatal().Err(err).Msg("game loop")
	}
}
