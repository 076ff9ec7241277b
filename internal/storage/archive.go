// Package storage archives headless run summaries in SQLite.
package storage

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Garsondee/Rally-Point/internal/game"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// RunSummary is one archived headless run.
type RunSummary struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	Scenario  string `gorm:"index"`
	Seed      int64
	Ticks     int
	Outcome   string `gorm:"index"`
	Winner    int
	Detail    string

	Factions []FactionResult `gorm:"constraint:OnDelete:CASCADE"`
}

// FactionResult is a faction's tally at the end of a run.
type FactionResult struct {
	ID                 uint `gorm:"primaryKey"`
	RunSummaryID       uint `gorm:"index"`
	Faction            int
	AgentsAlive        int
	AgentsTotal        int
	StructuresStanding int
	StructuresTotal    int
}

// NewRunSummary converts a resolved outcome into an archive row.
func NewRunSummary(scenario string, seed int64, ticks int, res game.SkirmishOutcomeReason) RunSummary {
	rs := RunSummary{
		Scenario: scenario,
		Seed:     seed,
		Ticks:    ticks,
		Outcome:  res.Outcome.String(),
		Winner:   res.Winner,
		Detail:   res.Description,
	}
	for _, t := range res.Tallies {
		rs.Factions = append(rs.Factions, FactionResult{
			Faction:            t.Faction,
			AgentsAlive:        t.AgentsAlive,
			AgentsTotal:        t.AgentsTotal,
			StructuresStanding: t.StructuresStanding,
			StructuresTotal:    t.StructuresTotal,
		})
	}
	return rs
}

// Archive stores run summaries.
type Archive struct {
	db  *gorm.DB
	log zerolog.Logger
}

// Open opens (or creates) the archive at path and migrates its schema.
func Open(path string, log zerolog.Logger) (*Archive, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		CreateBatchSize:        500,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	if path == MemoryPath {
		// Every pooled connection would otherwise get its own empty database.
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}

	for _, pragma := range []string{
		"PRAGMA user_version = 1;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA foreign_keys = ON;",
	} {
		if err := db.Exec(pragma).Error; err != nil {
			log.Warn().Err(err).Str("pragma", pragma).Msg("Error setting PRAGMA")
		}
	}

	if err := db.AutoMigrate(&RunSummary{}, &FactionResult{}); err != nil {
		return nil, fmt.Errorf("migrate archive: %w", err)
	}
	log.Debug().Str("path", path).Msg("run archive ready")
	return &Archive{db: db, log: log}, nil
}

// Save stores rs with its faction rows and fills in its ID.
func (a *Archive) Save(rs *RunSummary) error {
	if err := a.db.Create(rs).Error; err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	a.log.Info().
		Uint("id", rs.ID).
		Str("scenario", rs.Scenario).
		Str("outcome", rs.Outcome).
		Int("ticks", rs.Ticks).
		Msg("run archived")
	return nil
}

// Recent returns up to limit runs, newest first.
func (a *Archive) Recent(limit int) ([]RunSummary, error) {
	var runs []RunSummary
	err := a.db.Preload("Factions").Order("id desc").Limit(limit).Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// OutcomeCounts tallies archived outcomes for one scenario.
func (a *Archive) OutcomeCounts(scenario string) (map[string]int, error) {
	var rows []struct {
		Outcome string
		N       int
	}
	err := a.db.Model(&RunSummary{}).
		Select("outcome, count(*) as n").
		Where("scenario = ?", scenario).
		Group("outcome").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count outcomes: %w", err)
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Outcome] = r.N
	}
	return out, nil
}

// Close releases the underlying connection.
func (a *Archive) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
