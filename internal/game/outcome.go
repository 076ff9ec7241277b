package game

import (
	"fmt"
	"slices"
)

type SkirmishOutcome int

const (
	OutcomeInconclusive SkirmishOutcome = iota
	OutcomeVictory
	OutcomeDraw
)

func (o SkirmishOutcome) String() string {
	switch o {
	case OutcomeVictory:
		return "victory"
	case OutcomeDraw:
		return "draw"
	case OutcomeInconclusive:
		return "inconclusive"
	default:
		return "unknown"
	}
}

// FactionTally counts one faction's forces.
type FactionTally struct {
	Faction            int
	AgentsAlive        int
	AgentsTotal        int
	StructuresStanding int
	StructuresTotal    int
}

// Eliminated is true once nothing of the faction is left.
func (ft FactionTally) Eliminated() bool {
	return ft.AgentsAlive == 0 && ft.StructuresStanding == 0
}

type SkirmishOutcomeReason struct {
	Outcome     SkirmishOutcome
	Winner      int // -1 without a victory
	Tallies     []FactionTally
	Description string
}

// DetermineOutcome tallies every faction present. A single surviving faction
// wins; none surviving is a draw; several surviving is inconclusive.
func DetermineOutcome(agents []*Agent, structures []*Structure) SkirmishOutcomeReason {
	byFaction := map[int]*FactionTally{}
	get := func(f int) *FactionTally {
		t, ok := byFaction[f]
		if !ok {
			t = &FactionTally{Faction: f}
			byFaction[f] = t
		}
		return t
	}
	for _, a := range agents {
		t := get(a.faction)
		t.AgentsTotal++
		if a.IsAlive() {
			t.AgentsAlive++
		}
	}
	for _, s := range structures {
		t := get(s.faction)
		t.StructuresTotal++
		if s.IsAlive() {
			t.StructuresStanding++
		}
	}

	res := SkirmishOutcomeReason{Winner: -1}
	var standing []int
	for _, t := range byFaction {
		res.Tallies = append(res.Tallies, *t)
		if !t.Eliminated() {
			standing = append(standing, t.Faction)
		}
	}
	slices.SortFunc(res.Tallies, func(a, b FactionTally) int { return a.Faction - b.Faction })
	slices.Sort(standing)

	switch len(standing) {
	case 0:
		res.Outcome = OutcomeDraw
		res.Description = "mutual_elimination"
	case 1:
		res.Outcome = OutcomeVictory
		res.Winner = standing[0]
		res.Description = fmt.Sprintf("faction_%d_last_standing", standing[0])
	default:
		res.Outcome = OutcomeInconclusive
		res.Description = fmt.Sprintf("%d_factions_standing", len(standing))
	}
	return res
}
